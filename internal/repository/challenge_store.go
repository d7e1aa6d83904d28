package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

// ChallengeStore persists OTP challenges keyed by correlation handle.
// Consumption on a correct code is atomic; a mismatched code leaves the
// record in place so the caller may retry within the expiry window.
type ChallengeStore interface {
	Put(ctx context.Context, challenge *domain.OTPChallenge) error
	GetAndDeleteOnMatch(ctx context.Context, handle, code string) (string, error)
	GetForRetry(ctx context.Context, handle string) (*domain.OTPChallenge, error)
}

// consumeChallengeLua performs lookup, expiry check, code comparison and
// delete-on-match in one atomic step. Expired records are deleted on
// sight; mismatches are retained.
var consumeChallengeLua = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return {err='not_found'}
end
local expiresAt = tonumber(redis.call('HGET', KEYS[1], 'exp'))
if tonumber(ARGV[2]) > expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end
if code ~= ARGV[1] then
  return {err='mismatch'}
end
local account = redis.call('HGET', KEYS[1], 'account')
redis.call('DEL', KEYS[1])
return account
`)

type challengeStore struct {
	client *redis.Client
	prefix string
}

// NewChallengeStore returns a Redis-backed implementation.
func NewChallengeStore(client *redis.Client) ChallengeStore {
	return &challengeStore{client: client, prefix: "otp"}
}

func (s *challengeStore) key(handle string) string {
	return s.prefix + ":" + handle
}

func (s *challengeStore) Put(ctx context.Context, challenge *domain.OTPChallenge) error {
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired at %s", challenge.ExpiresAt)
	}

	key := s.key(challenge.Handle)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":    challenge.Code,
		"account": challenge.AccountID,
		"exp":     challenge.ExpiresAt.UnixMilli(),
	})
	pipe.PExpire(ctx, key, ttl+expiryGrace)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store challenge record: %w", err)
	}
	return nil
}

func (s *challengeStore) GetAndDeleteOnMatch(ctx context.Context, handle, code string) (string, error) {
	result, err := consumeChallengeLua.Run(ctx, s.client,
		[]string{s.key(handle)},
		code,
		time.Now().UnixMilli(),
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return "", domain.ErrChallengeNotFound
		case "expired":
			return "", domain.ErrChallengeExpired
		case "mismatch":
			return "", domain.ErrChallengeMismatch
		default:
			return "", fmt.Errorf("consume challenge record: %w", err)
		}
	}

	accountID, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("consume challenge record: unexpected result type %T", result)
	}
	return accountID, nil
}

func (s *challengeStore) GetForRetry(ctx context.Context, handle string) (*domain.OTPChallenge, error) {
	fields, err := s.client.HGetAll(ctx, s.key(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch challenge record: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrChallengeNotFound
	}

	expMillis, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode challenge expiry: %w", err)
	}

	return &domain.OTPChallenge{
		Handle:    handle,
		Code:      fields["code"],
		AccountID: fields["account"],
		ExpiresAt: time.UnixMilli(expMillis),
	}, nil
}
