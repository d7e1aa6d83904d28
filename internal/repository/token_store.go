package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/auth-service/internal/domain"
)

// TokenStore is durable keyed storage for issued tokens. Single-use
// consumption relies on GetAndDeleteIfPresent being atomic: two
// concurrent consumers of the same value see exactly one record.
type TokenStore interface {
	Put(ctx context.Context, token *domain.SessionToken) error
	GetAndDeleteIfPresent(ctx context.Context, value string, kind domain.TokenKind) (*domain.SessionToken, error)
	DeleteIfPresent(ctx context.Context, value string, kind domain.TokenKind) (bool, error)
	DeleteAllForAccount(ctx context.Context, accountID string, kind domain.TokenKind) (int, error)
}

// expiryGrace keeps records in Redis past their logical expiry. The
// consume scripts compare against the stored expiry themselves; if the
// key vanished exactly at the deadline, an expired credential would be
// indistinguishable from one that never existed.
const expiryGrace = time.Minute

// putTokenLua stores the record and tracks its value in the per-account
// index set, stretching the index TTL to cover the newest record.
var putTokenLua = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
local idxTTL = redis.call('PTTL', KEYS[2])
if idxTTL < tonumber(ARGV[2]) then
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

// consumeTokenLua is the atomic delete-and-return-previous-value
// primitive. The record is gone before the caller ever sees it, so a
// racing duplicate consumer finds nothing. Index cleanup happens after
// the fact; a stale index member only points at an already-deleted key.
var consumeTokenLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return false
end
redis.call('DEL', KEYS[1])
return data
`)

// revokeAllLua deletes every live record tracked for an account+kind.
var revokeAllLua = redis.NewScript(`
local values = redis.call('SMEMBERS', KEYS[1])
for _, v in ipairs(values) do
  redis.call('DEL', ARGV[1] .. v)
end
redis.call('DEL', KEYS[1])
return #values
`)

type tokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore returns a Redis-backed implementation.
func NewTokenStore(client *redis.Client) TokenStore {
	return &tokenStore{client: client, prefix: "tok"}
}

func (s *tokenStore) recordKey(kind domain.TokenKind, value string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, value)
}

func (s *tokenStore) recordKeyPrefix(kind domain.TokenKind) string {
	return fmt.Sprintf("%s:%s:", s.prefix, kind)
}

func (s *tokenStore) indexKey(kind domain.TokenKind, accountID string) string {
	return fmt.Sprintf("%s:idx:%s:%s", s.prefix, kind, accountID)
}

func (s *tokenStore) Put(ctx context.Context, token *domain.SessionToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired at %s", token.ExpiresAt)
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token record: %w", err)
	}

	keys := []string{
		s.recordKey(token.Kind, token.Value),
		s.indexKey(token.Kind, token.AccountID),
	}
	if err := putTokenLua.Run(ctx, s.client, keys, payload, (ttl + expiryGrace).Milliseconds(), token.Value).Err(); err != nil {
		return fmt.Errorf("store token record: %w", err)
	}
	return nil
}

func (s *tokenStore) GetAndDeleteIfPresent(ctx context.Context, value string, kind domain.TokenKind) (*domain.SessionToken, error) {
	result, err := consumeTokenLua.Run(ctx, s.client, []string{s.recordKey(kind, value)}).Result()
	if err == redis.Nil {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume token record: %w", err)
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("consume token record: unexpected result type %T", result)
	}

	var token domain.SessionToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("decode token record: %w", err)
	}
	token.Value = value

	// The record itself is already gone; trim the index entry now that
	// the owning account is known.
	_ = s.client.SRem(ctx, s.indexKey(kind, token.AccountID), value).Err()

	return &token, nil
}

func (s *tokenStore) DeleteIfPresent(ctx context.Context, value string, kind domain.TokenKind) (bool, error) {
	token, err := s.GetAndDeleteIfPresent(ctx, value, kind)
	if err == domain.ErrTokenNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

func (s *tokenStore) DeleteAllForAccount(ctx context.Context, accountID string, kind domain.TokenKind) (int, error) {
	count, err := revokeAllLua.Run(ctx, s.client,
		[]string{s.indexKey(kind, accountID)},
		s.recordKeyPrefix(kind),
	).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("revoke tokens for account: %w", err)
	}
	return count, nil
}
