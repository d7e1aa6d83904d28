package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func testChallenge(handle, code, accountID string, ttl time.Duration) *domain.OTPChallenge {
	return &domain.OTPChallenge{
		Handle:    handle,
		Code:      code,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestChallengeStoreMatchConsumes(t *testing.T) {
	store := NewChallengeStore(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("h1", "482913", "acct-1", 10*time.Minute)))

	accountID, err := store.GetAndDeleteOnMatch(ctx, "h1", "482913")
	require.NoError(t, err)
	require.Equal(t, "acct-1", accountID)

	// Replay of the same pair fails deterministically.
	_, err = store.GetAndDeleteOnMatch(ctx, "h1", "482913")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestChallengeStoreMismatchRetains(t *testing.T) {
	store := NewChallengeStore(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("h1", "482913", "acct-1", 10*time.Minute)))

	_, err := store.GetAndDeleteOnMatch(ctx, "h1", "000000")
	require.ErrorIs(t, err, domain.ErrChallengeMismatch)

	// Retry with the correct code still succeeds.
	accountID, err := store.GetAndDeleteOnMatch(ctx, "h1", "482913")
	require.NoError(t, err)
	require.Equal(t, "acct-1", accountID)
}

func TestChallengeStoreExpiredEvenWithCorrectCode(t *testing.T) {
	mr, client := newTestRedisServer(t)
	store := NewChallengeStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("h1", "482913", "acct-1", time.Second)))

	// Cross the logical deadline on both clocks: the wall clock drives
	// the script's expiry comparison, the server clock drives key TTLs.
	// The record must survive the TTL deadline long enough to be
	// classified as expired rather than absent.
	time.Sleep(1100 * time.Millisecond)
	mr.FastForward(1100 * time.Millisecond)

	_, err := store.GetAndDeleteOnMatch(ctx, "h1", "482913")
	require.ErrorIs(t, err, domain.ErrChallengeExpired)

	// Expired records are deleted on sight.
	_, err = store.GetForRetry(ctx, "h1")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestChallengeStoreUnknownHandle(t *testing.T) {
	store := NewChallengeStore(newTestRedis(t))

	_, err := store.GetAndDeleteOnMatch(context.Background(), "missing", "123456")
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestChallengeStoreGetForRetry(t *testing.T) {
	store := NewChallengeStore(newTestRedis(t))
	ctx := context.Background()

	issued := testChallenge("h1", "482913", "acct-1", 10*time.Minute)
	require.NoError(t, store.Put(ctx, issued))

	got, err := store.GetForRetry(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, "482913", got.Code)
	require.Equal(t, "acct-1", got.AccountID)
	require.WithinDuration(t, issued.ExpiresAt, got.ExpiresAt, time.Second)

	// Non-destructive read.
	accountID, err := store.GetAndDeleteOnMatch(ctx, "h1", "482913")
	require.NoError(t, err)
	require.Equal(t, "acct-1", accountID)
}

func TestChallengeStoreConcurrentMatchSingleWinner(t *testing.T) {
	store := NewChallengeStore(newTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testChallenge("h-race", "482913", "acct-1", 10*time.Minute)))

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.GetAndDeleteOnMatch(ctx, "h-race", "482913")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	notFound := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case err == domain.ErrChallengeNotFound:
			notFound++
		default:
			t.Fatalf("unexpected verify error: %v", err)
		}
	}

	require.Equal(t, 1, success)
	require.Equal(t, n-1, notFound)
}
