package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   15,
		RefreshTokenTTLDays:     30,
		PasswordResetTTLMinutes: 30,
		VerifyEmailTTLMinutes:   60,
		OTPTTLMinutes:           10,
		OTPDigits:               6,
		BcryptCost:              bcrypt.MinCost,
	}
}

// fakeAccountRepo is an in-memory AccountRepository for flow tests.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return domain.ErrEmailAlreadyTaken
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = hash
	return nil
}

func (r *fakeAccountRepo) SetEmailVerified(_ context.Context, id string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.EmailVerified = verified
	return nil
}

func (r *fakeAccountRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Active = active
	return nil
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) lastOfType(eventType events.EventType) (events.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].Type == eventType {
			return d.events[i], true
		}
	}
	return events.Event{}, false
}

type testEnv struct {
	mr         *miniredis.Miniredis
	accounts   *fakeAccountRepo
	store      repository.TokenStore
	challenges repository.ChallengeStore
	tokens     *TokenService
	otp        *OTPService
	vault      *auth.PasswordVault
	dispatcher *recordingDispatcher
	auth       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testAuthConfig()
	accounts := newFakeAccountRepo()
	store := repository.NewTokenStore(client)
	challenges := repository.NewChallengeStore(client)
	metrics := observability.NewMetrics()
	dispatcher := &recordingDispatcher{}

	tokens := NewTokenService(cfg, store, accounts, metrics)
	otp := NewOTPService(cfg, challenges, metrics)
	vault := auth.NewPasswordVault(cfg.BcryptCost)

	authService := NewAuthService(AuthDependencies{
		AccountRepo: accounts,
		Tokens:      tokens,
		OTP:         otp,
		Vault:       vault,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})

	return &testEnv{
		mr:         mr,
		accounts:   accounts,
		store:      store,
		challenges: challenges,
		tokens:     tokens,
		otp:        otp,
		vault:      vault,
		dispatcher: dispatcher,
		auth:       authService,
	}
}

func (e *testEnv) seedAccount(t *testing.T, email, password string) *domain.Account {
	t.Helper()

	hash, err := e.vault.Hash(password)
	require.NoError(t, err)

	account := &domain.Account{
		Name:         "Test Account",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RolePartner,
		Active:       true,
	}
	require.NoError(t, e.accounts.Create(context.Background(), account))
	return account
}
