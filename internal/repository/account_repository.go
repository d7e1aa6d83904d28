package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// AccountRepository defines persistence access for accounts. The auth
// service only reads accounts and requests narrow updates; full account
// management lives elsewhere.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, name, email, phone, password_hash, role, active, deleted, email_verified, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, email, phone, password_hash, role, active, deleted, email_verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.Role,
		account.Active,
		account.Deleted,
		account.EmailVerified,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	return translateAccountError(err)
}

// translateAccountError maps the accounts unique index violation onto
// the domain error. Two registrations can race past the pre-insert
// email check; the index is the authoritative guard.
func translateAccountError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrEmailAlreadyTaken
	}
	return err
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT ` + accountColumns + `
        FROM accounts WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT ` + accountColumns + `
        FROM accounts WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `
        UPDATE accounts SET password_hash=$1, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, hash, id)
}

func (r *accountRepository) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	const query = `
        UPDATE accounts SET email_verified=$1, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, verified, id)
}

func (r *accountRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `
        UPDATE accounts SET active=$1, updated_at=NOW()
        WHERE id=$2`
	return r.exec(ctx, query, active, id)
}

func (r *accountRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.Deleted,
		&account.EmailVerified,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
