package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const emailAccountColumns = `id, email, display_name, provider, is_active, is_default,
        poll_enabled, last_polled_at, created_at, updated_at`

// EmailAccountRepository manages mailbox accounts the intake pipeline polls.
type EmailAccountRepository interface {
	Create(ctx context.Context, account *domain.EmailAccount) error
	GetByID(ctx context.Context, id string) (*domain.EmailAccount, error)
	// GetDefault returns the default active account, falling back to any
	// active account when none is marked default.
	GetDefault(ctx context.Context) (*domain.EmailAccount, error)
	ListPollable(ctx context.Context) ([]domain.EmailAccount, error)
	UpdateLastPolled(ctx context.Context, id string, at time.Time) error
}

type emailAccountRepository struct {
	pool *pgxpool.Pool
}

// NewEmailAccountRepository instantiates repository.
func NewEmailAccountRepository(pool *pgxpool.Pool) EmailAccountRepository {
	return &emailAccountRepository{pool: pool}
}

func (r *emailAccountRepository) Create(ctx context.Context, account *domain.EmailAccount) error {
	const query = `
        INSERT INTO email_accounts (email, display_name, provider, is_active, is_default, poll_enabled)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.Email,
		account.DisplayName,
		account.Provider,
		account.IsActive,
		account.IsDefault,
		account.PollEnabled,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *emailAccountRepository) GetByID(ctx context.Context, id string) (*domain.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_accounts WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *emailAccountRepository) GetDefault(ctx context.Context) (*domain.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_accounts
        WHERE is_active=true
        ORDER BY is_default DESC, created_at ASC
        LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query))
}

func (r *emailAccountRepository) ListPollable(ctx context.Context) ([]domain.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_accounts
        WHERE is_active=true AND poll_enabled=true
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []domain.EmailAccount
	for rows.Next() {
		var account domain.EmailAccount
		if err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.DisplayName,
			&account.Provider,
			&account.IsActive,
			&account.IsDefault,
			&account.PollEnabled,
			&account.LastPolledAt,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *emailAccountRepository) UpdateLastPolled(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE email_accounts SET last_polled_at=$2, updated_at=now() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *emailAccountRepository) scanOne(row pgx.Row) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.Provider,
		&account.IsActive,
		&account.IsDefault,
		&account.PollEnabled,
		&account.LastPolledAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
