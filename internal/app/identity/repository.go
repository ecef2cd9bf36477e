package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Account is a GitHub identity that has signed in at least once.
type Account struct {
	ID          string
	Login       string
	Name        string
	LastLoginAt time.Time
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	UpsertAccount(ctx context.Context, account Account) error
	FindAccount(ctx context.Context, id string) (Account, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createAccountsSQL = `
CREATE TABLE IF NOT EXISTS accounts (
  id text PRIMARY KEY,
  login text NOT NULL,
  name text NOT NULL DEFAULT '',
  last_login_at timestamptz NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now()
)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, createAccountsSQL)
	return err
}

func (r *PostgresRepository) UpsertAccount(ctx context.Context, account Account) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO accounts (id, login, name, last_login_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET login = EXCLUDED.login, name = EXCLUDED.name, last_login_at = EXCLUDED.last_login_at`,
		account.ID, account.Login, account.Name, account.LastLoginAt,
	)
	return err
}

func (r *PostgresRepository) FindAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := r.Pool.QueryRow(ctx,
		`SELECT id, login, name, last_login_at FROM accounts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Login, &a.Name, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// MemoryRepository is used when no database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]Account)}
}

func (r *MemoryRepository) EnsureSchema(context.Context) error { return nil }

func (r *MemoryRepository) UpsertAccount(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

func (r *MemoryRepository) FindAccount(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}
