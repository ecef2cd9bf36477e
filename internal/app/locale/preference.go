package locale

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// PreferenceRepository mirrors visitor language choices server-side so a
// cleared cookie can be restored from the visitor id.
type PreferenceRepository interface {
	EnsureSchema(ctx context.Context) error
	SavePreference(ctx context.Context, visitorID, code string) error
	FindPreference(ctx context.Context, visitorID string) (string, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createVisitorPreferencesSQL = `
CREATE TABLE IF NOT EXISTS visitor_preferences (
  visitor_id text PRIMARY KEY,
  locale text NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, createVisitorPreferencesSQL)
	return err
}

func (r *PostgresRepository) SavePreference(ctx context.Context, visitorID, code string) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO visitor_preferences (visitor_id, locale)
		 VALUES ($1, $2)
		 ON CONFLICT (visitor_id) DO UPDATE SET locale = EXCLUDED.locale, updated_at = now()`,
		visitorID, code,
	)
	return err
}

func (r *PostgresRepository) FindPreference(ctx context.Context, visitorID string) (string, error) {
	var code string
	err := r.Pool.QueryRow(ctx,
		`SELECT locale FROM visitor_preferences WHERE visitor_id = $1`,
		visitorID,
	).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return code, nil
}

// MemoryRepository is used when no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	prefs map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{prefs: make(map[string]string)}
}

func (r *MemoryRepository) EnsureSchema(context.Context) error { return nil }

func (r *MemoryRepository) SavePreference(_ context.Context, visitorID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[visitorID] = code
	return nil
}

func (r *MemoryRepository) FindPreference(_ context.Context, visitorID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.prefs[visitorID]
	if !ok {
		return "", ErrNotFound
	}
	return code, nil
}
