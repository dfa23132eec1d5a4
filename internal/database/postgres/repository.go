package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/signed-url-shortener/internal/database"
)

// URLRepository stores signed URL envelopes as rows of kv_entries in the url
// namespace.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Put(ctx context.Context, token string, envelope []byte) error {
	const op = "database.postgres.URLRepository.Put"

	query := `INSERT INTO kv_entries(namespace, id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, string(database.NamespaceURL), token, string(envelope))
	if err != nil {
		return fmt.Errorf("%s: failed to put url record: %w", op, err)
	}

	return nil
}

func (r *URLRepository) Get(ctx context.Context, token string) ([]byte, error) {
	const op = "database.postgres.URLRepository.Get"

	var value string
	query := `SELECT value FROM kv_entries WHERE namespace = $1 AND id = $2`

	err := r.db.GetContext(ctx, &value, query, string(database.NamespaceURL), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return []byte(value), nil
}

func (r *URLRepository) ListTokens(ctx context.Context) ([]string, error) {
	const op = "database.postgres.URLRepository.ListTokens"

	tokens := make([]string, 0)
	query := `SELECT id FROM kv_entries WHERE namespace = $1`

	if err := r.db.SelectContext(ctx, &tokens, query, string(database.NamespaceURL)); err != nil {
		return nil, fmt.Errorf("%s: failed to list url records: %w", op, err)
	}

	return tokens, nil
}

// StatsRepository keeps per-token visitor counters as rows of kv_counters in
// the stats namespace.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{
		db: db,
	}
}

func (r *StatsRepository) Increment(ctx context.Context, token, identity string) error {
	const op = "database.postgres.StatsRepository.Increment"

	query := `INSERT INTO kv_counters(namespace, id, field, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (namespace, id, field)
		DO UPDATE SET count = kv_counters.count + 1`

	_, err := r.db.ExecContext(ctx, query, string(database.NamespaceStats), token, identity)
	if err != nil {
		return fmt.Errorf("%s: failed to increment counter: %w", op, err)
	}

	return nil
}

type counterRecord struct {
	Field string `db:"field"`
	Count int64  `db:"count"`
}

func (r *StatsRepository) Get(ctx context.Context, token string) (map[string]int64, error) {
	const op = "database.postgres.StatsRepository.Get"

	var recs []counterRecord
	query := `SELECT field, count FROM kv_counters WHERE namespace = $1 AND id = $2`

	if err := r.db.SelectContext(ctx, &recs, query, string(database.NamespaceStats), token); err != nil {
		return nil, fmt.Errorf("%s: failed to get counters: %w", op, err)
	}

	stats := make(map[string]int64, len(recs))
	for _, rec := range recs {
		stats[rec.Field] = rec.Count
	}

	return stats, nil
}
