package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/signed-url-shortener/internal/database"
)

const defaultScanCount = 100

// URLRepository stores signed URL envelopes under the url namespace.
type URLRepository struct {
	client    redis.Cmdable
	scanCount int64
}

func NewURLRepository(client redis.Cmdable, scanCount int) *URLRepository {
	if scanCount <= 0 {
		scanCount = defaultScanCount
	}

	return &URLRepository{
		client:    client,
		scanCount: int64(scanCount),
	}
}

func (r *URLRepository) Put(ctx context.Context, token string, envelope []byte) error {
	const op = "database.redis.URLRepository.Put"

	key := database.NamespaceURL.Key(token).String()

	if err := r.client.Set(ctx, key, envelope, 0).Err(); err != nil {
		return fmt.Errorf("%s: failed to set url record: %w", op, err)
	}

	return nil
}

func (r *URLRepository) Get(ctx context.Context, token string) ([]byte, error) {
	const op = "database.redis.URLRepository.Get"

	key := database.NamespaceURL.Key(token).String()

	envelope, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return envelope, nil
}

// ListTokens walks the url namespace with SCAN. Keys written while the walk
// is in progress may or may not be included.
func (r *URLRepository) ListTokens(ctx context.Context) ([]string, error) {
	const op = "database.redis.URLRepository.ListTokens"

	tokens := make([]string, 0)
	seen := make(map[string]struct{})

	iter := r.client.Scan(ctx, 0, database.NamespaceURL.Pattern(), r.scanCount).Iterator()
	for iter.Next(ctx) {
		key, err := database.ParseKey(iter.Val())
		if err != nil || key.Namespace != database.NamespaceURL {
			continue
		}

		// SCAN may return a key more than once.
		if _, ok := seen[key.ID]; ok {
			continue
		}
		seen[key.ID] = struct{}{}

		tokens = append(tokens, key.ID)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to scan url records: %w", op, err)
	}

	return tokens, nil
}

// StatsRepository keeps per-token visitor counters as hashes under the
// stats namespace.
type StatsRepository struct {
	client redis.Cmdable
}

func NewStatsRepository(client redis.Cmdable) *StatsRepository {
	return &StatsRepository{
		client: client,
	}
}

func (r *StatsRepository) Increment(ctx context.Context, token, identity string) error {
	const op = "database.redis.StatsRepository.Increment"

	key := database.NamespaceStats.Key(token).String()

	if err := r.client.HIncrBy(ctx, key, identity, 1).Err(); err != nil {
		return fmt.Errorf("%s: failed to increment counter: %w", op, err)
	}

	return nil
}

func (r *StatsRepository) Get(ctx context.Context, token string) (map[string]int64, error) {
	const op = "database.redis.StatsRepository.Get"

	key := database.NamespaceStats.Key(token).String()

	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get counters: %w", op, err)
	}

	stats := make(map[string]int64, len(raw))
	for identity, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid counter for %q: %w", op, identity, err)
		}
		stats[identity] = n
	}

	return stats, nil
}
