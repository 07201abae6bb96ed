package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/logging"
)

// DefaultTTL is used when Options.TTL is unset.
const DefaultTTL = 10 * time.Minute

var (
	// ErrCacheMiss indicates the requested page was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Options configures a Store.
type Options struct {
	// TTL is how long a cached page stays valid (default: DefaultTTL).
	TTL time.Duration

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Store reads and writes cached pages in Redis.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a store backed by redisClient.
func New(redisClient *redis.Client, opts Options) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	logger := logging.NewLogger(logging.ComponentStore)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Store{
		redis:  redisClient,
		ttl:    opts.TTL,
		logger: logger,
	}
}

// TTL returns the lifetime of newly written entries.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get retrieves a cached page.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
func (s *Store) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(opGet).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(opGet).Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = s.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return &entry, nil
}

// Set stores entry and records its key in the list index.
func (s *Store) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		// already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(opSet).Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	index := IndexKey(key.List)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key.String(), data, ttl)
		pipe.SAdd(ctx, index, key.String())
		pipe.Expire(ctx, index, s.ttl)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues(opSet).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cached page.
func (s *Store) Delete(ctx context.Context, key Key) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key.String())
		pipe.SRem(ctx, IndexKey(key.List), key.String())
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues(opDelete).Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Prune removes every cached page of list except the first one and returns
// how many keys it removed.
func (s *Store) Prune(ctx context.Context, list string) (int, error) {
	index := IndexKey(list)
	first := Key{List: list}.String()

	members, err := s.redis.SMembers(ctx, index).Result()
	if err != nil {
		CacheErrors.WithLabelValues(opPrune).Inc()
		return 0, fmt.Errorf("redis smembers: %w", err)
	}

	stale := make([]string, 0, len(members))
	for _, member := range members {
		if member != first {
			stale = append(stale, member)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	staleMembers := make([]interface{}, len(stale))
	for i, key := range stale {
		staleMembers[i] = key
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stale...)
		pipe.SRem(ctx, index, staleMembers...)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues(opPrune).Inc()
		return 0, fmt.Errorf("redis prune: %w", err)
	}

	PrunedKeys.Add(float64(len(stale)))
	s.logger.Debug().
		Str("list", list).
		Int("keys", len(stale)).
		Msg("Pruned stale pages")

	return len(stale), nil
}
