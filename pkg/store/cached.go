package store

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/pagetracker/pkg/pagination"
	"github.com/Sternrassler/pagetracker/pkg/tracker"
)

// Cached wraps fetch with a read-through page cache for list. Forced
// refreshes skip the read and overwrite the cached page. Cache failures
// are logged and fall back to fetch; they never fail a page load. An
// exhausted list yields an empty final page without touching the cache,
// since the empty cursor also keys the first page.
func Cached[T any, C any](s *Store, list string, fetch tracker.FetchFunc[T, C]) tracker.FetchFunc[T, C] {
	return func(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error) {
		if pc.Exhausted() {
			return pagination.NewPage[T](nil, ""), nil
		}

		key := Key{List: list, Cursor: pc.NextCursor()}

		if !pc.ForceRefresh() {
			if page, ok := lookupPage[T](ctx, s, key); ok {
				return page, nil
			}
		}

		page, err := fetch(ctx, pc)
		if err != nil {
			return page, err
		}

		writePage(ctx, s, key, page)
		return page, nil
	}
}

func lookupPage[T any](ctx context.Context, s *Store, key Key) (pagination.Page[T], bool) {
	entry, err := s.Get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		return pagination.Page[T]{}, false
	case err != nil:
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Page cache unavailable, fetching from backend")
		return pagination.Page[T]{}, false
	}

	page, err := pagination.DecodePage[T](entry.Data, pagination.JSONAPI)
	if err != nil {
		CacheErrors.WithLabelValues(opDecode).Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Discarding undecodable cached page")
		return pagination.Page[T]{}, false
	}

	s.logger.Debug().
		Str("key", key.String()).
		Int("items", page.Len()).
		Time("cached_at", entry.CachedAt).
		Msg("Serving page from cache")
	return page, true
}

func writePage[T any](ctx context.Context, s *Store, key Key, page pagination.Page[T]) {
	data, err := pagination.EncodePage(page, pagination.JSONAPI)
	if err != nil {
		CacheErrors.WithLabelValues(opEncode).Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to encode page for cache")
		return
	}

	now := time.Now()
	entry := &Entry{
		Data:     data,
		Items:    page.Len(),
		Expires:  now.Add(s.ttl),
		CachedAt: now,
	}
	if err := s.Set(ctx, key, entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache page")
	}
}
