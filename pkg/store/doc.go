// Package store caches pages in Redis so a tracker can serve previously
// loaded pages without hitting the backend again.
//
// Pages of one list are stored under deterministic keys derived from the
// list name and the cursor that requested them, plus an index set listing
// every key written for the list:
//
//	pagetracker:<list>:page:first
//	pagetracker:<list>:page:<cursor>
//	pagetracker:<list>:index
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := store.New(redisClient, store.Options{TTL: 10 * time.Minute})
//
//	// wrap any fetch function
//	fetch := store.Cached(s, "orders", httpFetch)
//	t := tracker.New(fetch, filter, presenter, tracker.DefaultConfig())
//
//	// or bind a repository, which also prunes the list on forced refresh
//	repo := store.NewRepository(s, "orders", httpFetch, filter)
//	t := tracker.NewFromRepository[Order, Filter](repo, presenter, tracker.DefaultConfig())
//
// A forced refresh never reads from the cache; it overwrites the cached
// first page and, through Repository.Prune, drops every other cached page
// of the list so a later scroll reloads them from the backend.
//
// # Metrics
//
//   - pagetracker_cache_hits_total - Pages served from Redis
//   - pagetracker_cache_misses_total - Lookups that fell through to the backend
//   - pagetracker_cache_errors_total{operation} - Redis or codec failures
//   - pagetracker_cache_pruned_keys_total - Keys removed by Prune
package store
