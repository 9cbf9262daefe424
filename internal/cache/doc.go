// Package cache provides the Redis-backed read cache for event listings.
//
// Keys are namespaced per creator behind a version counter: every cached
// listing key embeds the creator's current version, and invalidation bumps
// the counter, which orphans every cached variant for that creator at once
// regardless of which query parameters produced it. Orphaned entries age out
// via TTL.
//
// The cache is an optimization, never an authority. Every operation degrades
// to a miss or a no-op on Redis failure; callers must not treat cache errors
// as fatal.
package cache
