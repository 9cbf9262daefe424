// Package config manages application configuration for the Tempo API.
//
// Configuration is loaded from environment variables with development
// defaults, then checked with Validate before the server starts:
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS origins)
//   - DatabaseConfig: SurrealDB connection settings
//   - RedisConfig: Redis connection for cache, rate limiting, idempotency
//   - CacheConfig: event listing cache TTL
//   - JWTConfig: JWT signing and validation settings
//   - GoogleCalendarConfig: OAuth credentials for calendar sync
//   - OutboxConfig: calendar sync outbox processor settings
//   - RateLimitConfig / IdempotencyConfig: request protection settings
//
// Redis and Google Calendar are optional: leaving REDIS_ADDR empty
// disables the cache, rate limiter, and idempotency store; leaving the
// Google credentials empty disables external calendar sync. The booking
// core runs without either.
package config
