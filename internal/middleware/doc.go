// Package middleware provides HTTP middleware for the Tempo API.
//
// # Available Middleware
//
//   - Auth: JWT token validation and user extraction
//   - RateLimit: Redis-backed token bucket per user/IP
//   - Idempotency: replay protection for POST/PATCH via Idempotency-Key
//   - RequestID, Logger, Recovery, CORS, Compress: request plumbing
//
// # Context Values
//
// Middleware sets context values accessible via helper functions:
//
//   - GetUserID(ctx): authenticated user ID
//   - GetUserEmail(ctx): authenticated user email
//   - GetRequestID(ctx): unique request identifier
//
// The Redis-backed middleware fails open: when Redis is unreachable,
// requests proceed without limiting or replay protection rather than being
// rejected.
package middleware
