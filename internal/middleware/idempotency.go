package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempohq/tempo/api/internal/model"
)

// inFlightMarker is stored while the first request with a key is still
// processing. Claims expire on their own in case the processing instance
// dies before writing the result.
const inFlightMarker = "in_flight"

const inFlightTTL = time.Minute

// IdempotencyStore keeps replayable responses in Redis, shared across API
// instances. A key is claimed atomically before processing; concurrent
// requests with the same key are rejected instead of executed twice.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL time.Duration // How long to keep results (default 24h)
}

// NewIdempotencyStore creates a new idempotency store on the shared Redis
// client.
func NewIdempotencyStore(client *redis.Client, cfg IdempotencyConfig, logger *slog.Logger) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &IdempotencyStore{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

// storedResponse is the cached outcome of an idempotent request.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// claim tries to take ownership of the key. Returns the previously stored
// response when one exists, and inFlight when another request holds the
// claim.
func (s *IdempotencyStore) claim(ctx context.Context, key string) (stored *storedResponse, inFlight bool, err error) {
	ok, err := s.client.SetNX(ctx, key, inFlightMarker, inFlightTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, false, nil
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Claim expired between SETNX and GET; treat as in flight.
			return nil, true, nil
		}
		return nil, false, err
	}
	if raw == inFlightMarker {
		return nil, true, nil
	}

	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false, err
	}
	return &resp, false, nil
}

func (s *IdempotencyStore) store(ctx context.Context, key string, resp *storedResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to store idempotency result", "error", err)
	}
}

func (s *IdempotencyStore) release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("failed to release idempotency claim", "error", err)
	}
}

// fingerprint builds the storage key from user, idempotency key, and the
// request itself, so reusing a key with a different body is a distinct
// request rather than a replay.
func fingerprint(userID, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte(idempotencyKey))
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return "idem:" + hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency returns middleware that handles Idempotency-Key headers for
// POST and PATCH requests. Replays return the original response with
// X-Idempotency-Replayed set; a concurrent duplicate is rejected with 409.
// Redis failures degrade to processing the request without idempotency.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			if userID == "" {
				userID = r.RemoteAddr
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := fingerprint(userID, idempotencyKey, r.Method, r.URL.Path, body)

			stored, inFlight, err := store.claim(r.Context(), key)
			if err != nil {
				store.logger.Warn("idempotency store unavailable, processing without replay protection", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if stored != nil {
				w.Header().Set("Content-Type", stored.ContentType)
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}
			if inFlight {
				model.NewConflictingRequestError("a request with this idempotency key is already in progress").WriteJSON(w)
				return
			}

			irw := &idempotencyResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(irw, r)

			// Server errors are not replayable; drop the claim so the
			// client can retry.
			if irw.status >= http.StatusInternalServerError {
				store.release(r.Context(), key)
				return
			}

			store.store(r.Context(), key, &storedResponse{
				Status:      irw.status,
				ContentType: irw.Header().Get("Content-Type"),
				Body:        irw.body.Bytes(),
			})
		})
	}
}
