package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/iho/splitledger/internal/domain"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"

	// ReplayHeader marks a response served from a stored idempotency record.
	ReplayHeader = "X-Idempotency-Replay"

	idempotencyContextKey ContextKey = "idempotency_key"

	maxIdempotentBody = 1 << 20
)

// IdempotencyKey derives a request key from the Idempotency-Key header, the
// caller and the request body. It only stores the key in the context; the
// handler decides how to run the guarded write. Requests without the header
// pass through untouched. Must run after AuthMiddleware.
func IdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(IdempotencyKeyHeader)
		if token == "" || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			unauthorized(w, "idempotent requests require authentication")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		key, err := domain.NewIdempotencyKey(r.Method+" "+r.URL.Path, principal.UserID, token, body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid idempotency key", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdempotencyKey(r.Context(), key)))
	})
}

// WithIdempotencyKey stores key in ctx.
func WithIdempotencyKey(ctx context.Context, key domain.IdempotencyKey) context.Context {
	return context.WithValue(ctx, idempotencyContextKey, key)
}

// IdempotencyKeyFromContext returns the request's key, or the zero key.
func IdempotencyKeyFromContext(ctx context.Context) domain.IdempotencyKey {
	key, _ := ctx.Value(idempotencyContextKey).(domain.IdempotencyKey)
	return key
}
