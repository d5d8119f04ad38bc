package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/handler"
)

const traceIDHeader = handler.RequestIDHeader

const maxTraceIDLen = 128

type traceIDKey struct{}

// Tracing propagates the caller's X-Request-ID or mints one. The id is echoed
// in the response header and in error envelopes.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if !validTraceID(traceID) {
			traceID = uuid.New().String()
		}

		w.Header().Set(traceIDHeader, traceID)
		ctx := context.WithValue(r.Context(), traceIDKey{}, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validTraceID accepts bounded ids made of letters, digits and - _ . : so
// they can be logged as is.
func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey{}).(string); ok {
		return id
	}
	return ""
}
