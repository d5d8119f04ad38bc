package middleware

import (
	"net/http"
	"strings"

	"github.com/Reymilan15/milos-cuentas/internal/auth"
	"github.com/Reymilan15/milos-cuentas/internal/handler"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

// Auth requires a valid bearer token. Websocket upgrades may pass it as the
// access_token query parameter since browsers cannot set headers there.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, appErr := bearerToken(r)
			if appErr != nil {
				handler.RespondAppError(w, appErr, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.With(ctx, "user_id", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, *handler.AppError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if isWebsocketUpgrade(r) {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, nil
			}
		}
		return "", handler.ErrMissingToken
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", handler.ErrInvalidToken
	}
	return token, nil
}

func isWebsocketUpgrade(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
