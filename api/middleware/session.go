package middleware

import (
	"net/http"
	"strings"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/undo"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

// Session binds the caller's undo session to the request context. Requests
// without the header still work; they just have no undo history.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := undo.ContextWithSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
