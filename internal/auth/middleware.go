package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/session"
)

// PrincipalMiddleware resolves the session's user and places it in the
// request context. Anonymous requests pass through untouched.
func PrincipalMiddleware(svc ServiceAPI, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s == nil || !s.IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := svc.Principal(r.Context(), *s.UserID)
			if err != nil {
				logger.ErrorContext(r.Context(), "principal middleware: failed to load user", "user_id", s.UserID, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := internal.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
