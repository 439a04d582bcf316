package middleware

import (
	"net/http"

	"github.com/frahmantamala/asset-management/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

// RequestLogger binds the chi request id to the context logger so every log
// line of one request can be joined. It runs after middleware.RequestID.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set(middleware.RequestIDHeader, reqID)
		}
		ctx := logger.With(r.Context(), "request_id", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
