package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asset-management/internal/assetdash"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/dashboard"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/site"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/middleware"
	"github.com/frahmantamala/asset-management/internal/transport/swagger"
	"github.com/frahmantamala/asset-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Mounter registers the pages of one administered entity.
type Mounter func(r chi.Router, gate *auth.Gate)

type Handlers struct {
	Base      *transport.BaseHandler
	Health    *HealthHandler
	Sessions  *session.Manager
	Principal auth.ServiceAPI
	Sites     *site.Service
	Auth      *auth.Handler
	Users     *user.Handler
	Audit     *audit.Handler
	Settings  *site.Handler
	Dashboard *dashboard.Handler
	Portal    *assetdash.Handler
	Entities  []Mounter
	// Media serves locally stored uploads; nil when files live elsewhere.
	Media http.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	gate := auth.NewGate(h.Base)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestLogger)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(h.Base, logger))

	router.Get("/openapi.yml", swagger.Document)
	router.Handle("/swagger/*", swagger.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)
	})
	if h.Media != nil {
		router.Handle("/media/*", http.StripPrefix("/media/", h.Media))
	}

	router.Group(func(r chi.Router) {
		r.Use(h.Sessions.Middleware)
		r.Use(auth.PrincipalMiddleware(h.Principal, logger))
		r.Use(site.Middleware(h.Sites, h.Base))
		r.Use(site.Maintenance())

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, auth.PortalURL, http.StatusFound)
		})
		r.Get(site.UnderConstructionURL, h.Settings.UnderConstruction)

		r.Route("/account", func(r chi.Router) {
			h.Auth.Routes(r, gate)
			h.Users.Routes(r, gate)
			r.With(gate.Chain(auth.Staff())).Get("/user-logs", h.Audit.List)
		})
		r.Route("/settings", func(r chi.Router) {
			h.Settings.Routes(r, gate)
		})
		r.Route("/dashboard", func(r chi.Router) {
			h.Dashboard.Routes(r, gate)
		})
		r.Route("/assetdash", func(r chi.Router) {
			h.Portal.Routes(r, gate)
		})

		h.Users.Mount(r, gate)
		for _, mount := range h.Entities {
			mount(r, gate)
		}
	})
}
