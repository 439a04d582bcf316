package site

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/transport"
)

const (
	UnderConstructionURL = "/under-construction"
	loginURL             = "/account/login"
)

// maintenanceExempt are path prefixes served while the site is under
// construction, so the notice page keeps its styles and logo.
var maintenanceExempt = []string{"/static/", "/media/", "/health"}

// Middleware places the tenant for the request host in the context.
func Middleware(svc *Service, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := svc.Resolve(r.Context(), r.Host)
			if err != nil {
				base.RenderError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(internal.ContextWithTenant(r.Context(), tenant)))
		})
	}
}

// Maintenance sends everyone but superusers to the under-construction page
// while the site has it switched on. It runs after the principal is known.
func Maintenance() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !underConstruction(r) || maintenanceAllowed(r) {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, UnderConstructionURL, http.StatusFound)
		})
	}
}

func underConstruction(r *http.Request) bool {
	tenant, ok := internal.TenantFromContext(r.Context())
	return ok && tenant.Settings != nil && tenant.Settings.UnderConstruction
}

func maintenanceAllowed(r *http.Request) bool {
	if user, ok := internal.UserFromContext(r.Context()); ok && user.IsActive && user.IsSuperuser {
		return true
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == loginURL || path == UnderConstructionURL {
		return true
	}
	for _, prefix := range maintenanceExempt {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}
