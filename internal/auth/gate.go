package auth

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/transport"
)

const (
	LoginURL  = "/account/login"
	PortalURL = "/assetdash/"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonNotStaff
	ReasonForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonNotStaff:
		return "not_staff"
	case ReasonForbidden:
		return "forbidden"
	default:
		return "none"
	}
}

type Decision struct {
	Allow      bool
	Reason     Reason
	Permission string
}

func Allow() Decision {
	return Decision{Allow: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Guard inspects a request and decides whether it may proceed.
type Guard func(r *http.Request) Decision

func Authenticated() Guard {
	return func(r *http.Request) Decision {
		user, ok := internal.UserFromContext(r.Context())
		if !ok || !user.IsActive {
			return Deny(ReasonUnauthenticated)
		}
		return Allow()
	}
}

func Staff() Guard {
	return func(r *http.Request) Decision {
		user, ok := internal.UserFromContext(r.Context())
		if !ok || !user.IsActive {
			return Deny(ReasonUnauthenticated)
		}
		if !user.IsStaffMember() {
			return Deny(ReasonNotStaff)
		}
		return Allow()
	}
}

// Superuser sends everyone else to the user portal, like Staff does.
func Superuser() Guard {
	return func(r *http.Request) Decision {
		user, ok := internal.UserFromContext(r.Context())
		if !ok || !user.IsActive {
			return Deny(ReasonUnauthenticated)
		}
		if !user.IsSuperuser {
			return Deny(ReasonNotStaff)
		}
		return Allow()
	}
}

func Can(codename string) Guard {
	return func(r *http.Request) Decision {
		user, ok := internal.UserFromContext(r.Context())
		if !ok || !user.IsActive {
			return Deny(ReasonUnauthenticated)
		}
		if !user.HasPermission(codename) {
			return Decision{Reason: ReasonForbidden, Permission: codename}
		}
		return Allow()
	}
}

// Gate turns guard decisions into responses.
type Gate struct {
	base   *transport.BaseHandler
	logger *slog.Logger
}

func NewGate(base *transport.BaseHandler) *Gate {
	return &Gate{base: base, logger: base.Logger}
}

// Chain evaluates guards in order; the first denial answers the request.
func (g *Gate) Chain(guards ...Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, guard := range guards {
				if d := guard(r); !d.Allow {
					g.deny(w, r, d)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Check wraps a single handler, for routes that pick a guard per method.
func (g *Gate) Check(next http.HandlerFunc, guards ...Guard) http.HandlerFunc {
	return g.Chain(guards...)(next).ServeHTTP
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, d Decision) {
	switch d.Reason {
	case ReasonUnauthenticated:
		g.base.Redirect(w, r, LoginRedirect(r.URL.RequestURI()))
	case ReasonNotStaff:
		g.base.Redirect(w, r, PortalURL)
	default:
		user, _ := internal.UserFromContext(r.Context())
		var userID interface{}
		if user != nil {
			userID = user.ID
		}
		g.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
			"user_id", userID,
			"required_permission", d.Permission,
			"path", r.URL.Path)
		g.base.RenderStatus(w, r, http.StatusForbidden)
	}
}

func LoginRedirect(next string) string {
	if next == "" {
		return LoginURL
	}
	return LoginURL + "?next=" + url.QueryEscape(next)
}
