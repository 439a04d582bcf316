package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/frahmantamala/asset-management/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger   *slog.Logger
	Renderer *web.Renderer
}

// NewBaseHandler creates a base handler with logger and page renderer
func NewBaseHandler(lg *slog.Logger, renderer *web.Renderer) *BaseHandler {
	if lg == nil {
		lg = logger.L()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg, Renderer: renderer}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := map[string]interface{}{
		"code":    status,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// Render fills the request-scoped parts of page and writes the named template.
func (h *BaseHandler) Render(w http.ResponseWriter, r *http.Request, status int, name string, page *web.Page) {
	ctx := r.Context()
	if user, ok := internal.UserFromContext(ctx); ok {
		page.User = user
	}
	if tenant, ok := internal.TenantFromContext(ctx); ok {
		page.Tenant = tenant
	}
	page.Flashes = append(page.Flashes, session.PopFlashes(ctx)...)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if h.Renderer == nil {
		h.Logger.ErrorContext(ctx, "render: no renderer configured", "template", name)
		return
	}
	if err := h.Renderer.Render(w, name, page); err != nil {
		h.Logger.ErrorContext(ctx, "render: failed to execute template", "template", name, "error", err)
	}
}

var errorPages = map[int]struct{ title, message string }{
	http.StatusBadRequest:          {"Error 400 – Bad Request", "You've sent a bad request."},
	http.StatusForbidden:           {"Error 403 – Forbidden", "You don’t have permission to access this url on this server."},
	http.StatusNotFound:            {"Error 404 – Page Not Found", "The page you requested was not found."},
	http.StatusInternalServerError: {"Error 500 – Server Error", "Oops, something went wrong."},
}

// RenderStatus renders the generic error page for status.
func (h *BaseHandler) RenderStatus(w http.ResponseWriter, r *http.Request, status int) {
	p, ok := errorPages[status]
	if !ok {
		p = errorPages[http.StatusInternalServerError]
	}
	h.Render(w, r, status, "message", &web.Page{Title: p.title, Status: status, Message: p.message})
}

// RenderError maps err onto an error page. Only application errors choose
// their status; anything else is logged and shown as a server error.
func (h *BaseHandler) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		switch appErr.Type {
		case internal.ErrorTypeNotFound:
			h.RenderStatus(w, r, http.StatusNotFound)
			return
		case internal.ErrorTypeForbidden:
			h.RenderStatus(w, r, http.StatusForbidden)
			return
		case internal.ErrorTypeValidation:
			h.RenderStatus(w, r, http.StatusBadRequest)
			return
		}
	}
	h.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	h.RenderStatus(w, r, http.StatusInternalServerError)
}

func (h *BaseHandler) Flash(r *http.Request, level, message string) {
	session.AddFlash(r.Context(), level, message)
}

func (h *BaseHandler) Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusFound)
}

// AbsoluteURL joins path onto base, or onto the request host when no base is configured.
func AbsoluteURL(r *http.Request, base, path string) string {
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimSuffix(base, "/") + path
}
