package dashboard

import (
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(base *transport.BaseHandler, svc *Service) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

type IndexData struct {
	Counts []Count
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Service.Counts(r.Context())
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	h.Render(w, r, http.StatusOK, "dashboard", &web.Page{
		Title:   "Dashboard",
		Segment: "dashboard",
		Data:    IndexData{Counts: counts},
	})
}

// RequestChart answers {"data": [{"date", "count"}, ...]} for the chart
// on the dashboard.
func (h *Handler) RequestChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	points, err := h.Service.Chart(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			h.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
				"code":   http.StatusBadRequest,
				"errors": appErr.FieldErrors(),
			})
			return
		}
		h.Logger.ErrorContext(r.Context(), "request chart failed", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": points})
}

// Routes mounts the dashboard for superusers. Other staff land on the
// user portal.
func (h *Handler) Routes(r chi.Router, gate *auth.Gate) {
	r.With(gate.Chain(auth.Staff(), auth.Superuser())).Get("/", h.Index)
	r.With(gate.Chain(auth.Staff())).Get("/asset-requests/chart", h.RequestChart)
}
