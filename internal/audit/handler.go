package audit

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/asset-management/internal"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/web"
)

const pageSize = 50

type Handler struct {
	*transport.BaseHandler
	recorder *Recorder
}

func NewHandler(baseHandler *transport.BaseHandler, recorder *Recorder) *Handler {
	return &Handler{BaseHandler: baseHandler, recorder: recorder}
}

type LogPage struct {
	Entries  []*auditDatamodel.LogEntry
	PrevPage int
	NextPage int
}

// List shows the newest entries first. Sites that turned the viewer off get a 404.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Settings != nil && !tenant.Settings.UserLogs {
		h.RenderStatus(w, r, http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	entries, err := h.recorder.List(r.Context(), ListFilter{Limit: pageSize + 1, Offset: (page - 1) * pageSize})
	if err != nil {
		h.RenderError(w, r, internal.NewInternalError("failed to list user logs", err))
		return
	}

	data := LogPage{Entries: entries}
	if len(entries) > pageSize {
		data.Entries = entries[:pageSize]
		data.NextPage = page + 1
	}
	if page > 1 {
		data.PrevPage = page - 1
	}

	h.Render(w, r, http.StatusOK, "user_logs", &web.Page{Title: "User logs", Segment: "settings", Data: data})
}
