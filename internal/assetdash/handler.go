package assetdash

import (
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/asset"
	"github.com/frahmantamala/asset-management/internal/auth"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

const (
	segment     = "assetdash"
	requestsURL = "/assetdash/requests"
	createURL   = "/assetdash/requests/create"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(base *transport.BaseHandler, svc *Service) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

func actorOf(r *http.Request) *internal.User {
	actor, _ := internal.UserFromContext(r.Context())
	return actor
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context(), actorOf(r))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	h.Render(w, r, http.StatusOK, "assetdash", &web.Page{Title: "Asset Dashboard", Segment: segment, Data: summary})
}

func (h *Handler) Assets(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Assets(r.Context(), actorOf(r))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	table := &web.Table{Columns: []string{"Asset id", "Title", "Model", "Status"}}
	for _, item := range items {
		status := ""
		if item.Status != nil {
			status = item.Status.Title
		}
		table.Rows = append(table.Rows, web.Row{Cells: []string{item.AssetID, item.Title, item.Model, status}})
	}
	h.Render(w, r, http.StatusOK, "list", &web.Page{Title: "Asset List", Segment: "asset", Table: table})
}

func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Requests(r.Context(), actorOf(r))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	table := &web.Table{
		Columns:   []string{"Asset", "Details", "Status", "Request date", "Receive date"},
		CreateURL: createURL,
		CanAdd:    true,
		CanChange: true,
	}
	ctx := r.Context()
	for _, item := range items {
		title := ""
		if item.Asset != nil {
			title = item.Asset.AssetID + " " + item.Asset.Title
		}
		table.Rows = append(table.Rows, web.Row{
			Cells:   []string{title, item.Details, item.Status.String(), asset.FormatDate(ctx, item.RequestDate), asset.FormatDate(ctx, item.ReceiveDate)},
			EditURL: requestsURL + "/update/" + item.ID.String(),
		})
	}
	h.Render(w, r, http.StatusOK, "list", &web.Page{Title: "Asset Request List", Segment: "assetrequest", Table: table})
}

func (h *Handler) Issues(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Issues(r.Context(), actorOf(r))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	ctx := r.Context()
	table := &web.Table{Columns: []string{"Asset", "Status", "Description", "Fix date", "Resolved date"}}
	for _, item := range items {
		table.Rows = append(table.Rows, web.Row{Cells: []string{
			item.Asset.AssetID + " " + item.Asset.Title,
			item.Status.Title,
			item.Description,
			asset.FormatDate(ctx, item.FixDate),
			asset.FormatDate(ctx, item.ResolvedDate),
		}})
	}
	h.Render(w, r, http.StatusOK, "list", &web.Page{Title: "Asset Issue List", Segment: "assetissue", Table: table})
}

func requestForm(action, submit string, item *assetDatamodel.Request) *forms.Form {
	f := forms.New(action, forms.Textarea("details", "Message", item.Details).MarkRequired())
	f.SubmitLabel = submit
	return f
}

func (h *Handler) renderRequest(w http.ResponseWriter, r *http.Request, title string, form *forms.Form, err error) {
	if err != nil {
		appErr, ok := internal.IsAppError(err)
		if !ok || appErr.Type != internal.ErrorTypeValidation {
			h.RenderError(w, r, err)
			return
		}
		form.Apply(appErr)
	}
	h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Segment: "assetrequest", Form: form})
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	const title = "Create Asset Request"
	if r.Method != http.MethodPost {
		h.renderRequest(w, r, title, requestForm(createURL, "Submit Request", &assetDatamodel.Request{}), nil)
		return
	}
	dto, ok := h.decode(w, r)
	if !ok {
		return
	}
	item, err := h.Service.CreateRequest(r.Context(), actorOf(r), dto)
	if err != nil {
		h.renderRequest(w, r, title, requestForm(createURL, "Submit Request", item), err)
		return
	}
	h.Flash(r, session.FlashSuccess, "Asset Request created successfully")
	h.Redirect(w, r, requestsURL)
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	const title = "Update Asset Request"
	id := chi.URLParam(r, "id")
	action := requestsURL + "/update/" + id
	if r.Method != http.MethodPost {
		item, err := h.Service.Request(r.Context(), actorOf(r), id)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.renderRequest(w, r, title, requestForm(action, "Update Request", item), nil)
		return
	}
	dto, ok := h.decode(w, r)
	if !ok {
		return
	}
	item, err := h.Service.UpdateRequest(r.Context(), actorOf(r), id, dto)
	if err != nil {
		if item == nil {
			h.RenderError(w, r, err)
			return
		}
		h.renderRequest(w, r, title, requestForm(action, "Update Request", item), err)
		return
	}
	h.Flash(r, session.FlashSuccess, "Asset Request updated successfully")
	h.Redirect(w, r, requestsURL)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (RequestDTO, bool) {
	var dto RequestDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return dto, false
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return dto, false
	}
	return dto, true
}

// Routes mounts the portal. Every signed-in user may use it.
func (h *Handler) Routes(r chi.Router, gate *auth.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.Chain(auth.Authenticated()))
		r.Get("/", h.Index)
		r.Get("/assets", h.Assets)
		r.Get("/requests", h.Requests)
		r.Get("/requests/create", h.CreateRequest)
		r.Post("/requests/create", h.CreateRequest)
		r.Get("/requests/update/{id}", h.UpdateRequest)
		r.Post("/requests/update/{id}", h.UpdateRequest)
		r.Get("/issues", h.Issues)
	})
}
