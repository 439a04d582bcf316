package crud

import (
	"fmt"
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

type Handler[T any] struct {
	*transport.BaseHandler
	Resource Resource[T]
	Service  *Service[T]
}

func NewHandler[T any](base *transport.BaseHandler, resource Resource[T], service *Service[T]) *Handler[T] {
	return &Handler[T]{BaseHandler: base, Resource: resource, Service: service}
}

func (h *Handler[T]) List(w http.ResponseWriter, r *http.Request) {
	meta := h.Resource.Meta()
	items, err := h.Resource.List(r.Context())
	if err != nil {
		h.RenderError(w, r, err)
		return
	}

	user, _ := internal.UserFromContext(r.Context())
	columns, cells := h.Resource.Table(r.Context(), items)
	table := &web.Table{
		Columns:   columns,
		CreateURL: meta.Path + "/create",
		CanAdd:    user.HasPermission(meta.Codename(auth.ActionAdd)),
		CanChange: user.HasPermission(meta.Codename(auth.ActionChange)),
		CanDelete: user.HasPermission(meta.Codename(auth.ActionDelete)),
	}
	for i, item := range items {
		routes := meta.Routes(h.Resource.ID(item))
		table.Rows = append(table.Rows, web.Row{
			Cells:     cells[i],
			EditURL:   routes.AbsoluteURL(),
			DeleteURL: routes.DeleteURL(),
		})
	}
	h.Render(w, r, http.StatusOK, "list", &web.Page{Title: meta.Plural, Segment: meta.Entity, Table: table})
}

func (h *Handler[T]) Create(w http.ResponseWriter, r *http.Request) {
	item := h.Resource.New()

	if r.Method != http.MethodPost {
		h.renderForm(w, r, item, true, nil)
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())

	if err := h.Resource.Bind(r.Context(), item, in, actor, true); err != nil {
		h.handleBindError(w, r, item, true, err)
		return
	}
	if err := h.Service.Create(r.Context(), item, actor); err != nil {
		h.handleBindError(w, r, item, true, err)
		return
	}

	h.Flash(r, session.FlashSuccess, fmt.Sprintf("%s was created successfully", h.Resource.Title(item)))
	h.Redirect(w, r, redirect.Resolve(in.Values, h.Resource.Target(item)))
}

func (h *Handler[T]) Update(w http.ResponseWriter, r *http.Request) {
	item, err := h.Resource.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	if item == nil {
		h.RenderStatus(w, r, http.StatusNotFound)
		return
	}

	if r.Method != http.MethodPost {
		h.renderForm(w, r, item, false, nil)
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())

	before := h.Resource.Snapshot(item)
	if err := h.Resource.Bind(r.Context(), item, in, actor, false); err != nil {
		h.handleBindError(w, r, item, false, err)
		return
	}
	changed := audit.Diff(before, h.Resource.Snapshot(item))
	if _, err := h.Service.Update(r.Context(), item, changed, actor); err != nil {
		h.handleBindError(w, r, item, false, err)
		return
	}

	h.Flash(r, session.FlashSuccess, fmt.Sprintf("%s was updated successfully", h.Resource.Title(item)))
	h.Redirect(w, r, redirect.Resolve(in.Values, h.Resource.Target(item)))
}

// Delete never renders: failures are flashed and the list is shown again.
func (h *Handler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	meta := h.Resource.Meta()
	actor, _ := internal.UserFromContext(r.Context())
	listURL := meta.Routes("").ListURL()

	title, err := h.Service.Delete(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.Flash(r, session.FlashError, fmt.Sprintf("Internal server error: %s", err.Error()))
		h.Redirect(w, r, listURL)
		return
	}
	h.Flash(r, session.FlashSuccess, fmt.Sprintf("%s delete successfully!", title))
	h.Redirect(w, r, listURL)
}

func (h *Handler[T]) handleBindError(w http.ResponseWriter, r *http.Request, item *T, creating bool, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok || appErr.Type != internal.ErrorTypeValidation {
		h.RenderError(w, r, err)
		return
	}
	h.renderForm(w, r, item, creating, appErr)
}

func (h *Handler[T]) renderForm(w http.ResponseWriter, r *http.Request, item *T, creating bool, verr *internal.AppError) {
	meta := h.Resource.Meta()
	form, err := h.Resource.Form(r.Context(), item, creating)
	if err != nil {
		h.RenderError(w, r, err)
		return
	}

	title := "Add " + meta.Singular
	if creating {
		form.Action = meta.Path + "/create"
	} else {
		title = "Change " + meta.Singular
		routes := meta.Routes(h.Resource.ID(item))
		form.Action = routes.AbsoluteURL()
		if user, _ := internal.UserFromContext(r.Context()); user.HasPermission(meta.Codename(auth.ActionDelete)) {
			form.DeleteURL = routes.DeleteURL()
		}
	}
	form.Continue = true
	form.Apply(verr)
	h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Segment: meta.Entity, Form: form})
}

// Mount registers the list, create, update and delete routes of h behind the
// staff gate, checking the capability of each verb.
func Mount[T any](r chi.Router, gate *auth.Gate, h *Handler[T]) {
	meta := h.Resource.Meta()
	view := gate.Chain(auth.Can(meta.Codename(auth.ActionView)))
	add := gate.Chain(auth.Can(meta.Codename(auth.ActionAdd)))
	change := gate.Chain(auth.Can(meta.Codename(auth.ActionChange)))
	remove := gate.Chain(auth.Can(meta.Codename(auth.ActionDelete)))

	r.Route(meta.Path, func(r chi.Router) {
		r.Use(gate.Chain(auth.Staff()))
		r.With(view).Get("/list", h.List)
		r.With(view).Get("/create", h.Create)
		r.With(add).Post("/create", h.Create)
		r.With(view).Get("/update/{id}", h.Update)
		r.With(change).Post("/update/{id}", h.Update)
		r.With(remove).Get("/delete/{id}", h.Delete)
	})
}
