package site

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

const (
	SiteSettingsURL   = "/settings/site"
	SocialSettingsURL = "/settings/social"
	AuthSettingsURL   = "/settings/auth"

	segment = "settings"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(base *transport.BaseHandler, svc *Service) *Handler {
	return &Handler{BaseHandler: base, Service: svc}
}

// UnderConstruction shows the maintenance notice of the current site.
func (h *Handler) UnderConstruction(w http.ResponseWriter, r *http.Request) {
	message := siteDatamodel.DefaultMessage
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Settings != nil {
		message = tenant.Settings.MaintenanceMessage()
	}
	h.Render(w, r, http.StatusOK, "message", &web.Page{Title: "Under construction", Message: message})
}

func siteForm(site *siteDatamodel.Site, s *siteDatamodel.SiteSettings) *forms.Form {
	f := forms.New(SiteSettingsURL,
		forms.Text("display_name", "Site Name", site.Name).MarkRequired(),
		forms.Text("domain_name", "Domain name", site.Domain).MarkRequired(),
		forms.Text("color", "Theme Color", s.Color).WithType(forms.TypeColor),
		forms.Text("timezone", "Timezone", s.Timezone).MarkRequired(),
		forms.File("logo", "Logo", s.Logo),
		forms.File("favicon", "Favicon", s.Favicon),
		forms.Checkbox("user_bar", "User bar", s.UserBar),
		forms.Checkbox("user_logs", "User logs", s.UserLogs),
		forms.Checkbox("under_construction", "Under construction", s.UnderConstruction),
		forms.Textarea("message", "Message", s.Message),
	)
	f.SubmitLabel = "Update"
	return f
}

func socialForm(s *siteDatamodel.SocialSettings) *forms.Form {
	f := forms.New(SocialSettingsURL,
		forms.Text("facebook", "Facebook", s.Facebook).WithType(forms.TypeURL),
		forms.Text("twitter", "Twitter", s.Twitter).WithType(forms.TypeURL),
		forms.Text("instagram", "Instagram", s.Instagram).WithType(forms.TypeURL),
		forms.Text("youtube", "Youtube", s.Youtube).WithType(forms.TypeURL),
	)
	f.SubmitLabel = "Update"
	return f
}

func authForm(s *siteDatamodel.AuthSettings) *forms.Form {
	f := forms.New(AuthSettingsURL,
		forms.Text("activation_days", "Activation days", strconv.Itoa(s.ActivationDays)).WithType(forms.TypeNumber).MarkRequired(),
		forms.Checkbox("registration_auto_login", "Registration auto login", s.RegistrationAutoLogin),
		forms.Checkbox("send_activation_email", "Send activation email", s.SendActivationEmail),
		forms.Checkbox("registration_open", "Registration open", s.RegistrationOpen),
	)
	f.SubmitLabel = "Update"
	return f
}

// settingsPage renders form, re-rendering with the errors of err when it
// is a validation error.
func (h *Handler) settingsPage(w http.ResponseWriter, r *http.Request, title string, form *forms.Form, err error) {
	if err != nil {
		appErr, ok := internal.IsAppError(err)
		if !ok || appErr.Type != internal.ErrorTypeValidation {
			h.RenderError(w, r, err)
			return
		}
		form.Apply(appErr)
	}
	h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Segment: segment, Form: form})
}

func (h *Handler) SiteSettings(w http.ResponseWriter, r *http.Request) {
	const title = "Site Settings"
	tenant, _ := internal.TenantFromContext(r.Context())
	if r.Method != http.MethodPost {
		row, err := h.Service.SiteSettings(r.Context(), tenant)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, siteForm(tenant.Site, row), nil)
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())
	site, row, err := h.Service.UpdateSiteSettings(r.Context(), tenant, in, actor)
	if err != nil {
		if row == nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, siteForm(site, row), err)
		return
	}
	h.Flash(r, session.FlashSuccess, site.Name+" was updated successfully!")
	h.Redirect(w, r, SiteSettingsURL)
}

func (h *Handler) SocialSettings(w http.ResponseWriter, r *http.Request) {
	const title = "Social"
	tenant, _ := internal.TenantFromContext(r.Context())
	if r.Method != http.MethodPost {
		row, err := h.Service.SocialSettings(r.Context(), tenant)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, socialForm(row), nil)
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())
	row, err := h.Service.UpdateSocialSettings(r.Context(), tenant, in, actor)
	if err != nil {
		if row == nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, socialForm(row), err)
		return
	}
	h.Flash(r, session.FlashSuccess, "Social settings was updated successfully!")
	h.Redirect(w, r, SocialSettingsURL)
}

func (h *Handler) AuthSettings(w http.ResponseWriter, r *http.Request) {
	const title = "Authentication"
	tenant, _ := internal.TenantFromContext(r.Context())
	if r.Method != http.MethodPost {
		row, err := h.Service.AuthSettings(r.Context(), tenant)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, authForm(row), nil)
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())
	row, err := h.Service.UpdateAuthSettings(r.Context(), tenant, in, actor)
	if err != nil {
		if row == nil {
			h.RenderError(w, r, err)
			return
		}
		h.settingsPage(w, r, title, authForm(row), err)
		return
	}
	h.Flash(r, session.FlashSuccess, "Authentication settings was updated successfully!")
	h.Redirect(w, r, AuthSettingsURL)
}

// Routes registers the settings pages. Viewing needs <entity>.view and
// saving <entity>.change.
func (h *Handler) Routes(r chi.Router, gate *auth.Gate) {
	pages := []struct {
		path    string
		entity  string
		handler http.HandlerFunc
	}{
		{"/site", auth.EntitySiteSettings, h.SiteSettings},
		{"/social", auth.EntitySocialSettings, h.SocialSettings},
		{"/auth", auth.EntityAuthSettings, h.AuthSettings},
	}
	r.Group(func(r chi.Router) {
		r.Use(gate.Chain(auth.Staff()))
		for _, p := range pages {
			r.With(gate.Chain(auth.Can(auth.Codename(p.entity, auth.ActionView)))).Get(p.path, p.handler)
			r.With(gate.Chain(auth.Can(auth.Codename(p.entity, auth.ActionChange)))).Post(p.path, p.handler)
		}
	})
}
