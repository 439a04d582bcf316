package user

import (
	"fmt"
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/mail"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

const (
	InviteCompleteURL = "/account/invite-complete"
	ProfileURL        = "/account/profile"
)

type Handler struct {
	*transport.BaseHandler
	Service  *Service
	Sessions *session.Manager
	Mailer   mail.Mailer
	BaseURL  string
}

func NewHandler(base *transport.BaseHandler, svc *Service, sessions *session.Manager, mailer mail.Mailer, baseURL string) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Sessions:    sessions,
		Mailer:      mailer,
		BaseURL:     baseURL,
	}
}

// formError re-renders form with err when it is a validation error and
// reports whether it did.
func (h *Handler) formError(w http.ResponseWriter, r *http.Request, title string, form *forms.Form, err error) bool {
	appErr, ok := internal.IsAppError(err)
	if !ok || appErr.Type != internal.ErrorTypeValidation {
		return false
	}
	form.Apply(appErr)
	h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Form: form})
	return true
}

func (h *Handler) inviteForm(r *http.Request, dto InviteDTO) (*forms.Form, error) {
	designations, err := h.Service.users.designations.Options(r.Context(), dto.Designation)
	if err != nil {
		return nil, err
	}
	groups, err := h.Service.users.groups.Options(r.Context(), nil)
	if err != nil {
		return nil, err
	}
	f := forms.New("/account/users/invite",
		forms.Email("email", "Email", dto.Email).MarkRequired(),
		forms.Text("name", "Name", dto.Name),
		forms.Select("designation", "Designation", designations),
		forms.MultiSelect("groups", "Groups", forms.Selected(groups, dto.Groups...)),
		forms.Checkbox("is_staff", "Staff status", dto.IsStaff),
	)
	f.SubmitLabel = "Send invitation"
	return f, nil
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	const title = "Invite user"
	if r.Method != http.MethodPost {
		form, err := h.inviteForm(r, InviteDTO{})
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Segment: meta.Entity, Form: form})
		return
	}

	var dto InviteDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())

	invited, issued, err := h.Service.Invite(r.Context(), dto, actor)
	if err != nil {
		form, ferr := h.inviteForm(r, dto)
		if ferr != nil {
			h.RenderError(w, r, ferr)
			return
		}
		if !h.formError(w, r, title, form, err) {
			h.RenderError(w, r, err)
		}
		return
	}

	h.sendLink(r, invited, "You're invited", mail.TemplateInvite, "/account/set-password/"+issued.Token, issued)
	h.Flash(r, session.FlashSuccess, fmt.Sprintf("%s invite successfully!", invited.Email))
	h.Redirect(w, r, meta.Routes("").ListURL())
}

func (h *Handler) sendLink(r *http.Request, to *identity.User, subject, template, path string, issued *identity.UserToken) {
	data := mail.LinkData{
		Name:     to.String(),
		SiteName: siteName(r),
		Link:     transport.AbsoluteURL(r, h.BaseURL, path),
	}
	if issued != nil {
		data.Expires = issued.Expires.In(internal.LocationFromContext(r.Context())).Format("Jan 2, 2006, 3:04 PM")
	}
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Auth != nil {
		data.Days = tenant.Auth.ActivationDays
	}
	msg := mail.Message{To: []string{to.Email}, Subject: subject, Template: template, Data: data}
	if err := h.Mailer.Send(r.Context(), msg); err != nil {
		h.Logger.ErrorContext(r.Context(), "sendLink: failed to send mail", "user_id", to.ID, "template", template, "error", err)
	}
}

func setPasswordForm(action string) *forms.Form {
	f := forms.New(action,
		forms.Password("new_password1", "New password").MarkRequired(),
		forms.Password("new_password2", "New password confirmation").MarkRequired(),
	)
	f.SubmitLabel = "Set password"
	return f
}

// SetPassword redeems an invitation.
func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	const title = "Set your password"
	value := chi.URLParam(r, "token")
	action := "/account/set-password/" + value

	if r.Method != http.MethodPost {
		if _, err := h.Service.CheckInvite(r.Context(), value); err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Form: setPasswordForm(action)})
		return
	}

	var dto auth.SetPasswordDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	redeemed, err := h.Service.RedeemInvite(r.Context(), value, dto)
	if err != nil {
		if !h.formError(w, r, title, setPasswordForm(action), err) {
			h.RenderError(w, r, err)
		}
		return
	}

	h.Sessions.Flush(r.Context())
	if err := h.Sessions.FlushUser(r.Context(), redeemed.ID); err != nil {
		h.Logger.WarnContext(r.Context(), "SetPassword: failed to end sessions", "user_id", redeemed.ID, "error", err)
	}
	h.Redirect(w, r, InviteCompleteURL)
}

func (h *Handler) InviteComplete(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, http.StatusOK, "message", &web.Page{
		Title:   "Password set",
		Message: "Your password has been set. You may go ahead and log in now.",
		Data:    web.Link{LinkURL: auth.LoginURL, LinkText: "Log in"},
	})
}

func registerForm(dto RegisterDTO) *forms.Form {
	f := forms.New("/account/register",
		forms.Email("email", "Email", dto.Email).MarkRequired(),
		forms.Text("name", "Name", dto.Name).MarkRequired(),
		forms.Password("password1", "Password").MarkRequired(),
		forms.Password("password2", "Password confirmation").MarkRequired(),
		forms.Checkbox("agree", "I agree to the terms and conditions", dto.Agree).MarkRequired(),
	)
	f.SubmitLabel = "Register"
	return f
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const title = "Register"
	tenant, _ := internal.TenantFromContext(r.Context())
	settings := tenantAuth(tenant)
	if settings == nil || !settings.RegistrationOpen {
		h.RenderError(w, r, internal.ErrRegistrationClose)
		return
	}

	if r.Method != http.MethodPost {
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Form: registerForm(RegisterDTO{})})
		return
	}

	var dto RegisterDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	registered, issued, err := h.Service.Register(r.Context(), dto, settings)
	if err != nil {
		if !h.formError(w, r, title, registerForm(RegisterDTO{Email: dto.Email, Name: dto.Name, Agree: dto.Agree}), err) {
			h.RenderError(w, r, err)
		}
		return
	}

	if issued != nil {
		h.sendLink(r, registered, "Activate your account", mail.TemplateActivation, "/account/activate/"+issued.Token, issued)
		h.Render(w, r, http.StatusOK, "message", &web.Page{
			Title:   "Check your email",
			Message: fmt.Sprintf("We sent an activation link to %s. It is valid for %d days.", registered.Email, settings.ActivationDays),
		})
		return
	}
	h.finishSignup(w, r, registered, settings)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	activated, err := h.Service.Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.RenderError(w, r, err)
		return
	}
	tenant, _ := internal.TenantFromContext(r.Context())
	h.finishSignup(w, r, activated, tenantAuth(tenant))
}

// finishSignup signs the new user in when the site asks for it.
func (h *Handler) finishSignup(w http.ResponseWriter, r *http.Request, u *identity.User, settings *siteDatamodel.AuthSettings) {
	if settings != nil && settings.RegistrationAutoLogin {
		h.Sessions.Login(r.Context(), u.ID)
		h.Redirect(w, r, auth.PortalURL)
		return
	}
	h.Render(w, r, http.StatusOK, "message", &web.Page{
		Title:   "Account activated",
		Message: "Your account is active. You may go ahead and log in now.",
		Data:    web.Link{LinkURL: auth.LoginURL, LinkText: "Log in"},
	})
}

func profileForm(u *identity.User) *forms.Form {
	f := forms.New(ProfileURL,
		forms.Text("name", "Name", u.Name).MarkRequired(),
		forms.Text("phone", "Phone", u.Phone),
		forms.Textarea("address", "Address", u.Address),
		forms.Textarea("extra_detail", "Extra detail", u.ExtraDetail),
		forms.File("avatar", "Avatar", u.Avatar),
	)
	f.SubmitLabel = "Update profile"
	return f
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	const title = "Profile"
	actor, _ := internal.UserFromContext(r.Context())

	if r.Method != http.MethodPost {
		item, err := h.Service.Profile(r.Context(), actor)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: title, Form: profileForm(item)})
		return
	}

	in, err := forms.ReadInput(r)
	if err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	item, err := h.Service.UpdateProfile(r.Context(), actor, in)
	if err != nil {
		if item == nil || !h.formError(w, r, title, profileForm(item), err) {
			h.RenderError(w, r, err)
		}
		return
	}
	h.Flash(r, session.FlashSuccess, "Profile updated successfully!")
	h.Redirect(w, r, ProfileURL)
}

func deleteAccountForm() *forms.Form {
	f := forms.New("/account/delete", forms.Password("password", "Password").MarkRequired())
	f.SubmitLabel = "Delete my account"
	return f
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	const title = "Delete account"
	if r.Method != http.MethodPost {
		h.Render(w, r, http.StatusOK, "form", &web.Page{
			Title:   title,
			Message: "This permanently removes your account.",
			Form:    deleteAccountForm(),
		})
		return
	}

	var dto DeleteAccountDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())

	if err := h.Service.DeleteAccount(r.Context(), actor, dto); err != nil {
		if !h.formError(w, r, title, deleteAccountForm(), err) {
			h.RenderError(w, r, err)
		}
		return
	}
	h.Sessions.Flush(r.Context())
	h.Flash(r, session.FlashSuccess, "Account delete successfully!")
	h.Redirect(w, r, auth.LoginURL)
}

// AdminPassword lets staff with user.change pick a new password for a user.
func (h *Handler) AdminPassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := "/account/users/password/" + id

	if r.Method != http.MethodPost {
		item, err := h.Service.users.Get(r.Context(), id)
		if err != nil {
			h.RenderError(w, r, err)
			return
		}
		if item == nil {
			h.RenderStatus(w, r, http.StatusNotFound)
			return
		}
		h.Render(w, r, http.StatusOK, "form", &web.Page{
			Title:   "Change password: " + item.Email,
			Segment: meta.Entity,
			Form:    setPasswordForm(action),
		})
		return
	}

	var dto auth.SetPasswordDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	actor, _ := internal.UserFromContext(r.Context())

	item, err := h.Service.SetPassword(r.Context(), id, dto, actor)
	if err != nil {
		title := "Change password"
		if item != nil {
			title += ": " + item.Email
		}
		if !h.formError(w, r, title, setPasswordForm(action), err) {
			h.RenderError(w, r, err)
		}
		return
	}
	if err := h.Sessions.FlushUser(r.Context(), item.ID); err != nil {
		h.Logger.WarnContext(r.Context(), "AdminPassword: failed to end sessions", "user_id", item.ID, "error", err)
	}
	h.Flash(r, session.FlashSuccess, fmt.Sprintf("%s password updated successfully!", item.Email))
	h.Redirect(w, r, meta.Routes(item.ID.String()).AbsoluteURL())
}

// Routes mounts the account pages under /account.
func (h *Handler) Routes(r chi.Router, gate *auth.Gate) {
	r.Get("/set-password/{token}", h.SetPassword)
	r.Post("/set-password/{token}", h.SetPassword)
	r.Get("/invite-complete", h.InviteComplete)
	r.Get("/register", h.Register)
	r.Post("/register", h.Register)
	r.Get("/activate/{token}", h.Activate)

	r.Group(func(r chi.Router) {
		r.Use(gate.Chain(auth.Authenticated()))
		r.Get("/profile", h.Profile)
		r.Post("/profile", h.Profile)
		r.Get("/delete", h.DeleteAccount)
		r.Post("/delete", h.DeleteAccount)
	})

	r.Group(func(r chi.Router) {
		r.Use(gate.Chain(auth.Staff()))
		r.With(gate.Chain(auth.Can(meta.Codename(auth.ActionView)))).Get("/users/invite", h.Invite)
		r.With(gate.Chain(auth.Can(meta.Codename(auth.ActionAdd)))).Post("/users/invite", h.Invite)
		r.With(gate.Chain(auth.Can(meta.Codename(auth.ActionView)))).Get("/users/password/{id}", h.AdminPassword)
		r.With(gate.Chain(auth.Can(meta.Codename(auth.ActionChange)))).Post("/users/password/{id}", h.AdminPassword)
	})
}

// Mount registers the staff user pages.
func (h *Handler) Mount(r chi.Router, gate *auth.Gate) {
	crud.Mount[identity.User](r, gate, crud.NewHandler[identity.User](h.BaseHandler, h.Service.users, h.Service.crud))
}

func siteName(r *http.Request) string {
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Site != nil {
		return tenant.Site.Name
	}
	return ""
}

func tenantAuth(tenant *internal.Tenant) *siteDatamodel.AuthSettings {
	if tenant == nil {
		return nil
	}
	return tenant.Auth
}
