package auth

import (
	"net/http"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/mail"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/go-chi/chi"
)

const DashboardURL = "/dashboard/"

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Sessions *session.Manager
	Mailer   mail.Mailer
	BaseURL  string
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, sessions *session.Manager, mailer mail.Mailer, baseURL string) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Sessions:    sessions,
		Mailer:      mailer,
		BaseURL:     baseURL,
	}
}

type LoginPage struct {
	RegistrationOpen bool
}

func loginForm(dto LoginDTO) *forms.Form {
	f := forms.New(LoginURL,
		forms.Email("email", "Email", dto.Email).MarkRequired(),
		forms.Password("password", "Password").MarkRequired(),
		forms.Text("next", "", dto.Next).WithType(forms.TypeHidden),
	)
	f.SubmitLabel = "Log in"
	return f
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, form *forms.Form) {
	data := LoginPage{}
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Auth != nil {
		data.RegistrationOpen = tenant.Auth.RegistrationOpen
	}
	h.Render(w, r, http.StatusOK, "login", &web.Page{Title: "Log in", Form: form, Data: data})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if user, ok := internal.UserFromContext(r.Context()); ok {
		h.Redirect(w, r, landing(user, r.URL.Query().Get("next")))
		return
	}

	if r.Method != http.MethodPost {
		h.renderLogin(w, r, loginForm(LoginDTO{Next: r.URL.Query().Get("next")}))
		return
	}

	var dto LoginDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	user, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		appErr, ok := internal.IsAppError(err)
		if !ok || appErr.Type == internal.ErrorTypeInternal {
			h.RenderError(w, r, err)
			return
		}
		form := loginForm(LoginDTO{Email: dto.Email, Next: dto.Next})
		form.Apply(appErr)
		h.renderLogin(w, r, form)
		return
	}

	h.Sessions.Login(r.Context(), user.ID)
	h.Logger.InfoContext(r.Context(), "Login: user signed in", "user_id", user.ID)
	h.Redirect(w, r, landing(&internal.User{IsStaff: user.IsStaff, IsSuperuser: user.IsSuperuser}, dto.Next))
}

// landing sends staff to next (or the dashboard) and everyone else to the portal.
func landing(user *internal.User, next string) string {
	if user.IsStaffMember() {
		return redirect.SafeNext(next, DashboardURL)
	}
	return PortalURL
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.Sessions.Flush(r.Context())
	}
	h.Redirect(w, r, LoginURL)
}

func resetRequestForm(email string) *forms.Form {
	f := forms.New("/account/password/reset", forms.Email("email", "Email", email).MarkRequired())
	f.SubmitLabel = "Reset my password"
	return f
}

func (h *Handler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Password reset", Form: resetRequestForm("")})
		return
	}

	var dto ResetRequestDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.RequestReset(r.Context(), dto)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			form := resetRequestForm(dto.Email)
			form.Apply(appErr)
			h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Password reset", Form: form})
			return
		}
		h.RenderError(w, r, err)
		return
	}

	if user != nil {
		msg := mail.Message{
			To:       []string{user.Email},
			Subject:  "Password reset",
			Template: mail.TemplatePasswordReset,
			Data: mail.LinkData{
				Name:     user.String(),
				SiteName: siteName(r),
				Link:     transport.AbsoluteURL(r, h.BaseURL, "/account/password/reset/"+token),
			},
		}
		if err := h.Mailer.Send(r.Context(), msg); err != nil {
			h.Logger.ErrorContext(r.Context(), "PasswordReset: failed to send mail", "user_id", user.ID, "error", err)
		}
	}

	h.Render(w, r, http.StatusOK, "message", &web.Page{
		Title:   "Password reset sent",
		Message: "We’ve emailed you instructions for setting your password, if an account exists with the email you entered.",
		Data:    web.Link{LinkURL: LoginURL, LinkText: "Back to login"},
	})
}

func setPasswordForm(action string) *forms.Form {
	f := forms.New(action,
		forms.Password("new_password1", "New password").MarkRequired(),
		forms.Password("new_password2", "New password confirmation").MarkRequired(),
	)
	f.SubmitLabel = "Change my password"
	return f
}

func (h *Handler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	action := "/account/password/reset/" + token

	if r.Method != http.MethodPost {
		if _, err := h.Service.CheckResetToken(r.Context(), token); err != nil {
			h.RenderError(w, r, err)
			return
		}
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Enter new password", Form: setPasswordForm(action)})
		return
	}

	var dto SetPasswordDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	user, err := h.Service.ConfirmReset(r.Context(), token, dto)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			form := setPasswordForm(action)
			form.Apply(appErr)
			h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Enter new password", Form: form})
			return
		}
		h.RenderError(w, r, err)
		return
	}

	if err := h.Sessions.FlushUser(r.Context(), user.ID); err != nil {
		h.Logger.WarnContext(r.Context(), "PasswordResetConfirm: failed to end sessions", "user_id", user.ID, "error", err)
	}
	h.Render(w, r, http.StatusOK, "message", &web.Page{
		Title:   "Password reset complete",
		Message: "Your password has been set. You may go ahead and log in now.",
		Data:    web.Link{LinkURL: LoginURL, LinkText: "Log in"},
	})
}

func passwordChangeForm() *forms.Form {
	f := forms.New("/account/password-change",
		forms.Password("old_password", "Old password").MarkRequired(),
		forms.Password("new_password1", "New password").MarkRequired(),
		forms.Password("new_password2", "New password confirmation").MarkRequired(),
	)
	f.SubmitLabel = "Change my password"
	return f
}

func (h *Handler) PasswordChange(w http.ResponseWriter, r *http.Request) {
	user, _ := internal.UserFromContext(r.Context())

	if r.Method != http.MethodPost {
		h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Password change", Form: passwordChangeForm()})
		return
	}

	var dto PasswordChangeDTO
	if err := r.ParseForm(); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}
	if err := forms.Decode(&dto, r.PostForm); err != nil {
		h.RenderStatus(w, r, http.StatusBadRequest)
		return
	}

	if _, err := h.Service.ChangePassword(r.Context(), user.ID, dto); err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeValidation {
			form := passwordChangeForm()
			form.Apply(appErr)
			h.Render(w, r, http.StatusOK, "form", &web.Page{Title: "Password change", Form: form})
			return
		}
		h.RenderError(w, r, err)
		return
	}

	if err := h.Sessions.FlushUser(r.Context(), user.ID); err != nil {
		h.Logger.WarnContext(r.Context(), "PasswordChange: failed to end other sessions", "user_id", user.ID, "error", err)
	}
	h.Flash(r, session.FlashSuccess, "Password successfully changed!")
	h.Redirect(w, r, PortalURL)
}

// Routes mounts the account routes that need no user administration.
func (h *Handler) Routes(r chi.Router, gate *Gate) {
	r.Get("/login", h.Login)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/logout", h.Logout)
	r.Get("/password/reset", h.PasswordReset)
	r.Post("/password/reset", h.PasswordReset)
	r.Get("/password/reset/{token}", h.PasswordResetConfirm)
	r.Post("/password/reset/{token}", h.PasswordResetConfirm)
	r.Group(func(r chi.Router) {
		r.Use(gate.Chain(Authenticated()))
		r.Get("/password-change", h.PasswordChange)
		r.Post("/password-change", h.PasswordChange)
	})
}

func siteName(r *http.Request) string {
	if tenant, ok := internal.TenantFromContext(r.Context()); ok && tenant.Site != nil {
		return tenant.Site.Name
	}
	return ""
}
