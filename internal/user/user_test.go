package user_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-management/internal/audit/postgres"
	"github.com/frahmantamala/asset-management/internal/auth"
	authPostgres "github.com/frahmantamala/asset-management/internal/auth/postgres"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/designation"
	"github.com/frahmantamala/asset-management/internal/group"
	"github.com/frahmantamala/asset-management/internal/mail"
	"github.com/frahmantamala/asset-management/internal/session"
	sessionPostgres "github.com/frahmantamala/asset-management/internal/session/postgres"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/internal/token"
	tokenPostgres "github.com/frahmantamala/asset-management/internal/token/postgres"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/internal/user"
	userPostgres "github.com/frahmantamala/asset-management/internal/user/postgres"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

const password = "Sturdy-pass-123"

var _ = Describe("User", func() {
	var (
		db       *gorm.DB
		svc      *user.Service
		hasher   *auth.Service
		mailer   *mail.LogMailer
		router   chi.Router
		admin    *internal.User
		settings *siteDatamodel.AuthSettings
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.SeedPermissions(db)).To(Succeed())

		stored, err := testutil.CreateUser(db, "admin@example.com", "Admin", password, true, false)
		Expect(err).NotTo(HaveOccurred())
		admin = testutil.Principal(stored, "user.view", "user.add", "user.change", "user.delete")

		logger := testutil.NewLogger()
		clk := clock.NewFake(time.Now())
		authRepo := authPostgres.NewAuthRepository(db)
		hasher = auth.NewService(authRepo, auth.Options{BcryptCost: bcrypt.MinCost}, clk, logger)
		recorder := audit.NewRecorder(auditPostgres.NewLogRepository(db), nil, clk, logger)
		tokens := token.NewService(tokenPostgres.NewTokenRepository(db), token.Options{}, clk, logger)
		users := user.NewUsers(db, group.NewGroups(db, authRepo), designation.NewDesignations(db), authRepo, hasher, storage.NewMemory())
		svc = user.NewService(db, userPostgres.NewUserRepository(), users, tokens, recorder, logger)

		settings = siteDatamodel.NewAuthSettings(uuid.New())
		ctx = internal.ContextWithTenant(context.Background(), &internal.Tenant{
			Site:     &siteDatamodel.Site{Name: "Assets"},
			Auth:     settings,
			Location: time.UTC,
		})

		mailer = mail.NewLogMailer(logger)
		base := testutil.NewBaseHandler()
		sessions := session.NewManager(sessionPostgres.NewSessionRepository(db), session.Options{CookieName: "sessionid", TTL: time.Hour}, clk, logger)
		handler := user.NewHandler(base, svc, sessions, mailer, "http://assets.example.com")
		gate := auth.NewGate(base)

		router = chi.NewRouter()
		router.Route("/account", func(r chi.Router) {
			handler.Routes(r, gate)
		})
		handler.Mount(router, gate)
	})

	do := func(method, target string, form url.Values, principal *internal.User) (*httptest.ResponseRecorder, []string) {
		req, s := testutil.NewRequest(method, target, form, principal)
		req = req.WithContext(internal.ContextWithTenant(req.Context(), &internal.Tenant{
			Site:     &siteDatamodel.Site{Name: "Assets"},
			Auth:     settings,
			Location: time.UTC,
		}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec, testutil.FlashMessages(s)
	}

	load := func(email string) *identity.User {
		var u identity.User
		Expect(db.First(&u, "email = ?", email).Error).To(Succeed())
		return &u
	}

	entries := func() []auditDatamodel.LogEntry {
		var out []auditDatamodel.LogEntry
		Expect(db.Order("action_time ASC").Find(&out).Error).To(Succeed())
		return out
	}

	Describe("invitations", func() {
		invite := func(email string) (*httptest.ResponseRecorder, []string) {
			return do(http.MethodPost, "/account/users/invite", url.Values{"email": {email}, "name": {"Nadia"}}, admin)
		}

		It("creates an inactive user and mails the set-password link", func() {
			rec, flashes := invite("Nadia@Example.com")
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal("/users/list"))
			Expect(flashes).To(ConsistOf("nadia@example.com invite successfully!"))

			invited := load("nadia@example.com")
			Expect(invited.IsActive).To(BeFalse())

			var row identity.UserToken
			Expect(db.First(&row, "user_id = ?", invited.ID).Error).To(Succeed())
			Expect(row.Type).To(Equal(token.Invite))

			sent := mailer.Sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].To).To(ConsistOf("nadia@example.com"))
			Expect(sent[0].Template).To(Equal(mail.TemplateInvite))
			Expect(sent[0].Data.(mail.LinkData).Link).To(Equal("http://assets.example.com/account/set-password/" + row.Token))

			logs := entries()
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].Action).To(Equal(audit.Addition))
		})

		It("rejects an email already in use", func() {
			rec, _ := invite("admin@example.com")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("User with this Email already exists."))
			Expect(mailer.Sent()).To(BeEmpty())
		})

		It("forbids staff without user.add", func() {
			viewer := testutil.Principal(load("admin@example.com"), "user.view")
			rec, _ := do(http.MethodPost, "/account/users/invite", url.Values{"email": {"x@example.com"}}, viewer)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("activates the account when the invite is redeemed", func() {
			invite("nadia@example.com")
			invited := load("nadia@example.com")
			var row identity.UserToken
			Expect(db.First(&row, "user_id = ?", invited.ID).Error).To(Succeed())

			form := url.Values{"new_password1": {password}, "new_password2": {password}}
			rec, _ := do(http.MethodPost, "/account/set-password/"+row.Token, form, nil)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal(user.InviteCompleteURL))

			redeemed := load("nadia@example.com")
			Expect(redeemed.IsActive).To(BeTrue())
			Expect(hasher.CheckPassword(redeemed, password)).To(BeTrue())

			var n int64
			Expect(db.Model(&identity.UserToken{}).Where("user_id = ?", invited.ID).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())

			var change auditDatamodel.LogEntry
			Expect(db.First(&change, "action = ?", audit.Change).Error).To(Succeed())
			Expect(change.ActorID).To(HaveValue(Equal(invited.ID)))
			Expect(string(change.ChangedFields)).To(MatchJSON(`["password","is_active"]`))
		})

		It("keeps the token when the passwords do not match", func() {
			invite("nadia@example.com")
			invited := load("nadia@example.com")
			var row identity.UserToken
			Expect(db.First(&row, "user_id = ?", invited.ID).Error).To(Succeed())

			form := url.Values{"new_password1": {password}, "new_password2": {password + "x"}}
			rec, _ := do(http.MethodPost, "/account/set-password/"+row.Token, form, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(load("nadia@example.com").IsActive).To(BeFalse())
			_, err := svc.CheckInvite(ctx, row.Token)
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses unknown tokens", func() {
			_, err := svc.RedeemInvite(ctx, strings.Repeat("0", 32), auth.SetPasswordDTO{Password1: password, Password2: password})
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("registration", func() {
		dto := user.RegisterDTO{Email: "sam@example.com", Name: "Sam", Password1: password, Password2: password, Agree: true}

		It("is refused while registration is closed", func() {
			settings.RegistrationOpen = false
			_, _, err := svc.Register(ctx, dto, settings)
			Expect(err).To(MatchError(internal.ErrRegistrationClose))
		})

		It("requires agreeing to the terms", func() {
			bad := dto
			bad.Agree = false
			_, _, err := svc.Register(ctx, bad, settings)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("agree"))
		})

		It("leaves the account inactive until the activation link is used", func() {
			registered, issued, err := svc.Register(ctx, dto, settings)
			Expect(err).NotTo(HaveOccurred())
			Expect(registered.IsActive).To(BeFalse())
			Expect(issued).NotTo(BeNil())
			Expect(issued.Type).To(Equal(token.Activation))

			logs := entries()
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].ActorID).To(HaveValue(Equal(registered.ID)))

			activated, err := svc.Activate(ctx, issued.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(activated.IsActive).To(BeTrue())
			Expect(load("sam@example.com").IsActive).To(BeTrue())

			_, err = svc.Activate(ctx, issued.Token)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("activates immediately without activation mails", func() {
			settings.SendActivationEmail = false
			registered, issued, err := svc.Register(ctx, dto, settings)
			Expect(err).NotTo(HaveOccurred())
			Expect(registered.IsActive).To(BeTrue())
			Expect(issued).To(BeNil())
		})

		It("mails the activation link from the register page", func() {
			form := url.Values{
				"email": {"sam@example.com"}, "name": {"Sam"},
				"password1": {password}, "password2": {password}, "agree": {"true"},
			}
			rec, _ := do(http.MethodPost, "/account/register", form, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			sent := mailer.Sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Template).To(Equal(mail.TemplateActivation))
			Expect(sent[0].Data.(mail.LinkData).Days).To(Equal(7))
		})
	})

	Describe("staff user form", func() {
		It("ignores the superuser flag and unassignable permissions", func() {
			var logView identity.Permission
			Expect(db.First(&logView, "codename = ?", "user_log.view").Error).To(Succeed())
			form := url.Values{
				"email": {"ops@example.com"}, "name": {"Ops"},
				"is_active": {"true"}, "is_superuser": {"true"},
				"user_permissions": {strconv.FormatInt(logView.ID, 10)},
			}
			rec, flashes := do(http.MethodPost, "/users/create", form, admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(flashes).To(ConsistOf("ops@example.com was created successfully"))

			created := load("ops@example.com")
			Expect(created.IsSuperuser).To(BeFalse())
			Expect(db.Model(created).Association("Permissions").Count()).To(BeZero())
		})

		It("checks the optional password pair", func() {
			form := url.Values{"email": {"ops@example.com"}, "password1": {"12345678"}, "password2": {"12345678"}}
			rec, _ := do(http.MethodPost, "/users/create", form, admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("This password is entirely numeric."))
		})

		It("lets staff set a user's password", func() {
			target, err := testutil.CreateUser(db, "kim@example.com", "Kim", "old-password-1", false, false)
			Expect(err).NotTo(HaveOccurred())

			form := url.Values{"new_password1": {password}, "new_password2": {password}}
			rec, flashes := do(http.MethodPost, "/account/users/password/"+target.ID.String(), form, admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal("/users/update/" + target.ID.String()))
			Expect(flashes).To(ConsistOf("kim@example.com password updated successfully!"))
			Expect(hasher.CheckPassword(load("kim@example.com"), password)).To(BeTrue())

			logs := entries()
			Expect(logs).To(HaveLen(1))
			Expect(string(logs[0].ChangedFields)).To(MatchJSON(`["password"]`))
		})
	})

	Describe("own account", func() {
		var self *internal.User

		BeforeEach(func() {
			stored, err := testutil.CreateUser(db, "kim@example.com", "Kim", password, false, false)
			Expect(err).NotTo(HaveOccurred())
			self = testutil.Principal(stored)
		})

		It("records only the changed profile fields", func() {
			in := forms.Input{Values: url.Values{"name": {"Kim Lee"}, "phone": {"555-0101"}}}
			updated, err := svc.UpdateProfile(ctx, self, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Kim Lee"))

			logs := entries()
			Expect(logs).To(HaveLen(1))
			Expect(string(logs[0].ChangedFields)).To(MatchJSON(`["name","phone"]`))
		})

		It("stores an uploaded avatar", func() {
			in := forms.Input{
				Values: url.Values{"name": {"Kim"}},
				Files:  map[string]forms.Upload{"avatar": {Field: "avatar", Filename: "me.PNG", Bytes: []byte("png")}},
			}
			updated, err := svc.UpdateProfile(ctx, self, in)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Avatar).To(HavePrefix("/media/avatars/"))
			Expect(updated.Avatar).To(HaveSuffix(".png"))
		})

		It("keeps the account when the password is wrong", func() {
			err := svc.DeleteAccount(ctx, self, user.DeleteAccountDTO{Password: "nope-nope-nope"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("password"))
			load("kim@example.com")
		})

		It("deletes the account and signs out", func() {
			rec, flashes := do(http.MethodPost, "/account/delete", url.Values{"password": {password}}, self)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal(auth.LoginURL))
			Expect(flashes).To(ConsistOf("Account delete successfully!"))

			var n int64
			Expect(db.Model(&identity.User{}).Where("email = ?", "kim@example.com").Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
		})

		It("keeps the Deletion entry and the user's history with foreign keys enforced", func() {
			Expect(db.Exec("PRAGMA foreign_keys = ON").Error).To(Succeed())

			in := forms.Input{Values: url.Values{"name": {"Kim Lee"}}}
			_, err := svc.UpdateProfile(ctx, self, in)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.DeleteAccount(ctx, self, user.DeleteAccountDTO{Password: password})).To(Succeed())

			logs := entries()
			Expect(logs).To(HaveLen(2))
			deletions := 0
			for _, entry := range logs {
				Expect(entry.ActorID).To(BeNil())
				if entry.Action == audit.Deletion {
					deletions++
					Expect(entry.ObjectID).To(BeNil())
					Expect(entry.Message).To(Equal("Kim Lee"))
				}
			}
			Expect(deletions).To(Equal(1))
		})
	})
})
