package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	authPostgres "github.com/frahmantamala/asset-management/internal/auth/postgres"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"github.com/frahmantamala/asset-management/pkg/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

var _ = Describe("Permission catalog", func() {
	It("builds one codename per entity and action", func() {
		catalog := auth.Catalog()
		Expect(catalog).To(HaveLen(len(auth.Entities) * len(auth.Actions)))
		Expect(catalog[0].Codename).To(Equal("user.view"))
		Expect(catalog[0].Name).To(Equal("Can view user"))
	})

	It("hides audit and settings housekeeping permissions", func() {
		names := map[string]bool{}
		for _, p := range auth.Assignable(auth.Catalog()) {
			names[p.Codename] = true
		}
		Expect(names).NotTo(HaveKey("user_log.view"))
		Expect(names).NotTo(HaveKey("site_settings.add"))
		Expect(names).NotTo(HaveKey("auth_settings.delete"))
		Expect(names).To(HaveKey("site_settings.change"))
		Expect(names).To(HaveKey("asset.delete"))
	})
})

var _ = Describe("Gate", func() {
	var (
		gate *auth.Gate
		ok   http.Handler
	)

	BeforeEach(func() {
		renderer, err := web.NewRenderer()
		Expect(err).NotTo(HaveOccurred())
		gate = auth.NewGate(transport.NewBaseHandler(testutil.NewLogger(), renderer))
		ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	})

	serve := func(user *internal.User, path string, guards ...auth.Guard) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if user != nil {
			req = req.WithContext(internal.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		gate.Chain(guards...)(ok).ServeHTTP(rec, req)
		return rec
	}

	It("redirects anonymous requests to login with next", func() {
		rec := serve(nil, "/assets/list?page=2", auth.Staff(), auth.Can("asset.view"))
		Expect(rec.Code).To(Equal(http.StatusFound))
		Expect(rec.Header().Get("Location")).To(Equal("/account/login?next=%2Fassets%2Flist%3Fpage%3D2"))
	})

	It("treats inactive users as anonymous", func() {
		rec := serve(&internal.User{IsStaff: true}, "/assets/list", auth.Authenticated())
		Expect(rec.Code).To(Equal(http.StatusFound))
		Expect(rec.Header().Get("Location")).To(HavePrefix(auth.LoginURL))
	})

	It("sends non-staff users to the portal", func() {
		rec := serve(&internal.User{IsActive: true}, "/assets/list", auth.Staff())
		Expect(rec.Code).To(Equal(http.StatusFound))
		Expect(rec.Header().Get("Location")).To(Equal(auth.PortalURL))
	})

	It("answers 403 when the capability is missing", func() {
		user := &internal.User{IsActive: true, IsStaff: true, Permissions: []string{"asset.view"}}
		rec := serve(user, "/assets/create", auth.Staff(), auth.Can("asset.add"))
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("Error 403"))
	})

	It("stops at the first denial", func() {
		rec := serve(&internal.User{IsActive: true}, "/assets/create", auth.Staff(), auth.Can("asset.add"))
		Expect(rec.Header().Get("Location")).To(Equal(auth.PortalURL))
	})

	It("lets superusers through every capability", func() {
		rec := serve(&internal.User{IsActive: true, IsSuperuser: true}, "/assets/create", auth.Staff(), auth.Can("asset.add"), auth.Superuser())
		Expect(rec.Code).To(Equal(http.StatusTeapot))
	})

	It("sends staff without superuser to the portal from superuser routes", func() {
		rec := serve(&internal.User{IsActive: true, IsStaff: true}, "/dashboard/", auth.Staff(), auth.Superuser())
		Expect(rec.Header().Get("Location")).To(Equal(auth.PortalURL))
	})
})

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		clk     *clock.Fake
		service *auth.Service
		user    *identity.User
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		clk = clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
		service = auth.NewService(authPostgres.NewAuthRepository(db), auth.Options{
			BcryptCost:  bcrypt.MinCost,
			ResetSecret: "reset-secret",
			ResetTTL:    time.Hour,
		}, clk, testutil.NewLogger())

		user, err = testutil.CreateUser(db, "jane@example.com", "Jane", "s3cret-pass", true, false)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Authenticate", func() {
		It("accepts the right password and stamps last login", func() {
			got, err := service.Authenticate(ctx, auth.LoginDTO{Email: "jane@example.com", Password: "s3cret-pass"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))

			var stored identity.User
			Expect(db.First(&stored, "id = ?", user.ID).Error).To(Succeed())
			Expect(stored.LastLogin).NotTo(BeNil())
		})

		It("rejects a wrong password", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{Email: "jane@example.com", Password: "nope"})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects unknown emails the same way", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{Email: "who@example.com", Password: "s3cret-pass"})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects inactive users", func() {
			Expect(db.Model(user).Update("is_active", false).Error).To(Succeed())
			_, err := service.Authenticate(ctx, auth.LoginDTO{Email: "jane@example.com", Password: "s3cret-pass"})
			Expect(err).To(Equal(internal.ErrUserInactive))
		})

		It("reports missing fields as validation errors", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("email"))
			Expect(appErr.FieldErrors()).To(HaveKey("password"))
		})
	})

	Describe("Principal", func() {
		It("unions direct and group permissions", func() {
			direct := identity.Permission{Entity: "asset", Action: "view", Codename: "asset.view", Name: "Can view asset"}
			viaGroup := identity.Permission{Entity: "asset", Action: "add", Codename: "asset.add", Name: "Can add asset"}
			Expect(db.Create(&direct).Error).To(Succeed())
			Expect(db.Create(&viaGroup).Error).To(Succeed())

			group := identity.Group{Name: "Inventory"}
			Expect(db.Create(&group).Error).To(Succeed())
			Expect(db.Model(&group).Association("Permissions").Append(&viaGroup, &direct)).To(Succeed())
			Expect(db.Model(user).Association("Groups").Append(&group)).To(Succeed())
			Expect(db.Model(user).Association("Permissions").Append(&direct)).To(Succeed())

			principal, err := service.Principal(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.Permissions).To(ConsistOf("asset.view", "asset.add"))
			Expect(principal.IsStaff).To(BeTrue())
		})

		It("returns nil for inactive users", func() {
			Expect(db.Model(user).Update("is_active", false).Error).To(Succeed())
			principal, err := service.Principal(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal).To(BeNil())
		})
	})

	Describe("ChangePassword", func() {
		It("requires the old password", func() {
			_, err := service.ChangePassword(ctx, user.ID, auth.PasswordChangeDTO{
				OldPassword:    "wrong-one",
				SetPasswordDTO: auth.SetPasswordDTO{Password1: "brand-new-pass", Password2: "brand-new-pass"},
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("old_password"))
		})

		It("rejects mismatched confirmation", func() {
			_, err := service.ChangePassword(ctx, user.ID, auth.PasswordChangeDTO{
				OldPassword:    "s3cret-pass",
				SetPasswordDTO: auth.SetPasswordDTO{Password1: "brand-new-pass", Password2: "other-new-pass"},
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()["new_password2"]).To(ContainElement("The two password fields didn’t match."))
		})

		It("stores the new hash", func() {
			_, err := service.ChangePassword(ctx, user.ID, auth.PasswordChangeDTO{
				OldPassword:    "s3cret-pass",
				SetPasswordDTO: auth.SetPasswordDTO{Password1: "brand-new-pass", Password2: "brand-new-pass"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Authenticate(ctx, auth.LoginDTO{Email: "jane@example.com", Password: "brand-new-pass"})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("password reset", func() {
		It("round-trips a token", func() {
			got, token, err := service.RequestReset(ctx, auth.ResetRequestDTO{Email: "jane@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))

			_, err = service.ConfirmReset(ctx, token, auth.SetPasswordDTO{Password1: "after-reset-1", Password2: "after-reset-1"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns no user for unknown addresses", func() {
			got, token, err := service.RequestReset(ctx, auth.ResetRequestDTO{Email: "nobody@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
			Expect(token).To(BeEmpty())
		})

		It("invalidates the link once the password changed", func() {
			token, err := service.ResetToken(user)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.ConfirmReset(ctx, token, auth.SetPasswordDTO{Password1: "after-reset-1", Password2: "after-reset-1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CheckResetToken(ctx, token)
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})

		It("expires the link", func() {
			token, err := service.ResetToken(user)
			Expect(err).NotTo(HaveOccurred())
			clk.Advance(2 * time.Hour)

			_, err = service.CheckResetToken(ctx, token)
			Expect(err).To(Equal(internal.ErrTokenExpired))
		})

		It("rejects tampered tokens", func() {
			_, err := service.CheckResetToken(ctx, "not-a-token")
			Expect(err).To(Equal(internal.ErrInvalidToken))
		})
	})
})
