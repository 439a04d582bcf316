package site_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-management/internal/audit/postgres"
	"github.com/frahmantamala/asset-management/internal/auth"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/site"
	sitePostgres "github.com/frahmantamala/asset-management/internal/site/postgres"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestSite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Site Suite")
}

var _ = Describe("Site", func() {
	var (
		db     *gorm.DB
		svc    *site.Service
		router chi.Router
		admin  *internal.User
		viewer *internal.User
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()

		stored, err := testutil.CreateUser(db, "admin@example.com", "Admin", "Sturdy-pass-123", true, false)
		Expect(err).NotTo(HaveOccurred())
		admin = testutil.Principal(stored,
			"site_settings.view", "site_settings.change",
			"social_settings.view", "social_settings.change",
			"auth_settings.view", "auth_settings.change",
		)
		viewer = testutil.Principal(stored, "site_settings.view")

		logger := testutil.NewLogger()
		recorder := audit.NewRecorder(auditPostgres.NewLogRepository(db), nil, clock.NewFake(time.Now()), logger)
		svc = site.NewService(sitePostgres.NewSiteRepository(db), site.Defaults{
			Domain:   "example.com",
			Name:     "Assets",
			Timezone: "UTC",
		}, recorder, storage.NewMemory(), logger)

		base := testutil.NewBaseHandler()
		handler := site.NewHandler(base, svc)
		gate := auth.NewGate(base)

		router = chi.NewRouter()
		router.Use(site.Middleware(svc, base))
		router.Use(site.Maintenance())
		router.Get(site.UnderConstructionURL, handler.UnderConstruction)
		router.Get("/account/login", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		router.Get("/assets/list", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		router.Route("/settings", func(r chi.Router) {
			handler.Routes(r, gate)
		})
	})

	do := func(method, target string, form url.Values, principal *internal.User) (*httptest.ResponseRecorder, []string) {
		req, s := testutil.NewRequest(method, target, form, principal)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec, testutil.FlashMessages(s)
	}

	settingsOf := func(domain string) *siteDatamodel.SiteSettings {
		var s siteDatamodel.Site
		Expect(db.First(&s, "domain = ?", domain).Error).To(Succeed())
		var out siteDatamodel.SiteSettings
		Expect(db.First(&out, "site_id = ?", s.ID).Error).To(Succeed())
		return &out
	}

	siteForm := func(overrides map[string]string) url.Values {
		form := url.Values{
			"display_name": {"Assets"},
			"domain_name":  {"example.com"},
			"timezone":     {"UTC"},
			"color":        {"#15a362"},
			"user_bar":     {"true"},
			"user_logs":    {"true"},
			"message":      {siteDatamodel.DefaultMessage},
		}
		for k, v := range overrides {
			form.Set(k, v)
		}
		return form
	}

	Describe("Resolve", func() {
		It("creates the default site with its settings on first use", func() {
			tenant, err := svc.Resolve(ctx, "unknown.test:8000")
			Expect(err).NotTo(HaveOccurred())
			Expect(tenant.Site.Domain).To(Equal("example.com"))
			Expect(tenant.Settings.Color).To(Equal(siteDatamodel.DefaultColor))
			Expect(tenant.Social).NotTo(BeNil())
			Expect(tenant.Auth.ActivationDays).To(Equal(7))
			Expect(tenant.Location).To(Equal(time.UTC))

			var sites int64
			Expect(db.Model(&siteDatamodel.Site{}).Count(&sites).Error).To(Succeed())
			Expect(sites).To(Equal(int64(1)))

			_, err = svc.Resolve(ctx, "other.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&siteDatamodel.Site{}).Count(&sites).Error).To(Succeed())
			Expect(sites).To(Equal(int64(1)))
		})

		It("matches the host without its port", func() {
			created, err := svc.CreateSite(ctx, "Branch.Example.com", "Branch")
			Expect(err).NotTo(HaveOccurred())

			tenant, err := svc.Resolve(ctx, "branch.example.com:8080")
			Expect(err).NotTo(HaveOccurred())
			Expect(tenant.Site.ID).To(Equal(created.ID))
			Expect(tenant.Site.Name).To(Equal("Branch"))
		})

		It("recreates missing settings rows", func() {
			created, err := svc.CreateSite(ctx, "branch.example.com", "Branch")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Where("site_id = ?", created.ID).Delete(&siteDatamodel.AuthSettings{}).Error).To(Succeed())

			tenant, err := svc.Resolve(ctx, "branch.example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(tenant.Auth.SiteID).To(Equal(created.ID))
			Expect(tenant.Auth.RegistrationOpen).To(BeTrue())
		})

		It("uses the site timezone for the request location", func() {
			_, err := svc.Resolve(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&siteDatamodel.SiteSettings{}).Where("1 = 1").Update("timezone", "Asia/Karachi").Error).To(Succeed())

			tenant, err := svc.Resolve(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(tenant.Location.String()).To(Equal("Asia/Karachi"))
		})

		It("falls back to the configured timezone for an unknown one", func() {
			_, err := svc.Resolve(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&siteDatamodel.SiteSettings{}).Where("1 = 1").Update("timezone", "Mars/Olympus").Error).To(Succeed())

			tenant, err := svc.Resolve(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(tenant.Location).To(Equal(time.UTC))
		})
	})

	Describe("Maintenance", func() {
		BeforeEach(func() {
			_, err := svc.Resolve(ctx, "example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Model(&siteDatamodel.SiteSettings{}).Where("1 = 1").Updates(map[string]interface{}{
				"under_construction": true,
				"message":            "Back at noon.",
			}).Error).To(Succeed())
		})

		It("redirects visitors to the under-construction page", func() {
			rec, _ := do(http.MethodGet, "/assets/list", nil, nil)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal(site.UnderConstructionURL))

			rec, _ = do(http.MethodGet, "/assets/list", nil, admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
		})

		It("keeps the login and notice pages reachable", func() {
			rec, _ := do(http.MethodGet, "/account/login", nil, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec, _ = do(http.MethodGet, site.UnderConstructionURL, nil, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Back at noon."))
		})

		It("lets superusers through", func() {
			stored, err := testutil.CreateUser(db, "root@example.com", "Root", "Sturdy-pass-123", true, true)
			Expect(err).NotTo(HaveOccurred())

			rec, _ := do(http.MethodGet, "/assets/list", nil, testutil.Principal(stored))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("Site settings", func() {
		It("renders the current values", func() {
			rec, _ := do(http.MethodGet, site.SiteSettingsURL, nil, admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(siteDatamodel.DefaultColor))
		})

		It("requires a message while under construction", func() {
			rec, _ := do(http.MethodPost, site.SiteSettingsURL, siteForm(map[string]string{
				"under_construction": "true",
				"message":            "",
			}), admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Please write under construction message."))
			Expect(settingsOf("example.com").UnderConstruction).To(BeFalse())
		})

		It("rejects a malformed color and timezone", func() {
			rec, _ := do(http.MethodPost, site.SiteSettingsURL, siteForm(map[string]string{
				"color":    "green",
				"timezone": "Mars/Olympus",
			}), admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Enter a valid color."))
			Expect(rec.Body.String()).To(ContainSubstring("Select a valid timezone."))
		})

		It("saves the changes and records them", func() {
			rec, flashes := do(http.MethodPost, site.SiteSettingsURL, siteForm(map[string]string{
				"display_name": "Head Office",
				"color":        "#000000",
			}), admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal(site.SiteSettingsURL))
			Expect(flashes).To(ContainElement("Head Office was updated successfully!"))
			Expect(settingsOf("example.com").Color).To(Equal("#000000"))

			var entry auditDatamodel.LogEntry
			Expect(db.First(&entry, "entity = ?", auth.EntitySiteSettings).Error).To(Succeed())
			Expect(entry.Action).To(Equal(audit.Change))
			Expect(entry.ActorID).To(HaveValue(Equal(admin.ID)))
			Expect(entry.Message).To(Equal("[display_name, color] on Head Office"))
		})

		It("refuses a domain served by another site", func() {
			_, err := svc.CreateSite(ctx, "branch.example.com", "Branch")
			Expect(err).NotTo(HaveOccurred())

			rec, _ := do(http.MethodPost, site.SiteSettingsURL, siteForm(map[string]string{
				"domain_name": "branch.example.com",
			}), admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Site with this Domain name already exists."))
		})

		It("does not record an unchanged form", func() {
			rec, flashes := do(http.MethodPost, site.SiteSettingsURL, siteForm(nil), admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(flashes).To(ContainElement("Assets was updated successfully!"))

			var n int64
			Expect(db.Model(&auditDatamodel.LogEntry{}).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
		})

		It("needs the change permission to save", func() {
			rec, _ := do(http.MethodGet, site.SiteSettingsURL, nil, viewer)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec, _ = do(http.MethodPost, site.SiteSettingsURL, siteForm(nil), viewer)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("sends visitors to the login page", func() {
			rec, _ := do(http.MethodGet, site.SiteSettingsURL, nil, nil)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(HavePrefix(auth.LoginURL))
		})
	})

	Describe("Social settings", func() {
		It("validates the links", func() {
			rec, _ := do(http.MethodPost, site.SocialSettingsURL, url.Values{"facebook": {"not a url"}}, admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Enter a valid URL."))
		})

		It("saves the links", func() {
			rec, flashes := do(http.MethodPost, site.SocialSettingsURL, url.Values{"youtube": {"https://youtube.com/@assets"}}, admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(flashes).To(ContainElement("Social settings was updated successfully!"))

			var social siteDatamodel.SocialSettings
			Expect(db.First(&social).Error).To(Succeed())
			Expect(social.Youtube).To(Equal("https://youtube.com/@assets"))
		})
	})

	Describe("Authentication settings", func() {
		It("requires at least one activation day", func() {
			rec, _ := do(http.MethodPost, site.AuthSettingsURL, url.Values{"activation_days": {"0"}}, admin)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Ensure this value is greater than or equal to 1."))
		})

		It("saves the flags", func() {
			rec, flashes := do(http.MethodPost, site.AuthSettingsURL, url.Values{
				"activation_days":         {"3"},
				"registration_auto_login": {"true"},
			}, admin)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(flashes).To(ContainElement("Authentication settings was updated successfully!"))

			var stored siteDatamodel.AuthSettings
			Expect(db.First(&stored).Error).To(Succeed())
			Expect(stored.ActivationDays).To(Equal(3))
			Expect(stored.RegistrationAutoLogin).To(BeTrue())
			Expect(stored.RegistrationOpen).To(BeFalse())
			Expect(stored.SendActivationEmail).To(BeFalse())
		})
	})
})
