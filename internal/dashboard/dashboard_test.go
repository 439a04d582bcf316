package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/dashboard"
	dashboardPostgres "github.com/frahmantamala/asset-management/internal/dashboard/postgres"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestDashboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Suite")
}

var _ = Describe("Dashboard", func() {
	var (
		db        *gorm.DB
		svc       *dashboard.Service
		router    chi.Router
		requester *identity.User
		root      *internal.User
		staff     *internal.User
		now       time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		requester, err = testutil.CreateUser(db, "user@example.com", "User", "Sturdy-pass-123", false, false)
		Expect(err).NotTo(HaveOccurred())
		stored, err := testutil.CreateUser(db, "root@example.com", "Root", "Sturdy-pass-123", true, true)
		Expect(err).NotTo(HaveOccurred())
		root = testutil.Principal(stored)
		stored, err = testutil.CreateUser(db, "staff@example.com", "Staff", "Sturdy-pass-123", true, false)
		Expect(err).NotTo(HaveOccurred())
		staff = testutil.Principal(stored)

		now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		repo := dashboardPostgres.NewDashboardRepository(sqlx.NewDb(sqlDB, "sqlite3"))
		svc = dashboard.NewService(repo, clock.NewFake(now), testutil.NewLogger())

		base := testutil.NewBaseHandler()
		router = chi.NewRouter()
		router.Route("/dashboard", func(r chi.Router) {
			dashboard.NewHandler(base, svc).Routes(r, auth.NewGate(base))
		})
	})

	request := func(at time.Time) {
		Expect(db.Create(&assetDatamodel.Request{RequestedID: requester.ID, CreatedAt: at.UTC()}).Error).To(Succeed())
	}

	withLocation := func(name string) context.Context {
		loc, err := time.LoadLocation(name)
		Expect(err).NotTo(HaveOccurred())
		return internal.ContextWithTenant(context.Background(), &internal.Tenant{Location: loc})
	}

	It("counts the rows of every entity", func() {
		Expect(db.Create(&identity.Group{Name: "Operators"}).Error).To(Succeed())

		counts, err := svc.Counts(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(HaveLen(8))
		Expect(counts[0]).To(Equal(dashboard.Count{Label: "Users", URL: "/users/list", Count: 3}))
		Expect(counts[2].Count).To(Equal(int64(1)))
		Expect(counts[3].Count).To(BeZero())
	})

	Describe("Chart", func() {
		It("fills days without requests with zero", func() {
			request(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
			request(time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC))
			request(time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC))
			request(time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC))

			points, err := svc.Chart(withLocation("UTC"), "2026-03-01", "2026-03-05")
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(Equal([]dashboard.Point{
				{Date: "2026-03-01", Count: 0},
				{Date: "2026-03-02", Count: 2},
				{Date: "2026-03-03", Count: 0},
				{Date: "2026-03-04", Count: 1},
				{Date: "2026-03-05", Count: 0},
			}))
		})

		It("treats equal bounds as a single day", func() {
			request(time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC))

			points, err := svc.Chart(withLocation("UTC"), "2026-03-02", "2026-03-02")
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(Equal([]dashboard.Point{{Date: "2026-03-02", Count: 1}}))
		})

		It("buckets by the site timezone", func() {
			request(time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC))

			points, err := svc.Chart(withLocation("Asia/Karachi"), "2026-03-02", "2026-03-03")
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(Equal([]dashboard.Point{
				{Date: "2026-03-02", Count: 0},
				{Date: "2026-03-03", Count: 1},
			}))
		})

		It("defaults to the last week", func() {
			points, err := svc.Chart(withLocation("UTC"), "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(7))
			Expect(points[0].Date).To(Equal("2026-03-04"))
			Expect(points[6].Date).To(Equal("2026-03-10"))
		})

		It("rejects malformed and reversed ranges", func() {
			_, err := svc.Chart(withLocation("UTC"), "March", "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("start"))

			_, err = svc.Chart(withLocation("UTC"), "2026-03-05", "2026-03-01")
			appErr, ok = internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.FieldErrors()).To(HaveKey("end"))
		})
	})

	Describe("Handler", func() {
		do := func(target string, principal *internal.User) *httptest.ResponseRecorder {
			req, _ := testutil.NewRequest(http.MethodGet, target, nil, principal)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		It("shows the dashboard to superusers only", func() {
			rec := do("/dashboard/", root)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("Asset Statuses"))

			rec = do("/dashboard/", staff)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal(auth.PortalURL))
		})

		It("serves the chart as JSON", func() {
			request(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

			rec := do("/dashboard/asset-requests/chart?start=2026-03-01&end=2026-03-02", staff)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var body struct {
				Data []dashboard.Point `json:"data"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Data).To(Equal([]dashboard.Point{
				{Date: "2026-03-01", Count: 0},
				{Date: "2026-03-02", Count: 1},
			}))

			rec = do("/dashboard/asset-requests/chart?start=nope", staff)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
