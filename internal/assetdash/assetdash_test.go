package assetdash_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/asset"
	"github.com/frahmantamala/asset-management/internal/assetdash"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditPostgres "github.com/frahmantamala/asset-management/internal/audit/postgres"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/catalog"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestAssetdash(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Assetdash Suite")
}

var _ = Describe("Portal", func() {
	var (
		db     *gorm.DB
		router chi.Router
		owner  *internal.User
		other  *internal.User
		now    time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		stored, err := testutil.CreateUser(db, "owner@example.com", "Owner", "Sturdy-pass-123", false, false)
		Expect(err).NotTo(HaveOccurred())
		owner = testutil.Principal(stored)
		stored, err = testutil.CreateUser(db, "other@example.com", "Other", "Sturdy-pass-123", false, false)
		Expect(err).NotTo(HaveOccurred())
		other = testutil.Principal(stored)

		now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		clk := clock.NewFake(now)
		logger := testutil.NewLogger()
		recorder := audit.NewRecorder(auditPostgres.NewLogRepository(db), nil, clk, logger)
		assets := asset.NewAssets(db, catalog.NewCategories(db), catalog.NewDepartments(db),
			catalog.NewSuppliers(db), catalog.NewStatuses(db), storage.NewMemory())
		svc := assetdash.NewService(db, asset.NewRequests(db, assets, clk), recorder, clk, logger)

		base := testutil.NewBaseHandler()
		router = chi.NewRouter()
		router.Route("/assetdash", func(r chi.Router) {
			assetdash.NewHandler(base, svc).Routes(r, auth.NewGate(base))
		})
	})

	do := func(method, target string, form url.Values, user *internal.User) (*httptest.ResponseRecorder, []string) {
		req, s := testutil.NewRequest(method, target, form, user)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec, testutil.FlashMessages(s)
	}

	seed := func(user *internal.User, details string, status assetDatamodel.RequestStatus) *assetDatamodel.Request {
		item := &assetDatamodel.Request{RequestedID: user.ID, Details: details, Status: status}
		Expect(db.Create(item).Error).To(Succeed())
		return item
	}

	It("sends anonymous visitors to login", func() {
		rec, _ := do(http.MethodGet, "/assetdash/", nil, nil)
		Expect(rec.Code).To(Equal(http.StatusFound))
		Expect(rec.Header().Get("Location")).To(HavePrefix(auth.LoginURL))
	})

	It("lists only the requests of the signed-in user", func() {
		seed(owner, "Need a laptop", assetDatamodel.RequestPending)
		seed(other, "Need a monitor", assetDatamodel.RequestPending)

		rec, _ := do(http.MethodGet, "/assetdash/requests", nil, owner)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Need a laptop"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("Need a monitor"))
	})

	It("summarises requests and issues on the landing page", func() {
		seed(owner, "Need a laptop", assetDatamodel.RequestPending)
		seed(owner, "Need a phone", assetDatamodel.RequestApproved)

		rec, _ := do(http.MethodGet, "/assetdash/", nil, owner)
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("lists the assets of approved requests", func() {
		laptop := &assetDatamodel.Asset{AssetID: "AST-1", Title: "Laptop", Price: 100}
		phone := &assetDatamodel.Asset{AssetID: "AST-2", Title: "Phone", Price: 50}
		Expect(db.Create(laptop).Error).To(Succeed())
		Expect(db.Create(phone).Error).To(Succeed())
		Expect(db.Create(&assetDatamodel.Request{RequestedID: owner.ID, AssetID: &laptop.ID, Status: assetDatamodel.RequestApproved}).Error).To(Succeed())
		Expect(db.Create(&assetDatamodel.Request{RequestedID: owner.ID, AssetID: &phone.ID, Status: assetDatamodel.RequestPending}).Error).To(Succeed())

		rec, _ := do(http.MethodGet, "/assetdash/assets", nil, owner)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("AST-1"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("AST-2"))
	})

	Describe("create", func() {
		It("stamps requester, date and status and records an Addition", func() {
			rec, flashes := do(http.MethodPost, "/assetdash/requests/create", url.Values{"details": {"Need a laptop"}}, owner)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(rec.Header().Get("Location")).To(Equal("/assetdash/requests"))
			Expect(flashes).To(ConsistOf("Asset Request created successfully"))

			var stored assetDatamodel.Request
			Expect(db.Take(&stored, "requested_id = ?", owner.ID).Error).To(Succeed())
			Expect(stored.Details).To(Equal("Need a laptop"))
			Expect(stored.Status).To(Equal(assetDatamodel.RequestPending))
			Expect(stored.RequestDate).NotTo(BeNil())
			Expect(stored.RequestDate.Equal(now)).To(BeTrue())

			var logs []auditDatamodel.LogEntry
			Expect(db.Find(&logs).Error).To(Succeed())
			Expect(logs).To(HaveLen(1))
			Expect(logs[0].Action).To(Equal(audit.Addition))
			Expect(logs[0].ActorID).To(HaveValue(Equal(owner.ID)))
		})

		It("requires details", func() {
			rec, _ := do(http.MethodPost, "/assetdash/requests/create", url.Values{"details": {"  "}}, owner)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("This field is required."))

			var n int64
			Expect(db.Model(&assetDatamodel.Request{}).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
		})
	})

	Describe("update", func() {
		It("changes a pending request", func() {
			item := seed(owner, "Need a laptop", assetDatamodel.RequestPending)

			rec, flashes := do(http.MethodPost, "/assetdash/requests/update/"+item.ID.String(), url.Values{"details": {"Need a faster laptop"}}, owner)
			Expect(rec.Code).To(Equal(http.StatusFound))
			Expect(flashes).To(ConsistOf("Asset Request updated successfully"))

			var stored assetDatamodel.Request
			Expect(db.Take(&stored, "id = ?", item.ID).Error).To(Succeed())
			Expect(stored.Details).To(Equal("Need a faster laptop"))

			var entry auditDatamodel.LogEntry
			Expect(db.Take(&entry).Error).To(Succeed())
			Expect(entry.Action).To(Equal(audit.Change))
			Expect(entry.Message).To(HavePrefix("[details] on "))
		})

		It("hides requests of other users", func() {
			item := seed(other, "Need a monitor", assetDatamodel.RequestPending)

			rec, _ := do(http.MethodGet, "/assetdash/requests/update/"+item.ID.String(), nil, owner)
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			rec, _ = do(http.MethodPost, "/assetdash/requests/update/"+item.ID.String(), url.Values{"details": {"mine now"}}, owner)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("refuses requests staff already handled", func() {
			item := seed(owner, "Need a laptop", assetDatamodel.RequestApproved)

			rec, _ := do(http.MethodPost, "/assetdash/requests/update/"+item.ID.String(), url.Values{"details": {"changed"}}, owner)
			Expect(rec.Code).To(Equal(http.StatusForbidden))

			var stored assetDatamodel.Request
			Expect(db.Take(&stored, "id = ?", item.ID).Error).To(Succeed())
			Expect(stored.Details).To(Equal("Need a laptop"))
		})
	})

	It("lists only the issues the user raised", func() {
		status := &assetDatamodel.Status{Title: "Broken"}
		Expect(db.Create(status).Error).To(Succeed())
		laptop := &assetDatamodel.Asset{AssetID: "AST-9", Title: "Laptop", Price: 100}
		Expect(db.Create(laptop).Error).To(Succeed())
		Expect(db.Omit("Asset", "Status", "RaisedBy").Create(&assetDatamodel.Issue{
			AssetID: laptop.ID, StatusID: status.ID, RaisedByID: owner.ID, Description: "Screen cracked",
		}).Error).To(Succeed())
		Expect(db.Omit("Asset", "Status", "RaisedBy").Create(&assetDatamodel.Issue{
			AssetID: laptop.ID, StatusID: status.ID, RaisedByID: other.ID, Description: "Battery dead",
		}).Error).To(Succeed())

		rec, _ := do(http.MethodGet, "/assetdash/issues", nil, owner)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Screen cracked"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("Battery dead"))
	})
})
