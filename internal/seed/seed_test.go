package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/frahmantamala/asset-management/internal/auth"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/seed"
	"github.com/frahmantamala/asset-management/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestSeed(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Seed Suite")
}

const fixtures = `
categories:
  - title: Laptops
    description: Portable computers
statuses:
  - title: Available
    color: "#15a362"
    request: true
groups:
  - name: Viewers
    permissions: [asset.view, asset_request.view]
`

var _ = Describe("Seeder", func() {
	var (
		db     *gorm.DB
		seeder *seed.Seeder
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		seeder = seed.New(db, testutil.NewLogger())
		ctx = context.Background()
	})

	It("installs the permission catalog once", func() {
		n, err := seeder.Permissions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(len(auth.Catalog()))))

		n, err = seeder.Permissions(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("rejects unknown keys", func() {
		_, err := seed.Load(strings.NewReader("categorys:\n  - title: Laptops\n"))
		Expect(err).To(HaveOccurred())
	})

	It("seeds fixtures idempotently", func() {
		_, err := seeder.Permissions(ctx)
		Expect(err).NotTo(HaveOccurred())
		f, err := seed.Load(strings.NewReader(fixtures))
		Expect(err).NotTo(HaveOccurred())

		Expect(seeder.Fixtures(ctx, f)).To(Succeed())
		Expect(seeder.Fixtures(ctx, f)).To(Succeed())

		var categories []assetDatamodel.Category
		Expect(db.Find(&categories).Error).To(Succeed())
		Expect(categories).To(HaveLen(1))
		Expect(categories[0].IsActive).To(BeTrue())

		var status assetDatamodel.Status
		Expect(db.Take(&status, "title = ?", "Available").Error).To(Succeed())
		Expect(status.Request).To(BeTrue())

		var group identity.Group
		Expect(db.Preload("Permissions").Take(&group, "name = ?", "Viewers").Error).To(Succeed())
		codenames := make([]string, 0, len(group.Permissions))
		for _, p := range group.Permissions {
			codenames = append(codenames, p.Codename)
		}
		Expect(codenames).To(ConsistOf("asset.view", "asset_request.view"))
	})

	It("fails on a permission that was never seeded", func() {
		f, err := seed.Load(strings.NewReader(fixtures))
		Expect(err).NotTo(HaveOccurred())
		Expect(seeder.Fixtures(ctx, f)).NotTo(Succeed())

		var n int64
		Expect(db.Model(&assetDatamodel.Category{}).Count(&n).Error).To(Succeed())
		Expect(n).To(BeZero())
	})

	It("creates a superuser and refuses a taken email", func() {
		u, err := seeder.Superuser(ctx, "root@example.com", "Root", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.IsSuperuser).To(BeTrue())
		Expect(u.IsStaff).To(BeTrue())

		_, err = seeder.Superuser(ctx, "root@example.com", "Root", "hash")
		Expect(err).To(HaveOccurred())
	})
})
