package catalog_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/catalog"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestCatalog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Catalog Suite")
}

func fieldErrors(err error) map[string][]string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
	return appErr.FieldErrors()
}

var _ = Describe("Catalog resources", func() {
	var (
		db  *gorm.DB
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	input := func(pairs ...string) forms.Input {
		values := url.Values{}
		for i := 0; i+1 < len(pairs); i += 2 {
			values.Add(pairs[i], pairs[i+1])
		}
		return forms.Input{Values: values}
	}

	Describe("Categories", func() {
		var categories *catalog.Categories

		BeforeEach(func() {
			categories = catalog.NewCategories(db)
			Expect(db.Create(&asset.Category{Title: "Laptops", IsActive: true}).Error).To(Succeed())
		})

		It("trims and binds a new title", func() {
			item := categories.New()
			Expect(categories.Bind(ctx, item, input("title", "  Monitors ", "is_active", "true"), nil, true)).To(Succeed())
			Expect(item.Title).To(Equal("Monitors"))
			Expect(item.IsActive).To(BeTrue())
		})

		It("rejects a title that is taken", func() {
			err := categories.Bind(ctx, categories.New(), input("title", "Laptops"), nil, true)
			Expect(fieldErrors(err)).To(HaveKeyWithValue("title", ConsistOf("Category with this Title already exists.")))
		})

		It("lets a row keep its own title", func() {
			var stored asset.Category
			Expect(db.Take(&stored, "title = ?", "Laptops").Error).To(Succeed())
			Expect(categories.Bind(ctx, &stored, input("title", "Laptops", "description", "Portable"), nil, false)).To(Succeed())
			Expect(stored.Description).To(Equal("Portable"))
		})

		It("requires a title", func() {
			err := categories.Bind(ctx, categories.New(), input("title", "   "), nil, true)
			Expect(fieldErrors(err)).To(HaveKey("title"))
		})

		It("offers only active categories", func() {
			Expect(db.Create(&asset.Category{Title: "Retired"}).Error).To(Succeed())

			options, err := categories.Options(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(HaveLen(1))
			Expect(options[0].Label).To(Equal("Laptops"))
		})

		It("snapshots fields in form order", func() {
			item := &asset.Category{Title: "Laptops", Description: "Portable", IsActive: true}
			names := []string{}
			for _, f := range categories.Snapshot(item) {
				names = append(names, f.Name)
			}
			Expect(names).To(Equal([]string{"title", "description", "is_active"}))
		})
	})

	Describe("Suppliers", func() {
		It("validates the email and the title together", func() {
			suppliers := catalog.NewSuppliers(db)
			Expect(db.Create(&asset.Supplier{Title: "Acme"}).Error).To(Succeed())

			err := suppliers.Bind(ctx, suppliers.New(), input("title", "Acme", "email", "not-an-email"), nil, true)
			errs := fieldErrors(err)
			Expect(errs).To(HaveKey("email"))
			Expect(errs).To(HaveKeyWithValue("title", ConsistOf("Supplier with this Title already exists.")))
		})
	})

	Describe("Statuses", func() {
		It("accepts a hex color and rejects anything else", func() {
			statuses := catalog.NewStatuses(db)

			item := statuses.New()
			Expect(statuses.Bind(ctx, item, input("title", "Available", "color", "#15a362", "request", "true"), nil, true)).To(Succeed())
			Expect(item.Request).To(BeTrue())

			err := statuses.Bind(ctx, statuses.New(), input("title", "Broken", "color", "red"), nil, true)
			Expect(fieldErrors(err)).To(HaveKey("color"))
		})
	})

	Describe("Departments", func() {
		It("rejects a duplicate title", func() {
			departments := catalog.NewDepartments(db)
			Expect(db.Create(&asset.Department{Title: "Finance"}).Error).To(Succeed())

			err := departments.Bind(ctx, departments.New(), input("title", "Finance"), nil, true)
			Expect(fieldErrors(err)).To(HaveKeyWithValue("title", ConsistOf("Department with this Title already exists.")))
		})
	})
})
