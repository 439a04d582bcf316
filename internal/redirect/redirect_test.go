package redirect_test

import (
	"net/url"
	"testing"

	"github.com/frahmantamala/asset-management/internal/redirect"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRedirect(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redirect Suite")
}

type portalTarget struct{}

func (portalTarget) AddAnotherURL() string { return "/assetdash/requests/create" }
func (portalTarget) AbsoluteURL() string   { return "/assetdash/requests/update/1" }
func (portalTarget) ListURL() string       { return "/assetdash/requests" }

var _ = Describe("Resolve", func() {
	var target redirect.Routes

	BeforeEach(func() {
		target = redirect.Routes{Base: "/categories", ID: "42"}
	})

	It("should go to the list when no signal is present", func() {
		Expect(redirect.Resolve(url.Values{}, target)).To(Equal("/categories/list"))
	})

	It("should go to the create form on add another", func() {
		form := url.Values{redirect.AddAnother: {"Save and add another"}}
		Expect(redirect.Resolve(form, target)).To(Equal("/categories/create"))
	})

	It("should go to the edit form on continue", func() {
		form := url.Values{redirect.Continue: {"Save and continue editing"}}
		Expect(redirect.Resolve(form, target)).To(Equal("/categories/update/42"))
	})

	It("should prefer add another when both signals are present", func() {
		form := url.Values{redirect.AddAnother: {"x"}, redirect.Continue: {"y"}}
		Expect(redirect.Resolve(form, target)).To(Equal("/categories/create"))
	})

	It("should ignore empty signal values", func() {
		form := url.Values{redirect.AddAnother: {""}, redirect.Continue: {"y"}}
		Expect(redirect.Resolve(form, target)).To(Equal("/categories/update/42"))
	})

	It("should dispatch to custom targets", func() {
		Expect(redirect.Resolve(url.Values{}, portalTarget{})).To(Equal("/assetdash/requests"))
	})
})

var _ = Describe("SafeNext", func() {
	It("should keep local paths", func() {
		Expect(redirect.SafeNext("/users/list?page=2", "/")).To(Equal("/users/list?page=2"))
	})

	It("should reject other hosts", func() {
		Expect(redirect.SafeNext("https://evil.example", "/")).To(Equal("/"))
		Expect(redirect.SafeNext("//evil.example", "/")).To(Equal("/"))
	})

	It("should fall back on empty input", func() {
		Expect(redirect.SafeNext("", "/dashboard/")).To(Equal("/dashboard/"))
	})
})
