package token_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/testutil"
	"github.com/frahmantamala/asset-management/internal/token"
	"github.com/frahmantamala/asset-management/internal/token/postgres"
	"github.com/frahmantamala/asset-management/pkg/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestToken(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Token Suite")
}

// sequence hands out the given values in order, then repeats the last one.
func sequence(values ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	}
}

var _ = Describe("Service", func() {
	var (
		db    *gorm.DB
		clk   *clock.Fake
		ctx   context.Context
		alice *identity.User
		bob   *identity.User
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		clk = clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		ctx = context.Background()
		alice, err = testutil.CreateUser(db, "alice@example.com", "Alice", "secret-pass", false, false)
		Expect(err).NotTo(HaveOccurred())
		bob, err = testutil.CreateUser(db, "bob@example.com", "Bob", "secret-pass", false, false)
		Expect(err).NotTo(HaveOccurred())
	})

	newService := func(opts token.Options) *token.Service {
		return token.NewService(postgres.NewTokenRepository(db), opts, clk, testutil.NewLogger())
	}

	It("issues 32 hex characters valid for seven days", func() {
		svc := newService(token.Options{})
		row, err := svc.Make(ctx, db, alice.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())
		Expect(row.Token).To(MatchRegexp(`^[0-9a-f]{32}$`))
		Expect(row.Expires).To(Equal(clk.Now().Add(7 * 24 * time.Hour)))
	})

	It("uses the site activation days for activation links", func() {
		svc := newService(token.Options{})
		tenantCtx := internal.ContextWithTenant(ctx, &internal.Tenant{Auth: &siteDatamodel.AuthSettings{ActivationDays: 2}})
		row, err := svc.Make(tenantCtx, db, alice.ID, token.Activation)
		Expect(err).NotTo(HaveOccurred())
		Expect(row.Expires).To(Equal(clk.Now().Add(48 * time.Hour)))
	})

	It("keeps a single token per user", func() {
		svc := newService(token.Options{})
		first, err := svc.Make(ctx, db, alice.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Make(ctx, db, alice.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())

		var count int64
		Expect(db.Model(&identity.UserToken{}).Where("user_id = ?", alice.ID).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))

		_, err = svc.Check(ctx, first.Token, token.Invite)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("draws again after a collision", func() {
		svc := newService(token.Options{Generate: sequence("aaaa", "aaaa", "bbbb")})
		_, err := svc.Make(ctx, db, alice.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())

		row, err := svc.Make(ctx, db, bob.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())
		Expect(row.Token).To(Equal("bbbb"))
	})

	It("gives up after the configured attempts", func() {
		calls := 0
		generate := func() (string, error) {
			calls++
			return "same", nil
		}
		svc := newService(token.Options{Attempts: 3, Generate: generate})
		_, err := svc.Make(ctx, db, alice.ID, token.Invite)
		Expect(err).NotTo(HaveOccurred())
		calls = 0

		_, err = svc.Make(ctx, db, bob.ID, token.Invite)
		Expect(err).To(MatchError(token.ErrTokenExhausted))
		Expect(calls).To(Equal(3))
	})

	It("reports generator failures as internal errors", func() {
		svc := newService(token.Options{Generate: func() (string, error) {
			return "", fmt.Errorf("entropy exhausted")
		}})
		_, err := svc.Make(ctx, db, alice.ID, token.Invite)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
	})

	Describe("Check", func() {
		var row *identity.UserToken

		BeforeEach(func() {
			var err error
			row, err = newService(token.Options{}).Make(ctx, db, alice.ID, token.Invite)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the row with its user", func() {
			found, err := newService(token.Options{}).Check(ctx, row.Token, token.Invite)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.User.Email).To(Equal("alice@example.com"))
		})

		It("rejects the wrong type", func() {
			_, err := newService(token.Options{}).Check(ctx, row.Token, token.Activation)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("rejects expired tokens like unknown ones", func() {
			clk.Advance(7*24*time.Hour + time.Second)
			_, err := newService(token.Options{}).Check(ctx, row.Token, token.Invite)
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			_, err = newService(token.Options{}).Check(ctx, "unknown", token.Invite)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("fails after the token is consumed", func() {
			svc := newService(token.Options{})
			Expect(svc.Consume(db, row)).To(Succeed())
			_, err := svc.Check(ctx, row.Token, token.Invite)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("lets only one of two concurrent redemptions consume the token", func() {
			svc := newService(token.Options{})
			first, err := svc.Check(ctx, row.Token, token.Invite)
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Check(ctx, row.Token, token.Invite)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Consume(db, first)).To(Succeed())
			Expect(svc.Consume(db, second)).To(MatchError(internal.ErrInvalidToken))
		})

		It("rolls back the losing transaction", func() {
			svc := newService(token.Options{})
			stale, err := svc.Check(ctx, row.Token, token.Invite)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Consume(db, row)).To(Succeed())

			err = db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&identity.User{}).Where("id = ?", alice.ID).Update("name", "Mallory").Error; err != nil {
					return err
				}
				return svc.Consume(tx, stale)
			})
			Expect(err).To(MatchError(internal.ErrInvalidToken))

			var stored identity.User
			Expect(db.Take(&stored, "id = ?", alice.ID).Error).To(Succeed())
			Expect(stored.Name).To(Equal("Alice"))
		})
	})
})
