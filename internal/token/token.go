// Package token issues the single-use links sent with invitations and
// account activation mails.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	Invite     = identity.TokenTypeInvite
	Activation = identity.TokenTypeActivation

	DefaultAttempts  = 5
	DefaultInviteTTL = 7 * 24 * time.Hour

	defaultActivationDays = 7
)

var ErrTokenExhausted = internal.NewConflictError("could not generate a unique token", internal.ErrCodeTokenExhausted)

type RepositoryAPI interface {
	Exists(tx *gorm.DB, token string) (bool, error)
	// Replace stores row as the only token of its user.
	Replace(tx *gorm.DB, row *identity.UserToken) error
	Find(ctx context.Context, token string, typ identity.TokenType) (*identity.UserToken, error)
	Delete(tx *gorm.DB, id uuid.UUID) (int64, error)
}

type Options struct {
	Attempts  int
	InviteTTL time.Duration
	// Generate replaces the random generator; nil keeps crypto/rand.
	Generate func() (string, error)
}

type Service struct {
	repo     RepositoryAPI
	attempts int
	ttl      time.Duration
	generate func() (string, error)
	clock    clock.Clock
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, opts Options, clk clock.Clock, logger *slog.Logger) *Service {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = DefaultInviteTTL
	}
	if opts.Generate == nil {
		opts.Generate = randomToken
	}
	return &Service{
		repo:     repo,
		attempts: opts.Attempts,
		ttl:      opts.InviteTTL,
		generate: opts.Generate,
		clock:    clk,
		logger:   logger,
	}
}

// Make issues a token of typ for userID inside tx. A generated value that is
// already taken is drawn again, at most the configured number of times.
func (s *Service) Make(ctx context.Context, tx *gorm.DB, userID uuid.UUID, typ identity.TokenType) (*identity.UserToken, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, internal.NewInternalError("failed to generate token", err)
		}
		taken, err := s.repo.Exists(tx, value)
		if err != nil {
			return nil, internal.NewInternalError("failed to check token", err)
		}
		if taken {
			s.logger.WarnContext(ctx, "Make: token collision", "user_id", userID, "attempt", attempt)
			continue
		}

		row := &identity.UserToken{
			UserID:  userID,
			Token:   value,
			Type:    typ,
			Expires: s.clock.Now().Add(s.validity(ctx, typ)),
		}
		if err := s.repo.Replace(tx, row); err != nil {
			return nil, internal.NewInternalError("failed to store token", err)
		}
		return row, nil
	}
	s.logger.ErrorContext(ctx, "Make: gave up generating a unique token", "user_id", userID, "attempts", s.attempts)
	return nil, ErrTokenExhausted
}

// validity is the configured invite lifetime, or the tenant's activation
// days for activation links.
func (s *Service) validity(ctx context.Context, typ identity.TokenType) time.Duration {
	if typ != Activation {
		return s.ttl
	}
	days := defaultActivationDays
	if tenant, ok := internal.TenantFromContext(ctx); ok && tenant.Auth != nil && tenant.Auth.ActivationDays > 0 {
		days = tenant.Auth.ActivationDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Check returns the live token row with its user. Unknown, expired and
// mistyped tokens all fail the same way.
func (s *Service) Check(ctx context.Context, value string, typ identity.TokenType) (*identity.UserToken, error) {
	if value == "" {
		return nil, internal.ErrInvalidToken
	}
	row, err := s.repo.Find(ctx, value, typ)
	if err != nil {
		return nil, internal.NewInternalError("failed to load token", err)
	}
	if row == nil || !row.Expires.After(s.clock.Now()) {
		return nil, internal.ErrInvalidToken
	}
	return row, nil
}

// Consume deletes row so it cannot be redeemed again. When another
// redemption got there first it fails like an unknown token, so the caller's
// transaction rolls back.
func (s *Service) Consume(tx *gorm.DB, row *identity.UserToken) error {
	n, err := s.repo.Delete(tx, row.ID)
	if err != nil {
		return internal.NewInternalError("failed to consume token", err)
	}
	if n == 0 {
		return internal.ErrInvalidToken
	}
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
