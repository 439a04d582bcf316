package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errWrongOldPassword = internal.NewValidationFieldError("old_password",
	"Your old password was entered incorrectly. Please enter it again.", internal.ErrCodeInvalidCredentials)

type Service struct {
	repo        RepositoryAPI
	bcryptCost  int
	resetSecret []byte
	resetTTL    time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

func NewService(repo RepositoryAPI, opts Options, clk clock.Clock, logger *slog.Logger) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 3 * 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		bcryptCost:  opts.BcryptCost,
		resetSecret: []byte(opts.ResetSecret),
		resetTTL:    opts.ResetTTL,
		clock:       clk,
		logger:      logger,
	}
}

// Authenticate checks credentials and stamps the last login time.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*identity.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(dto.Email))
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if user == nil || !s.CheckPassword(user, dto.Password) {
		s.logger.InfoContext(ctx, "Authenticate: invalid credentials", "email", dto.Email)
		return nil, internal.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, internal.ErrUserInactive
	}

	now := s.clock.Now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "Authenticate: failed to record last login", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now
	return user, nil
}

// Principal loads the signed-in identity with its effective permissions.
// Inactive or missing users yield nil.
func (s *Service) Principal(ctx context.Context, userID uuid.UUID) (*internal.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	perms, err := s.repo.Permissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	return &internal.User{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		Permissions: perms,
	}, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) CheckPassword(user *identity.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, dto PasswordChangeDTO) (*identity.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	verr := dto.Validate()
	if dto.OldPassword != "" && !s.CheckPassword(user, dto.OldPassword) {
		verr = internal.MergeValidation(verr, errWrongOldPassword)
	}
	if verr != nil {
		return nil, verr
	}
	return user, s.storePassword(ctx, user, dto.Password1)
}

func (s *Service) SetPassword(ctx context.Context, userID uuid.UUID, dto SetPasswordDTO) (*identity.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, s.storePassword(ctx, user, dto.Password1)
}

func (s *Service) storePassword(ctx context.Context, user *identity.User, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}
	user.PasswordHash = hash
	s.logger.InfoContext(ctx, "storePassword: password updated", "user_id", user.ID)
	return nil
}

func (s *Service) getUser(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if user == nil {
		return nil, internal.ErrObjectNotFound
	}
	return user, nil
}

// ResetToken signs a password reset link for user.
func (s *Service) ResetToken(user *identity.User) (string, error) {
	now := s.clock.Now()
	claims := &ResetClaims{
		Fingerprint: fingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.resetTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetSecret)
}

// RequestReset returns a nil user for unknown or inactive addresses so the
// caller can answer the same way either way.
func (s *Service) RequestReset(ctx context.Context, dto ResetRequestDTO) (*identity.User, string, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(dto.Email))
	if err != nil {
		return nil, "", internal.NewInternalError("failed to load user", err)
	}
	if user == nil || !user.IsActive {
		return nil, "", nil
	}
	token, err := s.ResetToken(user)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to sign reset token", err)
	}
	return user, token, nil
}

func (s *Service) CheckResetToken(ctx context.Context, token string) (*identity.User, error) {
	claims := &ResetClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.resetSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if user == nil || !user.IsActive || claims.Fingerprint != fingerprint(user.PasswordHash) {
		return nil, internal.ErrInvalidToken
	}
	return user, nil
}

func (s *Service) ConfirmReset(ctx context.Context, token string, dto SetPasswordDTO) (*identity.User, error) {
	user, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return user, s.storePassword(ctx, user, dto.Password1)
}

func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
