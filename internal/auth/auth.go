package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*identity.User, error)
	Principal(ctx context.Context, userID uuid.UUID) (*internal.User, error)
	HashPassword(password string) (string, error)
	CheckPassword(user *identity.User, password string) bool
	ChangePassword(ctx context.Context, userID uuid.UUID, dto PasswordChangeDTO) (*identity.User, error)
	SetPassword(ctx context.Context, userID uuid.UUID, dto SetPasswordDTO) (*identity.User, error)
	ResetToken(user *identity.User) (string, error)
	RequestReset(ctx context.Context, dto ResetRequestDTO) (*identity.User, string, error)
	CheckResetToken(ctx context.Context, token string) (*identity.User, error)
	ConfirmReset(ctx context.Context, token string, dto SetPasswordDTO) (*identity.User, error)
}

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	Permissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// ResetClaims ties a reset link to the password it replaces: once the
// password changes the fingerprint no longer matches and the link dies.
type ResetClaims struct {
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

type Options struct {
	BcryptCost  int
	ResetSecret string
	ResetTTL    time.Duration
}
