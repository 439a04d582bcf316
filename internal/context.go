package internal

import (
	"context"
	"time"

	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/google/uuid"
)

type ctxKey string

const (
	ContextUserKey   ctxKey = "user"
	ContextTenantKey ctxKey = "tenant"
)

// User is the signed-in principal carried through a request.
type User struct {
	ID          uuid.UUID
	Email       string
	Name        string
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
	Permissions []string
}

func (u *User) String() string {
	if u.Name == "" {
		return "Unknown"
	}
	return u.Name
}

// HasPermission reports whether the user holds codename. Superusers hold every permission.
func (u *User) HasPermission(codename string) bool {
	if u == nil || !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == codename {
			return true
		}
	}
	return false
}

func (u *User) IsStaffMember() bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(ContextUserKey).(*User)
	return user, ok && user != nil
}

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

// Tenant is the site resolved for the current request along with its settings.
type Tenant struct {
	Site     *siteDatamodel.Site
	Settings *siteDatamodel.SiteSettings
	Social   *siteDatamodel.SocialSettings
	Auth     *siteDatamodel.AuthSettings
	Location *time.Location
}

func TenantFromContext(ctx context.Context) (*Tenant, bool) {
	if ctx == nil {
		return nil, false
	}
	tenant, ok := ctx.Value(ContextTenantKey).(*Tenant)
	return tenant, ok && tenant != nil
}

func ContextWithTenant(ctx context.Context, tenant *Tenant) context.Context {
	return context.WithValue(ctx, ContextTenantKey, tenant)
}

// LocationFromContext returns the tenant timezone, or UTC when none was resolved.
func LocationFromContext(ctx context.Context) *time.Location {
	if tenant, ok := TenantFromContext(ctx); ok && tenant.Location != nil {
		return tenant.Location
	}
	return time.UTC
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
