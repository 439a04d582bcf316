// Package testutil holds fixtures shared by package test suites.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/datamodel"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport"
	"github.com/frahmantamala/asset-management/internal/transport/web"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory sqlite database. The pool is pinned to one
// connection because every sqlite :memory: connection is its own database.
func NewDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(datamodel.All()...); err != nil {
		return nil, err
	}
	return db, nil
}

func NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// CreateUser stores an active user with the given password.
func CreateUser(db *gorm.DB, email, name, password string, staff, superuser bool) (*identity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &identity.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		IsActive:     true,
		IsStaff:      staff,
		IsSuperuser:  superuser,
	}
	return u, db.Create(u).Error
}

// Principal builds the request principal for u with the given codenames.
func Principal(u *identity.User, permissions ...string) *internal.User {
	return &internal.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Permissions: permissions,
	}
}

func NewBaseHandler() *transport.BaseHandler {
	renderer, err := web.NewRenderer()
	if err != nil {
		panic(err)
	}
	return transport.NewBaseHandler(NewLogger(), renderer)
}

// NewRequest builds a request carrying a fresh session and, when user is not
// nil, the signed-in principal. A non-nil form is sent urlencoded.
func NewRequest(method, target string, form url.Values, user *internal.User) (*http.Request, *session.Session) {
	req := httptest.NewRequest(method, target, nil)
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	s := &session.Session{}
	ctx := session.WithSession(req.Context(), s)
	if user != nil {
		ctx = internal.ContextWithUser(ctx, user)
	}
	return req.WithContext(ctx), s
}

// FlashMessages returns the texts of the flashes queued on s.
func FlashMessages(s *session.Session) []string {
	out := make([]string, 0, len(s.Data.Flashes))
	for _, f := range s.Data.Flashes {
		out = append(out, f.Message)
	}
	return out
}

// SeedPermissions installs the full permission catalog.
func SeedPermissions(db *gorm.DB) error {
	perms := auth.Catalog()
	return db.Create(&perms).Error
}
