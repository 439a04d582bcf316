// Package seed installs the permission catalog and the starter catalog rows
// read from a YAML fixture file. Every step is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/frahmantamala/asset-management/internal/auth"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Titled struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Supplier struct {
	Title   string `yaml:"title"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Address string `yaml:"address"`
}

type Status struct {
	Title   string `yaml:"title"`
	Color   string `yaml:"color"`
	Request bool   `yaml:"request"`
}

type Group struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type Fixtures struct {
	Designations []Titled   `yaml:"designations"`
	Categories   []Titled   `yaml:"categories"`
	Departments  []Titled   `yaml:"departments"`
	Suppliers    []Supplier `yaml:"suppliers"`
	Statuses     []Status   `yaml:"statuses"`
	Groups       []Group    `yaml:"groups"`
}

// Load decodes fixtures, rejecting unknown keys so typos surface.
func Load(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixtures
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, logger: logger}
}

// Permissions inserts the codenames that are missing.
func (s *Seeder) Permissions(ctx context.Context) (int64, error) {
	perms := auth.Catalog()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "codename"}}, DoNothing: true}).
		Create(&perms)
	if res.Error != nil {
		return 0, fmt.Errorf("seed permissions: %w", res.Error)
	}
	s.logger.InfoContext(ctx, "Permissions: seeded", "inserted", res.RowsAffected)
	return res.RowsAffected, nil
}

// Fixtures inserts the catalog rows whose title is not taken yet. Groups
// that exist keep their permissions.
func (s *Seeder) Fixtures(ctx context.Context, f *Fixtures) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range f.Designations {
			if err := insert(tx, &identity.Designation{Title: d.Title, Description: d.Description, IsActive: true}); err != nil {
				return err
			}
		}
		for _, c := range f.Categories {
			if err := insert(tx, &assetDatamodel.Category{Title: c.Title, Description: c.Description, IsActive: true}); err != nil {
				return err
			}
		}
		for _, d := range f.Departments {
			if err := insert(tx, &assetDatamodel.Department{Title: d.Title, Description: d.Description, IsActive: true}); err != nil {
				return err
			}
		}
		for _, sp := range f.Suppliers {
			row := &assetDatamodel.Supplier{Title: sp.Title, Email: sp.Email, Phone: sp.Phone, Address: sp.Address, IsActive: true}
			if err := insert(tx, row); err != nil {
				return err
			}
		}
		for _, st := range f.Statuses {
			if err := insert(tx, &assetDatamodel.Status{Title: st.Title, Color: st.Color, Request: st.Request, IsActive: true}); err != nil {
				return err
			}
		}
		for _, g := range f.Groups {
			if err := s.group(ctx, tx, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func insert(tx *gorm.DB, row interface{}) error {
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "title"}}, DoNothing: true}).Create(row).Error
	if err != nil {
		return fmt.Errorf("seed %T: %w", row, err)
	}
	return nil
}

func (s *Seeder) group(ctx context.Context, tx *gorm.DB, g Group) error {
	var existing int64
	if err := tx.Model(&identity.Group{}).Where("name = ?", g.Name).Count(&existing).Error; err != nil {
		return fmt.Errorf("seed group %s: %w", g.Name, err)
	}
	if existing > 0 {
		s.logger.DebugContext(ctx, "group: already present", "name", g.Name)
		return nil
	}

	var perms []identity.Permission
	if len(g.Permissions) > 0 {
		if err := tx.Where("codename IN ?", g.Permissions).Find(&perms).Error; err != nil {
			return fmt.Errorf("seed group %s: %w", g.Name, err)
		}
		if len(perms) != len(g.Permissions) {
			return fmt.Errorf("seed group %s: unknown permission in %v", g.Name, g.Permissions)
		}
	}

	row := &identity.Group{Name: g.Name}
	if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("seed group %s: %w", g.Name, err)
	}
	if len(perms) > 0 {
		if err := tx.Model(row).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("seed group %s: %w", g.Name, err)
		}
	}
	return nil
}

// Superuser creates an active staff superuser with the given password hash.
func (s *Seeder) Superuser(ctx context.Context, email, name, hash string) (*identity.User, error) {
	var taken int64
	if err := s.db.WithContext(ctx).Model(&identity.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("a user with email %s already exists", email)
	}
	u := &identity.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	s.logger.InfoContext(ctx, "Superuser: created", "user_id", u.ID, "email", email)
	return u, nil
}
