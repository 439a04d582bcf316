package postgres

import (
	"context"
	"errors"

	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewSiteRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

// FindByDomain returns nil, nil when no site serves domain.
func (r *Repository) FindByDomain(ctx context.Context, domain string) (*siteDatamodel.Site, error) {
	var s siteDatamodel.Site
	err := r.db.WithContext(ctx).First(&s, "domain = ?", domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSite stores s. A concurrent insert of the same domain is not an
// error; the stored row is loaded into s instead.
func (r *Repository) CreateSite(tx *gorm.DB, s *siteDatamodel.Site) error {
	res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "domain"}}, DoNothing: true}).Create(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var stored siteDatamodel.Site
	if err := tx.First(&stored, "domain = ?", s.Domain).Error; err != nil {
		return err
	}
	*s = stored
	return nil
}

// The Ensure methods load the settings row of siteID, creating it with the
// defaults on first use.

func (r *Repository) EnsureSiteSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.SiteSettings, error) {
	return ensure(tx, siteDatamodel.NewSiteSettings(siteID), siteID)
}

func (r *Repository) EnsureSocialSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.SocialSettings, error) {
	return ensure(tx, &siteDatamodel.SocialSettings{SiteID: siteID}, siteID)
}

func (r *Repository) EnsureAuthSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.AuthSettings, error) {
	return ensure(tx, siteDatamodel.NewAuthSettings(siteID), siteID)
}

func ensure[T any](tx *gorm.DB, defaults *T, siteID uuid.UUID) (*T, error) {
	var row T
	err := tx.Where("site_id = ?", siteID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "site_id"}}, DoNothing: true}).
		Omit(clause.Associations).Create(defaults).Error
	if err != nil {
		return nil, err
	}
	var stored T
	if err := tx.Where("site_id = ?", siteID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Save writes a settings row back without touching its site.
func (r *Repository) Save(tx *gorm.DB, row interface{}) error {
	return tx.Omit(clause.Associations).Save(row).Error
}
