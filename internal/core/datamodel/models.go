package datamodel

import (
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	sessionDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/session"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
)

// All returns every persisted model in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&identity.Permission{},
		&identity.Designation{},
		&identity.Group{},
		&identity.User{},
		&identity.UserToken{},
		&siteDatamodel.Site{},
		&siteDatamodel.SiteSettings{},
		&siteDatamodel.SocialSettings{},
		&siteDatamodel.AuthSettings{},
		&assetDatamodel.Category{},
		&assetDatamodel.Department{},
		&assetDatamodel.Supplier{},
		&assetDatamodel.Status{},
		&assetDatamodel.Asset{},
		&assetDatamodel.Request{},
		&assetDatamodel.Issue{},
		&auditDatamodel.LogEntry{},
		&sessionDatamodel.Session{},
	}
}
