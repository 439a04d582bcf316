package site

import (
	"context"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"gorm.io/gorm"
)

const brandingFolder = "site"

func invalidInput(err error) *internal.AppError {
	return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
}

// The settings rows are loaded fresh for every edit so a form never writes
// back a copy cached on the request.

func (s *Service) SiteSettings(ctx context.Context, tenant *internal.Tenant) (*siteDatamodel.SiteSettings, error) {
	var row *siteDatamodel.SiteSettings
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.repo.EnsureSiteSettings(tx, tenant.Site.ID)
		return err
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to load site settings", err)
	}
	return row, nil
}

func (s *Service) SocialSettings(ctx context.Context, tenant *internal.Tenant) (*siteDatamodel.SocialSettings, error) {
	var row *siteDatamodel.SocialSettings
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.repo.EnsureSocialSettings(tx, tenant.Site.ID)
		return err
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to load social settings", err)
	}
	return row, nil
}

func (s *Service) AuthSettings(ctx context.Context, tenant *internal.Tenant) (*siteDatamodel.AuthSettings, error) {
	var row *siteDatamodel.AuthSettings
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.repo.EnsureAuthSettings(tx, tenant.Site.ID)
		return err
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to load authentication settings", err)
	}
	return row, nil
}

// UpdateSiteSettings applies the site form, which also renames the site and
// moves it to another domain. The returned rows carry the submitted values
// even when validation fails.
func (s *Service) UpdateSiteSettings(ctx context.Context, tenant *internal.Tenant, in forms.Input, actor *internal.User) (*siteDatamodel.Site, *siteDatamodel.SiteSettings, error) {
	row, err := s.SiteSettings(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}
	current := *tenant.Site
	var dto SettingsDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return &current, row, invalidInput(err)
	}
	before := settingsSnapshot(&current, row)
	dto.Apply(&current, row)
	verr := dto.Validate()
	if verr == nil || len(verr.FieldErrors()["domain_name"]) == 0 {
		taken, err := s.repo.FindByDomain(ctx, current.Domain)
		if err != nil {
			return &current, row, internal.NewInternalError("failed to load site", err)
		}
		if taken != nil && taken.ID != current.ID {
			verr = internal.MergeValidation(verr, internal.NewValidationFieldError("domain_name", "Site with this Domain name already exists.", internal.ErrCodeDuplicate))
		}
	}
	if verr != nil {
		return &current, row, verr
	}
	for _, field := range []string{"logo", "favicon"} {
		upload, ok := in.Files[field]
		if !ok {
			continue
		}
		url, err := s.files.Save(ctx, brandingFolder, upload.Filename, upload.Bytes)
		if err != nil {
			return &current, row, internal.NewInternalError("failed to store "+field, err)
		}
		if field == "logo" {
			row.Logo = url
		} else {
			row.Favicon = url
		}
	}

	changed := audit.Diff(before, settingsSnapshot(&current, row))
	if err := s.update(ctx, auth.EntitySiteSettings, current.Name, row.ID, changed, actor, &current, row); err != nil {
		return &current, row, err
	}
	return &current, row, nil
}

func (s *Service) UpdateSocialSettings(ctx context.Context, tenant *internal.Tenant, in forms.Input, actor *internal.User) (*siteDatamodel.SocialSettings, error) {
	row, err := s.SocialSettings(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var dto SocialDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return row, invalidInput(err)
	}
	before := socialSnapshot(row)
	dto.Apply(row)
	if verr := dto.Validate(); verr != nil {
		return row, verr
	}
	changed := audit.Diff(before, socialSnapshot(row))
	if err := s.update(ctx, auth.EntitySocialSettings, row.String(), row.ID, changed, actor, row); err != nil {
		return row, err
	}
	return row, nil
}

func (s *Service) UpdateAuthSettings(ctx context.Context, tenant *internal.Tenant, in forms.Input, actor *internal.User) (*siteDatamodel.AuthSettings, error) {
	row, err := s.AuthSettings(ctx, tenant)
	if err != nil {
		return nil, err
	}
	var dto AuthDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return row, invalidInput(err)
	}
	before := authSnapshot(row)
	if verr := dto.Validate(); verr != nil {
		return row, verr
	}
	dto.Apply(row)
	changed := audit.Diff(before, authSnapshot(row))
	if err := s.update(ctx, auth.EntityAuthSettings, row.String(), row.ID, changed, actor, row); err != nil {
		return row, err
	}
	return row, nil
}
