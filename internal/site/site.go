// Package site resolves the site a request is served for, keeps its
// settings rows and serves the settings and maintenance pages.
package site

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	siteDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/site"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RepositoryAPI interface {
	DB() *gorm.DB
	FindByDomain(ctx context.Context, domain string) (*siteDatamodel.Site, error)
	CreateSite(tx *gorm.DB, s *siteDatamodel.Site) error
	EnsureSiteSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.SiteSettings, error)
	EnsureSocialSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.SocialSettings, error)
	EnsureAuthSettings(tx *gorm.DB, siteID uuid.UUID) (*siteDatamodel.AuthSettings, error)
	Save(tx *gorm.DB, row interface{}) error
}

// Defaults describe the site used when no site matches the request host.
type Defaults struct {
	Domain   string
	Name     string
	Timezone string
}

type Service struct {
	repo     RepositoryAPI
	defaults Defaults
	recorder *audit.Recorder
	files    storage.Storage
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, defaults Defaults, recorder *audit.Recorder, files storage.Storage, logger *slog.Logger) *Service {
	if defaults.Timezone == "" {
		defaults.Timezone = siteDatamodel.DefaultTimezone
	}
	return &Service{repo: repo, defaults: defaults, recorder: recorder, files: files, logger: logger}
}

// Resolve builds the tenant for host, falling back to the default site.
func (s *Service) Resolve(ctx context.Context, host string) (*internal.Tenant, error) {
	domain := StripPort(host)
	found, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		return nil, internal.NewInternalError("failed to load site", err)
	}
	if found == nil {
		found, err = s.DefaultSite(ctx)
		if err != nil {
			return nil, err
		}
	}
	return s.Tenant(ctx, found)
}

// DefaultSite loads the configured default site, creating it on first use.
func (s *Service) DefaultSite(ctx context.Context) (*siteDatamodel.Site, error) {
	found, err := s.repo.FindByDomain(ctx, s.defaults.Domain)
	if err != nil {
		return nil, internal.NewInternalError("failed to load site", err)
	}
	if found != nil {
		return found, nil
	}
	return s.CreateSite(ctx, s.defaults.Domain, s.defaults.Name)
}

// CreateSite stores a site together with its three settings rows.
func (s *Service) CreateSite(ctx context.Context, domain, name string) (*siteDatamodel.Site, error) {
	created := &siteDatamodel.Site{Domain: strings.ToLower(strings.TrimSpace(domain)), Name: name}
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateSite(tx, created); err != nil {
			return err
		}
		settings, err := s.repo.EnsureSiteSettings(tx, created.ID)
		if err != nil {
			return err
		}
		if settings.Timezone == siteDatamodel.DefaultTimezone && s.defaults.Timezone != siteDatamodel.DefaultTimezone {
			settings.Timezone = s.defaults.Timezone
			if err := s.repo.Save(tx, settings); err != nil {
				return err
			}
		}
		if _, err := s.repo.EnsureSocialSettings(tx, created.ID); err != nil {
			return err
		}
		_, err = s.repo.EnsureAuthSettings(tx, created.ID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "CreateSite: transaction failed", "domain", domain, "error", err)
		return nil, internal.NewInternalError("failed to create site", err)
	}
	s.logger.InfoContext(ctx, "CreateSite: site created", "site_id", created.ID, "domain", created.Domain)
	return created, nil
}

// Tenant loads the settings of site, creating missing rows.
func (s *Service) Tenant(ctx context.Context, site *siteDatamodel.Site) (*internal.Tenant, error) {
	tenant := &internal.Tenant{Site: site}
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if tenant.Settings, err = s.repo.EnsureSiteSettings(tx, site.ID); err != nil {
			return err
		}
		if tenant.Social, err = s.repo.EnsureSocialSettings(tx, site.ID); err != nil {
			return err
		}
		tenant.Auth, err = s.repo.EnsureAuthSettings(tx, site.ID)
		return err
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to load site settings", err)
	}
	tenant.Location = s.location(ctx, tenant.Settings.Timezone)
	return tenant, nil
}

func (s *Service) location(ctx context.Context, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	s.logger.WarnContext(ctx, "location: unknown timezone", "timezone", name, "error", err)
	if loc, err := time.LoadLocation(s.defaults.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// update saves the rows changed through a settings form and records the
// change against entity.
func (s *Service) update(ctx context.Context, entity, title string, id uuid.UUID, changed []string, actor *internal.User, rows ...interface{}) error {
	if len(changed) == 0 {
		return nil
	}
	var entry *auditDatamodel.LogEntry
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := s.repo.Save(tx, row); err != nil {
				return err
			}
		}
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID:       actor.ID,
			Entity:        entity,
			ObjectID:      id.String(),
			Action:        audit.Change,
			Title:         title,
			ChangedFields: changed,
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "update: transaction failed", "entity", entity, "error", err)
		return internal.NewInternalError("failed to update "+title, err)
	}
	s.recorder.Announce(ctx, entry)
	return nil
}

// StripPort returns the lower-cased host of a Host header.
func StripPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}
