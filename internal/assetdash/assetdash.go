// Package assetdash is the portal where any signed-in user follows their
// own asset requests and issues.
package assetdash

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/asset"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errRequestLocked = internal.NewForbiddenError("This request has already been handled.", internal.ErrCodePermission)

type RequestDTO struct {
	Details string `schema:"details"`
}

func (d RequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("details", d.Details).Required()
	return v.Validate()
}

// Summary is what the portal landing page shows.
type Summary struct {
	RequestCount int64
	PendingCount int64
	IssueCount   int64
}

type Service struct {
	db     *gorm.DB
	crud   *crud.Service[assetDatamodel.Request]
	clock  clock.Clock
	logger *slog.Logger
}

// NewService writes requests through the staff resource so both sides
// share one audit trail.
func NewService(db *gorm.DB, requests *asset.Requests, recorder *audit.Recorder, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		crud:   crud.NewService[assetDatamodel.Request](db, requests, recorder, logger),
		clock:  clk,
		logger: logger,
	}
}

func (s *Service) Summary(ctx context.Context, actor *internal.User) (*Summary, error) {
	var out Summary
	db := s.db.WithContext(ctx)
	if err := db.Model(&assetDatamodel.Request{}).Where("requested_id = ?", actor.ID).Count(&out.RequestCount).Error; err != nil {
		return nil, internal.NewInternalError("failed to count requests", err)
	}
	if err := db.Model(&assetDatamodel.Request{}).
		Where("requested_id = ? AND status = ?", actor.ID, assetDatamodel.RequestPending).
		Count(&out.PendingCount).Error; err != nil {
		return nil, internal.NewInternalError("failed to count requests", err)
	}
	if err := db.Model(&assetDatamodel.Issue{}).Where("raised_by_id = ?", actor.ID).Count(&out.IssueCount).Error; err != nil {
		return nil, internal.NewInternalError("failed to count issues", err)
	}
	return &out, nil
}

// Assets lists the assets approved for the actor.
func (s *Service) Assets(ctx context.Context, actor *internal.User) ([]*assetDatamodel.Asset, error) {
	approved := s.db.Model(&assetDatamodel.Request{}).Select("asset_id").
		Where("requested_id = ? AND status = ? AND asset_id IS NOT NULL", actor.ID, assetDatamodel.RequestApproved)
	var out []*assetDatamodel.Asset
	err := s.db.WithContext(ctx).Preload("Status").
		Where("id IN (?)", approved).
		Order("title ASC").
		Find(&out).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list assets", err)
	}
	return out, nil
}

func (s *Service) Requests(ctx context.Context, actor *internal.User) ([]*assetDatamodel.Request, error) {
	var out []*assetDatamodel.Request
	err := s.db.WithContext(ctx).Preload("Asset").Preload("ApprovedBy").
		Where("requested_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list requests", err)
	}
	return out, nil
}

func (s *Service) Issues(ctx context.Context, actor *internal.User) ([]*assetDatamodel.Issue, error) {
	var out []*assetDatamodel.Issue
	err := s.db.WithContext(ctx).Preload("Asset").Preload("Status").
		Where("raised_by_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, internal.NewInternalError("failed to list issues", err)
	}
	return out, nil
}

// Request loads one of the actor's own requests. Requests of other users
// are reported as missing.
func (s *Service) Request(ctx context.Context, actor *internal.User, id string) (*assetDatamodel.Request, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, internal.ErrObjectNotFound
	}
	var item assetDatamodel.Request
	err = s.db.WithContext(ctx).Preload("Asset").Preload("Requested").
		Where("id = ? AND requested_id = ?", parsed, actor.ID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrObjectNotFound
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to load request", err)
	}
	return &item, nil
}

func (s *Service) CreateRequest(ctx context.Context, actor *internal.User, dto RequestDTO) (*assetDatamodel.Request, error) {
	now := s.clock.Now()
	item := &assetDatamodel.Request{
		RequestedID: actor.ID,
		Requested:   identity.User{ID: actor.ID, Email: actor.Email, Name: actor.Name},
		RequestDate: &now,
		Details:     strings.TrimSpace(dto.Details),
		Status:      assetDatamodel.RequestPending,
	}
	if verr := dto.Validate(); verr != nil {
		return item, verr
	}
	if err := s.crud.Create(ctx, item, actor); err != nil {
		return item, err
	}
	return item, nil
}

// UpdateRequest changes the details of a request still waiting for staff.
func (s *Service) UpdateRequest(ctx context.Context, actor *internal.User, id string, dto RequestDTO) (*assetDatamodel.Request, error) {
	item, err := s.Request(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if item.Status != assetDatamodel.RequestPending {
		return item, errRequestLocked
	}
	before := item.Details
	item.Details = strings.TrimSpace(dto.Details)
	if verr := dto.Validate(); verr != nil {
		return item, verr
	}
	var changed []string
	if before != item.Details {
		changed = []string{"details"}
	}
	if _, err := s.crud.Update(ctx, item, changed, actor); err != nil {
		return item, err
	}
	return item, nil
}
