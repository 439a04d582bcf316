package catalog

import (
	"context"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"gorm.io/gorm"
)

var statusMeta = crud.Meta{Entity: auth.EntityAssetStatus, Path: "/asset-statuses", Singular: "Asset Status", Plural: "Asset Statuses"}

type Statuses struct {
	*postgres.Store[asset.Status]
}

func NewStatuses(db *gorm.DB) *Statuses {
	return &Statuses{Store: postgres.NewStore[asset.Status](db, "title ASC")}
}

func (s *Statuses) Meta() crud.Meta {
	return statusMeta
}

func (s *Statuses) New() *asset.Status {
	return &asset.Status{IsActive: true}
}

func (s *Statuses) ID(item *asset.Status) string {
	return item.ID.String()
}

func (s *Statuses) Title(item *asset.Status) string {
	return item.String()
}

func (s *Statuses) Target(item *asset.Status) redirect.Target {
	return statusMeta.Routes(item.ID.String())
}

func (s *Statuses) Bind(ctx context.Context, item *asset.Status, in forms.Input, _ *internal.User, _ bool) error {
	var dto StatusDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Color = strings.TrimSpace(dto.Color)
	item.Request = dto.Request
	item.IsActive = dto.IsActive

	dup, err := crud.Unique(ctx, s.Store, statusMeta, "title", "Title", item.Title, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (s *Statuses) Snapshot(item *asset.Status) audit.Snapshot {
	return audit.Snapshot{
		{Name: "title", Value: item.Title},
		{Name: "color", Value: item.Color},
		{Name: "request", Value: boolValue(item.Request)},
		{Name: "is_active", Value: boolValue(item.IsActive)},
	}
}

func (s *Statuses) Form(_ context.Context, item *asset.Status, _ bool) (*forms.Form, error) {
	return forms.New("",
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Text("color", "Color", item.Color).WithType(forms.TypeColor),
		forms.Checkbox("request", "Show on requests", item.Request),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (s *Statuses) Table(_ context.Context, items []*asset.Status) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Title, item.Color, yesNo(item.Request), activeLabel(item.IsActive)}
	}
	return []string{"Title", "Color", "Request", "Status"}, rows
}

// Options lists active statuses. With requestOnly set only the statuses
// flagged for requests are offered.
func (s *Statuses) Options(ctx context.Context, requestOnly bool) ([]forms.Option, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []forms.Option
	for _, item := range items {
		if !item.IsActive || (requestOnly && !item.Request) {
			continue
		}
		out = append(out, forms.Option{Value: item.ID.String(), Label: item.Title})
	}
	return out, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
