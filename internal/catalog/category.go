// Package catalog administers the lookup tables assets are filed under:
// categories, departments, suppliers and asset statuses.
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

var categoryMeta = crud.Meta{Entity: auth.EntityCategory, Path: "/categories", Singular: "Category", Plural: "Categories"}

type Categories struct {
	*postgres.Store[asset.Category]
}

func NewCategories(db *gorm.DB) *Categories {
	return &Categories{Store: postgres.NewStore[asset.Category](db, "title ASC")}
}

func (c *Categories) Meta() crud.Meta {
	return categoryMeta
}

func (c *Categories) New() *asset.Category {
	return &asset.Category{IsActive: true}
}

func (c *Categories) ID(item *asset.Category) string {
	return item.ID.String()
}

func (c *Categories) Title(item *asset.Category) string {
	return item.String()
}

func (c *Categories) Target(item *asset.Category) redirect.Target {
	return categoryMeta.Routes(item.ID.String())
}

func (c *Categories) Bind(ctx context.Context, item *asset.Category, in forms.Input, _ *internal.User, _ bool) error {
	var dto CategoryDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Description = strings.TrimSpace(dto.Description)
	item.IsActive = dto.IsActive

	dup, err := crud.Unique(ctx, c.Store, categoryMeta, "title", "Title", item.Title, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (c *Categories) Snapshot(item *asset.Category) audit.Snapshot {
	return audit.Snapshot{
		{Name: "title", Value: item.Title},
		{Name: "description", Value: item.Description},
		{Name: "is_active", Value: boolValue(item.IsActive)},
	}
}

func (c *Categories) Form(_ context.Context, item *asset.Category, _ bool) (*forms.Form, error) {
	return forms.New("",
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Textarea("description", "Description", item.Description),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (c *Categories) Table(_ context.Context, items []*asset.Category) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Title, item.Description, activeLabel(item.IsActive)}
	}
	return []string{"Title", "Description", "Status"}, rows
}

// Options lists the active categories for asset forms.
func (c *Categories) Options(ctx context.Context) ([]forms.Option, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []forms.Option
	for _, item := range items {
		if item.IsActive {
			out = append(out, forms.Option{Value: item.ID.String(), Label: item.Title})
		}
	}
	return out, nil
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func activeLabel(b bool) string {
	if b {
		return "Active"
	}
	return "Inactive"
}

func invalidInput(err error) *internal.AppError {
	return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
}
