// Package designation administers the job titles users are filed under.
package designation

import (
	"context"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"gorm.io/gorm"
)

var meta = crud.Meta{Entity: auth.EntityDesignation, Path: "/designations", Singular: "Designation", Plural: "Designations"}

type DTO struct {
	Title       string `schema:"title"`
	Description string `schema:"description"`
	IsActive    bool   `schema:"is_active"`
}

func (d DTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(50)
	return v.Validate()
}

type Designations struct {
	*postgres.Store[identity.Designation]
}

func NewDesignations(db *gorm.DB) *Designations {
	return &Designations{Store: postgres.NewStore[identity.Designation](db, "title ASC")}
}

func (d *Designations) Meta() crud.Meta {
	return meta
}

func (d *Designations) New() *identity.Designation {
	return &identity.Designation{IsActive: true}
}

func (d *Designations) ID(item *identity.Designation) string {
	return item.ID.String()
}

func (d *Designations) Title(item *identity.Designation) string {
	return item.String()
}

func (d *Designations) Target(item *identity.Designation) redirect.Target {
	return meta.Routes(item.ID.String())
}

func (d *Designations) Bind(ctx context.Context, item *identity.Designation, in forms.Input, _ *internal.User, _ bool) error {
	var dto DTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Description = strings.TrimSpace(dto.Description)
	item.IsActive = dto.IsActive

	dup, err := crud.Unique(ctx, d.Store, meta, "title", "Title", item.Title, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (d *Designations) Snapshot(item *identity.Designation) audit.Snapshot {
	active := "false"
	if item.IsActive {
		active = "true"
	}
	return audit.Snapshot{
		{Name: "title", Value: item.Title},
		{Name: "description", Value: item.Description},
		{Name: "is_active", Value: active},
	}
}

func (d *Designations) Form(_ context.Context, item *identity.Designation, _ bool) (*forms.Form, error) {
	return forms.New("",
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Textarea("description", "Description", item.Description),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (d *Designations) Table(_ context.Context, items []*identity.Designation) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		status := "Inactive"
		if item.IsActive {
			status = "Active"
		}
		rows[i] = []string{item.Title, item.Description, status}
	}
	return []string{"Title", "Description", "Status"}, rows
}

// Options lists the active designations, with selected marked.
func (d *Designations) Options(ctx context.Context, selected string) ([]forms.Option, error) {
	items, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []forms.Option
	for _, item := range items {
		if item.IsActive || item.ID.String() == selected {
			out = append(out, forms.Option{Value: item.ID.String(), Label: item.Title})
		}
	}
	return forms.Selected(out, selected), nil
}
