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

var departmentMeta = crud.Meta{Entity: auth.EntityDepartment, Path: "/departments", Singular: "Department", Plural: "Departments"}

type Departments struct {
	*postgres.Store[asset.Department]
}

func NewDepartments(db *gorm.DB) *Departments {
	return &Departments{Store: postgres.NewStore[asset.Department](db, "title ASC")}
}

func (d *Departments) Meta() crud.Meta {
	return departmentMeta
}

func (d *Departments) New() *asset.Department {
	return &asset.Department{IsActive: true}
}

func (d *Departments) ID(item *asset.Department) string {
	return item.ID.String()
}

func (d *Departments) Title(item *asset.Department) string {
	return item.String()
}

func (d *Departments) Target(item *asset.Department) redirect.Target {
	return departmentMeta.Routes(item.ID.String())
}

func (d *Departments) Bind(ctx context.Context, item *asset.Department, in forms.Input, _ *internal.User, _ bool) error {
	var dto DepartmentDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Description = strings.TrimSpace(dto.Description)
	item.IsActive = dto.IsActive

	dup, err := crud.Unique(ctx, d.Store, departmentMeta, "title", "Title", item.Title, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (d *Departments) Snapshot(item *asset.Department) audit.Snapshot {
	return audit.Snapshot{
		{Name: "title", Value: item.Title},
		{Name: "description", Value: item.Description},
		{Name: "is_active", Value: boolValue(item.IsActive)},
	}
}

func (d *Departments) Form(_ context.Context, item *asset.Department, _ bool) (*forms.Form, error) {
	return forms.New("",
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Textarea("description", "Description", item.Description),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (d *Departments) Table(_ context.Context, items []*asset.Department) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Title, item.Description, activeLabel(item.IsActive)}
	}
	return []string{"Title", "Description", "Status"}, rows
}

func (d *Departments) Options(ctx context.Context) ([]forms.Option, error) {
	items, err := d.List(ctx)
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
