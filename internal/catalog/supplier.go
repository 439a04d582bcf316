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

var supplierMeta = crud.Meta{Entity: auth.EntitySupplier, Path: "/suppliers", Singular: "Supplier", Plural: "Suppliers"}

type Suppliers struct {
	*postgres.Store[asset.Supplier]
}

func NewSuppliers(db *gorm.DB) *Suppliers {
	return &Suppliers{Store: postgres.NewStore[asset.Supplier](db, "title ASC")}
}

func (s *Suppliers) Meta() crud.Meta {
	return supplierMeta
}

func (s *Suppliers) New() *asset.Supplier {
	return &asset.Supplier{IsActive: true}
}

func (s *Suppliers) ID(item *asset.Supplier) string {
	return item.ID.String()
}

func (s *Suppliers) Title(item *asset.Supplier) string {
	return item.String()
}

func (s *Suppliers) Target(item *asset.Supplier) redirect.Target {
	return supplierMeta.Routes(item.ID.String())
}

func (s *Suppliers) Bind(ctx context.Context, item *asset.Supplier, in forms.Input, _ *internal.User, _ bool) error {
	var dto SupplierDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Email = strings.TrimSpace(dto.Email)
	item.Phone = strings.TrimSpace(dto.Phone)
	item.Address = strings.TrimSpace(dto.Address)
	item.Extra = strings.TrimSpace(dto.Extra)
	item.IsActive = dto.IsActive

	dto.Email = item.Email
	dup, err := crud.Unique(ctx, s.Store, supplierMeta, "title", "Title", item.Title, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (s *Suppliers) Snapshot(item *asset.Supplier) audit.Snapshot {
	return audit.Snapshot{
		{Name: "title", Value: item.Title},
		{Name: "email", Value: item.Email},
		{Name: "phone", Value: item.Phone},
		{Name: "address", Value: item.Address},
		{Name: "extra", Value: item.Extra},
		{Name: "is_active", Value: boolValue(item.IsActive)},
	}
}

func (s *Suppliers) Form(_ context.Context, item *asset.Supplier, _ bool) (*forms.Form, error) {
	return forms.New("",
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Email("email", "Email", item.Email),
		forms.Text("phone", "Phone", item.Phone),
		forms.Textarea("address", "Address", item.Address),
		forms.Textarea("extra", "Extra", item.Extra),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (s *Suppliers) Table(_ context.Context, items []*asset.Supplier) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Title, item.Email, item.Phone, activeLabel(item.IsActive)}
	}
	return []string{"Title", "Email", "Phone", "Status"}, rows
}

func (s *Suppliers) Options(ctx context.Context) ([]forms.Option, error) {
	items, err := s.List(ctx)
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
