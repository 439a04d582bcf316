// Package group administers permission groups.
package group

import (
	"context"
	"sort"
	"strconv"
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

var meta = crud.Meta{Entity: auth.EntityGroup, Path: "/groups", Singular: "Group", Plural: "Groups"}

// PermissionRepositoryAPI looks up the seeded permissions.
type PermissionRepositoryAPI interface {
	AllPermissions(ctx context.Context) ([]identity.Permission, error)
	PermissionsByIDs(ctx context.Context, ids []int64) ([]identity.Permission, error)
}

type DTO struct {
	Name        string   `schema:"name"`
	Permissions []string `schema:"permissions"`
}

func (d DTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	return v.Validate()
}

type Groups struct {
	*postgres.Store[identity.Group]
	perms PermissionRepositoryAPI
}

func NewGroups(db *gorm.DB, perms PermissionRepositoryAPI) *Groups {
	return &Groups{
		Store: postgres.NewStore[identity.Group](db, "name ASC", "Permissions"),
		perms: perms,
	}
}

func (g *Groups) Meta() crud.Meta {
	return meta
}

func (g *Groups) New() *identity.Group {
	return &identity.Group{}
}

func (g *Groups) ID(item *identity.Group) string {
	return item.ID.String()
}

func (g *Groups) Title(item *identity.Group) string {
	return item.String()
}

func (g *Groups) Target(item *identity.Group) redirect.Target {
	return meta.Routes(item.ID.String())
}

func (g *Groups) Bind(ctx context.Context, item *identity.Group, in forms.Input, _ *internal.User, _ bool) error {
	var dto DTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
	}
	item.Name = strings.TrimSpace(dto.Name)

	perms, err := Assignable(ctx, g.perms, dto.Permissions)
	if err != nil {
		return err
	}
	item.Permissions = perms

	dup, err := crud.Unique(ctx, g.Store, meta, "name", "Name", item.Name, item.ID)
	if err != nil {
		return err
	}
	if verr := internal.MergeValidation(dto.Validate(), dup); verr != nil {
		return verr
	}
	return nil
}

func (g *Groups) Save(tx *gorm.DB, item *identity.Group, creating bool) error {
	if err := g.Store.Save(tx, item, creating); err != nil {
		return err
	}
	return g.ReplaceAssociation(tx, item, "Permissions", item.Permissions)
}

func (g *Groups) Snapshot(item *identity.Group) audit.Snapshot {
	return audit.Snapshot{
		{Name: "name", Value: item.Name},
		{Name: "permissions", Value: PermissionKey(item.Permissions)},
	}
}

func (g *Groups) Form(ctx context.Context, item *identity.Group, _ bool) (*forms.Form, error) {
	options, err := PermissionOptions(ctx, g.perms, item.Permissions)
	if err != nil {
		return nil, err
	}
	return forms.New("",
		forms.Text("name", "Name", item.Name).MarkRequired(),
		forms.MultiSelect("permissions", "Permissions", options),
	), nil
}

func (g *Groups) Table(_ context.Context, items []*identity.Group) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Name, strconv.Itoa(len(item.Permissions))}
	}
	return []string{"Name", "Permissions"}, rows
}

// Options lists every group for the user form, with chosen marked.
func (g *Groups) Options(ctx context.Context, chosen []identity.Group) ([]forms.Option, error) {
	items, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	selected := make([]string, len(chosen))
	for i, c := range chosen {
		selected[i] = c.ID.String()
	}
	options := make([]forms.Option, len(items))
	for i, item := range items {
		options[i] = forms.Option{Value: item.ID.String(), Label: item.Name}
	}
	return forms.Selected(options, selected...), nil
}

// Assignable resolves submitted permission ids, dropping anything that may
// not be granted through a form.
func Assignable(ctx context.Context, repo PermissionRepositoryAPI, values []string) ([]identity.Permission, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	perms, err := repo.PermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	return auth.Assignable(perms), nil
}

// PermissionOptions lists the assignable permissions with chosen marked.
func PermissionOptions(ctx context.Context, repo PermissionRepositoryAPI, chosen []identity.Permission) ([]forms.Option, error) {
	all, err := repo.AllPermissions(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	selected := make([]string, len(chosen))
	for i, p := range chosen {
		selected[i] = strconv.FormatInt(p.ID, 10)
	}
	perms := auth.Assignable(all)
	options := make([]forms.Option, len(perms))
	for i, p := range perms {
		options[i] = forms.Option{Value: strconv.FormatInt(p.ID, 10), Label: p.Name}
	}
	return forms.Selected(options, selected...), nil
}

// PermissionKey is an order-independent string form of perms for snapshots.
func PermissionKey(perms []identity.Permission) string {
	ids := make([]int, len(perms))
	for i, p := range perms {
		ids[i] = int(p.ID)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
