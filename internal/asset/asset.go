// Package asset administers the asset register together with the requests
// and issues raised against it.
package asset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/catalog"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/storage"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	imageFolder   = "assets"
	receiptFolder = "receipts"

	assetIDAttempts = 10
)

var assetMeta = crud.Meta{Entity: auth.EntityAsset, Path: "/assets", Singular: "Asset", Plural: "Assets"}

var errAssetIDExhausted = internal.NewConflictError("could not find a free asset id", internal.ErrCodeTokenExhausted)

type Assets struct {
	*postgres.Store[assetDatamodel.Asset]
	categories  *catalog.Categories
	departments *catalog.Departments
	suppliers   *catalog.Suppliers
	statuses    *catalog.Statuses
	files       storage.Storage

	// draw returns a number in [1000000, 9999999].
	draw func() int
}

func NewAssets(db *gorm.DB, categories *catalog.Categories, departments *catalog.Departments, suppliers *catalog.Suppliers, statuses *catalog.Statuses, files storage.Storage) *Assets {
	return &Assets{
		Store:       postgres.NewStore[assetDatamodel.Asset](db, "created_at DESC", "Status", "Supplier", "Categories", "Departments", "AddedBy"),
		categories:  categories,
		departments: departments,
		suppliers:   suppliers,
		statuses:    statuses,
		files:       files,
		draw:        drawAssetNumber,
	}
}

func drawAssetNumber() int {
	return 1000000 + rand.IntN(9000000)
}

// NextAssetID draws AST-<7 digits> ids until one is not taken.
func (a *Assets) NextAssetID(ctx context.Context) (string, error) {
	for i := 0; i < assetIDAttempts; i++ {
		candidate := fmt.Sprintf("AST-%07d", a.draw())
		taken, err := a.Exists(ctx, "asset_id", candidate, uuid.Nil)
		if err != nil {
			return "", internal.NewInternalError("failed to check asset id", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", errAssetIDExhausted
}

func (a *Assets) Meta() crud.Meta {
	return assetMeta
}

func (a *Assets) New() *assetDatamodel.Asset {
	return &assetDatamodel.Asset{IsActive: true}
}

func (a *Assets) ID(item *assetDatamodel.Asset) string {
	return item.ID.String()
}

func (a *Assets) Title(item *assetDatamodel.Asset) string {
	return item.String()
}

func (a *Assets) Target(item *assetDatamodel.Asset) redirect.Target {
	return assetMeta.Routes(item.ID.String())
}

// Bind fills item from the asset form. The asset id is taken on create only,
// drawn from the generator when left empty.
func (a *Assets) Bind(ctx context.Context, item *assetDatamodel.Asset, in forms.Input, actor *internal.User, creating bool) error {
	var dto AssetDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}

	if creating {
		item.AssetID = strings.ToUpper(strings.TrimSpace(dto.AssetID))
		if item.AssetID == "" {
			next, err := a.NextAssetID(ctx)
			if err != nil {
				return err
			}
			item.AssetID = next
		}
		dto.AssetID = item.AssetID
		addedBy := actor.ID
		item.AddedByID = &addedBy
	}
	item.Title = strings.TrimSpace(dto.Title)
	item.Model = strings.TrimSpace(dto.Model)
	item.Description = strings.TrimSpace(dto.Description)
	if n, err := strconv.ParseInt(strings.TrimSpace(dto.Price), 10, 64); err == nil {
		item.Price = n
	}
	item.StatusID = crud.ParseID(dto.Status)
	item.Status = nil
	item.SupplierID = crud.ParseID(dto.Supplier)
	item.Supplier = nil
	item.IsActive = dto.IsActive

	categories, err := a.categories.FindByIDs(ctx, crud.ParseIDs(dto.Categories))
	if err != nil {
		return internal.NewInternalError("failed to load categories", err)
	}
	item.Categories = categories
	departments, err := a.departments.FindByIDs(ctx, crud.ParseIDs(dto.Departments))
	if err != nil {
		return internal.NewInternalError("failed to load departments", err)
	}
	item.Departments = departments

	var dup *internal.AppError
	if creating {
		dup, err = crud.Unique(ctx, a.Store, assetMeta, "asset_id", "Asset id", item.AssetID, item.ID)
		if err != nil {
			return err
		}
	}
	if verr := internal.MergeValidation(dto.Validate(creating), dup); verr != nil {
		return verr
	}

	if err := a.store(ctx, in, "image", imageFolder, &item.Image); err != nil {
		return err
	}
	return a.store(ctx, in, "receipt", receiptFolder, &item.Receipt)
}

func (a *Assets) store(ctx context.Context, in forms.Input, field, folder string, dst *string) error {
	upload, ok := in.Files[field]
	if !ok {
		return nil
	}
	url, err := a.files.Save(ctx, folder, upload.Filename, upload.Bytes)
	if err != nil {
		return internal.NewInternalError("failed to store "+field, err)
	}
	*dst = url
	return nil
}

func (a *Assets) Save(tx *gorm.DB, item *assetDatamodel.Asset, creating bool) error {
	if err := a.Store.Save(tx, item, creating); err != nil {
		return err
	}
	if err := a.ReplaceAssociation(tx, item, "Categories", item.Categories); err != nil {
		return err
	}
	return a.ReplaceAssociation(tx, item, "Departments", item.Departments)
}

func (a *Assets) Snapshot(item *assetDatamodel.Asset) audit.Snapshot {
	categories := make([]string, len(item.Categories))
	for i, c := range item.Categories {
		categories[i] = c.ID.String()
	}
	departments := make([]string, len(item.Departments))
	for i, d := range item.Departments {
		departments[i] = d.ID.String()
	}
	return audit.Snapshot{
		{Name: "asset_id", Value: item.AssetID},
		{Name: "title", Value: item.Title},
		{Name: "model", Value: item.Model},
		{Name: "description", Value: item.Description},
		{Name: "price", Value: strconv.FormatInt(item.Price, 10)},
		{Name: "asset_status", Value: crud.IDString(item.StatusID)},
		{Name: "categories", Value: idKey(categories)},
		{Name: "supplier", Value: crud.IDString(item.SupplierID)},
		{Name: "departments", Value: idKey(departments)},
		{Name: "image", Value: item.Image},
		{Name: "receipt", Value: item.Receipt},
		{Name: "is_active", Value: strconv.FormatBool(item.IsActive)},
	}
}

func (a *Assets) Form(ctx context.Context, item *assetDatamodel.Asset, creating bool) (*forms.Form, error) {
	assetID := forms.Text("asset_id", "Asset id", item.AssetID)
	if creating && item.AssetID == "" {
		next, err := a.NextAssetID(ctx)
		if err != nil {
			return nil, err
		}
		assetID.Value = next
	}
	if !creating {
		assetID.MarkReadOnly()
	}

	statuses, err := a.statuses.Options(ctx, false)
	if err != nil {
		return nil, internal.NewInternalError("failed to load statuses", err)
	}
	categories, err := a.categories.Options(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load categories", err)
	}
	departments, err := a.departments.Options(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load departments", err)
	}
	suppliers, err := a.suppliers.Options(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load suppliers", err)
	}

	chosenCategories := make([]string, len(item.Categories))
	for i, c := range item.Categories {
		chosenCategories[i] = c.ID.String()
	}
	chosenDepartments := make([]string, len(item.Departments))
	for i, d := range item.Departments {
		chosenDepartments[i] = d.ID.String()
	}
	price := ""
	if !creating || item.Price != 0 {
		price = strconv.FormatInt(item.Price, 10)
	}

	return forms.New("",
		assetID,
		forms.Text("title", "Title", item.Title).MarkRequired(),
		forms.Text("model", "Model", item.Model),
		forms.Textarea("description", "Description", item.Description),
		forms.Text("price", "Price", price).WithType(forms.TypeNumber).MarkRequired(),
		forms.Select("asset_status", "Asset status", forms.Selected(statuses, crud.IDString(item.StatusID))),
		forms.MultiSelect("categories", "Categories", forms.Selected(categories, chosenCategories...)),
		forms.Select("supplier", "Supplier", forms.Selected(suppliers, crud.IDString(item.SupplierID))),
		forms.MultiSelect("departments", "Departments", forms.Selected(departments, chosenDepartments...)),
		forms.File("image", "Image", item.Image),
		forms.File("receipt", "Receipt", item.Receipt),
		forms.Checkbox("is_active", "Active", item.IsActive),
	), nil
}

func (a *Assets) Table(_ context.Context, items []*assetDatamodel.Asset) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		status := ""
		if item.Status != nil {
			status = item.Status.Title
		}
		active := "Inactive"
		if item.IsActive {
			active = "Active"
		}
		rows[i] = []string{item.AssetID, item.Title, status, strconv.FormatInt(item.Price, 10), active}
	}
	return []string{"Asset id", "Title", "Status", "Price", "Active"}, rows
}

// Options lists the active assets with selected marked.
func (a *Assets) Options(ctx context.Context, selected string) ([]forms.Option, error) {
	items, err := a.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load assets", err)
	}
	var out []forms.Option
	for _, item := range items {
		if item.IsActive || item.ID.String() == selected {
			out = append(out, forms.Option{Value: item.ID.String(), Label: item.AssetID + " " + item.Title})
		}
	}
	return forms.Selected(out, selected), nil
}

func idKey(ids []string) string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return strings.Join(out, ",")
}
