package asset

import (
	"context"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/catalog"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"gorm.io/gorm"
)

var issueMeta = crud.Meta{Entity: auth.EntityAssetIssue, Path: "/asset-issues", Singular: "Asset Issue", Plural: "Asset Issues"}

const invalidChoice = "Select a valid choice."

type Issues struct {
	*postgres.Store[assetDatamodel.Issue]
	assets   *Assets
	statuses *catalog.Statuses
	people   *postgres.Store[identity.User]
}

func NewIssues(db *gorm.DB, assets *Assets, statuses *catalog.Statuses) *Issues {
	return &Issues{
		Store:    postgres.NewStore[assetDatamodel.Issue](db, "created_at DESC", "Asset", "Status", "RaisedBy"),
		assets:   assets,
		statuses: statuses,
		people:   postgres.NewStore[identity.User](db, "name ASC"),
	}
}

func (i *Issues) Meta() crud.Meta {
	return issueMeta
}

func (i *Issues) New() *assetDatamodel.Issue {
	return &assetDatamodel.Issue{}
}

func (i *Issues) ID(item *assetDatamodel.Issue) string {
	return item.ID.String()
}

func (i *Issues) Title(item *assetDatamodel.Issue) string {
	return item.String()
}

func (i *Issues) Target(item *assetDatamodel.Issue) redirect.Target {
	return issueMeta.Routes(item.ID.String())
}

func (i *Issues) Bind(ctx context.Context, item *assetDatamodel.Issue, in forms.Input, _ *internal.User, _ bool) error {
	var dto IssueDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}
	item.Description = strings.TrimSpace(dto.Description)
	item.FixDate = ParseDate(ctx, dto.FixDate)
	item.ResolvedDate = ParseDate(ctx, dto.ResolvedDate)
	item.Comment = strings.TrimSpace(dto.Comment)

	verr := dto.Validate()

	chosen, err := i.assets.Get(ctx, dto.Asset)
	if err != nil {
		return internal.NewInternalError("failed to load asset", err)
	}
	if chosen != nil {
		item.AssetID = chosen.ID
		item.Asset = *chosen
	} else if dto.Asset != "" {
		verr = internal.MergeValidation(verr, internal.NewValidationFieldError("asset", invalidChoice, internal.ErrCodeInvalidFormat))
	}

	status, err := i.statuses.Get(ctx, dto.Status)
	if err != nil {
		return internal.NewInternalError("failed to load status", err)
	}
	if status != nil {
		item.StatusID = status.ID
		item.Status = *status
	} else if dto.Status != "" {
		verr = internal.MergeValidation(verr, internal.NewValidationFieldError("status", invalidChoice, internal.ErrCodeInvalidFormat))
	}

	raisedBy, err := i.people.Get(ctx, dto.RaisedBy)
	if err != nil {
		return internal.NewInternalError("failed to load user", err)
	}
	if raisedBy != nil {
		item.RaisedByID = raisedBy.ID
		item.RaisedBy = *raisedBy
	} else if dto.RaisedBy != "" {
		verr = internal.MergeValidation(verr, internal.NewValidationFieldError("raised_by", invalidChoice, internal.ErrCodeInvalidFormat))
	}

	if verr != nil {
		return verr
	}
	return nil
}

func (i *Issues) Snapshot(item *assetDatamodel.Issue) audit.Snapshot {
	return audit.Snapshot{
		{Name: "asset", Value: item.AssetID.String()},
		{Name: "status", Value: item.StatusID.String()},
		{Name: "raised_by", Value: item.RaisedByID.String()},
		{Name: "description", Value: item.Description},
		{Name: "fix_date", Value: timeKey(item.FixDate)},
		{Name: "resolved_date", Value: timeKey(item.ResolvedDate)},
		{Name: "comment", Value: item.Comment},
	}
}

func (i *Issues) Form(ctx context.Context, item *assetDatamodel.Issue, creating bool) (*forms.Form, error) {
	selectedAsset, selectedStatus, selectedUser := "", "", ""
	if !creating {
		selectedAsset = item.AssetID.String()
		selectedStatus = item.StatusID.String()
		selectedUser = item.RaisedByID.String()
	}
	assets, err := i.assets.Options(ctx, selectedAsset)
	if err != nil {
		return nil, err
	}
	statuses, err := i.statuses.Options(ctx, true)
	if err != nil {
		return nil, internal.NewInternalError("failed to load statuses", err)
	}
	users, err := i.people.List(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load users", err)
	}
	people := make([]forms.Option, len(users))
	for n, u := range users {
		people[n] = forms.Option{Value: u.ID.String(), Label: u.String()}
	}

	return forms.New("",
		forms.Select("asset", "Asset", assets).MarkRequired(),
		forms.Select("status", "Status", forms.Selected(statuses, selectedStatus)).MarkRequired(),
		forms.Select("raised_by", "Raised by", forms.Selected(people, selectedUser)).MarkRequired(),
		forms.Textarea("description", "Description", item.Description),
		forms.Text("fix_date", "Fix date", FormatDate(ctx, item.FixDate)).WithType(forms.TypeDate),
		forms.Text("resolved_date", "Resolved date", FormatDate(ctx, item.ResolvedDate)).WithType(forms.TypeDate),
		forms.Textarea("comment", "Comment", item.Comment),
	), nil
}

func (i *Issues) Table(ctx context.Context, items []*assetDatamodel.Issue) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for n, item := range items {
		rows[n] = []string{
			item.Asset.AssetID + " " + item.Asset.Title,
			item.Status.Title,
			item.RaisedBy.String(),
			FormatDate(ctx, item.FixDate),
			FormatDate(ctx, item.ResolvedDate),
		}
	}
	return []string{"Asset", "Status", "Raised by", "Fix date", "Resolved date"}, rows
}
