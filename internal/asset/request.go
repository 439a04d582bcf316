package asset

import (
	"context"
	"strconv"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/frahmantamala/asset-management/internal/crud"
	"github.com/frahmantamala/asset-management/internal/crud/postgres"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"gorm.io/gorm"
)

var requestMeta = crud.Meta{Entity: auth.EntityAssetRequest, Path: "/asset-requests", Singular: "Asset Request", Plural: "Asset Requests"}

var errAssetRequired = internal.NewValidationFieldError("asset", "Asset is required", internal.ErrCodeRequired)

// Requests is the staff view of asset requests. Whoever saves a request
// becomes its approver.
type Requests struct {
	*postgres.Store[assetDatamodel.Request]
	assets *Assets
	clock  clock.Clock
}

func NewRequests(db *gorm.DB, assets *Assets, clk clock.Clock) *Requests {
	return &Requests{
		Store:  postgres.NewStore[assetDatamodel.Request](db, "created_at DESC", "Asset", "Requested", "ApprovedBy"),
		assets: assets,
		clock:  clk,
	}
}

func (r *Requests) Meta() crud.Meta {
	return requestMeta
}

func (r *Requests) New() *assetDatamodel.Request {
	return &assetDatamodel.Request{Status: assetDatamodel.RequestPending}
}

func (r *Requests) ID(item *assetDatamodel.Request) string {
	return item.ID.String()
}

func (r *Requests) Title(item *assetDatamodel.Request) string {
	return item.String()
}

func (r *Requests) Target(item *assetDatamodel.Request) redirect.Target {
	return requestMeta.Routes(item.ID.String())
}

// Bind takes the staff fields. The requester, request date and details are
// fixed once the request exists.
func (r *Requests) Bind(ctx context.Context, item *assetDatamodel.Request, in forms.Input, actor *internal.User, creating bool) error {
	var dto RequestDTO
	if err := forms.Decode(&dto, in.Values); err != nil {
		return invalidInput(err)
	}

	if creating {
		now := r.clock.Now()
		item.RequestedID = actor.ID
		item.Requested = principalUser(actor)
		item.RequestDate = &now
		item.Details = strings.TrimSpace(dto.Details)
	}
	item.Status = assetDatamodel.RequestStatus(dto.Status)
	item.ReceiveDate = ParseDate(ctx, dto.ReceiveDate)
	item.Comment = strings.TrimSpace(dto.Comment)
	approver := actor.ID
	item.ApprovedByID = &approver
	item.ApprovedBy = nil

	chosen, err := r.assets.Get(ctx, dto.Asset)
	if err != nil {
		return internal.NewInternalError("failed to load asset", err)
	}
	item.Asset = chosen
	item.AssetID = nil
	if chosen != nil {
		item.AssetID = &chosen.ID
	}

	verr := dto.Validate()
	if strings.TrimSpace(dto.Asset) != "" && chosen == nil {
		verr = internal.MergeValidation(verr, internal.NewValidationFieldError("asset", invalidChoice, internal.ErrCodeInvalidFormat))
	} else if item.Status == assetDatamodel.RequestApproved && chosen == nil {
		verr = internal.MergeValidation(verr, errAssetRequired)
	}
	if verr != nil {
		return verr
	}
	return nil
}

func (r *Requests) Snapshot(item *assetDatamodel.Request) audit.Snapshot {
	return audit.Snapshot{
		{Name: "asset", Value: crud.IDString(item.AssetID)},
		{Name: "status", Value: strconv.Itoa(int(item.Status))},
		{Name: "details", Value: item.Details},
		{Name: "receive_date", Value: timeKey(item.ReceiveDate)},
		{Name: "comment", Value: item.Comment},
		{Name: "approved_by", Value: crud.IDString(item.ApprovedByID)},
	}
}

func (r *Requests) Form(ctx context.Context, item *assetDatamodel.Request, creating bool) (*forms.Form, error) {
	assets, err := r.assets.Options(ctx, crud.IDString(item.AssetID))
	if err != nil {
		return nil, err
	}
	details := forms.Textarea("details", "Details", item.Details)
	fields := []*forms.Field{
		forms.Select("asset", "Asset", assets),
		forms.Select("status", "Status", StatusOptions(item.Status)).MarkRequired(),
	}
	if !creating {
		fields = append(fields,
			forms.Text("requested", "Requested by", item.Requested.String()).MarkReadOnly(),
			forms.Text("request_date", "Request date", FormatDate(ctx, item.RequestDate)).WithType(forms.TypeDate).MarkReadOnly(),
		)
		details.MarkReadOnly()
	}
	fields = append(fields,
		details,
		forms.Text("receive_date", "Receive date", FormatDate(ctx, item.ReceiveDate)).WithType(forms.TypeDate),
		forms.Textarea("comment", "Comment", item.Comment),
	)
	return forms.New("", fields...), nil
}

func (r *Requests) Table(ctx context.Context, items []*assetDatamodel.Request) ([]string, [][]string) {
	rows := make([][]string, len(items))
	for i, item := range items {
		title := ""
		if item.Asset != nil {
			title = item.Asset.AssetID + " " + item.Asset.Title
		}
		approver := ""
		if item.ApprovedBy != nil {
			approver = item.ApprovedBy.String()
		}
		rows[i] = []string{title, item.Requested.String(), item.Status.String(), FormatDate(ctx, item.RequestDate), approver}
	}
	return []string{"Asset", "Requested by", "Status", "Request date", "Approved by"}, rows
}

// StatusOptions lists the request statuses with selected marked.
func StatusOptions(selected assetDatamodel.RequestStatus) []forms.Option {
	statuses := assetDatamodel.RequestStatuses()
	out := make([]forms.Option, len(statuses))
	for i, s := range statuses {
		out[i] = forms.Option{Value: strconv.Itoa(int(s)), Label: s.String(), Selected: s == selected}
	}
	return out
}

func principalUser(u *internal.User) identity.User {
	return identity.User{ID: u.ID, Email: u.Email, Name: u.Name}
}
