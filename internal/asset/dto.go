package asset

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
	assetDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/asset"
)

const dateLayout = "2006-01-02"

var (
	assetIDPattern = regexp.MustCompile(`^AST-\d{7}$`)
	wholeNumber    = regexp.MustCompile(`^-?\d+$`)
)

type AssetDTO struct {
	AssetID     string   `schema:"asset_id"`
	Title       string   `schema:"title"`
	Model       string   `schema:"model"`
	Description string   `schema:"description"`
	Price       string   `schema:"price"`
	Status      string   `schema:"asset_status"`
	Categories  []string `schema:"categories"`
	Departments []string `schema:"departments"`
	Supplier    string   `schema:"supplier"`
	IsActive    bool     `schema:"is_active"`
}

// Validate checks the form. The asset id is only checked on create since it
// is read-only afterwards.
func (d AssetDTO) Validate(creating bool) *internal.AppError {
	v := validation.NewValidator()
	if creating {
		v.Field("asset_id", d.AssetID).Pattern(assetIDPattern, "Enter an asset id such as AST-1234567.")
	}
	v.Field("title", d.Title).Required().MaxLength(150)
	v.Field("model", d.Model).MaxLength(25)
	v.Field("price", d.Price).Required().Pattern(wholeNumber, "Enter a whole number.")
	if n, err := strconv.ParseInt(strings.TrimSpace(d.Price), 10, 64); err == nil {
		v.Field("price", n).MinInt(0)
	}
	return v.Validate()
}

type RequestDTO struct {
	Asset       string `schema:"asset"`
	Status      int    `schema:"status"`
	Details     string `schema:"details"`
	ReceiveDate string `schema:"receive_date"`
	Comment     string `schema:"comment"`
}

func (d RequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", d.Status).Custom(func(value interface{}) *internal.AppError {
		if s, _ := value.(int); !assetDatamodel.RequestStatus(s).Valid() {
			return internal.NewValidationFieldError("status", "Select a valid choice.", internal.ErrCodeInvalidFormat)
		}
		return nil
	})
	v.Field("receive_date", d.ReceiveDate).Date(dateLayout, "Enter a valid date.")
	return v.Validate()
}

type IssueDTO struct {
	Asset        string `schema:"asset"`
	Status       string `schema:"status"`
	RaisedBy     string `schema:"raised_by"`
	Description  string `schema:"description"`
	FixDate      string `schema:"fix_date"`
	ResolvedDate string `schema:"resolved_date"`
	Comment      string `schema:"comment"`
}

func (d IssueDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("asset", d.Asset).Required()
	v.Field("status", d.Status).Required()
	v.Field("raised_by", d.RaisedBy).Required()
	v.Field("fix_date", d.FixDate).Date(dateLayout, "Enter a valid date.")
	v.Field("resolved_date", d.ResolvedDate).Date(dateLayout, "Enter a valid date.")
	return v.Validate()
}

// ParseDate reads a date input in the site's timezone. Empty values yield
// nil; the DTOs reject anything else that does not parse.
func ParseDate(ctx context.Context, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, value, internal.LocationFromContext(ctx))
	if err != nil {
		return nil
	}
	return &t
}

// FormatDate renders t for a date input in the site's timezone.
func FormatDate(ctx context.Context, t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(internal.LocationFromContext(ctx)).Format(dateLayout)
}

func invalidInput(err error) *internal.AppError {
	return internal.NewValidationError("Invalid form data", internal.ErrCodeInvalidFormat).WithCause(err)
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
