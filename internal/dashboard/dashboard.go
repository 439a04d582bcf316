// Package dashboard serves the staff landing page: entity counts and the
// daily asset request chart.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/pkg/clock"
)

const (
	dateLayout = "2006-01-02"
	// defaultDays is the chart range when no dates are given.
	defaultDays = 7
	maxDays     = 366
)

type RepositoryAPI interface {
	Count(ctx context.Context, table string) (int64, error)
	RequestTimes(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// Count is one card on the dashboard.
type Count struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

// Point is the number of asset requests made on one day.
type Point struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

var cards = []struct {
	label, url, table string
}{
	{"Users", "/users/list", "users"},
	{"Designations", "/designations/list", "designations"},
	{"Groups", "/groups/list", "groups"},
	{"Assets", "/assets/list", "assets"},
	{"Asset Statuses", "/asset-statuses/list", "asset_statuses"},
	{"Categories", "/categories/list", "categories"},
	{"Suppliers", "/suppliers/list", "suppliers"},
	{"Departments", "/departments/list", "departments"},
}

type Service struct {
	repo   RepositoryAPI
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{repo: repo, clock: clk, logger: logger}
}

func (s *Service) Counts(ctx context.Context) ([]Count, error) {
	out := make([]Count, 0, len(cards))
	for _, c := range cards {
		n, err := s.repo.Count(ctx, c.table)
		if err != nil {
			s.logger.ErrorContext(ctx, "Counts: query failed", "table", c.table, "error", err)
			return nil, internal.NewInternalError("failed to count "+c.table, err)
		}
		out = append(out, Count{Label: c.label, URL: c.url, Count: n})
	}
	return out, nil
}

// Chart counts the asset requests per day from start to end inclusive, in
// the site timezone. Days without requests are reported with zero. Empty
// bounds default to the last week.
func (s *Service) Chart(ctx context.Context, start, end string) ([]Point, error) {
	loc := internal.LocationFromContext(ctx)
	today := s.clock.Now().In(loc)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

	to := today
	if end != "" {
		parsed, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return nil, internal.NewValidationFieldError("end", "Enter a valid date.", internal.ErrCodeInvalidFormat)
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -(defaultDays - 1))
	if start != "" {
		parsed, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return nil, internal.NewValidationFieldError("start", "Enter a valid date.", internal.ErrCodeInvalidFormat)
		}
		from = parsed
	}
	if to.Before(from) {
		return nil, internal.NewValidationFieldError("end", "End date must not be before start date.", internal.ErrCodeInvalidFormat)
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
		if len(days) > maxDays {
			return nil, internal.NewValidationFieldError("end", "Choose a range of at most a year.", internal.ErrCodeInvalidFormat)
		}
	}

	times, err := s.repo.RequestTimes(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.ErrorContext(ctx, "Chart: query failed", "error", err)
		return nil, internal.NewInternalError("failed to load asset requests", err)
	}
	perDay := make(map[string]int, len(days))
	for _, t := range times {
		perDay[t.In(loc).Format(dateLayout)]++
	}

	points := make([]Point, len(days))
	for i, d := range days {
		key := d.Format(dateLayout)
		points[i] = Point{Date: key, Count: perDay[key]}
	}
	return points, nil
}
