// Package analytics aggregates a user's expenses by category and by month.
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Year bounds of a queryable month. Summary also needs the previous month,
// so it starts one month later.
const (
	MinYear = 1
	MaxYear = 9999
)

var (
	// ErrInvalidMonth is returned when a month is outside 1..12.
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	// ErrInvalidYear is returned when a year is outside MinYear..MaxYear.
	ErrInvalidYear = errors.New("year is out of range")
)

func checkMonth(year, month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < MinYear || year > MaxYear {
		return ErrInvalidYear
	}
	return nil
}

// Service answers aggregate queries over the expense store.
type Service struct {
	store storage.ExpenseStore
}

func NewService(store storage.ExpenseStore) *Service {
	return &Service{store: store}
}

// Categories returns per-category totals within dates, largest first.
func (s *Service) Categories(ctx context.Context, userID string, dates storage.DateRange) ([]models.CategoryTotal, error) {
	return s.store.CategoryTotals(ctx, userID, dates)
}

// Monthly returns totals for one calendar month.
func (s *Service) Monthly(ctx context.Context, userID string, year, month int) (models.MonthlyStats, error) {
	if err := checkMonth(year, month); err != nil {
		return models.MonthlyStats{}, err
	}
	return s.store.MonthlyStats(ctx, userID, year, time.Month(month))
}

// Summary compares a month with the one before it.
func (s *Service) Summary(ctx context.Context, userID string, year, month int) (models.MonthlySummary, error) {
	if err := checkMonth(year, month); err != nil {
		return models.MonthlySummary{}, err
	}
	if year == MinYear && month == 1 {
		return models.MonthlySummary{}, ErrInvalidYear
	}
	prev := time.Date(year, time.Month(month)-1, 1, 0, 0, 0, 0, time.UTC)

	var current, previous models.MonthlyStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.store.MonthlyStats(gctx, userID, year, time.Month(month))
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.store.MonthlyStats(gctx, userID, prev.Year(), prev.Month())
		return err
	})
	if err := g.Wait(); err != nil {
		return models.MonthlySummary{}, err
	}

	return models.MonthlySummary{
		Year:          year,
		Month:         month,
		Current:       current,
		Previous:      previous,
		PercentChange: PercentChange(previous.TotalExpenses, current.TotalExpenses),
	}, nil
}

// PercentChange returns the change from prev to curr in percent, rounded to
// one decimal place. With no previous spending it is 100 when anything was
// spent and 0 otherwise.
func PercentChange(prev, curr decimal.Decimal) float64 {
	if prev.IsZero() {
		if curr.IsPositive() {
			return 100
		}
		return 0
	}
	change := curr.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1)
	return change.InexactFloat64()
}
