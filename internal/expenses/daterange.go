package expenses

import (
	"strings"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/models"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Date range presets accepted by the range query parameter.
const (
	RangeThisMonth   = "this-month"
	RangeLastMonth   = "last-month"
	RangeLast3Months = "last-3-months"
	RangeThisYear    = "this-year"
	RangeCustom      = "custom"
)

// ResolveDateRange turns a preset, or explicit start and end dates, into an
// inclusive range relative to now. A preset wins over explicit dates except
// for "custom", which uses them as given.
func ResolveDateRange(now time.Time, preset, start, end string) (storage.DateRange, error) {
	year, month := now.Year(), now.Month()

	switch strings.ToLower(strings.TrimSpace(preset)) {
	case RangeThisMonth:
		return storage.MonthRange(year, month), nil
	case RangeLastMonth:
		prev := time.Date(year, month-1, 1, 0, 0, 0, 0, time.UTC)
		return storage.MonthRange(prev.Year(), prev.Month()), nil
	case RangeLast3Months:
		from := models.NewDate(year, month-3, 1)
		_, to := models.MonthBounds(year, month)
		return storage.DateRange{Start: &from, End: &to}, nil
	case RangeThisYear:
		from, to := models.NewDate(year, time.January, 1), models.NewDate(year, time.December, 31)
		return storage.DateRange{Start: &from, End: &to}, nil
	case "", RangeCustom:
		return explicitRange(start, end)
	default:
		return storage.DateRange{}, invalid("range", "must be one of: %s, %s, %s, %s, %s",
			RangeThisMonth, RangeLastMonth, RangeLast3Months, RangeThisYear, RangeCustom)
	}
}

func explicitRange(start, end string) (storage.DateRange, error) {
	var r storage.DateRange
	if s := strings.TrimSpace(start); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			return r, invalid("startDate", "must be formatted as YYYY-MM-DD")
		}
		r.Start = &d
	}
	if e := strings.TrimSpace(end); e != "" {
		d, err := models.ParseDate(e)
		if err != nil {
			return r, invalid("endDate", "must be formatted as YYYY-MM-DD")
		}
		r.End = &d
	}
	if r.Start != nil && r.End != nil && r.End.Before(r.Start.Time) {
		return storage.DateRange{}, invalid("endDate", "must not be before startDate")
	}
	return r, nil
}
