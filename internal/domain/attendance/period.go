package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/eduguard/eduguard/internal/domain/model"
)

const monthLayout = "2006-01"

// ErrInvalidPeriod is returned when a month or date range cannot be parsed.
var ErrInvalidPeriod = errors.New("invalid attendance period")

// Period restricts aggregation to an inclusive range of ISO dates. An empty
// bound is open; the zero Period covers every recorded date.
type Period struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// AllDates covers every recorded date.
func AllDates() Period { return Period{} }

// Month covers one calendar month.
func Month(year int, month time.Month) Period {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return Period{From: first.Format(model.DateLayout), To: last.Format(model.DateLayout)}
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (Period, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: month %q: %v", ErrInvalidPeriod, s, err)
	}
	return Month(t.Year(), t.Month()), nil
}

// ParseRange parses inclusive YYYY-MM-DD bounds. Either bound may be empty.
func ParseRange(from, to string) (Period, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return Period{}, fmt.Errorf("%w: date %q: %v", ErrInvalidPeriod, d, err)
		}
	}
	if from != "" && to != "" && from > to {
		return Period{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidPeriod, from, to)
	}
	return Period{From: from, To: to}, nil
}

// IsAll reports whether the period is unbounded.
func (p Period) IsAll() bool { return p.From == "" && p.To == "" }

// Contains reports whether an ISO date falls inside the period. Keys that
// are not ISO dates only match the unbounded period.
func (p Period) Contains(date string) bool {
	if p.IsAll() {
		return true
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return false
	}
	if p.From != "" && date < p.From {
		return false
	}
	if p.To != "" && date > p.To {
		return false
	}
	return true
}
