// Package attendance reduces raw presence records to attendance percentages.
//
// All functions are pure. A missing class or student yields the zero
// Summary; no records is defined as 0%, never an error.
package attendance

import (
	"math"

	"github.com/eduguard/eduguard/internal/domain/model"
)

// Summary is an aggregated attendance figure.
type Summary struct {
	PresentCount int `json:"presentCount"`
	TotalCount   int `json:"totalCount"`
	Percent      int `json:"percent"`
}

// DayPercent is the class attendance for a single date.
type DayPercent struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Marked  int    `json:"marked"`
	Percent int    `json:"percent"`
}

// Compute aggregates a class ledger over period. With an empty studentID the
// whole class is counted; otherwise only that student's marks are.
func Compute(ledger model.ClassLedger, period Period, studentID string) Summary {
	var s Summary
	for date, day := range ledger {
		if !period.Contains(date) {
			continue
		}
		if studentID == "" {
			for _, p := range day {
				s.add(p)
			}
			continue
		}
		if p, ok := day[studentID]; ok {
			s.add(p)
		}
	}
	s.Percent = Percent(s.PresentCount, s.TotalCount)
	return s
}

// ComputeSchool aggregates every class of the ledger. It is used where the
// caller knows the student but not the class.
func ComputeSchool(ledger model.Ledger, period Period, studentID string) Summary {
	var s Summary
	for _, cl := range ledger {
		part := Compute(cl, period, studentID)
		s.PresentCount += part.PresentCount
		s.TotalCount += part.TotalCount
	}
	s.Percent = Percent(s.PresentCount, s.TotalCount)
	return s
}

// Daily returns the per-date class percentage in date order. Dates with no
// marked students are skipped rather than reported as 0%.
func Daily(ledger model.ClassLedger, period Period) []DayPercent {
	out := make([]DayPercent, 0, len(ledger))
	for _, date := range ledger.Dates() {
		if !period.Contains(date) {
			continue
		}
		day := ledger[date]
		if len(day) == 0 {
			continue
		}
		present := 0
		for _, p := range day {
			if p.Attended() {
				present++
			}
		}
		out = append(out, DayPercent{
			Date:    date,
			Present: present,
			Marked:  len(day),
			Percent: Percent(present, len(day)),
		})
	}
	return out
}

// Percent returns round(100*present/total), or 0 when total is 0.
func Percent(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}

func (s *Summary) add(p model.Presence) {
	s.TotalCount++
	if p.Attended() {
		s.PresentCount++
	}
}
