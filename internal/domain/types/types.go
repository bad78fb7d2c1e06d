// Package types contains response shapes shared by the service, the HTTP API
// and the CLI client.
package types

import (
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
)

// StudentRisk is a single evaluated student.
type StudentRisk struct {
	StudentID    string                    `json:"studentId"`
	Name         string                    `json:"name"`
	ClassID      string                    `json:"classId,omitempty"`
	Signals      risk.Signals              `json:"signals"`
	Attendance   attendance.Summary        `json:"attendance"`
	Risk         risk.Result               `json:"risk"`
	Presentation presentation.Presentation `json:"presentation"`
}

// LevelCounts counts students per risk level.
type LevelCounts struct {
	High    int `json:"HIGH"`
	Medium  int `json:"MEDIUM"`
	Low     int `json:"LOW"`
	Unknown int `json:"unknown,omitempty"`
}

// Add counts one student at level.
func (c *LevelCounts) Add(level risk.Level) {
	switch level {
	case risk.LevelHigh:
		c.High++
	case risk.LevelMedium:
		c.Medium++
	case risk.LevelLow:
		c.Low++
	default:
		c.Unknown++
	}
}

// Total returns the number of counted students.
func (c LevelCounts) Total() int { return c.High + c.Medium + c.Low + c.Unknown }

// ClassRisk lists a class's students, most severe first.
type ClassRisk struct {
	ClassID   string        `json:"classId"`
	ClassName string        `json:"className,omitempty"`
	Variant   risk.Variant  `json:"variant"`
	Counts    LevelCounts   `json:"counts"`
	Students  []StudentRisk `json:"students"`
}

// ClassAttendance is a class summary plus per-date percentages.
type ClassAttendance struct {
	ClassID string                  `json:"classId"`
	Period  attendance.Period       `json:"period"`
	Summary attendance.Summary      `json:"summary"`
	Days    []attendance.DayPercent `json:"days"`
}

// Overview is the school-wide picture shown on admin dashboards.
type Overview struct {
	Variant      risk.Variant       `json:"variant"`
	Classes      int                `json:"classes"`
	Students     int                `json:"students"`
	Counts       LevelCounts        `json:"counts"`
	AverageScore float64            `json:"averageScore"`
	Attendance   attendance.Summary `json:"attendance"`
}

// ScoreRequest is an ad-hoc scoring request. Variant is matched
// case-insensitively, like the variant query parameter.
type ScoreRequest struct {
	Name       string   `json:"name,omitempty" validate:"max=120"`
	Variant    string   `json:"variant,omitempty" validate:"max=16"`
	Marks      *float64 `json:"marks,omitempty"`
	Attendance *float64 `json:"attendance,omitempty"`
	Homework   *float64 `json:"homework,omitempty"`
}

// ScoreResponse is the answer to a ScoreRequest.
type ScoreResponse struct {
	Risk         risk.Result               `json:"risk"`
	Presentation presentation.Presentation `json:"presentation"`
}

// Stats is a snapshot of service counters.
type Stats struct {
	Backend        string            `json:"backend"`
	DefaultVariant risk.Variant      `json:"defaultVariant"`
	InputPolicy    risk.InputPolicy  `json:"inputPolicy"`
	HomeworkPolicy string            `json:"homeworkPolicy"`
	Evaluations    map[string]uint64 `json:"evaluations"`
	Rejected       uint64            `json:"rejected"`
	Failed         uint64            `json:"failed"`
	UptimeSeconds  float64           `json:"uptimeSeconds"`
}
