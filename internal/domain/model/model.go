// Package model contains the school records passed between layers.
//
// Field names and JSON tags follow the document store layout
// (Students/, Classes/, Attendance/<class>/<date>/<student>, Homework/<class>/<id>,
// HomeworkStatus/<homework>/<student>).
package model

import "sort"

// DateLayout is the ISO calendar-day layout used for attendance keys.
const DateLayout = "2006-01-02"

// Student is a student record. Percent fields are optional; nil means the
// store carries no value.
type Student struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ClassID       string   `json:"classId"`
	ClassName     string   `json:"className,omitempty"`
	ParentEmail   string   `json:"parentEmail,omitempty"`
	RollNumber    string   `json:"rollNumber,omitempty"`
	Marks         *float64 `json:"marks,omitempty"`
	Attendance    *float64 `json:"attendance,omitempty"`
	HomeworkScore *float64 `json:"homeworkScore,omitempty"`
}

// Class is a class (section) record.
type Class struct {
	ID        string `json:"id"`
	Name      string `json:"className"`
	TeacherID string `json:"teacherId,omitempty"`
	Section   string `json:"section,omitempty"`
}

// Homework is one assignment posted to a class. There is no per-student
// completion flag on the assignment itself.
type Homework struct {
	ID           string `json:"id"`
	ClassID      string `json:"classId,omitempty"`
	Subject      string `json:"subject"`
	DueDate      string `json:"dueDate,omitempty"`
	AssignmentNo int    `json:"assignmentNo,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// DayRecord maps a student id to the presence marked for one date.
type DayRecord map[string]Presence

// ClassLedger maps an ISO date to the records marked on that date.
type ClassLedger map[string]DayRecord

// Ledger maps a class id to its attendance ledger.
type Ledger map[string]ClassLedger

// Dates returns the ledger dates in ascending order.
func (l ClassLedger) Dates() []string {
	dates := make([]string, 0, len(l))
	for d := range l {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// SubmissionSet maps a student id to their submission state for one assignment.
type SubmissionSet map[string]Submission

// Float returns a pointer to v, for optional percent fields.
func Float(v float64) *float64 {
	return &v
}
