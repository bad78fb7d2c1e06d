// Package homework derives a homework-engagement percentage for a student.
//
// The store has no per-student completion flag on assignments, so the
// default policy is a heuristic: an explicit homeworkScore on the student is
// used verbatim, otherwise a class with at least one assignment yields a
// fixed neutral-positive value and a class without assignments yields 0.
// This placeholder is the largest source of inaccuracy in risk scoring.
// The submissions policy measures a real submitted/assigned ratio when
// HomeworkStatus records exist.
package homework

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/eduguard/eduguard/internal/domain/model"
)

// Defaults for the heuristic policy.
const (
	DefaultAssignedFallback = 80.0
	noAssignmentsValue      = 0.0
)

// Policy selects how engagement is derived.
type Policy string

// Policies.
const (
	PolicyHeuristic   Policy = "heuristic"
	PolicySubmissions Policy = "submissions"
)

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("unknown homework policy")

// ParsePolicy parses a policy name; empty means heuristic.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyHeuristic:
		return PolicyHeuristic, nil
	case PolicySubmissions:
		return PolicySubmissions, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Signal applies the heuristic policy with the default fallback.
func Signal(list []model.Homework, student model.Student) float64 {
	return heuristic(list, student, DefaultAssignedFallback)
}

// SubmissionRatio returns round(100*submitted/assigned) over the class
// assignments that carry status records for the student. When none do, it
// falls back to the heuristic so that classes without status tracking keep
// their previous classification.
func SubmissionRatio(list []model.Homework, statuses map[string]model.SubmissionSet, student model.Student) float64 {
	if student.HomeworkScore != nil {
		return *student.HomeworkScore
	}
	tracked, submitted := 0, 0
	for _, hw := range list {
		set, ok := statuses[hw.ID]
		if !ok {
			continue
		}
		tracked++
		if set[student.ID] {
			submitted++
		}
	}
	if tracked == 0 {
		return heuristic(list, student, DefaultAssignedFallback)
	}
	return math.Round(100 * float64(submitted) / float64(tracked))
}

// Deriver applies a configured policy.
type Deriver struct {
	Policy Policy
	// AssignedFallback replaces the 80% heuristic value when positive.
	AssignedFallback float64
}

// Derive returns the engagement percentage for student. statuses is only
// read by the submissions policy and may be nil.
func (d Deriver) Derive(list []model.Homework, statuses map[string]model.SubmissionSet, student model.Student) float64 {
	fallback := DefaultAssignedFallback
	if d.AssignedFallback > 0 {
		fallback = d.AssignedFallback
	}
	if d.Policy == PolicySubmissions && student.HomeworkScore == nil && hasTracked(list, statuses) {
		return SubmissionRatio(list, statuses, student)
	}
	return heuristic(list, student, fallback)
}

// NeedsStatuses reports whether Derive reads HomeworkStatus records.
func (d Deriver) NeedsStatuses() bool {
	return d.Policy == PolicySubmissions
}

func heuristic(list []model.Homework, student model.Student, fallback float64) float64 {
	if student.HomeworkScore != nil {
		return *student.HomeworkScore
	}
	if len(list) > 0 {
		return fallback
	}
	return noAssignmentsValue
}

func hasTracked(list []model.Homework, statuses map[string]model.SubmissionSet) bool {
	for _, hw := range list {
		if _, ok := statuses[hw.ID]; ok {
			return true
		}
	}
	return false
}
