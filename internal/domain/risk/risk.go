// Package risk turns a student's academic signals into a risk score and level.
//
// Two named strategies are provided. Linear produces a performance score
// where a high score means low risk; Logistic produces a risk score where a
// high score means high risk. Callers always choose a variant explicitly.
package risk

import (
	"fmt"
	"math"
	"strings"
)

const (
	minPercent = 0.0
	maxPercent = 100.0
)

// Variant names a scoring formula.
type Variant string

// Supported variants.
const (
	VariantLinear   Variant = "linear"
	VariantLogistic Variant = "logistic"
)

// Variants lists every supported variant.
func Variants() []Variant { return []Variant{VariantLinear, VariantLogistic} }

// ParseVariant parses a variant name case-insensitively.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantLinear, VariantLogistic:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Level is a categorical risk classification.
type Level string

// Risk levels.
const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, bool) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelLow, LevelMedium, LevelHigh:
		return l, true
	default:
		return "", false
	}
}

// Severity orders levels: HIGH > MEDIUM > LOW > anything else.
func (l Level) Severity() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether l is one of the three known levels.
func (l Level) Valid() bool { return l.Severity() > 0 }

// Polarity tells consumers what a score measures.
type Polarity string

// Polarities.
const (
	// PolarityPerformance: higher score is better, LOW risk at the top.
	PolarityPerformance Polarity = "performance"
	// PolarityRisk: higher score is worse.
	PolarityRisk Polarity = "risk"
)

// InputPolicy controls how out-of-range percentages are handled.
type InputPolicy string

// Input policies.
const (
	// PolicyPassthrough feeds inputs to the formula unchanged.
	PolicyPassthrough InputPolicy = "passthrough"
	// PolicyClamp clamps inputs into [0,100].
	PolicyClamp InputPolicy = "clamp"
	// PolicyReject fails with ErrInputOutOfRange.
	PolicyReject InputPolicy = "reject"
)

// ParseInputPolicy parses a policy name; empty means passthrough.
func ParseInputPolicy(s string) (InputPolicy, error) {
	switch p := InputPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPassthrough, nil
	case PolicyPassthrough, PolicyClamp, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownInputPolicy, s)
	}
}

// Signals are the three percentages a score is computed from. A nil field is
// absent and replaced by the strategy's missing value.
type Signals struct {
	Marks      *float64 `json:"marks,omitempty"`
	Attendance *float64 `json:"attendance,omitempty"`
	Homework   *float64 `json:"homework,omitempty"`
}

// NewSignals builds Signals from raw numbers. NaN and infinities are absent.
func NewSignals(marks, attendance, homework float64) Signals {
	return Signals{
		Marks:      finite(marks),
		Attendance: finite(attendance),
		Homework:   finite(homework),
	}
}

// Result is a computed classification. It is a plain value and is never
// persisted.
type Result struct {
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Variant  Variant  `json:"variant"`
	Polarity Polarity `json:"polarity"`
}

// Strategy is a named scoring formula.
type Strategy interface {
	Variant() Variant
	Polarity() Polarity
	Score(s Signals) (Result, error)
	Classify(score int) Level
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// resolve applies the missing value and the input policy to one signal.
func resolve(name string, v *float64, missing float64, policy InputPolicy) (float64, error) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return missing, nil
	}
	x := *v
	if x >= minPercent && x <= maxPercent {
		return x, nil
	}
	switch policy {
	case PolicyClamp:
		return clamp(x), nil
	case PolicyReject:
		return 0, fmt.Errorf("%w: %s=%g", ErrInputOutOfRange, name, x)
	default:
		return x, nil
	}
}

func clamp(x float64) float64 {
	return math.Max(minPercent, math.Min(maxPercent, x))
}

// toScore rounds half away from zero and bounds the result to [0,100].
func toScore(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	return int(clamp(math.Round(x)))
}
