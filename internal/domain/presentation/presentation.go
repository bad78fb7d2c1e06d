// Package presentation maps risk levels to display metadata for dashboards.
package presentation

import (
	"fmt"
	"strings"

	"github.com/eduguard/eduguard/internal/domain/risk"
)

// Theme colors.
const (
	ColorSuccess = "#10B981"
	ColorWarning = "#F59E0B"
	ColorDanger  = "#EF4444"
	ColorMedium  = "#64748B"
)

// Tone names the theme slot a color comes from.
type Tone string

// Tones.
const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneMedium  Tone = "medium"
)

// LabelUnknown is shown for a missing or unrecognized level.
const LabelUnknown = "N/A"

// Presentation is what a dashboard needs to render a risk badge.
type Presentation struct {
	Level      risk.Level `json:"level,omitempty"`
	Label      string     `json:"label"`
	Color      string     `json:"color"`
	Tone       Tone       `json:"tone"`
	Severity   int        `json:"severity"`
	ActionPlan string     `json:"actionPlan"`
}

type style struct {
	label string
	color string
	tone  Tone
	plan  []string
}

var styles = map[risk.Level]style{
	risk.LevelHigh: {
		label: "HIGH",
		color: ColorDanger,
		tone:  ToneDanger,
		plan: []string{
			"Critical intervention required for %[1]s (score %[2]d).",
			"1. Schedule a parent-teacher meeting this week.",
			"2. Assign daily remedial sessions in the weakest subjects.",
			"3. Track attendance daily and follow up on every absence.",
			"4. Review progress again in two weeks.",
		},
	},
	risk.LevelMedium: {
		label: "MEDIUM",
		color: ColorWarning,
		tone:  ToneWarning,
		plan: []string{
			"%[1]s needs focused improvement (score %[2]d).",
			"1. Set weekly goals for homework completion.",
			"2. Offer extra practice in subjects below the class average.",
			"3. Share a progress update with parents every month.",
		},
	},
	risk.LevelLow: {
		label: "LOW",
		color: ColorSuccess,
		tone:  ToneSuccess,
		plan: []string{
			"Great work, %[1]s! (score %[2]d)",
			"1. Keep up the consistent attendance and homework.",
			"2. Consider advanced material or peer mentoring.",
		},
	},
}

var unknown = style{
	label: LabelUnknown,
	color: ColorMedium,
	tone:  ToneMedium,
	plan:  []string{"No risk assessment is available for %[1]s yet."},
}

// Present returns the presentation record for level, filling the action plan
// with name and score. Unknown levels get the neutral fallback.
func Present(level risk.Level, name string, score int) Presentation {
	st, ok := styles[level]
	if !ok {
		st = unknown
		level = ""
	}
	return Presentation{
		Level:      level,
		Label:      st.label,
		Color:      st.color,
		Tone:       st.tone,
		Severity:   level.Severity(),
		ActionPlan: render(st.plan, name, score),
	}
}

// ActionPlan returns only the action plan text.
func ActionPlan(level risk.Level, name string, score int) string {
	return Present(level, name, score).ActionPlan
}

// Color returns the badge color for level.
func Color(level risk.Level) string {
	if st, ok := styles[level]; ok {
		return st.color
	}
	return unknown.color
}

// Severity orders levels for sorting; higher is more severe.
func Severity(level risk.Level) int { return level.Severity() }

func render(lines []string, name string, score int) string {
	if strings.TrimSpace(name) == "" {
		name = "this student"
	}
	return fmt.Sprintf(strings.Join(lines, "\n"), name, score)
}
