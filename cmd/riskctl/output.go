package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/types"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
)

func render(w io.Writer, format string, v any) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch x := v.(type) {
	case types.ScoreResponse:
		fmt.Fprintf(tw, "SCORE\tLEVEL\tVARIANT\tCOLOR\n")
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", x.Risk.Score, x.Presentation.Label, x.Risk.Variant, x.Presentation.Color)
		fmt.Fprintf(tw, "\n%s\n", x.Presentation.ActionPlan)
	case presentation.Presentation:
		fmt.Fprintf(tw, "LABEL\tCOLOR\tSEVERITY\n")
		fmt.Fprintf(tw, "%s\t%s\t%d\n", x.Label, x.Color, x.Severity)
		fmt.Fprintf(tw, "\n%s\n", x.ActionPlan)
	case types.StudentRisk:
		studentHeader(tw)
		studentRow(tw, x)
	case []types.StudentRisk:
		studentHeader(tw)
		for _, r := range x {
			studentRow(tw, r)
		}
	case types.ClassRisk:
		fmt.Fprintf(tw, "class %s %s (%s)  HIGH %d  MEDIUM %d  LOW %d\n\n",
			x.ClassID, x.ClassName, x.Variant, x.Counts.High, x.Counts.Medium, x.Counts.Low)
		studentHeader(tw)
		for _, r := range x.Students {
			studentRow(tw, r)
		}
	case types.ClassAttendance:
		fmt.Fprintf(tw, "class %s  %d/%d present  %d%%\n\n", x.ClassID, x.Summary.PresentCount, x.Summary.TotalCount, x.Summary.Percent)
		fmt.Fprintf(tw, "DATE\tPRESENT\tMARKED\tPERCENT\n")
		for _, d := range x.Days {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d%%\n", d.Date, d.Present, d.Marked, d.Percent)
		}
	case types.Overview:
		fmt.Fprintf(tw, "VARIANT\tCLASSES\tSTUDENTS\tHIGH\tMEDIUM\tLOW\tAVG SCORE\tATTENDANCE\n")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%d%%\n",
			x.Variant, x.Classes, x.Students, x.Counts.High, x.Counts.Medium, x.Counts.Low, x.AverageScore, x.Attendance.Percent)
	case model.Homework:
		fmt.Fprintf(tw, "ID\tCLASS\tNO\tSUBJECT\tDUE\n")
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", x.ID, x.ClassID, x.AssignmentNo, x.Subject, x.DueDate)
	default:
		fmt.Fprintf(tw, "%+v\n", v)
	}
	return tw.Flush()
}

func studentHeader(w io.Writer) {
	fmt.Fprintf(w, "ID\tNAME\tSCORE\tLEVEL\tMARKS\tATTENDANCE\tHOMEWORK\n")
}

func studentRow(w io.Writer, r types.StudentRisk) {
	fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
		r.StudentID, r.Name, r.Risk.Score, r.Presentation.Label,
		percent(r.Signals.Marks), percent(r.Signals.Attendance), percent(r.Signals.Homework))
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}
