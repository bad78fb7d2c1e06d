package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eduguard/eduguard/internal/client"
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
)

const (
	defaultURL = "http://localhost:9080"
	envURL     = "EDUGUARD_URL"
)

var errNoSignals = errors.New("at least one of --marks, --attendance or --homework is required")

// globals holds the persistent flags.
type globals struct {
	url     string
	timeout time.Duration
	output  string
	variant string
}

func (g *globals) client() (*client.Client, error) {
	return client.New(g.url, client.WithTimeout(g.timeout))
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "riskctl",
		Short:        "Score student risk and inspect EduGuard dashboards",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if g.output != outputText && g.output != outputJSON {
				return fmt.Errorf("unknown --output %q (want text or json)", g.output)
			}
			if g.variant != "" {
				if _, err := risk.ParseVariant(g.variant); err != nil {
					return err
				}
			}
			return nil
		},
	}

	url := os.Getenv(envURL)
	if url == "" {
		url = defaultURL
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.url, "url", url, "EduGuard API base URL (env "+envURL+")")
	pf.DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "request timeout")
	pf.StringVarP(&g.output, "output", "o", outputText, "output format: text or json")
	pf.StringVar(&g.variant, "variant", "", "scoring variant: linear or logistic (server default when empty)")

	root.AddCommand(
		newScoreCmd(g),
		newLevelCmd(g),
		newStudentCmd(g),
		newClassCmd(g),
		newAttendanceCmd(g),
		newOverviewCmd(g),
		newMarkCmd(g),
		newHomeworkCmd(g),
	)
	return root
}

func newScoreCmd(g *globals) *cobra.Command {
	var (
		marks, att, hw float64
		name, policy   string
		remote         bool
	)
	cmd := &cobra.Command{
		Use:     "score",
		Short:   "Score marks, attendance and homework percentages",
		Example: `  riskctl score --marks 72 --attendance 88 --homework 60
  riskctl score --variant logistic --marks 35 --policy clamp
  riskctl score --remote --name Asha --marks 82 --attendance 91 --homework 70`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := types.ScoreRequest{Name: name, Variant: g.variant}
			if cmd.Flags().Changed("marks") {
				req.Marks = model.Float(marks)
			}
			if cmd.Flags().Changed("attendance") {
				req.Attendance = model.Float(att)
			}
			if cmd.Flags().Changed("homework") {
				req.Homework = model.Float(hw)
			}
			if req.Marks == nil && req.Attendance == nil && req.Homework == nil {
				return errNoSignals
			}

			var out types.ScoreResponse
			if remote {
				c, err := g.client()
				if err != nil {
					return err
				}
				if out, err = c.Score(cmd.Context(), req); err != nil {
					return err
				}
			} else {
				var err error
				if out, err = scoreLocal(req, policy); err != nil {
					return err
				}
			}
			return render(cmd.OutOrStdout(), g.output, out)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&marks, "marks", 0, "marks percentage")
	f.Float64Var(&att, "attendance", 0, "attendance percentage")
	f.Float64Var(&hw, "homework", 0, "homework engagement percentage")
	f.StringVar(&name, "name", "", "student name for the action plan")
	f.StringVar(&policy, "policy", string(risk.PolicyPassthrough), "out-of-range inputs: passthrough, clamp or reject")
	f.BoolVar(&remote, "remote", false, "score through the API instead of locally")
	return cmd
}

// scoreLocal applies the engine in-process.
func scoreLocal(req types.ScoreRequest, policy string) (types.ScoreResponse, error) {
	p, err := risk.ParseInputPolicy(policy)
	if err != nil {
		return types.ScoreResponse{}, err
	}
	engine := risk.NewEngine(risk.WithEnginePolicy(p))
	v := engine.DefaultVariant()
	if req.Variant != "" {
		if v, err = risk.ParseVariant(req.Variant); err != nil {
			return types.ScoreResponse{}, err
		}
	}
	res, err := engine.Score(v, risk.Signals{Marks: req.Marks, Attendance: req.Attendance, Homework: req.Homework})
	if err != nil {
		return types.ScoreResponse{}, err
	}
	return types.ScoreResponse{Risk: res, Presentation: presentation.Present(res.Level, req.Name, res.Score)}, nil
}

func newLevelCmd(g *globals) *cobra.Command {
	var (
		name  string
		score int
	)
	cmd := &cobra.Command{
		Use:   "level LEVEL",
		Short: "Show the badge and action plan for LOW, MEDIUM or HIGH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := risk.ParseLevel(args[0])
			return render(cmd.OutOrStdout(), g.output, presentation.Present(level, name, score))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "student name")
	cmd.Flags().IntVar(&score, "score", 0, "score shown in the action plan")
	return cmd
}

func newStudentCmd(g *globals) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "student ID [ID...]",
		Short: "Evaluate one or more students",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			out, err := evaluateStudents(cmd.Context(), c, args, risk.Variant(g.variant), workers)
			if err != nil {
				return err
			}
			if len(out) == 1 {
				return render(cmd.OutOrStdout(), g.output, out[0])
			}
			return render(cmd.OutOrStdout(), g.output, out)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent requests")
	return cmd
}

// evaluateStudents fetches ids with at most workers requests in flight and
// keeps the argument order.
func evaluateStudents(ctx context.Context, c *client.Client, ids []string, v risk.Variant, workers int) ([]types.StudentRisk, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]types.StudentRisk, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			r, err := c.StudentRisk(gctx, id, v)
			if err != nil {
				return fmt.Errorf("student %s: %w", id, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func newClassCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "class ID",
		Short: "Evaluate every student of a class, most severe first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			out, err := c.ClassRisk(cmd.Context(), args[0], risk.Variant(g.variant))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.output, out)
		},
	}
}

func newAttendanceCmd(g *globals) *cobra.Command {
	var month, from, to string
	cmd := &cobra.Command{
		Use:   "attendance CLASS",
		Short: "Show class attendance for a month or date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := attendance.ParseRange(from, to)
			if month != "" {
				period, err = attendance.ParseMonth(month)
			}
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			out, err := c.ClassAttendance(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.output, out)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM")
	cmd.Flags().StringVar(&from, "from", "", "first date as YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date as YYYY-MM-DD")
	cmd.MarkFlagsMutuallyExclusive("month", "from")
	cmd.MarkFlagsMutuallyExclusive("month", "to")
	return cmd
}

func newOverviewCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show school-wide counts per risk level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			out, err := c.Overview(cmd.Context(), risk.Variant(g.variant))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.output, out)
		},
	}
}

func newMarkCmd(g *globals) *cobra.Command {
	var (
		date                  string
		present, late, absent []string
	)
	cmd := &cobra.Command{
		Use:     "mark CLASS",
		Short:   "Mark attendance for one date",
		Example: `  riskctl mark c10A --date 2024-03-04 --present s1,s3 --late s2 --absent s4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			marks := model.DayRecord{}
			for _, set := range []struct {
				ids []string
				p   model.Presence
			}{{absent, model.Absent}, {late, model.Late}, {present, model.Present}} {
				for _, id := range set.ids {
					marks[id] = set.p
				}
			}
			if len(marks) == 0 {
				return errors.New("no students marked")
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.MarkAttendance(cmd.Context(), args[0], date, marks); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "marked %d students in %s on %s\n", len(marks), args[0], date)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", time.Now().Format(model.DateLayout), "date as YYYY-MM-DD")
	f.StringSliceVar(&present, "present", nil, "student ids marked Present")
	f.StringSliceVar(&late, "late", nil, "student ids marked Late")
	f.StringSliceVar(&absent, "absent", nil, "student ids marked Absent")
	return cmd
}

func newHomeworkCmd(g *globals) *cobra.Command {
	var (
		subject, due string
		number       int
	)
	cmd := &cobra.Command{
		Use:   "homework CLASS",
		Short: "Post an assignment to a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			hw, err := c.AddHomework(cmd.Context(), model.Homework{
				ClassID:      args[0],
				Subject:      subject,
				DueDate:      due,
				AssignmentNo: number,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), g.output, hw)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject name")
	cmd.Flags().StringVar(&due, "due", "", "due date as YYYY-MM-DD")
	cmd.Flags().IntVar(&number, "number", 0, "assignment number (next free number when 0)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
