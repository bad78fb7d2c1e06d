// Package service evaluates student risk on top of the data store.
//
// Every evaluation fetches all of its inputs first and only then calls the
// scoring engine, so the engine never sees partially loaded data.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/homework"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
	"github.com/eduguard/eduguard/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 8
	defaultMaxClassSize = 500
)

// Service implements the API dependencies for the risk dashboards.
type Service struct {
	source       datastore.Source
	writer       datastore.Writer
	backend      string
	engine       *risk.Engine
	homework     homework.Deriver
	concurrency  int
	maxClassSize int
	logger       logger.Logger
	now          func() time.Time
	startedAt    time.Time

	mu          sync.Mutex
	evaluations map[string]uint64
	rejected    uint64
	failed      uint64
}

// New constructs a Service. Without WithStore or WithSource it serves an
// empty in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		engine:       risk.NewEngine(),
		homework:     homework.Deriver{Policy: homework.PolicyHeuristic},
		concurrency:  defaultConcurrency,
		maxClassSize: defaultMaxClassSize,
		now:          time.Now,
		evaluations:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		mem := datastore.NewMemoryStore()
		s.source, s.writer, s.backend = mem, mem, mem.Backend()
	}
	if s.backend == "" {
		s.backend = "custom"
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.startedAt = s.now()
	return s
}

// Engine returns the scoring engine.
func (s *Service) Engine() *risk.Engine { return s.engine }

// EvaluateStudent scores one student. An empty variant uses the engine
// default.
func (s *Service) EvaluateStudent(ctx context.Context, studentID string, variant risk.Variant) (types.StudentRisk, error) {
	start := s.now()
	st, err := s.source.Student(ctx, studentID)
	if err != nil {
		return types.StudentRisk{}, fmt.Errorf("load student: %w", err)
	}

	in, err := s.loadClass(ctx, st.ClassID)
	if err != nil {
		return types.StudentRisk{}, err
	}

	out, err := s.evaluate(ctx, st, in, variant)
	if err != nil {
		return types.StudentRisk{}, err
	}
	metrics.RecordEvaluationLatency(float64(s.now().Sub(start).Microseconds()) / 1000)
	return out, nil
}

// ClassRisk evaluates every student of a class, most severe first, then by
// name.
func (s *Service) ClassRisk(ctx context.Context, classID string, variant risk.Variant) (types.ClassRisk, error) {
	v, err := s.resolveVariant(variant)
	if err != nil {
		return types.ClassRisk{}, err
	}
	class, err := s.source.Class(ctx, classID)
	if err != nil {
		return types.ClassRisk{}, fmt.Errorf("load class: %w", err)
	}

	var (
		students []model.Student
		in       classInputs
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := s.source.Students(gctx)
		if err != nil {
			return fmt.Errorf("load students: %w", err)
		}
		students = inClass(all, classID)
		return nil
	})
	g.Go(func() error {
		var err error
		in, err = s.loadClass(gctx, classID)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.ClassRisk{}, err
	}
	if len(students) > s.maxClassSize {
		return types.ClassRisk{}, fmt.Errorf("%w: class %s has %d students, limit is %d", ErrInvalidInput, classID, len(students), s.maxClassSize)
	}

	out := types.ClassRisk{ClassID: class.ID, ClassName: class.Name, Variant: v, Students: make([]types.StudentRisk, 0, len(students))}
	for _, st := range students {
		r := s.evaluateOrUnknown(ctx, st, in, v)
		out.Counts.Add(r.Risk.Level)
		out.Students = append(out.Students, r)
	}
	sortBySeverity(out.Students)
	return out, nil
}

// ClassAttendance summarises a class ledger over period. An unknown class
// yields the zero summary.
func (s *Service) ClassAttendance(ctx context.Context, classID string, period attendance.Period) (types.ClassAttendance, error) {
	ledger, err := s.source.ClassAttendance(ctx, classID)
	if err != nil {
		return types.ClassAttendance{}, fmt.Errorf("load attendance: %w", err)
	}
	return types.ClassAttendance{
		ClassID: classID,
		Period:  period,
		Summary: attendance.Compute(ledger, period, ""),
		Days:    attendance.Daily(ledger, period),
	}, nil
}

// Overview evaluates the whole school.
func (s *Service) Overview(ctx context.Context, variant risk.Variant) (types.Overview, error) {
	v, err := s.resolveVariant(variant)
	if err != nil {
		return types.Overview{}, err
	}

	var (
		classes  []model.Class
		students []model.Student
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if classes, err = s.source.Classes(gctx); err != nil {
			return fmt.Errorf("load classes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if students, err = s.source.Students(gctx); err != nil {
			return fmt.Errorf("load students: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Overview{}, err
	}

	ids := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		ids[c.ID] = struct{}{}
	}
	for _, st := range students {
		if st.ClassID != "" {
			ids[st.ClassID] = struct{}{}
		}
	}

	inputs, err := s.loadClasses(ctx, ids)
	if err != nil {
		return types.Overview{}, err
	}

	out := types.Overview{Variant: v, Classes: len(classes), Students: len(students)}
	ledger := make(model.Ledger, len(inputs))
	for id, in := range inputs {
		ledger[id] = in.ledger
	}
	out.Attendance = attendance.ComputeSchool(ledger, attendance.AllDates(), "")

	scored, total := 0, 0
	for _, st := range students {
		r := s.evaluateOrUnknown(ctx, st, inputs[st.ClassID], v)
		out.Counts.Add(r.Risk.Level)
		if r.Risk.Level.Valid() {
			scored++
			total += r.Risk.Score
		}
	}
	if scored > 0 {
		out.AverageScore = float64(total) / float64(scored)
	}
	metrics.UpdateStudentsEvaluated(len(students))
	return out, nil
}

// Score evaluates ad-hoc signals.
func (s *Service) Score(_ context.Context, req types.ScoreRequest) (types.ScoreResponse, error) {
	v, err := s.resolveVariant(risk.Variant(req.Variant))
	if err != nil {
		return types.ScoreResponse{}, err
	}
	res, err := s.score(v, risk.Signals{Marks: req.Marks, Attendance: req.Attendance, Homework: req.Homework})
	if err != nil {
		return types.ScoreResponse{}, err
	}
	return types.ScoreResponse{Risk: res, Presentation: presentation.Present(res.Level, req.Name, res.Score)}, nil
}

// MarkAttendance records marks for a class on date.
func (s *Service) MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error {
	if s.writer == nil {
		return ErrReadOnly
	}
	if _, err := s.source.Class(ctx, classID); err != nil {
		return fmt.Errorf("load class: %w", err)
	}
	if err := s.writer.MarkAttendance(ctx, classID, date, marks); err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	s.logger.Info(ctx, "attendance marked",
		logger.String("classId", classID),
		logger.String("date", date),
		logger.Int("marks", len(marks)),
	)
	return nil
}

// AddHomework posts an assignment. CreatedAt defaults to today and
// AssignmentNo to the next number in the class.
func (s *Service) AddHomework(ctx context.Context, hw model.Homework) (model.Homework, error) {
	if s.writer == nil {
		return model.Homework{}, ErrReadOnly
	}
	if _, err := s.source.Class(ctx, hw.ClassID); err != nil {
		return model.Homework{}, fmt.Errorf("load class: %w", err)
	}
	if hw.CreatedAt == "" {
		hw.CreatedAt = s.now().Format(model.DateLayout)
	}
	if hw.AssignmentNo == 0 {
		existing, err := s.source.ClassHomework(ctx, hw.ClassID)
		if err != nil {
			return model.Homework{}, fmt.Errorf("load homework: %w", err)
		}
		hw.AssignmentNo = nextAssignmentNo(existing)
	}
	id, err := s.writer.AddHomework(ctx, hw)
	if err != nil {
		return model.Homework{}, fmt.Errorf("add homework: %w", err)
	}
	hw.ID = id
	s.logger.Info(ctx, "homework added",
		logger.String("classId", hw.ClassID),
		logger.String("homeworkId", id),
		logger.String("subject", hw.Subject),
	)
	return hw, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	evaluations := make(map[string]uint64, len(s.evaluations))
	for k, v := range s.evaluations {
		evaluations[k] = v
	}
	return types.Stats{
		Backend:        s.backend,
		DefaultVariant: s.engine.DefaultVariant(),
		InputPolicy:    s.engine.Policy(),
		HomeworkPolicy: string(s.homework.Policy),
		Evaluations:    evaluations,
		Rejected:       s.rejected,
		Failed:         s.failed,
		UptimeSeconds:  s.now().Sub(s.startedAt).Seconds(),
	}
}

// classInputs are the per-class collections an evaluation needs.
type classInputs struct {
	ledger   model.ClassLedger
	homework []model.Homework
	statuses map[string]model.SubmissionSet
}

func (s *Service) loadClass(ctx context.Context, classID string) (classInputs, error) {
	var in classInputs
	if classID == "" {
		return in, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if in.ledger, err = s.source.ClassAttendance(gctx, classID); err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if in.homework, err = s.source.ClassHomework(gctx, classID); err != nil {
			return fmt.Errorf("load homework: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return classInputs{}, err
	}

	if !s.homework.NeedsStatuses() || len(in.homework) == 0 {
		return in, nil
	}
	statuses := make([]model.SubmissionSet, len(in.homework))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, hw := range in.homework {
		g.Go(func() error {
			set, err := s.source.HomeworkStatus(gctx, hw.ID)
			if err != nil {
				return fmt.Errorf("load homework status %s: %w", hw.ID, err)
			}
			statuses[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return classInputs{}, err
	}
	in.statuses = make(map[string]model.SubmissionSet, len(statuses))
	for i, set := range statuses {
		if len(set) > 0 {
			in.statuses[in.homework[i].ID] = set
		}
	}
	return in, nil
}

func (s *Service) loadClasses(ctx context.Context, ids map[string]struct{}) (map[string]classInputs, error) {
	var mu sync.Mutex
	out := make(map[string]classInputs, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for id := range ids {
		g.Go(func() error {
			in, err := s.loadClass(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = in
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) evaluate(ctx context.Context, st model.Student, in classInputs, variant risk.Variant) (types.StudentRisk, error) {
	v, err := s.resolveVariant(variant)
	if err != nil {
		return types.StudentRisk{}, err
	}
	summary := attendance.Compute(in.ledger, attendance.AllDates(), st.ID)
	hw := s.homework.Derive(in.homework, in.statuses, st)
	signals := risk.Signals{
		Marks:      st.Marks,
		Attendance: attendanceSignal(summary, st),
		Homework:   &hw,
	}

	res, err := s.score(v, signals)
	if err != nil {
		s.logger.Warn(ctx, "student not scored",
			logger.String("studentId", st.ID),
			logger.String("variant", string(v)),
			logger.Error(err),
		)
		return types.StudentRisk{}, err
	}
	s.logger.Debug(ctx, "student scored",
		logger.String("studentId", st.ID),
		logger.String("variant", string(v)),
		logger.Int("score", res.Score),
		logger.String("level", string(res.Level)),
	)
	return types.StudentRisk{
		StudentID:    st.ID,
		Name:         st.Name,
		ClassID:      st.ClassID,
		Signals:      signals,
		Attendance:   summary,
		Risk:         res,
		Presentation: presentation.Present(res.Level, st.Name, res.Score),
	}, nil
}

// evaluateOrUnknown keeps a student in list views when scoring fails; the
// entry carries the neutral presentation.
func (s *Service) evaluateOrUnknown(ctx context.Context, st model.Student, in classInputs, v risk.Variant) types.StudentRisk {
	r, err := s.evaluate(ctx, st, in, v)
	if err == nil {
		return r
	}
	return types.StudentRisk{
		StudentID:    st.ID,
		Name:         st.Name,
		ClassID:      st.ClassID,
		Risk:         risk.Result{Variant: v},
		Presentation: presentation.Present("", st.Name, 0),
	}
}

func (s *Service) score(v risk.Variant, signals risk.Signals) (risk.Result, error) {
	res, err := s.engine.Score(v, signals)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case errors.Is(err, risk.ErrInputOutOfRange):
		s.rejected++
		metrics.RecordRejected(string(v))
		return risk.Result{}, err
	case err != nil:
		s.failed++
		metrics.RecordErrorByComponent("engine", "score")
		return risk.Result{}, err
	}
	s.evaluations[string(res.Variant)]++
	metrics.RecordEvaluation(string(res.Variant), string(res.Level), res.Score)
	return res, nil
}

func (s *Service) resolveVariant(v risk.Variant) (risk.Variant, error) {
	if v == "" {
		return s.engine.DefaultVariant(), nil
	}
	return risk.ParseVariant(string(v))
}

// attendanceSignal prefers the ledger; a student with no marked days falls
// back to the stored attendance field, or absent when there is none.
func attendanceSignal(summary attendance.Summary, st model.Student) *float64 {
	if summary.TotalCount > 0 {
		return model.Float(float64(summary.Percent))
	}
	return st.Attendance
}

func inClass(all []model.Student, classID string) []model.Student {
	out := make([]model.Student, 0, len(all))
	for _, st := range all {
		if st.ClassID == classID {
			out = append(out, st)
		}
	}
	return out
}

func sortBySeverity(list []types.StudentRisk) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if sa, sb := a.Risk.Level.Severity(), b.Risk.Level.Severity(); sa != sb {
			return sa > sb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
}

func nextAssignmentNo(list []model.Homework) int {
	next := 1
	for _, hw := range list {
		if hw.AssignmentNo >= next {
			next = hw.AssignmentNo + 1
		}
	}
	return next
}
