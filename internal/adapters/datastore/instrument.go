package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/pkg/metrics"
)

// Outcome labels.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Recorder receives one observation per data store call.
type Recorder interface {
	RecordDatastore(backend, operation, outcome string, latencyMs float64)
}

type globalRecorder struct{}

func (globalRecorder) RecordDatastore(backend, operation, outcome string, latencyMs float64) {
	metrics.RecordDatastore(backend, operation, outcome, latencyMs)
}

// Instrumented records latency and outcome of every call made to a Store.
type Instrumented struct {
	next     Store
	recorder Recorder
}

// Instrument wraps s. A nil recorder uses the process-wide metrics.
func Instrument(s Store, rec Recorder) *Instrumented {
	if rec == nil {
		rec = globalRecorder{}
	}
	return &Instrumented{next: s, recorder: rec}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	outcome := outcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = outcomeNotFound
	case errors.Is(err, ErrInvalidRecord):
		outcome = outcomeInvalid
	default:
		outcome = outcomeError
	}
	i.recorder.RecordDatastore(i.next.Backend(), op, outcome, float64(time.Since(start).Microseconds())/1000)
}

// Backend implements Store.
func (i *Instrumented) Backend() string { return i.next.Backend() }

// Close implements Store.
func (i *Instrumented) Close() error { return i.next.Close() }

// Student implements Source.
func (i *Instrumented) Student(ctx context.Context, id string) (model.Student, error) {
	start := time.Now()
	v, err := i.next.Student(ctx, id)
	i.observe("student", start, err)
	return v, err
}

// Students implements Source.
func (i *Instrumented) Students(ctx context.Context) ([]model.Student, error) {
	start := time.Now()
	v, err := i.next.Students(ctx)
	i.observe("students", start, err)
	return v, err
}

// Class implements Source.
func (i *Instrumented) Class(ctx context.Context, id string) (model.Class, error) {
	start := time.Now()
	v, err := i.next.Class(ctx, id)
	i.observe("class", start, err)
	return v, err
}

// Classes implements Source.
func (i *Instrumented) Classes(ctx context.Context) ([]model.Class, error) {
	start := time.Now()
	v, err := i.next.Classes(ctx)
	i.observe("classes", start, err)
	return v, err
}

// ClassAttendance implements Source.
func (i *Instrumented) ClassAttendance(ctx context.Context, classID string) (model.ClassLedger, error) {
	start := time.Now()
	v, err := i.next.ClassAttendance(ctx, classID)
	i.observe("class_attendance", start, err)
	return v, err
}

// ClassHomework implements Source.
func (i *Instrumented) ClassHomework(ctx context.Context, classID string) ([]model.Homework, error) {
	start := time.Now()
	v, err := i.next.ClassHomework(ctx, classID)
	i.observe("class_homework", start, err)
	return v, err
}

// HomeworkStatus implements Source.
func (i *Instrumented) HomeworkStatus(ctx context.Context, homeworkID string) (model.SubmissionSet, error) {
	start := time.Now()
	v, err := i.next.HomeworkStatus(ctx, homeworkID)
	i.observe("homework_status", start, err)
	return v, err
}

// MarkAttendance implements Writer.
func (i *Instrumented) MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error {
	start := time.Now()
	err := i.next.MarkAttendance(ctx, classID, date, marks)
	i.observe("mark_attendance", start, err)
	return err
}

// AddHomework implements Writer.
func (i *Instrumented) AddHomework(ctx context.Context, hw model.Homework) (string, error) {
	start := time.Now()
	id, err := i.next.AddHomework(ctx, hw)
	i.observe("add_homework", start, err)
	return id, err
}
