// Package datastore is the data-access collaborator of the risk service.
//
// Records follow the document store layout: Students/<id>, Classes/<id>,
// Attendance/<class>/<date>/<student>, Homework/<class>/<id> and
// HomeworkStatus/<homework>/<student>. Three backends are provided: an
// in-memory store (optionally seeded from a JSON export), a Firebase
// Realtime Database REST client and a Redis store.
package datastore

import (
	"context"

	"github.com/eduguard/eduguard/internal/domain/model"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendFirebase = "firebase"
	BackendRedis    = "redis"
)

// Source reads school records.
type Source interface {
	// Student returns ErrNotFound for an unknown id.
	Student(ctx context.Context, id string) (model.Student, error)
	// Students returns every student ordered by id.
	Students(ctx context.Context) ([]model.Student, error)
	// Class returns ErrNotFound for an unknown id.
	Class(ctx context.Context, id string) (model.Class, error)
	// Classes returns every class ordered by id.
	Classes(ctx context.Context) ([]model.Class, error)
	// ClassAttendance returns an empty ledger for a class without records.
	ClassAttendance(ctx context.Context, classID string) (model.ClassLedger, error)
	// ClassHomework returns the class assignments ordered by due date.
	ClassHomework(ctx context.Context, classID string) ([]model.Homework, error)
	// HomeworkStatus returns an empty set when nothing was recorded.
	HomeworkStatus(ctx context.Context, homeworkID string) (model.SubmissionSet, error)
}

// Writer records teacher input.
type Writer interface {
	// MarkAttendance merges marks into the class ledger for date.
	MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error
	// AddHomework stores hw under its class and returns the assigned id.
	AddHomework(ctx context.Context, hw model.Homework) (string, error)
}

// Store is a full backend.
type Store interface {
	Source
	Writer
	// Backend returns the backend name used in logs and metrics.
	Backend() string
	// Close releases backend resources.
	Close() error
}
