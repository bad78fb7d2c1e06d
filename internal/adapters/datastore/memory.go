package datastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/google/uuid"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSnapshot seeds the store.
func WithSnapshot(s *Snapshot) MemoryOption {
	return func(m *MemoryStore) {
		if s != nil {
			m.data = s
		}
	}
}

// WithIDGenerator overrides the homework id generator.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(m *MemoryStore) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// MemoryStore keeps every record in process memory. It is safe for
// concurrent use; returned values are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	data  *Snapshot
	newID func() string
}

// NewMemoryStore creates an empty store unless seeded with WithSnapshot.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{data: &Snapshot{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(m)
	}
	m.data.normalize()
	return m
}

// Backend implements Store.
func (*MemoryStore) Backend() string { return BackendMemory }

// Close implements Store.
func (*MemoryStore) Close() error { return nil }

// PutStudent inserts or replaces a student.
func (m *MemoryStore) PutStudent(st model.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Students[st.ID] = st
}

// PutClass inserts or replaces a class.
func (m *MemoryStore) PutClass(c model.Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Classes[c.ID] = c
}

// PutHomeworkStatus records a submission state.
func (m *MemoryStore) PutHomeworkStatus(homeworkID, studentID string, submitted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.data.HomeworkStatus[homeworkID]
	if !ok {
		set = make(model.SubmissionSet)
		m.data.HomeworkStatus[homeworkID] = set
	}
	set[studentID] = model.Submission(submitted)
}

// Student implements Source.
func (m *MemoryStore) Student(_ context.Context, id string) (model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.data.Students[id]
	if !ok {
		return model.Student{}, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	return st, nil
}

// Students implements Source.
func (m *MemoryStore) Students(_ context.Context) ([]model.Student, error) {
	m.mu.RLock()
	out := make([]model.Student, 0, len(m.data.Students))
	for _, st := range m.data.Students {
		out = append(out, st)
	}
	m.mu.RUnlock()
	sortStudents(out)
	return out, nil
}

// Class implements Source.
func (m *MemoryStore) Class(_ context.Context, id string) (model.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.data.Classes[id]
	if !ok {
		return model.Class{}, fmt.Errorf("class %q: %w", id, ErrNotFound)
	}
	return c, nil
}

// Classes implements Source.
func (m *MemoryStore) Classes(_ context.Context) ([]model.Class, error) {
	m.mu.RLock()
	out := make([]model.Class, 0, len(m.data.Classes))
	for _, c := range m.data.Classes {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sortClasses(out)
	return out, nil
}

// ClassAttendance implements Source.
func (m *MemoryStore) ClassAttendance(_ context.Context, classID string) (model.ClassLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.data.Attendance[classID]
	out := make(model.ClassLedger, len(src))
	for date, day := range src {
		cp := make(model.DayRecord, len(day))
		for id, p := range day {
			cp[id] = p
		}
		out[date] = cp
	}
	return out, nil
}

// ClassHomework implements Source.
func (m *MemoryStore) ClassHomework(_ context.Context, classID string) ([]model.Homework, error) {
	m.mu.RLock()
	src := m.data.Homework[classID]
	out := make([]model.Homework, 0, len(src))
	for _, hw := range src {
		out = append(out, hw)
	}
	m.mu.RUnlock()
	sortHomework(out)
	return out, nil
}

// HomeworkStatus implements Source.
func (m *MemoryStore) HomeworkStatus(_ context.Context, homeworkID string) (model.SubmissionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(model.SubmissionSet, len(m.data.HomeworkStatus[homeworkID]))
	for id, s := range m.data.HomeworkStatus[homeworkID] {
		out[id] = s
	}
	return out, nil
}

// MarkAttendance implements Writer.
func (m *MemoryStore) MarkAttendance(_ context.Context, classID, date string, marks model.DayRecord) error {
	if err := validateMarks(classID, date, marks); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger, ok := m.data.Attendance[classID]
	if !ok {
		ledger = make(model.ClassLedger)
		m.data.Attendance[classID] = ledger
	}
	day, ok := ledger[date]
	if !ok {
		day = make(model.DayRecord, len(marks))
		ledger[date] = day
	}
	for id, p := range marks {
		day[id] = p
	}
	return nil
}

// AddHomework implements Writer.
func (m *MemoryStore) AddHomework(_ context.Context, hw model.Homework) (string, error) {
	if err := validateHomework(hw); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if hw.ID == "" {
		hw.ID = m.newID()
	}
	list, ok := m.data.Homework[hw.ClassID]
	if !ok {
		list = make(map[string]model.Homework)
		m.data.Homework[hw.ClassID] = list
	}
	list[hw.ID] = hw
	return hw.ID, nil
}
