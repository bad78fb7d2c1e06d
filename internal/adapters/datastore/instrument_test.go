package datastore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	backend, operation, outcome string
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeRecorder) RecordDatastore(backend, operation, outcome string, latencyMs float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{backend, operation, outcome})
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecorder{}
	store := datastore.Instrument(seededMemory(t), rec)

	_, err := store.Student(ctx, "s1")
	require.NoError(t, err)
	_, err = store.Student(ctx, "ghost")
	require.ErrorIs(t, err, datastore.ErrNotFound)
	_, err = store.Students(ctx)
	require.NoError(t, err)
	_, err = store.Class(ctx, "c10A")
	require.NoError(t, err)
	_, err = store.Classes(ctx)
	require.NoError(t, err)
	_, err = store.ClassAttendance(ctx, "c10A")
	require.NoError(t, err)
	_, err = store.ClassHomework(ctx, "c10A")
	require.NoError(t, err)
	_, err = store.HomeworkStatus(ctx, "hw1")
	require.NoError(t, err)
	err = store.MarkAttendance(ctx, "c10A", "bad-date", model.DayRecord{"s1": model.Present})
	require.ErrorIs(t, err, datastore.ErrInvalidRecord)
	_, err = store.AddHomework(ctx, model.Homework{ClassID: "c10A", Subject: "Art"})
	require.NoError(t, err)

	assert.Equal(t, []observation{
		{"memory", "student", "ok"},
		{"memory", "student", "not_found"},
		{"memory", "students", "ok"},
		{"memory", "class", "ok"},
		{"memory", "classes", "ok"},
		{"memory", "class_attendance", "ok"},
		{"memory", "class_homework", "ok"},
		{"memory", "homework_status", "ok"},
		{"memory", "mark_attendance", "invalid"},
		{"memory", "add_homework", "ok"},
	}, rec.obs)
	assert.Equal(t, datastore.BackendMemory, store.Backend())
	assert.NoError(t, store.Close())
}

func TestInstrumentedGlobalRecorder(t *testing.T) {
	store := datastore.Instrument(datastore.NewMemoryStore(), nil)
	assert.NotPanics(t, func() {
		_, _ = store.Students(context.Background())
	})
}
