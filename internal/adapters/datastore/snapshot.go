package datastore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/eduguard/eduguard/internal/domain/model"
)

// Snapshot is a full export of the document store, as produced by the
// Realtime Database "Export JSON" action.
type Snapshot struct {
	Students       map[string]model.Student             `json:"Students,omitempty"`
	Classes        map[string]model.Class               `json:"Classes,omitempty"`
	Attendance     model.Ledger                         `json:"Attendance,omitempty"`
	Homework       map[string]map[string]model.Homework `json:"Homework,omitempty"`
	HomeworkStatus map[string]model.SubmissionSet       `json:"HomeworkStatus,omitempty"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// DecodeSnapshot decodes a snapshot and fills ids from map keys.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrInvalidRecord, err)
	}
	s.normalize()
	return &s, nil
}

func (s *Snapshot) normalize() {
	if s.Students == nil {
		s.Students = make(map[string]model.Student)
	}
	if s.Classes == nil {
		s.Classes = make(map[string]model.Class)
	}
	if s.Attendance == nil {
		s.Attendance = make(model.Ledger)
	}
	if s.Homework == nil {
		s.Homework = make(map[string]map[string]model.Homework)
	}
	if s.HomeworkStatus == nil {
		s.HomeworkStatus = make(map[string]model.SubmissionSet)
	}
	for id, st := range s.Students {
		s.Students[id] = withStudentID(st, id)
	}
	for id, c := range s.Classes {
		if c.ID == "" {
			c.ID = id
		}
		s.Classes[id] = c
	}
	for classID, list := range s.Homework {
		for id, hw := range list {
			list[id] = withHomeworkIDs(hw, id, classID)
		}
	}
}

func withStudentID(st model.Student, id string) model.Student {
	if st.ID == "" {
		st.ID = id
	}
	return st
}

func withHomeworkIDs(hw model.Homework, id, classID string) model.Homework {
	if hw.ID == "" {
		hw.ID = id
	}
	if hw.ClassID == "" {
		hw.ClassID = classID
	}
	return hw
}

// validateMarks checks an attendance write before it reaches a backend.
func validateMarks(classID, date string, marks model.DayRecord) error {
	if strings.TrimSpace(classID) == "" {
		return fmt.Errorf("%w: empty class id", ErrInvalidRecord)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidRecord, date)
	}
	if len(marks) == 0 {
		return fmt.Errorf("%w: no attendance marks", ErrInvalidRecord)
	}
	for id := range marks {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty student id", ErrInvalidRecord)
		}
	}
	return nil
}

func validateHomework(hw model.Homework) error {
	if strings.TrimSpace(hw.ClassID) == "" {
		return fmt.Errorf("%w: homework without class", ErrInvalidRecord)
	}
	if strings.TrimSpace(hw.Subject) == "" {
		return fmt.Errorf("%w: homework without subject", ErrInvalidRecord)
	}
	if hw.DueDate != "" {
		if _, err := time.Parse(model.DateLayout, hw.DueDate); err != nil {
			return fmt.Errorf("%w: due date %q", ErrInvalidRecord, hw.DueDate)
		}
	}
	return nil
}

func sortStudents(list []model.Student) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

func sortClasses(list []model.Class) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// sortHomework orders by due date; undated items go last.
func sortHomework(list []model.Homework) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.DueDate != b.DueDate {
			if a.DueDate == "" || b.DueDate == "" {
				return b.DueDate == ""
			}
			return a.DueDate < b.DueDate
		}
		return a.ID < b.ID
	})
}
