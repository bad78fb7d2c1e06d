package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "eduguard:"

// Key layout below the prefix.
const (
	keyStudents       = "students"           // hash id -> student JSON
	keyClasses        = "classes"            // hash id -> class JSON
	keyAttendanceDays = "attendance:%s:days" // set of dates
	keyAttendanceDay  = "attendance:%s:%s"   // hash student -> presence literal
	keyHomework       = "homework:%s"        // hash id -> homework JSON
	keyHomeworkStatus = "homework_status:%s" // hash student -> "1" or "0"
)

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStore) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisIDGenerator overrides the homework id generator.
func WithRedisIDGenerator(gen func() string) RedisOption {
	return func(r *RedisStore) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// RedisStore keeps records in Redis hashes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	newID  func() string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	r := &RedisStore{client: client, prefix: defaultRedisPrefix, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", ErrUnavailable, addr, err)
	}
	return NewRedisStore(client, opts...), nil
}

// Backend implements Store.
func (*RedisStore) Backend() string { return BackendRedis }

// Close implements Store.
func (r *RedisStore) Close() error { return r.client.Close() }

func (r *RedisStore) key(format string, args ...any) string {
	return r.prefix + fmt.Sprintf(format, args...)
}

// Student implements Source.
func (r *RedisStore) Student(ctx context.Context, id string) (model.Student, error) {
	raw, err := r.client.HGet(ctx, r.key(keyStudents), id).Result()
	if errors.Is(err, redis.Nil) {
		return model.Student{}, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Student{}, r.unavailable("student", err)
	}
	var st model.Student
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return model.Student{}, fmt.Errorf("%w: student %q: %v", ErrInvalidRecord, id, err)
	}
	return withStudentID(st, id), nil
}

// Students implements Source.
func (r *RedisStore) Students(ctx context.Context) ([]model.Student, error) {
	all, err := r.client.HGetAll(ctx, r.key(keyStudents)).Result()
	if err != nil {
		return nil, r.unavailable("students", err)
	}
	out := make([]model.Student, 0, len(all))
	for id, raw := range all {
		var st model.Student
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("%w: student %q: %v", ErrInvalidRecord, id, err)
		}
		out = append(out, withStudentID(st, id))
	}
	sortStudents(out)
	return out, nil
}

// Class implements Source.
func (r *RedisStore) Class(ctx context.Context, id string) (model.Class, error) {
	raw, err := r.client.HGet(ctx, r.key(keyClasses), id).Result()
	if errors.Is(err, redis.Nil) {
		return model.Class{}, fmt.Errorf("class %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Class{}, r.unavailable("class", err)
	}
	var c model.Class
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.Class{}, fmt.Errorf("%w: class %q: %v", ErrInvalidRecord, id, err)
	}
	if c.ID == "" {
		c.ID = id
	}
	return c, nil
}

// Classes implements Source.
func (r *RedisStore) Classes(ctx context.Context) ([]model.Class, error) {
	all, err := r.client.HGetAll(ctx, r.key(keyClasses)).Result()
	if err != nil {
		return nil, r.unavailable("classes", err)
	}
	out := make([]model.Class, 0, len(all))
	for id, raw := range all {
		var c model.Class
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("%w: class %q: %v", ErrInvalidRecord, id, err)
		}
		if c.ID == "" {
			c.ID = id
		}
		out = append(out, c)
	}
	sortClasses(out)
	return out, nil
}

// ClassAttendance implements Source.
func (r *RedisStore) ClassAttendance(ctx context.Context, classID string) (model.ClassLedger, error) {
	dates, err := r.client.SMembers(ctx, r.key(keyAttendanceDays, classID)).Result()
	if err != nil {
		return nil, r.unavailable("class_attendance", err)
	}
	ledger := make(model.ClassLedger, len(dates))
	if len(dates) == 0 {
		return ledger, nil
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(dates))
	for _, d := range dates {
		cmds[d] = pipe.HGetAll(ctx, r.key(keyAttendanceDay, classID, d))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, r.unavailable("class_attendance", err)
	}
	for d, cmd := range cmds {
		day := make(model.DayRecord)
		for studentID, literal := range cmd.Val() {
			day[studentID] = model.ParsePresence(literal)
		}
		ledger[d] = day
	}
	return ledger, nil
}

// ClassHomework implements Source.
func (r *RedisStore) ClassHomework(ctx context.Context, classID string) ([]model.Homework, error) {
	all, err := r.client.HGetAll(ctx, r.key(keyHomework, classID)).Result()
	if err != nil {
		return nil, r.unavailable("class_homework", err)
	}
	out := make([]model.Homework, 0, len(all))
	for id, raw := range all {
		var hw model.Homework
		if err := json.Unmarshal([]byte(raw), &hw); err != nil {
			return nil, fmt.Errorf("%w: homework %q: %v", ErrInvalidRecord, id, err)
		}
		out = append(out, withHomeworkIDs(hw, id, classID))
	}
	sortHomework(out)
	return out, nil
}

// HomeworkStatus implements Source.
func (r *RedisStore) HomeworkStatus(ctx context.Context, homeworkID string) (model.SubmissionSet, error) {
	all, err := r.client.HGetAll(ctx, r.key(keyHomeworkStatus, homeworkID)).Result()
	if err != nil {
		return nil, r.unavailable("homework_status", err)
	}
	set := make(model.SubmissionSet, len(all))
	for id, v := range all {
		set[id] = model.Submission(v == "1")
	}
	return set, nil
}

// MarkAttendance implements Writer.
func (r *RedisStore) MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error {
	if err := validateMarks(classID, date, marks); err != nil {
		return err
	}
	fields := make(map[string]any, len(marks))
	for id, p := range marks {
		fields[id] = p.String()
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.key(keyAttendanceDays, classID), date)
		pipe.HSet(ctx, r.key(keyAttendanceDay, classID, date), fields)
		return nil
	})
	if err != nil {
		return r.unavailable("mark_attendance", err)
	}
	return nil
}

// AddHomework implements Writer.
func (r *RedisStore) AddHomework(ctx context.Context, hw model.Homework) (string, error) {
	if err := validateHomework(hw); err != nil {
		return "", err
	}
	if hw.ID == "" {
		hw.ID = r.newID()
	}
	raw, err := json.Marshal(hw)
	if err != nil {
		return "", fmt.Errorf("%w: homework: %v", ErrInvalidRecord, err)
	}
	if err := r.client.HSet(ctx, r.key(keyHomework, hw.ClassID), hw.ID, raw).Err(); err != nil {
		return "", r.unavailable("add_homework", err)
	}
	return hw.ID, nil
}

// Import writes every record of a snapshot.
func (r *RedisStore) Import(ctx context.Context, s *Snapshot) error {
	s.normalize()
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, st := range s.Students {
			raw, err := json.Marshal(st)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, r.key(keyStudents), id, raw)
		}
		for id, c := range s.Classes {
			raw, err := json.Marshal(c)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, r.key(keyClasses), id, raw)
		}
		for classID, ledger := range s.Attendance {
			for date, day := range ledger {
				if len(day) == 0 {
					continue
				}
				fields := make(map[string]any, len(day))
				for id, p := range day {
					fields[id] = p.String()
				}
				pipe.SAdd(ctx, r.key(keyAttendanceDays, classID), date)
				pipe.HSet(ctx, r.key(keyAttendanceDay, classID, date), fields)
			}
		}
		for classID, list := range s.Homework {
			for id, hw := range list {
				raw, err := json.Marshal(hw)
				if err != nil {
					return err
				}
				pipe.HSet(ctx, r.key(keyHomework, classID), id, raw)
			}
		}
		for hwID, set := range s.HomeworkStatus {
			for id, sub := range set {
				v := "0"
				if sub {
					v = "1"
				}
				pipe.HSet(ctx, r.key(keyHomeworkStatus, hwID), id, v)
			}
		}
		return nil
	})
	if err != nil {
		return r.unavailable("import", err)
	}
	return nil
}

func (r *RedisStore) unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", ErrUnavailable, op, err)
}
