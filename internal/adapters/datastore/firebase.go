package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eduguard/eduguard/internal/domain/model"
)

const (
	defaultFirebaseTimeout = 10 * time.Second
	maxErrorBody           = 512
)

// FirebaseOption applies a configuration option to the FirebaseStore.
type FirebaseOption func(*FirebaseStore)

// WithAuthToken sets the database secret or ID token sent as ?auth=.
func WithAuthToken(token string) FirebaseOption {
	return func(f *FirebaseStore) {
		f.token = token
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) FirebaseOption {
	return func(f *FirebaseStore) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) FirebaseOption {
	return func(f *FirebaseStore) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// FirebaseStore reads and writes a Firebase Realtime Database over its REST
// interface.
type FirebaseStore struct {
	base   *url.URL
	token  string
	client *http.Client
}

// NewFirebaseStore creates a client for the database at baseURL, for example
// https://school-default-rtdb.firebaseio.com.
func NewFirebaseStore(baseURL string, opts ...FirebaseOption) (*FirebaseStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: firebase url %q", ErrInvalidRecord, baseURL)
	}
	f := &FirebaseStore{
		base:   u,
		client: &http.Client{Timeout: defaultFirebaseTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Backend implements Store.
func (*FirebaseStore) Backend() string { return BackendFirebase }

// Close implements Store.
func (f *FirebaseStore) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Student implements Source.
func (f *FirebaseStore) Student(ctx context.Context, id string) (model.Student, error) {
	var st *model.Student
	if err := f.get(ctx, &st, "Students", id); err != nil {
		return model.Student{}, err
	}
	if st == nil {
		return model.Student{}, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	return withStudentID(*st, id), nil
}

// Students implements Source.
func (f *FirebaseStore) Students(ctx context.Context) ([]model.Student, error) {
	var all map[string]model.Student
	if err := f.get(ctx, &all, "Students"); err != nil {
		return nil, err
	}
	out := make([]model.Student, 0, len(all))
	for id, st := range all {
		out = append(out, withStudentID(st, id))
	}
	sortStudents(out)
	return out, nil
}

// Class implements Source.
func (f *FirebaseStore) Class(ctx context.Context, id string) (model.Class, error) {
	var c *model.Class
	if err := f.get(ctx, &c, "Classes", id); err != nil {
		return model.Class{}, err
	}
	if c == nil {
		return model.Class{}, fmt.Errorf("class %q: %w", id, ErrNotFound)
	}
	if c.ID == "" {
		c.ID = id
	}
	return *c, nil
}

// Classes implements Source.
func (f *FirebaseStore) Classes(ctx context.Context) ([]model.Class, error) {
	var all map[string]model.Class
	if err := f.get(ctx, &all, "Classes"); err != nil {
		return nil, err
	}
	out := make([]model.Class, 0, len(all))
	for id, c := range all {
		if c.ID == "" {
			c.ID = id
		}
		out = append(out, c)
	}
	sortClasses(out)
	return out, nil
}

// ClassAttendance implements Source.
func (f *FirebaseStore) ClassAttendance(ctx context.Context, classID string) (model.ClassLedger, error) {
	ledger := make(model.ClassLedger)
	if err := f.get(ctx, &ledger, "Attendance", classID); err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = make(model.ClassLedger)
	}
	return ledger, nil
}

// ClassHomework implements Source.
func (f *FirebaseStore) ClassHomework(ctx context.Context, classID string) ([]model.Homework, error) {
	var all map[string]model.Homework
	if err := f.get(ctx, &all, "Homework", classID); err != nil {
		return nil, err
	}
	out := make([]model.Homework, 0, len(all))
	for id, hw := range all {
		out = append(out, withHomeworkIDs(hw, id, classID))
	}
	sortHomework(out)
	return out, nil
}

// HomeworkStatus implements Source.
func (f *FirebaseStore) HomeworkStatus(ctx context.Context, homeworkID string) (model.SubmissionSet, error) {
	set := make(model.SubmissionSet)
	if err := f.get(ctx, &set, "HomeworkStatus", homeworkID); err != nil {
		return nil, err
	}
	if set == nil {
		set = make(model.SubmissionSet)
	}
	return set, nil
}

// MarkAttendance implements Writer. Existing marks for other students on the
// same date are kept.
func (f *FirebaseStore) MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error {
	if err := validateMarks(classID, date, marks); err != nil {
		return err
	}
	return f.do(ctx, http.MethodPatch, marks, nil, "Attendance", classID, date)
}

// AddHomework implements Writer. Without an id the database generates a
// push key.
func (f *FirebaseStore) AddHomework(ctx context.Context, hw model.Homework) (string, error) {
	if err := validateHomework(hw); err != nil {
		return "", err
	}
	if hw.ID != "" {
		if err := f.do(ctx, http.MethodPut, hw, nil, "Homework", hw.ClassID, hw.ID); err != nil {
			return "", err
		}
		return hw.ID, nil
	}
	var pushed struct {
		Name string `json:"name"`
	}
	if err := f.do(ctx, http.MethodPost, hw, &pushed, "Homework", hw.ClassID); err != nil {
		return "", err
	}
	if pushed.Name == "" {
		return "", fmt.Errorf("%w: push returned no key", ErrUnavailable)
	}
	return pushed.Name, nil
}

func (f *FirebaseStore) get(ctx context.Context, out any, segments ...string) error {
	return f.do(ctx, http.MethodGet, nil, out, segments...)
}

func (f *FirebaseStore) do(ctx context.Context, method string, body, out any, segments ...string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrInvalidRecord, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, f.endpoint(segments...), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, strings.Join(segments, "/"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrUnavailable, method, strings.Join(segments, "/"), resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidRecord, strings.Join(segments, "/"), err)
	}
	return nil
}

// endpoint builds {base}/{segments...}.json?auth=token.
func (f *FirebaseStore) endpoint(segments ...string) string {
	u := *f.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	basePath := strings.TrimRight(u.Path, "/")
	baseRaw := strings.TrimRight(f.base.EscapedPath(), "/")
	u.Path = basePath + "/" + strings.Join(segments, "/") + ".json"
	u.RawPath = baseRaw + "/" + strings.Join(escaped, "/") + ".json"
	if f.token != "" {
		q := u.Query()
		q.Set("auth", f.token)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
