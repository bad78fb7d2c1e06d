// Package client is a typed HTTP client for the EduGuard API.
package client

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

	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
)

// DefaultTimeout bounds each request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// ErrEmptyBaseURL is returned by New.
var ErrEmptyBaseURL = errors.New("client: empty base url")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client wraps http.Client with the API routes.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:9080".
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	c := &Client{base: base, http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StudentRisk fetches GET /students/{id}/risk.
func (c *Client) StudentRisk(ctx context.Context, studentID string, variant risk.Variant) (types.StudentRisk, error) {
	var out types.StudentRisk
	err := c.get(ctx, "/students/"+url.PathEscape(studentID)+"/risk", variantQuery(variant), &out)
	return out, err
}

// ClassRisk fetches GET /classes/{id}/risk.
func (c *Client) ClassRisk(ctx context.Context, classID string, variant risk.Variant) (types.ClassRisk, error) {
	var out types.ClassRisk
	err := c.get(ctx, "/classes/"+url.PathEscape(classID)+"/risk", variantQuery(variant), &out)
	return out, err
}

// ClassAttendance fetches GET /classes/{id}/attendance for period.
func (c *Client) ClassAttendance(ctx context.Context, classID string, period attendance.Period) (types.ClassAttendance, error) {
	q := url.Values{}
	if period.From != "" {
		q.Set("from", period.From)
	}
	if period.To != "" {
		q.Set("to", period.To)
	}
	var out types.ClassAttendance
	err := c.get(ctx, "/classes/"+url.PathEscape(classID)+"/attendance", q, &out)
	return out, err
}

// Overview fetches GET /overview.
func (c *Client) Overview(ctx context.Context, variant risk.Variant) (types.Overview, error) {
	var out types.Overview
	err := c.get(ctx, "/overview", variantQuery(variant), &out)
	return out, err
}

// Score posts ad-hoc signals to POST /risk/score.
func (c *Client) Score(ctx context.Context, req types.ScoreRequest) (types.ScoreResponse, error) {
	var out types.ScoreResponse
	err := c.post(ctx, "/risk/score", req, &out)
	return out, err
}

// Level fetches GET /risk/levels/{level}.
func (c *Client) Level(ctx context.Context, level risk.Level, name string, score int) (presentation.Presentation, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	q.Set("score", fmt.Sprint(score))
	var out presentation.Presentation
	err := c.get(ctx, "/risk/levels/"+url.PathEscape(string(level)), q, &out)
	return out, err
}

// MarkAttendance posts one day of marks.
func (c *Client) MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error {
	body := struct {
		Date  string          `json:"date"`
		Marks model.DayRecord `json:"marks"`
	}{Date: date, Marks: marks}
	return c.post(ctx, "/classes/"+url.PathEscape(classID)+"/attendance", body, nil)
}

// AddHomework posts an assignment and returns the stored record.
func (c *Client) AddHomework(ctx context.Context, hw model.Homework) (model.Homework, error) {
	body := struct {
		Subject      string `json:"subject"`
		DueDate      string `json:"dueDate,omitempty"`
		AssignmentNo int    `json:"assignmentNo,omitempty"`
	}{Subject: hw.Subject, DueDate: hw.DueDate, AssignmentNo: hw.AssignmentNo}
	var out model.Homework
	err := c.post(ctx, "/classes/"+url.PathEscape(hw.ClassID)+"/homework", body, &out)
	return out, err
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	var out types.Stats
	err := c.get(ctx, "/stats", nil, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func variantQuery(v risk.Variant) url.Values {
	if v == "" {
		return nil
	}
	return url.Values{"variant": {string(v)}}
}
