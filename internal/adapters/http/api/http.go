// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	EvaluateStudent(ctx context.Context, studentID string, variant risk.Variant) (types.StudentRisk, error)
	ClassRisk(ctx context.Context, classID string, variant risk.Variant) (types.ClassRisk, error)
	ClassAttendance(ctx context.Context, classID string, period attendance.Period) (types.ClassAttendance, error)
	Overview(ctx context.Context, variant risk.Variant) (types.Overview, error)
	Score(ctx context.Context, req types.ScoreRequest) (types.ScoreResponse, error)

	MarkAttendance(ctx context.Context, classID, date string, marks model.DayRecord) error
	AddHomework(ctx context.Context, hw model.Homework) (model.Homework, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	riskHandler       *RiskHandler
	attendanceHandler *AttendanceHandler
	homeworkHandler   *HomeworkHandler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	log      logger.Logger
	validate *validator.Validate
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithValidator replaces the request body validator.
func WithValidator(v *validator.Validate) Option {
	return func(o *options) {
		if v != nil {
			o.validate = v
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{validate: validator.New(validator.WithRequiredStructEnabled())}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("api")
	}
	r := responder{log: o.log}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		riskHandler:       &RiskHandler{deps: deps, validate: o.validate, responder: r},
		attendanceHandler: &AttendanceHandler{deps: deps, validate: o.validate, responder: r},
		homeworkHandler:   &HomeworkHandler{deps: deps, validate: o.validate, responder: r},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /students/{id}/risk", MetricsMiddleware(s.riskHandler.HandleStudentRisk, "student_risk"))
	mux.HandleFunc("GET /classes/{id}/risk", MetricsMiddleware(s.riskHandler.HandleClassRisk, "class_risk"))
	mux.HandleFunc("GET /overview", MetricsMiddleware(s.riskHandler.HandleOverview, "overview"))
	mux.HandleFunc("POST /risk/score", MetricsMiddleware(s.riskHandler.HandleScore, "risk_score"))
	mux.HandleFunc("GET /risk/levels/{level}", MetricsMiddleware(s.riskHandler.HandleLevel, "risk_level"))

	mux.HandleFunc("GET /classes/{id}/attendance", MetricsMiddleware(s.attendanceHandler.HandleGet, "class_attendance"))
	mux.HandleFunc("POST /classes/{id}/attendance", MetricsMiddleware(s.attendanceHandler.HandlePost, "mark_attendance"))
	mux.HandleFunc("POST /classes/{id}/homework", MetricsMiddleware(s.homeworkHandler.HandlePost, "add_homework"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// responder maps domain errors to statuses and logs server-side failures.
type responder struct {
	log logger.Logger
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		rs.log.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestId", w.Header().Get(RequestIDHeader)),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// classify picks the response status and code for err.
func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, risk.ErrInputOutOfRange):
		return http.StatusUnprocessableEntity, "input_out_of_range"
	case errors.Is(err, service.ErrReadOnly):
		return http.StatusForbidden, "read_only"
	case errors.Is(err, datastore.ErrUnavailable):
		return http.StatusBadGateway, "datastore_unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrPeriodConflict),
		errors.Is(err, risk.ErrUnknownVariant),
		errors.Is(err, attendance.ErrInvalidPeriod),
		errors.Is(err, datastore.ErrInvalidRecord),
		errors.Is(err, service.ErrInvalidInput),
		errors.As(err, &verrs):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeBody reads a size-limited JSON body into dst and validates it.
func decodeBody(op string, w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := v.Struct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
