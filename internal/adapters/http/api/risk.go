package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
)

// RiskHandler serves student, class and school evaluations.
type RiskHandler struct {
	responder
	deps     Dependencies
	validate *validator.Validate
}

// HandleStudentRisk handles GET /students/{id}/risk.
func (h *RiskHandler) HandleStudentRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.student_risk"
	out, err := h.deps.EvaluateStudent(r.Context(), r.PathValue("id"), variantParam(r))
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleClassRisk handles GET /classes/{id}/risk.
func (h *RiskHandler) HandleClassRisk(w http.ResponseWriter, r *http.Request) {
	const op = "api.class_risk"
	out, err := h.deps.ClassRisk(r.Context(), r.PathValue("id"), variantParam(r))
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleOverview handles GET /overview.
func (h *RiskHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.overview"
	out, err := h.deps.Overview(r.Context(), variantParam(r))
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleScore handles POST /risk/score.
func (h *RiskHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.risk_score"
	var req types.ScoreRequest
	if err := decodeBody(op, w, r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.deps.Score(r.Context(), req)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLevel handles GET /risk/levels/{level}?name=&score=. Unrecognised
// levels render the neutral presentation.
func (h *RiskHandler) HandleLevel(w http.ResponseWriter, r *http.Request) {
	const op = "api.risk_level"
	score := 0
	if raw := r.URL.Query().Get("score"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		score = n
	}
	level, _ := risk.ParseLevel(r.PathValue("level"))
	writeJSON(w, http.StatusOK, presentation.Present(level, r.URL.Query().Get("name"), score))
}

func variantParam(r *http.Request) risk.Variant {
	return risk.Variant(r.URL.Query().Get("variant"))
}
