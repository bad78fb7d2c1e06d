package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/eduguard/eduguard/internal/domain/model"
)

// homeworkRequest is the body of POST /classes/{id}/homework.
type homeworkRequest struct {
	Subject      string `json:"subject" validate:"required,max=80"`
	DueDate      string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	AssignmentNo int    `json:"assignmentNo" validate:"gte=0"`
}

// HomeworkHandler posts assignments.
type HomeworkHandler struct {
	responder
	deps     Dependencies
	validate *validator.Validate
}

// HandlePost handles POST /classes/{id}/homework.
func (h *HomeworkHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_homework"
	var req homeworkRequest
	if err := decodeBody(op, w, r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	hw, err := h.deps.AddHomework(r.Context(), model.Homework{
		ClassID:      r.PathValue("id"),
		Subject:      req.Subject,
		DueDate:      req.DueDate,
		AssignmentNo: req.AssignmentNo,
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, hw)
}
