package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
)

// markRequest is the body of POST /classes/{id}/attendance.
type markRequest struct {
	Date  string                    `json:"date" validate:"required,datetime=2006-01-02"`
	Marks map[string]model.Presence `json:"marks" validate:"required,min=1"`
}

type markResponse struct {
	ClassID string `json:"classId"`
	Date    string `json:"date"`
	Marked  int    `json:"marked"`
}

// AttendanceHandler reads and writes class attendance.
type AttendanceHandler struct {
	responder
	deps     Dependencies
	validate *validator.Validate
}

// HandleGet handles GET /classes/{id}/attendance?month=YYYY-MM or
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *AttendanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.class_attendance"
	period, err := periodParam(op, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.deps.ClassAttendance(r.Context(), r.PathValue("id"), period)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePost handles POST /classes/{id}/attendance.
func (h *AttendanceHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.mark_attendance"
	var req markRequest
	if err := decodeBody(op, w, r, h.validate, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	classID := r.PathValue("id")
	if err := h.deps.MarkAttendance(r.Context(), classID, req.Date, model.DayRecord(req.Marks)); err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, markResponse{ClassID: classID, Date: req.Date, Marked: len(req.Marks)})
}

func periodParam(op string, r *http.Request) (attendance.Period, error) {
	q := r.URL.Query()
	month, from, to := q.Get("month"), q.Get("from"), q.Get("to")
	if month != "" && (from != "" || to != "") {
		return attendance.Period{}, NewKind(op, ErrPeriodConflict)
	}
	var (
		p   attendance.Period
		err error
	)
	if month != "" {
		p, err = attendance.ParseMonth(month)
	} else {
		p, err = attendance.ParseRange(from, to)
	}
	if err != nil {
		return attendance.Period{}, WrapKind(op, ErrBadRequest, err)
	}
	return p, nil
}
