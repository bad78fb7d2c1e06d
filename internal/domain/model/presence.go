package model

import (
	"bytes"
	"encoding/json"
)

// Presence is the tri-state attendance mark. The zero value is Absent.
type Presence int

// Presence values.
const (
	Absent Presence = iota
	Present
	Late
)

// Literal strings stored in the ledger.
const (
	presentLiteral = "Present"
	lateLiteral    = "Late"
	absentLiteral  = "Absent"
)

// Attended reports whether the mark counts as present for percentages.
// Late counts as present.
func (p Presence) Attended() bool {
	return p == Present || p == Late
}

func (p Presence) String() string {
	switch p {
	case Present:
		return presentLiteral
	case Late:
		return lateLiteral
	default:
		return absentLiteral
	}
}

// ParsePresence maps a decoded ledger value to a Presence. Only boolean true
// and the exact literals "Present" and "Late" attend; anything else,
// including nil, is Absent.
func ParsePresence(v any) Presence {
	switch x := v.(type) {
	case bool:
		if x {
			return Present
		}
	case string:
		switch x {
		case presentLiteral:
			return Present
		case lateLiteral:
			return Late
		}
	case Presence:
		return x
	}
	return Absent
}

// UnmarshalJSON accepts booleans, strings and null. Unrecognised values
// decode to Absent rather than failing the whole ledger.
func (p *Presence) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Absent
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = ParsePresence(v)
	return nil
}

// MarshalJSON writes the literal form ("Present", "Late", "Absent").
func (p Presence) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Submission is a student's state for one homework assignment.
type Submission bool

// UnmarshalJSON accepts true or one of "Submitted", "Completed", "Late".
// Everything else decodes to not submitted.
func (s *Submission) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case bool:
		*s = Submission(x)
	case string:
		*s = x == "Submitted" || x == "Completed" || x == lateLiteral
	default:
		*s = false
	}
	return nil
}
