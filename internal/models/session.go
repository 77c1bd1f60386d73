package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is a scheduled or logged lesson.
type Session struct {
	ID              string           `db:"id" json:"id"`
	StudentIDs      StringList       `db:"student_ids" json:"student_ids"`
	Date            time.Time        `db:"date" json:"date"`
	DurationMinutes int              `db:"duration_minutes" json:"duration_minutes"`
	Status          AttendanceStatus `db:"status" json:"status"`
	StudentStatuses StudentStatuses  `db:"student_statuses" json:"student_statuses"`
	Type            ProgramType      `db:"type" json:"type"`
	Topic           string           `db:"topic" json:"topic"`
	Notes           string           `db:"notes" json:"notes"`
	Price           decimal.Decimal  `db:"price" json:"price"`
	Version         int64            `db:"version" json:"version"`
}

// StudentSessionStatus is the attendance outcome of one student in a session.
type StudentSessionStatus struct {
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	Comment   string           `json:"comment,omitempty"`
	Rubrics   *RubricSet       `json:"rubrics,omitempty"`
}

// HasStudent reports whether the student participates in the session.
func (s Session) HasStudent(studentID string) bool {
	for _, id := range s.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// StatusFor returns the participant's individual status, falling back to the session summary.
func (s Session) StatusFor(studentID string) AttendanceStatus {
	for _, st := range s.StudentStatuses {
		if st.StudentID == studentID {
			return st.Status
		}
	}
	return s.Status
}

// EntryFor returns the per-student record if present.
func (s Session) EntryFor(studentID string) *StudentSessionStatus {
	for i := range s.StudentStatuses {
		if s.StudentStatuses[i].StudentID == studentID {
			entry := s.StudentStatuses[i]
			return &entry
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.StudentIDs = append(StringList(nil), s.StudentIDs...)
	out.StudentStatuses = append(StudentStatuses(nil), s.StudentStatuses...)
	return out
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	StudentID string
	From      time.Time
	To        time.Time
}

// Match reports whether the session satisfies the filter.
func (f SessionFilter) Match(s Session) bool {
	if f.StudentID != "" && !s.HasStudent(f.StudentID) {
		return false
	}
	if !f.From.IsZero() && s.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.Date.Before(f.To) {
		return false
	}
	return true
}
