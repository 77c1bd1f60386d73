package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Student represents a learner taught by the tutor.
//
// Balance is signed: positive means the student owes money, negative is prepaid credit.
// OpeningBalance is the balance the student had before any recorded session or entry,
// which lets the ledger be reconciled from history.
type Student struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Email           string          `db:"email" json:"email,omitempty"`
	ParentName      string          `db:"parent_name" json:"parent_name,omitempty"`
	ProgramTypes    ProgramTypes    `db:"class_types" json:"program_types"`
	Notes           string          `db:"notes" json:"notes"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	OpeningBalance  decimal.Decimal `db:"opening_balance" json:"opening_balance"`
	JoinedDate      time.Time       `db:"joined_date" json:"joined_date"`
	Status          StudentStatus   `db:"status" json:"status"`
	Packages        Packages        `db:"packages" json:"packages"`
	ProgressHistory ProgressHistory `db:"progress_history" json:"progress_history"`
	Version         int64           `db:"version" json:"version"`
}

// HasProgram reports whether the student is enrolled in the program.
func (s Student) HasProgram(p ProgramType) bool {
	for _, existing := range s.ProgramTypes {
		if existing == p {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so that slices are never shared between snapshots.
func (s Student) Clone() Student {
	out := s
	out.ProgramTypes = append(ProgramTypes(nil), s.ProgramTypes...)
	out.Packages = append(Packages(nil), s.Packages...)
	out.ProgressHistory = append(ProgressHistory(nil), s.ProgressHistory...)
	return out
}

// LatestProgress returns the newest snapshot, optionally restricted to a report type.
func (s Student) LatestProgress(tag ReportType) *SkillProgress {
	for i := len(s.ProgressHistory) - 1; i >= 0; i-- {
		p := s.ProgressHistory[i]
		if tag == "" || p.ReportType == tag {
			return &p
		}
	}
	return nil
}

// ClassPackage is a block of prepaid session credits for one program.
type ClassPackage struct {
	Type   ProgramType `json:"type"`
	Total  int         `json:"total"`
	Active bool        `json:"active"`
}

// SkillProgress is a timestamped snapshot of the four skill scores on a 0-100 scale.
type SkillProgress struct {
	ID         string     `json:"id"`
	Date       time.Time  `json:"date"`
	ReportType ReportType `json:"report_type,omitempty"`
	Reading    int        `json:"reading"`
	Writing    int        `json:"writing"`
	Listening  int        `json:"listening"`
	Speaking   int        `json:"speaking"`
	Rubrics    *RubricSet `json:"rubrics,omitempty"`
	Notes      string     `json:"notes"`
}

// Skill returns the snapshot score for a category.
func (p SkillProgress) Skill(category SkillCategory) int {
	switch category {
	case SkillSpeaking:
		return p.Speaking
	case SkillWriting:
		return p.Writing
	case SkillReading:
		return p.Reading
	case SkillListening:
		return p.Listening
	default:
		return 0
	}
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Status   StudentStatus
	Page     int
	PageSize int
}
