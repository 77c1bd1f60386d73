// Package ledger holds the balance bookkeeping for students, sessions and money-in entries.
//
// The functions in this file are pure: they never mutate their inputs and return fresh
// slices, so snapshots handed to readers stay valid after later commands.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// Direction selects whether a session's charges are applied or reversed.
type Direction int

const (
	Add    Direction = 1
	Remove Direction = -1
)

// Charge returns what the participant owes for the session: an even split of the price,
// and only when the participant's status is billable.
func Charge(session models.Session, studentID string) decimal.Decimal {
	n := len(session.StudentIDs)
	if n == 0 || !session.HasStudent(studentID) {
		return decimal.Zero
	}
	if !session.StatusFor(studentID).Billable() {
		return decimal.Zero
	}
	return session.Price.Div(decimal.NewFromInt(int64(n)))
}

// ApplySession debits (Add) or credits back (Remove) every billable participant of the session.
// Students not taking part are returned unchanged.
func ApplySession(students []models.Student, session models.Session, dir Direction) []models.Student {
	out := make([]models.Student, len(students))
	for i, st := range students {
		out[i] = st
		charge := Charge(session, st.ID)
		if charge.IsZero() {
			continue
		}
		out[i].Balance = shift(st.Balance, charge, dir)
	}
	return out
}

// ReverseSession undoes ApplySession(…, Add) for the same session snapshot.
func ReverseSession(students []models.Student, session models.Session) []models.Student {
	return ApplySession(students, session, Remove)
}

// ApplyEntry decreases the entry's student balance by the entry amount. The second return
// value is false when the student does not exist.
func ApplyEntry(students []models.Student, entry models.Payment) ([]models.Student, bool) {
	out := make([]models.Student, len(students))
	copy(out, students)
	for i := range out {
		if out[i].ID == entry.StudentID {
			out[i].Balance = out[i].Balance.Sub(entry.Amount)
			return out, true
		}
	}
	return out, false
}

// MergePackage adds credits for a program to the student's packages. A program never holds
// more than one package: an existing one grows and is reactivated.
func MergePackage(student models.Student, program models.ProgramType, sessions int) models.Student {
	out := student.Clone()
	merged := false
	for i := range out.Packages {
		if out.Packages[i].Type == program {
			out.Packages[i].Total += sessions
			out.Packages[i].Active = true
			merged = true
			break
		}
	}
	if !merged {
		out.Packages = append(out.Packages, models.ClassPackage{Type: program, Total: sessions, Active: true})
	}
	if !out.HasProgram(program) {
		out.ProgramTypes = append(out.ProgramTypes, program)
	}
	return out
}

func shift(balance, amount decimal.Decimal, dir Direction) decimal.Decimal {
	if dir == Remove {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}
