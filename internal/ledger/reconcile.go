package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/models"
)

// ExpectedBalance recomputes a student's balance from history:
// opening balance plus session charges minus every money-in entry.
func ExpectedBalance(student models.Student, sessions []models.Session, entries []models.Payment) decimal.Decimal {
	total := student.OpeningBalance
	for _, s := range sessions {
		total = total.Add(Charge(s, student.ID))
	}
	for _, e := range entries {
		if e.StudentID == student.ID {
			total = total.Sub(e.Amount)
		}
	}
	return total
}

// Drift is a student whose running balance disagrees with its history.
type Drift struct {
	StudentID string          `json:"student_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Expected  decimal.Decimal `json:"expected"`
	Delta     decimal.Decimal `json:"delta"`
}

// Reconciliation summarises a full ledger check.
type Reconciliation struct {
	Revision int64   `json:"revision"`
	Checked  int     `json:"checked"`
	Drifts   []Drift `json:"drifts"`
}

// Balanced reports whether no drift was found.
func (r Reconciliation) Balanced() bool {
	return len(r.Drifts) == 0
}

// Reconcile compares every running balance with the balance implied by history.
func Reconcile(state *State) Reconciliation {
	report := Reconciliation{Revision: state.Revision, Checked: len(state.Students), Drifts: []Drift{}}
	for _, st := range state.Students {
		expected := ExpectedBalance(st, state.Sessions, state.Payments)
		if expected.Equal(st.Balance) {
			continue
		}
		report.Drifts = append(report.Drifts, Drift{
			StudentID: st.ID,
			Name:      st.Name,
			Balance:   st.Balance,
			Expected:  expected,
			Delta:     st.Balance.Sub(expected),
		})
	}
	return report
}

// DeriveOpeningBalances back-fills opening balances for students imported with a balance but
// no history, so that Reconcile reports no drift for them.
func DeriveOpeningBalances(students []models.Student, sessions []models.Session, entries []models.Payment) []models.Student {
	out := make([]models.Student, len(students))
	for i, st := range students {
		st = st.Clone()
		st.OpeningBalance = decimal.Zero
		implied := ExpectedBalance(st, sessions, entries)
		st.OpeningBalance = st.Balance.Sub(implied)
		out[i] = st
	}
	return out
}
