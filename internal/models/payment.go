package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a money-in ledger entry. Every kind reduces the student's balance by Amount;
// only payment and package kinds count as revenue.
type Payment struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Date      time.Time       `db:"date" json:"date"`
	Method    string          `db:"method" json:"method"`
	Kind      EntryKind       `db:"kind" json:"kind"`
	Note      string          `db:"note" json:"note,omitempty"`
	Version   int64           `db:"version" json:"version"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	StudentID string
	Kind      EntryKind
}
