package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Correction carries the fields a user changed on a transaction.
// Nil fields were left untouched.
type Correction struct {
	Category    *string
	Description *string
	Date        *time.Time
	Amount      *decimal.Decimal
}

// IsEmpty reports whether the correction changes nothing.
func (c Correction) IsEmpty() bool {
	return c.Category == nil && c.Description == nil && c.Date == nil && c.Amount == nil
}

// FeedbackEntry records one user correction. Entries are append-only;
// the log is trimmed to the most recent N entries.
type FeedbackEntry struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	Original      Transaction
	Correction    Correction
	Applied       bool
}
