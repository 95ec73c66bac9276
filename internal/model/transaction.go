package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType indicates the direction of money movement.
type TransactionType string

const (
	// TypeIncome represents money coming in.
	TypeIncome TransactionType = "income"
	// TypeExpense represents money going out.
	TypeExpense TransactionType = "expense"
)

// MaxDescriptionLength bounds the stored transaction description.
const MaxDescriptionLength = 100

// Transaction represents a single extracted statement line after processing.
// Amount is always non-negative; Type carries the sign.
type Transaction struct {
	Date             time.Time
	ID               string
	Description      string
	Category         string
	Subcategory      string
	Type             TransactionType
	Source           Source
	Amount           decimal.Decimal
	Confidence       float64
	SourceConfidence float64
	NeedsReview      bool
}

// GenerateID creates a stable content-derived identifier for duplicate detection.
func (t *Transaction) GenerateID() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.Source)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash[:16])
}
