package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankStatementLine is a single imported line from a bank statement.
// Lines are created by statement import and mutated only by the
// reconciliation matcher; they are never deleted, to preserve the audit
// trail. Amount is signed: negative for debits, positive for credits.
type BankStatementLine struct {
	Base
	BankAccountID string          `gorm:"type:uuid;not null;index" json:"bank_account_id"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Description   string          `gorm:"not null" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`

	Reconciled     bool    `gorm:"default:false;index" json:"reconciled"`
	MatchedEntryID *string `gorm:"type:uuid" json:"matched_entry_id,omitempty"`

	SuggestedAccountID  *string `gorm:"type:uuid" json:"suggested_account_id,omitempty"`
	SuggestedCategory   string  `json:"suggested_category,omitempty"`
	SuggestedConfidence float64 `json:"suggested_confidence,omitempty"`

	// Relationships
	MatchedEntry *JournalEntry `gorm:"foreignKey:MatchedEntryID" json:"matched_entry,omitempty"`
}
