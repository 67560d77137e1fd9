package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents a journal entry's position in its lifecycle.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "draft"
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusVoid     EntryStatus = "void"
	EntryStatusReversed EntryStatus = "reversed"
)

// JournalEntry represents a double-entry bookkeeping record.
//
// Allowed transitions: draft -> posted -> {void, reversed}. Draft entries
// may be freely edited; all other statuses are immutable except for notes.
type JournalEntry struct {
	Base
	EntryNumber string      `gorm:"uniqueIndex;not null" json:"entry_number"`
	Date        time.Time   `gorm:"not null" json:"date"`
	Description string      `gorm:"not null" json:"description"`
	Status      EntryStatus `gorm:"not null;default:'draft'" json:"status"`
	Currency    string      `gorm:"not null;default:'USD'" json:"currency"`
	Notes       string      `json:"notes"`

	PostedAt *time.Time `json:"posted_at,omitempty"`
	PostedBy string     `json:"posted_by,omitempty"`
	VoidedAt *time.Time `json:"voided_at,omitempty"`

	// Reversal linkage: a reversing entry points at its original via
	// ReversalOfID; the original points forward via ReversedByID.
	ReversalOfID *string `gorm:"type:uuid" json:"reversal_of_id,omitempty"`
	ReversedByID *string `gorm:"type:uuid" json:"reversed_by_id,omitempty"`

	// Relationships
	LineItems []LineItem `gorm:"foreignKey:EntryID" json:"line_items"`
}

// TotalDebits returns the sum of debit amounts across all line items.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for i := range e.LineItems {
		total = total.Add(e.LineItems[i].Debit)
	}
	return total
}

// TotalCredits returns the sum of credit amounts across all line items.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for i := range e.LineItems {
		total = total.Add(e.LineItems[i].Credit)
	}
	return total
}

// Editable reports whether the entry's line items may still be changed.
func (e *JournalEntry) Editable() bool {
	return e.Status == EntryStatusDraft
}

// LineItem is a single debit or credit leg of a journal entry. It is owned
// exclusively by its parent entry and references exactly one account.
// Exactly one of Debit or Credit is non-zero, never both.
type LineItem struct {
	Base
	EntryID   string `gorm:"type:uuid;not null;index" json:"entry_id"`
	AccountID string `gorm:"type:uuid;not null;index" json:"account_id"`

	Debit  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`

	Memo string `json:"memo"`

	// Reporting tags
	TaxCode     string `json:"tax_code,omitempty"`
	CustomerRef string `json:"customer_ref,omitempty"`
	SupplierRef string `json:"supplier_ref,omitempty"`
	Department  string `json:"department,omitempty"`

	// Relationships
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
