package models

import "github.com/shopspring/decimal"

// BalanceApplication records that a posted journal entry's line items have
// been applied to a specific account's balances. The unique (entry_id,
// account_id) pair makes balance propagation idempotent: re-applying an
// entry conflicts with the existing row and the account update is skipped.
type BalanceApplication struct {
	Base
	EntryID   string `gorm:"type:uuid;not null;uniqueIndex:idx_entry_account" json:"entry_id"`
	AccountID string `gorm:"type:uuid;not null;uniqueIndex:idx_entry_account" json:"account_id"`

	// Applied amounts, kept for audit.
	Debit  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit"`
	Credit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit"`
}
