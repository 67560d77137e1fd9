package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType represents the type of ledger account
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// DebitNormal reports whether debits increase the balance for this
// account type. Assets and expenses carry a debit-normal balance;
// liabilities, equity and revenue carry a credit-normal balance.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account represents a ledger account in the chart of accounts.
//
// CurrentBalance is always recomputable as the running application of all
// posted entries touching the account; the propagator guarantees each
// posted entry is applied at most once per account.
type Account struct {
	Base
	Code        string      `gorm:"uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"not null" json:"name"`
	Type        AccountType `gorm:"not null" json:"type"`
	Description string      `json:"description"`
	ParentID    *string     `gorm:"type:uuid" json:"parent_id,omitempty"`
	Currency    string      `gorm:"not null;default:'USD'" json:"currency"`

	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_balance"`
	DebitBalance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit_balance"`
	CreditBalance  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_balance"`

	IsActive          bool       `gorm:"default:true" json:"is_active"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`

	// Relationships
	Parent   *Account  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Account `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
