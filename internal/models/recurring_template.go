package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency represents how often a recurring template fires.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// RecurringTemplate describes a journal entry that should be generated on
// a schedule. NextDueDate advances monotonically each time the template is
// executed or skipped, always from the previous due date rather than from
// the execution time, so a delayed sweep never drifts the schedule.
type RecurringTemplate struct {
	Base
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency    string          `gorm:"not null;default:'USD'" json:"currency"`

	Frequency Frequency `gorm:"not null" json:"frequency"`
	Interval  int       `gorm:"not null;default:1" json:"interval"`

	StartDate   time.Time  `gorm:"not null" json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	NextDueDate time.Time  `gorm:"not null;index" json:"next_due_date"`

	// A generated entry debits DebitAccountID and credits CreditAccountID
	// for Amount, keeping the double-entry invariant.
	DebitAccountID  string `gorm:"type:uuid;not null" json:"debit_account_id"`
	CreditAccountID string `gorm:"type:uuid;not null" json:"credit_account_id"`

	IsActive    bool `gorm:"default:true" json:"is_active"`
	AutoExecute bool `gorm:"default:false" json:"auto_execute"`

	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	// Relationships
	DebitAccount  Account `gorm:"foreignKey:DebitAccountID" json:"debit_account,omitempty"`
	CreditAccount Account `gorm:"foreignKey:CreditAccountID" json:"credit_account,omitempty"`
}
