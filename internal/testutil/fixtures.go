package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ledgercore/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates an active account of the given type with a
// unique code and zero balances.
func CreateTestAccount(t *testing.T, db *gorm.DB, accountType models.AccountType) *models.Account {
	t.Helper()

	n := nextID()
	account := &models.Account{
		Code:     fmt.Sprintf("%s-%d", codePrefix(accountType), n),
		Name:     fmt.Sprintf("Test %s Account %d", accountType, n),
		Type:     accountType,
		Currency: "USD",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// codePrefix maps account types onto conventional chart-of-accounts ranges.
func codePrefix(accountType models.AccountType) string {
	switch accountType {
	case models.AccountTypeAsset:
		return "1000"
	case models.AccountTypeLiability:
		return "2000"
	case models.AccountTypeEquity:
		return "3000"
	case models.AccountTypeRevenue:
		return "4000"
	case models.AccountTypeExpense:
		return "5000"
	default:
		return "9000"
	}
}

// CreateTestDraftEntry creates a balanced two-line draft entry debiting
// debitAccountID and crediting creditAccountID for the given amount.
func CreateTestDraftEntry(t *testing.T, db *gorm.DB, debitAccountID, creditAccountID string, amount decimal.Decimal) *models.JournalEntry {
	t.Helper()
	return CreateTestDraftEntryOnDate(t, db, debitAccountID, creditAccountID, amount, time.Now())
}

// CreateTestDraftEntryOnDate creates a balanced two-line draft entry dated
// on the given day.
func CreateTestDraftEntryOnDate(t *testing.T, db *gorm.DB, debitAccountID, creditAccountID string, amount decimal.Decimal, date time.Time) *models.JournalEntry {
	t.Helper()

	entry := &models.JournalEntry{
		EntryNumber: fmt.Sprintf("TEST-%d", nextID()),
		Date:        date,
		Description: "test entry",
		Status:      models.EntryStatusDraft,
		Currency:    "USD",
		LineItems: []models.LineItem{
			{AccountID: debitAccountID, Debit: amount, Credit: decimal.Zero},
			{AccountID: creditAccountID, Debit: decimal.Zero, Credit: amount},
		},
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}

// CreateTestReconciliationRule creates an active rule matching the given
// pattern at the given confidence.
func CreateTestReconciliationRule(t *testing.T, db *gorm.DB, pattern, targetAccountID string, confidence float64) *models.ReconciliationRule {
	t.Helper()

	rule := &models.ReconciliationRule{
		Name:            fmt.Sprintf("Test Rule %d", nextID()),
		Pattern:         pattern,
		TargetAccountID: targetAccountID,
		Category:        "test",
		Confidence:      confidence,
		IsActive:        true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test reconciliation rule: %v", err)
	}
	return rule
}

// CreateTestStatementLine creates an unreconciled bank statement line.
func CreateTestStatementLine(t *testing.T, db *gorm.DB, bankAccountID, description string, amount decimal.Decimal, date time.Time) *models.BankStatementLine {
	t.Helper()

	line := &models.BankStatementLine{
		BankAccountID: bankAccountID,
		Date:          date,
		Description:   description,
		Amount:        amount,
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("failed to create test statement line: %v", err)
	}
	return line
}
