package testutil_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgercore/internal/errors"
	"ledgercore/internal/models"
	"ledgercore/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{
		"accounts", "journal_entries", "line_items", "recurring_templates",
		"reconciliation_rules", "categorization_rules", "bank_statement_lines",
		"balance_applications", "event_logs",
	} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	asset := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
	if asset.ID == "" {
		t.Fatal("account should have a generated ID")
	}
	if asset.Type != models.AccountTypeAsset {
		t.Errorf("expected asset account type, got %s", asset.Type)
	}

	revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
	if revenue.Code == asset.Code {
		t.Error("fixture accounts should have unique codes")
	}

	entry := testutil.CreateTestDraftEntry(t, db, asset.ID, revenue.ID, decimal.NewFromInt(250))
	if entry.Status != models.EntryStatusDraft {
		t.Errorf("expected draft status, got %s", entry.Status)
	}
	if len(entry.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(entry.LineItems))
	}
	testutil.AssertDecimalEqual(t, entry.TotalDebits(), entry.TotalCredits())

	line := testutil.CreateTestStatementLine(t, db, "bank-1", "COFFEE SHOP", decimal.NewFromInt(-5), time.Now())
	if line.Reconciled {
		t.Error("statement line should start unreconciled")
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
