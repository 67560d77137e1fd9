package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgercore/internal/models"
	"ledgercore/internal/testutil"
)

func newTestReconciliationService(db *gorm.DB) (ReconciliationServicer, EventServicer) {
	events := NewEventService(db)
	return NewReconciliationService(db, events, DefaultConfig()), events
}

func postTestEntryOnDate(t *testing.T, db *gorm.DB, debitID, creditID string, amount decimal.Decimal, date time.Time) *models.JournalEntry {
	t.Helper()
	svc := newTestEntryService(db)
	draft := testutil.CreateTestDraftEntryOnDate(t, db, debitID, creditID, amount, date)
	entry, _, err := svc.Post(draft.ID, "tester")
	testutil.AssertNoError(t, err)
	return entry
}

func TestCreateReconciliationRule(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		target := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		rule, err := svc.CreateRule(ReconciliationRuleInput{
			Name:            "Utilities",
			Pattern:         "electric|water|gas",
			TargetAccountID: target.ID,
			Category:        "Utilities",
			Confidence:      0.85,
		})
		testutil.AssertNoError(t, err)
		if !rule.IsActive {
			t.Error("expected new rule to be active")
		}
		if rule.MatchCount != 0 {
			t.Errorf("expected zero match count, got %d", rule.MatchCount)
		}
	})

	t.Run("invalid_pattern", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		target := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		_, err := svc.CreateRule(ReconciliationRuleInput{
			Name:            "Broken",
			Pattern:         "[unclosed",
			TargetAccountID: target.ID,
			Confidence:      0.8,
		})
		testutil.AssertAppError(t, err, "INVALID_RULE_PATTERN")
	})

	t.Run("confidence_out_of_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		target := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		_, err := svc.CreateRule(ReconciliationRuleInput{
			Name:            "Too Confident",
			Pattern:         "rent",
			TargetAccountID: target.ID,
			Confidence:      1.5,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_target_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		_, err := svc.CreateRule(ReconciliationRuleInput{
			Name:            "Orphan",
			Pattern:         "rent",
			TargetAccountID: "missing",
			Confidence:      0.8,
		})
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestImportStatementLines(t *testing.T) {
	t.Run("imports_unreconciled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		lines, err := svc.ImportStatementLines("bank-1", []StatementLineInput{
			{Date: time.Now(), Description: "COFFEE", Amount: decimal.NewFromFloat(-4.50)},
			{Date: time.Now(), Description: "SALARY", Amount: decimal.NewFromInt(5000)},
		})
		testutil.AssertNoError(t, err)
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		for _, line := range lines {
			if line.Reconciled {
				t.Error("imported lines must start unreconciled")
			}
		}

		pending, err := svc.PendingBankAccounts()
		testutil.AssertNoError(t, err)
		if len(pending) != 1 || pending[0] != "bank-1" {
			t.Errorf("expected pending [bank-1], got %v", pending)
		}
	})

	t.Run("missing_bank_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		_, err := svc.ImportStatementLines("", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestReconcile(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("exact_amount_and_date_match", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, events := newTestReconciliationService(db)

		var matched []Event
		events.Subscribe(EventReconciliationMatched, func(evt Event) { matched = append(matched, evt) })

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
		entry := postTestEntryOnDate(t, db, cash.ID, revenue.ID, decimal.NewFromFloat(1500.00), day)

		line := testutil.CreateTestStatementLine(t, db, "bank-1", "WIRE IN", decimal.NewFromFloat(1500.00), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 1 {
			t.Fatalf("expected 1 reconciled, got %d", result.ReconciledCount)
		}

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if !reloaded.Reconciled {
			t.Error("expected line to be reconciled")
		}
		if reloaded.MatchedEntryID == nil || *reloaded.MatchedEntryID != entry.ID {
			t.Error("expected line to link to the matched entry")
		}
		if len(matched) != 1 {
			t.Errorf("expected 1 matched event, got %d", len(matched))
		}
	})

	t.Run("negative_line_matches_absolute_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		expense := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		postTestEntryOnDate(t, db, expense.ID, cash.ID, decimal.NewFromFloat(89.99), day)

		testutil.CreateTestStatementLine(t, db, "bank-1", "CARD PURCHASE", decimal.NewFromFloat(-89.99), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 1 {
			t.Errorf("expected outflow to match by absolute amount, got %d", result.ReconciledCount)
		}
	})

	t.Run("evening_line_matches_its_local_calendar_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		// 23:00 in UTC-5 is already the next day in UTC; the calendar day
		// comparison has to stay in the line's own zone.
		est := time.FixedZone("UTC-5", -5*60*60)
		localMidnight := time.Date(2024, 5, 1, 0, 0, 0, 0, est)
		evening := time.Date(2024, 5, 1, 23, 0, 0, 0, est)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
		postTestEntryOnDate(t, db, cash.ID, revenue.ID, decimal.NewFromInt(640), localMidnight)

		testutil.CreateTestStatementLine(t, db, "bank-1", "EVENING DEPOSIT", decimal.NewFromInt(640), evening)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 1 {
			t.Errorf("expected evening line to match its local calendar day, got %d", result.ReconciledCount)
		}
	})

	t.Run("entry_matches_at_most_one_line", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
		postTestEntryOnDate(t, db, cash.ID, revenue.ID, decimal.NewFromInt(200), day)

		testutil.CreateTestStatementLine(t, db, "bank-1", "DEPOSIT A", decimal.NewFromInt(200), day)
		testutil.CreateTestStatementLine(t, db, "bank-1", "DEPOSIT B", decimal.NewFromInt(200), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 1 {
			t.Errorf("one entry must not absorb two lines, got %d reconciled", result.ReconciledCount)
		}
	})

	t.Run("high_confidence_rule_auto_applies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, events := newTestReconciliationService(db)

		var matched []Event
		events.Subscribe(EventReconciliationMatched, func(evt Event) { matched = append(matched, evt) })

		utilities := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		rule := testutil.CreateTestReconciliationRule(t, db, "electric", utilities.ID, 0.9)
		line := testutil.CreateTestStatementLine(t, db, "bank-1", "CITY ELECTRIC CO", decimal.NewFromFloat(-120.00), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 1 {
			t.Fatalf("expected auto-reconcile, got %d", result.ReconciledCount)
		}

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if !reloaded.Reconciled {
			t.Error("expected line reconciled by rule")
		}
		if reloaded.SuggestedAccountID == nil || *reloaded.SuggestedAccountID != utilities.ID {
			t.Error("expected suggested account from rule")
		}

		var reloadedRule models.ReconciliationRule
		testutil.AssertNoError(t, db.First(&reloadedRule, "id = ?", rule.ID).Error)
		if reloadedRule.MatchCount != 1 {
			t.Errorf("expected match count 1, got %d", reloadedRule.MatchCount)
		}
		if len(matched) != 1 {
			t.Errorf("expected 1 matched event, got %d", len(matched))
		}
	})

	t.Run("low_confidence_rule_suggests", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, events := newTestReconciliationService(db)

		var suggested []Event
		events.Subscribe(EventReconciliationSuggested, func(evt Event) { suggested = append(suggested, evt) })

		meals := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		testutil.CreateTestReconciliationRule(t, db, "restaurant", meals.ID, 0.5)
		line := testutil.CreateTestStatementLine(t, db, "bank-1", "THE RESTAURANT GROUP", decimal.NewFromFloat(-45.00), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 0 {
			t.Errorf("below-threshold rule must not auto-reconcile, got %d", result.ReconciledCount)
		}
		if len(result.Suggestions) != 1 {
			t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
		}
		if result.Suggestions[0].TargetAccountID != meals.ID {
			t.Error("expected suggestion to carry the rule's target account")
		}

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if reloaded.Reconciled {
			t.Error("suggested line must stay unreconciled")
		}
		if reloaded.SuggestedConfidence != 0.5 {
			t.Errorf("expected persisted suggestion confidence 0.5, got %f", reloaded.SuggestedConfidence)
		}
		if len(suggested) != 1 {
			t.Errorf("expected 1 suggested event, got %d", len(suggested))
		}
	})

	t.Run("highest_confidence_rule_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		general := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		utilities := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		testutil.CreateTestReconciliationRule(t, db, "electric", general.ID, 0.75)
		testutil.CreateTestReconciliationRule(t, db, "city electric", utilities.ID, 0.95)
		line := testutil.CreateTestStatementLine(t, db, "bank-1", "CITY ELECTRIC CO", decimal.NewFromFloat(-120.00), day)

		_, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if reloaded.SuggestedAccountID == nil || *reloaded.SuggestedAccountID != utilities.ID {
			t.Error("expected the higher-confidence rule to win")
		}
	})

	t.Run("confidence_tie_breaks_on_match_count", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		a := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		b := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		testutil.CreateTestReconciliationRule(t, db, "coffee", a.ID, 0.8)
		veteran := testutil.CreateTestReconciliationRule(t, db, "coffee shop", b.ID, 0.8)
		testutil.AssertNoError(t, db.Model(veteran).Update("match_count", 10).Error)

		line := testutil.CreateTestStatementLine(t, db, "bank-1", "COFFEE SHOP 42", decimal.NewFromFloat(-6.00), day)

		_, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if reloaded.SuggestedAccountID == nil || *reloaded.SuggestedAccountID != b.ID {
			t.Error("expected the rule with more matches to win the tie")
		}
	})

	t.Run("no_match_leaves_line_untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		line := testutil.CreateTestStatementLine(t, db, "bank-1", "MYSTERY CHARGE", decimal.NewFromFloat(-1.23), day)

		result, err := svc.Reconcile(context.Background(), "bank-1")
		testutil.AssertNoError(t, err)
		if result.ReconciledCount != 0 || len(result.Suggestions) != 0 {
			t.Errorf("expected no outcome, got %+v", result)
		}

		var reloaded models.BankStatementLine
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", line.ID).Error)
		if reloaded.Reconciled || reloaded.SuggestedAccountID != nil {
			t.Error("unmatched line must stay untouched")
		}
	})

	t.Run("cancelled_context_returns_partial_result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestReconciliationService(db)

		testutil.CreateTestStatementLine(t, db, "bank-1", "LINE", decimal.NewFromInt(-1), day)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := svc.Reconcile(ctx, "bank-1")
		if err == nil {
			t.Fatal("expected context error")
		}
		if result == nil || result.ReconciledCount != 0 {
			t.Error("expected empty partial result")
		}
	})
}
