package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgercore/internal/models"
	"ledgercore/internal/testutil"
)

func postAmount(t *testing.T, db *gorm.DB, debitID, creditID string, amount int64) {
	t.Helper()
	svc := newTestEntryService(db)
	draft := testutil.CreateTestDraftEntry(t, db, debitID, creditID, decimal.NewFromInt(amount))
	_, _, err := svc.Post(draft.ID, "tester")
	testutil.AssertNoError(t, err)
}

func TestCalculateAnalytics(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	t.Run("profit_and_margins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAnalyticsService(db)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
		expense := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)

		postAmount(t, db, cash.ID, revenue.ID, 10000)
		postAmount(t, db, expense.ID, cash.ID, 4000)

		analytics, err := svc.Calculate(start, end)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, decimal.NewFromInt(10000), analytics.TotalRevenue)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(4000), analytics.TotalExpenses)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(6000), analytics.NetProfit)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(6000), analytics.TotalAssets)

		if analytics.NetMargin != 0.6 {
			t.Errorf("expected net margin 0.6, got %f", analytics.NetMargin)
		}
		if analytics.ReturnOnAssets != 1.0 {
			t.Errorf("expected return on assets 1.0, got %f", analytics.ReturnOnAssets)
		}
	})

	t.Run("balance_sheet_totals", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAnalyticsService(db)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		loan := testutil.CreateTestAccount(t, db, models.AccountTypeLiability)
		capital := testutil.CreateTestAccount(t, db, models.AccountTypeEquity)

		postAmount(t, db, cash.ID, capital.ID, 50000)
		postAmount(t, db, cash.ID, loan.ID, 20000)

		analytics, err := svc.Calculate(start, end)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, decimal.NewFromInt(70000), analytics.TotalAssets)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(20000), analytics.TotalLiabilities)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(50000), analytics.TotalEquity)
		testutil.AssertDecimalEqual(t, decimal.NewFromInt(50000), analytics.WorkingCapital)

		if analytics.CurrentRatio != 3.5 {
			t.Errorf("expected current ratio 3.5, got %f", analytics.CurrentRatio)
		}
		if analytics.DebtToEquity != 0.4 {
			t.Errorf("expected debt to equity 0.4, got %f", analytics.DebtToEquity)
		}
	})

	t.Run("empty_store_returns_zero_ratios", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAnalyticsService(db)

		analytics, err := svc.Calculate(start, end)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, decimal.Zero, analytics.TotalRevenue)
		if analytics.NetMargin != 0 || analytics.ReturnOnEquity != 0 || analytics.CurrentRatio != 0 {
			t.Error("expected all ratios to be zero with no data")
		}
	})

	t.Run("zero_revenue_with_expenses", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAnalyticsService(db)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		expense := testutil.CreateTestAccount(t, db, models.AccountTypeExpense)
		postAmount(t, db, expense.ID, cash.ID, 500)

		analytics, err := svc.Calculate(start, end)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, decimal.NewFromInt(-500), analytics.NetProfit)
		if analytics.NetMargin != 0 {
			t.Errorf("zero revenue must yield zero margin, not an error, got %f", analytics.NetMargin)
		}
	})

	t.Run("inactive_accounts_excluded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAnalyticsService(db)

		cash := testutil.CreateTestAccount(t, db, models.AccountTypeAsset)
		revenue := testutil.CreateTestAccount(t, db, models.AccountTypeRevenue)
		postAmount(t, db, cash.ID, revenue.ID, 1000)

		testutil.AssertNoError(t, db.Model(&models.Account{}).Where("id = ?", revenue.ID).Update("is_active", false).Error)

		analytics, err := svc.Calculate(start, end)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, decimal.Zero, analytics.TotalRevenue)
	})
}
