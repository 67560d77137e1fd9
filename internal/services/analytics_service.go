package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/models"
)

// analyticsService derives financial ratios from account balances.
type analyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB) AnalyticsServicer {
	return &analyticsService{db: db}
}

// Calculate computes the financial snapshot. Totals are sums of current
// balances per account type; every ratio with a zero denominator comes
// back as 0 instead of failing the whole calculation.
func (s *analyticsService) Calculate(startDate, endDate time.Time) (*FinancialAnalytics, error) {
	totals, err := s.balanceTotalsByType()
	if err != nil {
		return nil, err
	}

	revenue := totals[models.AccountTypeRevenue]
	expenses := totals[models.AccountTypeExpense]
	assets := totals[models.AccountTypeAsset]
	liabilities := totals[models.AccountTypeLiability]
	equity := totals[models.AccountTypeEquity]

	profit := revenue.Sub(expenses)

	analytics := &FinancialAnalytics{
		StartDate: startDate,
		EndDate:   endDate,

		TotalRevenue:  revenue,
		TotalExpenses: expenses,
		GrossProfit:   profit,
		NetProfit:     profit,

		TotalAssets:      assets,
		TotalLiabilities: liabilities,
		TotalEquity:      equity,

		GrossMargin:     ratio(profit, revenue),
		OperatingMargin: ratio(profit, revenue),
		NetMargin:       ratio(profit, revenue),

		ReturnOnAssets: ratio(profit, assets),
		ReturnOnEquity: ratio(profit, equity),
		AssetTurnover:  ratio(revenue, assets),

		CurrentRatio:   ratio(assets, liabilities),
		WorkingCapital: assets.Sub(liabilities),
		DebtToEquity:   ratio(liabilities, equity),
		DebtToAssets:   ratio(liabilities, assets),

		OperatingCashFlow: profit,
		FreeCashFlow:      profit,
	}

	return analytics, nil
}

// balanceTotalsByType sums current balances per account type for active
// accounts. Missing types come back as zero.
func (s *analyticsService) balanceTotalsByType() (map[models.AccountType]decimal.Decimal, error) {
	type typeTotal struct {
		Type  models.AccountType
		Total decimal.Decimal
	}

	var rows []typeTotal
	if err := s.db.Model(&models.Account{}).
		Select("type, COALESCE(SUM(current_balance), 0) AS total").
		Where("is_active = ?", true).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totals := map[models.AccountType]decimal.Decimal{
		models.AccountTypeAsset:     decimal.Zero,
		models.AccountTypeLiability: decimal.Zero,
		models.AccountTypeEquity:    decimal.Zero,
		models.AccountTypeRevenue:   decimal.Zero,
		models.AccountTypeExpense:   decimal.Zero,
	}
	for _, row := range rows {
		totals[row.Type] = row.Total
	}
	return totals, nil
}

// ratio divides numerator by denominator, returning 0 when the denominator
// is zero.
func ratio(numerator, denominator decimal.Decimal) float64 {
	if denominator.IsZero() {
		return 0
	}
	result, _ := numerator.Div(denominator).Float64()
	return result
}
