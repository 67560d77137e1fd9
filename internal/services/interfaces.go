package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
)

// Config carries engine tuning knobs injected at construction time.
// See config.Load for the environment overrides.
type Config struct {
	// ReconcileAcceptThreshold is the minimum rule confidence for an
	// automatic reconciliation; matches below it become suggestions.
	ReconcileAcceptThreshold float64

	// LargeAmountThreshold attaches a data-quality warning to entries
	// whose debit total meets or exceeds it (major currency units).
	LargeAmountThreshold float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileAcceptThreshold: 0.7,
		LargeAmountThreshold:     10000,
	}
}

// AccountInput holds the fields for creating a ledger account.
type AccountInput struct {
	Code        string             `validate:"required,account_code"`
	Name        string             `validate:"required"`
	Type        models.AccountType `validate:"required,account_type"`
	Description string
	ParentID    *string
	Currency    string `validate:"omitempty,iso4217"`
}

// AccountUpdateFields holds optional account fields to update; nil fields
// are left unchanged.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	ParentID    *string
	IsActive    *bool
}

// AccountFilter holds optional filter parameters for listing accounts.
type AccountFilter struct {
	Type     *models.AccountType
	IsActive *bool
	Search   string
}

// AccountServicer defines the contract for chart-of-accounts business logic.
type AccountServicer interface {
	CreateAccount(in AccountInput) (*models.Account, error)
	GetAccountByID(id string) (*models.Account, error)
	GetAccountByCode(code string) (*models.Account, error)
	ListAccounts(page pagination.PageRequest, filter AccountFilter) (*pagination.PageResponse[models.Account], error)
	UpdateAccount(id string, fields AccountUpdateFields) (*models.Account, error)
}

// LineItemInput holds one debit or credit leg of a draft entry.
type LineItemInput struct {
	AccountID   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Memo        string
	TaxCode     string
	CustomerRef string
	SupplierRef string
	Department  string
}

// EntryInput holds the fields for creating or updating a draft journal
// entry. Drafts may be structurally incomplete; the entry validator runs
// the full double-entry checks before every post attempt.
type EntryInput struct {
	EntryNumber string `validate:"required"`
	Date        time.Time
	Description string
	Currency    string `validate:"omitempty,iso4217"`
	Notes       string
	LineItems   []LineItemInput
}

// EntryFilter holds optional filter parameters for listing journal entries.
// MinAmount and MaxAmount bound the entry's total debit amount.
type EntryFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Status    *models.EntryStatus
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Search    string
}

// EntryServicer defines the contract for journal entry lifecycle logic.
type EntryServicer interface {
	CreateDraft(in EntryInput) (*models.JournalEntry, error)
	UpdateDraft(id string, in EntryInput) (*models.JournalEntry, error)
	GetEntryByID(id string) (*models.JournalEntry, error)
	ListEntries(page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.JournalEntry], error)

	// Validate runs the pure double-entry checks against current account
	// state. Callers must re-run it before every post attempt.
	Validate(entry *models.JournalEntry) ValidationResult

	// Post transitions a draft to posted and applies it to balances
	// atomically. On validation failure it returns the ValidationResult
	// alongside ErrEntryValidationFailed and the entry stays a draft.
	Post(id, postedBy string) (*models.JournalEntry, *ValidationResult, error)

	// Void marks a posted entry unusable without touching balances.
	Void(id, reason string) (*models.JournalEntry, error)

	// Reverse posts a complementary entry with debits and credits swapped
	// and links it to the original; it returns the reversing entry.
	Reverse(id, postedBy string) (*models.JournalEntry, error)

	// UpdateNotes edits metadata, which stays writable in every status.
	UpdateNotes(id, notes string) (*models.JournalEntry, error)
}

// PropagatorServicer applies a posted entry's line items to account
// balances. Apply is idempotent per (entry, account) pair and returns the
// ids of accounts whose balances actually changed.
type PropagatorServicer interface {
	Apply(tx *gorm.DB, entry *models.JournalEntry) ([]string, error)
}

// TemplateInput holds the fields for creating a recurring template.
type TemplateInput struct {
	Name            string `validate:"required"`
	Description     string
	Amount          decimal.Decimal
	Currency        string           `validate:"omitempty,iso4217"`
	Frequency       models.Frequency `validate:"required,frequency"`
	Interval        int              `validate:"min=1"`
	StartDate       time.Time        `validate:"required"`
	EndDate         *time.Time
	DebitAccountID  string `validate:"required"`
	CreditAccountID string `validate:"required"`
	AutoExecute     bool
}

// SweepResult summarizes one recurrence sweep pass.
type SweepResult struct {
	Executed  int `json:"executed"`
	Suggested int `json:"suggested"`
	Failed    int `json:"failed"`
}

// RecurrenceServicer defines the contract for recurring-template logic.
type RecurrenceServicer interface {
	CreateTemplate(in TemplateInput) (*models.RecurringTemplate, error)
	GetTemplateByID(id string) (*models.RecurringTemplate, error)
	ListTemplates(page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTemplate], error)
	DeactivateTemplate(id string) error

	// DueTemplates returns active templates due within horizonDays of asOf.
	DueTemplates(asOf time.Time, horizonDays int) ([]models.RecurringTemplate, error)

	// Execute materializes the template's next occurrence as a posted
	// journal entry and advances the due date from the previous due date.
	Execute(templateID string) (*models.JournalEntry, error)

	// Sweep executes auto-execute templates due by asOf and emits
	// template.due events for the rest. Failed executions keep their due
	// date so the same occurrence is retried on the next sweep.
	Sweep(ctx context.Context, asOf time.Time) (*SweepResult, error)
}

// ReconciliationRuleInput holds the fields for creating a reconciliation rule.
type ReconciliationRuleInput struct {
	Name            string `validate:"required"`
	Pattern         string `validate:"required,regex_pattern"`
	TargetAccountID string `validate:"required"`
	Category        string
	Confidence      float64 `validate:"confidence"`
}

// StatementLineInput holds one imported bank statement line.
type StatementLineInput struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Balance     decimal.Decimal
}

// MatchSuggestion is a below-threshold rule match awaiting confirmation.
type MatchSuggestion struct {
	LineID          string  `json:"line_id"`
	RuleID          string  `json:"rule_id"`
	RuleName        string  `json:"rule_name"`
	TargetAccountID string  `json:"target_account_id"`
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
}

// ReconcileResult summarizes one reconciliation batch.
type ReconcileResult struct {
	ReconciledCount int               `json:"reconciled_count"`
	Suggestions     []MatchSuggestion `json:"suggestions"`
}

// ReconciliationServicer defines the contract for bank reconciliation logic.
type ReconciliationServicer interface {
	CreateRule(in ReconciliationRuleInput) (*models.ReconciliationRule, error)
	ListRules(page pagination.PageRequest) (*pagination.PageResponse[models.ReconciliationRule], error)
	ImportStatementLines(bankAccountID string, lines []StatementLineInput) ([]models.BankStatementLine, error)

	// Reconcile processes every unreconciled line for the bank account:
	// exact amount+date match first, then highest-confidence rule match.
	// Each line's outcome commits independently, so the batch may be
	// cancelled between lines without corrupting state.
	Reconcile(ctx context.Context, bankAccountID string) (*ReconcileResult, error)

	// PendingBankAccounts lists bank accounts with unreconciled lines.
	PendingBankAccounts() ([]string, error)
}

// CategorizationRuleInput holds the fields for creating a categorization rule.
type CategorizationRuleInput struct {
	Name        string `validate:"required"`
	Pattern     string `validate:"required,regex_pattern"`
	Category    string `validate:"required"`
	Subcategory string
	Confidence  float64 `validate:"confidence"`
}

// CategorySuggestion is the outcome of categorizing a description.
// Confidence is 0 when no rule matched.
type CategorySuggestion struct {
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence"`
	RuleID      string  `json:"rule_id,omitempty"`
}

// CategorizationServicer defines the contract for rule-based transaction
// categorization with online learning from user corrections.
type CategorizationServicer interface {
	CreateRule(in CategorizationRuleInput) (*models.CategorizationRule, error)
	ListRules(page pagination.PageRequest) (*pagination.PageResponse[models.CategorizationRule], error)
	Categorize(description string) (*CategorySuggestion, error)
	LearnFromCorrection(description, category, subcategory string) error
}

// FinancialAnalytics holds derived financial ratios for a period.
//
// All figures are snapshot calculations over account balances as of the
// calculation time: revenue and expense totals are cumulative posted
// balances, not deltas over [StartDate, EndDate]. The store does not
// separate COGS from operating expenses, so gross, operating and net
// margins collapse to the same profit figure, and the cash-flow fields
// are proxied by gross profit.
type FinancialAnalytics struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	NetProfit     decimal.Decimal `json:"net_profit"`

	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`

	GrossMargin     float64 `json:"gross_margin"`
	OperatingMargin float64 `json:"operating_margin"`
	NetMargin       float64 `json:"net_margin"`

	ReturnOnAssets float64 `json:"return_on_assets"`
	ReturnOnEquity float64 `json:"return_on_equity"`
	AssetTurnover  float64 `json:"asset_turnover"`

	CurrentRatio   float64         `json:"current_ratio"`
	WorkingCapital decimal.Decimal `json:"working_capital"`
	DebtToEquity   float64         `json:"debt_to_equity"`
	DebtToAssets   float64         `json:"debt_to_assets"`

	OperatingCashFlow decimal.Decimal `json:"operating_cash_flow"`
	FreeCashFlow      decimal.Decimal `json:"free_cash_flow"`
}

// AnalyticsServicer defines the contract for financial ratio calculation.
type AnalyticsServicer interface {
	Calculate(startDate, endDate time.Time) (*FinancialAnalytics, error)
}

// EventServicer defines the contract for domain event emission. The engine
// emits events; delivery to users is entirely the caller's concern.
type EventServicer interface {
	Publish(evt Event)
	Subscribe(name string, handler EventHandler)
}
