package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledgercore/internal/models"
)

// balanceTolerance is the maximum allowed difference between total debits
// and total credits on a posted entry, in the entry's currency minor unit.
var balanceTolerance = decimal.NewFromFloat(0.01)

// ValidationResult holds the outcome of validating a journal entry.
// Errors block posting; warnings flag suspicious but acceptable data.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateOptions carries the collaborators the entry validator needs.
type ValidateOptions struct {
	// AccountExists reports whether a line item's account id resolves to
	// an active account. Nil skips resolvability checks.
	AccountExists func(accountID string) bool

	// LargeAmountThreshold attaches a warning when the entry's debit
	// total meets or exceeds it. Zero disables the check.
	LargeAmountThreshold decimal.Decimal

	// Now anchors the unusual-date check; zero value means time.Now().
	Now time.Time
}

// ValidateEntry runs the double-entry checks against a journal entry. It
// is pure: it never mutates the entry or touches storage directly. Account
// resolvability can change between draft creation and posting, so callers
// must re-run validation before every post attempt.
func ValidateEntry(entry *models.JournalEntry, opts ValidateOptions) ValidationResult {
	result := ValidationResult{IsValid: true}

	if entry.EntryNumber == "" {
		result.addError("entry number is required")
	}
	if entry.Date.IsZero() {
		result.addError("entry date is required")
	}
	if entry.Description == "" {
		result.addError("entry description is required")
	}
	if len(entry.LineItems) == 0 {
		result.addError("entry must have at least one line item")
		return result
	}

	for i := range entry.LineItems {
		item := &entry.LineItems[i]
		line := i + 1

		if item.AccountID == "" {
			result.addError("line %d: account is required", line)
		} else if opts.AccountExists != nil && !opts.AccountExists(item.AccountID) {
			result.addError("line %d: account %s does not resolve to an active account", line, item.AccountID)
		}

		if item.Debit.IsNegative() || item.Credit.IsNegative() {
			result.addError("line %d: amounts must not be negative", line)
		}

		hasDebit := item.Debit.IsPositive()
		hasCredit := item.Credit.IsPositive()
		switch {
		case hasDebit && hasCredit:
			result.addError("line %d: must have either a debit or a credit amount, not both", line)
		case !hasDebit && !hasCredit:
			result.addError("line %d: must have a debit or a credit amount", line)
		}
	}

	totalDebits := entry.TotalDebits()
	totalCredits := entry.TotalCredits()
	if totalDebits.Sub(totalCredits).Abs().GreaterThan(balanceTolerance) {
		result.addError("entry is not balanced: debits %s do not equal credits %s",
			totalDebits.StringFixed(2), totalCredits.StringFixed(2))
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if !entry.Date.IsZero() {
		if entry.Date.After(now.AddDate(1, 0, 0)) {
			result.addWarning("entry date %s is more than one year in the future", entry.Date.Format("2006-01-02"))
		} else if entry.Date.Before(now.AddDate(-1, 0, 0)) {
			result.addWarning("entry date %s is more than one year in the past", entry.Date.Format("2006-01-02"))
		}
	}

	if opts.LargeAmountThreshold.IsPositive() && totalDebits.GreaterThanOrEqual(opts.LargeAmountThreshold) {
		result.addWarning("entry total %s is unusually large", totalDebits.StringFixed(2))
	}

	return result
}
