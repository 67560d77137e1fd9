package services

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/models"
)

// propagationService applies posted journal entries to account balances.
type propagationService struct{}

// NewPropagationService creates a new PropagatorServicer.
func NewPropagationService() PropagatorServicer {
	return &propagationService{}
}

// Apply folds a posted entry's line items into the debit/credit
// accumulators and current balance of each touched account, and stamps
// last_transaction_at. A BalanceApplication row with a unique
// (entry, account) pair guards each account update: re-running Apply for
// an already-applied entry inserts nothing and changes no balances.
//
// Balances move by atomic SQL increments inside the caller's transaction,
// so concurrent posts touching the same account serialize at the database
// rather than losing updates. Accounts are processed in id order to keep
// lock acquisition deterministic.
func (s *propagationService) Apply(tx *gorm.DB, entry *models.JournalEntry) ([]string, error) {
	if entry.Status != models.EntryStatusPosted {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only posted entries can be applied to balances")
	}

	type accountDelta struct {
		debit  decimal.Decimal
		credit decimal.Decimal
	}
	deltas := make(map[string]*accountDelta)
	for i := range entry.LineItems {
		item := &entry.LineItems[i]
		d, ok := deltas[item.AccountID]
		if !ok {
			d = &accountDelta{debit: decimal.Zero, credit: decimal.Zero}
			deltas[item.AccountID] = d
		}
		d.debit = d.debit.Add(item.Debit)
		d.credit = d.credit.Add(item.Credit)
	}

	accountIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	var touched []string
	for _, accountID := range accountIDs {
		delta := deltas[accountID]

		application := &models.BalanceApplication{
			EntryID:   entry.ID,
			AccountID: accountID,
			Debit:     delta.debit,
			Credit:    delta.credit,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(application)
		if res.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			// Already applied for this account; idempotent skip.
			continue
		}

		var account models.Account
		if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrAccountNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Asset/expense accounts grow with debits; liability/equity/revenue
		// accounts grow with credits.
		signed := delta.debit.Sub(delta.credit)
		if !account.Type.DebitNormal() {
			signed = delta.credit.Sub(delta.debit)
		}

		updates := map[string]any{
			"debit_balance":       gorm.Expr("debit_balance + ?", delta.debit),
			"credit_balance":      gorm.Expr("credit_balance + ?", delta.credit),
			"current_balance":     gorm.Expr("current_balance + ?", signed),
			"last_transaction_at": entry.Date,
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", accountID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		touched = append(touched, accountID)
	}

	return touched, nil
}
