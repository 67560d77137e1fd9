package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
	"ledgercore/internal/validator"
)

// entryService handles journal entry lifecycle logic.
type entryService struct {
	db         *gorm.DB
	propagator PropagatorServicer
	events     EventServicer
	cfg        Config
}

// NewEntryService creates a new EntryServicer.
func NewEntryService(db *gorm.DB, propagator PropagatorServicer, events EventServicer, cfg Config) EntryServicer {
	return &entryService{
		db:         db,
		propagator: propagator,
		events:     events,
		cfg:        cfg,
	}
}

// CreateDraft creates a new draft journal entry. Drafts may be
// structurally incomplete; the full double-entry checks run at post time.
func (s *entryService) CreateDraft(in EntryInput) (*models.JournalEntry, error) {
	if err := validator.Struct(in); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	if in.Currency == "" {
		in.Currency = "USD"
	}

	var count int64
	if err := s.db.Model(&models.JournalEntry{}).Where("entry_number = ?", in.EntryNumber).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEntryNumber
	}

	entry := &models.JournalEntry{
		EntryNumber: in.EntryNumber,
		Date:        in.Date,
		Description: in.Description,
		Status:      models.EntryStatusDraft,
		Currency:    in.Currency,
		Notes:       in.Notes,
		LineItems:   buildLineItems(in.LineItems),
	}

	if err := s.db.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return entry, nil
}

func buildLineItems(inputs []LineItemInput) []models.LineItem {
	items := make([]models.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.LineItem{
			AccountID:   in.AccountID,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Memo:        in.Memo,
			TaxCode:     in.TaxCode,
			CustomerRef: in.CustomerRef,
			SupplierRef: in.SupplierRef,
			Department:  in.Department,
		})
	}
	return items
}

// UpdateDraft replaces a draft entry's fields and line items. Entries in
// any other status are immutable except for notes.
func (s *entryService) UpdateDraft(id string, in EntryInput) (*models.JournalEntry, error) {
	entry, err := s.GetEntryByID(id)
	if err != nil {
		return nil, err
	}
	if !entry.Editable() {
		return nil, apperrors.ErrEntryNotEditable
	}

	if in.EntryNumber != "" && in.EntryNumber != entry.EntryNumber {
		var count int64
		if err := s.db.Model(&models.JournalEntry{}).Where("entry_number = ? AND id <> ?", in.EntryNumber, id).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.ErrDuplicateEntryNumber
		}
		entry.EntryNumber = in.EntryNumber
	}

	if !in.Date.IsZero() {
		entry.Date = in.Date
	}
	if in.Description != "" {
		entry.Description = in.Description
	}
	if in.Currency != "" {
		entry.Currency = in.Currency
	}
	entry.Notes = in.Notes

	items := buildLineItems(in.LineItems)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for i := range items {
			items[i].EntryID = id
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		updates := map[string]any{
			"entry_number": entry.EntryNumber,
			"date":         entry.Date,
			"description":  entry.Description,
			"currency":     entry.Currency,
			"notes":        entry.Notes,
		}
		if err := tx.Model(&models.JournalEntry{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry.LineItems = items
	return entry, nil
}

// GetEntryByID retrieves a journal entry with its line items.
func (s *entryService) GetEntryByID(id string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	if err := s.db.Preload("LineItems").Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &entry, nil
}

// ListEntries retrieves a paginated, filtered list of journal entries.
func (s *entryService) ListEntries(page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.JournalEntry], error) {
	page.Defaults()

	base := s.db.Model(&models.JournalEntry{})
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.MinAmount != nil || filter.MaxAmount != nil {
		totals := s.db.Model(&models.LineItem{}).
			Select("entry_id").
			Group("entry_id")
		if filter.MinAmount != nil {
			totals = totals.Having("SUM(debit) >= ?", *filter.MinAmount)
		}
		if filter.MaxAmount != nil {
			totals = totals.Having("SUM(debit) <= ?", *filter.MaxAmount)
		}
		base = base.Where("id IN (?)", totals)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		base = base.Where("entry_number LIKE ? OR description LIKE ?", search, search)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.JournalEntry
	if err := base.Preload("LineItems").
		Scopes(pagination.Paginate(page)).
		Order("date DESC, entry_number DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Validate runs the pure double-entry checks against current account state.
func (s *entryService) Validate(entry *models.JournalEntry) ValidationResult {
	return ValidateEntry(entry, ValidateOptions{
		AccountExists:        s.accountResolvable,
		LargeAmountThreshold: decimal.NewFromFloat(s.cfg.LargeAmountThreshold),
	})
}

func (s *entryService) accountResolvable(accountID string) bool {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("id = ? AND is_active = ?", accountID, true).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// Post transitions a draft entry to posted and applies its line items to
// account balances in a single database transaction. A failed post leaves
// the entry in draft with no balance changes.
func (s *entryService) Post(id, postedBy string) (*models.JournalEntry, *ValidationResult, error) {
	entry, err := s.GetEntryByID(id)
	if err != nil {
		return nil, nil, err
	}
	if entry.Status != models.EntryStatusDraft {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only draft entries can be posted")
	}

	result := s.Validate(entry)
	if !result.IsValid {
		return nil, &result, apperrors.ErrEntryValidationFailed
	}

	now := time.Now()
	var touched []string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		touched, txErr = s.postTx(tx, entry, postedBy, now)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}

	s.publishPosted(entry, touched)
	return entry, &result, nil
}

// postTx performs the posted transition and balance propagation within an
// open transaction. The guarded UPDATE makes the transition happen exactly
// once even under concurrent post attempts.
func (s *entryService) postTx(tx *gorm.DB, entry *models.JournalEntry, postedBy string, now time.Time) ([]string, error) {
	res := tx.Model(&models.JournalEntry{}).
		Where("id = ? AND status = ?", entry.ID, models.EntryStatusDraft).
		Updates(map[string]any{
			"status":    models.EntryStatusPosted,
			"posted_at": now,
			"posted_by": postedBy,
		})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "entry was posted by a concurrent operation")
	}

	entry.Status = models.EntryStatusPosted
	entry.PostedAt = &now
	entry.PostedBy = postedBy

	return s.propagator.Apply(tx, entry)
}

func (s *entryService) publishPosted(entry *models.JournalEntry, touched []string) {
	s.events.Publish(Event{
		Name:       EventEntryPosted,
		EntityType: "journal_entry",
		EntityID:   entry.ID,
		Payload: map[string]any{
			"entry_number": entry.EntryNumber,
			"total":        entry.TotalDebits().StringFixed(2),
		},
	})
	for _, accountID := range touched {
		s.events.Publish(Event{
			Name:       EventBalanceChanged,
			EntityType: "account",
			EntityID:   accountID,
			Payload:    map[string]any{"entry_id": entry.ID},
		})
	}
}

// Void marks a posted entry unusable for further reference. Balances are
// untouched; correction workflows post a separate adjusting entry.
func (s *entryService) Void(id, reason string) (*models.JournalEntry, error) {
	entry, err := s.GetEntryByID(id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.EntryStatusPosted {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only posted entries can be voided")
	}

	now := time.Now()
	updates := map[string]any{
		"status":    models.EntryStatusVoid,
		"voided_at": now,
	}
	if reason != "" {
		updates["notes"] = reason
	}
	res := s.db.Model(&models.JournalEntry{}).
		Where("id = ? AND status = ?", id, models.EntryStatusPosted).
		Updates(updates)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "entry status changed by a concurrent operation")
	}

	entry.Status = models.EntryStatusVoid
	entry.VoidedAt = &now
	if reason != "" {
		entry.Notes = reason
	}
	return entry, nil
}

// Reverse creates a complementary entry with debits and credits swapped
// for the same accounts, posts it through the same validate/propagate
// pipeline, and marks the original reversed. Applying both entries nets
// every touched account back to its pre-entry balance.
func (s *entryService) Reverse(id, postedBy string) (*models.JournalEntry, error) {
	original, err := s.GetEntryByID(id)
	if err != nil {
		return nil, err
	}
	if original.Status != models.EntryStatusPosted {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "only posted entries can be reversed")
	}

	now := time.Now()
	reversal := &models.JournalEntry{
		EntryNumber:  original.EntryNumber + "-REV",
		Date:         now,
		Description:  "Reversal of " + original.EntryNumber,
		Status:       models.EntryStatusDraft,
		Currency:     original.Currency,
		ReversalOfID: &original.ID,
	}
	for i := range original.LineItems {
		item := &original.LineItems[i]
		reversal.LineItems = append(reversal.LineItems, models.LineItem{
			AccountID:   item.AccountID,
			Debit:       item.Credit,
			Credit:      item.Debit,
			Memo:        item.Memo,
			TaxCode:     item.TaxCode,
			CustomerRef: item.CustomerRef,
			SupplierRef: item.SupplierRef,
			Department:  item.Department,
		})
	}

	result := s.Validate(reversal)
	if !result.IsValid {
		return nil, apperrors.WithMessage(apperrors.ErrEntryValidationFailed, result.Errors[0])
	}

	var touched []string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reversal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var txErr error
		touched, txErr = s.postTx(tx, reversal, postedBy, now)
		if txErr != nil {
			return txErr
		}

		res := tx.Model(&models.JournalEntry{}).
			Where("id = ? AND status = ?", original.ID, models.EntryStatusPosted).
			Updates(map[string]any{
				"status":         models.EntryStatusReversed,
				"reversed_by_id": reversal.ID,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidStatusChange, "entry status changed by a concurrent operation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPosted(reversal, touched)
	return reversal, nil
}

// UpdateNotes edits entry metadata, which stays writable in every status.
func (s *entryService) UpdateNotes(id, notes string) (*models.JournalEntry, error) {
	entry, err := s.GetEntryByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.JournalEntry{}).Where("id = ?", id).Update("notes", notes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	entry.Notes = notes
	return entry, nil
}
