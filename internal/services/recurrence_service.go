package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/logger"
	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
	"ledgercore/internal/validator"
)

// recurrenceService materializes recurring templates into journal entries.
type recurrenceService struct {
	db      *gorm.DB
	entries EntryServicer
	events  EventServicer
}

// NewRecurrenceService creates a new RecurrenceServicer.
func NewRecurrenceService(db *gorm.DB, entries EntryServicer, events EventServicer) RecurrenceServicer {
	return &recurrenceService{
		db:      db,
		entries: entries,
		events:  events,
	}
}

// CreateTemplate creates a new recurring template. The first due date is
// the template's start date.
func (s *recurrenceService) CreateTemplate(in TemplateInput) (*models.RecurringTemplate, error) {
	if err := validator.Struct(in); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "template amount must be greater than zero")
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}

	for _, accountID := range []string{in.DebitAccountID, in.CreditAccountID} {
		var count int64
		if err := s.db.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrAccountNotFound
		}
	}

	template := &models.RecurringTemplate{
		Name:            in.Name,
		Description:     in.Description,
		Amount:          in.Amount,
		Currency:        in.Currency,
		Frequency:       in.Frequency,
		Interval:        in.Interval,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		NextDueDate:     in.StartDate,
		DebitAccountID:  in.DebitAccountID,
		CreditAccountID: in.CreditAccountID,
		IsActive:        true,
		AutoExecute:     in.AutoExecute,
	}

	if err := s.db.Create(template).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return template, nil
}

// GetTemplateByID retrieves a recurring template by ID.
func (s *recurrenceService) GetTemplateByID(id string) (*models.RecurringTemplate, error) {
	var template models.RecurringTemplate
	if err := s.db.Where("id = ?", id).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &template, nil
}

// ListTemplates retrieves a paginated list of recurring templates.
func (s *recurrenceService) ListTemplates(page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTemplate], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.RecurringTemplate{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var templates []models.RecurringTemplate
	if err := base.Scopes(pagination.Paginate(page)).
		Order("next_due_date ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(templates, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// DeactivateTemplate turns a template off. Templates are never deleted
// automatically; history stays queryable.
func (s *recurrenceService) DeactivateTemplate(id string) error {
	template, err := s.GetTemplateByID(id)
	if err != nil {
		return err
	}
	if err := s.db.Model(template).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DueTemplates returns active templates whose next due date falls within
// horizonDays of asOf.
func (s *recurrenceService) DueTemplates(asOf time.Time, horizonDays int) ([]models.RecurringTemplate, error) {
	cutoff := asOf.AddDate(0, 0, horizonDays)

	var templates []models.RecurringTemplate
	if err := s.db.Where("is_active = ? AND next_due_date <= ?", true, cutoff).
		Order("next_due_date ASC").
		Find(&templates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return templates, nil
}

// Execute materializes the template's next occurrence: it builds a draft
// entry debiting the debit account and crediting the credit account for
// the template amount, posts it through the validate/propagate pipeline,
// then advances next_due_date from the previous due date so delayed
// executions never drift the schedule. On failure the due date is left
// untouched and the same occurrence is retried on the next sweep.
func (s *recurrenceService) Execute(templateID string) (*models.JournalEntry, error) {
	template, err := s.GetTemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	if !template.IsActive {
		return nil, apperrors.ErrTemplateInactive
	}

	due := template.NextDueDate
	draft, err := s.entries.CreateDraft(EntryInput{
		EntryNumber: occurrenceEntryNumber(template, due),
		Date:        due,
		Description: template.Name,
		Currency:    template.Currency,
		Notes:       template.Description,
		LineItems: []LineItemInput{
			{AccountID: template.DebitAccountID, Debit: template.Amount},
			{AccountID: template.CreditAccountID, Credit: template.Amount},
		},
	})
	if err != nil {
		return nil, err
	}

	entry, result, err := s.entries.Post(draft.ID, "recurrence-scheduler")
	if err != nil {
		if result != nil {
			logger.Get().Errorw("recurring template execution failed validation",
				"template_id", template.ID,
				"template_name", template.Name,
				"errors", result.Errors,
			)
		}
		// Hard-delete the dangling draft and its line items. A soft delete
		// would keep the unique entry number occupied and block the retry
		// on the next sweep.
		delErr := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("entry_id = ?", draft.ID).Delete(&models.LineItem{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Where("id = ?", draft.ID).Delete(&models.JournalEntry{}).Error
		})
		if delErr != nil {
			logger.Get().Errorw("failed to clean up draft after execution failure",
				"entry_id", draft.ID, "error", delErr)
		}
		return nil, err
	}

	next := advanceDueDate(due, template.Frequency, template.Interval)
	now := time.Now()
	updates := map[string]any{
		"next_due_date":    next,
		"last_executed_at": now,
	}
	if template.EndDate != nil && next.After(*template.EndDate) {
		updates["is_active"] = false
	}
	if err := s.db.Model(template).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return entry, nil
}

// occurrenceEntryNumber derives a unique, stable entry number for one
// template occurrence, which doubles as an idempotence key: re-executing
// the same occurrence collides on the entry number instead of posting twice.
// The full template id is the discriminator; a prefix of a UUIDv7 is mostly
// timestamp and collides across templates created close together.
func occurrenceEntryNumber(template *models.RecurringTemplate, due time.Time) string {
	return fmt.Sprintf("REC-%s-%s", template.ID, due.Format("20060102"))
}

// advanceDueDate adds interval units of frequency to the previous due date.
func advanceDueDate(from time.Time, frequency models.Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch frequency {
	case models.FrequencyDaily:
		return from.AddDate(0, 0, interval)
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval)
	case models.FrequencyMonthly:
		return from.AddDate(0, interval, 0)
	case models.FrequencyQuarterly:
		return from.AddDate(0, 3*interval, 0)
	case models.FrequencyYearly:
		return from.AddDate(interval, 0, 0)
	default:
		return from.AddDate(0, interval, 0)
	}
}

// Sweep runs one pass over due templates: auto-execute templates due by
// asOf are executed; the rest surface as template.due events for manual
// confirmation. One occurrence advances per sweep, so a template several
// periods behind catches up one period at a time.
func (s *recurrenceService) Sweep(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	templates, err := s.DueTemplates(asOf, 0)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for i := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		template := &templates[i]

		if template.AutoExecute && !template.NextDueDate.After(asOf) {
			if _, err := s.Execute(template.ID); err != nil {
				logger.Get().Errorw("recurring template execution failed",
					"template_id", template.ID,
					"template_name", template.Name,
					"error", err,
				)
				result.Failed++
				continue
			}
			result.Executed++
		} else {
			s.events.Publish(Event{
				Name:       EventTemplateDue,
				EntityType: "recurring_template",
				EntityID:   template.ID,
				Payload: map[string]any{
					"name":          template.Name,
					"next_due_date": template.NextDueDate.Format("2006-01-02"),
					"amount":        template.Amount.StringFixed(2),
				},
			})
			result.Suggested++
		}
	}

	return result, nil
}
