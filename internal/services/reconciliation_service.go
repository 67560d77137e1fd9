package services

import (
	"context"
	"regexp"
	"time"

	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/logger"
	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
	"ledgercore/internal/validator"
)

// reconciliationService pairs bank statement lines with ledger entries.
type reconciliationService struct {
	db     *gorm.DB
	events EventServicer
	cfg    Config
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *gorm.DB, events EventServicer, cfg Config) ReconciliationServicer {
	return &reconciliationService{
		db:     db,
		events: events,
		cfg:    cfg,
	}
}

// CreateRule creates a reconciliation rule. The pattern is compile-checked
// here so malformed rules fail at creation, never mid-sweep.
func (s *reconciliationService) CreateRule(in ReconciliationRuleInput) (*models.ReconciliationRule, error) {
	if err := validator.Struct(in); err != nil {
		if _, compileErr := regexp.Compile(in.Pattern); compileErr != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidRulePattern, compileErr.Error())
		}
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	var count int64
	if err := s.db.Model(&models.Account{}).Where("id = ?", in.TargetAccountID).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrAccountNotFound
	}

	rule := &models.ReconciliationRule{
		Name:            in.Name,
		Pattern:         in.Pattern,
		TargetAccountID: in.TargetAccountID,
		Category:        in.Category,
		Confidence:      in.Confidence,
		IsActive:        true,
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return rule, nil
}

// ListRules retrieves a paginated list of reconciliation rules.
func (s *reconciliationService) ListRules(page pagination.PageRequest) (*pagination.PageResponse[models.ReconciliationRule], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.ReconciliationRule{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.ReconciliationRule
	if err := base.Scopes(pagination.Paginate(page)).
		Order("confidence DESC, match_count DESC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rules, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ImportStatementLines stores imported bank statement lines. Lines are
// append-only; reconciliation mutates only the matching fields.
func (s *reconciliationService) ImportStatementLines(bankAccountID string, lines []StatementLineInput) ([]models.BankStatementLine, error) {
	if bankAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bank account ID is required")
	}

	records := make([]models.BankStatementLine, 0, len(lines))
	for _, in := range lines {
		records = append(records, models.BankStatementLine{
			BankAccountID: bankAccountID,
			Date:          in.Date,
			Description:   in.Description,
			Amount:        in.Amount,
			Balance:       in.Balance,
		})
	}
	if len(records) == 0 {
		return records, nil
	}

	if err := s.db.Create(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return records, nil
}

// PendingBankAccounts lists bank accounts that still have unreconciled lines.
func (s *reconciliationService) PendingBankAccounts() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.BankStatementLine{}).
		Where("reconciled = ?", false).
		Distinct().
		Pluck("bank_account_id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// compiledRule pairs a rule with its compiled pattern for one batch pass.
type compiledRule struct {
	rule *models.ReconciliationRule
	re   *regexp.Regexp
}

// Reconcile processes every unreconciled line for the bank account. For
// each line it tries an exact amount+date match against posted entries
// first; failing that, the highest-confidence matching rule either
// auto-reconciles the line (confidence at or above the acceptance
// threshold) or produces a suggestion for manual confirmation. Each
// line's outcome commits independently, so cancelling between lines
// leaves already-processed lines intact.
func (s *reconciliationService) Reconcile(ctx context.Context, bankAccountID string) (*ReconcileResult, error) {
	var lines []models.BankStatementLine
	if err := s.db.Where("bank_account_id = ? AND reconciled = ?", bankAccountID, false).
		Order("date ASC, created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rules, err := s.loadCompiledRules()
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for i := range lines {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line := &lines[i]

		matched, err := s.exactMatch(line)
		if err != nil {
			return result, err
		}
		if matched {
			result.ReconciledCount++
			s.events.Publish(Event{
				Name:       EventReconciliationMatched,
				EntityType: "bank_statement_line",
				EntityID:   line.ID,
				Payload:    map[string]any{"matched_entry_id": *line.MatchedEntryID, "method": "exact"},
			})
			continue
		}

		winner := firstMatchingRule(rules, line.Description)
		if winner == nil {
			continue
		}

		if winner.rule.Confidence >= s.cfg.ReconcileAcceptThreshold {
			if err := s.applyRuleMatch(line, winner.rule); err != nil {
				return result, err
			}
			result.ReconciledCount++
			s.events.Publish(Event{
				Name:       EventReconciliationMatched,
				EntityType: "bank_statement_line",
				EntityID:   line.ID,
				Payload:    map[string]any{"rule_id": winner.rule.ID, "confidence": winner.rule.Confidence, "method": "rule"},
			})
		} else {
			if err := s.suggestRuleMatch(line, winner.rule); err != nil {
				return result, err
			}
			result.Suggestions = append(result.Suggestions, MatchSuggestion{
				LineID:          line.ID,
				RuleID:          winner.rule.ID,
				RuleName:        winner.rule.Name,
				TargetAccountID: winner.rule.TargetAccountID,
				Category:        winner.rule.Category,
				Confidence:      winner.rule.Confidence,
			})
			s.events.Publish(Event{
				Name:       EventReconciliationSuggested,
				EntityType: "bank_statement_line",
				EntityID:   line.ID,
				Payload:    map[string]any{"rule_id": winner.rule.ID, "confidence": winner.rule.Confidence},
			})
		}
	}

	return result, nil
}

// loadCompiledRules fetches active rules ranked by confidence, then match
// count, and compiles their patterns once for the batch. Patterns are
// validated at creation, so a compile failure here means data predating
// that check; such rules are skipped with a warning rather than failing
// the whole batch.
func (s *reconciliationService) loadCompiledRules() ([]compiledRule, error) {
	var rules []models.ReconciliationRule
	if err := s.db.Where("is_active = ?", true).
		Order("confidence DESC, match_count DESC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i := range rules {
		re, err := regexp.Compile("(?i)" + rules[i].Pattern)
		if err != nil {
			logger.Get().Warnw("skipping reconciliation rule with invalid pattern",
				"rule_id", rules[i].ID, "pattern", rules[i].Pattern, "error", err)
			continue
		}
		compiled = append(compiled, compiledRule{rule: &rules[i], re: re})
	}
	return compiled, nil
}

// firstMatchingRule returns the best-ranked rule whose pattern matches the
// description. The slice is pre-sorted by confidence then match count, so
// the first hit is the winner and ties fall to the higher match count.
func firstMatchingRule(rules []compiledRule, description string) *compiledRule {
	for i := range rules {
		if rules[i].re.MatchString(description) {
			return &rules[i]
		}
	}
	return nil
}

// exactMatch looks for a posted entry with the same calendar day and a
// total equal to the line's absolute amount within the balance tolerance.
// A hit reconciles the line and links both sides.
func (s *reconciliationService) exactMatch(line *models.BankStatementLine) (bool, error) {
	// The day boundary is taken in the line's own location, so an evening
	// timestamp in a non-UTC zone stays on its local calendar day.
	y, m, d := line.Date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, line.Date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	alreadyMatched := s.db.Model(&models.BankStatementLine{}).
		Select("matched_entry_id").
		Where("matched_entry_id IS NOT NULL")

	var entries []models.JournalEntry
	if err := s.db.Preload("LineItems").
		Where("status = ? AND date >= ? AND date < ?", models.EntryStatusPosted, dayStart, dayEnd).
		Where("id NOT IN (?)", alreadyMatched).
		Find(&entries).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	target := line.Amount.Abs()
	for i := range entries {
		entry := &entries[i]
		if entry.TotalDebits().Sub(target).Abs().GreaterThan(balanceTolerance) {
			continue
		}

		updates := map[string]any{
			"reconciled":       true,
			"matched_entry_id": entry.ID,
		}
		if err := s.db.Model(&models.BankStatementLine{}).Where("id = ?", line.ID).Updates(updates).Error; err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		line.Reconciled = true
		line.MatchedEntryID = &entry.ID
		return true, nil
	}
	return false, nil
}

// applyRuleMatch auto-reconciles a line against the winning rule and bumps
// the rule's match count.
func (s *reconciliationService) applyRuleMatch(line *models.BankStatementLine, rule *models.ReconciliationRule) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"reconciled":           true,
			"suggested_account_id": rule.TargetAccountID,
			"suggested_category":   rule.Category,
			"suggested_confidence": rule.Confidence,
		}
		if err := tx.Model(&models.BankStatementLine{}).Where("id = ?", line.ID).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.ReconciliationRule{}).Where("id = ?", rule.ID).
			Update("match_count", gorm.Expr("match_count + 1")).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		line.Reconciled = true
		line.SuggestedAccountID = &rule.TargetAccountID
		line.SuggestedCategory = rule.Category
		line.SuggestedConfidence = rule.Confidence
		rule.MatchCount++
		return nil
	})
}

// suggestRuleMatch records the below-threshold suggestion on the line
// without reconciling it.
func (s *reconciliationService) suggestRuleMatch(line *models.BankStatementLine, rule *models.ReconciliationRule) error {
	updates := map[string]any{
		"suggested_account_id": rule.TargetAccountID,
		"suggested_category":   rule.Category,
		"suggested_confidence": rule.Confidence,
	}
	if err := s.db.Model(&models.BankStatementLine{}).Where("id = ?", line.ID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	line.SuggestedAccountID = &rule.TargetAccountID
	line.SuggestedCategory = rule.Category
	line.SuggestedConfidence = rule.Confidence
	return nil
}
