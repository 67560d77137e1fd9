package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/logger"
	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
	"ledgercore/internal/validator"
)

const (
	// learnedRuleConfidence is the starting confidence for rules generated
	// from user corrections.
	learnedRuleConfidence = 0.6

	// learnedRuleBoost is added to an existing rule's confidence each time
	// a correction confirms it, capped at maxRuleConfidence.
	learnedRuleBoost  = 0.1
	maxRuleConfidence = 1.0

	// minKeywordLength drops short tokens that carry no categorization
	// signal (articles, bank codes, day abbreviations).
	minKeywordLength = 4
)

// stopwords are common words excluded from learned patterns.
var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "into": {},
	"payment": {}, "paid": {}, "purchase": {}, "online": {},
	"card": {}, "debit": {}, "credit": {}, "transfer": {},
	"transaction": {}, "ref": {}, "reference": {},
}

// categorizationService suggests expense categories for transaction
// descriptions and learns new rules from user corrections.
type categorizationService struct {
	db *gorm.DB
}

// NewCategorizationService creates a new CategorizationServicer.
func NewCategorizationService(db *gorm.DB) CategorizationServicer {
	return &categorizationService{db: db}
}

// CreateRule creates a user-authored categorization rule.
func (s *categorizationService) CreateRule(in CategorizationRuleInput) (*models.CategorizationRule, error) {
	if err := validator.Struct(in); err != nil {
		if _, compileErr := regexp.Compile(in.Pattern); compileErr != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidRulePattern, compileErr.Error())
		}
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	rule := &models.CategorizationRule{
		Name:        in.Name,
		Pattern:     in.Pattern,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Confidence:  in.Confidence,
		IsActive:    true,
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return rule, nil
}

// ListRules retrieves a paginated list of categorization rules.
func (s *categorizationService) ListRules(page pagination.PageRequest) (*pagination.PageResponse[models.CategorizationRule], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.CategorizationRule{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.CategorizationRule
	if err := base.Scopes(pagination.Paginate(page)).
		Order("confidence DESC, usage_count DESC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rules, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Categorize suggests a category for the description using the
// highest-confidence matching active rule. A winning rule's usage count is
// bumped; no match returns a zero-confidence suggestion rather than an error.
func (s *categorizationService) Categorize(description string) (*CategorySuggestion, error) {
	var rules []models.CategorizationRule
	if err := s.db.Where("is_active = ?", true).
		Order("confidence DESC, usage_count DESC").
		Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range rules {
		rule := &rules[i]
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			logger.Get().Warnw("skipping categorization rule with invalid pattern",
				"rule_id", rule.ID, "pattern", rule.Pattern, "error", err)
			continue
		}
		if !re.MatchString(description) {
			continue
		}

		if err := s.db.Model(&models.CategorizationRule{}).Where("id = ?", rule.ID).
			Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return &CategorySuggestion{
			Category:    rule.Category,
			Subcategory: rule.Subcategory,
			Confidence:  rule.Confidence,
			RuleID:      rule.ID,
		}, nil
	}

	return &CategorySuggestion{Confidence: 0}, nil
}

// LearnFromCorrection folds a user correction back into the rule set. Each
// keyword extracted from the description either boosts an existing rule
// already pointing at the corrected category, or seeds a new
// machine-generated rule at the starting confidence. Repeated corrections
// for the same vendor therefore converge on a high-confidence rule.
func (s *categorizationService) LearnFromCorrection(description, category, subcategory string) error {
	if category == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "corrected category is required")
	}

	keywords := extractKeywords(description)
	if len(keywords) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, keyword := range keywords {
			pattern := regexp.QuoteMeta(keyword)

			var rule models.CategorizationRule
			err := tx.Where("pattern = ? AND category = ?", pattern, category).First(&rule).Error
			switch {
			case err == nil:
				confidence := rule.Confidence + learnedRuleBoost
				if confidence > maxRuleConfidence {
					confidence = maxRuleConfidence
				}
				updates := map[string]any{
					"confidence":  confidence,
					"usage_count": gorm.Expr("usage_count + 1"),
				}
				if err := tx.Model(&rule).Updates(updates).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				learned := &models.CategorizationRule{
					Name:             fmt.Sprintf("learned: %s -> %s", keyword, category),
					Pattern:          pattern,
					Category:         category,
					Subcategory:      subcategory,
					Confidence:       learnedRuleConfidence,
					IsActive:         true,
					MachineGenerated: true,
				}
				if err := tx.Create(learned).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			default:
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

// extractKeywords lowercases the description, strips punctuation and
// digits, and returns the deduplicated tokens long enough to carry signal.
func extractKeywords(description string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(description))

	seen := make(map[string]struct{})
	var keywords []string
	for _, token := range strings.Fields(cleaned) {
		if len(token) < minKeywordLength {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}
	return keywords
}
