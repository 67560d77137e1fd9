package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "ledgercore/internal/errors"
	"ledgercore/internal/models"
	"ledgercore/internal/pagination"
	"ledgercore/internal/validator"
)

// accountService handles chart-of-accounts business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new ledger account.
func (s *accountService) CreateAccount(in AccountInput) (*models.Account, error) {
	if err := validator.Struct(in); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	if in.Currency == "" {
		in.Currency = "USD"
	}

	var count int64
	if err := s.db.Model(&models.Account{}).Where("code = ?", in.Code).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateAccountCode
	}

	if in.ParentID != nil {
		if _, err := s.GetAccountByID(*in.ParentID); err != nil {
			return nil, err
		}
	}

	account := &models.Account{
		Code:        in.Code,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		ParentID:    in.ParentID,
		Currency:    in.Currency,
		IsActive:    true,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetAccountByCode retrieves an account by its unique code.
func (s *accountService) GetAccountByCode(code string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("code = ?", code).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// ListAccounts retrieves a paginated, filtered list of accounts.
func (s *accountService) ListAccounts(page pagination.PageRequest, filter AccountFilter) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{})
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.IsActive != nil {
		base = base.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		base = base.Where("code LIKE ? OR name LIKE ?", search, search)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).
		Order("code ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateAccount applies the provided fields to an account. Reparenting is
// rejected when the new parent chain would contain the account itself.
func (s *accountService) UpdateAccount(id string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}
	if fields.ParentID != nil {
		if err := s.checkParentCycle(id, *fields.ParentID); err != nil {
			return nil, err
		}
		updates["parent_id"] = *fields.ParentID
	}

	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// checkParentCycle walks the proposed parent chain and rejects the update
// if accountID appears anywhere along it.
func (s *accountService) checkParentCycle(accountID, parentID string) error {
	current := parentID
	for current != "" {
		if current == accountID {
			return apperrors.ErrAccountCycle
		}
		parent, err := s.GetAccountByID(current)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return nil
}
