package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// validAccountTypes lists the supported account variants.
var validAccountTypes = map[models.AccountType]bool{
	models.AccountTypeChecking:  true,
	models.AccountTypeSavings:   true,
	models.AccountTypeCredit:    true,
	models.AccountTypeBrokerage: true,
	models.AccountTypeTFSA:      true,
}

// CreateAccount opens a new account of any variant for a user.
func (s *accountService) CreateAccount(userID string, params CreateAccountParams) (*models.Account, error) {
	if params.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !validAccountTypes[params.Type] {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
	}

	var currency models.Currency
	if err := s.db.First(&currency, "id = ?", params.CurrencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCurrencyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account := &models.Account{
		UserID:             userID,
		Name:               params.Name,
		Type:               params.Type,
		CurrencyID:         currency.ID,
		Description:        params.Description,
		Balance:            params.InitialBalance,
		IsTaxAdvantaged:    params.IsTaxAdvantaged,
		CanWithdrawAnytime: params.CanWithdrawAnytime,
		IsGovAssociated:    params.IsGovAssociated,
		IsActive:           true,
	}

	switch params.Type {
	case models.AccountTypeSavings:
		account.InterestRate = params.InterestRate
	case models.AccountTypeCredit:
		account.InterestRate = params.InterestRate
		account.CreditLimit = params.CreditLimit
		account.DueDate = params.DueDate
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account.Currency = currency
	return account, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("user_id = ? AND is_active = ?", userID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := s.db.Preload("Currency").
		Where("user_id = ? AND is_active = ?", userID, true).
		Scopes(pagination.Paginate(page)).Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Preload("Currency").
		Where("id = ? AND user_id = ? AND is_active = ?", accountID, userID, true).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an existing account. Only fields relevant to the
// account's variant are applied; the cash balance is never updated here —
// it moves exclusively through the ledger.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	// Common fields (all account types)
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	// Savings and credit accounts carry an interest rate
	if account.Type == models.AccountTypeSavings || account.Type == models.AccountTypeCredit {
		if fields.InterestRate != nil {
			updates["interest_rate"] = *fields.InterestRate
		}
	}

	// Credit-only fields
	if account.Type == models.AccountTypeCredit {
		if fields.CreditLimit != nil {
			updates["credit_limit"] = *fields.CreditLimit
		}
		if fields.DueDate != nil {
			updates["due_date"] = *fields.DueDate
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := s.db.Preload("Currency").Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}
