package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
	"tradefolio/internal/services"
)

// AccountHandler handles account-related requests.
type AccountHandler struct {
	accountService services.AccountServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the request payload for opening an account.
// Decimal fields travel as strings to avoid float rounding on the wire.
type CreateAccountRequest struct {
	Name               string             `json:"name" binding:"required,min=1,max=100"`
	Type               models.AccountType `json:"type" binding:"required,account_type"`
	CurrencyID         string             `json:"currency_id" binding:"required,uuid"`
	Description        string             `json:"description" binding:"max=500"`
	InitialBalance     string             `json:"initial_balance" binding:"omitempty,decimal"`
	IsTaxAdvantaged    bool               `json:"is_tax_advantaged"`
	CanWithdrawAnytime *bool              `json:"can_withdraw_anytime"`
	IsGovAssociated    bool               `json:"is_gov_associated"`
	InterestRate       string             `json:"interest_rate" binding:"omitempty,decimal"`
	CreditLimit        string             `json:"credit_limit" binding:"omitempty,decimal"`
	DueDate            *time.Time         `json:"due_date,omitempty"`
}

// UpdateAccountRequest represents the request payload for updating an account.
type UpdateAccountRequest struct {
	Name         *string    `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Description  *string    `json:"description,omitempty" binding:"omitempty,max=500"`
	IsActive     *bool      `json:"is_active,omitempty"`
	InterestRate *string    `json:"interest_rate,omitempty" binding:"omitempty,decimal"`
	CreditLimit  *string    `json:"credit_limit,omitempty" binding:"omitempty,decimal"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// accountResponse builds the JSON body for an account, adding the derived
// credit fields for credit accounts.
func accountResponse(account *models.Account) gin.H {
	body := gin.H{"account": account}
	if account.Type == models.AccountTypeCredit {
		body["available_credit"] = account.AvailableCredit()
		body["is_over_limit"] = account.IsOverLimit()
	}
	return body
}

// CreateAccount handles opening a new account of any variant.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	params := services.CreateAccountParams{
		Name:               req.Name,
		Type:               req.Type,
		CurrencyID:         req.CurrencyID,
		Description:        req.Description,
		IsTaxAdvantaged:    req.IsTaxAdvantaged,
		CanWithdrawAnytime: true,
		IsGovAssociated:    req.IsGovAssociated,
		DueDate:            req.DueDate,
	}
	if req.CanWithdrawAnytime != nil {
		params.CanWithdrawAnytime = *req.CanWithdrawAnytime
	}

	if req.InitialBalance != "" {
		if params.InitialBalance, err = parseDecimal(req.InitialBalance, "initial_balance"); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.InterestRate != "" {
		if params.InterestRate, err = parseDecimal(req.InterestRate, "interest_rate"); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if req.CreditLimit != "" {
		if params.CreditLimit, err = parseDecimal(req.CreditLimit, "credit_limit"); err != nil {
			respondWithError(c, err)
			return
		}
	}

	account, err := h.accountService.CreateAccount(userID, params)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, accountResponse(account))
}

// GetUserAccounts handles listing the authenticated user's accounts.
func (h *AccountHandler) GetUserAccounts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	accounts, err := h.accountService.GetUserAccounts(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, accounts)
}

// GetAccountByID handles retrieving a single account.
func (h *AccountHandler) GetAccountByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, accountResponse(account))
}

// UpdateAccount handles updating account metadata and variant fields.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fields := services.AccountUpdateFields{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		DueDate:     req.DueDate,
	}
	if req.InterestRate != nil {
		rate, err := parseDecimal(*req.InterestRate, "interest_rate")
		if err != nil {
			respondWithError(c, err)
			return
		}
		fields.InterestRate = &rate
	}
	if req.CreditLimit != nil {
		limit, err := parseDecimal(*req.CreditLimit, "credit_limit")
		if err != nil {
			respondWithError(c, err)
			return
		}
		fields.CreditLimit = &limit
	}

	account, err := h.accountService.UpdateAccount(userID, accountID, fields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, accountResponse(account))
}
