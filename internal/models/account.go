package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking  AccountType = "checking"
	AccountTypeSavings   AccountType = "savings"
	AccountTypeCredit    AccountType = "credit"
	AccountTypeBrokerage AccountType = "brokerage"
	AccountTypeTFSA      AccountType = "tfsa"
)

// Account represents a financial account in the system. A single struct
// carries all variants; type-specific fields are only populated for the
// matching variant. For credit accounts Balance is the amount owed; for
// every other variant it is owned cash.
type Account struct {
	Base
	UserID             string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name               string          `gorm:"not null" json:"name"`
	Type               AccountType     `gorm:"not null" json:"type"`
	CurrencyID         string          `gorm:"type:uuid;not null" json:"currency_id"`
	Description        string          `json:"description"`
	Balance            decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"balance"`
	IsTaxAdvantaged    bool            `gorm:"default:false" json:"is_tax_advantaged"`
	CanWithdrawAnytime bool            `gorm:"default:true" json:"can_withdraw_anytime"`
	IsGovAssociated    bool            `gorm:"default:false" json:"is_gov_associated"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	Version            int64           `gorm:"not null;default:0" json:"-"`

	// For savings and credit accounts
	InterestRate decimal.Decimal `gorm:"type:numeric(7,6);not null;default:0" json:"interest_rate,omitempty"`

	// For credit accounts
	CreditLimit decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"credit_limit,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`

	// Relationships
	Currency Currency  `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
	Holdings []Holding `gorm:"foreignKey:AccountID" json:"holdings,omitempty"`
}

// BeforeCreate hook normalizes variant-specific fields. TFSA accounts are a
// brokerage specialization: tax-advantaged, government-registered, and
// withdrawal-restricted by default.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if err := a.Base.BeforeCreate(tx); err != nil {
		return err
	}

	switch a.Type {
	case AccountTypeChecking, AccountTypeBrokerage:
		a.InterestRate = decimal.Zero
		a.CreditLimit = decimal.Zero
		a.DueDate = nil
	case AccountTypeSavings:
		a.CreditLimit = decimal.Zero
		a.DueDate = nil
	case AccountTypeTFSA:
		a.InterestRate = decimal.Zero
		a.CreditLimit = decimal.Zero
		a.DueDate = nil
		a.IsTaxAdvantaged = true
		a.IsGovAssociated = true
		a.CanWithdrawAnytime = false
	}
	return nil
}

// IsBrokerage reports whether the account can hold stock positions.
func (a *Account) IsBrokerage() bool {
	return a.Type == AccountTypeBrokerage || a.Type == AccountTypeTFSA
}

// AvailableCredit returns credit_limit - balance for credit accounts.
// The result is negative when the account is over its limit.
func (a *Account) AvailableCredit() decimal.Decimal {
	return a.CreditLimit.Sub(a.Balance)
}

// IsOverLimit reports whether the owed balance exceeds the credit limit.
// Advisory only: nothing in the ledger blocks charges past the limit.
func (a *Account) IsOverLimit() bool {
	return a.Balance.GreaterThan(a.CreditLimit)
}
