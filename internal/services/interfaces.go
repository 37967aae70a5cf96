package services

import (
	"time"

	"github.com/shopspring/decimal"

	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
)

// UserServicer handles user registration and authentication.
type UserServicer interface {
	Register(email, password, firstName, lastName string) (*models.User, error)
	Login(email, password string) (*models.User, error)
	GetUserByID(userID string) (*models.User, error)
}

// CreateAccountParams carries the fields accepted when opening an account.
// Variant-specific fields are ignored for variants they do not apply to.
type CreateAccountParams struct {
	Name               string
	Type               models.AccountType
	CurrencyID         string
	Description        string
	InitialBalance     decimal.Decimal
	IsTaxAdvantaged    bool
	CanWithdrawAnytime bool
	IsGovAssociated    bool
	InterestRate       decimal.Decimal
	CreditLimit        decimal.Decimal
	DueDate            *time.Time
}

// AccountUpdateFields carries optional account updates; nil means unchanged.
type AccountUpdateFields struct {
	Name         *string
	Description  *string
	IsActive     *bool
	InterestRate *decimal.Decimal
	CreditLimit  *decimal.Decimal
	DueDate      *time.Time
}

// AccountServicer handles account-related business logic.
type AccountServicer interface {
	CreateAccount(userID string, params CreateAccountParams) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
}

// ReferenceServicer manages the reference data stores: currencies, stock
// exchanges, stocks, and commodities. These are lookup records with no
// behavior beyond protect-on-delete for currencies.
type ReferenceServicer interface {
	CreateCurrency(code, name, symbol string) (*models.Currency, error)
	ListCurrencies() ([]models.Currency, error)
	DeleteCurrency(currencyID string) error

	CreateExchange(name, code, country, timezone string) (*models.StockExchange, error)
	ListExchanges() ([]models.StockExchange, error)

	CreateStock(symbol, name, exchangeID, currencyID string, unitPrice decimal.Decimal) (*models.Stock, error)
	ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error)
	GetStockByID(stockID string) (*models.Stock, error)

	CreateCommodity(symbol, name, unit, currencyID string, unitPrice decimal.Decimal) (*models.Commodity, error)
	ListCommodities() ([]models.Commodity, error)
}

// LedgerServicer is the ledger mutation core. Buy and Sell execute a trade
// order against a holding as one atomic unit: funds/shares validation, cash
// balance update, weighted-average recomputation, quantity update, and the
// append of an immutable trade record.
type LedgerServicer interface {
	OpenHolding(userID, accountID, stockID string) (*models.Holding, error)
	GetAccountHoldings(userID, accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error)
	GetHoldingByID(userID, holdingID string) (*models.Holding, error)
	Buy(userID, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error)
	Sell(userID, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error)
	GetHoldingTrades(userID, holdingID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error)
}
