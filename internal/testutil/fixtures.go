package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"tradefolio/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCurrency creates a currency with a unique code.
func CreateTestCurrency(t *testing.T, db *gorm.DB) *models.Currency {
	t.Helper()

	currency := &models.Currency{
		Code:   fmt.Sprintf("C%02d", nextID()%100),
		Name:   "Test Dollar",
		Symbol: "$",
	}
	if err := db.Create(currency).Error; err != nil {
		t.Fatalf("failed to create test currency: %v", err)
	}
	return currency
}

// CreateTestExchange creates a stock exchange with a unique code.
func CreateTestExchange(t *testing.T, db *gorm.DB) *models.StockExchange {
	t.Helper()

	exchange := &models.StockExchange{
		Name:     fmt.Sprintf("Test Exchange %d", nextID()),
		Code:     fmt.Sprintf("X%02d", nextID()%100),
		Country:  "US",
		Timezone: "America/New_York",
	}
	if err := db.Create(exchange).Error; err != nil {
		t.Fatalf("failed to create test exchange: %v", err)
	}
	return exchange
}

// CreateTestStock creates a stock with a unique symbol.
func CreateTestStock(t *testing.T, db *gorm.DB, exchangeID, currencyID string) *models.Stock {
	t.Helper()

	stock := &models.Stock{
		Symbol:     fmt.Sprintf("TST%d", nextID()),
		Name:       "Test Stock",
		ExchangeID: exchangeID,
		CurrencyID: currencyID,
		UnitPrice:  decimal.NewFromInt(100),
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// CreateTestBrokerageAccount creates a brokerage account with the given cash balance.
func CreateTestBrokerageAccount(t *testing.T, db *gorm.DB, userID, currencyID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:     userID,
		Name:       fmt.Sprintf("Test Brokerage %d", nextID()),
		Type:       models.AccountTypeBrokerage,
		CurrencyID: currencyID,
		Balance:    balance,
		IsActive:   true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test brokerage account: %v", err)
	}
	return account
}

// CreateTestCreditAccount creates a credit account with the given owed balance and limit.
func CreateTestCreditAccount(t *testing.T, db *gorm.DB, userID, currencyID string, balance, creditLimit decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Credit Card %d", nextID()),
		Type:        models.AccountTypeCredit,
		CurrencyID:  currencyID,
		Balance:     balance,
		CreditLimit: creditLimit,
		IsActive:    true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test credit account: %v", err)
	}
	return account
}

// CreateTestHolding creates a holding with the given quantity and average price.
func CreateTestHolding(t *testing.T, db *gorm.DB, accountID, stockID string, quantity, averagePrice decimal.Decimal) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		AccountID:    accountID,
		StockID:      stockID,
		Quantity:     quantity,
		AveragePrice: averagePrice,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// TradingFixture bundles the records needed to exercise the ledger.
type TradingFixture struct {
	User    *models.User
	Account *models.Account
	Stock   *models.Stock
	Holding *models.Holding
}

// CreateTradingFixture creates a user, brokerage account with the given cash
// balance, stock, and zero-quantity holding.
func CreateTradingFixture(t *testing.T, db *gorm.DB, balance decimal.Decimal) *TradingFixture {
	t.Helper()

	user := CreateTestUser(t, db)
	currency := CreateTestCurrency(t, db)
	exchange := CreateTestExchange(t, db)
	stock := CreateTestStock(t, db, exchange.ID, currency.ID)
	account := CreateTestBrokerageAccount(t, db, user.ID, currency.ID, balance)
	holding := CreateTestHolding(t, db, account.ID, stock.ID, decimal.Zero, decimal.Zero)

	return &TradingFixture{User: user, Account: account, Stock: stock, Holding: holding}
}
