package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
	"tradefolio/internal/store"
)

// Decimal scales for ledger arithmetic: cash amounts and prices carry four
// decimal places, share quantities eight (fractional shares are allowed).
const (
	moneyScale    = 4
	quantityScale = 8
)

// maxTradeAttempts bounds the retry loop on optimistic-concurrency
// conflicts before the conflict is surfaced to the caller.
const maxTradeAttempts = 3

// ledgerService is the ledger mutation core. It owns the buy/sell state
// machine over holdings and cash balances and appends one immutable trade
// record per executed order. All persistence goes through the store
// collaborator so that each trade commits as a single atomic unit.
type ledgerService struct {
	db             *gorm.DB
	store          store.Store
	accountService AccountServicer
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, accountService AccountServicer) LedgerServicer {
	return &ledgerService{db: db, store: store.New(db), accountService: accountService}
}

// OpenHolding creates a zero-quantity holding for an (account, stock) pair.
// The account must belong to the user and be a brokerage or TFSA account.
func (s *ledgerService) OpenHolding(userID, accountID, stockID string) (*models.Holding, error) {
	account, err := s.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsBrokerage() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Account cannot hold stock positions")
	}

	var stock models.Stock
	if err := s.db.First(&stock, "id = ?", stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if _, err := s.store.GetHoldingByAccountStock(accountID, stockID); err == nil {
		return nil, apperrors.ErrDuplicateHolding
	} else if !errors.Is(err, apperrors.ErrHoldingNotFound) {
		return nil, err
	}

	holding := &models.Holding{
		AccountID:    accountID,
		StockID:      stockID,
		Quantity:     decimal.Zero,
		AveragePrice: decimal.Zero,
	}
	if err := s.db.Create(holding).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holding.Stock = stock
	return holding, nil
}

// GetAccountHoldings returns a paginated list of holdings for an account.
func (s *ledgerService) GetAccountHoldings(userID, accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Holding], error) {
	if _, err := s.accountService.GetAccountByID(userID, accountID); err != nil {
		return nil, err
	}

	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.Holding{}).Where("account_id = ?", accountID).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var holdings []models.Holding
	if err := s.db.Preload("Stock").Where("account_id = ?", accountID).
		Scopes(pagination.Paginate(page)).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(holdings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetHoldingByID returns a holding if the parent account belongs to the user.
func (s *ledgerService) GetHoldingByID(userID, holdingID string) (*models.Holding, error) {
	var holding models.Holding
	if err := s.db.Preload("Account").Preload("Stock").First(&holding, "id = ?", holdingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHoldingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Hide other users' holdings rather than revealing their existence
	if holding.Account.UserID != userID {
		return nil, apperrors.ErrHoldingNotFound
	}

	return &holding, nil
}

// Buy executes a buy order against a holding: it validates available funds,
// debits the account's cash balance, recomputes the weighted-average cost
// basis, increases the share quantity, and appends a BUY trade — all inside
// one store transaction. Insufficient funds leave every record untouched.
func (s *ledgerService) Buy(userID, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error) {
	if !quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	// Zero-price buys are permitted (stock grants)
	if price.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price cannot be negative")
	}
	if _, err := s.GetHoldingByID(userID, holdingID); err != nil {
		return nil, err
	}

	quantity = quantity.Round(quantityScale)
	price = price.Round(moneyScale)

	return s.executeWithRetry(func(tx store.Store) (*models.Trade, error) {
		return s.executeBuy(tx, holdingID, quantity, price)
	})
}

func (s *ledgerService) executeBuy(tx store.Store, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error) {
	holding, err := tx.GetHolding(holdingID)
	if err != nil {
		return nil, err
	}
	account, err := tx.GetAccount(holding.AccountID)
	if err != nil {
		return nil, err
	}

	totalCost := quantity.Mul(price).Round(moneyScale)
	if account.Balance.LessThan(totalCost) {
		return nil, apperrors.ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(totalCost)
	if err := tx.SaveAccount(account); err != nil {
		return nil, err
	}

	// Weighted mean of all historical buy costs. The denominator can only
	// be zero if both quantities were non-positive, which the preconditions
	// forbid; the guard keeps the previous average instead of dividing.
	newQuantity := holding.Quantity.Add(quantity)
	if newQuantity.IsPositive() {
		holding.AveragePrice = holding.Quantity.Mul(holding.AveragePrice).
			Add(totalCost).
			DivRound(newQuantity, moneyScale)
	}
	holding.Quantity = newQuantity
	if err := tx.SaveHolding(holding); err != nil {
		return nil, err
	}

	return s.appendTrade(tx, holding.ID, models.TradeSideBuy, quantity, price)
}

// Sell executes a sell order against a holding: it validates available
// shares, decreases the quantity, credits the proceeds to the account's cash
// balance, and appends a SELL trade — all inside one store transaction. The
// average price is never touched by a sell; when the quantity reaches zero
// it keeps its last value. Insufficient shares leave every record untouched.
func (s *ledgerService) Sell(userID, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error) {
	if !quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if price.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price cannot be negative")
	}
	if _, err := s.GetHoldingByID(userID, holdingID); err != nil {
		return nil, err
	}

	quantity = quantity.Round(quantityScale)
	price = price.Round(moneyScale)

	return s.executeWithRetry(func(tx store.Store) (*models.Trade, error) {
		return s.executeSell(tx, holdingID, quantity, price)
	})
}

func (s *ledgerService) executeSell(tx store.Store, holdingID string, quantity, price decimal.Decimal) (*models.Trade, error) {
	holding, err := tx.GetHolding(holdingID)
	if err != nil {
		return nil, err
	}
	account, err := tx.GetAccount(holding.AccountID)
	if err != nil {
		return nil, err
	}

	if holding.Quantity.LessThan(quantity) {
		return nil, apperrors.ErrInsufficientShares
	}

	holding.Quantity = holding.Quantity.Sub(quantity)
	if err := tx.SaveHolding(holding); err != nil {
		return nil, err
	}

	totalProceeds := quantity.Mul(price).Round(moneyScale)
	account.Balance = account.Balance.Add(totalProceeds)
	if err := tx.SaveAccount(account); err != nil {
		return nil, err
	}

	return s.appendTrade(tx, holding.ID, models.TradeSideSell, quantity, price)
}

func (s *ledgerService) appendTrade(tx store.Store, holdingID string, side models.TradeSide, quantity, price decimal.Decimal) (*models.Trade, error) {
	seq, err := tx.NextTradeSequence(holdingID)
	if err != nil {
		return nil, err
	}
	trade := &models.Trade{
		HoldingID:  holdingID,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Sequence:   seq,
		ExecutedAt: time.Now(),
	}
	if err := tx.AppendTrade(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// executeWithRetry runs fn inside a store transaction, retrying a bounded
// number of times when an optimistic-concurrency conflict rolls it back.
// Conflicts past the last attempt surface as ErrConcurrencyConflict, which
// callers may retry themselves.
func (s *ledgerService) executeWithRetry(fn func(store.Store) (*models.Trade, error)) (*models.Trade, error) {
	var trade *models.Trade
	var err error
	for attempt := 0; attempt < maxTradeAttempts; attempt++ {
		err = s.store.WithTransaction(func(tx store.Store) error {
			var txErr error
			trade, txErr = fn(tx)
			return txErr
		})
		if !errors.Is(err, apperrors.ErrConcurrencyConflict) {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// GetHoldingTrades returns a paginated list of trades for a holding in
// sequence order, oldest first, so callers can replay them.
func (s *ledgerService) GetHoldingTrades(userID, holdingID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error) {
	if _, err := s.GetHoldingByID(userID, holdingID); err != nil {
		return nil, err
	}

	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Trade{}).Where("holding_id = ?", holdingID)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trades []models.Trade
	if err := base.Order("sequence ASC").Scopes(pagination.Paginate(page)).Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trades, page.Page, page.PageSize, totalItems)
	return &result, nil
}
