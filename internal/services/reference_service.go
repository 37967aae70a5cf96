package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
)

// referenceService manages currencies, exchanges, stocks, and commodities.
type referenceService struct {
	db *gorm.DB
}

// NewReferenceService creates a new ReferenceServicer.
func NewReferenceService(db *gorm.DB) ReferenceServicer {
	return &referenceService{db: db}
}

// CreateCurrency creates a currency reference record.
func (s *referenceService) CreateCurrency(code, name, symbol string) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency code and name are required")
	}

	var count int64
	if err := s.db.Model(&models.Currency{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSymbol
	}

	currency := &models.Currency{Code: code, Name: name, Symbol: symbol}
	if err := s.db.Create(currency).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return currency, nil
}

// ListCurrencies returns all currencies ordered by code.
func (s *referenceService) ListCurrencies() ([]models.Currency, error) {
	var currencies []models.Currency
	if err := s.db.Order("code").Find(&currencies).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return currencies, nil
}

// DeleteCurrency removes a currency unless accounts, stocks, or commodities
// still reference it (protect-on-delete).
func (s *referenceService) DeleteCurrency(currencyID string) error {
	var currency models.Currency
	if err := s.db.First(&currency, "id = ?", currencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCurrencyNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var refs int64
	if err := s.db.Model(&models.Account{}).Where("currency_id = ?", currencyID).Count(&refs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if refs == 0 {
		if err := s.db.Model(&models.Stock{}).Where("currency_id = ?", currencyID).Count(&refs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if refs == 0 {
		if err := s.db.Model(&models.Commodity{}).Where("currency_id = ?", currencyID).Count(&refs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if refs > 0 {
		return apperrors.ErrCurrencyInUse
	}

	if err := s.db.Delete(&currency).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// CreateExchange creates a stock exchange reference record.
func (s *referenceService) CreateExchange(name, code, country, timezone string) (*models.StockExchange, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange code and name are required")
	}

	var count int64
	if err := s.db.Model(&models.StockExchange{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSymbol
	}

	exchange := &models.StockExchange{Name: name, Code: code, Country: country, Timezone: timezone}
	if err := s.db.Create(exchange).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return exchange, nil
}

// ListExchanges returns all stock exchanges ordered by code.
func (s *referenceService) ListExchanges() ([]models.StockExchange, error) {
	var exchanges []models.StockExchange
	if err := s.db.Order("code").Find(&exchanges).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return exchanges, nil
}

// CreateStock creates a stock reference record. The unit price is an
// informational reference quote only.
func (s *referenceService) CreateStock(symbol, name, exchangeID, currencyID string, unitPrice decimal.Decimal) (*models.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "stock symbol and name are required")
	}
	if unitPrice.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unit price cannot be negative")
	}

	var exchange models.StockExchange
	if err := s.db.First(&exchange, "id = ?", exchangeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExchangeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var currency models.Currency
	if err := s.db.First(&currency, "id = ?", currencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCurrencyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.Stock{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSymbol
	}

	stock := &models.Stock{
		Symbol:     symbol,
		Name:       name,
		ExchangeID: exchange.ID,
		CurrencyID: currency.ID,
		UnitPrice:  unitPrice.Round(4),
	}
	if err := s.db.Create(stock).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stock.Exchange = exchange
	stock.Currency = currency
	return stock, nil
}

// ListStocks returns a paginated list of stocks ordered by symbol.
func (s *referenceService) ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.Stock{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stocks []models.Stock
	if err := s.db.Preload("Exchange").Preload("Currency").
		Order("symbol").Scopes(pagination.Paginate(page)).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(stocks, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetStockByID retrieves a stock by ID.
func (s *referenceService) GetStockByID(stockID string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Preload("Exchange").Preload("Currency").First(&stock, "id = ?", stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

// CreateCommodity creates a commodity reference record.
func (s *referenceService) CreateCommodity(symbol, name, unit, currencyID string, unitPrice decimal.Decimal) (*models.Commodity, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "commodity symbol and name are required")
	}

	var currency models.Currency
	if err := s.db.First(&currency, "id = ?", currencyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCurrencyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.Commodity{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateSymbol
	}

	commodity := &models.Commodity{
		Symbol:     symbol,
		Name:       name,
		Unit:       unit,
		CurrencyID: currency.ID,
		UnitPrice:  unitPrice.Round(4),
	}
	if err := s.db.Create(commodity).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	commodity.Currency = currency
	return commodity, nil
}

// ListCommodities returns all commodities ordered by symbol.
func (s *referenceService) ListCommodities() ([]models.Commodity, error) {
	var commodities []models.Commodity
	if err := s.db.Preload("Currency").Order("symbol").Find(&commodities).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return commodities, nil
}
