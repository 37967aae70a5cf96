package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/pagination"
	"tradefolio/internal/services"
)

// ReferenceHandler handles reference data requests: currencies, exchanges,
// stocks, and commodities.
type ReferenceHandler struct {
	referenceService services.ReferenceServicer
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(referenceService services.ReferenceServicer) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService}
}

// CreateCurrencyRequest represents the request payload for creating a currency.
type CreateCurrencyRequest struct {
	Code   string `json:"code" binding:"required,min=2,max=10"`
	Name   string `json:"name" binding:"required,min=1,max=50"`
	Symbol string `json:"symbol" binding:"max=5"`
}

// CreateExchangeRequest represents the request payload for creating an exchange.
type CreateExchangeRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Code     string `json:"code" binding:"required,min=2,max=10"`
	Country  string `json:"country" binding:"max=50"`
	Timezone string `json:"timezone" binding:"max=50"`
}

// CreateStockRequest represents the request payload for creating a stock.
type CreateStockRequest struct {
	Symbol     string `json:"symbol" binding:"required,min=1,max=10"`
	Name       string `json:"name" binding:"required,min=1,max=100"`
	ExchangeID string `json:"exchange_id" binding:"required,uuid"`
	CurrencyID string `json:"currency_id" binding:"required,uuid"`
	UnitPrice  string `json:"unit_price" binding:"omitempty,decimal"`
}

// CreateCommodityRequest represents the request payload for creating a commodity.
type CreateCommodityRequest struct {
	Symbol     string `json:"symbol" binding:"required,min=1,max=10"`
	Name       string `json:"name" binding:"required,min=1,max=100"`
	Unit       string `json:"unit" binding:"max=20"`
	CurrencyID string `json:"currency_id" binding:"required,uuid"`
	UnitPrice  string `json:"unit_price" binding:"omitempty,decimal"`
}

// CreateCurrency handles creating a currency reference record.
func (h *ReferenceHandler) CreateCurrency(c *gin.Context) {
	var req CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	currency, err := h.referenceService.CreateCurrency(req.Code, req.Name, req.Symbol)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"currency": currency})
}

// ListCurrencies handles listing all currencies.
func (h *ReferenceHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.referenceService.ListCurrencies()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

// DeleteCurrency handles deleting a currency. Currencies still referenced by
// accounts, stocks, or commodities are protected and return a conflict.
func (h *ReferenceHandler) DeleteCurrency(c *gin.Context) {
	currencyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.referenceService.DeleteCurrency(currencyID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateExchange handles creating a stock exchange reference record.
func (h *ReferenceHandler) CreateExchange(c *gin.Context) {
	var req CreateExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	exchange, err := h.referenceService.CreateExchange(req.Name, req.Code, req.Country, req.Timezone)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"exchange": exchange})
}

// ListExchanges handles listing all stock exchanges.
func (h *ReferenceHandler) ListExchanges(c *gin.Context) {
	exchanges, err := h.referenceService.ListExchanges()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exchanges": exchanges})
}

// CreateStock handles creating a stock reference record.
func (h *ReferenceHandler) CreateStock(c *gin.Context) {
	var req CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	unitPrice := decimal.Zero
	if req.UnitPrice != "" {
		var err error
		if unitPrice, err = parseDecimal(req.UnitPrice, "unit_price"); err != nil {
			respondWithError(c, err)
			return
		}
	}

	stock, err := h.referenceService.CreateStock(req.Symbol, req.Name, req.ExchangeID, req.CurrencyID, unitPrice)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stock": stock})
}

// ListStocks handles listing stocks with pagination.
func (h *ReferenceHandler) ListStocks(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stocks, err := h.referenceService.ListStocks(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stocks)
}

// GetStockByID handles retrieving a single stock.
func (h *ReferenceHandler) GetStockByID(c *gin.Context) {
	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stock, err := h.referenceService.GetStockByID(stockID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// CreateCommodity handles creating a commodity reference record.
func (h *ReferenceHandler) CreateCommodity(c *gin.Context) {
	var req CreateCommodityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	unitPrice := decimal.Zero
	if req.UnitPrice != "" {
		var err error
		if unitPrice, err = parseDecimal(req.UnitPrice, "unit_price"); err != nil {
			respondWithError(c, err)
			return
		}
	}

	commodity, err := h.referenceService.CreateCommodity(req.Symbol, req.Name, req.Unit, req.CurrencyID, unitPrice)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"commodity": commodity})
}

// ListCommodities handles listing all commodities.
func (h *ReferenceHandler) ListCommodities(c *gin.Context) {
	commodities, err := h.referenceService.ListCommodities()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"commodities": commodities})
}
