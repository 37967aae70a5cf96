package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/pagination"
	"tradefolio/internal/services"
)

// HoldingHandler handles holding and trade requests.
type HoldingHandler struct {
	ledgerService services.LedgerServicer
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(ledgerService services.LedgerServicer) *HoldingHandler {
	return &HoldingHandler{ledgerService: ledgerService}
}

// OpenHoldingRequest represents the request payload for opening a holding.
type OpenHoldingRequest struct {
	StockID string `json:"stock_id" binding:"required,uuid"`
}

// TradeRequest represents the request payload for a buy or sell order.
// Quantity and price travel as strings to avoid float rounding on the wire.
type TradeRequest struct {
	Quantity string `json:"quantity" binding:"required,positive_decimal"`
	Price    string `json:"price" binding:"required,decimal"`
}

// OpenHolding handles opening a zero-quantity holding in a brokerage account.
func (h *HoldingHandler) OpenHolding(c *gin.Context) {
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

	var req OpenHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	holding, err := h.ledgerService.OpenHolding(userID, accountID, req.StockID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"holding": holding})
}

// GetAccountHoldings handles listing holdings for an account.
func (h *HoldingHandler) GetAccountHoldings(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	holdings, err := h.ledgerService.GetAccountHoldings(userID, accountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, holdings)
}

// GetHoldingByID handles retrieving a single holding.
func (h *HoldingHandler) GetHoldingByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	holding, err := h.ledgerService.GetHoldingByID(userID, holdingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holding": holding})
}

// Buy handles executing a buy order against a holding.
func (h *HoldingHandler) Buy(c *gin.Context) {
	h.trade(c, true)
}

// Sell handles executing a sell order against a holding.
func (h *HoldingHandler) Sell(c *gin.Context) {
	h.trade(c, false)
}

func (h *HoldingHandler) trade(c *gin.Context, buy bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	quantity, err := parseDecimal(req.Quantity, "quantity")
	if err != nil {
		respondWithError(c, err)
		return
	}
	price, err := parseDecimal(req.Price, "price")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var trade interface{}
	if buy {
		trade, err = h.ledgerService.Buy(userID, holdingID, quantity, price)
	} else {
		trade, err = h.ledgerService.Sell(userID, holdingID, quantity, price)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}

// GetHoldingTrades handles listing the trades recorded against a holding in
// sequence order.
func (h *HoldingHandler) GetHoldingTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	trades, err := h.ledgerService.GetHoldingTrades(userID, holdingID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trades)
}
