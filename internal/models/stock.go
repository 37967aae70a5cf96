package models

import "github.com/shopspring/decimal"

// Stock represents a listed stock reference record. UnitPrice is an
// informational reference quote; trades always carry their own price.
type Stock struct {
	Base
	Symbol     string          `gorm:"uniqueIndex;not null;size:10" json:"symbol"`
	Name       string          `gorm:"not null;size:100" json:"name"`
	ExchangeID string          `gorm:"type:uuid;not null" json:"exchange_id"`
	CurrencyID string          `gorm:"type:uuid;not null" json:"currency_id"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"unit_price"`

	Exchange StockExchange `gorm:"foreignKey:ExchangeID" json:"exchange,omitempty"`
	Currency Currency      `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
}
