package models

import "github.com/shopspring/decimal"

// Commodity represents a tradeable commodity reference record (e.g. gold).
// UnitPrice is informational only; it is never used to price trades.
type Commodity struct {
	Base
	Symbol     string          `gorm:"uniqueIndex;not null;size:10" json:"symbol"`
	Name       string          `gorm:"not null;size:100" json:"name"`
	Unit       string          `gorm:"size:20" json:"unit"`
	CurrencyID string          `gorm:"type:uuid;not null" json:"currency_id"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"unit_price"`

	Currency Currency `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`
}
