package models

import "github.com/shopspring/decimal"

// Holding represents the position of one stock within one account, unique
// per (account, stock) pair. Quantity uses scale 8 so fractional shares are
// representable; AveragePrice is the weighted mean purchase price and is
// meaningful only while Quantity is positive. Sells never change it.
//
// Holdings are mutated exclusively through the ledger service's Buy/Sell and
// are never deleted by it. Version supports optimistic concurrency: a save
// only applies when the stored version still matches.
type Holding struct {
	Base
	AccountID    string          `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_account_stock" json:"account_id"`
	StockID      string          `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_account_stock" json:"stock_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(28,8);not null;default:0" json:"quantity"`
	AveragePrice decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"average_price"`
	Version      int64           `gorm:"not null;default:0" json:"-"`

	// Relationships
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Stock   Stock   `gorm:"foreignKey:StockID" json:"stock,omitempty"`
	Trades  []Trade `gorm:"foreignKey:HoldingID" json:"trades,omitempty"`
}
