package models

import (
	"time"

	"tradefolio/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeSide represents the direction of a trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is the append-only record of one executed buy or sell against a
// holding. It carries the quantity and price supplied by the caller, not the
// holding's running totals. Trades are immutable audit data — no Base embed,
// no soft deletes, never updated. Sequence increases monotonically per
// holding so the holding's state can be reconstructed by replaying its
// trades in order.
type Trade struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	HoldingID  string          `gorm:"type:uuid;not null;uniqueIndex:uq_trades_holding_seq" json:"holding_id"`
	Side       TradeSide       `gorm:"not null" json:"side"`
	Quantity   decimal.Decimal `gorm:"type:numeric(28,8);not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	Sequence   int64           `gorm:"not null;uniqueIndex:uq_trades_holding_seq" json:"sequence"`
	ExecutedAt time.Time       `gorm:"not null" json:"executed_at"`

	Holding Holding `gorm:"foreignKey:HoldingID" json:"holding,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}
