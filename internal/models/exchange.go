package models

// StockExchange represents a stock exchange reference record (e.g. NASDAQ).
// Pure lookup data with no behavior.
type StockExchange struct {
	Base
	Name     string `gorm:"not null;size:100" json:"name"`
	Code     string `gorm:"uniqueIndex;not null;size:10" json:"code"`
	Country  string `gorm:"size:50" json:"country"`
	Timezone string `gorm:"size:50" json:"timezone"`
}
