package models

// Currency represents a currency reference record (e.g. USD, CAD, BTC).
// Currencies are lookup data: accounts and stocks reference them by code,
// and a currency may not be deleted while referenced.
type Currency struct {
	Base
	Code   string `gorm:"uniqueIndex;not null;size:10" json:"code"`
	Name   string `gorm:"not null;size:50" json:"name"`
	Symbol string `gorm:"size:5" json:"symbol"`
}
