// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tradefolio/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("trade_side", validateTradeSide)
		_ = v.RegisterValidation("decimal", validateDecimal)
		_ = v.RegisterValidation("positive_decimal", validatePositiveDecimal)
	}
}

// validateAccountType checks for a supported account variant.
func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCredit,
		models.AccountTypeBrokerage, models.AccountTypeTFSA:
		return true
	}
	return false
}

// validateTradeSide checks for BUY or SELL.
func validateTradeSide(fl validator.FieldLevel) bool {
	switch models.TradeSide(fl.Field().String()) {
	case models.TradeSideBuy, models.TradeSideSell:
		return true
	}
	return false
}

// validateDecimal checks that a string field parses as a decimal number.
// Monetary values travel as strings on the wire to avoid float rounding.
func validateDecimal(fl validator.FieldLevel) bool {
	_, err := decimal.NewFromString(fl.Field().String())
	return err == nil
}

// validatePositiveDecimal checks that a string field parses as a decimal
// greater than zero.
func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	return err == nil && d.IsPositive()
}
