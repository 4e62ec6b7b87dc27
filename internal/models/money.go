package models

import "github.com/shopspring/decimal"

// minorUnitExp converts stored minor units into major units for display
const minorUnitExp = -2

// FormatMinor renders a minor-unit amount as a major-unit string, e.g. 1250 -> "12.50"
func FormatMinor(amount int64) string {
	return decimal.New(amount, minorUnitExp).StringFixed(2)
}
