package paymob

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

func parseDecimal(n json.Number, field string) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero, &ValidationError{Field: field, Message: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Message: "is not a number"}
	}
	return d, nil
}

func isWhole(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// ParseCents converts a decimal amount in major units ("10.5", "3", "1e1") into
// integer minor units. Amounts finer than one cent are rejected rather than rounded.
func ParseCents(n json.Number, field string) (int64, error) {
	d, err := parseDecimal(n, field)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, &ValidationError{Field: field, Message: "must not be negative"}
	}
	cents := d.Mul(hundred)
	if !isWhole(cents) {
		return 0, &ValidationError{Field: field, Message: "has more than two decimal places"}
	}
	if cents.GreaterThan(maxCents) {
		return 0, &ValidationError{Field: field, Message: "is too large"}
	}
	return cents.IntPart(), nil
}

// ParseMinorUnits reads an amount that is already expressed in cents.
func ParseMinorUnits(n json.Number, field string) (int64, error) {
	d, err := parseDecimal(n, field)
	if err != nil {
		return 0, err
	}
	if !isWhole(d) || d.GreaterThan(maxCents) {
		return 0, &ValidationError{Field: field, Message: "must be a whole number of cents"}
	}
	if !d.IsPositive() {
		return 0, &ValidationError{Field: field, Message: "must be positive"}
	}
	return d.IntPart(), nil
}

// lineTotal adds cents times quantity to total, failing once the sum no longer
// fits in int64.
func lineTotal(total decimal.Decimal, cents, quantity int64) (decimal.Decimal, bool) {
	sum := total.Add(decimal.NewFromInt(cents).Mul(decimal.NewFromInt(quantity)))
	return sum, !sum.GreaterThan(maxCents)
}
