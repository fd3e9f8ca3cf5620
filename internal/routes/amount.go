package routes

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a human-readable decimal price ("10", "0.25") into
// an integer amount of the token's smallest unit, given the token's
// decimals. Trailing fractional zeros are ignored; any other digit beyond
// the precision is an error, as are negative and non-numeric prices.
func ToMinorUnits(price string, decimals int) (string, error) {
	s := strings.TrimSpace(price)
	if s == "" {
		return "", fmt.Errorf("price is empty")
	}
	if decimals < 0 {
		return "", fmt.Errorf("negative token decimals %d", decimals)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("price %q is not a decimal number", s)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("price %q is negative", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("price %q has more than %d decimal places", s, decimals)
	}
	return scaled.BigInt().String(), nil
}
