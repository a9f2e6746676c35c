// Package budget computes the periodic due amount of budget (stipend funded) payers.
package budget

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

var hundred = decimal.NewFromInt(100)

// Due returns round(stipend * percent) / 100, rounding half up on the product.
// ok is false (the "unavailable" result) when an input is missing, not numeric, or not strictly positive.
func Due(stipend, percent interface{}) (due decimal.Decimal, ok bool) {
	s, ok := toDecimal(stipend)
	if !ok || !s.IsPositive() {
		return decimal.Zero, false
	}
	p, ok := toDecimal(percent)
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return s.Mul(p).Round(0).Div(hundred), true
}

// NullDue is Due as a decimal.NullDecimal, invalid when unavailable.
func NullDue(stipend, percent interface{}) decimal.NullDecimal {
	due, ok := Due(stipend, percent)
	return decimal.NullDecimal{Decimal: due, Valid: ok}
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case string:
		return parse(n)
	case null.String:
		if !n.Valid {
			return decimal.Zero, false
		}
		return parse(n.String)
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return toDecimal(float64(n))
	}
	return decimal.Zero, false
}

func parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
