package catalog

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// monthlyPrice matches "$25/month", "$7.50 per user / mo", "from $1,200 per month"
var monthlyPrice = regexp.MustCompile(`(?i)\$\s*(\d[\d,]*(?:\.\d+)?)[^$]*?(?:/\s*|\bper\s+)mo(?:nth)?\b`)

// MonthlyCost reads a monthly price out of free-text pricing. The second
// return value is false when the text states neither a price nor "free".
func MonthlyCost(pricing string) (decimal.Decimal, bool) {
	if m := monthlyPrice.FindStringSubmatch(pricing); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			return d, true
		}
	}
	if strings.Contains(strings.ToLower(pricing), "free") {
		return decimal.Zero, true
	}
	return decimal.Decimal{}, false
}
