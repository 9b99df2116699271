package services

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRegexp accepts an optional currency symbol, a whole amount with
// optional well-formed thousands separators, an optional fraction and unit
// text that does not continue the number ("/mo", " per month", "+").
var priceRegexp = regexp.MustCompile(`(?s)^\s*[$€£]?\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?(?:$|[^\d,.].*$)`)

// ParsePrice extracts the monthly rent from a listing's price text.
// Examples:
//
//	"$2,450/mo" → 2450
//	"2450"      → 2450
//	"$2,450.99" → 2450 (fraction truncated)
//	"N/A"       → fails
func ParsePrice(raw string) (int, bool) {
	m := priceRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
