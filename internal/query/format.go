package query

import (
	"strconv"
	"strings"
)

// money formats a value currency-style: thousands grouping plus exactly two
// decimal digits, e.g. 450000.5 -> $450,000.50.
func money(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := "$" + strings.Join(groups, ",") + frac
	if neg {
		out = "-" + out
	}
	return out
}

// formatValue renders monetary columns currency-style and everything else
// with two decimal places.
func formatValue(logical string, v float64) string {
	if logical == "price" {
		return money(v)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
