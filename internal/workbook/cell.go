package workbook

import (
	"strconv"
	"strings"
)

// isSentinel reports whether a trimmed cell value is one of the tokens
// publishers use for "no data".
func isSentinel(v string) bool {
	switch strings.ToUpper(v) {
	case "", "N/A", "-":
		return true
	}
	return false
}

// CoerceNumber converts a raw cell value into an optional number. Empty
// cells, sentinel tokens, and unparseable text all coerce to nil; nothing
// here is a fault, unparseable input is data. Thousands separators and a
// trailing percent sign are stripped before parsing.
func CoerceNumber(raw string) *float64 {
	v := strings.TrimSpace(raw)
	if isSentinel(v) {
		return nil
	}
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSuffix(v, "%")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// CoerceInt converts a raw cell value into an optional integer, truncating
// any fractional part the publisher left behind.
func CoerceInt(raw string) *int {
	f := CoerceNumber(raw)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// CoerceString converts a raw cell value into an optional trimmed string.
// Sentinel tokens coerce to nil.
func CoerceString(raw string) *string {
	v := strings.TrimSpace(raw)
	if isSentinel(v) {
		return nil
	}
	return &v
}

// LeadingDigit extracts the first digit of a label such as "3 - Failing" or
// "Tier 2". Nil when the label carries no digit.
func LeadingDigit(raw string) *int {
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			n := int(r - '0')
			return &n
		}
	}
	return nil
}
