package constants

import (
	"strings"
)

// Placeholder cell values that never count as an extracted consignee.
// Spreadsheet exports routinely fill empty cells with these.
var placeholders = map[string]struct{}{
	"":     {},
	"nan":  {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"null": {},
	"-":    {},
	"--":   {},
}

// IsPlaceholder reports whether a cell value carries no usable content.
func IsPlaceholder(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	_, ok := placeholders[normalized]
	return ok
}
