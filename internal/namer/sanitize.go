// Package namer turns extracted values into safe, unique file names.
package namer

import (
	"regexp"
	"strings"
)

// DefaultMaxNameLength caps sanitized base names.
const DefaultMaxNameLength = 50

// Characters that are reserved in file names on at least one platform.
var reservedChars = regexp.MustCompile(`[<>:"/\\|?*]`)

const trimCutset = ". \t\r\n"

// Sanitize makes a base name safe for cross-platform file systems: reserved
// characters are removed, spaces become underscores, leading and trailing
// dots and whitespace are trimmed, and the result is capped at maxLength
// runes. Sanitize of its own output is the identity.
func Sanitize(name string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxNameLength
	}

	s := reservedChars.ReplaceAllString(name, "")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.Trim(s, trimCutset)

	if runes := []rune(s); len(runes) > maxLength {
		s = string(runes[:maxLength])
		// The cap can expose a trailing dot that was inside the name.
		s = strings.Trim(s, trimCutset)
	}
	return s
}
