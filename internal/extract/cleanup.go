package extract

import (
	"regexp"
	"strings"

	"github.com/Hk-V1/consignee-renamer/constants"
)

var (
	disallowedChars     = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
	innerWhitespace     = regexp.MustCompile(`\s+`)
)

// clean runs the capture through the cleanup chain. It reports false when the
// value is rejected (empty after cleaning, or over the inline length bound).
func (e *Extractor) clean(raw string) (string, bool) {
	value := raw

	// Truncate at the first secondary label so values that run into the next
	// field of the document are cut short.
	for _, re := range e.secondary {
		if loc := re.FindStringIndex(value); loc != nil {
			value = value[:loc[0]]
		}
	}

	value = disallowedChars.ReplaceAllString(value, "")
	value = strings.TrimSpace(value)

	switch e.mode {
	case constants.ModeInlineCapture:
		value = innerWhitespace.ReplaceAllString(value, " ")
		if value == "" || len(value) >= e.maxFieldLength {
			return "", false
		}
	default:
		value = strings.ReplaceAll(value, " ", "_")
		value = repeatedUnderscores.ReplaceAllString(value, "_")
		value = strings.Trim(value, "_")
		if value == "" {
			return "", false
		}
	}
	return value, true
}
