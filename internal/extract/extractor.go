package extract

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/rules"
)

// inlineCaptureSuffix extends the label pattern to capture the value that
// follows it, allowing an optional separator and line break.
const inlineCaptureSuffix = `\s*[:\-]?\s*\n?\s*([^\n\r]+)`

// Extractor locates the consignee value in acquired text.
type Extractor struct {
	mode           constants.ExtractionMode
	label          *regexp.Regexp
	inline         *regexp.Regexp
	secondary      []*regexp.Regexp
	maxFieldLength int
	logger         *zap.Logger
}

func New(r rules.Rules, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	label, err := regexp.Compile(r.LabelPattern)
	if err != nil {
		return nil, fmt.Errorf("compile label pattern: %w", err)
	}
	inline, err := regexp.Compile(r.LabelPattern + inlineCaptureSuffix)
	if err != nil {
		return nil, fmt.Errorf("compile inline pattern: %w", err)
	}
	secondary := make([]*regexp.Regexp, 0, len(r.SecondaryLabels))
	for _, s := range r.SecondaryLabels {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("compile secondary label %q: %w", s, err)
		}
		secondary = append(secondary, re)
	}

	return &Extractor{
		mode:           r.Mode,
		label:          label,
		inline:         inline,
		secondary:      secondary,
		maxFieldLength: r.MaxFieldLength,
		logger:         logger,
	}, nil
}

// ExtractConsignee searches text with the configured mode, then falls back to
// the column heuristic when a tabular view is available.
func (e *Extractor) ExtractConsignee(text string, table *acquire.TableView) Outcome {
	var out Outcome
	switch e.mode {
	case constants.ModeInlineCapture:
		out = e.inlineCapture(text)
	default:
		out = e.lineSuccessor(text)
	}
	if out.Found {
		return out
	}
	if table != nil {
		if col := e.fromTable(table); col.Found {
			return col
		}
	}
	return Absent()
}

// lineSuccessor finds the first line matching the label and returns the first
// non-empty line after it, run through the cleanup chain.
func (e *Extractor) lineSuccessor(text string) Outcome {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !e.label.MatchString(line) {
			continue
		}
		for _, next := range lines[i+1:] {
			candidate := strings.TrimSpace(next)
			if candidate == "" {
				continue
			}
			value, ok := e.clean(candidate)
			if !ok {
				return Absent()
			}
			return Outcome{Value: value, Found: true, Method: string(constants.ModeLineSuccessor)}
		}
		return Absent()
	}
	return Absent()
}

// inlineCapture matches the label and value in one pass over the whole text.
func (e *Extractor) inlineCapture(text string) Outcome {
	m := e.inline.FindStringSubmatch(text)
	if len(m) < 2 {
		return Absent()
	}
	value, ok := e.clean(m[len(m)-1])
	if !ok {
		return Absent()
	}
	return Outcome{Value: value, Found: true, Method: string(constants.ModeInlineCapture)}
}
