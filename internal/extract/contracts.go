package extract

import (
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
)

// FieldExtractor is Stage 2: acquired text -> consignee value.
type FieldExtractor interface {
	ExtractConsignee(text string, table *acquire.TableView) Outcome
}

// Outcome is the result of a consignee search over one entry's text.
type Outcome struct {
	Value  string
	Found  bool
	Method string // "line-successor" | "inline-capture" | "column"
}

// Absent is the zero outcome: nothing usable was found.
func Absent() Outcome {
	return Outcome{}
}
