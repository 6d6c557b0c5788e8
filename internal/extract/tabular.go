package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
)

// Header fragments that mark a consignee column.
var columnMarkers = []string{"consignee", "ship to"}

// fromTable applies the column heuristic: find a column whose header names the
// consignee and take its first usable value. Values from columns skip the
// cleanup chain; sanitization happens later regardless.
func (e *Extractor) fromTable(table *acquire.TableView) Outcome {
	for idx, header := range table.Headers {
		if !headerMatches(header) {
			continue
		}
		for _, value := range table.Column(idx) {
			v := strings.TrimSpace(value)
			if constants.IsPlaceholder(v) {
				continue
			}
			e.logger.Debug("consignee from column",
				zap.String("header", header), zap.Int("column", idx))
			return Outcome{Value: v, Found: true, Method: "column"}
		}
	}
	return Absent()
}

func headerMatches(header string) bool {
	h := strings.ToLower(header)
	for _, marker := range columnMarkers {
		if strings.Contains(h, marker) {
			return true
		}
	}
	return false
}
