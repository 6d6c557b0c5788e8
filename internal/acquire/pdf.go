package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// acquirePDF reads the leading pages of a PDF. A page that fails to decode
// contributes an empty segment; only an unopenable document is an error.
func (a *Acquirer) acquirePDF(ctx context.Context, path string) (AcquisitionResult, error) {
	res := AcquisitionResult{SourceType: constants.TypePDF, Method: "pdf-pages"}

	f, r, err := pdf.Open(path)
	if err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	limit := total
	if limit > a.cfg.MaxPDFPages {
		limit = a.cfg.MaxPDFPages
	}

	segments := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		segments = append(segments, a.pageText(r, i, path))
	}

	res.Text = strings.Join(segments, "\n")
	res.Pages = limit
	return res, nil
}

func (a *Acquirer) pageText(r *pdf.Reader, num int, path string) string {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Warn("pdf page decode panicked",
				zap.String("path", path), zap.Int("page", num), zap.Any("panic", rec))
		}
	}()

	page := r.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		a.logger.Warn("pdf page decode failed",
			zap.String("path", path), zap.Int("page", num), zap.Error(err))
		return ""
	}
	return text
}
