package acquire

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// acquireText reads a plain-text file. Byte sequences that are not valid
// UTF-8 become replacement runes rather than failing the read.
func (a *Acquirer) acquireText(ctx context.Context, path string) (AcquisitionResult, error) {
	res := AcquisitionResult{SourceType: constants.TypeText, Method: "text-decode"}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read text file: %w", err)
	}

	if utf8.Valid(data) {
		res.Text = string(data)
		return res, nil
	}

	decoded, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return res, fmt.Errorf("decode text file: %w", err)
	}
	res.Text = string(decoded)
	res.Warnings = append(res.Warnings, "invalid utf-8 replaced")
	return res, nil
}
