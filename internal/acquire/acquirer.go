package acquire

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
)

type Config struct {
	MaxPDFPages int // leading pages read from a PDF, default 3

	// Capability flags. Zero values mean the capability is on; a disabled
	// capability yields empty text with a warning instead of an error.
	DisablePDF         bool
	DisableSpreadsheet bool
	DisableText        bool
}

// Capabilities reports which source types acquisition can read.
type Capabilities struct {
	PDF         bool `json:"pdf"`
	Spreadsheet bool `json:"spreadsheet"`
	Text        bool `json:"text"`
}

type Acquirer struct {
	cfg    Config
	logger *zap.Logger
}

func NewAcquirer(cfg Config, logger *zap.Logger) *Acquirer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPDFPages <= 0 {
		cfg.MaxPDFPages = 3
	}
	return &Acquirer{cfg: cfg, logger: logger}
}

// Capabilities returns the acquisition capability flags for this instance.
func (a *Acquirer) Capabilities() Capabilities {
	return Capabilities{
		PDF:         !a.cfg.DisablePDF,
		Spreadsheet: !a.cfg.DisableSpreadsheet,
		Text:        !a.cfg.DisableText,
	}
}

// Acquire picks a strategy based on file extension.
func (a *Acquirer) Acquire(ctx context.Context, path string) (AcquisitionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	a.logger.Debug("starting text acquisition", zap.String("path", path), zap.String("ext", ext))

	switch constants.TypeForName(path) {
	case constants.TypePDF:
		if a.cfg.DisablePDF {
			return a.disabled(constants.TypePDF, "pdf support disabled", start), nil
		}
		res, err := a.acquirePDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.TypeSpreadsheet:
		if a.cfg.DisableSpreadsheet {
			return a.disabled(constants.TypeSpreadsheet, "spreadsheet support disabled", start), nil
		}
		res, err := a.acquireSpreadsheet(ctx, path, ext)
		res.Duration = time.Since(start)
		return res, err
	case constants.TypeText:
		if a.cfg.DisableText {
			return a.disabled(constants.TypeText, "text support disabled", start), nil
		}
		res, err := a.acquireText(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		a.logger.Debug("unsupported acquisition extension", zap.String("extension", ext))
		return AcquisitionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

func (a *Acquirer) disabled(t constants.DeclaredType, warning string, start time.Time) AcquisitionResult {
	a.logger.Warn("acquisition capability disabled", zap.String("type", string(t)))
	return AcquisitionResult{
		SourceType: t,
		Warnings:   []string{warning},
		Duration:   time.Since(start),
	}
}
