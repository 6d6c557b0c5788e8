// Package pipeline coordinates the archive round trip: unpack, enumerate,
// per-entry extraction and renaming, repack, delivery. Entries are processed
// one at a time in enumeration order; a problem with one entry is recorded
// and never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/archive"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/extract"
	"github.com/Hk-V1/consignee-renamer/internal/metrics"
	"github.com/Hk-V1/consignee-renamer/internal/namer"
	"github.com/Hk-V1/consignee-renamer/internal/rules"
)

type Config struct {
	ScratchRoot string // parent for per-run scratch dirs; empty -> os.TempDir()
	OutputName  string // name of the repacked archive, default renamed_files.zip
	KeepStaging bool   // leave scratch dirs behind on Close
}

// Processor coordinates text acquisition and field extraction over a run.
type Processor struct {
	cfg      Config
	rules    rules.Rules
	acquirer acquire.TextAcquirer
	fields   extract.FieldExtractor
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewProcessor(cfg Config, r rules.Rules, acquirer acquire.TextAcquirer, fields extract.FieldExtractor, m *metrics.Metrics, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	if cfg.OutputName == "" {
		cfg.OutputName = constants.DefaultOutputName
	}
	return &Processor{
		cfg:      cfg,
		rules:    r,
		acquirer: acquirer,
		fields:   fields,
		metrics:  m,
		logger:   logger,
	}
}

// Open unpacks the archive into a fresh scratch area and enumerates its
// entries. An unreadable archive or an archive with no eligible entries is
// fatal; the scratch area is released before returning.
func (p *Processor) Open(ctx context.Context, archivePath string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(p.cfg.ScratchRoot, "consignee-run-")
	if err != nil {
		return nil, common.NewAppError(common.CodeOutputWrite, "creating scratch dir", err)
	}

	run := &Run{
		ID:          uuid.New(),
		Source:      filepath.Base(archivePath),
		StartedAt:   time.Now().UTC(),
		scratchDir:  scratch,
		unpackDir:   filepath.Join(scratch, "source"),
		stagingDir:  filepath.Join(scratch, "renamed"),
		outputPath:  filepath.Join(scratch, p.cfg.OutputName),
		keepStaging: p.cfg.KeepStaging,
		status:      constants.RunStatusIdle,
	}

	unpacked, err := archive.Unpack(archivePath, run.unpackDir)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, common.NewAppError(common.CodeArchive, fmt.Sprintf("unpacking %s", run.Source), err)
	}

	entries, stats, err := archive.Enumerate(run.unpackDir)
	if err != nil {
		_ = os.RemoveAll(scratch)
		return nil, common.NewAppError(common.CodeArchive, "enumerating entries", err)
	}
	if len(entries) == 0 {
		_ = os.RemoveAll(scratch)
		return nil, common.ErrNoEligibleEntries
	}

	run.Entries = entries
	run.Stats = stats
	run.setStatus(constants.RunStatusUnpacked)

	p.logger.Info("pipeline.open.ok",
		zap.String("run_id", run.ID.String()),
		zap.String("source", run.Source),
		zap.Int("unpacked", unpacked),
		zap.Int("eligible", stats.Eligible),
		zap.Int("hidden", stats.Hidden),
	)
	return run, nil
}

// Process runs extraction and renaming for the selected entries, in
// enumeration order. A nil selection means every entry. Audit records for
// this batch are returned and also retained on the run.
func (p *Processor) Process(ctx context.Context, run *Run, opts ProcessOptions) ([]entity.AuditRecord, error) {
	if s := run.Status(); s != constants.RunStatusUnpacked && s != constants.RunStatusProcessing {
		return nil, fmt.Errorf("%w: cannot process in state %s", common.ErrInvalidState, s)
	}

	selection, err := run.claimSelection(opts.Indexes)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(run.stagingDir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeOutputWrite, "creating staging dir", err)
	}
	run.setStatus(constants.RunStatusProcessing)

	resolver := run.resolver
	if resolver == nil {
		resolver = namer.NewResolver(p.rules.Policy, p.rules.MaxSuffixAttempts, func(name string) bool {
			_, err := os.Stat(filepath.Join(run.stagingDir, name))
			return err == nil
		})
		run.resolver = resolver
	}

	batch := make([]entity.AuditRecord, 0, len(selection))
	for _, idx := range selection {
		if err := ctx.Err(); err != nil {
			run.fail(err)
			return batch, err
		}
		entry := run.Entries[idx]
		if entry.Type == constants.TypeUnknown && opts.SkipUnrecognized {
			p.logger.Info("pipeline.entry.skipped",
				zap.String("run_id", run.ID.String()),
				zap.String("name", entry.Name),
				zap.String("reason", "unrecognized extension"),
			)
			continue
		}

		rec, err := p.processEntry(ctx, run, entry, resolver)
		if err != nil {
			run.fail(err)
			return batch, err
		}
		run.appendRecord(rec)
		batch = append(batch, rec)
		p.metrics.ObserveEntry(rec.Found)

		p.logger.Info("pipeline.entry.done",
			zap.String("run_id", run.ID.String()),
			zap.Int("seq", rec.Seq),
			zap.String("original", rec.OriginalName),
			zap.String("extracted", rec.ExtractedOrMarker()),
			zap.String("final", rec.FinalName),
		)
		if opts.OnRecord != nil {
			opts.OnRecord(rec)
		}
	}
	return batch, nil
}

// processEntry acquires text, extracts the consignee, and stages the file
// under its final name. Acquisition and extraction problems degrade to a
// Not-found record; only staging I/O failures are returned as errors.
func (p *Processor) processEntry(ctx context.Context, run *Run, entry entity.SourceEntry, resolver *namer.Resolver) (entity.AuditRecord, error) {
	src := filepath.Join(run.unpackDir, filepath.FromSlash(entry.RelPath))

	var value string
	var found bool
	if entry.Type != constants.TypeUnknown {
		res, err := p.acquirer.Acquire(ctx, src)
		if err != nil {
			p.logger.Warn("pipeline.acquire.failed",
				zap.String("run_id", run.ID.String()),
				zap.String("name", entry.Name),
				zap.Error(err),
			)
		}
		out := p.fields.ExtractConsignee(res.Text, res.Table)
		value, found = out.Value, out.Found
	}

	base := ""
	if found {
		base = namer.Sanitize(value, p.rules.MaxNameLength)
		if base == "" {
			p.logger.Warn("pipeline.name.sanitized_empty",
				zap.String("run_id", run.ID.String()),
				zap.String("name", entry.Name),
				zap.String("value", value),
			)
			found = false
			value = ""
		}
	}
	ext := filepath.Ext(entry.Name)
	if base == "" {
		base = strings.TrimSuffix(entry.Name, ext)
	}

	finalName, exhausted := resolver.Resolve(base, ext, entry.Index)
	if exhausted {
		p.logger.Error("pipeline.name.suffix_exhausted",
			zap.String("run_id", run.ID.String()),
			zap.String("name", entry.Name),
			zap.String("fallback", finalName),
			zap.Error(common.ErrSuffixExhausted),
		)
	}

	if err := copyFile(src, filepath.Join(run.stagingDir, finalName)); err != nil {
		return entity.AuditRecord{}, common.NewAppError(common.CodeOutputWrite,
			fmt.Sprintf("staging %s", entry.Name), err)
	}

	return entity.AuditRecord{
		Seq:          run.nextSeq(),
		OriginalName: entry.Name,
		Extracted:    value,
		Found:        found,
		FinalName:    finalName,
	}, nil
}

// Repack writes the staged files into the output archive. On failure the
// staging area is retained so the records and partial results survive.
func (p *Processor) Repack(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s := run.Status(); s != constants.RunStatusProcessing {
		return fmt.Errorf("%w: cannot repack in state %s", common.ErrInvalidState, s)
	}

	n, err := archive.PackToFile(run.outputPath, run.stagingDir)
	if err != nil {
		return common.NewAppError(common.CodeOutputWrite, "writing output archive", err)
	}
	run.setStatus(constants.RunStatusRepacked)

	p.logger.Info("pipeline.repack.ok",
		zap.String("run_id", run.ID.String()),
		zap.Int("members", n),
		zap.String("output", p.cfg.OutputName),
	)
	return nil
}

// Deliver copies the output archive to w and marks the run done. Delivery
// can be repeated; a write failure leaves the staged output in place.
func (p *Processor) Deliver(run *Run, w io.Writer) error {
	if s := run.Status(); s != constants.RunStatusRepacked && s != constants.RunStatusDone {
		return fmt.Errorf("%w: cannot deliver in state %s", common.ErrInvalidState, s)
	}

	f, err := os.Open(run.outputPath)
	if err != nil {
		return common.NewAppError(common.CodeOutputWrite, "opening output archive", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return common.NewAppError(common.CodeOutputWrite, "delivering output archive", err)
	}
	if run.Status() != constants.RunStatusDone {
		run.finish()
		p.metrics.ObserveRun(string(constants.RunStatusDone), time.Since(run.StartedAt))
	}
	return nil
}

// DeliverToFile writes the output archive to path via Deliver.
func (p *Processor) DeliverToFile(run *Run, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return common.NewAppError(common.CodeOutputWrite, "creating output file", err)
	}
	err = p.Deliver(run, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = common.NewAppError(common.CodeOutputWrite, "closing output file", cerr)
	}
	return err
}

// Execute is the one-shot path: open, process everything, repack, and write
// the output archive to outPath. The run is closed before returning.
func (p *Processor) Execute(ctx context.Context, archivePath, outPath string, opts ProcessOptions) ([]entity.AuditRecord, entity.RunSummary, error) {
	run, err := p.Open(ctx, archivePath)
	if err != nil {
		p.metrics.ObserveRun(string(constants.RunStatusFailed), 0)
		return nil, entity.RunSummary{}, err
	}
	defer func() {
		if cerr := run.Close(); cerr != nil {
			p.logger.Warn("pipeline.close.failed", zap.String("run_id", run.ID.String()), zap.Error(cerr))
		}
	}()

	records, err := p.Process(ctx, run, opts)
	if err != nil {
		p.metrics.ObserveRun(string(constants.RunStatusFailed), time.Since(run.StartedAt))
		return records, run.Summary(), err
	}
	if err := p.Repack(ctx, run); err != nil {
		p.metrics.ObserveRun(string(constants.RunStatusFailed), time.Since(run.StartedAt))
		return records, run.Summary(), err
	}
	if err := p.DeliverToFile(run, outPath); err != nil {
		p.metrics.ObserveRun(string(constants.RunStatusFailed), time.Since(run.StartedAt))
		return records, run.Summary(), err
	}
	return records, run.Summary(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %q: %w", dst, err)
	}
	return out.Close()
}

// claimSelection validates and sorts the requested indexes, marking them
// processed so an index cannot be staged twice. Nil means all remaining
// entries.
func (r *Run) claimSelection(indexes []int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.processed == nil {
		r.processed = make(map[int]struct{}, len(r.Entries))
	}

	var selection []int
	if indexes == nil {
		for _, e := range r.Entries {
			if _, done := r.processed[e.Index]; !done {
				selection = append(selection, e.Index)
			}
		}
	} else {
		seen := make(map[int]struct{}, len(indexes))
		for _, idx := range indexes {
			if idx < 0 || idx >= len(r.Entries) {
				return nil, fmt.Errorf("%w: entry index %d out of range", common.ErrInvalidInput, idx)
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			if _, done := r.processed[idx]; done {
				return nil, fmt.Errorf("%w: entry %d already processed", common.ErrInvalidInput, idx)
			}
			selection = append(selection, idx)
		}
		sort.Ints(selection)
	}

	for _, idx := range selection {
		r.processed[idx] = struct{}{}
	}
	return selection, nil
}

func (r *Run) nextSeq() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}
