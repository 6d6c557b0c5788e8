package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/extract"
	"github.com/Hk-V1/consignee-renamer/internal/rules"
)

func newTestProcessor(t *testing.T, mutate func(*rules.Rules)) *Processor {
	t.Helper()

	r := rules.Defaults()
	if mutate != nil {
		mutate(&r)
	}
	acq := acquire.NewAcquirer(acquire.Config{MaxPDFPages: r.MaxPDFPages}, nil)
	fields, err := extract.New(r, nil)
	require.NoError(t, err)

	return NewProcessor(Config{ScratchRoot: t.TempDir()}, r, acq, fields, nil, nil)
}

// buildArchive writes a zip fixture and returns its path.
func buildArchive(t *testing.T, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for member, content := range entries {
		w, err := zw.Create(member)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

const consigneeDoc = "Invoice No: 1\nConsignee\nAcme Trading Co.\nBuyer's Order No. 9\n"

func TestOpenEnumeratesEntries(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "shipment.zip", map[string]string{
		"b.txt":        consigneeDoc,
		"a.txt":        "nothing here",
		".DS_Store":    "junk",
		"__MACOSX/._b": "junk",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	assert.Equal(t, constants.RunStatusUnpacked, run.Status())
	assert.Equal(t, "shipment.zip", run.Source)
	require.Len(t, run.Entries, 2)
	assert.Equal(t, "a.txt", run.Entries[0].Name)
	assert.Equal(t, "b.txt", run.Entries[1].Name)
	assert.Equal(t, 1, run.Stats.Hidden)
	assert.Equal(t, 1, run.Stats.Metadata)

	assert.DirExists(t, run.scratchDir)
	require.NoError(t, run.Close())
	assert.NoDirExists(t, run.scratchDir)
}

func TestOpenNoEligibleEntries(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "hidden.zip", map[string]string{
		".DS_Store":       "junk",
		"__MACOSX/._file": "junk",
	})

	_, err := p.Open(context.Background(), src)
	assert.ErrorIs(t, err, common.ErrNoEligibleEntries)
}

func TestOpenBadArchive(t *testing.T) {
	p := newTestProcessor(t, nil)
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := p.Open(context.Background(), path)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeArchive, appErr.Code)
}

func TestOpenCanceledContext(t *testing.T) {
	p := newTestProcessor(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Open(ctx, "irrelevant.zip")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessRenamesAndRecords(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "batch.zip", map[string]string{
		"inv1.txt": consigneeDoc,
		"inv2.txt": consigneeDoc,
		"inv3.txt": "no label anywhere",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	records, err := p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, constants.RunStatusProcessing, run.Status())

	assert.Equal(t, 1, records[0].Seq)
	assert.Equal(t, "inv1.txt", records[0].OriginalName)
	assert.Equal(t, "Acme_Trading_Co", records[0].Extracted)
	assert.True(t, records[0].Found)
	assert.Equal(t, "Acme_Trading_Co.txt", records[0].FinalName)

	// Same consignee again: the duplicate gets a numeric suffix.
	assert.Equal(t, 2, records[1].Seq)
	assert.Equal(t, "Acme_Trading_Co_1.txt", records[1].FinalName)

	// No label: the entry keeps its own base name and is marked Not found.
	assert.False(t, records[2].Found)
	assert.Equal(t, entity.NotFoundMarker, records[2].ExtractedOrMarker())
	assert.Equal(t, "inv3.txt", records[2].FinalName)

	// Every entry is staged under its final name with the source bytes.
	for _, rec := range records {
		assert.FileExists(t, filepath.Join(run.StagingDir(), rec.FinalName))
	}
	data, err := os.ReadFile(filepath.Join(run.StagingDir(), "Acme_Trading_Co.txt"))
	require.NoError(t, err)
	assert.Equal(t, consigneeDoc, string(data))

	summary := run.Summary()
	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 1, summary.Missing)
}

func TestProcessOccurrencePolicy(t *testing.T) {
	p := newTestProcessor(t, func(r *rules.Rules) { r.Policy = constants.PolicyOccurrence })
	src := buildArchive(t, "dups.zip", map[string]string{
		"x1.txt": consigneeDoc,
		"x2.txt": consigneeDoc,
		"x3.txt": consigneeDoc,
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	records, err := p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Acme_Trading_Co.txt", records[0].FinalName)
	assert.Equal(t, "Acme_Trading_Co_2.txt", records[1].FinalName)
	assert.Equal(t, "Acme_Trading_Co_3.txt", records[2].FinalName)
}

func TestProcessSubsetThenRemainder(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "subset.zip", map[string]string{
		"a.txt": "plain",
		"b.txt": "plain",
		"c.txt": "plain",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	records, err := p.Process(context.Background(), run, ProcessOptions{Indexes: []int{2}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c.txt", records[0].OriginalName)

	// A duplicate index inside one request collapses to a single entry.
	records, err = p.Process(context.Background(), run, ProcessOptions{Indexes: []int{1, 1}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b.txt", records[0].OriginalName)

	// An already-processed index is an input error.
	_, err = p.Process(context.Background(), run, ProcessOptions{Indexes: []int{2}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	// Nil selection picks up whatever is left.
	records, err = p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].OriginalName)

	assert.Len(t, run.Records(), 3)
}

func TestProcessIndexOutOfRange(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "one.zip", map[string]string{"a.txt": "plain"})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	_, err = p.Process(context.Background(), run, ProcessOptions{Indexes: []int{5}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = p.Process(context.Background(), run, ProcessOptions{Indexes: []int{-1}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestProcessSkipUnrecognized(t *testing.T) {
	src := map[string]string{
		"doc.txt":  consigneeDoc,
		"blob.xyz": "opaque",
	}

	p := newTestProcessor(t, nil)
	run, err := p.Open(context.Background(), buildArchive(t, "mixed.zip", src))
	require.NoError(t, err)
	defer run.Close()

	records, err := p.Process(context.Background(), run, ProcessOptions{SkipUnrecognized: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "doc.txt", records[0].OriginalName)
	assert.NoFileExists(t, filepath.Join(run.StagingDir(), "blob.xyz"))

	// Without the option the unrecognized entry travels through unchanged.
	p2 := newTestProcessor(t, nil)
	run2, err := p2.Open(context.Background(), buildArchive(t, "mixed2.zip", src))
	require.NoError(t, err)
	defer run2.Close()

	records, err = p2.Process(context.Background(), run2, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "blob.xyz", records[0].FinalName)
	assert.False(t, records[0].Found)
	assert.FileExists(t, filepath.Join(run2.StagingDir(), "blob.xyz"))
}

func TestProcessSanitizedEmptyKeepsOriginalBase(t *testing.T) {
	p := newTestProcessor(t, nil)

	// The consignee column value survives extraction but sanitizes away to
	// nothing, so the entry falls back to its own base name.
	src := buildArchive(t, "dots.zip", map[string]string{
		"table.csv": "Consignee\n...\n",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	records, err := p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Found)
	assert.Empty(t, records[0].Extracted)
	assert.Equal(t, "table.csv", records[0].FinalName)
}

func TestProcessOnRecordCallback(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "cb.zip", map[string]string{
		"a.txt": consigneeDoc,
		"b.txt": "plain",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	var seen []entity.AuditRecord
	records, err := p.Process(context.Background(), run, ProcessOptions{
		OnRecord: func(rec entity.AuditRecord) { seen = append(seen, rec) },
	})
	require.NoError(t, err)
	assert.Equal(t, records, seen)
}

func TestProcessWrongState(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "state.zip", map[string]string{"a.txt": "plain"})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	_, err = p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)
	require.NoError(t, p.Repack(context.Background(), run))

	_, err = p.Process(context.Background(), run, ProcessOptions{})
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestRepackAndDeliver(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "full.zip", map[string]string{
		"inv.txt":   consigneeDoc,
		"other.txt": "plain",
	})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	// Too early on every output operation.
	assert.ErrorIs(t, p.Repack(context.Background(), run), common.ErrInvalidState)
	assert.ErrorIs(t, p.Deliver(run, &bytes.Buffer{}), common.ErrInvalidState)
	assert.Empty(t, run.OutputPath())

	_, err = p.Process(context.Background(), run, ProcessOptions{})
	require.NoError(t, err)

	require.NoError(t, p.Repack(context.Background(), run))
	assert.Equal(t, constants.RunStatusRepacked, run.Status())
	assert.NotEmpty(t, run.OutputPath())

	var buf bytes.Buffer
	require.NoError(t, p.Deliver(run, &buf))
	assert.Equal(t, constants.RunStatusDone, run.Status())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Acme_Trading_Co.txt", "other.txt"}, names)

	summary := run.Summary()
	require.NotNil(t, summary.OutputName)
	assert.Equal(t, constants.DefaultOutputName, *summary.OutputName)
	require.NotNil(t, summary.FinishedAt)

	// Delivery can repeat once the run is done.
	var again bytes.Buffer
	require.NoError(t, p.Deliver(run, &again))
	assert.Equal(t, buf.Bytes(), again.Bytes())
}

func TestProcessCanceledContext(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "cancel.zip", map[string]string{"a.txt": "plain"})

	run, err := p.Open(context.Background(), src)
	require.NoError(t, err)
	defer run.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Process(ctx, run, ProcessOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, constants.RunStatusFailed, run.Status())

	summary := run.Summary()
	require.NotNil(t, summary.Error)
	assert.Contains(t, *summary.Error, "context canceled")
}

func TestExecuteOneShot(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "oneshot.zip", map[string]string{
		"inv.txt": consigneeDoc,
		"na.txt":  "plain",
	})
	outPath := filepath.Join(t.TempDir(), "renamed.zip")

	records, summary, err := p.Execute(context.Background(), src, outPath, ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, string(constants.RunStatusDone), summary.Status)
	assert.Equal(t, 2, summary.Entries)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Missing)

	zr, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer zr.Close()
	assert.Len(t, zr.File, 2)
}

func TestExecuteCleansScratch(t *testing.T) {
	scratchRoot := t.TempDir()
	r := rules.Defaults()
	acq := acquire.NewAcquirer(acquire.Config{}, nil)
	fields, err := extract.New(r, nil)
	require.NoError(t, err)
	p := NewProcessor(Config{ScratchRoot: scratchRoot}, r, acq, fields, nil, nil)

	src := buildArchive(t, "clean.zip", map[string]string{"a.txt": "plain"})
	outPath := filepath.Join(t.TempDir(), "out.zip")

	_, _, err = p.Execute(context.Background(), src, outPath, ProcessOptions{})
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(scratchRoot, "consignee-run-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExecuteNoEligibleEntries(t *testing.T) {
	p := newTestProcessor(t, nil)
	src := buildArchive(t, "empty.zip", map[string]string{".hidden": "x"})

	_, _, err := p.Execute(context.Background(), src, filepath.Join(t.TempDir(), "out.zip"), ProcessOptions{})
	assert.ErrorIs(t, err, common.ErrNoEligibleEntries)
}
