package acquire

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hk-V1/consignee-renamer/constants"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestAcquireTextUTF8(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	path := writeFixture(t, "doc.txt", []byte("Consignee\nAcme Trading Co.\n"))

	res, err := a.Acquire(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, constants.TypeText, res.SourceType)
	assert.Equal(t, "text-decode", res.Method)
	assert.Equal(t, "Consignee\nAcme Trading Co.\n", res.Text)
	assert.Empty(t, res.Warnings)
}

func TestAcquireTextInvalidUTF8(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	path := writeFixture(t, "doc.txt", []byte{'h', 'i', 0xff, 0xfe, '!'})

	res, err := a.Acquire(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "hi")
	assert.Contains(t, res.Warnings, "invalid utf-8 replaced")
}

func TestAcquireUnsupportedExtension(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	path := writeFixture(t, "scan.jpg", []byte("binary"))

	_, err := a.Acquire(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestAcquireMissingFile(t *testing.T) {
	a := NewAcquirer(Config{}, nil)

	_, err := a.Acquire(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestAcquireDisabledCapability(t *testing.T) {
	a := NewAcquirer(Config{DisablePDF: true}, nil)

	res, err := a.Acquire(context.Background(), "whatever.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.TypePDF, res.SourceType)
	assert.Empty(t, res.Text)
	assert.Contains(t, res.Warnings, "pdf support disabled")
}

func TestAcquireCanceledContext(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	path := writeFixture(t, "doc.txt", []byte("content"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Acquire(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquirePDFGarbage(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	path := writeFixture(t, "broken.pdf", []byte("this is not a pdf document"))

	_, err := a.Acquire(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open pdf")
}

func TestCapabilities(t *testing.T) {
	a := NewAcquirer(Config{}, nil)
	assert.Equal(t, Capabilities{PDF: true, Spreadsheet: true, Text: true}, a.Capabilities())

	a = NewAcquirer(Config{DisableSpreadsheet: true}, nil)
	caps := a.Capabilities()
	assert.True(t, caps.PDF)
	assert.False(t, caps.Spreadsheet)
	assert.True(t, caps.Text)
}
