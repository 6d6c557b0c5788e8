package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForName(t *testing.T) {
	tests := []struct {
		name string
		want DeclaredType
	}{
		{"invoice.pdf", TypePDF},
		{"INVOICE.PDF", TypePDF},
		{"manifest.xlsx", TypeSpreadsheet},
		{"legacy.xls", TypeSpreadsheet},
		{"rows.csv", TypeSpreadsheet},
		{"notes.txt", TypeText},
		{"scan.jpeg", TypeUnknown},
		{"archive.zip", TypeUnknown},
		{"noextension", TypeUnknown},
		{"dir/nested/bill.pdf", TypePDF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeForName(tt.name), "TypeForName(%q)", tt.name)
	}
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
	assert.Equal(t, "xlsx", NormalizeExt(".xlsx"))
	assert.Equal(t, "csv", NormalizeExt("csv"))
	assert.Equal(t, "", NormalizeExt(""))
	assert.Equal(t, "", NormalizeExt("."))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden(".DS_Store"))
	assert.True(t, IsHidden(".hidden.pdf"))
	assert.True(t, IsHidden("some/dir/.sneaky.txt"))
	assert.False(t, IsHidden("visible.pdf"))
	assert.False(t, IsHidden("dir.with.dots/file.txt"))
}
