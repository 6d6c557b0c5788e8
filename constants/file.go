package constants

import (
	"path/filepath"
	"strings"
)

// DeclaredType is the file type assigned from the entry's extension.
type DeclaredType string

const (
	TypePDF         DeclaredType = "PDF"
	TypeSpreadsheet DeclaredType = "SPREADSHEET"
	TypeText        DeclaredType = "TEXT"
	TypeUnknown     DeclaredType = "UNKNOWN"
)

// RecognizedExtensions maps lowercase extensions (no dot) to their declared type.
var RecognizedExtensions = map[string]DeclaredType{
	"pdf":  TypePDF,
	"xlsx": TypeSpreadsheet,
	"xls":  TypeSpreadsheet,
	"csv":  TypeSpreadsheet,
	"txt":  TypeText,
}

// DefaultOutputName is the file name of the repacked archive.
const DefaultOutputName = "renamed_files.zip"

// MetadataDirName is the archive metadata directory excluded from enumeration.
const MetadataDirName = "__MACOSX"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// TypeForName returns the declared type for a file name based on its extension.
func TypeForName(name string) DeclaredType {
	ext := NormalizeExt(filepath.Ext(name))
	if t, ok := RecognizedExtensions[ext]; ok {
		return t
	}
	return TypeUnknown
}

// IsHidden reports whether the base name marks a hidden file.
func IsHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
