package entity

import (
	"github.com/Hk-V1/consignee-renamer/constants"
)

// SourceEntry represents one enumerated archive member for data transfer between layers.
type SourceEntry struct {
	Index    int                    `json:"index"`
	Name     string                 `json:"name"`
	RelPath  string                 `json:"rel_path"`
	Ext      string                 `json:"ext"`
	Type     constants.DeclaredType `json:"type"`
	FileSize int64                  `json:"file_size"`
}
