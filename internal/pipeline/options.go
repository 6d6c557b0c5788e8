package pipeline

import (
	"github.com/Hk-V1/consignee-renamer/internal/entity"
)

// ProcessOptions controls one Process call.
type ProcessOptions struct {
	// Indexes selects a subset of entries by enumeration index. Nil means
	// every entry not yet processed. Processing always happens in
	// enumeration order, whatever order the indexes arrive in.
	Indexes []int

	// SkipUnrecognized excludes entries with unrecognized extensions from the
	// output instead of carrying them through under their discovered names.
	SkipUnrecognized bool

	// OnRecord, when set, receives each audit record as soon as the entry
	// finishes, in processing order.
	OnRecord func(entity.AuditRecord)
}
