package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractedOrMarker(t *testing.T) {
	found := AuditRecord{Seq: 1, OriginalName: "a.pdf", Extracted: "Acme", Found: true, FinalName: "Acme.pdf"}
	assert.Equal(t, "Acme", found.ExtractedOrMarker())

	missing := AuditRecord{Seq: 2, OriginalName: "b.pdf", FinalName: "b.pdf"}
	assert.Equal(t, NotFoundMarker, missing.ExtractedOrMarker())

	// A stored value is ignored while Found is false.
	stale := AuditRecord{Extracted: "leftover", Found: false}
	assert.Equal(t, NotFoundMarker, stale.ExtractedOrMarker())
}

func TestAuditRecordJSONShape(t *testing.T) {
	rec := AuditRecord{Seq: 3, OriginalName: "doc.pdf", Extracted: "Acme", Found: true, FinalName: "Acme.pdf"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "doc.pdf", m["original_name"])
	assert.Equal(t, "Acme.pdf", m["final_name"])
	assert.Equal(t, true, m["found"])
}
