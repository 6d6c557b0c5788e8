package entity

// NotFoundMarker is the audit value recorded when no consignee was extracted.
const NotFoundMarker = "Not found"

// AuditRecord represents the outcome of one processed entry, in processing order.
type AuditRecord struct {
	Seq          int    `json:"seq"`
	OriginalName string `json:"original_name"`
	Extracted    string `json:"extracted"`
	Found        bool   `json:"found"`
	FinalName    string `json:"final_name"`
}

// ExtractedOrMarker returns the extracted value, or the explicit marker when absent.
func (r AuditRecord) ExtractedOrMarker() string {
	if !r.Found {
		return NotFoundMarker
	}
	return r.Extracted
}
