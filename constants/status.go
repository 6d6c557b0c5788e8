package constants

// RunStatus is the canonical status for a processing run.
type RunStatus string

// Stable values (store these exact strings in the history store).
const (
	RunStatusIdle       RunStatus = "IDLE"       // no archive loaded yet
	RunStatusUnpacked   RunStatus = "UNPACKED"   // archive unpacked, entries enumerated
	RunStatusProcessing RunStatus = "PROCESSING" // per-entry extraction in progress
	RunStatusRepacked   RunStatus = "REPACKED"   // output archive written to staging
	RunStatusDone       RunStatus = "DONE"       // output delivered
	RunStatusFailed     RunStatus = "FAILED"     // terminal failure
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusFailed
}
