package constants

// ExtractionMode selects how the consignee value is captured around the label.
type ExtractionMode string

const (
	// ModeLineSuccessor takes the first non-empty line after the label line.
	ModeLineSuccessor ExtractionMode = "line-successor"
	// ModeInlineCapture captures the remainder of the label line itself.
	ModeInlineCapture ExtractionMode = "inline-capture"
)

// NumberingPolicy selects how duplicate target names are suffixed.
type NumberingPolicy string

const (
	// PolicyProbe probes the staging area and appends _1, _2, ... until free.
	PolicyProbe NumberingPolicy = "probe"
	// PolicyOccurrence counts occurrences per base name; the Kth duplicate gets _K.
	PolicyOccurrence NumberingPolicy = "occurrence"
)

// ExtractionModes lists the accepted mode values.
func ExtractionModes() []string {
	return []string{string(ModeLineSuccessor), string(ModeInlineCapture)}
}

// NumberingPolicies lists the accepted policy values.
func NumberingPolicies() []string {
	return []string{string(PolicyProbe), string(PolicyOccurrence)}
}
