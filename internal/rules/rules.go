// Package rules holds the tunable extraction and naming behavior as a plain
// JSON document, so deployments can override labels and bounds without a
// rebuild. A missing rules file means defaults.
package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// Rules is the extraction and naming configuration.
type Rules struct {
	// Mode selects the capture algorithm around the label.
	Mode constants.ExtractionMode `json:"mode"`
	// Policy selects duplicate-name numbering.
	Policy constants.NumberingPolicy `json:"policy"`
	// LabelPattern is the regular expression locating the consignee label.
	LabelPattern string `json:"label_pattern"`
	// SecondaryLabels are regular expressions; a captured value is truncated
	// at the first match of any of them.
	SecondaryLabels []string `json:"secondary_labels"`
	// MaxPDFPages bounds how many leading pages of a PDF are read.
	MaxPDFPages int `json:"max_pdf_pages"`
	// MaxFieldLength rejects inline captures at or above this many characters.
	MaxFieldLength int `json:"max_field_length"`
	// MaxNameLength caps the sanitized base name.
	MaxNameLength int `json:"max_name_length"`
	// MaxSuffixAttempts bounds the duplicate-suffix search per entry.
	MaxSuffixAttempts int `json:"max_suffix_attempts"`
}

// DefaultLabelPattern matches "Consignee", optionally followed by "(Ship to)".
const DefaultLabelPattern = `(?i)consignee\s*(?:\(\s*ship\s*to\s*\))?`

// DefaultSecondaryLabels truncate values that run into the next field of the
// source document.
var DefaultSecondaryLabels = []string{
	`(?i)buyer'?s?\s*order\s*no\.?`,
	`(?i)dated`,
}

// Defaults returns the built-in rules.
func Defaults() Rules {
	return Rules{
		Mode:              constants.ModeLineSuccessor,
		Policy:            constants.PolicyProbe,
		LabelPattern:      DefaultLabelPattern,
		SecondaryLabels:   append([]string(nil), DefaultSecondaryLabels...),
		MaxPDFPages:       3,
		MaxFieldLength:    100,
		MaxNameLength:     50,
		MaxSuffixAttempts: 10000,
	}
}

// Load reads a rules file, validates it against the schema, and fills in
// defaults for omitted fields. An empty path returns Defaults.
func Load(path string) (Rules, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes a rules document, filling in defaults.
func Parse(data []byte) (Rules, error) {
	if err := ValidateJSONAgainstSchema(BuildRulesJSONSchema(), data); err != nil {
		return Rules{}, err
	}
	r := Defaults()
	if err := json.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("unmarshal rules: %w", err)
	}
	r.fillDefaults()
	return r, nil
}

func (r *Rules) fillDefaults() {
	d := Defaults()
	if r.Mode == "" {
		r.Mode = d.Mode
	}
	if r.Policy == "" {
		r.Policy = d.Policy
	}
	if r.LabelPattern == "" {
		r.LabelPattern = d.LabelPattern
	}
	if len(r.SecondaryLabels) == 0 {
		r.SecondaryLabels = d.SecondaryLabels
	}
	if r.MaxPDFPages <= 0 {
		r.MaxPDFPages = d.MaxPDFPages
	}
	if r.MaxFieldLength <= 0 {
		r.MaxFieldLength = d.MaxFieldLength
	}
	if r.MaxNameLength <= 0 {
		r.MaxNameLength = d.MaxNameLength
	}
	if r.MaxSuffixAttempts <= 0 {
		r.MaxSuffixAttempts = d.MaxSuffixAttempts
	}
}
