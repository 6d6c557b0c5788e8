package rules

import (
	"github.com/Hk-V1/consignee-renamer/constants"
)

// BuildRulesJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Rules files are validated against it before use.
func BuildRulesJSONSchema() map[string]any {
	props := map[string]any{
		"mode": map[string]any{
			"type": "string",
			"enum": constants.ExtractionModes(),
		},
		"policy": map[string]any{
			"type": "string",
			"enum": constants.NumberingPolicies(),
		},
		"label_pattern": map[string]any{"type": "string", "minLength": 1},
		"secondary_labels": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
		"max_pdf_pages":       positiveIntProp(),
		"max_field_length":    positiveIntProp(),
		"max_name_length":     positiveIntProp(),
		"max_suffix_attempts": positiveIntProp(),
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func positiveIntProp() map[string]any {
	return map[string]any{
		"type":    "integer",
		"minimum": 1,
	}
}
