package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPlaceholder(t *testing.T) {
	placeholders := []string{"", "  ", "nan", "NaN", "N/A", "na", "None", "NULL", "-", "--", " n/a "}
	for _, v := range placeholders {
		assert.True(t, IsPlaceholder(v), "IsPlaceholder(%q)", v)
	}

	values := []string{"Acme Trading Co", "0", "n/a inc", "nancy ltd", "—"}
	for _, v := range values {
		assert.False(t, IsPlaceholder(v), "IsPlaceholder(%q)", v)
	}
}
