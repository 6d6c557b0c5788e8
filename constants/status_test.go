package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusTerminal(t *testing.T) {
	assert.True(t, RunStatusDone.Terminal())
	assert.True(t, RunStatusFailed.Terminal())

	for _, s := range []RunStatus{RunStatusIdle, RunStatusUnpacked, RunStatusProcessing, RunStatusRepacked} {
		assert.False(t, s.Terminal(), "status %s", s)
	}
}
