package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatsAccumulatesAcrossActions(t *testing.T) {
	stats := newSessionStats()
	stats.record("squeeze", 100, 900)
	stats.record("squeeze", 50, 450)
	stats.record("find", 20, 80)

	snap := stats.snapshot()
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, int64(3), snap.ToolCalls)
	assert.Equal(t, int64(170), snap.BytesServed)
	assert.Equal(t, int64(1430), snap.BytesAvoided)
	assert.Equal(t, int64(2), snap.ByAction["squeeze"].Calls)
	assert.Equal(t, int64(150), snap.ByAction["squeeze"].BytesServed)
	assert.Equal(t, int64(1), snap.ByAction["find"].Calls)
}

func TestSessionStatsCountersNeverDecrement(t *testing.T) {
	stats := newSessionStats()
	stats.record("tree", 10, 0)
	first := stats.snapshot().BytesServed
	stats.record("tree", 0, 0)
	second := stats.snapshot().BytesServed
	assert.GreaterOrEqual(t, second, first)
}
