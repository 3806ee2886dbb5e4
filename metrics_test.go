package looper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsDisabled(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	assert.Zero(t, l.Metrics())
}

func TestMetricsCounters(t *testing.T) {
	l, err := New(WithMetrics(true))
	require.NoError(t, err)

	var count int
	l.Schedule(func() (bool, error) {
		count++
		if count == 3 {
			l.Quit()
			return false, nil
		}
		return true, nil
	}, 0, time.Millisecond, false)
	l.Post(func() {})

	require.NoError(t, waitRun(t, runLooper(t, l)))

	snap := l.Metrics()
	assert.Equal(t, uint64(2), snap.Submits)
	assert.GreaterOrEqual(t, snap.ActionsRun, uint64(4), "three repeats plus one post")
	assert.GreaterOrEqual(t, snap.Passes, uint64(1))
	assert.GreaterOrEqual(t, snap.Merges, snap.Passes, "at least one merge per pass")
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.addMerge()
	m.addPass(1)
	m.addSpin()
	m.addTimedWait()
	m.addSubmit()
	assert.Zero(t, m.snapshot())
}
