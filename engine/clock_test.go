package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockStartStop(t *testing.T) {
	c := &Clock{}

	assert.False(t, c.Active(), "clock should start inactive")
	assert.Equal(t, time.Duration(0), c.Elapsed())

	c.Start()
	assert.True(t, c.Active())
	time.Sleep(20 * time.Millisecond)
	require.Greater(t, c.Elapsed(), time.Duration(0))

	c.Stop()
	assert.False(t, c.Active())
	frozen := c.Elapsed()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, c.Elapsed(), "elapsed time must freeze while stopped")

	// resuming accumulates on top of the frozen duration
	c.Start()
	time.Sleep(20 * time.Millisecond)
	assert.Greater(t, c.Elapsed(), frozen)
}

func TestClockStartIsIdempotent(t *testing.T) {
	c := &Clock{}
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Start()
	assert.Greater(t, c.Elapsed(), time.Duration(0), "double start must not rewind the clock")
}

func TestClockReset(t *testing.T) {
	c := &Clock{}
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	require.Greater(t, c.Elapsed(), time.Duration(0))

	c.Reset()
	assert.Equal(t, time.Duration(0), c.Elapsed())
	assert.False(t, c.Active())
}

func TestClockRestore(t *testing.T) {
	c := &Clock{}
	c.Start()

	c.Restore(90 * time.Second)
	assert.False(t, c.Active(), "a restored clock comes back stopped")
	assert.Equal(t, 90*time.Second, c.Elapsed())

	minutes, seconds, active := c.Snapshot()
	assert.Equal(t, 1, minutes)
	assert.Equal(t, 30, seconds)
	assert.False(t, active)
	assert.Equal(t, 1, c.ElapsedMinutes())
}

func TestClockSnapshotConsistency(t *testing.T) {
	c := &Clock{}
	c.Restore(125 * time.Second)

	minutes, seconds, _ := c.Snapshot()
	assert.Equal(t, 2, minutes)
	assert.Equal(t, 5, seconds)
}
