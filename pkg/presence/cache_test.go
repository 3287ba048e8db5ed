package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCache_TouchAndRelease(t *testing.T) {
	c := newStateCache()
	const uri = "sip:a@b"

	// First subscriber is reported exactly once.
	assert.True(t, c.touch(uri))
	assert.False(t, c.touch(uri))
	assert.False(t, c.touch(uri))

	// Only the final release reports the last subscriber.
	assert.False(t, c.release(uri))
	assert.False(t, c.release(uri))
	assert.True(t, c.release(uri))

	// The count is clamped at zero; extra releases stay no-ops.
	assert.False(t, c.release(uri))
	assert.False(t, c.release(uri))

	// After clamping, a resubscribe is a fresh first subscriber again.
	assert.True(t, c.touch(uri))
}

func TestStateCache_ReleaseUnknownURI(t *testing.T) {
	c := newStateCache()
	assert.False(t, c.release("sip:never-seen@b"))
	assert.Equal(t, 0, c.len())
}

func TestStateCache_Defaults(t *testing.T) {
	c := newStateCache()

	state := c.snapshot("sip:never-seen@b")
	assert.Equal(t, StateUnknown, state.Presence)
	assert.Equal(t, "", state.Note)
	// snapshot must not create a record.
	assert.Equal(t, 0, c.len())
}

func TestStateCache_Updates(t *testing.T) {
	c := newStateCache()
	const uri = "sip:a@b"

	// Updates create the record lazily and report the previous value.
	prev, held := c.setPresence(uri, "available")
	assert.Equal(t, StateUnknown, prev)
	assert.False(t, held, "no subscriber holds the uri yet")

	prev, _ = c.setPresence(uri, "busy")
	assert.Equal(t, "available", prev)

	prev, _ = c.setNote(uri, "in a meeting")
	assert.Equal(t, "", prev)

	state := c.snapshot(uri)
	assert.Equal(t, "busy", state.Presence)
	assert.Equal(t, "in a meeting", state.Note)

	// A held uri reports held=true on update.
	require.True(t, c.touch(uri))
	_, held = c.setPresence(uri, "away")
	assert.True(t, held)
}

func TestStateCache_RetainsStateAtZero(t *testing.T) {
	c := newStateCache()
	const uri = "sip:a@b"

	require.True(t, c.touch(uri))
	c.setPresence(uri, "available")
	require.True(t, c.release(uri))

	// Idle records keep their last known state for rapid resubscribe.
	assert.Equal(t, "available", c.snapshot(uri).Presence)
	assert.Equal(t, 1, c.len())
}
