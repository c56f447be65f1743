package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingRejectsZeroDepth(t *testing.T) {
	_, err := NewRing[int](0)
	require.Error(t, err)
}

func TestRingWriteCannotLapUnreadSlot(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)

	assert.Equal(t, 0, ring.WriteIndex())
	assert.Equal(t, 0, ring.ReadIndex())

	// Complete three writes, filling every slot.
	for i := 0; i < 3; i++ {
		*ring.WriteSlot() = 100 + i
		_, err := ring.AdvanceWrite()
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ring.Lag())

	// A fourth write would lap the unread slot 0.
	_, err = ring.AdvanceWrite()
	require.Error(t, err)

	// Reading slot 0 frees room for exactly one more write.
	assert.Equal(t, 100, *ring.ReadSlot())
	_, err = ring.AdvanceRead()
	require.NoError(t, err)
	assert.Equal(t, 101, *ring.ReadSlot())

	_, err = ring.AdvanceWrite()
	require.NoError(t, err)
	_, err = ring.AdvanceWrite()
	require.Error(t, err)
}

func TestRingReadCannotPassWrite(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)

	// Nothing written yet.
	_, err = ring.AdvanceRead()
	require.Error(t, err)

	_, err = ring.AdvanceWrite()
	require.NoError(t, err)
	_, err = ring.AdvanceRead()
	require.NoError(t, err)
	_, err = ring.AdvanceRead()
	require.Error(t, err)
}

func TestRingSentinelRotation(t *testing.T) {
	const depth = 3
	ring, err := NewRing[int](depth)
	require.NoError(t, err)

	// Simulate 12 frames with the device completing (and releasing) each
	// slot exactly depth frames after it was written. Every slot must be
	// read back with the sentinel of the frame that wrote it.
	written := map[int]int{}
	for frame := 0; frame < 12; frame++ {
		if frame >= depth {
			// Device completes frame-depth, making its slot readable.
			got := *ring.ReadSlot()
			assert.Equal(t, written[frame-depth], got, "frame %d", frame)
			_, err := ring.AdvanceRead()
			require.NoError(t, err)
		}
		*ring.WriteSlot() = frame * 7
		written[frame] = frame * 7
		_, err := ring.AdvanceWrite()
		require.NoError(t, err)
	}
}

func TestRingReset(t *testing.T) {
	ring, err := NewRing[int](2)
	require.NoError(t, err)
	*ring.WriteSlot() = 42
	_, err = ring.AdvanceWrite()
	require.NoError(t, err)

	ring.Reset()
	assert.Equal(t, 0, ring.WriteIndex())
	assert.Equal(t, 0, ring.ReadIndex())
	assert.Equal(t, 0, *ring.Slot(0))
	assert.Equal(t, 0, ring.Lag())
}
