package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadVisibilityTrailsWriteByPipelineDepth(t *testing.T) {
	fp := NewFramePipeline()
	fp.Resize(4)

	for i := 0; i < 10; i++ {
		frame := fp.BeginFrame()
		require.Equal(t, int64(i), frame)

		results, ok := fp.ReadVisibility(frame)
		if frame < MaxFramesInFlight {
			// Warm-up: nothing old enough to consume yet.
			assert.False(t, ok, "frame %d", frame)
		} else {
			require.True(t, ok, "frame %d", frame)
			// The consumed buffer carries the marker of the frame that
			// wrote it, exactly MaxFramesInFlight ago.
			assert.Equal(t, uint32(frame-MaxFramesInFlight)+1, results[0], "frame %d", frame)
		}

		write := fp.AcquireVisibilityWrite(frame)
		require.NotNil(t, write)
		for j, v := range write {
			require.Zero(t, v, "frame %d slot %d claimed dirty", frame, j)
		}
		write[0] = uint32(frame) + 1

		fp.Complete(frame)
	}
}

func TestReadVisibilityBeforeDeviceCompletion(t *testing.T) {
	fp := NewFramePipeline()
	fp.Resize(2)

	// Submit a full pipeline without completing anything.
	frames := make([]int64, MaxFramesInFlight)
	for i := range frames {
		frames[i] = fp.BeginFrame()
		fp.AcquireVisibilityWrite(frames[i])
	}
	assert.Equal(t, MaxFramesInFlight, fp.InFlight())

	// Complete all but the oldest; its slot stays unreadable.
	for _, frame := range frames[1:] {
		fp.Complete(frame)
	}
	frame := fp.BeginFrame()
	_, ok := fp.ReadVisibility(frame)
	assert.False(t, ok, "oldest frame never completed")
}

func TestReadVisibilitySkipsUnconsumedFrames(t *testing.T) {
	fp := NewFramePipeline()
	fp.Resize(1)

	// Several frames acquire and complete without anyone reading, as when
	// occlusion testing is toggled off mid-flight.
	for i := 0; i < 6; i++ {
		frame := fp.BeginFrame()
		fp.AcquireVisibilityWrite(frame)
		fp.Complete(frame)
	}

	// The next frame reads its own trailing slot, not a stale leftover.
	frame := fp.BeginFrame()
	results, ok := fp.ReadVisibility(frame)
	require.True(t, ok)
	assert.Len(t, results, 1)
	fp.Complete(frame)
}

func TestResizeResetsRotation(t *testing.T) {
	fp := NewFramePipeline()
	fp.Resize(3)

	for i := 0; i < 5; i++ {
		frame := fp.BeginFrame()
		fp.AcquireVisibilityWrite(frame)
		fp.Complete(frame)
	}

	fp.Resize(8)
	assert.Equal(t, 8, fp.GroupCount())

	// Frame numbering restarts and warm-up applies again.
	frame := fp.BeginFrame()
	assert.Equal(t, int64(0), frame)
	_, ok := fp.ReadVisibility(frame)
	assert.False(t, ok)

	write := fp.AcquireVisibilityWrite(frame)
	assert.Len(t, write, 8)
	fp.Complete(frame)
}

func TestInFlightLimiterAccounting(t *testing.T) {
	fp := NewFramePipeline()
	fp.Resize(1)

	assert.Equal(t, 0, fp.InFlight())
	f0 := fp.BeginFrame()
	f1 := fp.BeginFrame()
	assert.Equal(t, 2, fp.InFlight())

	fp.Complete(f0)
	assert.Equal(t, 1, fp.InFlight())
	fp.Complete(f1)
	assert.Equal(t, 0, fp.InFlight())

	// A spurious completion must not panic or underflow.
	fp.Complete(99)
	assert.Equal(t, 0, fp.InFlight())
}

func TestUniformsRotateWithFrameNumber(t *testing.T) {
	fp := NewFramePipeline()

	a := fp.Uniforms(0)
	b := fp.Uniforms(1)
	assert.NotSame(t, a, b)
	// Frame N and N+depth share a physical slot.
	assert.Same(t, a, fp.Uniforms(MaxFramesInFlight))
}

func TestDepthMatchesConstant(t *testing.T) {
	fp := NewFramePipeline()
	assert.Equal(t, MaxFramesInFlight, fp.Depth())
}
