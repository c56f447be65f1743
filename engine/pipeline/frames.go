package pipeline

import (
	"sync"

	"github.com/codefiesta/VimKit-sub001/engine/containers"
	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// MaxFramesInFlight is the pipeline depth: how many frames the CPU may
// prepare ahead of device completion. Every buffer rotation and the in-flight
// limiter must agree on it, so it is a constant rather than a config knob.
const MaxFramesInFlight = 3

// FrameUniforms holds the camera state for one frame's submission.
type FrameUniforms struct {
	CameraPosition math.Vec3
	View           math.Mat4
	Projection     math.Mat4
	SceneTransform math.Mat4
	Frustum        math.Frustum
}

// visibilitySlot is one rotation slot of the occlusion result buffer: one
// word per instanced mesh, written by the device, read by the CPU once the
// device signals completion of the frame that wrote it.
type visibilitySlot struct {
	results []uint32
	// Frame number that wrote the slot, -1 when never written.
	frame int64
	// True once the device completed that frame.
	ready bool
}

// FramePipeline rotates MaxFramesInFlight copies of the per-frame uniform
// and visibility-result buffers. Frame N's results are consumed at frame
// N+MaxFramesInFlight, just before that frame claims the same physical slot
// for its own queries: the read cursor trails the write cursor by exactly
// the pipeline depth, and a counting semaphore blocks frame preparation
// while the device is a full pipeline behind.
//
// Within one frame the order is: BeginFrame -> ReadVisibility ->
// AcquireVisibilityWrite -> submit -> (device) Complete. Reading before
// claiming is what keeps the CPU from overwriting a slot it still has to
// consume.
type FramePipeline struct {
	mutex sync.Mutex

	uniforms   []FrameUniforms
	visibility *containers.Ring[visibilitySlot]

	inFlight chan struct{}

	frame      int64
	claimed    bool
	groupCount int
}

func NewFramePipeline() *FramePipeline {
	ring, _ := containers.NewRing[visibilitySlot](MaxFramesInFlight)
	fp := &FramePipeline{
		uniforms:   make([]FrameUniforms, MaxFramesInFlight),
		visibility: ring,
		inFlight:   make(chan struct{}, MaxFramesInFlight),
	}
	fp.resetSlotsLocked()
	return fp
}

func (fp *FramePipeline) resetSlotsLocked() {
	fp.visibility.Reset()
	for i := 0; i < MaxFramesInFlight; i++ {
		slot := fp.visibility.Slot(i)
		slot.results = make([]uint32, fp.groupCount)
		slot.frame = -1
		slot.ready = false
	}
}

func (fp *FramePipeline) Depth() int {
	return MaxFramesInFlight
}

// Resize re-sizes every buffer in the rotation for a new instanced-mesh
// count and resets both cursors to zero. Frames already in flight complete
// against their previously bound buffers; their completion signals are still
// accepted and only release the limiter.
func (fp *FramePipeline) Resize(groupCount int) {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()

	fp.groupCount = groupCount
	fp.frame = 0
	fp.claimed = false
	fp.resetSlotsLocked()
	core.LogDebug("frame pipeline resized for %d groups", groupCount)
}

func (fp *FramePipeline) GroupCount() int {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()
	return fp.groupCount
}

// BeginFrame blocks until fewer than MaxFramesInFlight frames are in flight,
// then returns the new frame number.
func (fp *FramePipeline) BeginFrame() int64 {
	fp.inFlight <- struct{}{}

	fp.mutex.Lock()
	defer fp.mutex.Unlock()

	frame := fp.frame
	fp.frame++
	return frame
}

// WriteIndex returns the rotation index frames are currently prepared in.
func (fp *FramePipeline) WriteIndex() int {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()
	return fp.visibility.WriteIndex()
}

// ReadIndex returns the rotation index results are consumed from.
func (fp *FramePipeline) ReadIndex() int {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()
	return fp.visibility.ReadIndex()
}

// Uniforms returns the uniform slot for the frame being prepared.
func (fp *FramePipeline) Uniforms(frame int64) *FrameUniforms {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()
	return &fp.uniforms[frame%MaxFramesInFlight]
}

// ReadVisibility consumes the oldest completed result buffer, which belongs
// to frame current-MaxFramesInFlight. It returns ok=false during pipeline
// warm-up, after a resize, or when the device has not completed the writing
// frame yet; callers degrade to "all candidates visible". Call before
// AcquireVisibilityWrite: the consumed slot is the one the current frame is
// about to claim.
func (fp *FramePipeline) ReadVisibility(current int64) ([]uint32, bool) {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()

	target := current - MaxFramesInFlight
	if target < 0 {
		return nil, false
	}

	// Discard completed slots nobody consumed (e.g. while visualization
	// mode was active, or while occlusion testing was toggled off).
	for {
		slot := fp.visibility.ReadSlot()
		if slot.ready && slot.frame < target {
			if _, err := fp.visibility.AdvanceRead(); err != nil {
				return nil, false
			}
			continue
		}
		break
	}

	slot := fp.visibility.ReadSlot()
	if !slot.ready || slot.frame != target {
		return nil, false
	}
	results := slot.results
	if _, err := fp.visibility.AdvanceRead(); err != nil {
		core.LogError("frame pipeline: %s", err.Error())
		return nil, false
	}
	return results, true
}

// AcquireVisibilityWrite claims the write slot for the given frame's
// occlusion queries and returns its result buffer, zeroed. The previous
// occupant of the physical slot must already have been consumed or
// discarded.
func (fp *FramePipeline) AcquireVisibilityWrite(frame int64) []uint32 {
	fp.mutex.Lock()
	defer fp.mutex.Unlock()

	if fp.claimed {
		if _, err := fp.visibility.AdvanceWrite(); err != nil {
			// The oldest slot completed but was never consumed.
			// Discard it to keep the rotation moving.
			if _, rerr := fp.visibility.AdvanceRead(); rerr == nil {
				fp.visibility.AdvanceWrite()
			} else {
				core.LogError("frame pipeline: %s", err.Error())
				return nil
			}
		}
	} else {
		fp.claimed = true
	}

	slot := fp.visibility.WriteSlot()
	if slot.frame >= 0 && !slot.ready {
		// The limiter should make this impossible.
		core.LogError("frame pipeline: overwriting slot of incomplete frame %d", slot.frame)
	}
	slot.frame = frame
	slot.ready = false
	for i := range slot.results {
		slot.results[i] = 0
	}
	return slot.results
}

// Complete is the device completion callback for a frame's submission. It
// marks the frame's result slot readable and releases one in-flight token.
func (fp *FramePipeline) Complete(frame int64) {
	fp.mutex.Lock()
	slot := fp.visibility.Slot(int(frame % MaxFramesInFlight))
	if slot.frame == frame {
		slot.ready = true
	}
	fp.mutex.Unlock()

	select {
	case <-fp.inFlight:
	default:
		core.LogWarn("frame pipeline: completion for frame %d with no frame in flight", frame)
	}
}

// InFlight reports how many frames are currently between BeginFrame and
// Complete.
func (fp *FramePipeline) InFlight() int {
	return len(fp.inFlight)
}
