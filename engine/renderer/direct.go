package renderer

import (
	"time"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// DirectOptions are the per-frame switches of the CPU-issued path.
type DirectOptions struct {
	// Occlusion testing off means the final visible set is exactly the
	// frustum-candidate set.
	OcclusionEnabled bool
	// Visualization draws the proxy geometry visibly and skips readback,
	// so the proxies can be inspected.
	Visualization bool
	// Wall-clock budget for the draw loop. Zero issues no draws at all;
	// negative disables the budget.
	FrameBudget time.Duration
}

// DirectPass is the CPU-issued path: occlusion-resolve the frustum
// candidates against the trailing result buffer, issue this frame's proxy
// queries, then submit the final visible set under the time budget.
type DirectPass struct {
	backend RendererBackend
	frames  *pipeline.FramePipeline
	clock   *core.Clock

	// Scratch for the resolved set. Filtering must not touch the candidate
	// slice itself: the full set is still needed for this frame's queries,
	// or occluded groups would never be re-tested.
	visible []int32
}

func NewDirectPass(backend RendererBackend, frames *pipeline.FramePipeline) *DirectPass {
	return &DirectPass{
		backend: backend,
		frames:  frames,
		clock:   core.NewClock(),
	}
}

// Run executes the pass for one frame and returns the final visible set
// (ordered ascending, inherited from the candidate ordering) and the number
// of draws issued.
func (p *DirectPass) Run(frame int64, candidates []int32, scene *metadata.SceneBinding, opts DirectOptions) ([]int32, int, error) {
	visible := p.resolve(frame, candidates, scene, opts)

	if opts.OcclusionEnabled {
		// Claim this frame's slot and issue the proxy queries the CPU
		// will read back a pipeline depth from now. Claiming happens
		// strictly after resolve so the trailing slot is consumed
		// before its physical buffer is reused.
		results := p.frames.AcquireVisibilityWrite(frame)
		if results == nil || len(results) < scene.GroupCount() {
			// Sized for a previous instance count. Skip the queries;
			// readback will degrade until the rotation catches up.
			core.LogDebug("direct pass: result buffer stale, skipping queries for frame %d", frame)
		} else if err := p.backend.DrawOcclusionProxies(frame, candidates, results, opts.Visualization); err != nil {
			return visible, 0, err
		}
	}

	drawn, err := p.draw(visible, opts.FrameBudget)
	return visible, drawn, err
}

// resolve reconciles the candidate set with the read-index occlusion
// results. Every degradation (warm-up, stale sizes, visualization,
// occlusion disabled) favors over-inclusion.
func (p *DirectPass) resolve(frame int64, candidates []int32, scene *metadata.SceneBinding, opts DirectOptions) []int32 {
	if !opts.OcclusionEnabled || opts.Visualization {
		return candidates
	}

	results, ok := p.frames.ReadVisibility(frame)
	if !ok {
		// Warm-up or the writing frame has not completed.
		return candidates
	}
	if len(results) < scene.GroupCount() {
		// Stale size after a reload: never index out of bounds.
		return candidates
	}

	p.visible = p.visible[:0]
	for _, group := range candidates {
		if results[group] != 0 {
			p.visible = append(p.visible, group)
		}
	}
	return p.visible
}

// draw issues one instanced draw per visible group until the budget is
// exhausted. Aborting the remainder is a soft real-time guarantee, not an
// error.
func (p *DirectPass) draw(visible []int32, budget time.Duration) (int, error) {
	p.clock.Start()
	drawn := 0
	for _, group := range visible {
		if budget >= 0 {
			p.clock.Update()
			if time.Duration(p.clock.Elapsed()*float64(time.Second)) >= budget {
				if drawn < len(visible) {
					core.LogDebug("direct pass: budget %s exhausted after %d of %d draws", budget, drawn, len(visible))
				}
				break
			}
		}
		if err := p.backend.DrawInstancedMesh(group); err != nil {
			return drawn, err
		}
		drawn++
	}
	return drawn, nil
}
