package culling

import (
	"sync"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// DefaultMinInstancedMeshes is the group count below which frustum culling
// is skipped entirely: traversal costs more than it saves on small scenes.
const DefaultMinInstancedMeshes = 1024

type CullerConfig struct {
	// Frustum culling only runs when the scene holds at least this many
	// instanced meshes.
	MinInstancedMeshes int
}

// Culler wraps the spatial index with the activation policy and the
// degradation rules: below the threshold, or while the index is absent,
// every group is a candidate. Over-drawing is always preferred to dropped
// geometry.
type Culler struct {
	mutex  sync.RWMutex
	config CullerConfig
	bvh    *BVH
	count  int
}

func NewCuller(config CullerConfig) *Culler {
	if config.MinInstancedMeshes <= 0 {
		config.MinInstancedMeshes = DefaultMinInstancedMeshes
	}
	return &Culler{config: config}
}

// Rebuild constructs a fresh index over the group bounds. Called on the
// geometry ready transition only; there are no partial updates.
func (c *Culler) Rebuild(boxes []math.Extents3D) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.count = len(boxes)
	if c.count < c.config.MinInstancedMeshes {
		// Not worth indexing. Candidates degrade to "all groups".
		c.bvh = nil
		core.LogDebug("culler: %d groups below threshold %d, index skipped", c.count, c.config.MinInstancedMeshes)
		return
	}
	c.bvh = NewBVH(boxes)
	core.LogDebug("culler: index rebuilt over %d groups", c.count)
}

// Invalidate drops the index, e.g. when a reload begins.
func (c *Culler) Invalidate() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.bvh = nil
	c.count = 0
}

// Candidates returns the indices of every instanced mesh whose bounds may
// intersect the frustum, sorted ascending. The result is always a superset
// of the truly visible set. Identical camera and geometry yield an identical
// result.
func (c *Culler) Candidates(frustum math.Frustum, out []int32) []int32 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out = out[:0]
	if c.bvh == nil || c.count < c.config.MinInstancedMeshes {
		for i := 0; i < c.count; i++ {
			out = append(out, int32(i))
		}
		return out
	}
	return c.bvh.Query(frustum, out)
}

// GroupCount reports the number of groups the culler currently covers.
func (c *Culler) GroupCount() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.count
}
