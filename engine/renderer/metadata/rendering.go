package metadata

import (
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// Capability flags reported by a renderer backend.
type Capability uint32

const (
	// The device supports boolean occlusion queries.
	CapabilityOcclusionQuery Capability = 1 << iota
	// The device can record draw commands into a device-resident command
	// list from a compute kernel.
	CapabilityIndirectCommandGeneration
)

func (c Capability) Has(flag Capability) bool {
	return c&flag != 0
}

// RenderPacket carries the per-frame inputs into a draw submission.
type RenderPacket struct {
	Frame     int64
	DeltaTime float64
}

// SceneBinding is the immutable-after-load scene the backend binds device
// buffers for: the culling/draw units plus the shared mesh tables.
type SceneBinding struct {
	Groups    []geometry.InstancedMesh
	Meshes    []geometry.Mesh
	Submeshes []geometry.Submesh
	// Instances in the sorted order the groups index into.
	Instances []geometry.Instance
	// Shared vertex and index buffers the draws source from.
	Positions []math.Vertex3D
	Indices   []uint32
	// World-space bounds per group, in group order.
	GroupBounds []math.Extents3D
	// The largest submesh count of any single mesh; fixes the second
	// dispatch dimension of command generation.
	MaxSubmeshCount uint32
}

// GroupCount returns the number of instanced-mesh groups.
func (s *SceneBinding) GroupCount() int {
	return len(s.Groups)
}
