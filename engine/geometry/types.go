package geometry

import (
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// InstanceState mirrors the tri-state encoding shared with the device.
type InstanceState int32

const (
	InstanceStateDefault  InstanceState = 0
	InstanceStateHidden   InstanceState = 1
	InstanceStateSelected InstanceState = 2
)

// Instance is a placed occurrence of a mesh. Instances are immutable once the
// store reaches the ready state; the culling pipeline only ever reads them.
type Instance struct {
	// Stable identifier, unique within the store.
	ID uint32
	// Index of the color override in the colors buffer, -1 for none.
	ColorIndex int32
	// World-space transform.
	Matrix math.Mat4
	// Object-space bounds, as loaded.
	LocalBounds math.Extents3D
	// World-space bounds, recomputed whenever geometry loads or the
	// transform changes.
	Bounds math.Extents3D
	// Index of the mesh this instance places, -1 for none.
	Mesh int32
	State InstanceState
}

// Hidden reports whether the instance should be excluded from submission.
func (i *Instance) Hidden() bool {
	return i.State == InstanceStateHidden
}

// Submesh is an index range into the shared index buffer plus a material
// reference.
type Submesh struct {
	IndexOffset uint32
	IndexCount  uint32
	Material    int32
}

// Mesh is a contiguous range of submeshes. Immutable after load.
type Mesh struct {
	SubmeshOffset uint32
	SubmeshCount  uint32
}

// InstancedMesh identifies a contiguous run of instances sharing one mesh.
// It is the unit of culling and of a single indirect draw command.
type InstancedMesh struct {
	Mesh          uint32
	BaseInstance  uint32
	InstanceCount uint32
}

// Counts are the store totals reported to observability consumers.
type Counts struct {
	Instances       int
	Meshes          int
	Submeshes       int
	InstancedMeshes int
}
