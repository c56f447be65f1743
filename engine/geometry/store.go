package geometry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// State is the load state of the geometry store. Culling queries are only
// allowed to run concurrently with rendering once the store is ready.
type State int32

const (
	StateUnknown State = iota
	StateLoading
	StateLoaded
	StateIndexing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Store owns the immutable-after-load instance, mesh and submesh arrays.
// A full reload replaces everything under a new generation; there are no
// partial updates.
type Store struct {
	mutex sync.RWMutex

	state      State
	generation uuid.UUID

	instances      []Instance
	meshes         []Mesh
	submeshes      []Submesh
	instancedMeshes []InstancedMesh

	// Shared geometry buffers, populated by the loader collaborator.
	Positions []math.Vertex3D
	Indices   []uint32

	// World-space bounds of the whole scene.
	extents math.Extents3D

	// The largest submesh count of any single mesh. Fixed upper bound for
	// the command-generation dispatch.
	maxSubmeshCount uint32
}

func NewStore() *Store {
	return &Store{
		state:   StateUnknown,
		extents: math.NewExtents3D(),
	}
}

// BeginLoad transitions the store into the loading state under a fresh
// generation. Any previously published arrays remain valid for frames already
// in flight; new frames observe the loading state and degrade.
func (s *Store) BeginLoad() uuid.UUID {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.generation = uuid.New()
	s.setStateLocked(StateLoading)
	core.LogInfo("geometry load started, generation %s", s.generation)
	return s.generation
}

// SetData installs the loaded arrays. Must be called between BeginLoad and
// FinishLoad.
func (s *Store) SetData(instances []Instance, meshes []Mesh, submeshes []Submesh, positions []math.Vertex3D, indices []uint32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateLoading {
		err := fmt.Errorf("func SetData - store is %s, expected loading", s.state)
		core.LogError(err.Error())
		return err
	}
	for i := range meshes {
		if int(meshes[i].SubmeshOffset+meshes[i].SubmeshCount) > len(submeshes) {
			err := fmt.Errorf("func SetData - mesh %d submesh range exceeds submesh array (%d)", i, len(submeshes))
			core.LogError(err.Error())
			s.setStateLocked(StateError)
			return err
		}
	}
	s.instances = instances
	s.meshes = meshes
	s.submeshes = submeshes
	s.Positions = positions
	s.Indices = indices
	s.setStateLocked(StateLoaded)
	return nil
}

// FinishLoad recomputes world bounds, groups instances into instanced meshes
// and publishes the ready state. Spatial index consumers listen for the
// indexing transition and rebuild.
func (s *Store) FinishLoad() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateLoaded {
		err := fmt.Errorf("func FinishLoad - store is %s, expected loaded", s.state)
		core.LogError(err.Error())
		return err
	}

	s.setStateLocked(StateIndexing)
	s.recomputeBoundsLocked()
	if err := s.buildInstancedMeshesLocked(); err != nil {
		s.setStateLocked(StateError)
		return err
	}
	s.setStateLocked(StateReady)
	core.LogInfo("geometry ready: %d instances, %d meshes, %d submeshes, %d instanced meshes",
		len(s.instances), len(s.meshes), len(s.submeshes), len(s.instancedMeshes))
	return nil
}

func (s *Store) setStateLocked(state State) {
	s.state = state
	context := core.EventContext{}
	context.Data.U32[0] = uint32(state)
	core.EventFire(core.EVENT_CODE_GEOMETRY_STATE, s, context)
}

// recomputeBoundsLocked refreshes every instance's world-space bounds from
// its local bounds and transform, and the scene extents from their union.
func (s *Store) recomputeBoundsLocked() {
	s.extents = math.NewExtents3D()
	for i := range s.instances {
		instance := &s.instances[i]
		instance.Bounds = instance.LocalBounds.Transform(instance.Matrix)
		s.extents = s.extents.Union(instance.Bounds)
	}
}

// drawMesh returns the mesh an instance submits with, or -1 when it does not
// participate. Hidden instances key like meshless ones so they fall out of
// every group.
func drawMesh(instance *Instance) int32 {
	if instance.Hidden() {
		return -1
	}
	return instance.Mesh
}

// buildInstancedMeshesLocked sorts instances into contiguous runs per mesh
// and records one InstancedMesh per distinct mesh that has at least one
// instance. Instances without a mesh, and hidden ones, sort first and are
// not grouped.
func (s *Store) buildInstancedMeshesLocked() error {
	sort.SliceStable(s.instances, func(i, j int) bool {
		return drawMesh(&s.instances[i]) < drawMesh(&s.instances[j])
	})

	s.instancedMeshes = s.instancedMeshes[:0]
	s.maxSubmeshCount = 0

	for base := 0; base < len(s.instances); {
		mesh := drawMesh(&s.instances[base])
		count := 1
		for base+count < len(s.instances) && drawMesh(&s.instances[base+count]) == mesh {
			count++
		}
		if mesh >= 0 {
			if int(mesh) >= len(s.meshes) {
				err := fmt.Errorf("func buildInstancedMeshes - instance references mesh %d of %d", mesh, len(s.meshes))
				core.LogError(err.Error())
				return err
			}
			s.instancedMeshes = append(s.instancedMeshes, InstancedMesh{
				Mesh:          uint32(mesh),
				BaseInstance:  uint32(base),
				InstanceCount: uint32(count),
			})
			if sc := s.meshes[mesh].SubmeshCount; sc > s.maxSubmeshCount {
				s.maxSubmeshCount = sc
			}
		}
		base += count
	}
	return nil
}

func (s *Store) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

func (s *Store) Generation() uuid.UUID {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.generation
}

// Instances returns the instance array. Read-only once ready.
func (s *Store) Instances() []Instance {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.instances
}

func (s *Store) Meshes() []Mesh {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.meshes
}

func (s *Store) Submeshes() []Submesh {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.submeshes
}

// InstancedMeshes returns the culling/draw units. Read-only once ready.
func (s *Store) InstancedMeshes() []InstancedMesh {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.instancedMeshes
}

// GroupBounds returns the world-space bounds of every instanced mesh, in
// instanced-mesh order. This is the spatial index build input.
func (s *Store) GroupBounds() []math.Extents3D {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	bounds := make([]math.Extents3D, len(s.instancedMeshes))
	for i, im := range s.instancedMeshes {
		box := math.NewExtents3D()
		for j := im.BaseInstance; j < im.BaseInstance+im.InstanceCount; j++ {
			box = box.Union(s.instances[j].Bounds)
		}
		bounds[i] = box
	}
	return bounds
}

func (s *Store) Extents() math.Extents3D {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.extents
}

// MaxSubmeshCount is the largest submesh count of any single mesh.
func (s *Store) MaxSubmeshCount() uint32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.maxSubmeshCount
}

func (s *Store) Counts() Counts {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return Counts{
		Instances:       len(s.instances),
		Meshes:          len(s.meshes),
		Submeshes:       len(s.submeshes),
		InstancedMeshes: len(s.instancedMeshes),
	}
}
