package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefiesta/VimKit-sub001/engine/math"
)

func unitBox() math.Extents3D {
	return math.Extents3D{
		Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5},
		Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
	}
}

func instanceAt(mesh int32, x float32) Instance {
	return Instance{
		ColorIndex:  -1,
		Matrix:      math.NewMat4Translation(math.Vec3{X: x}),
		LocalBounds: unitBox(),
		Mesh:        mesh,
	}
}

// testMeshes returns two meshes: mesh 0 with one submesh, mesh 1 with three.
func testMeshes() ([]Mesh, []Submesh) {
	meshes := []Mesh{
		{SubmeshOffset: 0, SubmeshCount: 1},
		{SubmeshOffset: 1, SubmeshCount: 3},
	}
	submeshes := []Submesh{
		{IndexOffset: 0, IndexCount: 36, Material: -1},
		{IndexOffset: 36, IndexCount: 12, Material: 0},
		{IndexOffset: 48, IndexCount: 24, Material: 1},
		{IndexOffset: 72, IndexCount: 6, Material: -1},
	}
	return meshes, submeshes
}

func loadTestScene(t *testing.T, instances []Instance) *Store {
	t.Helper()
	meshes, submeshes := testMeshes()
	store := NewStore()
	store.BeginLoad()
	require.NoError(t, store.SetData(instances, meshes, submeshes, nil, nil))
	require.NoError(t, store.FinishLoad())
	return store
}

func TestStoreGroupsInstancesByMesh(t *testing.T) {
	// Interleaved mesh references, plus one instance with no mesh at all.
	store := loadTestScene(t, []Instance{
		instanceAt(1, 0),
		instanceAt(0, 2),
		instanceAt(-1, 4),
		instanceAt(1, 6),
		instanceAt(0, 8),
	})

	groups := store.InstancedMeshes()
	require.Len(t, groups, 2)

	// Instances without a mesh sort first and are never grouped.
	assert.Equal(t, InstancedMesh{Mesh: 0, BaseInstance: 1, InstanceCount: 2}, groups[0])
	assert.Equal(t, InstancedMesh{Mesh: 1, BaseInstance: 3, InstanceCount: 2}, groups[1])

	for _, group := range groups {
		for i := group.BaseInstance; i < group.BaseInstance+group.InstanceCount; i++ {
			assert.Equal(t, int32(group.Mesh), store.Instances()[i].Mesh)
		}
	}

	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, uint32(3), store.MaxSubmeshCount())
}

func TestStoreExcludesHiddenInstances(t *testing.T) {
	hidden := instanceAt(0, 2)
	hidden.State = InstanceStateHidden
	store := loadTestScene(t, []Instance{
		instanceAt(0, 0),
		hidden,
		instanceAt(0, 4),
	})

	groups := store.InstancedMeshes()
	require.Len(t, groups, 1)
	assert.Equal(t, uint32(2), groups[0].InstanceCount)

	// The hidden instance also stays out of the group bounds.
	bounds := store.GroupBounds()
	require.Len(t, bounds, 1)
	for i := groups[0].BaseInstance; i < groups[0].BaseInstance+groups[0].InstanceCount; i++ {
		assert.False(t, store.Instances()[i].Hidden())
	}
}

func TestStoreGroupBoundsCoverMemberInstances(t *testing.T) {
	store := loadTestScene(t, []Instance{
		instanceAt(0, -4),
		instanceAt(0, 4),
	})

	bounds := store.GroupBounds()
	require.Len(t, bounds, 1)
	assert.InDelta(t, -4.5, bounds[0].Min.X, 1e-5)
	assert.InDelta(t, 4.5, bounds[0].Max.X, 1e-5)
}

func TestStoreWorldBoundsFollowTransform(t *testing.T) {
	store := loadTestScene(t, []Instance{instanceAt(0, 10)})

	instance := store.Instances()[0]
	assert.InDelta(t, 9.5, instance.Bounds.Min.X, 1e-5)
	assert.InDelta(t, 10.5, instance.Bounds.Max.X, 1e-5)

	extents := store.Extents()
	assert.True(t, extents.IsValid())
	assert.InDelta(t, 9.5, extents.Min.X, 1e-5)
}

func TestStoreRejectsOutOfRangeSubmeshes(t *testing.T) {
	store := NewStore()
	store.BeginLoad()
	meshes := []Mesh{{SubmeshOffset: 0, SubmeshCount: 5}}
	err := store.SetData(nil, meshes, []Submesh{{}}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, StateError, store.State())
}

func TestStoreRejectsOutOfRangeMeshReference(t *testing.T) {
	store := NewStore()
	store.BeginLoad()
	meshes, submeshes := testMeshes()
	require.NoError(t, store.SetData([]Instance{instanceAt(7, 0)}, meshes, submeshes, nil, nil))
	require.Error(t, store.FinishLoad())
	assert.Equal(t, StateError, store.State())
}

func TestStoreLoadStateMachine(t *testing.T) {
	store := NewStore()

	// SetData outside a load is rejected.
	require.Error(t, store.SetData(nil, nil, nil, nil, nil))
	require.Error(t, store.FinishLoad())

	first := store.BeginLoad()
	second := store.BeginLoad()
	assert.NotEqual(t, first, second, "every load gets a fresh generation")

	require.NoError(t, store.SetData(nil, nil, nil, nil, nil))
	require.NoError(t, store.FinishLoad())
	assert.Equal(t, StateReady, store.State())
	assert.Equal(t, second, store.Generation())
}

func TestStoreCounts(t *testing.T) {
	store := loadTestScene(t, []Instance{
		instanceAt(0, 0),
		instanceAt(1, 2),
	})
	counts := store.Counts()
	assert.Equal(t, 2, counts.Instances)
	assert.Equal(t, 2, counts.Meshes)
	assert.Equal(t, 4, counts.Submeshes)
	assert.Equal(t, 2, counts.InstancedMeshes)
}
