package culling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefiesta/VimKit-sub001/engine/math"
)

func testFrustum() math.Frustum {
	projection := math.NewMat4Perspective(math.DegToRad(90), 1, 0.1, 100)
	return math.NewFrustumFromMatrix(projection)
}

// rowOfBoxes places count unit boxes along the X axis at z=-10, centered on
// the view axis, so roughly the middle fifth falls inside the test frustum.
func rowOfBoxes(count int) []math.Extents3D {
	boxes := make([]math.Extents3D, count)
	for i := range boxes {
		x := float32(i-count/2) * 2
		boxes[i] = math.Extents3D{
			Min: math.Vec3{X: x - 0.5, Y: -0.5, Z: -10.5},
			Max: math.Vec3{X: x + 0.5, Y: 0.5, Z: -9.5},
		}
	}
	return boxes
}

func bruteForce(frustum math.Frustum, boxes []math.Extents3D) []int32 {
	var out []int32
	for i, box := range boxes {
		if frustum.IntersectsExtents(box) {
			out = append(out, int32(i))
		}
	}
	return out
}

func TestNewBVHEmptyInput(t *testing.T) {
	assert.Nil(t, NewBVH(nil))
}

func TestBVHQueryMatchesBruteForce(t *testing.T) {
	boxes := rowOfBoxes(200)
	bvh := NewBVH(boxes)
	require.NotNil(t, bvh)
	assert.Equal(t, 200, bvh.Len())

	frustum := testFrustum()
	got := bvh.Query(frustum, nil)
	want := bruteForce(frustum, boxes)

	require.NotEmpty(t, want, "fixture must keep some boxes visible")
	require.Less(t, len(want), len(boxes), "fixture must cull some boxes")
	assert.Equal(t, want, got)
}

func TestBVHQueryIsDeterministic(t *testing.T) {
	boxes := rowOfBoxes(64)
	bvh := NewBVH(boxes)
	frustum := testFrustum()

	first := bvh.Query(frustum, nil)
	second := bvh.Query(frustum, nil)
	assert.Equal(t, first, second)
}

func TestBVHQueryResultIsSorted(t *testing.T) {
	boxes := rowOfBoxes(100)
	bvh := NewBVH(boxes)

	out := bvh.Query(testFrustum(), nil)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1], out[i])
	}
}

func TestBVHSingleBox(t *testing.T) {
	boxes := rowOfBoxes(1)
	bvh := NewBVH(boxes)
	out := bvh.Query(testFrustum(), nil)
	assert.Equal(t, []int32{0}, out)
}

func TestCullerBelowThresholdReturnsAllGroups(t *testing.T) {
	culler := NewCuller(CullerConfig{MinInstancedMeshes: 1000})
	culler.Rebuild(rowOfBoxes(10))

	got := culler.Candidates(testFrustum(), nil)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, 10, culler.GroupCount())
}

func TestCullerAboveThresholdUsesIndex(t *testing.T) {
	boxes := rowOfBoxes(100)
	culler := NewCuller(CullerConfig{MinInstancedMeshes: 1})
	culler.Rebuild(boxes)

	frustum := testFrustum()
	got := culler.Candidates(frustum, nil)
	assert.Equal(t, bruteForce(frustum, boxes), got)
}

func TestCullerInvalidate(t *testing.T) {
	culler := NewCuller(CullerConfig{MinInstancedMeshes: 1})
	culler.Rebuild(rowOfBoxes(100))
	culler.Invalidate()

	assert.Empty(t, culler.Candidates(testFrustum(), nil))
	assert.Equal(t, 0, culler.GroupCount())
}

func TestCullerReusesScratchSlice(t *testing.T) {
	culler := NewCuller(CullerConfig{MinInstancedMeshes: 1})
	culler.Rebuild(rowOfBoxes(100))

	frustum := testFrustum()
	scratch := culler.Candidates(frustum, nil)
	again := culler.Candidates(frustum, scratch)
	assert.Equal(t, scratch, again)
}

func TestCullerDefaultThreshold(t *testing.T) {
	culler := NewCuller(CullerConfig{})
	culler.Rebuild(rowOfBoxes(10))
	// Ten groups sit far below the default threshold, so no box is culled
	// even though most are outside the frustum.
	assert.Len(t, culler.Candidates(testFrustum(), nil), 10)
}
