package culling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefiesta/VimKit-sub001/engine/math"
)

func testInput() VisibilityInput {
	projection := math.NewMat4Perspective(math.DegToRad(90), 1, 0.1, 100)
	return VisibilityInput{
		ViewProjection: projection,
		Frustum:        math.NewFrustumFromMatrix(projection),
		ScreenWidth:    100,
		ScreenHeight:   100,
	}
}

func centeredBox(cx, cy, cz, half float32) math.Extents3D {
	return math.Extents3D{
		Min: math.Vec3{X: cx - half, Y: cy - half, Z: cz - half},
		Max: math.Vec3{X: cx + half, Y: cy + half, Z: cz + half},
	}
}

func TestProjectBoxInFront(t *testing.T) {
	in := testInput()
	projected := Project(centeredBox(0, 0, -10, 1), in)

	assert.False(t, projected.CrossesNear)
	assert.Greater(t, projected.Area(), float32(0))
	// Centered box projects symmetrically around the screen center.
	assert.InDelta(t, 50, (projected.MinX+projected.MaxX)*0.5, 0.5)
	assert.InDelta(t, 50, (projected.MinY+projected.MaxY)*0.5, 0.5)
}

func TestProjectNearerBoxCoversMorePixels(t *testing.T) {
	in := testInput()
	near := Project(centeredBox(0, 0, -5, 1), in)
	far := Project(centeredBox(0, 0, -50, 1), in)
	assert.Greater(t, near.Area(), far.Area())
}

func TestProjectBoxCrossingNearPlane(t *testing.T) {
	in := testInput()
	// The camera sits inside this box, so a corner lands behind the eye.
	projected := Project(centeredBox(0, 0, 0, 5), in)
	assert.True(t, projected.CrossesNear)
}

func TestProjectClampsToViewport(t *testing.T) {
	in := testInput()
	// Large and close: overhangs the screen on every side.
	projected := Project(centeredBox(0, 0, -2, 4), in)
	assert.GreaterOrEqual(t, projected.MinX, float32(0))
	assert.GreaterOrEqual(t, projected.MinY, float32(0))
	assert.LessOrEqual(t, projected.MaxX, in.ScreenWidth)
	assert.LessOrEqual(t, projected.MaxY, in.ScreenHeight)
}

func TestPredicateFrustumOnly(t *testing.T) {
	predicate := NewVisibilityPredicate(VisibilityOptions{}, nil)
	in := testInput()

	assert.True(t, predicate.Visible(centeredBox(0, 0, -10, 1), in))
	assert.False(t, predicate.Visible(centeredBox(0, 0, 10, 1), in))
}

func TestPredicateContributionRejectsTinyBoxes(t *testing.T) {
	in := testInput()
	tiny := centeredBox(0, 0, -90, 0.05)

	relaxed := NewVisibilityPredicate(VisibilityOptions{}, nil)
	assert.True(t, relaxed.Visible(tiny, in), "in frustum, so visible without the test")

	strict := NewVisibilityPredicate(VisibilityOptions{
		ContributionTestEnabled: true,
		MinContributionArea:     16,
	}, nil)
	assert.False(t, strict.Visible(tiny, in))
	assert.True(t, strict.Visible(centeredBox(0, 0, -10, 1), in), "large box passes")
}

func TestPredicateNearCrossingBoxAlwaysDraws(t *testing.T) {
	// Projection is meaningless for a box enclosing the camera; every
	// optional test must step aside.
	strict := NewVisibilityPredicate(VisibilityOptions{
		ContributionTestEnabled: true,
		MinContributionArea:     1e9,
		DepthTestEnabled:        true,
	}, alwaysOccluded{})
	assert.True(t, strict.Visible(centeredBox(0, 0, 0, 5), testInput()))
}

type alwaysOccluded struct{}

func (alwaysOccluded) Name() string { return "always" }

func (alwaysOccluded) Occluded(ProjectedBounds, VisibilityInput) bool { return true }

func TestPredicateDepthTestRejectsOccluded(t *testing.T) {
	in := testInput()
	box := centeredBox(0, 0, -10, 1)

	off := NewVisibilityPredicate(VisibilityOptions{}, alwaysOccluded{})
	assert.True(t, off.Visible(box, in), "depth test disabled, collaborator ignored")

	on := NewVisibilityPredicate(VisibilityOptions{DepthTestEnabled: true}, alwaysOccluded{})
	assert.False(t, on.Visible(box, in))
}

func TestNoopDepthTestNeverOccludes(t *testing.T) {
	bounds := ProjectedBounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10, MinDepth: 1}
	assert.False(t, NoopDepthTest{}.Occluded(bounds, testInput()))
}

func TestDepthPyramidReduction(t *testing.T) {
	// One far pixel must survive max-reduction to the top level.
	depth := make([]float32, 16)
	for i := range depth {
		depth[i] = 0.25
	}
	depth[5] = 0.9

	pyramid, err := NewDepthPyramid(depth, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, pyramid.Levels())
	assert.Equal(t, float32(0.9), pyramid.Sample(2, 0, 0))
	assert.Equal(t, float32(0.25), pyramid.Sample(0, 0, 0))
}

func TestDepthPyramidRejectsMismatchedSize(t *testing.T) {
	_, err := NewDepthPyramid(make([]float32, 10), 4, 4)
	require.Error(t, err)
}

func TestDepthPyramidTestOcclusion(t *testing.T) {
	// Uniform scene depth of 0.5 at 8x8.
	depth := make([]float32, 64)
	for i := range depth {
		depth[i] = 0.5
	}
	pyramid, err := NewDepthPyramid(depth, 8, 8)
	require.NoError(t, err)

	test := DepthPyramidTest{Pyramid: pyramid}
	in := testInput()

	behind := ProjectedBounds{MinX: 1, MinY: 1, MaxX: 6, MaxY: 6, MinDepth: 0.8}
	assert.True(t, test.Occluded(behind, in))

	inFront := ProjectedBounds{MinX: 1, MinY: 1, MaxX: 6, MaxY: 6, MinDepth: 0.2}
	assert.False(t, inFront.MinDepth > 0.5)
	assert.False(t, test.Occluded(inFront, in))
}

func TestDepthPyramidTestNilPyramid(t *testing.T) {
	bounds := ProjectedBounds{MaxX: 10, MaxY: 10, MinDepth: 1}
	assert.False(t, DepthPyramidTest{}.Occluded(bounds, testInput()))
	assert.False(t, BoundsDepthTest{}.Occluded(bounds, testInput()))
}

func TestBoundsDepthTestSamplesCenter(t *testing.T) {
	// Near half 0.2, far half 0.9, split down the middle of an 8x8 capture.
	depth := make([]float32, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				depth[y*8+x] = 0.2
			} else {
				depth[y*8+x] = 0.9
			}
		}
	}
	pyramid, err := NewDepthPyramid(depth, 8, 8)
	require.NoError(t, err)

	test := BoundsDepthTest{Pyramid: pyramid}
	in := testInput()

	overNear := ProjectedBounds{MinX: 0, MinY: 0, MaxX: 3, MaxY: 7, MinDepth: 0.5}
	assert.True(t, test.Occluded(overNear, in))

	overFar := ProjectedBounds{MinX: 4, MinY: 0, MaxX: 7, MaxY: 7, MinDepth: 0.5}
	assert.False(t, test.Occluded(overFar, in))
}
