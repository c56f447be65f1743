package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testFrustum() Frustum {
	// 90 degree square frustum at the origin, looking down -Z.
	projection := NewMat4Perspective(DegToRad(90), 1, 0.1, 100)
	return NewFrustumFromMatrix(projection)
}

func box(cx, cy, cz, half float32) Extents3D {
	return Extents3D{
		Min: Vec3{X: cx - half, Y: cy - half, Z: cz - half},
		Max: Vec3{X: cx + half, Y: cy + half, Z: cz + half},
	}
}

func TestFrustumPlanesFacePointInside(t *testing.T) {
	frustum := testFrustum()
	inside := Vec3{X: 0, Y: 0, Z: -10}
	for i, plane := range frustum.Planes {
		assert.Greater(t, plane.SignedDistance(inside), float32(0), "plane %d", i)
	}
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	frustum := testFrustum()
	for i, plane := range frustum.Planes {
		assert.InDelta(t, 1.0, plane.Normal.LengthSquared(), 1e-5, "plane %d", i)
	}
}

func TestFrustumIntersectsBoxInFront(t *testing.T) {
	frustum := testFrustum()
	assert.True(t, frustum.IntersectsExtents(box(0, 0, -10, 1)))
}

func TestFrustumRejectsBoxBehindCamera(t *testing.T) {
	frustum := testFrustum()
	assert.False(t, frustum.IntersectsExtents(box(0, 0, 10, 1)))
}

func TestFrustumRejectsBoxPastFarPlane(t *testing.T) {
	frustum := testFrustum()
	assert.False(t, frustum.IntersectsExtents(box(0, 0, -150, 1)))
}

func TestFrustumRejectsBoxOutsideSidePlane(t *testing.T) {
	frustum := testFrustum()
	// At z=-10 the 90 degree frustum is 10 units wide on each side.
	assert.False(t, frustum.IntersectsExtents(box(30, 0, -10, 1)))
}

func TestFrustumKeepsBoxStraddlingSidePlane(t *testing.T) {
	frustum := testFrustum()
	assert.True(t, frustum.IntersectsExtents(box(10, 0, -10, 2)))
}

func TestFrustumKeepsEnclosingBox(t *testing.T) {
	// A box that swallows the whole frustum has no plane with all corners
	// outside; the conservative test must keep it.
	frustum := testFrustum()
	assert.True(t, frustum.IntersectsExtents(box(0, 0, 0, 1000)))
}
