package math

import "github.com/chewxy/math32"

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that the positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane
}

// Frustum plane indices.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// SignedDistance returns the signed distance of the point from the plane.
func (p Plane) SignedDistance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// NewFrustumFromMatrix extracts the six frustum planes from a combined
// view-projection matrix using the Gribb/Hartmann method, then normalizes
// them so signed distances are in world units.
func NewFrustumFromMatrix(viewProj Mat4) Frustum {
	m := viewProj.Data
	var f Frustum

	// Left: row3 + row0
	f.Planes[FrustumLeft] = Plane{
		Normal:   Vec3{X: m[3] + m[0], Y: m[7] + m[4], Z: m[11] + m[8]},
		Distance: m[15] + m[12],
	}
	// Right: row3 - row0
	f.Planes[FrustumRight] = Plane{
		Normal:   Vec3{X: m[3] - m[0], Y: m[7] - m[4], Z: m[11] - m[8]},
		Distance: m[15] - m[12],
	}
	// Bottom: row3 + row1
	f.Planes[FrustumBottom] = Plane{
		Normal:   Vec3{X: m[3] + m[1], Y: m[7] + m[5], Z: m[11] + m[9]},
		Distance: m[15] + m[13],
	}
	// Top: row3 - row1
	f.Planes[FrustumTop] = Plane{
		Normal:   Vec3{X: m[3] - m[1], Y: m[7] - m[5], Z: m[11] - m[9]},
		Distance: m[15] - m[13],
	}
	// Near: row3 + row2
	f.Planes[FrustumNear] = Plane{
		Normal:   Vec3{X: m[3] + m[2], Y: m[7] + m[6], Z: m[11] + m[10]},
		Distance: m[15] + m[14],
	}
	// Far: row3 - row2
	f.Planes[FrustumFar] = Plane{
		Normal:   Vec3{X: m[3] - m[2], Y: m[7] - m[6], Z: m[11] - m[10]},
		Distance: m[15] - m[14],
	}

	for i := range f.Planes {
		p := &f.Planes[i]
		length := math32.Sqrt(p.Normal.LengthSquared())
		if length > 0 {
			invLen := 1.0 / length
			p.Normal = p.Normal.MulScalar(invLen)
			p.Distance *= invLen
		}
	}
	return f
}

// IntersectsExtents is the conservative box test: the box is rejected only
// when all eight corners lie on the negative side of the same plane. It can
// report false positives, never false negatives.
func (f Frustum) IntersectsExtents(box Extents3D) bool {
	corners := box.Corners()
	for _, plane := range f.Planes {
		outside := 0
		for _, corner := range corners {
			if plane.SignedDistance(corner) < 0 {
				outside++
			}
		}
		if outside == len(corners) {
			return false
		}
	}
	return true
}
