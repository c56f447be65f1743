package math

import "github.com/chewxy/math32"

// NewExtents3D returns extents primed for accumulation: Min at +inf and Max
// at -inf, so the first Expand sets both.
func NewExtents3D() Extents3D {
	return Extents3D{
		Min: Vec3{X: math32.Inf(1), Y: math32.Inf(1), Z: math32.Inf(1)},
		Max: Vec3{X: math32.Inf(-1), Y: math32.Inf(-1), Z: math32.Inf(-1)},
	}
}

// IsValid reports whether the extents enclose at least one point.
func (e Extents3D) IsValid() bool {
	return e.Min.X <= e.Max.X && e.Min.Y <= e.Max.Y && e.Min.Z <= e.Max.Z
}

func (e Extents3D) Center() Vec3 {
	return Vec3{
		X: (e.Min.X + e.Max.X) * 0.5,
		Y: (e.Min.Y + e.Max.Y) * 0.5,
		Z: (e.Min.Z + e.Max.Z) * 0.5,
	}
}

func (e Extents3D) Size() Vec3 {
	return e.Max.Sub(e.Min)
}

// LongestAxis returns 0, 1 or 2 for the X, Y or Z axis.
func (e Extents3D) LongestAxis() int {
	size := e.Size()
	if size.X >= size.Y && size.X >= size.Z {
		return 0
	}
	if size.Y >= size.Z {
		return 1
	}
	return 2
}

// Expand grows the extents to include the point.
func (e Extents3D) Expand(p Vec3) Extents3D {
	return Extents3D{
		Min: Vec3{X: Min(e.Min.X, p.X), Y: Min(e.Min.Y, p.Y), Z: Min(e.Min.Z, p.Z)},
		Max: Vec3{X: Max(e.Max.X, p.X), Y: Max(e.Max.Y, p.Y), Z: Max(e.Max.Z, p.Z)},
	}
}

// Union returns the smallest extents enclosing both.
func (e Extents3D) Union(other Extents3D) Extents3D {
	return e.Expand(other.Min).Expand(other.Max)
}

// Corners returns the eight corners of the box.
func (e Extents3D) Corners() [8]Vec3 {
	return [8]Vec3{
		{X: e.Min.X, Y: e.Min.Y, Z: e.Min.Z},
		{X: e.Max.X, Y: e.Min.Y, Z: e.Min.Z},
		{X: e.Min.X, Y: e.Max.Y, Z: e.Min.Z},
		{X: e.Max.X, Y: e.Max.Y, Z: e.Min.Z},
		{X: e.Min.X, Y: e.Min.Y, Z: e.Max.Z},
		{X: e.Max.X, Y: e.Min.Y, Z: e.Max.Z},
		{X: e.Min.X, Y: e.Max.Y, Z: e.Max.Z},
		{X: e.Max.X, Y: e.Max.Y, Z: e.Max.Z},
	}
}

// Transform applies the matrix to all eight corners and returns the
// axis-aligned extents of the result.
func (e Extents3D) Transform(m Mat4) Extents3D {
	out := NewExtents3D()
	for _, corner := range e.Corners() {
		out = out.Expand(corner.Transform(m))
	}
	return out
}
