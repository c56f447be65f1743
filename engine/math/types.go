package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix stored column-major: Data[col*4+row].
type Mat4 struct {
	Data [16]float32
}

// Plane in the form ax + by + cz + d = 0. Points with a positive signed
// distance lie on the side the normal points to.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// Extents3D represents the axis-aligned extents of a 3d object.
type Extents3D struct {
	Min Vec3
	Max Vec3
}

// Vertex3D represents a single vertex in 3D space.
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
}
