package components

import (
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// Camera holds the view and projection state the culling pipeline reads once
// per frame. Position and rotation go through the setters so the view matrix
// is rebuilt lazily.
type Camera struct {
	Position math.Vec3
	// Euler angles (pitch, yaw, roll) in radians.
	EulerRotation math.Vec3
	IsDirty       bool
	ViewMatrix    math.Mat4

	// Projection state. Rebuilt on viewport changes.
	FOVRadians  float32
	AspectRatio float32
	NearClip    float32
	FarClip     float32
	Projection  math.Mat4

	// Model-to-world transform applied to the whole scene ahead of the
	// view transform.
	SceneTransform math.Mat4
}

type CameraLookup struct {
	ID             uint16
	ReferenceCount uint16
	Camera         *Camera
}

// DEFAULT_CAMERA_NAME is the name of the fallback camera that always exists.
const DEFAULT_CAMERA_NAME string = "default"

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = math.NewVec3Zero()
	c.Position = math.NewVec3Zero()
	c.IsDirty = false
	c.ViewMatrix = math.NewMat4Identity()
	c.FOVRadians = math.DegToRad(45.0)
	c.AspectRatio = 16.0 / 9.0
	c.NearClip = 0.1
	c.FarClip = 1000.0
	c.Projection = math.NewMat4Perspective(c.FOVRadians, c.AspectRatio, c.NearClip, c.FarClip)
	c.SceneTransform = math.NewMat4Identity()
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() math.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation math.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

// SetViewport rebuilds the projection for a new aspect ratio.
func (c *Camera) SetViewport(width, height uint32) {
	if height == 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
	c.Projection = math.NewMat4Perspective(c.FOVRadians, c.AspectRatio, c.NearClip, c.FarClip)
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		rotation := math.NewMat4EulerXYZ(c.EulerRotation.X, c.EulerRotation.Y, c.EulerRotation.Z)
		translation := math.NewMat4Translation(c.Position)

		c.ViewMatrix = translation.Mul(rotation)
		c.ViewMatrix = c.ViewMatrix.Inverse()

		c.IsDirty = false
	}
	return c.ViewMatrix
}

// GetViewProjection composes projection * view * scene transform, the matrix
// frustum planes are extracted from.
func (c *Camera) GetViewProjection() math.Mat4 {
	return c.Projection.Mul(c.GetView().Mul(c.SceneTransform))
}

// GetFrustum extracts the world-space frustum for the current camera state.
func (c *Camera) GetFrustum() math.Frustum {
	return math.NewFrustumFromMatrix(c.GetViewProjection())
}

func (c *Camera) Forward() math.Vec3 {
	view := c.GetView()
	return view.Forward()
}

func (c *Camera) Backward() math.Vec3 {
	view := c.GetView()
	return view.Backward()
}

func (c *Camera) Left() math.Vec3 {
	view := c.GetView()
	return view.Left()
}

func (c *Camera) Right() math.Vec3 {
	view := c.GetView()
	return view.Right()
}

func (c *Camera) MoveForward(amount float32) {
	direction := c.Forward().MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true
}

func (c *Camera) MoveBackward(amount float32) {
	direction := c.Backward().MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true
}

func (c *Camera) MoveLeft(amount float32) {
	direction := c.Left().MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	direction := c.Right().MulScalar(amount)
	c.Position = c.Position.Add(direction)
	c.IsDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation.Y += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	// Avoid gimbal lock at straight up/down.
	limit := math.DegToRad(89.0)
	c.EulerRotation.X = math.Clamp(c.EulerRotation.X+amount, -limit, limit)
	c.IsDirty = true
}
