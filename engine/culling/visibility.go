package culling

import (
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// VisibilityInput is the per-frame camera state every visibility test reads.
type VisibilityInput struct {
	ViewProjection math.Mat4
	Frustum        math.Frustum
	// Viewport size in pixels, used by the contribution test.
	ScreenWidth  float32
	ScreenHeight float32
}

// VisibilityOptions are the configuration switches for the optional tests.
type VisibilityOptions struct {
	ContributionTestEnabled bool
	// Groups whose projected bounds cover fewer pixels than this are
	// rejected when the contribution test is enabled.
	MinContributionArea float32
	DepthTestEnabled    bool
}

// ProjectedBounds is the screen-space footprint of a world-space box:
// a pixel rectangle and the minimum normalized depth over the corners, both
// computed after the perspective divide.
type ProjectedBounds struct {
	MinX, MinY float32
	MaxX, MaxY float32
	MinDepth   float32
	// True when any corner sits on or behind the near plane. Projection is
	// meaningless there, so callers must treat the box as visible.
	CrossesNear bool
}

// Area returns the covered pixel area.
func (p ProjectedBounds) Area() float32 {
	w := p.MaxX - p.MinX
	h := p.MaxY - p.MinY
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// Project computes the screen-space bounds of the box. Every comparison
// downstream happens in the same projected space: divide by w first, then
// compare.
func Project(box math.Extents3D, in VisibilityInput) ProjectedBounds {
	out := ProjectedBounds{
		MinX: in.ScreenWidth, MinY: in.ScreenHeight,
		MaxX: 0, MaxY: 0,
		MinDepth: 1.0,
	}
	for _, corner := range box.Corners() {
		clip := in.ViewProjection.MulVec4(corner.ToVec4(1.0))
		if clip.W <= 0 {
			out.CrossesNear = true
			return out
		}
		invW := 1.0 / clip.W
		// NDC -> pixels.
		x := (clip.X*invW*0.5 + 0.5) * in.ScreenWidth
		y := (clip.Y*invW*0.5 + 0.5) * in.ScreenHeight
		depth := clip.Z * invW

		out.MinX = math.Min(out.MinX, x)
		out.MinY = math.Min(out.MinY, y)
		out.MaxX = math.Max(out.MaxX, x)
		out.MaxY = math.Max(out.MaxY, y)
		out.MinDepth = math.Min(out.MinDepth, depth)
	}
	// Clamp to the viewport so off-screen overhang does not inflate area.
	out.MinX = math.Clamp(out.MinX, 0, in.ScreenWidth)
	out.MaxX = math.Clamp(out.MaxX, 0, in.ScreenWidth)
	out.MinY = math.Clamp(out.MinY, 0, in.ScreenHeight)
	out.MaxY = math.Clamp(out.MaxY, 0, in.ScreenHeight)
	return out
}

// DepthTest decides whether a projected box is occluded by previously drawn
// geometry. Implementations vary from "never" to a captured depth pyramid;
// the indirect pass takes one at construction.
type DepthTest interface {
	Name() string
	Occluded(bounds ProjectedBounds, in VisibilityInput) bool
}

// VisibilityPredicate is the single authoritative visibility decision. The
// direct path evaluates it on the CPU; the device kernel encodes the same
// numeric tests, and the software device executes this exact code so the two
// can be cross-checked on identical inputs.
type VisibilityPredicate struct {
	Options VisibilityOptions
	Depth   DepthTest
}

func NewVisibilityPredicate(options VisibilityOptions, depth DepthTest) *VisibilityPredicate {
	if depth == nil {
		depth = NoopDepthTest{}
	}
	return &VisibilityPredicate{Options: options, Depth: depth}
}

// Visible reports whether a group with the given world bounds should draw.
func (p *VisibilityPredicate) Visible(box math.Extents3D, in VisibilityInput) bool {
	if !in.Frustum.IntersectsExtents(box) {
		return false
	}
	if !p.Options.ContributionTestEnabled && !p.Options.DepthTestEnabled {
		return true
	}
	projected := Project(box, in)
	if projected.CrossesNear {
		// No reliable projection. Draw it.
		return true
	}
	if p.Options.ContributionTestEnabled && projected.Area() < p.Options.MinContributionArea {
		return false
	}
	if p.Options.DepthTestEnabled && p.Depth.Occluded(projected, in) {
		return false
	}
	return true
}
