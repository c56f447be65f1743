package culling

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// NoopDepthTest never reports occlusion. The most conservative variant and
// the default.
type NoopDepthTest struct{}

func (NoopDepthTest) Name() string { return "noop" }

func (NoopDepthTest) Occluded(ProjectedBounds, VisibilityInput) bool { return false }

// DepthPyramid is a captured depth buffer reduced into max-depth mip levels.
// Level 0 is the full-resolution capture; each level above halves the
// resolution and keeps the farthest depth of the 2x2 footprint, so a sample
// is always an upper bound on the true depth of the covered pixels.
type DepthPyramid struct {
	levels  [][]float32
	widths  []int
	heights []int
}

// NewDepthPyramid reduces a captured depth buffer (one float per pixel,
// row-major, [0,1] range) into the full mip chain.
func NewDepthPyramid(depth []float32, width, height int) (*DepthPyramid, error) {
	if width <= 0 || height <= 0 || len(depth) != width*height {
		err := fmt.Errorf("func NewDepthPyramid - %dx%d does not match %d samples", width, height, len(depth))
		core.LogError(err.Error())
		return nil, err
	}
	p := &DepthPyramid{}
	level := make([]float32, len(depth))
	copy(level, depth)
	p.levels = append(p.levels, level)
	p.widths = append(p.widths, width)
	p.heights = append(p.heights, height)

	for width > 1 || height > 1 {
		nextW := math.Max(width/2, 1)
		nextH := math.Max(height/2, 1)
		next := make([]float32, nextW*nextH)
		for y := 0; y < nextH; y++ {
			for x := 0; x < nextW; x++ {
				next[y*nextW+x] = p.maxQuad(len(p.levels)-1, x*2, y*2)
			}
		}
		p.levels = append(p.levels, next)
		p.widths = append(p.widths, nextW)
		p.heights = append(p.heights, nextH)
		width, height = nextW, nextH
	}
	return p, nil
}

func (p *DepthPyramid) maxQuad(level, x, y int) float32 {
	w := p.widths[level]
	h := p.heights[level]
	max := float32(0)
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			sx := math.Min(x+dx, w-1)
			sy := math.Min(y+dy, h-1)
			if d := p.levels[level][sy*w+sx]; d > max {
				max = d
			}
		}
	}
	return max
}

// Levels returns the mip count.
func (p *DepthPyramid) Levels() int {
	return len(p.levels)
}

// Sample returns the depth at the pixel position on the given level, where
// x and y are full-resolution pixel coordinates.
func (p *DepthPyramid) Sample(level int, x, y float32) float32 {
	level = math.Clamp(level, 0, len(p.levels)-1)
	scale := float32(int(1) << uint(level))
	w := p.widths[level]
	h := p.heights[level]
	px := math.Clamp(int(x/scale), 0, w-1)
	py := math.Clamp(int(y/scale), 0, h-1)
	return p.levels[level][py*w+px]
}

// DepthPyramidTest compares the minimum projected depth of the box against
// the pyramid level whose texel footprint covers the projected rectangle.
type DepthPyramidTest struct {
	Pyramid *DepthPyramid
}

func (DepthPyramidTest) Name() string { return "depth-pyramid" }

func (t DepthPyramidTest) Occluded(bounds ProjectedBounds, in VisibilityInput) bool {
	if t.Pyramid == nil {
		return false
	}
	// Pick the level where one texel spans the larger rectangle dimension,
	// so the four corner samples cover the whole footprint.
	size := math.Max(bounds.MaxX-bounds.MinX, bounds.MaxY-bounds.MinY)
	if size <= 0 {
		return false
	}
	level := int(math32.Ceil(math32.Log2(size)))
	level = math.Clamp(level, 0, t.Pyramid.Levels()-1)

	farthest := t.Pyramid.Sample(level, bounds.MinX, bounds.MinY)
	farthest = math.Max(farthest, t.Pyramid.Sample(level, bounds.MaxX, bounds.MinY))
	farthest = math.Max(farthest, t.Pyramid.Sample(level, bounds.MinX, bounds.MaxY))
	farthest = math.Max(farthest, t.Pyramid.Sample(level, bounds.MaxX, bounds.MaxY))

	// Occluded only when the nearest point of the box is behind the
	// farthest recorded depth of everything already drawn there.
	return bounds.MinDepth > farthest
}

// BoundsDepthTest compares the minimum projected depth against a single
// captured full-resolution depth buffer at the rectangle center. Cheaper and
// noisier than the pyramid; kept for devices where the reduction pass is not
// worth it.
type BoundsDepthTest struct {
	Pyramid *DepthPyramid
}

func (BoundsDepthTest) Name() string { return "bounds" }

func (t BoundsDepthTest) Occluded(bounds ProjectedBounds, in VisibilityInput) bool {
	if t.Pyramid == nil {
		return false
	}
	cx := (bounds.MinX + bounds.MaxX) * 0.5
	cy := (bounds.MinY + bounds.MaxY) * 0.5
	return bounds.MinDepth > t.Pyramid.Sample(0, cx, cy)
}
