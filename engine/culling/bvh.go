package culling

import (
	"sort"

	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// Leaves hold at most this many boxes before splitting stops.
const bvhLeafSize = 4

// bvhNode is a bounding box plus either two child indices or a leaf range
// into the build order.
type bvhNode struct {
	bounds math.Extents3D
	// Child node indices, -1 for a leaf.
	left, right int32
	// Leaf range into the order array.
	start, count int32
}

func (n *bvhNode) leaf() bool {
	return n.left < 0
}

// BVH is a bounding-volume hierarchy built bottom-up once per geometry load
// over the instanced-mesh group bounds. Read-only after construction; a
// geometry reload builds a new one.
type BVH struct {
	nodes []bvhNode
	// Group indices, partitioned into leaf ranges.
	order []int32
	boxes []math.Extents3D
}

// NewBVH constructs the hierarchy from the group bounds, median-splitting on
// the longest axis. A nil result is returned for empty input.
func NewBVH(boxes []math.Extents3D) *BVH {
	if len(boxes) == 0 {
		return nil
	}
	b := &BVH{
		order: make([]int32, len(boxes)),
		boxes: boxes,
		nodes: make([]bvhNode, 0, 2*len(boxes)),
	}
	for i := range b.order {
		b.order[i] = int32(i)
	}
	b.build(0, int32(len(boxes)))
	return b
}

// build recursively creates the node covering order[start:start+count] and
// returns its index.
func (b *BVH) build(start, count int32) int32 {
	bounds := math.NewExtents3D()
	for _, idx := range b.order[start : start+count] {
		bounds = bounds.Union(b.boxes[idx])
	}

	index := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{
		bounds: bounds,
		left:   -1,
		right:  -1,
		start:  start,
		count:  count,
	})

	if count <= bvhLeafSize {
		return index
	}

	axis := bounds.LongestAxis()
	span := b.order[start : start+count]
	sort.Slice(span, func(i, j int) bool {
		return centerAxis(b.boxes[span[i]], axis) < centerAxis(b.boxes[span[j]], axis)
	})

	half := count / 2
	left := b.build(start, half)
	right := b.build(start+half, count-half)
	b.nodes[index].left = left
	b.nodes[index].right = right
	return index
}

func centerAxis(box math.Extents3D, axis int) float32 {
	c := box.Center()
	switch axis {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// Query appends to out every group index whose bounds are not fully outside
// the frustum, sorted ascending. The per-box test is conservative, so the
// result may contain false positives but never misses a visible group.
func (b *BVH) Query(frustum math.Frustum, out []int32) []int32 {
	out = b.query(0, frustum, out)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *BVH) query(node int32, frustum math.Frustum, out []int32) []int32 {
	n := &b.nodes[node]
	if !frustum.IntersectsExtents(n.bounds) {
		// Every contained box shares the rejecting plane. Safe to prune.
		return out
	}
	if n.leaf() {
		for _, idx := range b.order[n.start : n.start+n.count] {
			if frustum.IntersectsExtents(b.boxes[idx]) {
				out = append(out, idx)
			}
		}
		return out
	}
	out = b.query(n.left, frustum, out)
	out = b.query(n.right, frustum, out)
	return out
}

// Len returns the number of indexed groups.
func (b *BVH) Len() int {
	return len(b.boxes)
}
