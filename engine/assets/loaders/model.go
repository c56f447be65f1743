package loaders

import (
	"encoding/binary"
	"fmt"

	"github.com/qmuntal/gltf"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/math"
	math64 "math"
)

// ModelLoader reads glTF/GLB documents into the geometry store's flat
// arrays: one mesh per glTF mesh, one submesh per triangle primitive, one
// instance per scene node that places a mesh. Vertex offsets are baked into
// the index data so draws never need a base vertex.
type ModelLoader struct{}

func NewModelLoader() *ModelLoader {
	return &ModelLoader{}
}

// Result holds the loaded arrays, ready for Store.SetData.
type Result struct {
	Instances []geometry.Instance
	Meshes    []geometry.Mesh
	Submeshes []geometry.Submesh
	Positions []math.Vertex3D
	Indices   []uint32
}

// Load parses the document at path.
func (l *ModelLoader) Load(path string) (*Result, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("func Load - open %s: %w", path, err)
	}

	result := &Result{}
	// Per-mesh object-space bounds, reused for every placing instance.
	meshBounds := make([]math.Extents3D, len(doc.Meshes))

	for mi, m := range doc.Meshes {
		submeshOffset := uint32(len(result.Submeshes))
		bounds := math.NewExtents3D()

		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				// Lines and points do not participate in culling or draws.
				continue
			}
			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			positions, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("func Load - mesh %d positions: %w", mi, err)
			}
			var normals [][3]float32
			if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
				normals, err = readVec3Accessor(doc, normIdx)
				if err != nil {
					return nil, fmt.Errorf("func Load - mesh %d normals: %w", mi, err)
				}
			}

			baseVertex := uint32(len(result.Positions))
			for i := range positions {
				vertex := math.Vertex3D{
					Position: math.NewVec3(positions[i][0], positions[i][1], positions[i][2]),
				}
				if i < len(normals) {
					vertex.Normal = math.NewVec3(normals[i][0], normals[i][1], normals[i][2])
				}
				result.Positions = append(result.Positions, vertex)
				bounds = bounds.Expand(vertex.Position)
			}

			indexOffset := uint32(len(result.Indices))
			if prim.Indices != nil {
				indices, err := readIndexAccessor(doc, *prim.Indices)
				if err != nil {
					return nil, fmt.Errorf("func Load - mesh %d indices: %w", mi, err)
				}
				for _, index := range indices {
					result.Indices = append(result.Indices, baseVertex+index)
				}
			} else {
				// Non-indexed primitive: sequential triangles.
				for i := 0; i < len(positions); i++ {
					result.Indices = append(result.Indices, baseVertex+uint32(i))
				}
			}

			material := int32(-1)
			if prim.Material != nil {
				material = int32(*prim.Material)
			}
			result.Submeshes = append(result.Submeshes, geometry.Submesh{
				IndexOffset: indexOffset,
				IndexCount:  uint32(len(result.Indices)) - indexOffset,
				Material:    material,
			})
		}

		meshBounds[mi] = bounds
		result.Meshes = append(result.Meshes, geometry.Mesh{
			SubmeshOffset: submeshOffset,
			SubmeshCount:  uint32(len(result.Submeshes)) - submeshOffset,
		})
	}

	l.collectInstances(doc, meshBounds, result)

	core.LogInfo("loaded %s: %d instances, %d meshes, %d submeshes, %d vertices",
		path, len(result.Instances), len(result.Meshes), len(result.Submeshes), len(result.Positions))
	return result, nil
}

// collectInstances walks the scene graph and records one instance per node
// that places a mesh, with the accumulated world transform.
func (l *ModelLoader) collectInstances(doc *gltf.Document, meshBounds []math.Extents3D, result *Result) {
	var sceneNodes []int
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		sceneNodes = doc.Scenes[*doc.Scene].Nodes
	} else if len(doc.Scenes) > 0 {
		sceneNodes = doc.Scenes[0].Nodes
	}

	var walk func(nodeIndex int, parent math.Mat4)
	walk = func(nodeIndex int, parent math.Mat4) {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return
		}
		node := doc.Nodes[nodeIndex]
		world := parent.Mul(nodeMatrix(node))

		if node.Mesh != nil && *node.Mesh < len(meshBounds) {
			mesh := int32(*node.Mesh)
			result.Instances = append(result.Instances, geometry.Instance{
				ID:          core.IdentifierAquireNewID(result),
				ColorIndex:  -1,
				Matrix:      world,
				LocalBounds: meshBounds[mesh],
				Mesh:        mesh,
				State:       geometry.InstanceStateDefault,
			})
		}
		for _, child := range node.Children {
			walk(child, world)
		}
	}
	for _, root := range sceneNodes {
		walk(root, math.NewMat4Identity())
	}
}

// nodeMatrix returns the node's local transform, composing TRS when no
// explicit matrix is present.
func nodeMatrix(node *gltf.Node) math.Mat4 {
	if m := node.MatrixOrDefault(); m != gltf.DefaultMatrix {
		out := math.Mat4{}
		for i := 0; i < 16; i++ {
			out.Data[i] = float32(m[i])
		}
		return out
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()

	translation := math.NewMat4Translation(math.NewVec3(float32(t[0]), float32(t[1]), float32(t[2])))
	rotation := quatToMat4(float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3]))
	scale := math.NewMat4Scale(math.NewVec3(float32(s[0]), float32(s[1]), float32(s[2])))
	return translation.Mul(rotation.Mul(scale))
}

// quatToMat4 converts an (x, y, z, w) unit quaternion to a rotation matrix.
func quatToMat4(x, y, z, w float32) math.Mat4 {
	out := math.NewMat4Identity()
	out.Data[0] = 1 - 2*(y*y+z*z)
	out.Data[1] = 2 * (x*y + z*w)
	out.Data[2] = 2 * (x*z - y*w)
	out.Data[4] = 2 * (x*y - z*w)
	out.Data[5] = 1 - 2*(x*x+z*z)
	out.Data[6] = 2 * (y*z + x*w)
	out.Data[8] = 2 * (x*z + y*w)
	out.Data[9] = 2 * (y*z - x*w)
	out.Data[10] = 1 - 2*(x*x+y*y)
	return out
}

// readVec3Accessor reads tightly or stride-packed VEC3 float data.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([][3]float32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 || accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", accessor.Type, accessor.ComponentType)
	}
	data, start, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, accessor.Count)
	for i := 0; i < accessor.Count; i++ {
		offset := start + i*stride
		for j := 0; j < 3; j++ {
			bits := binary.LittleEndian.Uint32(data[offset+j*4:])
			result[i][j] = math64.Float32frombits(bits)
		}
	}
	return result, nil
}

// readIndexAccessor reads scalar index data of any supported width.
func readIndexAccessor(doc *gltf.Document, accessorIdx int) ([]uint32, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var width int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		width = 1
	case gltf.ComponentUshort:
		width = 2
	case gltf.ComponentUint:
		width = 4
	default:
		return nil, fmt.Errorf("unsupported index component type %v", accessor.ComponentType)
	}

	data, start, stride, err := accessorBytes(doc, accessor, width)
	if err != nil {
		return nil, err
	}
	result := make([]uint32, accessor.Count)
	for i := 0; i < accessor.Count; i++ {
		offset := start + i*stride
		switch width {
		case 1:
			result[i] = uint32(data[offset])
		case 2:
			result[i] = uint32(binary.LittleEndian.Uint16(data[offset:]))
		case 4:
			result[i] = binary.LittleEndian.Uint32(data[offset:])
		}
	}
	return result, nil
}

// accessorBytes resolves an accessor to its backing bytes, start offset and
// element stride. Only embedded (GLB) buffers are supported.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elementSize int) ([]byte, int, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor has no buffer view")
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	if buffer.Data == nil {
		return nil, 0, 0, fmt.Errorf("external buffers not supported")
	}
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elementSize
	}
	start := bufferView.ByteOffset + accessor.ByteOffset
	end := start + (accessor.Count-1)*stride + elementSize
	if end > len(buffer.Data) {
		return nil, 0, 0, fmt.Errorf("accessor range exceeds buffer (%d > %d)", end, len(buffer.Data))
	}
	return buffer.Data, start, stride, nil
}
