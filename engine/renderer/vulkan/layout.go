package vulkan

import (
	"unsafe"

	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/math"
)

// Device buffer encodings. The scalar tables (meshes, submeshes, groups) ship
// raw since their Go layouts match std430 strides; bounds re-pack into vec4
// pairs because vec3 aligns to 16 bytes on the device.

func uint32Bytes(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func vertexBytes(s []math.Vertex3D) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(math.Vertex3D{})))
}

func groupBytes(s []geometry.InstancedMesh) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(geometry.InstancedMesh{})))
}

func meshBytes(s []geometry.Mesh) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(geometry.Mesh{})))
}

func submeshBytes(s []geometry.Submesh) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(geometry.Submesh{})))
}

// instanceMatrixBytes extracts only the world transforms; the rest of the
// instance record never crosses to the device.
func instanceMatrixBytes(instances []geometry.Instance) []byte {
	data := make([]float32, len(instances)*16)
	for i := range instances {
		copy(data[i*16:(i+1)*16], instances[i].Matrix.Data[:])
	}
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// boundsBytes packs each box as min and max vec4s.
func boundsBytes(bounds []math.Extents3D) []byte {
	data := make([]float32, len(bounds)*8)
	for i, box := range bounds {
		base := i * 8
		data[base+0], data[base+1], data[base+2], data[base+3] = box.Min.X, box.Min.Y, box.Min.Z, 0
		data[base+4], data[base+5], data[base+6], data[base+7] = box.Max.X, box.Max.Y, box.Max.Z, 0
	}
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}
