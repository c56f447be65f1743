package renderer

import (
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// RendererBackend is the device abstraction the culling pipeline drives.
// Two implementations exist: the Vulkan backend for hardware devices, and a
// deterministic software device used for testing and as the reference
// encoding of the command-generation kernel.
type RendererBackend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error

	// Capabilities reports what the device supports. Absent capabilities
	// select simpler paths; they are never an error.
	Capabilities() metadata.Capability

	// BindScene uploads the immutable scene tables after a geometry load.
	BindScene(binding *metadata.SceneBinding) error

	BeginFrame(frame int64, uniforms *pipeline.FrameUniforms) error
	// EndFrame submits the frame. onComplete fires when the device has
	// finished executing the submission; the frame pipeline uses it to
	// release the in-flight limiter and unlock the result slot.
	EndFrame(frame int64, onComplete func(frame int64)) error

	// DrawOcclusionProxies issues one minimal bounding-box draw per
	// candidate with depth testing enabled, color and depth writes
	// disabled, and a boolean occlusion query bound to the candidate's
	// slot in results. With visualize set the proxies draw visibly and no
	// queries are issued.
	DrawOcclusionProxies(frame int64, candidates []int32, results []uint32, visualize bool) error

	// DrawInstancedMesh issues one CPU-recorded indexed draw for every
	// submesh of the group. The direct path's draw loop.
	DrawInstancedMesh(group int32) error

	// GenerateCommands dispatches the command-generation kernel over
	// (group, submesh-slot) pairs, recording indexed draws for visible
	// groups into the list.
	GenerateCommands(frame int64, input culling.VisibilityInput, list *metadata.CommandList) error

	// ExecuteCommands replays a generated command list.
	ExecuteCommands(list *metadata.CommandList) error
}
