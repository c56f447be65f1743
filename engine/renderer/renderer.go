package renderer

import (
	"sync"
	"time"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/math"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// Options are the runtime culling switches. They can be swapped while
// rendering (config hot reload).
type Options struct {
	OcclusionEnabled       bool
	OcclusionVisualization bool
	// Draw-loop wall-clock budget for the direct path. Zero issues no
	// draws; negative disables the budget.
	FrameBudget time.Duration
}

// CameraState is the once-per-frame camera input from the camera
// collaborator.
type CameraState struct {
	Position       math.Vec3
	View           math.Mat4
	Projection     math.Mat4
	SceneTransform math.Mat4
	ViewportWidth  float32
	ViewportHeight float32
}

// FrameReport is the per-frame output for observability consumers: the
// candidate count, the final visible set (direct path) or recorded command
// count (indirect path), and the draws issued.
type FrameReport struct {
	Frame      int64
	Indirect   bool
	Candidates int
	// Final visible set, ordered ascending. Direct path only.
	Visible []int32
	Drawn   int
}

// Renderer sequences the culling pipeline within a frame submission:
// advance the rotation, run the spatial query, then either dispatch the
// command-generation kernel (indirect) or run the occlusion subsystem and a
// budgeted CPU draw loop (direct).
type Renderer struct {
	mutex sync.Mutex

	backend RendererBackend
	frames  *pipeline.FramePipeline
	culler  *culling.Culler

	direct   *DirectPass
	indirect *IndirectPass

	options Options
	scene   *metadata.SceneBinding

	// Chosen at initialize from the capability probe.
	useIndirect bool

	// Scratch candidate storage, reused across frames.
	candidates []int32
}

func New(backend RendererBackend, culler *culling.Culler, options Options) *Renderer {
	frames := pipeline.NewFramePipeline()
	return &Renderer{
		backend:  backend,
		frames:   frames,
		culler:   culler,
		direct:   NewDirectPass(backend, frames),
		indirect: NewIndirectPass(backend),
		options:  options,
		scene:    &metadata.SceneBinding{},
	}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := r.backend.Initialize(appName, appWidth, appHeight); err != nil {
		return err
	}

	caps := r.backend.Capabilities()
	r.useIndirect = caps.Has(metadata.CapabilityIndirectCommandGeneration)
	if !caps.Has(metadata.CapabilityOcclusionQuery) && r.options.OcclusionEnabled {
		// Capability absence selects the simpler path, never an error.
		core.LogInfo("occlusion queries unsupported, falling back to frustum-only visibility")
		r.options.OcclusionEnabled = false
	}
	if r.useIndirect {
		core.LogInfo("device command generation supported, using indirect path")
	} else {
		core.LogInfo("using direct draw path")
	}
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

// Pipeline exposes the frame rotation, mainly to tests and the systems
// layer.
func (r *Renderer) Pipeline() *pipeline.FramePipeline {
	return r.frames
}

// SetOptions swaps the culling switches between frames.
func (r *Renderer) SetOptions(options Options) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.options = options
}

// BindScene installs freshly loaded geometry: rebuilds the spatial index,
// re-sizes every rotation buffer and uploads the scene tables to the device.
func (r *Renderer) BindScene(binding *metadata.SceneBinding) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.scene = binding
	r.culler.Rebuild(binding.GroupBounds)
	r.frames.Resize(binding.GroupCount())
	if err := r.backend.BindScene(binding); err != nil {
		return err
	}
	if r.useIndirect {
		if err := r.indirect.Bind(binding); err != nil {
			// Pass unavailable; fall back where a fallback exists.
			core.LogWarn("indirect pass unavailable: %s", err.Error())
			r.useIndirect = false
		}
	}
	return nil
}

// OnResize re-sizes every per-frame buffer and resets the rotation. Frames
// in flight complete against their already-bound buffers.
func (r *Renderer) OnResize(width, height uint32) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.backend.Resized(width, height); err != nil {
		return err
	}
	r.frames.Resize(r.scene.GroupCount())
	return nil
}

// DrawFrame runs the whole per-frame sequence for one submission. It blocks
// while a full pipeline of frames is in flight.
func (r *Renderer) DrawFrame(packet *metadata.RenderPacket, camera CameraState) (FrameReport, error) {
	frame := r.frames.BeginFrame()

	r.mutex.Lock()
	options := r.options
	scene := r.scene
	useIndirect := r.useIndirect
	r.mutex.Unlock()

	uniforms := r.frames.Uniforms(frame)
	uniforms.CameraPosition = camera.Position
	uniforms.View = camera.View
	uniforms.Projection = camera.Projection
	uniforms.SceneTransform = camera.SceneTransform
	viewProjection := camera.Projection.Mul(camera.View.Mul(camera.SceneTransform))
	uniforms.Frustum = math.NewFrustumFromMatrix(viewProjection)

	report := FrameReport{Frame: frame, Indirect: useIndirect}

	if err := r.backend.BeginFrame(frame, uniforms); err != nil {
		r.frames.Complete(frame)
		return report, err
	}

	r.candidates = r.culler.Candidates(uniforms.Frustum, r.candidates)
	report.Candidates = len(r.candidates)

	input := culling.VisibilityInput{
		ViewProjection: viewProjection,
		Frustum:        uniforms.Frustum,
		ScreenWidth:    camera.ViewportWidth,
		ScreenHeight:   camera.ViewportHeight,
	}

	if useIndirect {
		if err := r.indirect.Run(frame, input); err != nil {
			// Never abort a frame in flight; degrade to the direct
			// path for this frame.
			core.LogWarn("indirect pass failed (%s), drawing direct", err.Error())
			useIndirect = false
		} else {
			report.Drawn = r.indirect.CommandList().RecordedDraws()
		}
	}

	if !useIndirect {
		visible, drawn, err := r.direct.Run(frame, r.candidates, scene, DirectOptions{
			OcclusionEnabled: options.OcclusionEnabled,
			Visualization:    options.OcclusionVisualization,
			FrameBudget:      options.FrameBudget,
		})
		if err != nil {
			core.LogError("direct pass: %s", err.Error())
		}
		report.Visible = visible
		report.Drawn = drawn
	}

	if err := r.backend.EndFrame(frame, r.frames.Complete); err != nil {
		r.frames.Complete(frame)
		return report, err
	}

	core.MetricsUpdate(packet.DeltaTime)
	return report, nil
}
