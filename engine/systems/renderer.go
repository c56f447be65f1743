package systems

import (
	"fmt"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/renderer"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/components"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// RendererSystem drives the renderer with the active camera's state once per
// frame and owns the culler the renderer queries.
type RendererSystem struct {
	renderer *renderer.Renderer
	culler   *culling.Culler
	camera   *components.Camera

	width  uint32
	height uint32
}

func NewRendererSystem(backend renderer.RendererBackend, camera *components.Camera, options renderer.Options, cullerConfig culling.CullerConfig) (*RendererSystem, error) {
	if backend == nil {
		err := fmt.Errorf("func NewRendererSystem - backend must not be nil")
		core.LogError(err.Error())
		return nil, err
	}
	culler := culling.NewCuller(cullerConfig)
	return &RendererSystem{
		renderer: renderer.New(backend, culler, options),
		culler:   culler,
		camera:   camera,
	}, nil
}

func (rs *RendererSystem) Initialize(appName string, width, height uint32) error {
	rs.width = width
	rs.height = height
	rs.camera.SetViewport(width, height)
	return rs.renderer.Initialize(appName, width, height)
}

func (rs *RendererSystem) Shutdown() error {
	return rs.renderer.Shutdown()
}

func (rs *RendererSystem) Renderer() *renderer.Renderer {
	return rs.renderer
}

// SetOptions forwards new culling switches, e.g. after a config reload.
func (rs *RendererSystem) SetOptions(options renderer.Options) {
	rs.renderer.SetOptions(options)
}

// Invalidate drops the candidate source while a reload is in progress. The
// renderer degrades to an empty scene until the next BindScene.
func (rs *RendererSystem) Invalidate() {
	rs.culler.Invalidate()
}

// BindScene installs a freshly published scene binding.
func (rs *RendererSystem) BindScene(binding *metadata.SceneBinding) error {
	return rs.renderer.BindScene(binding)
}

func (rs *RendererSystem) OnResize(width, height uint32) error {
	rs.width = width
	rs.height = height
	return rs.renderer.OnResize(width, height)
}

// DrawFrame snapshots the camera and submits one frame.
func (rs *RendererSystem) DrawFrame(packet *metadata.RenderPacket) (renderer.FrameReport, error) {
	camera := renderer.CameraState{
		Position:       rs.camera.GetPosition(),
		View:           rs.camera.GetView(),
		Projection:     rs.camera.Projection,
		SceneTransform: rs.camera.SceneTransform,
		ViewportWidth:  float32(rs.width),
		ViewportHeight: float32(rs.height),
	}
	return rs.renderer.DrawFrame(packet, camera)
}
