package systems

import (
	"time"

	"github.com/codefiesta/VimKit-sub001/engine/config"
	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/renderer"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// SystemManager wires the camera, geometry and renderer systems together and
// reacts to configuration reloads.
type SystemManager struct {
	CameraSystem   *CameraSystem
	GeometrySystem *GeometrySystem
	RendererSystem *RendererSystem

	watcher *config.Watcher

	appName string
	width   uint32
	height  uint32
}

// RendererOptions maps the culling section onto the renderer switches.
func RendererOptions(c config.Culling) renderer.Options {
	return renderer.Options{
		OcclusionEnabled:       c.OcclusionEnabled,
		OcclusionVisualization: c.OcclusionVisualization,
		FrameBudget:            time.Duration(c.FrameBudgetMS * float64(time.Millisecond)),
	}
}

func NewSystemManager(backend renderer.RendererBackend, store *geometry.Store, watcher *config.Watcher) (*SystemManager, error) {
	cfg := config.Default()
	if watcher != nil {
		cfg = watcher.Current()
	}

	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 16,
	})
	if err != nil {
		return nil, err
	}
	rs, err := NewRendererSystem(backend, cs.GetDefault(), RendererOptions(cfg.Culling), culling.CullerConfig{
		MinInstancedMeshes: cfg.Culling.MinInstancedMeshes,
	})
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(store, rs)
	if err != nil {
		return nil, err
	}

	sm := &SystemManager{
		CameraSystem:   cs,
		GeometrySystem: gs,
		RendererSystem: rs,
		watcher:        watcher,
		appName:        cfg.Application.Name,
		width:          cfg.Application.Width,
		height:         cfg.Application.Height,
	}
	if watcher != nil {
		core.EventRegister(core.EVENT_CODE_CONFIG_RELOADED, sm, sm.onConfigReloaded)
	}
	return sm, nil
}

func (sm *SystemManager) Initialize() error {
	return sm.RendererSystem.Initialize(sm.appName, sm.width, sm.height)
}

func (sm *SystemManager) Shutdown() error {
	if sm.watcher != nil {
		core.EventUnregister(core.EVENT_CODE_CONFIG_RELOADED, sm, sm.onConfigReloaded)
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	return sm.CameraSystem.Shutdown()
}

func (sm *SystemManager) OnResize(width, height uint32) error {
	sm.width = width
	sm.height = height
	sm.CameraSystem.OnResize(width, height)
	return sm.RendererSystem.OnResize(width, height)
}

// DrawFrame submits one frame through the renderer system.
func (sm *SystemManager) DrawFrame(packet *metadata.RenderPacket) (renderer.FrameReport, error) {
	return sm.RendererSystem.DrawFrame(packet)
}

// onConfigReloaded applies the new culling switches between frames.
func (sm *SystemManager) onConfigReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	cfg := sm.watcher.Current()
	sm.RendererSystem.SetOptions(RendererOptions(cfg.Culling))
	core.LogDebug("renderer options updated from config")
	return false
}
