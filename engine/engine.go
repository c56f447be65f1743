package engine

import (
	"fmt"

	"github.com/codefiesta/VimKit-sub001/engine/assets/loaders"
	"github.com/codefiesta/VimKit-sub001/engine/config"
	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/platform"
	"github.com/codefiesta/VimKit-sub001/engine/renderer"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
	"github.com/codefiesta/VimKit-sub001/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	store         *geometry.Store
	watcher       *config.Watcher
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
	frame         int64
}

// BackendFactory constructs the renderer backend once the platform exists.
// The window is not created yet at call time; backends hold the reference and
// touch it during Initialize.
type BackendFactory func(p *platform.Platform) renderer.RendererBackend

func New(g *Game, newBackend BackendFactory) (*Engine, error) {
	core.SetLogLevel(g.ApplicationConfig.LogLevel)

	p := platform.New()
	store := geometry.NewStore()

	var watcher *config.Watcher
	if g.ApplicationConfig.ConfigPath != "" {
		var err error
		watcher, err = config.NewWatcher(g.ApplicationConfig.ConfigPath)
		if err != nil {
			core.LogError(err.Error())
			return nil, err
		}
	}

	// Event system must be live before any system registers listeners.
	if !core.EventInitialize() {
		return nil, fmt.Errorf("failed to initialize the event system")
	}

	sm, err := systems.NewSystemManager(newBackend(p), store, watcher)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	g.SystemManager = sm

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		clock:         core.NewClock(),
		platform:      p,
		store:         store,
		watcher:       watcher,
		systemManager: sm,
		isRunning:     true,
		isSuspended:   false,
		width:         g.ApplicationConfig.StartWidth,
		height:        g.ApplicationConfig.StartHeight,
		lastTime:      0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.platform.Startup(e.gameInstance.ApplicationConfig.Name,
		e.gameInstance.ApplicationConfig.StartPosX,
		e.gameInstance.ApplicationConfig.StartPosY,
		e.gameInstance.ApplicationConfig.StartWidth,
		e.gameInstance.ApplicationConfig.StartHeight); err != nil {
		return err
	}

	if err := e.systemManager.Initialize(); err != nil {
		return err
	}

	core.MetricsInitialize()

	if path := e.gameInstance.ApplicationConfig.ModelPath; path != "" {
		if err := e.LoadModel(path); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// LoadModel replaces the whole scene with the document at path. The store's
// state transitions drive index rebuild and scene binding.
func (e *Engine) LoadModel(path string) error {
	loader := loaders.NewModelLoader()

	e.store.BeginLoad()
	result, err := loader.Load(path)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := e.store.SetData(result.Instances, result.Meshes, result.Submeshes, result.Positions, result.Indices); err != nil {
		return err
	}
	return e.store.FinishLoad()
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogFatal("game update failed, shutting down.")
				e.isRunning = false
				break
			}
		}

		packet := &metadata.RenderPacket{
			Frame:     e.frame,
			DeltaTime: delta,
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(packet, delta); err != nil {
				core.LogFatal("game render failed, shutting down.")
				e.isRunning = false
				break
			}
		} else {
			if _, err := e.systemManager.DrawFrame(packet); err != nil {
				core.LogError(err.Error())
			}
		}

		e.frame++
		e.lastTime = currentTime
	}

	return e.Shutdown()
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e, e.onResized)

	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			return err
		}
	}
	if err := core.EventShutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("application quit received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code != core.EVENT_CODE_RESIZED {
		return false
	}
	width := uint32(data.Data.U16[0])
	height := uint32(data.Data.U16[1])
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization.
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		e.gameInstance.FnOnResize(width, height)
	}
	if err := e.systemManager.OnResize(width, height); err != nil {
		core.LogError(err.Error())
	}
	return false
}
