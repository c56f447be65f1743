package testbed

import (
	"github.com/chewxy/math32"

	"github.com/codefiesta/VimKit-sub001/engine"
	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/math"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/components"
)

// ViewerGame orbits the camera around the loaded model so every run exercises
// the full culling pipeline without input handling.
type ViewerGame struct {
	*engine.Game
}

type gameState struct {
	camera *components.Camera

	// Orbit parameters, framed around the scene extents at startup.
	target math.Vec3
	radius float32
	height float32
	angle  float32
}

func NewViewerGame(modelPath, configPath string) *ViewerGame {
	vg := &ViewerGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				StartPosX:   100,
				StartPosY:   100,
				StartWidth:  1280,
				StartHeight: 720,
				Name:        "VimKit Viewer",
				LogLevel:    core.DebugLevel,
				ConfigPath:  configPath,
				ModelPath:   modelPath,
			},
			State: &gameState{},
		},
	}

	vg.FnInitialize = vg.Initialize
	vg.FnUpdate = vg.Update
	vg.FnOnResize = vg.OnResize

	return vg
}

func (g *ViewerGame) Initialize() error {
	core.LogInfo("initializing viewer...")

	state := g.State.(*gameState)
	state.camera = g.SystemManager.CameraSystem.GetDefault()

	extents := g.SystemManager.GeometrySystem.Store().Extents()
	if extents.IsValid() {
		size := extents.Size()
		state.target = extents.Center()
		state.radius = math32.Max(size.X, size.Z) * 1.2
		state.height = size.Y * 0.6
	} else {
		// Empty scene; park the camera somewhere sensible.
		state.target = math.NewVec3Zero()
		state.radius = 10
		state.height = 3
	}
	g.placeCamera(state)
	return nil
}

func (g *ViewerGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.angle += float32(deltaTime) * 0.25
	if state.angle > 2*math32.Pi {
		state.angle -= 2 * math32.Pi
	}
	g.placeCamera(state)
	return nil
}

func (g *ViewerGame) OnResize(width, height uint32) error {
	core.LogDebug("viewer resized to %dx%d", width, height)
	return nil
}

// placeCamera puts the camera on the orbit circle looking at the target.
func (g *ViewerGame) placeCamera(state *gameState) {
	position := math.Vec3{
		X: state.target.X + math32.Sin(state.angle)*state.radius,
		Y: state.target.Y + state.height,
		Z: state.target.Z + math32.Cos(state.angle)*state.radius,
	}
	state.camera.SetPosition(position)
	state.camera.SetEulerRotation(math.Vec3{
		X: -math32.Atan2(state.height, state.radius),
		Y: state.angle,
		Z: 0,
	})
}
