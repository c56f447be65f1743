package systems

import (
	"fmt"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/components"
)

// InvalidIDUint16 marks an unoccupied camera slot.
const InvalidIDUint16 uint16 = 0xFFFF

type CameraSystem struct {
	Config  *CameraSystemConfig
	Lookup  map[string]uint16
	Cameras []*components.CameraLookup
	// A default, non-registered camera that always exists as a fallback.
	DefaultCamera *components.Camera
}

type CameraSystemConfig struct {
	// The maximum number of cameras that can be managed by the system.
	MaxCameraCount uint16
}

func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	cs := &CameraSystem{
		Config:  config,
		Cameras: make([]*components.CameraLookup, config.MaxCameraCount),
		Lookup:  make(map[string]uint16, config.MaxCameraCount),
	}
	// Invalidate all cameras in the array.
	for i := uint16(0); i < cs.Config.MaxCameraCount; i++ {
		cs.Cameras[i] = &components.CameraLookup{
			ID:             InvalidIDUint16,
			ReferenceCount: 0,
		}
	}
	// Setup default camera.
	cs.DefaultCamera = components.NewCamera()
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	return nil
}

// GetDefault returns the fallback camera.
func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}

// Acquire returns the camera registered under name, creating and registering
// it on first use. The internal reference counter is incremented.
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.DefaultCamera, nil
	}
	id, ok := cs.Lookup[name]
	if !ok {
		id = InvalidIDUint16
	}
	if id == InvalidIDUint16 {
		// Find free slot.
		for i := uint16(0); i < cs.Config.MaxCameraCount; i++ {
			if cs.Cameras[i].ID == InvalidIDUint16 {
				id = i
				break
			}
		}
		if id == InvalidIDUint16 {
			err := fmt.Errorf("func Acquire - no free camera slots. Adjust camera system config to allow more")
			core.LogError(err.Error())
			return nil, err
		}
		core.LogDebug("creating new camera named '%s'", name)
		cs.Cameras[id].Camera = components.NewCamera()
		cs.Cameras[id].ID = id
		cs.Lookup[name] = id
	}
	cs.Cameras[id].ReferenceCount++
	return cs.Cameras[id].Camera, nil
}

// Release decrements the reference counter of the named camera. At zero the
// camera is reset and its slot becomes reusable.
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		return
	}
	id, ok := cs.Lookup[name]
	if !ok || id == InvalidIDUint16 {
		return
	}
	cs.Cameras[id].ReferenceCount--
	if cs.Cameras[id].ReferenceCount == 0 {
		cs.Cameras[id].Camera.Reset()
		cs.Cameras[id].Camera = nil
		cs.Cameras[id].ID = InvalidIDUint16
		cs.Lookup[name] = InvalidIDUint16
	}
}

// OnResize propagates a new viewport to every live camera.
func (cs *CameraSystem) OnResize(width, height uint32) {
	cs.DefaultCamera.SetViewport(width, height)
	for _, lookup := range cs.Cameras {
		if lookup.ID != InvalidIDUint16 && lookup.Camera != nil {
			lookup.Camera.SetViewport(width, height)
		}
	}
}
