package systems

import (
	"fmt"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/geometry"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// GeometrySystem owns the geometry store and publishes scene bindings to the
// renderer when the store reaches the ready state. Loads replace the whole
// scene; frames already in flight finish against the previous binding.
type GeometrySystem struct {
	store          *geometry.Store
	rendererSystem *RendererSystem
}

func NewGeometrySystem(store *geometry.Store, rendererSystem *RendererSystem) (*GeometrySystem, error) {
	if store == nil {
		err := fmt.Errorf("func NewGeometrySystem - store must not be nil")
		core.LogError(err.Error())
		return nil, err
	}
	gs := &GeometrySystem{
		store:          store,
		rendererSystem: rendererSystem,
	}
	core.EventRegister(core.EVENT_CODE_GEOMETRY_STATE, gs, gs.onGeometryState)
	return gs, nil
}

func (gs *GeometrySystem) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_GEOMETRY_STATE, gs, gs.onGeometryState)
	return nil
}

func (gs *GeometrySystem) Store() *geometry.Store {
	return gs.store
}

// onGeometryState reacts to store transitions: a new load invalidates the
// renderer's candidate source, the ready transition publishes the fresh
// binding.
func (gs *GeometrySystem) onGeometryState(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	state := geometry.State(data.Data.U32[0])
	switch state {
	case geometry.StateLoading:
		if gs.rendererSystem != nil {
			gs.rendererSystem.Invalidate()
		}
	case geometry.StateReady:
		if gs.rendererSystem != nil {
			if err := gs.rendererSystem.BindScene(gs.Binding()); err != nil {
				core.LogError("geometry system: bind failed: %s", err.Error())
			}
		}
	case geometry.StateError:
		core.LogError("geometry store entered error state")
	}
	// Other systems may care about the transition too.
	return false
}

// Binding assembles the immutable scene tables for the renderer.
func (gs *GeometrySystem) Binding() *metadata.SceneBinding {
	return &metadata.SceneBinding{
		Groups:          gs.store.InstancedMeshes(),
		Meshes:          gs.store.Meshes(),
		Submeshes:       gs.store.Submeshes(),
		Instances:       gs.store.Instances(),
		Positions:       gs.store.Positions,
		Indices:         gs.store.Indices,
		GroupBounds:     gs.store.GroupBounds(),
		MaxSubmeshCount: gs.store.MaxSubmeshCount(),
	}
}
