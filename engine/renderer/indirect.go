package renderer

import (
	"fmt"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// IndirectPass is the GPU-driven path: a device kernel re-evaluates
// visibility per (group, submesh-slot) pair and records indexed draws into a
// device-resident command list, which is then executed without CPU
// involvement per mesh.
type IndirectPass struct {
	backend RendererBackend
	list    *metadata.CommandList
}

func NewIndirectPass(backend RendererBackend) *IndirectPass {
	return &IndirectPass{backend: backend}
}

// Bind sizes the command list for the bound scene: one slot per possible
// (group, submesh) pair, so the dispatch is a fixed upper bound independent
// of per-mesh submesh counts.
func (p *IndirectPass) Bind(scene *metadata.SceneBinding) error {
	if scene.GroupCount() == 0 {
		p.list = nil
		return nil
	}
	list, err := metadata.NewCommandList(uint32(scene.GroupCount()), scene.MaxSubmeshCount)
	if err != nil {
		core.LogError(err.Error())
		return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
	}
	p.list = list
	core.LogDebug("indirect pass: command list sized %d groups x %d submesh slots", scene.GroupCount(), scene.MaxSubmeshCount)
	return nil
}

// Run dispatches the generation kernel and executes the resulting list.
func (p *IndirectPass) Run(frame int64, input culling.VisibilityInput) error {
	if p.list == nil {
		return core.ErrStaleBufferSize
	}
	if err := p.backend.GenerateCommands(frame, input, p.list); err != nil {
		return err
	}
	return p.backend.ExecuteCommands(p.list)
}

// CommandList exposes the populated list and executed diagnostic buffer for
// observability consumers.
func (p *IndirectPass) CommandList() *metadata.CommandList {
	return p.list
}
