package software

import (
	"fmt"
	"sync"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

// Backend is a deterministic software device. It implements the full backend
// surface without a GPU: occlusion queries answer from a settable oracle,
// the command-generation kernel runs the shared visibility predicate per
// invocation, and completion can be synchronous or stepped manually so tests
// can hold frames in flight.
type Backend struct {
	mutex sync.Mutex

	capabilities metadata.Capability
	predicate    *culling.VisibilityPredicate

	scene    *metadata.SceneBinding
	uniforms map[int64]pipeline.FrameUniforms

	// Groups the occlusion oracle reports as fully occluded.
	occluded map[int32]bool

	// With manual completion, EndFrame queues the callback instead of
	// invoking it; tests drive CompleteOldest.
	manual  bool
	pending []pendingFrame

	width, height uint32
	initialized   bool

	// Per-frame instrumentation, reset at BeginFrame.
	drawnGroups []int32
	proxyDraws  int
	executed    int
}

type pendingFrame struct {
	frame      int64
	onComplete func(frame int64)
}

// Config selects the simulated device characteristics.
type Config struct {
	Capabilities metadata.Capability
	// Predicate used by the simulated generation kernel. Nil gets a
	// frustum-only predicate.
	Predicate *culling.VisibilityPredicate
	// ManualCompletion holds frame completions until CompleteOldest.
	ManualCompletion bool
}

func NewBackend(config Config) *Backend {
	predicate := config.Predicate
	if predicate == nil {
		predicate = culling.NewVisibilityPredicate(culling.VisibilityOptions{}, nil)
	}
	return &Backend{
		capabilities: config.Capabilities,
		predicate:    predicate,
		occluded:     make(map[int32]bool),
		uniforms:     make(map[int64]pipeline.FrameUniforms),
		manual:       config.ManualCompletion,
	}
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.width = appWidth
	b.height = appHeight
	b.initialized = true
	core.LogDebug("software device initialized for %s (%dx%d)", appName, appWidth, appHeight)
	return nil
}

func (b *Backend) Shutdown() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.pending) > 0 {
		core.LogWarn("software device shut down with %d frames pending", len(b.pending))
	}
	b.initialized = false
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.width = width
	b.height = height
	return nil
}

func (b *Backend) Capabilities() metadata.Capability {
	return b.capabilities
}

func (b *Backend) BindScene(binding *metadata.SceneBinding) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.initialized {
		return fmt.Errorf("func BindScene - software device not initialized")
	}
	b.scene = binding
	return nil
}

func (b *Backend) BeginFrame(frame int64, uniforms *pipeline.FrameUniforms) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.uniforms[frame] = *uniforms
	b.drawnGroups = b.drawnGroups[:0]
	b.proxyDraws = 0
	b.executed = 0
	return nil
}

func (b *Backend) EndFrame(frame int64, onComplete func(frame int64)) error {
	b.mutex.Lock()
	delete(b.uniforms, frame)
	if b.manual {
		b.pending = append(b.pending, pendingFrame{frame: frame, onComplete: onComplete})
		b.mutex.Unlock()
		return nil
	}
	b.mutex.Unlock()

	// Synchronous mode: the device finishes the moment the CPU submits.
	if onComplete != nil {
		onComplete(frame)
	}
	return nil
}

// DrawOcclusionProxies answers each candidate's boolean query from the
// oracle. In visualization mode the proxies "draw" but no queries run, so
// the result buffer stays zeroed, matching the hardware behavior.
func (b *Backend) DrawOcclusionProxies(frame int64, candidates []int32, results []uint32, visualize bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.capabilities.Has(metadata.CapabilityOcclusionQuery) {
		return core.ErrCapabilityAbsent
	}
	b.proxyDraws += len(candidates)
	if visualize {
		return nil
	}
	for _, group := range candidates {
		if int(group) >= len(results) {
			return fmt.Errorf("func DrawOcclusionProxies - group %d outside result buffer of %d", group, len(results))
		}
		if !b.occluded[group] {
			results[group] = 1
		}
	}
	return nil
}

func (b *Backend) DrawInstancedMesh(group int32) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.scene == nil || int(group) >= b.scene.GroupCount() {
		return fmt.Errorf("func DrawInstancedMesh - group %d outside bound scene", group)
	}
	b.drawnGroups = append(b.drawnGroups, group)
	return nil
}

// GenerateCommands is the reference encoding of the generation kernel: one
// invocation per (group, submesh-slot) pair over a fixed 2D range. Slots past
// a mesh's real submesh count are no-ops, invisible groups leave their slots
// zeroed, and visible pairs record one indexed draw each. Every invocation
// owns exactly one slot, so no two writes collide.
func (b *Backend) GenerateCommands(frame int64, input culling.VisibilityInput, list *metadata.CommandList) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.capabilities.Has(metadata.CapabilityIndirectCommandGeneration) {
		return core.ErrCapabilityAbsent
	}
	if b.scene == nil {
		return fmt.Errorf("func GenerateCommands - no scene bound")
	}
	if int(list.Groups) != b.scene.GroupCount() || list.MaxSubmeshes != b.scene.MaxSubmeshCount {
		return core.ErrStaleBufferSize
	}

	list.Reset()
	for group := uint32(0); group < list.Groups; group++ {
		instanced := b.scene.Groups[group]
		mesh := b.scene.Meshes[instanced.Mesh]
		bounds := b.scene.GroupBounds[group]

		for slot := uint32(0); slot < list.MaxSubmeshes; slot++ {
			if slot >= mesh.SubmeshCount {
				continue
			}
			if !b.predicate.Visible(bounds, input) {
				continue
			}
			submesh := b.scene.Submeshes[mesh.SubmeshOffset+slot]
			i := list.Slot(group, slot)
			list.Commands[i] = metadata.DrawIndexedIndirectCommand{
				IndexCount:    submesh.IndexCount,
				InstanceCount: instanced.InstanceCount,
				FirstIndex:    submesh.IndexOffset,
				VertexOffset:  0,
				FirstInstance: instanced.BaseInstance,
			}
			list.Executed[i] = 1
		}
	}
	return nil
}

// ExecuteCommands replays a generated list: zero-count slots are no-ops.
func (b *Backend) ExecuteCommands(list *metadata.CommandList) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	count := 0
	for i := range list.Commands {
		if list.Commands[i].IndexCount > 0 {
			count++
		}
	}
	b.executed = count
	return nil
}

// SetOccluded replaces the occlusion oracle with the given fully occluded
// groups.
func (b *Backend) SetOccluded(groups ...int32) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.occluded = make(map[int32]bool, len(groups))
	for _, g := range groups {
		b.occluded[g] = true
	}
}

// CompleteOldest fires the oldest pending completion. Manual mode only.
func (b *Backend) CompleteOldest() bool {
	b.mutex.Lock()
	if len(b.pending) == 0 {
		b.mutex.Unlock()
		return false
	}
	next := b.pending[0]
	b.pending = b.pending[1:]
	b.mutex.Unlock()

	if next.onComplete != nil {
		next.onComplete(next.frame)
	}
	return true
}

// CompleteAll drains every pending completion in submission order.
func (b *Backend) CompleteAll() {
	for b.CompleteOldest() {
	}
}

// PendingFrames reports how many submissions await completion.
func (b *Backend) PendingFrames() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.pending)
}

// DrawnGroups returns the groups drawn directly this frame, in issue order.
func (b *Backend) DrawnGroups() []int32 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]int32, len(b.drawnGroups))
	copy(out, b.drawnGroups)
	return out
}

// ProxyDraws returns the number of proxy boxes drawn this frame.
func (b *Backend) ProxyDraws() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.proxyDraws
}

// ExecutedCommands returns the draw count of the last executed list.
func (b *Backend) ExecutedCommands() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.executed
}
