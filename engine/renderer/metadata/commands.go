package metadata

import "fmt"

// DrawIndexedIndirectCommand matches the device layout of an indexed
// indirect draw (VkDrawIndexedIndirectCommand).
type DrawIndexedIndirectCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// CommandList is the device-resident command buffer the generation kernel
// records into, mirrored host-side. One slot exists for every possible
// (group, submesh-slot) pair, so the dispatch is a fixed upper bound and
// every invocation owns exactly one slot.
type CommandList struct {
	// Commands[group*MaxSubmeshes+slot]; a zero IndexCount slot is a no-op.
	Commands []DrawIndexedIndirectCommand
	// Diagnostic flag per slot, set when the invocation recorded a draw.
	Executed []uint32
	// Fixed second dispatch dimension.
	MaxSubmeshes uint32
	// First dispatch dimension.
	Groups uint32
}

// NewCommandList sizes a list for groups x maxSubmeshes slots.
func NewCommandList(groups, maxSubmeshes uint32) (*CommandList, error) {
	if maxSubmeshes == 0 && groups > 0 {
		return nil, fmt.Errorf("func NewCommandList - maxSubmeshes must be > 0 for %d groups", groups)
	}
	total := groups * maxSubmeshes
	return &CommandList{
		Commands:     make([]DrawIndexedIndirectCommand, total),
		Executed:     make([]uint32, total),
		MaxSubmeshes: maxSubmeshes,
		Groups:       groups,
	}, nil
}

// Slot maps 2D invocation coordinates onto the unique command slot.
func (cl *CommandList) Slot(group, submesh uint32) uint32 {
	return group*cl.MaxSubmeshes + submesh
}

// Len returns the total slot count.
func (cl *CommandList) Len() int {
	return len(cl.Commands)
}

// Reset zeroes every slot.
func (cl *CommandList) Reset() {
	for i := range cl.Commands {
		cl.Commands[i] = DrawIndexedIndirectCommand{}
		cl.Executed[i] = 0
	}
}

// RecordedDraws counts the slots holding a command.
func (cl *CommandList) RecordedDraws() int {
	count := 0
	for i := range cl.Executed {
		if cl.Executed[i] != 0 {
			count++
		}
	}
	return count
}
