package core

import (
	"errors"
)

var (
	// The device lacks a capability (occlusion queries, device command
	// generation). Callers select a simpler path instead of failing.
	ErrCapabilityAbsent = errors.New("device capability absent")
	// Per-frame buffers are sized for a previous instance count. Affected
	// groups are treated as visible rather than indexed out of bounds.
	ErrStaleBufferSize = errors.New("frame buffers sized for stale geometry")
	// The spatial index has not been built yet.
	ErrIndexNotBuilt = errors.New("spatial index not built")
	// A device pipeline or buffer could not be created. The owning pass
	// reports itself unavailable.
	ErrResourceCreation = errors.New("device resource creation failed")
	// The swapchain was resized or recreated mid frame, booting the loop.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)
