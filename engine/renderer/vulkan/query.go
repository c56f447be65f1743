package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/codefiesta/VimKit-sub001/engine/core"
)

// VulkanQueryPool wraps a boolean occlusion query pool. One pool exists per
// pipelined frame so the frame currently recording never touches the pool a
// previous submission is still writing.
type VulkanQueryPool struct {
	Handle   vk.QueryPool
	Capacity uint32
	// Number of queries begun since the last reset. Only this many results
	// are fetched.
	Used uint32
}

func QueryPoolCreate(context *VulkanContext, capacity uint32) (*VulkanQueryPool, error) {
	pool := &VulkanQueryPool{
		Capacity: capacity,
	}

	createInfo := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeOcclusion,
		QueryCount: capacity,
	}

	var handle vk.QueryPool
	if res := vk.CreateQueryPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create occlusion query pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	pool.Handle = handle
	return pool, nil
}

func (qp *VulkanQueryPool) Destroy(context *VulkanContext) {
	if qp == nil {
		return
	}
	if qp.Handle != vk.NullQueryPool {
		vk.DestroyQueryPool(context.Device.LogicalDevice, qp.Handle, context.Allocator)
		qp.Handle = vk.NullQueryPool
	}
	qp.Used = 0
}

// Reset must be recorded before any query in the pool is begun this frame.
func (qp *VulkanQueryPool) Reset(cb *VulkanCommandBuffer) {
	vk.CmdResetQueryPool(cb.Handle, qp.Handle, 0, qp.Capacity)
	qp.Used = 0
}

// Begin opens the boolean query at slot. Precise counts are never requested;
// any-samples-passed is all the visibility test needs.
func (qp *VulkanQueryPool) Begin(cb *VulkanCommandBuffer, slot uint32) {
	vk.CmdBeginQuery(cb.Handle, qp.Handle, slot, 0)
	if slot >= qp.Used {
		qp.Used = slot + 1
	}
}

func (qp *VulkanQueryPool) End(cb *VulkanCommandBuffer, slot uint32) {
	vk.CmdEndQuery(cb.Handle, qp.Handle, slot)
}

// FetchResults reads the first Used query results into out as booleans.
// Results are fetched with availability so an unavailable query can be
// treated as visible rather than stalling the frame loop.
func (qp *VulkanQueryPool) FetchResults(context *VulkanContext, out []uint32) error {
	if qp.Used == 0 {
		return nil
	}
	count := qp.Used
	if int(count) > len(out) {
		count = uint32(len(out))
	}

	// Pairs of (samples passed, availability) per query.
	data := make([]uint32, count*2)
	res := vk.GetQueryPoolResults(
		context.Device.LogicalDevice,
		qp.Handle,
		0,
		count,
		uint(len(data))*uint(unsafe.Sizeof(uint32(0))),
		unsafe.Pointer(&data[0]),
		vk.DeviceSize(2*unsafe.Sizeof(uint32(0))),
		vk.QueryResultFlags(vk.QueryResultWithAvailabilityBit))
	if res != vk.Success && res != vk.NotReady {
		err := fmt.Errorf("failed to fetch occlusion query results: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	for i := uint32(0); i < count; i++ {
		passed := data[i*2]
		available := data[i*2+1]
		if available == 0 || passed != 0 {
			// Unavailable results count as visible so a slow query can only
			// ever cause extra draws, never a dropped one.
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return nil
}
