package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/codefiesta/VimKit-sub001/engine/core"
)

// VulkanBuffer is a device buffer with its backing allocation. Scene tables
// live in device-local buffers filled through a staging copy; per-frame
// buffers (uniforms, visibility results, indirect commands) are host-visible
// so the CPU can write and read them directly.
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	TotalSize   vk.DeviceSize
	Usage       vk.BufferUsageFlags
	IsLocked    bool
	MemoryIndex int32
	MemoryFlags vk.MemoryPropertyFlags
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		TotalSize:   size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	buffer.MemoryIndex = context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if buffer.MemoryIndex == -1 {
		err := fmt.Errorf("unable to create buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(buffer.MemoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		err := fmt.Errorf("failed to allocate buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("failed to bind buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb == nil {
		return
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.TotalSize = 0
	vb.IsLocked = false
}

// LockMemory maps the buffer's memory. Host-visible buffers only.
func (vb *VulkanBuffer) LockMemory(context *VulkanContext, offset, size vk.DeviceSize, flags vk.MemoryMapFlags) (unsafe.Pointer, error) {
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, offset, size, flags, &pData); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	vb.IsLocked = true
	return pData, nil
}

func (vb *VulkanBuffer) UnlockMemory(context *VulkanContext) {
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	vb.IsLocked = false
}

// LoadData copies raw bytes into the mapped buffer range.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset, size vk.DeviceSize, flags vk.MemoryMapFlags, data []byte) error {
	pData, err := vb.LockMemory(context, offset, size, flags)
	if err != nil {
		return err
	}
	vk.Memcopy(pData, data)
	vb.UnlockMemory(context)
	return nil
}

// ReadData copies the mapped buffer range into out.
func (vb *VulkanBuffer) ReadData(context *VulkanContext, offset, size vk.DeviceSize, out []byte) error {
	pData, err := vb.LockMemory(context, offset, size, 0)
	if err != nil {
		return err
	}
	src := unsafe.Slice((*byte)(pData), int(size))
	copy(out, src)
	vb.UnlockMemory(context)
	return nil
}

// CopyTo records and submits a one-shot transfer into another buffer.
func (vb *VulkanBuffer) CopyTo(context *VulkanContext, pool vk.CommandPool, queue vk.Queue, sourceOffset vk.DeviceSize, dest *VulkanBuffer, destOffset, size vk.DeviceSize) error {
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}

	copyRegion := vk.BufferCopy{
		SrcOffset: sourceOffset,
		DstOffset: destOffset,
		Size:      size,
	}
	vk.CmdCopyBuffer(cb.Handle, vb.Handle, dest.Handle, 1, []vk.BufferCopy{copyRegion})

	return cb.EndSingleUse(context, pool, queue)
}

// BufferCreateAndUpload creates a device-local buffer and fills it with data
// through a throwaway staging buffer.
func BufferCreateAndUpload(context *VulkanContext, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))
	if size == 0 {
		return nil, fmt.Errorf("func BufferCreateAndUpload - empty data")
	}

	staging, err := BufferCreate(context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	if err := staging.LoadData(context, 0, size, 0, data); err != nil {
		return nil, err
	}

	device, err := BufferCreate(context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := staging.CopyTo(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue, 0, device, 0, size); err != nil {
		device.Destroy(context)
		return nil, err
	}
	return device, nil
}
