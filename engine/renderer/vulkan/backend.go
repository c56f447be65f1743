package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/codefiesta/VimKit-sub001/engine/core"
	"github.com/codefiesta/VimKit-sub001/engine/culling"
	"github.com/codefiesta/VimKit-sub001/engine/math"
	"github.com/codefiesta/VimKit-sub001/engine/pipeline"
	"github.com/codefiesta/VimKit-sub001/engine/platform"
	"github.com/codefiesta/VimKit-sub001/engine/renderer/metadata"
)

const (
	// One indexed indirect draw on the wire.
	indirectCommandSize = uint32(unsafe.Sizeof(metadata.DrawIndexedIndirectCommand{}))
	// Kernel workgroup edge; must match the local_size of the cull shader.
	cullWorkgroupSize = 8
)

// frameUniformObject is the std140 uniform block shared by the vertex, proxy
// and cull shaders. Layout changes here must be mirrored in the shaders.
type frameUniformObject struct {
	ViewProjection [16]float32
	// xyz normal, w distance, positive half-space inside.
	Planes [6][4]float32
	CameraPosition [4]float32
	// x width, y height in pixels.
	Screen [4]float32
}

// cullPushConstants parameterize one command-generation dispatch.
type cullPushConstants struct {
	Groups       uint32
	MaxSubmeshes uint32
	// Bit 0 contribution test, bit 1 depth test.
	Flags               uint32
	MinContributionArea float32
}

// proxyPushConstants carry one candidate's world-space box to the unit-cube
// proxy shader.
type proxyPushConstants struct {
	BoxMin [4]float32
	BoxMax [4]float32
}

// frameState is the per-rotation-slot bookkeeping between EndFrame's submit
// and the fence-side completion.
type frameState struct {
	// Candidates the occlusion queries were issued for this slot, in query
	// slot order. Nil when no queries were issued.
	queryCandidates []int32
	// Group-indexed result buffer the fetched query booleans scatter into.
	queryResults []uint32
	// Command list whose host mirror is refreshed from the device buffers
	// after the fence signals. Nil when the kernel did not run.
	list *metadata.CommandList
}

// VulkanRenderer drives a hardware device. It implements the renderer's
// backend contract: scene tables live in device-local buffers, per-frame
// buffers rotate with the pipeline depth, occlusion queries read back on the
// frame's fence, and the command-generation kernel records indirect draws on
// the device.
type VulkanRenderer struct {
	platform    *platform.Platform
	FrameNumber uint64
	context     *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	debug bool

	mutex sync.Mutex
	scene *metadata.SceneBinding

	// Baseline visibility switches the kernel encodes. The frustum test is
	// unconditional; these enable the optional tests.
	visibilityOptions culling.VisibilityOptions

	// Device-local scene tables.
	vertexBuffer   *VulkanBuffer
	indexBuffer    *VulkanBuffer
	instanceBuffer *VulkanBuffer
	groupBuffer    *VulkanBuffer
	meshBuffer     *VulkanBuffer
	submeshBuffer  *VulkanBuffer
	boundsBuffer   *VulkanBuffer

	// Host-visible per-slot buffers.
	uniformBuffers  []*VulkanBuffer
	commandBuffers  []*VulkanBuffer
	executedBuffers []*VulkanBuffer

	// Unit cube for occlusion proxies, stretched per candidate in the vertex
	// shader.
	proxyVertexBuffer *VulkanBuffer
	proxyIndexBuffer  *VulkanBuffer

	renderpass   *VulkanRenderpass
	framebuffers []*VulkanFramebuffer

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet

	scenePipeline *VulkanPipeline
	proxyPipeline *VulkanPipeline
	// Proxy pipeline with color writes, for visualization mode.
	proxyDebugPipeline *VulkanPipeline
	cullPipeline       *VulkanPipeline

	frameStates []frameState

	// Frame currently recording, set by BeginFrame.
	currentFrame int64
	// True between the lazy render pass begin and EndFrame.
	renderPassActive bool
	// True once a scene pipeline is bound in the active render pass.
	scenePipelineBound bool
}

func New(p *platform.Platform, visibility culling.VisibilityOptions) *VulkanRenderer {
	return &VulkanRenderer{
		platform:    p,
		FrameNumber: 0,
		context: &VulkanContext{
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
		},
		visibilityOptions: visibility,
		debug:             true,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.context.Allocator = nil
	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("VimKit Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	validationLayers := []string{}
	if vr.debug && vr.validationLayersAvailable() {
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create the Vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res == vk.Success {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed.")
		return fmt.Errorf("func Initialize - surface creation: %w", err)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device!")
		return err
	}

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(
		vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.1, 1.0,
		1.0,
		0)
	if err != nil {
		return err
	}
	vr.renderpass = rp

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}

	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}
	if err := vr.createDescriptorLayout(); err != nil {
		return err
	}
	if err := vr.createUniformBuffers(); err != nil {
		return err
	}
	if err := vr.createProxyGeometry(); err != nil {
		return err
	}
	if err := vr.createPipelines(); err != nil {
		return err
	}

	vr.frameStates = make([]frameState, PipelineDepth)

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

func (vr *VulkanRenderer) validationLayersAvailable() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success || count == 0 {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if vk.ToString(layers[i].LayerName[:end+1]) == "VK_LAYER_KHRONOS_validation" {
			return true
		}
	}
	core.LogDebug("validation layers requested but not available")
	return false
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.destroySceneResources()

	for _, pipeline := range []*VulkanPipeline{vr.scenePipeline, vr.proxyPipeline, vr.proxyDebugPipeline, vr.cullPipeline} {
		if pipeline != nil {
			pipeline.Destroy(vr.context)
		}
	}
	vr.proxyVertexBuffer.Destroy(vr.context)
	vr.proxyIndexBuffer.Destroy(vr.context)
	for _, b := range vr.uniformBuffers {
		b.Destroy(vr.context)
	}

	if vr.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vr.context.Device.LogicalDevice, vr.descriptorPool, vr.context.Allocator)
		vr.descriptorPool = vk.NullDescriptorPool
	}
	if vr.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.descriptorSetLayout, vr.context.Allocator)
		vr.descriptorSetLayout = vk.NullDescriptorSetLayout
	}

	for i := 0; i < PipelineDepth; i++ {
		if vr.context.ImageAvailableSemaphores != nil {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
		}
		if vr.context.QueueCompleteSemaphores != nil {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
		}
		if vr.context.InFlightFences != nil {
			vr.context.InFlightFences[i].FenceDestroy(vr.context)
		}
	}
	for _, cb := range vr.context.GraphicsCommandBuffers {
		if cb != nil && cb.Handle != nil {
			cb.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	for _, fb := range vr.framebuffers {
		fb.Destroy(vr.context)
	}
	if vr.renderpass != nil {
		vr.renderpass.RenderpassDestroy(vr.context)
	}
	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
	}
	DeviceDestroy(vr.context)

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, nil)
	}
	vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint32) error {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogDebug("vulkan renderer resized %dx%d, generation %d", width, height, vr.context.FramebufferSizeGeneration)
	return nil
}

func (vr *VulkanRenderer) Capabilities() metadata.Capability {
	return vr.context.Device.Capabilities
}

// BindScene uploads the immutable scene tables into device-local buffers and
// re-sizes every per-slot buffer for the new group count. Frames in flight
// were drained by the caller's pipeline before the geometry swap published.
func (vr *VulkanRenderer) BindScene(binding *metadata.SceneBinding) error {
	vr.mutex.Lock()
	defer vr.mutex.Unlock()

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	vr.destroySceneResources()

	vr.scene = binding
	if binding.GroupCount() == 0 {
		core.LogInfo("vulkan renderer: empty scene bound")
		return nil
	}

	var err error
	if vr.vertexBuffer, err = BufferCreateAndUpload(vr.context, vertexBytes(binding.Positions),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if vr.indexBuffer, err = BufferCreateAndUpload(vr.context, uint32Bytes(binding.Indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)); err != nil {
		return err
	}
	if vr.instanceBuffer, err = BufferCreateAndUpload(vr.context, instanceMatrixBytes(binding.Instances),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)); err != nil {
		return err
	}
	if vr.groupBuffer, err = BufferCreateAndUpload(vr.context, groupBytes(binding.Groups),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)); err != nil {
		return err
	}
	if vr.meshBuffer, err = BufferCreateAndUpload(vr.context, meshBytes(binding.Meshes),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)); err != nil {
		return err
	}
	if vr.submeshBuffer, err = BufferCreateAndUpload(vr.context, submeshBytes(binding.Submeshes),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)); err != nil {
		return err
	}
	if vr.boundsBuffer, err = BufferCreateAndUpload(vr.context, boundsBytes(binding.GroupBounds),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)); err != nil {
		return err
	}

	slots := binding.GroupCount()
	commandBytes := vk.DeviceSize(uint32(slots) * binding.MaxSubmeshCount * indirectCommandSize)
	executedBytes := vk.DeviceSize(uint32(slots) * binding.MaxSubmeshCount * 4)
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	vr.commandBuffers = make([]*VulkanBuffer, PipelineDepth)
	vr.executedBuffers = make([]*VulkanBuffer, PipelineDepth)
	vr.context.QueryPools = make([]*VulkanQueryPool, PipelineDepth)
	for i := 0; i < PipelineDepth; i++ {
		if vr.commandBuffers[i], err = BufferCreate(vr.context, commandBytes,
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageIndirectBufferBit), hostVisible); err != nil {
			return err
		}
		if vr.executedBuffers[i], err = BufferCreate(vr.context, executedBytes,
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), hostVisible); err != nil {
			return err
		}
		if vr.context.Device.Capabilities.Has(metadata.CapabilityOcclusionQuery) {
			if vr.context.QueryPools[i], err = QueryPoolCreate(vr.context, uint32(slots)); err != nil {
				return err
			}
		}
	}

	if err := vr.createDescriptorSets(); err != nil {
		return err
	}

	core.LogInfo("vulkan renderer: scene bound, %d groups, %d vertices, %d indices",
		slots, len(binding.Positions), len(binding.Indices))
	return nil
}

func (vr *VulkanRenderer) destroySceneResources() {
	for _, b := range []*VulkanBuffer{
		vr.vertexBuffer, vr.indexBuffer, vr.instanceBuffer, vr.groupBuffer,
		vr.meshBuffer, vr.submeshBuffer, vr.boundsBuffer,
	} {
		b.Destroy(vr.context)
	}
	vr.vertexBuffer, vr.indexBuffer, vr.instanceBuffer = nil, nil, nil
	vr.groupBuffer, vr.meshBuffer, vr.submeshBuffer, vr.boundsBuffer = nil, nil, nil, nil

	for _, b := range vr.commandBuffers {
		b.Destroy(vr.context)
	}
	for _, b := range vr.executedBuffers {
		b.Destroy(vr.context)
	}
	vr.commandBuffers, vr.executedBuffers = nil, nil

	for _, pool := range vr.context.QueryPools {
		pool.Destroy(vr.context)
	}
	vr.context.QueryPools = nil
}

// BeginFrame waits for the rotation slot's previous submission, handles
// swapchain recreation, acquires an image and starts recording. The render
// pass itself begins lazily on the first draw so the command-generation
// kernel can record compute work first.
func (vr *VulkanRenderer) BeginFrame(frame int64, uniforms *pipeline.FrameUniforms) error {
	if vr.context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainBooting
	}

	slot := int(frame % PipelineDepth)
	// Wait for the slot's previous submission. The fence resets in EndFrame
	// right before submit, so an aborted frame leaves it signaled.
	fence := vr.context.InFlightFences[slot]
	if !fence.FenceWait(vr.context, ^uint64(0)) {
		return fmt.Errorf("func BeginFrame - in-flight fence wait failed")
	}

	imageIndex, ok := vr.context.Swapchain.SwapchainAcquireNextImageIndex(
		vr.context, ^uint64(0), vr.context.ImageAvailableSemaphores[slot], vk.NullFence)
	if !ok {
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	cb := vr.context.GraphicsCommandBuffers[slot]
	cb.Reset()
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	vr.writeUniforms(slot, uniforms)

	// Query pools reset outside the render pass.
	if pool := vr.queryPool(slot); pool != nil {
		pool.Reset(cb)
	}

	vr.currentFrame = frame
	vr.renderPassActive = false
	vr.scenePipelineBound = false
	vr.frameStates[slot] = frameState{}
	return nil
}

func (vr *VulkanRenderer) writeUniforms(slot int, uniforms *pipeline.FrameUniforms) {
	viewProjection := uniforms.Projection.Mul(uniforms.View.Mul(uniforms.SceneTransform))
	ubo := frameUniformObject{
		ViewProjection: viewProjection.Data,
		CameraPosition: [4]float32{uniforms.CameraPosition.X, uniforms.CameraPosition.Y, uniforms.CameraPosition.Z, 1},
		Screen: [4]float32{
			float32(vr.context.FramebufferWidth),
			float32(vr.context.FramebufferHeight),
			0, 0,
		},
	}
	for i, plane := range uniforms.Frustum.Planes {
		ubo.Planes[i] = [4]float32{plane.Normal.X, plane.Normal.Y, plane.Normal.Z, plane.Distance}
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), int(unsafe.Sizeof(ubo)))
	if err := vr.uniformBuffers[slot].LoadData(vr.context, 0, vk.DeviceSize(len(data)), 0, data); err != nil {
		core.LogError("uniform upload failed: %s", err.Error())
	}
}

func (vr *VulkanRenderer) queryPool(slot int) *VulkanQueryPool {
	if vr.context.QueryPools == nil || slot >= len(vr.context.QueryPools) {
		return nil
	}
	return vr.context.QueryPools[slot]
}

// ensureRenderPass begins the render pass and binds the frame-global vertex
// and index state on the first draw of the frame.
func (vr *VulkanRenderer) ensureRenderPass(cb *VulkanCommandBuffer) {
	if vr.renderPassActive {
		return
	}
	vr.renderpass.W = float32(vr.context.FramebufferWidth)
	vr.renderpass.H = float32(vr.context.FramebufferHeight)
	vr.renderpass.RenderpassBegin(cb, vr.framebuffers[vr.context.ImageIndex].Handle)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	if vr.vertexBuffer != nil {
		vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vr.vertexBuffer.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cb.Handle, vr.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	}
	vr.renderPassActive = true
	vr.scenePipelineBound = false
}

// DrawOcclusionProxies records one unit-cube draw per candidate, stretched to
// the candidate's world bounds by push constants. In query mode each draw is
// wrapped in a boolean occlusion query whose result scatters into the
// group-indexed buffer once the frame's fence signals. In visualization mode
// the boxes draw visibly and no queries are issued.
func (vr *VulkanRenderer) DrawOcclusionProxies(frame int64, candidates []int32, results []uint32, visualize bool) error {
	if !vr.context.Device.Capabilities.Has(metadata.CapabilityOcclusionQuery) {
		return core.ErrCapabilityAbsent
	}
	if vr.scene == nil || vr.scene.GroupCount() == 0 || len(candidates) == 0 {
		return nil
	}

	slot := int(frame % PipelineDepth)
	pool := vr.queryPool(slot)
	cb := vr.context.GraphicsCommandBuffers[slot]
	vr.ensureRenderPass(cb)

	pso := vr.proxyPipeline
	if visualize {
		pso = vr.proxyDebugPipeline
	}
	pso.Bind(cb, vk.PipelineBindPointGraphics)
	vr.scenePipelineBound = false
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, pso.PipelineLayout,
		0, 1, []vk.DescriptorSet{vr.descriptorSets[slot]}, 0, nil)

	// Proxy cube has its own vertex stream.
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vr.proxyVertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cb.Handle, vr.proxyIndexBuffer.Handle, 0, vk.IndexTypeUint32)

	for i, group := range candidates {
		if int(group) >= len(vr.scene.GroupBounds) {
			continue
		}
		box := vr.scene.GroupBounds[group]
		push := proxyPushConstants{
			BoxMin: [4]float32{box.Min.X, box.Min.Y, box.Min.Z, 1},
			BoxMax: [4]float32{box.Max.X, box.Max.Y, box.Max.Z, 1},
		}
		vk.CmdPushConstants(cb.Handle, pso.PipelineLayout,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

		if !visualize {
			pool.Begin(cb, uint32(i))
		}
		vk.CmdDrawIndexed(cb.Handle, 36, 1, 0, 0, 0)
		if !visualize {
			pool.End(cb, uint32(i))
		}
	}

	// Rebind the scene streams for any draws that follow.
	if vr.vertexBuffer != nil {
		vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vr.vertexBuffer.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cb.Handle, vr.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	}

	if !visualize {
		state := &vr.frameStates[slot]
		state.queryCandidates = append(state.queryCandidates[:0], candidates...)
		state.queryResults = results
	}
	return nil
}

// DrawInstancedMesh records one indexed draw per submesh of the group, with
// the group's full instance run in a single call.
func (vr *VulkanRenderer) DrawInstancedMesh(group int32) error {
	if vr.scene == nil || int(group) >= len(vr.scene.Groups) {
		return fmt.Errorf("func DrawInstancedMesh - group %d out of range", group)
	}
	slot := int(vr.currentFrame % PipelineDepth)
	cb := vr.context.GraphicsCommandBuffers[slot]
	vr.ensureRenderPass(cb)

	if !vr.scenePipelineBound {
		vr.scenePipeline.Bind(cb, vk.PipelineBindPointGraphics)
		vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, vr.scenePipeline.PipelineLayout,
			0, 1, []vk.DescriptorSet{vr.descriptorSets[slot]}, 0, nil)
		vr.scenePipelineBound = true
	}

	instanced := vr.scene.Groups[group]
	mesh := vr.scene.Meshes[instanced.Mesh]
	for s := uint32(0); s < mesh.SubmeshCount; s++ {
		submesh := vr.scene.Submeshes[mesh.SubmeshOffset+s]
		if submesh.IndexCount == 0 {
			continue
		}
		vk.CmdDrawIndexed(cb.Handle, submesh.IndexCount, instanced.InstanceCount,
			submesh.IndexOffset, 0, instanced.BaseInstance)
	}
	return nil
}

// GenerateCommands zeroes the slot's device command buffer and dispatches the
// cull kernel over the fixed (group, submesh-slot) grid. Compute records
// before the render pass begins; a barrier orders the kernel's writes before
// indirect command consumption.
func (vr *VulkanRenderer) GenerateCommands(frame int64, input culling.VisibilityInput, list *metadata.CommandList) error {
	if !vr.context.Device.Capabilities.Has(metadata.CapabilityIndirectCommandGeneration) {
		return core.ErrCapabilityAbsent
	}
	if vr.scene == nil || vr.scene.GroupCount() == 0 {
		return core.ErrStaleBufferSize
	}
	if int(list.Groups) != vr.scene.GroupCount() || list.MaxSubmeshes != vr.scene.MaxSubmeshCount {
		return core.ErrStaleBufferSize
	}
	if vr.renderPassActive {
		return fmt.Errorf("func GenerateCommands - must record before any draws")
	}

	slot := int(frame % PipelineDepth)
	cb := vr.context.GraphicsCommandBuffers[slot]

	// Zero the slot's buffers so untouched slots stay no-ops.
	vk.CmdFillBuffer(cb.Handle, vr.commandBuffers[slot].Handle, 0, vr.commandBuffers[slot].TotalSize, 0)
	vk.CmdFillBuffer(cb.Handle, vr.executedBuffers[slot].Handle, 0, vr.executedBuffers[slot].TotalSize, 0)

	fillBarrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit) | vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		0, 1, []vk.MemoryBarrier{fillBarrier}, 0, nil, 0, nil)

	vr.cullPipeline.Bind(cb, vk.PipelineBindPointCompute)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointCompute, vr.cullPipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{vr.descriptorSets[slot]}, 0, nil)

	push := cullPushConstants{
		Groups:              list.Groups,
		MaxSubmeshes:        list.MaxSubmeshes,
		MinContributionArea: vr.visibilityOptions.MinContributionArea,
	}
	if vr.visibilityOptions.ContributionTestEnabled {
		push.Flags |= 1
	}
	if vr.visibilityOptions.DepthTestEnabled {
		push.Flags |= 2
	}
	vk.CmdPushConstants(cb.Handle, vr.cullPipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

	groupsX := (list.Groups + cullWorkgroupSize - 1) / cullWorkgroupSize
	groupsY := (list.MaxSubmeshes + cullWorkgroupSize - 1) / cullWorkgroupSize
	vk.CmdDispatch(cb.Handle, groupsX, groupsY, 1)

	cullBarrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask: vk.AccessFlags(vk.AccessIndirectCommandReadBit),
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		0, 1, []vk.MemoryBarrier{cullBarrier}, 0, nil, 0, nil)

	// The host mirror refreshes from the device buffers when the frame's
	// fence signals; until then it reflects the previous dispatch.
	vr.frameStates[slot].list = list
	return nil
}

// ExecuteCommands replays the slot's device-generated list with one
// multi-draw covering every slot; zeroed slots are no-ops.
func (vr *VulkanRenderer) ExecuteCommands(list *metadata.CommandList) error {
	if vr.scene == nil || vr.scene.GroupCount() == 0 {
		return core.ErrStaleBufferSize
	}
	slot := int(vr.currentFrame % PipelineDepth)
	cb := vr.context.GraphicsCommandBuffers[slot]
	vr.ensureRenderPass(cb)

	vr.scenePipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, vr.scenePipeline.PipelineLayout,
		0, 1, []vk.DescriptorSet{vr.descriptorSets[slot]}, 0, nil)
	vr.scenePipelineBound = true

	vk.CmdDrawIndexedIndirect(cb.Handle, vr.commandBuffers[slot].Handle, 0,
		uint32(list.Len()), indirectCommandSize)
	return nil
}

// EndFrame closes the render pass, submits with the slot's fence and
// presents. A completion goroutine waits on the fence, performs the trailing
// readbacks (occlusion query booleans, kernel diagnostics) and then releases
// the caller's in-flight token.
func (vr *VulkanRenderer) EndFrame(frame int64, onComplete func(frame int64)) error {
	slot := int(frame % PipelineDepth)
	cb := vr.context.GraphicsCommandBuffers[slot]

	// A frame with zero draws still clears and presents.
	vr.ensureRenderPass(cb)
	vr.renderpass.RenderpassEnd(cb)
	vr.renderPassActive = false

	if err := cb.End(); err != nil {
		return err
	}

	fence := vr.context.InFlightFences[slot]
	if err := fence.FenceReset(vr.context); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[slot]},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
		err := fmt.Errorf("queue submit failed: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	cb.UpdateSubmitted()

	vr.context.Swapchain.SwapchainPresent(vr.context, vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[slot], vr.context.ImageIndex)

	vr.FrameNumber++

	go vr.completeFrame(frame, slot, onComplete)
	return nil
}

// completeFrame runs off the render thread: wait for the device, read the
// frame's results back, then release the pipeline slot.
func (vr *VulkanRenderer) completeFrame(frame int64, slot int, onComplete func(frame int64)) {
	fence := vr.context.InFlightFences[slot]
	if !fence.FenceWait(vr.context, ^uint64(0)) {
		core.LogError("frame %d fence wait failed, completing without readback", frame)
		onComplete(frame)
		return
	}

	state := &vr.frameStates[slot]

	if pool := vr.queryPool(slot); pool != nil && state.queryResults != nil {
		fetched := make([]uint32, len(state.queryCandidates))
		if err := pool.FetchResults(vr.context, fetched); err == nil {
			for i, group := range state.queryCandidates {
				if int(group) < len(state.queryResults) {
					state.queryResults[group] = fetched[i]
				}
			}
		}
	}

	if state.list != nil {
		commands := state.list.Commands
		if len(commands) > 0 {
			raw := unsafe.Slice((*byte)(unsafe.Pointer(&commands[0])), len(commands)*int(indirectCommandSize))
			if err := vr.commandBuffers[slot].ReadData(vr.context, 0, vk.DeviceSize(len(raw)), raw); err != nil {
				core.LogError("command readback failed: %s", err.Error())
			}
		}
		executed := state.list.Executed
		if len(executed) > 0 {
			raw := unsafe.Slice((*byte)(unsafe.Pointer(&executed[0])), len(executed)*4)
			if err := vr.executedBuffers[slot].ReadData(vr.context, 0, vk.DeviceSize(len(raw)), raw); err != nil {
				core.LogError("executed readback failed: %s", err.Error())
			}
		}
	}

	onComplete(frame)
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	if vr.context.RecreatingSwapchain {
		return core.ErrSwapchainBooting
	}
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		// Minimized. Wait for a real size.
		return core.ErrSwapchainBooting
	}

	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		vr.context.RecreatingSwapchain = false
		return err
	}

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		vr.context.RecreatingSwapchain = false
		return err
	}
	vr.context.Swapchain = sc

	for _, fb := range vr.framebuffers {
		fb.Destroy(vr.context)
	}
	if err := vr.regenerateFramebuffers(); err != nil {
		vr.context.RecreatingSwapchain = false
		return err
	}

	vr.context.RecreatingSwapchain = false
	core.LogInfo("swapchain recreated at %dx%d", vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	return nil
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	vr.framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			vr.context.Swapchain.Views[i],
			vr.context.Swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.renderpass,
			vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		vr.framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, PipelineDepth)
	for i := 0; i < PipelineDepth; i++ {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, PipelineDepth)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, PipelineDepth)
	vr.context.InFlightFences = make([]*VulkanFence, PipelineDepth)

	for i := 0; i < PipelineDepth; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on image available")
			core.LogError(err.Error())
			return err
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on queue complete")
			core.LogError(err.Error())
			return err
		}
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = fence
	}
	return nil
}

const (
	bindingUniforms  = 0
	bindingInstances = 1
	bindingGroups    = 2
	bindingMeshes    = 3
	bindingSubmeshes = 4
	bindingBounds    = 5
	bindingCommands  = 6
	bindingExecuted  = 7
)

func (vr *VulkanRenderer) createDescriptorLayout() error {
	graphicsAndCompute := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: bindingUniforms, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: graphicsAndCompute},
		{Binding: bindingInstances, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: graphicsAndCompute},
		{Binding: bindingGroups, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: bindingMeshes, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: bindingSubmeshes, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: bindingBounds, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: bindingCommands, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
		{Binding: bindingExecuted, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit)},
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vr.context.Device.LogicalDevice, &layoutInfo, vr.context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vr.descriptorSetLayout = layout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: PipelineDepth},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: PipelineDepth * 7},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       PipelineDepth,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vr.context.Device.LogicalDevice, &poolInfo, vr.context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vr.descriptorPool = pool
	return nil
}

// createDescriptorSets (re)allocates one set per rotation slot and points
// every binding at the freshly bound scene and per-slot buffers.
func (vr *VulkanRenderer) createDescriptorSets() error {
	if vr.descriptorSets != nil {
		vk.FreeDescriptorSets(vr.context.Device.LogicalDevice, vr.descriptorPool, uint32(len(vr.descriptorSets)), &vr.descriptorSets[0])
		vr.descriptorSets = nil
	}

	vr.descriptorSets = make([]vk.DescriptorSet, PipelineDepth)
	layouts := make([]vk.DescriptorSetLayout, PipelineDepth)
	for i := range layouts {
		layouts[i] = vr.descriptorSetLayout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vr.descriptorPool,
		DescriptorSetCount: PipelineDepth,
		PSetLayouts:        layouts,
	}
	if res := vk.AllocateDescriptorSets(vr.context.Device.LogicalDevice, &allocateInfo, &vr.descriptorSets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor sets: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	storage := func(set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer, descriptorType vk.DescriptorType) vk.WriteDescriptorSet {
		return vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding,
			DescriptorCount: 1,
			DescriptorType:  descriptorType,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: buffer.Handle, Offset: 0, Range: buffer.TotalSize},
			},
		}
	}

	for i := 0; i < PipelineDepth; i++ {
		set := vr.descriptorSets[i]
		writes := []vk.WriteDescriptorSet{
			storage(set, bindingUniforms, vr.uniformBuffers[i], vk.DescriptorTypeUniformBuffer),
			storage(set, bindingInstances, vr.instanceBuffer, vk.DescriptorTypeStorageBuffer),
			storage(set, bindingGroups, vr.groupBuffer, vk.DescriptorTypeStorageBuffer),
			storage(set, bindingMeshes, vr.meshBuffer, vk.DescriptorTypeStorageBuffer),
			storage(set, bindingSubmeshes, vr.submeshBuffer, vk.DescriptorTypeStorageBuffer),
			storage(set, bindingBounds, vr.boundsBuffer, vk.DescriptorTypeStorageBuffer),
			storage(set, bindingCommands, vr.commandBuffers[i], vk.DescriptorTypeStorageBuffer),
			storage(set, bindingExecuted, vr.executedBuffers[i], vk.DescriptorTypeStorageBuffer),
		}
		vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
	return nil
}

func (vr *VulkanRenderer) createUniformBuffers() error {
	size := vk.DeviceSize(unsafe.Sizeof(frameUniformObject{}))
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	vr.uniformBuffers = make([]*VulkanBuffer, PipelineDepth)
	for i := 0; i < PipelineDepth; i++ {
		buffer, err := BufferCreate(vr.context, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible)
		if err != nil {
			return err
		}
		vr.uniformBuffers[i] = buffer
	}
	return nil
}

// createProxyGeometry uploads a unit cube the proxy shader stretches to each
// candidate's bounds.
func (vr *VulkanRenderer) createProxyGeometry() error {
	vertices := make([]math.Vertex3D, 8)
	for i := 0; i < 8; i++ {
		vertices[i].Position = math.Vec3{
			X: float32(i & 1),
			Y: float32((i >> 1) & 1),
			Z: float32((i >> 2) & 1),
		}
	}
	indices := []uint32{
		0, 1, 3, 0, 3, 2, // -z
		4, 6, 7, 4, 7, 5, // +z
		0, 4, 5, 0, 5, 1, // -y
		2, 3, 7, 2, 7, 6, // +y
		0, 2, 6, 0, 6, 4, // -x
		1, 5, 7, 1, 7, 3, // +x
	}

	var err error
	if vr.proxyVertexBuffer, err = BufferCreateAndUpload(vr.context, vertexBytes(vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if vr.proxyIndexBuffer, err = BufferCreateAndUpload(vr.context, uint32Bytes(indices),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)); err != nil {
		return err
	}
	return nil
}

func (vr *VulkanRenderer) createPipelines() error {
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
	}
	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(vr.context.FramebufferWidth),
		Height:   float32(vr.context.FramebufferHeight),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	stride := uint32(unsafe.Sizeof(math.Vertex3D{}))

	sceneVert, err := NewShaderModule(vr.context, "scene", "vert", vk.ShaderStageVertexBit)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
	}
	defer sceneVert.Destroy(vr.context)
	sceneFrag, err := NewShaderModule(vr.context, "scene", "frag", vk.ShaderStageFragmentBit)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
	}
	defer sceneFrag.Destroy(vr.context)
	proxyVert, err := NewShaderModule(vr.context, "proxy", "vert", vk.ShaderStageVertexBit)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
	}
	defer proxyVert.Destroy(vr.context)
	proxyFrag, err := NewShaderModule(vr.context, "proxy", "frag", vk.ShaderStageFragmentBit)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
	}
	defer proxyFrag.Destroy(vr.context)

	vr.scenePipeline, err = NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.renderpass,
		Stride:               stride,
		Attributes:           attributes,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptorSetLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{sceneVert.ShaderStageCreateInfo, sceneFrag.ShaderStageCreateInfo},
		Viewport:             viewport,
		Scissor:              scissor,
		CullBackFaces:        true,
		DepthTest:            true,
		DepthWrite:           true,
		ColorWrite:           true,
	})
	if err != nil {
		return err
	}

	proxyConfig := VulkanPipelineConfig{
		Renderpass:           vr.renderpass,
		Stride:               stride,
		Attributes:           attributes[:1],
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.descriptorSetLayout},
		Stages:               []vk.PipelineShaderStageCreateInfo{proxyVert.ShaderStageCreateInfo, proxyFrag.ShaderStageCreateInfo},
		Viewport:             viewport,
		Scissor:              scissor,
		// Depth test against what the scene wrote; never write depth or
		// color so proxies leave no trace.
		DepthTest:        true,
		DepthWrite:       false,
		ColorWrite:       false,
		PushConstantSize: uint32(unsafe.Sizeof(proxyPushConstants{})),
	}
	if vr.proxyPipeline, err = NewGraphicsPipeline(vr.context, &proxyConfig); err != nil {
		return err
	}
	debugConfig := proxyConfig
	debugConfig.ColorWrite = true
	if vr.proxyDebugPipeline, err = NewGraphicsPipeline(vr.context, &debugConfig); err != nil {
		return err
	}

	if vr.context.Device.Capabilities.Has(metadata.CapabilityIndirectCommandGeneration) {
		cullComp, err := NewShaderModule(vr.context, "cull", "comp", vk.ShaderStageComputeBit)
		if err != nil {
			return fmt.Errorf("%w: %s", core.ErrResourceCreation, err)
		}
		defer cullComp.Destroy(vr.context)
		vr.cullPipeline, err = NewComputePipeline(vr.context, cullComp.ShaderStageCreateInfo,
			[]vk.DescriptorSetLayout{vr.descriptorSetLayout}, uint32(unsafe.Sizeof(cullPushConstants{})))
		if err != nil {
			return err
		}
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
