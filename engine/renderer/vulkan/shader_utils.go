package vulkan

import (
	"fmt"
	"os"

	vk "github.com/goki/vulkan"

	"github.com/codefiesta/VimKit-sub001/engine/core"
)

// VulkanShaderStage is a compiled SPIR-V module paired with the create info
// a pipeline needs to bind it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderModule loads a compiled SPIR-V binary from disk and wraps it in a
// pipeline stage. name and typeStr form the file name, e.g.
// "assets/shaders/cull.comp.spv".
func NewShaderModule(context *VulkanContext, name, typeStr string, shaderStageFlag vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	fileName := fmt.Sprintf("assets/shaders/%s.%s.spv", name, typeStr)

	code, err := os.ReadFile(fileName)
	if err != nil {
		err := fmt.Errorf("unable to read shader module %s: %w", fileName, err)
		core.LogError(err.Error())
		return nil, err
	}
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader module %s is not valid SPIR-V", fileName)
		core.LogError(err.Error())
		return nil, err
	}

	stage := &VulkanShaderStage{}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    repackUint32(code),
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %s: %s", fileName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	stage.Handle = handle

	stage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  shaderStageFlag,
		Module: stage.Handle,
		PName:  VulkanSafeString("main"),
	}

	return stage, nil
}

func (vs *VulkanShaderStage) Destroy(context *VulkanContext) {
	if vs == nil || vs.Handle == vk.NullShaderModule {
		return
	}
	vk.DestroyShaderModule(context.Device.LogicalDevice, vs.Handle, context.Allocator)
	vs.Handle = vk.NullShaderModule
}

// repackUint32 reinterprets SPIR-V bytes as the words Vulkan expects.
// The file is produced little-endian by glslc, matching every platform this
// engine targets.
func repackUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
	}
	return words
}
