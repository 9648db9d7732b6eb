package vkcore

import vk "github.com/vulkan-go/vulkan"

// ShaderStage names a single entry point loaded into a ShaderModule,
// replacing the teacher's VERTEX/FRAG/COMPUTE/GEOM/TESS int constants
// (shader.go) with a type-checked enum.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
	StageGeometry
	StageTessControl
	StageTessEval
)

func (s ShaderStage) vkFlag() vk.ShaderStageFlagBits {
	switch s {
	case StageVertex:
		return vk.ShaderStageVertexBit
	case StageFragment:
		return vk.ShaderStageFragmentBit
	case StageCompute:
		return vk.ShaderStageComputeBit
	case StageGeometry:
		return vk.ShaderStageGeometryBit
	case StageTessControl:
		return vk.ShaderStageTessellationControlBit
	case StageTessEval:
		return vk.ShaderStageTessellationEvaluationBit
	default:
		return vk.ShaderStageVertexBit
	}
}

// ShaderModule owns a single VkShaderModule, replacing the teacher's
// CoreShader (shader.go) — one struct holding exactly a vertex and a
// fragment module per "program" — with a cacheable per-stage value so a
// pipeline can combine any number of stages.
type ShaderModule struct {
	device *Device
	handle vk.ShaderModule
	stage  ShaderStage
}

// LoadShaderModule compiles a SPIR-V blob into a VkShaderModule, grounded
// in asche's LoadShaderModule (extensions.go) / the teacher's
// CoreShader.LoadShaderModule (shader.go).
func LoadShaderModule(device *Device, stage ShaderStage, spirv []byte) (*ShaderModule, error) {
	var handle vk.ShaderModule
	ret := vk.CreateShaderModule(device.handle, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateShaderModule", ret)
	}
	return &ShaderModule{device: device, handle: handle, stage: stage}, nil
}

// stageInfo returns the VkPipelineShaderStageCreateInfo for this module,
// entering at "main" as every SPIR-V compiler in the pack's toolchains
// defaults to.
func (m *ShaderModule) stageInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  m.stage.vkFlag(),
		Module: m.handle,
		PName:  safeString("main"),
	}
}

// Destroy destroys the underlying VkShaderModule. Shader modules may be
// destroyed immediately after the pipelines referencing them are built,
// so this does not need to go through the deferred release queue.
func (m *ShaderModule) Destroy() {
	if m.handle != vk.NullShaderModule {
		vk.DestroyShaderModule(m.device.handle, m.handle, nil)
		m.handle = vk.NullShaderModule
	}
}
