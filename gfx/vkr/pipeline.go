// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"errors"
	"unsafe"

	"github.com/basalt3d/basalt/model"
	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// PushConstant carries per draw data into the vertex stage.
type PushConstant struct {
	Model glm.Mat4
}

// NewDescriptorSetLayouts creates one identical set layout per swapchain
// image: the uniform block on binding 0 for the vertex stage and the
// combined image sampler on binding 1 for the fragment stage.
func NewDescriptorSetLayouts(dev vk.Device, count int) ([]vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		vk.DescriptorSetLayoutBinding{
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Binding:         0,
		},
		vk.DescriptorSetLayoutBinding{
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Binding:         1,
		},
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var descriptorSetLayouts []vk.DescriptorSetLayout
	for idx := 0; idx < count; idx++ {
		var descriptorSetLayout vk.DescriptorSetLayout
		if err := vk.Error(vk.CreateDescriptorSetLayout(dev, &dslci, nil, &descriptorSetLayout)); err != nil {
			DestroyDescriptorSetLayouts(dev, descriptorSetLayouts)
			return nil, errors.New("vk.CreateDescriptorSetLayout(): " + err.Error())
		}
		descriptorSetLayouts = append(descriptorSetLayouts, descriptorSetLayout)
	}
	return descriptorSetLayouts, nil
}

// DestroyDescriptorSetLayouts tears down a layout batch.
func DestroyDescriptorSetLayouts(dev vk.Device, layouts []vk.DescriptorSetLayout) {
	for _, layout := range layouts {
		vk.DestroyDescriptorSetLayout(dev, layout, nil)
	}
}

// NewPipelineLayout ties the set layouts together with the push constant
// range for the vertex stage.
func NewPipelineLayout(dev vk.Device, setLayouts []vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	pcr := []vk.PushConstantRange{
		vk.PushConstantRange{
			Offset:     0,
			Size:       uint32(unsafe.Sizeof(PushConstant{})),
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pcr)),
		PPushConstantRanges:    pcr,
	}

	var pipelineLayout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(dev, &plci, nil, &pipelineLayout)); err != nil {
		return nil, errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	return pipelineLayout, nil
}

// NewDescriptorPool sizes a pool generously for the expected resource
// count, one uniform and one sampler descriptor per set.
func NewDescriptorPool(dev vk.Device, imageCount int) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(imageCount) * 100,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(imageCount) * 100,
		}}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(imageCount) * uint32(len(poolSizes)) * 100,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var descriptorPool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(dev, &dpci, nil, &descriptorPool)); err != nil {
		return nil, errors.New("vk.CreateDescriptorPool(): " + err.Error())
	}
	return descriptorPool, nil
}

// AllocateDescriptorSets writes one descriptor set per swapchain image,
// each pointing at that image's uniform slot and the resource's texture.
func AllocateDescriptorSets(dev vk.Device, pool vk.DescriptorPool, layouts []vk.DescriptorSetLayout, uniforms *UniformRing, textureView vk.ImageView, sampler vk.Sampler) ([]vk.DescriptorSet, error) {
	descriptorSets := make([]vk.DescriptorSet, uniforms.Slots())
	for idx := 0; idx < uniforms.Slots(); idx++ {
		dsai := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layouts[idx]},
		}

		if err := vk.Error(vk.AllocateDescriptorSets(dev, &dsai, &descriptorSets[idx])); err != nil {
			return nil, errors.New("vk.AllocateDescriptorSets(): " + err.Error())
		}

		dbi := vk.DescriptorBufferInfo{
			Buffer: uniforms.Buffer(idx),
			Offset: 0,
			Range:  vk.DeviceSize(uniforms.SlotSize()),
		}
		dii := vk.DescriptorImageInfo{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   textureView,
			Sampler:     sampler,
		}
		wds := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptorSets[idx],
			DstBinding:      0,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo:     []vk.DescriptorBufferInfo{dbi},
		}, {
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          descriptorSets[idx],
			DstBinding:      1,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo:      []vk.DescriptorImageInfo{dii},
		}}
		vk.UpdateDescriptorSets(dev, uint32(len(wds)), wds, 0, nil)
	}
	return descriptorSets, nil
}

// NewSampler creates the default linear filtering repeat sampler shared by
// all textures.
func NewSampler(dev vk.Device) (vk.Sampler, error) {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           16,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}

	var textureSampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(dev, &sci, nil, &textureSampler)); err != nil {
		return nil, errors.New("vk.CreateSampler(): " + err.Error())
	}
	return textureSampler, nil
}

// NewPipelineCache creates an empty pipeline cache.
func NewPipelineCache(dev vk.Device) (vk.PipelineCache, error) {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}

	var pipelineCache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(dev, &pcci, nil, &pipelineCache)); err != nil {
		return nil, errors.New("vk.CreatePipelineCache(): " + err.Error())
	}
	return pipelineCache, nil
}

// NewPipeline builds the graphics pipeline. Viewport and scissor are
// dynamic state, so the pipeline survives swapchain recreation and only
// the recorded commands change with the extent.
func NewPipeline(dev vk.Device, cache vk.PipelineCache, renderPass vk.RenderPass, layout vk.PipelineLayout, stages []vk.PipelineShaderStageCreateInfo, samples vk.SampleCountFlagBits) (vk.Pipeline, error) {
	vertexAttributeDescriptions := model.VertexAttributeDescriptions()
	vertexBindingDescriptions := model.VertexBindingDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
			PVertexAttributeDescriptions:    vertexAttributeDescriptions,
			VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
			PVertexBindingDescriptions:      vertexBindingDescriptions,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			StencilTestEnable: vk.False,
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: samples,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     layout,
		RenderPass: renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(dev, cache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return nil, errors.New("vk.CreateGraphicsPipelines(): " + err.Error())
	}
	return pipelines[0], nil
}
