package main

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/shaders"
	"github.com/foxmulder900/vulkan-base/unsafer"
)

// createRenderPass builds a single subpass pass writing one color attachment
// in the swapchain format. The attachment is cleared on load and left ready
// for presentation.
func (a *App) createRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         a.swapChain.ImageFormat(),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}}

	// The layout transition must not start before the image-available
	// semaphore, which submissions wait on at color attachment output.
	colorOutput := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  colorOutput,
		DstStageMask:  colorOutput,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(a.device, &createInfo, nil, &renderPass)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to create render pass")
	}
	a.renderPass = renderPass

	return nil
}

// shaderStage loads one embedded SPIR-V file into a shader module. The caller
// destroys the module once the pipeline exists.
func (a *App) shaderStage(
	file string,
	stage vk.ShaderStageFlagBits,
) (vk.PipelineShaderStageCreateInfo, error) {
	code, err := shaders.FS.ReadFile(file)
	if err != nil {
		return vk.PipelineShaderStageCreateInfo{}, errors.Wrapf(err, "reading %s", file)
	}

	module, err := a.createShaderModule(code)
	if err != nil {
		return vk.PipelineShaderStageCreateInfo{}, errors.Wrapf(err, "shader module of %s", file)
	}

	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  "main\x00",
	}, nil
}

func (a *App) createShaderModule(code []byte) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    unsafer.BytesToWords(code),
	}

	var shaderModule vk.ShaderModule
	res := vk.CreateShaderModule(a.device, &createInfo, nil, &shaderModule)
	return shaderModule, vk.Error(res)
}

// createGraphicsPipeline builds the triangle pipeline. Viewport and scissor
// are fixed to the swapchain extent: the window cannot be resized and the
// command buffers are recorded only once, so there is no dynamic state.
func (a *App) createGraphicsPipeline() error {
	var stages []vk.PipelineShaderStageCreateInfo
	defer func() {
		for _, stage := range stages {
			vk.DestroyShaderModule(a.device, stage.Module, nil)
		}
	}()

	for _, s := range []struct {
		file  string
		stage vk.ShaderStageFlagBits
	}{
		{shaders.Vertex, vk.ShaderStageVertexBit},
		{shaders.Fragment, vk.ShaderStageFragmentBit},
	} {
		info, err := a.shaderStage(s.file, s.stage)
		if err != nil {
			return err
		}
		stages = append(stages, info)
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	var pipelineLayout vk.PipelineLayout
	res := vk.CreatePipelineLayout(a.device, &layoutInfo, nil, &pipelineLayout)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to create pipeline layout")
	}
	a.pipelineLayout = pipelineLayout

	extent := a.swapChain.Extent()

	// No vertex input: the vertex shader indexes its own positions.
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: extent,
		}},
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   1,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}

	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit |
				vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		}},
	}

	createInfos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		Layout:              a.pipelineLayout,
		RenderPass:          a.renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.Pipeline(vk.NullHandle),
		BasePipelineIndex:   -1,
	}}

	pipelines := make([]vk.Pipeline, len(createInfos))
	res = vk.CreateGraphicsPipelines(
		a.device,
		vk.PipelineCache(vk.NullHandle),
		uint32(len(createInfos)),
		createInfos,
		nil,
		pipelines,
	)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}
	a.pipeline = pipelines[0]

	return nil
}
