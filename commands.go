package main

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/swapchain"
)

func (a *App) createCommandPool() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: a.families.Graphics.Get(),
	}

	var commandPool vk.CommandPool
	res := vk.CreateCommandPool(a.device, &poolInfo, nil, &commandPool)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}
	a.commandPool = commandPool

	return nil
}

// createCommandBuffers allocates and records one command buffer per swapchain
// image. They are recorded once; the simultaneous use flag lets a buffer be
// resubmitted while an earlier submission of it may still be pending.
func (a *App) createCommandBuffers() error {
	count := a.swapChain.ImageCount()

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        a.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	commandBuffers := make([]vk.CommandBuffer, count)
	res := vk.AllocateCommandBuffers(a.device, &allocInfo, commandBuffers)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to allocate command buffers")
	}
	a.commandBuffers = commandBuffers

	for i, commandBuffer := range commandBuffers {
		if err := a.recordCommandBuffer(commandBuffer, swapchain.ImageIndex(i)); err != nil {
			return errors.Wrapf(err, "command buffer %d", i)
		}
	}

	return nil
}

func (a *App) recordCommandBuffer(
	commandBuffer vk.CommandBuffer,
	image swapchain.ImageIndex,
) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}

	res := vk.BeginCommandBuffer(commandBuffer, &beginInfo)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "cannot add begin command to the buffer")
	}

	clearColor := vk.NewClearValue(a.cfg.clearColor[:])

	renderPassInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      a.renderPass,
		Framebuffer:     a.framebuffers.At(image),
		RenderArea:      vk.Rect2D{Extent: a.swapChain.Extent()},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{clearColor},
	}

	vk.CmdBeginRenderPass(commandBuffer, &renderPassInfo, vk.SubpassContentsInline)
	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, a.pipeline)
	vk.CmdDraw(commandBuffer, 3, 1, 0, 0)
	vk.CmdEndRenderPass(commandBuffer)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return errors.Wrap(err, "recording commands to buffer failed")
	}
	return nil
}
