package driver

import (
	vk "github.com/vulkan-go/vulkan"
)

// Vulkan forwards every call to the vulkan-go binding. vk.Init must have been
// called before any of its methods are used.
type Vulkan struct{}

var _ Driver = Vulkan{}

func (Vulkan) SurfaceCapabilities(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) (vk.SurfaceCapabilities, vk.Result) {
	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &capabilities)
	if res != vk.Success {
		return capabilities, res
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()

	return capabilities, res
}

func (Vulkan) SurfaceFormats(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) ([]vk.SurfaceFormat, vk.Result) {
	var formatCount uint32
	res := vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)
	if res != vk.Success || formatCount == 0 {
		return nil, res
	}

	formats := make([]vk.SurfaceFormat, formatCount)
	res = vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, formats)
	if res != vk.Success {
		return nil, res
	}
	for i := range formats {
		formats[i].Deref()
	}

	return formats[:formatCount], res
}

func (Vulkan) SurfacePresentModes(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) ([]vk.PresentMode, vk.Result) {
	var presentModeCount uint32
	res := vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, nil)
	if res != vk.Success || presentModeCount == 0 {
		return nil, res
	}

	presentModes := make([]vk.PresentMode, presentModeCount)
	res = vk.GetPhysicalDeviceSurfacePresentModes(
		pd, surface, &presentModeCount, presentModes,
	)
	if res != vk.Success {
		return nil, res
	}

	return presentModes[:presentModeCount], res
}

func (Vulkan) CreateSwapchain(
	device vk.Device,
	info *vk.SwapchainCreateInfo,
) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(device, info, nil, &swapchain)
	return swapchain, res
}

func (Vulkan) SwapchainImages(
	device vk.Device,
	swapchain vk.Swapchain,
) ([]vk.Image, vk.Result) {
	var imagesCount uint32
	res := vk.GetSwapchainImages(device, swapchain, &imagesCount, nil)
	if res != vk.Success {
		return nil, res
	}

	images := make([]vk.Image, imagesCount)
	res = vk.GetSwapchainImages(device, swapchain, &imagesCount, images)
	if res != vk.Success {
		return nil, res
	}

	return images[:imagesCount], res
}

func (Vulkan) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(device, swapchain, nil)
}

func (Vulkan) CreateImageView(
	device vk.Device,
	info *vk.ImageViewCreateInfo,
) (vk.ImageView, vk.Result) {
	var imageView vk.ImageView
	res := vk.CreateImageView(device, info, nil, &imageView)
	return imageView, res
}

func (Vulkan) DestroyImageView(device vk.Device, view vk.ImageView) {
	vk.DestroyImageView(device, view, nil)
}

func (Vulkan) CreateFramebuffer(
	device vk.Device,
	info *vk.FramebufferCreateInfo,
) (vk.Framebuffer, vk.Result) {
	var frameBuffer vk.Framebuffer
	res := vk.CreateFramebuffer(device, info, nil, &frameBuffer)
	return frameBuffer, res
}

func (Vulkan) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(device, framebuffer, nil)
}

func (Vulkan) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(device, &semaphoreInfo, nil, &semaphore)
	return semaphore, res
}

func (Vulkan) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	vk.DestroySemaphore(device, semaphore, nil)
}

func (Vulkan) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	res := vk.CreateFence(device, &fenceInfo, nil, &fence)
	return fence, res
}

func (Vulkan) DestroyFence(device vk.Device, fence vk.Fence) {
	vk.DestroyFence(device, fence, nil)
}

func (Vulkan) WaitForFences(device vk.Device, fences []vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(device, uint32(len(fences)), fences, vk.True, timeout)
}

func (Vulkan) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	return vk.ResetFences(device, uint32(len(fences)), fences)
}

func (Vulkan) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)
	return queue
}

func (Vulkan) AcquireNextImage(
	device vk.Device,
	swapchain vk.Swapchain,
	timeout uint64,
	semaphore vk.Semaphore,
) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(
		device,
		swapchain,
		timeout,
		semaphore,
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)
	return imageIndex, res
}

func (Vulkan) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (Vulkan) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (Vulkan) DeviceWaitIdle(device vk.Device) vk.Result {
	return vk.DeviceWaitIdle(device)
}
