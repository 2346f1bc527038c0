// Package driver defines the narrow set of Vulkan entry points used by the
// swapchain, synchronization and queue code, so that the frame protocol can
// run against either the real vulkan-go binding or a simulated GPU.
//
// Methods mirror the vk functions they wrap but take and return Go slices
// instead of count/pointer pairs. Fallible calls return the raw vk.Result so
// that callers can tell apart codes such as vk.Suboptimal and
// vk.ErrorOutOfDate.
package driver

import (
	vk "github.com/vulkan-go/vulkan"
)

// Driver is implemented by Vulkan and by drivertest.GPU.
type Driver interface {
	SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result)
	SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result)
	SurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result)

	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)

	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(device vk.Device, view vk.ImageView)

	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer)

	CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)

	CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFences(device vk.Device, fences []vk.Fence, timeout uint64) vk.Result
	ResetFences(device vk.Device, fences []vk.Fence) vk.Result

	DeviceQueue(device vk.Device, family uint32) vk.Queue
	AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
	DeviceWaitIdle(device vk.Device) vk.Result
}
