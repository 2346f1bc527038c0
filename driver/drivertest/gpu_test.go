package drivertest

import (
	"testing"

	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"
)

func newSwapchain(g *GPU, device vk.Device, images uint32) vk.Swapchain {
	sc, _ := g.CreateSwapchain(device, &vk.SwapchainCreateInfo{
		MinImageCount:    images,
		ImageSharingMode: vk.SharingModeExclusive,
	})
	return sc
}

func submit(g *GPU, queue vk.Queue, fence vk.Fence, cb vk.CommandBuffer) vk.Result {
	return g.QueueSubmit(queue, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}}, fence)
}

func TestSubmissionCompletesOnFenceWait(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	queue := gpu.DeviceQueue(device, 0)
	fence, res := gpu.CreateFence(device, false)
	g.Expect(res).To(Equal(vk.Success))

	g.Expect(submit(gpu, queue, fence, gpu.CommandBuffers(1)[0])).To(Equal(vk.Success))
	g.Expect(gpu.Outstanding()).To(Equal(1))
	g.Expect(gpu.Pending(fence)).To(BeTrue())
	g.Expect(gpu.Signaled(fence)).To(BeFalse())

	g.Expect(gpu.WaitForFences(device, []vk.Fence{fence}, 0)).To(Equal(vk.Success))
	g.Expect(gpu.Outstanding()).To(BeZero())
	g.Expect(gpu.Signaled(fence)).To(BeTrue())
	g.Expect(gpu.Submissions()).To(HaveLen(1))
	g.Expect(gpu.Submissions()[0].Done).To(BeTrue())
	g.Expect(gpu.MaxOutstanding()).To(Equal(1))
	g.Expect(gpu.Violations()).To(BeEmpty())
}

func TestWaitWithoutPendingSignalTimesOut(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	fence, _ := gpu.CreateFence(device, false)

	g.Expect(gpu.WaitForFences(device, []vk.Fence{fence}, 1)).To(Equal(vk.Timeout))
}

func TestDeviceWaitIdleCompletesEverything(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	queue := gpu.DeviceQueue(device, 0)
	buffers := gpu.CommandBuffers(2)

	g.Expect(submit(gpu, queue, vk.Fence(vk.NullHandle), buffers[0])).To(Equal(vk.Success))
	g.Expect(submit(gpu, queue, vk.Fence(vk.NullHandle), buffers[1])).To(Equal(vk.Success))
	g.Expect(gpu.MaxOutstanding()).To(Equal(2))

	g.Expect(gpu.DeviceWaitIdle(device)).To(Equal(vk.Success))
	g.Expect(gpu.Outstanding()).To(BeZero())
	g.Expect(gpu.Ops()).To(Equal([]string{"QueueSubmit", "QueueSubmit", "DeviceWaitIdle"}))
}

func TestResetOfPendingFenceIsViolation(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	queue := gpu.DeviceQueue(device, 0)
	fence, _ := gpu.CreateFence(device, false)

	submit(gpu, queue, fence, gpu.CommandBuffers(1)[0])
	gpu.ResetFences(device, []vk.Fence{fence})

	g.Expect(gpu.Violations()).To(ConsistOf(ContainSubstring("reset while submission")))
}

func TestSubmitOfSignaledFenceIsViolation(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	queue := gpu.DeviceQueue(device, 0)
	fence, _ := gpu.CreateFence(device, true)

	submit(gpu, queue, fence, gpu.CommandBuffers(1)[0])

	g.Expect(gpu.Violations()).To(ConsistOf(ContainSubstring("submitted while signaled")))
}

func TestAcquireReusingSignaledSemaphoreIsViolation(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	sc := newSwapchain(gpu, device, 3)
	sem, _ := gpu.CreateSemaphore(device)

	index, res := gpu.AcquireNextImage(device, sc, 0, sem)
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(index).To(BeZero())
	g.Expect(gpu.Violations()).To(BeEmpty())

	index, res = gpu.AcquireNextImage(device, sc, 0, sem)
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(index).To(Equal(uint32(1)))
	g.Expect(gpu.Violations()).To(ConsistOf(ContainSubstring("while already signaled")))
}

func TestAcquireWithAllImagesHeld(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	sc := newSwapchain(gpu, device, 1)
	first, _ := gpu.CreateSemaphore(device)
	second, _ := gpu.CreateSemaphore(device)

	_, res := gpu.AcquireNextImage(device, sc, 0, first)
	g.Expect(res).To(Equal(vk.Success))

	_, res = gpu.AcquireNextImage(device, sc, 0, second)
	g.Expect(res).To(Equal(vk.NotReady))

	_, res = gpu.AcquireNextImage(device, sc, 10, second)
	g.Expect(res).To(Equal(vk.Timeout))
}

func TestPresentOfUnacquiredImageIsViolation(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	queue := gpu.DeviceQueue(device, 0)
	sc := newSwapchain(gpu, device, 2)

	gpu.QueuePresent(queue, &vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc},
		PImageIndices:  []uint32{0},
	})

	g.Expect(gpu.Violations()).To(ConsistOf(ContainSubstring("which is not acquired")))
	g.Expect(gpu.Presents()).To(BeEmpty())
}

func TestDestroyOrderViolations(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	sc := newSwapchain(gpu, device, 2)
	images, res := gpu.SwapchainImages(device, sc)
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(images).To(HaveLen(2))

	view, res := gpu.CreateImageView(device, &vk.ImageViewCreateInfo{Image: images[0]})
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(gpu.Live(KindImageView)).To(Equal(1))

	gpu.DestroySwapchain(device, sc)
	g.Expect(gpu.Violations()).To(ConsistOf(ContainSubstring("destroyed while")))
	g.Expect(gpu.Destroyed(sc)).To(BeTrue())
	g.Expect(gpu.Live(KindImage)).To(BeZero())

	gpu.DestroyImageView(device, view)
	gpu.DestroyImageView(device, view)
	g.Expect(gpu.Violations()).To(HaveLen(2))
	g.Expect(gpu.Violations()[1]).To(ContainSubstring("used after destruction"))
}

func TestFailNthCountsFromNow(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()

	_, res := gpu.CreateSemaphore(device)
	g.Expect(res).To(Equal(vk.Success))

	gpu.FailNth("CreateSemaphore", 2, vk.ErrorOutOfHostMemory)

	first, res := gpu.CreateSemaphore(device)
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(gpu.Name(first)).To(HavePrefix("semaphore#"))

	failed, res := gpu.CreateSemaphore(device)
	g.Expect(res).To(Equal(vk.ErrorOutOfHostMemory))
	g.Expect(gpu.Name(failed)).To(Equal("null"))

	_, res = gpu.CreateSemaphore(device)
	g.Expect(res).To(Equal(vk.Success))
	g.Expect(gpu.Live(KindSemaphore)).To(Equal(3))
}

func TestInjectedSuboptimalStillAcquires(t *testing.T) {
	g := NewWithT(t)

	gpu := New()
	device := gpu.Device()
	sc := newSwapchain(gpu, device, 2)
	sem, _ := gpu.CreateSemaphore(device)

	gpu.FailNext("AcquireNextImage", vk.Suboptimal)
	index, res := gpu.AcquireNextImage(device, sc, 0, sem)

	g.Expect(res).To(Equal(vk.Suboptimal))
	g.Expect(index).To(BeZero())
	g.Expect(gpu.Signaled(sem)).To(BeTrue())
}
