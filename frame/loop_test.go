package frame

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver/drivertest"
	"github.com/foxmulder900/vulkan-base/optional"
	"github.com/foxmulder900/vulkan-base/queues"
	"github.com/foxmulder900/vulkan-base/swapchain"
)

var _ = Describe("Loop", func() {
	var (
		gpu    *drivertest.GPU
		device vk.Device
		sc     *swapchain.Swapchain
		qm     *queues.Manager
		cmds   []vk.CommandBuffer
		loop   *Loop
	)

	// build creates a swapchain of exactly imageCount images and a loop
	// over it.
	build := func(imageCount uint32) {
		gpu = drivertest.New()
		gpu.Capabilities.MinImageCount = imageCount - 1
		gpu.Capabilities.MaxImageCount = imageCount
		device = gpu.Device()

		var err error
		sc, err = swapchain.New(gpu, swapchain.Config{
			PhysicalDevice: gpu.PhysicalDevice(),
			Device:         device,
			Surface:        gpu.Surface(),
			Width:          800,
			Height:         600,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.ImageCount()).To(Equal(int(imageCount)))

		qm, err = queues.NewManager(gpu, queues.Config{
			Device: device,
			Families: queues.FamilyIndices{
				Graphics: optional.Of[uint32](0),
				Present:  optional.Of[uint32](0),
			},
		})
		Expect(err).NotTo(HaveOccurred())

		cmds = gpu.CommandBuffers(sc.ImageCount())
		loop, err = New(gpu, device, sc, qm, cmds)
		Expect(err).NotTo(HaveOccurred())
	}

	teardown := func() {
		Expect(gpu.DeviceWaitIdle(device)).To(Equal(vk.Success))
		loop.Destroy()
		qm.Destroy()
		sc.Teardown()
	}

	Context("with a two image swapchain", func() {
		BeforeEach(func() {
			build(2)
		})

		AfterEach(func() {
			teardown()
			Expect(gpu.Live(drivertest.KindSemaphore)).To(BeZero())
			Expect(gpu.Live(drivertest.KindFence)).To(BeZero())
			Expect(gpu.Violations()).To(BeEmpty())
		})

		It("creates one image available semaphore per slot", func() {
			Expect(loop.imageAvailable).To(HaveLen(queues.MaxFramesInFlight))
			Expect(gpu.Live(drivertest.KindSemaphore)).To(Equal(2 * queues.MaxFramesInFlight))
		})

		It("never has more than two submissions outstanding over five frames", func() {
			for i := 0; i < 5; i++ {
				Expect(loop.RunFrame()).To(Succeed())
				Expect(gpu.Outstanding()).To(BeNumerically("<=", queues.MaxFramesInFlight))
			}

			Expect(gpu.MaxOutstanding()).To(Equal(queues.MaxFramesInFlight))
			Expect(gpu.Submissions()).To(HaveLen(5))
			Expect(gpu.Presents()).To(HaveLen(5))
			Expect(loop.Frames()).To(Equal(uint64(5)))
		})

		It("cycles through the slots with a period of two", func() {
			var slots []queues.FrameSlot
			for i := 0; i < 5; i++ {
				slots = append(slots, loop.Slot())
				Expect(loop.RunFrame()).To(Succeed())
			}
			Expect(slots).To(Equal([]queues.FrameSlot{0, 1, 0, 1, 0}))
			Expect(loop.Slot()).To(Equal(queues.FrameSlot(1)))
		})

		It("waits for the slot's previous submission before reusing it", func() {
			for i := 0; i < 5; i++ {
				Expect(loop.RunFrame()).To(Succeed())

				subs := gpu.Submissions()
				if i >= queues.MaxFramesInFlight {
					previous := subs[i-queues.MaxFramesInFlight]
					Expect(previous.Done).To(BeTrue(), "frame %d", i)
					Expect(gpu.Name(previous.Fence)).To(Equal(gpu.Name(subs[i].Fence)))
				}
				Expect(subs[i].Done).To(BeFalse(), "frame %d", i)
			}
		})

		It("waits and resets the fence before acquiring each frame", func() {
			for i := 0; i < 2; i++ {
				Expect(loop.RunFrame()).To(Succeed())
			}

			Expect(gpu.Ops(
				"WaitForFences",
				"ResetFences",
				"AcquireNextImage",
				"QueueSubmit",
				"QueuePresent",
			)).To(Equal([]string{
				"WaitForFences", "ResetFences", "AcquireNextImage", "QueueSubmit", "QueuePresent",
				"WaitForFences", "ResetFences", "AcquireNextImage", "QueueSubmit", "QueuePresent",
			}))
		})

		It("waits on the image available semaphore of the slot", func() {
			for i := 0; i < 4; i++ {
				Expect(loop.RunFrame()).To(Succeed())
			}

			for i, sub := range gpu.Submissions() {
				Expect(sub.WaitSemaphores).To(HaveLen(1))
				want := loop.imageAvailable[i%queues.MaxFramesInFlight]
				Expect(gpu.Name(sub.WaitSemaphores[0])).To(Equal(gpu.Name(want)), "frame %d", i)
			}
		})
	})

	Context("with a three image swapchain", func() {
		BeforeEach(func() {
			build(3)
		})

		AfterEach(func() {
			teardown()
			Expect(gpu.Violations()).To(BeEmpty())
		})

		It("submits the command buffer of the acquired image, not of the slot", func() {
			for i := 0; i < 6; i++ {
				Expect(loop.RunFrame()).To(Succeed())
			}

			subs := gpu.Submissions()
			presents := gpu.Presents()
			Expect(subs).To(HaveLen(6))
			Expect(presents).To(HaveLen(6))

			diverged := false
			for i := range subs {
				image := presents[i].ImageIndex
				Expect(subs[i].CommandBuffers).To(HaveLen(1))
				Expect(gpu.Name(subs[i].CommandBuffers[0])).To(Equal(gpu.Name(cmds[image])),
					"frame %d", i)
				if image != uint32(i%queues.MaxFramesInFlight) {
					diverged = true
				}
			}
			Expect(diverged).To(BeTrue())
			Expect(gpu.MaxOutstanding()).To(Equal(queues.MaxFramesInFlight))
		})
	})

	Describe("Run", func() {
		BeforeEach(func() {
			build(2)
		})

		AfterEach(func() {
			loop.Destroy()
			qm.Destroy()
			sc.Teardown()
		})

		It("draws until the window should close and waits for the device", func() {
			checks, polls := 0, 0
			shouldClose := func() bool {
				checks++
				return checks > 3
			}

			Expect(loop.Run(shouldClose, func() { polls++ })).To(Succeed())

			Expect(loop.Frames()).To(Equal(uint64(3)))
			Expect(polls).To(Equal(3))
			ops := gpu.Ops()
			Expect(ops[len(ops)-1]).To(Equal("DeviceWaitIdle"))
			Expect(gpu.Outstanding()).To(BeZero())
			Expect(gpu.Violations()).To(BeEmpty())
		})

		It("waits for the device when a frame fails", func() {
			gpu.FailNth("QueueSubmit", 2, vk.ErrorDeviceLost)

			err := loop.Run(func() bool { return false }, func() {})
			Expect(errors.Is(err, queues.ErrQueueSubmit)).To(BeTrue(), "have %v", err)
			Expect(err).To(MatchError(ContainSubstring("error drawing frame 1")))

			Expect(loop.Frames()).To(Equal(uint64(1)))
			ops := gpu.Ops()
			Expect(ops[len(ops)-1]).To(Equal("DeviceWaitIdle"))
			Expect(gpu.Outstanding()).To(BeZero())
		})

		It("reports an out of date swapchain", func() {
			gpu.FailNth("AcquireNextImage", 3, vk.ErrorOutOfDate)

			err := loop.Run(func() bool { return false }, func() {})
			Expect(errors.Is(err, swapchain.ErrSwapchainOutOfDate)).To(BeTrue(), "have %v", err)
			Expect(loop.Frames()).To(Equal(uint64(2)))
			Expect(gpu.Outstanding()).To(BeZero())
		})

		It("reports a failed device idle wait", func() {
			gpu.FailNext("DeviceWaitIdle", vk.ErrorDeviceLost)

			err := loop.Run(func() bool { return true }, func() {})
			Expect(err).To(MatchError(ContainSubstring("waiting for device idle")))
			Expect(loop.Frames()).To(BeZero())
		})
	})
})

var _ = Describe("New", func() {
	It("needs one command buffer per swapchain image", func() {
		gpu := drivertest.New()
		device := gpu.Device()

		sc, err := swapchain.New(gpu, swapchain.Config{
			PhysicalDevice: gpu.PhysicalDevice(),
			Device:         device,
			Surface:        gpu.Surface(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer sc.Teardown()

		qm, err := queues.NewManager(gpu, queues.Config{
			Device: device,
			Families: queues.FamilyIndices{
				Graphics: optional.Of[uint32](0),
				Present:  optional.Of[uint32](0),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		defer qm.Destroy()

		_, err = New(gpu, device, sc, qm, gpu.CommandBuffers(sc.ImageCount()-1))
		Expect(errors.Is(err, ErrCommandBufferCount)).To(BeTrue(), "have %v", err)
		Expect(gpu.Live(drivertest.KindSemaphore)).To(Equal(queues.MaxFramesInFlight))
	})

	It("destroys nothing it did not create when semaphore creation fails", func() {
		gpu := drivertest.New()
		device := gpu.Device()

		sc, err := swapchain.New(gpu, swapchain.Config{
			PhysicalDevice: gpu.PhysicalDevice(),
			Device:         device,
			Surface:        gpu.Surface(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer sc.Teardown()

		qm, err := queues.NewManager(gpu, queues.Config{
			Device: device,
			Families: queues.FamilyIndices{
				Graphics: optional.Of[uint32](0),
				Present:  optional.Of[uint32](0),
			},
		})
		Expect(err).NotTo(HaveOccurred())
		defer qm.Destroy()

		gpu.FailNth("CreateSemaphore", 2, vk.ErrorOutOfHostMemory)
		_, err = New(gpu, device, sc, qm, gpu.CommandBuffers(sc.ImageCount()))
		Expect(err).To(HaveOccurred())
		Expect(gpu.Live(drivertest.KindSemaphore)).To(Equal(queues.MaxFramesInFlight))
		Expect(gpu.Violations()).To(BeEmpty())
	})
})
