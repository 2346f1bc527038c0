// Package frame runs the per-frame protocol which keeps CPU and GPU in step:
// wait for the slot's fence, acquire an image, submit its pre-recorded
// command buffer and present it.
package frame

import (
	"log"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
	"github.com/foxmulder900/vulkan-base/queues"
	"github.com/foxmulder900/vulkan-base/swapchain"
	"github.com/foxmulder900/vulkan-base/syncobj"
)

// ErrCommandBufferCount is returned by New when the number of command buffers
// does not match the number of swapchain images.
var ErrCommandBufferCount = errors.New("need one command buffer per swap chain image")

// Loop draws frames. It owns the image-available semaphore of every frame
// slot; the remaining per slot objects belong to the queues.Manager.
type Loop struct {
	drv    driver.Driver
	device vk.Device
	sc     *swapchain.Swapchain
	qm     *queues.Manager

	// commandBuffers is indexed by swapchain.ImageIndex, imageAvailable by
	// queues.FrameSlot.
	commandBuffers []vk.CommandBuffer
	imageAvailable []vk.Semaphore

	slot   queues.FrameSlot
	frames uint64
}

// New returns a Loop drawing with commandBuffers, which must hold one
// recorded command buffer per image of sc. They are submitted as they are and
// never re-recorded.
func New(
	drv driver.Driver,
	device vk.Device,
	sc *swapchain.Swapchain,
	qm *queues.Manager,
	commandBuffers []vk.CommandBuffer,
) (*Loop, error) {
	if len(commandBuffers) != sc.ImageCount() {
		return nil, errors.Wrapf(ErrCommandBufferCount, "have %d, want %d",
			len(commandBuffers), sc.ImageCount())
	}

	imageAvailable, err := syncobj.CreateSemaphores(drv, device, queues.MaxFramesInFlight)
	if err != nil {
		return nil, errors.Wrap(err, "image available semaphores")
	}

	return &Loop{
		drv:            drv,
		device:         device,
		sc:             sc,
		qm:             qm,
		commandBuffers: commandBuffers,
		imageAvailable: imageAvailable,
	}, nil
}

// RunFrame draws one frame using the current slot and then moves on to the
// next slot.
func (l *Loop) RunFrame() error {
	slot := l.slot

	if err := l.qm.WaitForFence(slot); err != nil {
		return err
	}

	image, err := l.sc.AcquireImage(l.imageAvailable[slot])
	if err != nil {
		return errors.Wrap(err, "acquire")
	}

	err = l.qm.SubmitGraphics(l.commandBuffers[image], slot, l.imageAvailable[slot])
	if err != nil {
		return err
	}

	if err := l.qm.SubmitPresent(l.sc, image, slot); err != nil {
		return errors.Wrap(err, "present")
	}

	l.slot = slot.Next()
	l.frames++
	return nil
}

// Run polls for events and draws frames until shouldClose returns true or a
// frame fails. In both cases it waits for the device to become idle before
// returning, so that everything may be destroyed afterwards.
func (l *Loop) Run(shouldClose func() bool, poll func()) (err error) {
	log.Printf("Entering main loop...")

	defer func() {
		res := l.drv.DeviceWaitIdle(l.device)
		if waitErr := vk.Error(res); waitErr != nil && err == nil {
			err = errors.Wrap(waitErr, "waiting for device idle")
		}
	}()

	for !shouldClose() {
		poll()

		if err := l.RunFrame(); err != nil {
			return errors.Wrapf(err, "error drawing frame %d", l.frames)
		}
	}

	return nil
}

// Slot returns the frame slot the next frame will use.
func (l *Loop) Slot() queues.FrameSlot {
	return l.slot
}

// Frames returns the number of frames drawn so far.
func (l *Loop) Frames() uint64 {
	return l.frames
}

// Destroy destroys the image-available semaphores. The device must be idle.
func (l *Loop) Destroy() {
	syncobj.DestroySemaphores(l.drv, l.device, l.imageAvailable)
	l.imageAvailable = nil
}
