package queues

import (
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
	"github.com/foxmulder900/vulkan-base/swapchain"
	"github.com/foxmulder900/vulkan-base/syncobj"
)

// MaxFramesInFlight is the number of frames the CPU may prepare while the GPU
// is still working on earlier ones.
const MaxFramesInFlight = 2

var (
	// ErrSlotState is returned when a slot operation is called out of the
	// wait, submit, present order.
	ErrSlotState = errors.New("frame slot used out of order")

	// ErrFenceTimeout is returned when the in-flight fence did not signal
	// within the configured timeout.
	ErrFenceTimeout = errors.New("timed out waiting for in-flight fence")

	// ErrQueueSubmit is returned when the graphics queue rejects a submission.
	ErrQueueSubmit = errors.New("failed to submit draw command buffer")

	// ErrPresent is returned when presentation fails for a reason other than
	// an out-of-date swapchain or a lost surface.
	ErrPresent = errors.New("failed to present swap chain image")
)

// FrameSlot selects one set of frame-in-flight synchronization objects. It is
// never used to index per-image resources, see swapchain.ImageIndex.
type FrameSlot uint32

// Next returns the slot following s.
func (s FrameSlot) Next() FrameSlot {
	return (s + 1) % MaxFramesInFlight
}

// SlotState is the position of a frame slot in its wait, submit, present
// cycle.
type SlotState int

// Frame slot states. A slot starts pending on its pre-signaled fence and only
// WaitForFence moves it to idle, from where it may be submitted.
const (
	SlotPending SlotState = iota
	SlotIdle
	SlotSubmitted
	SlotPresented
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotIdle:
		return "idle"
	case SlotSubmitted:
		return "submitted"
	case SlotPresented:
		return "presented"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Config holds everything NewManager needs.
type Config struct {
	Device vk.Device

	// Families must be complete.
	Families FamilyIndices

	// FenceTimeout bounds WaitForFence. Zero waits forever.
	FenceTimeout time.Duration
}

// Manager owns the graphics and present queues together with the
// render-finished semaphore and in-flight fence of every frame slot.
type Manager struct {
	drv      driver.Driver
	device   vk.Device
	families FamilyIndices
	timeout  uint64

	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	renderFinished []vk.Semaphore
	inFlight       []vk.Fence
	states         [MaxFramesInFlight]SlotState

	suboptimalLogged bool
}

// NewManager fetches the queues of cfg.Families and creates the per slot
// synchronization objects. The in-flight fences start signaled so that the
// first wait on every slot returns at once. On error nothing is left behind.
func NewManager(drv driver.Driver, cfg Config) (*Manager, error) {
	if !cfg.Families.IsComplete() {
		return nil, errors.New("queue families are not complete")
	}

	log.Printf("Initializing queue manager...")

	m := &Manager{
		drv:      drv,
		device:   cfg.Device,
		families: cfg.Families,
		timeout:  driver.Timeout(cfg.FenceTimeout),
	}

	m.graphicsQueue = drv.DeviceQueue(cfg.Device, cfg.Families.Graphics.Get())
	m.presentQueue = drv.DeviceQueue(cfg.Device, cfg.Families.Present.Get())

	renderFinished, err := syncobj.CreateSemaphores(drv, cfg.Device, MaxFramesInFlight)
	if err != nil {
		return nil, errors.Wrap(err, "render finished semaphores")
	}
	m.renderFinished = renderFinished

	inFlight, err := syncobj.CreateFences(drv, cfg.Device, MaxFramesInFlight, true)
	if err != nil {
		syncobj.DestroySemaphores(drv, cfg.Device, m.renderFinished)
		return nil, errors.Wrap(err, "in flight fences")
	}
	m.inFlight = inFlight

	return m, nil
}

func (m *Manager) checkSlot(slot FrameSlot, op string, allowed ...SlotState) error {
	if slot >= MaxFramesInFlight {
		return errors.Wrapf(ErrSlotState, "%s: slot %d out of range", op, slot)
	}
	for _, state := range allowed {
		if m.states[slot] == state {
			return nil
		}
	}
	return errors.Wrapf(ErrSlotState, "%s: slot %d is %s", op, slot, m.states[slot])
}

// WaitForFence blocks until the GPU has finished the last submission made
// for slot and then resets its fence. It bounds how far the CPU may run ahead
// of the GPU: no more than MaxFramesInFlight submissions are ever pending.
// An idle slot's fence was already reset, so waiting on it again is an error.
func (m *Manager) WaitForFence(slot FrameSlot) error {
	if err := m.checkSlot(slot, "wait", SlotPending, SlotPresented); err != nil {
		return err
	}

	fences := []vk.Fence{m.inFlight[slot]}

	res := m.drv.WaitForFences(m.device, fences, m.timeout)
	switch res {
	case vk.Success:
	case vk.Timeout:
		return errors.Wrapf(ErrFenceTimeout, "slot %d", slot)
	default:
		return errors.Wrapf(driver.ResultError(res), "failed to wait for fence of slot %d", slot)
	}

	res = m.drv.ResetFences(m.device, fences)
	if err := vk.Error(res); err != nil {
		return errors.Wrapf(err, "failed to reset fence of slot %d", slot)
	}

	m.states[slot] = SlotIdle
	return nil
}

// SubmitGraphics submits commandBuffer to the graphics queue. The color
// attachment output stage waits on imageAvailable; completion signals the
// slot's render-finished semaphore and in-flight fence.
func (m *Manager) SubmitGraphics(
	commandBuffer vk.CommandBuffer,
	slot FrameSlot,
	imageAvailable vk.Semaphore,
) error {
	if err := m.checkSlot(slot, "submit", SlotIdle); err != nil {
		return err
	}

	signalSemaphores := []vk.Semaphore{
		m.renderFinished[slot],
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer},
		PSignalSemaphores:    signalSemaphores,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}

	res := m.drv.QueueSubmit(
		m.graphicsQueue,
		[]vk.SubmitInfo{submitInfo},
		m.inFlight[slot],
	)
	if res != vk.Success {
		return errors.Wrapf(ErrQueueSubmit, "slot %d: %s", slot, driver.ResultError(res))
	}

	m.states[slot] = SlotSubmitted
	return nil
}

// SubmitPresent queues image of sc for presentation once the slot's
// render-finished semaphore is signaled. A suboptimal swapchain is only
// logged.
func (m *Manager) SubmitPresent(
	sc *swapchain.Swapchain,
	image swapchain.ImageIndex,
	slot FrameSlot,
) error {
	if err := m.checkSlot(slot, "present", SlotSubmitted); err != nil {
		return err
	}

	waitSemaphores := []vk.Semaphore{
		m.renderFinished[slot],
	}

	swapChains := []vk.Swapchain{
		sc.Handle(),
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waitSemaphores)),
		PWaitSemaphores:    waitSemaphores,
		SwapchainCount:     uint32(len(swapChains)),
		PSwapchains:        swapChains,
		PImageIndices:      []uint32{uint32(image)},
	}

	res := m.drv.QueuePresent(m.presentQueue, &presentInfo)
	switch res {
	case vk.Success:
	case vk.Suboptimal:
		if !m.suboptimalLogged {
			log.Printf("present: swap chain is suboptimal for the surface, continuing")
			m.suboptimalLogged = true
		}
	case vk.ErrorOutOfDate:
		return errors.WithStack(swapchain.ErrSwapchainOutOfDate)
	case vk.ErrorSurfaceLost:
		return errors.WithStack(swapchain.ErrSurfaceLost)
	default:
		return errors.Wrapf(ErrPresent, "image %d: %s", image, driver.ResultError(res))
	}

	m.states[slot] = SlotPresented
	return nil
}

// State returns the position of slot in its cycle.
func (m *Manager) State(slot FrameSlot) SlotState {
	return m.states[slot]
}

// Families returns the queue family indexes the manager was built with.
func (m *Manager) Families() FamilyIndices {
	return m.families
}

// GraphicsQueue returns the queue draw commands are submitted to.
func (m *Manager) GraphicsQueue() vk.Queue {
	return m.graphicsQueue
}

// PresentQueue returns the queue images are presented on.
func (m *Manager) PresentQueue() vk.Queue {
	return m.presentQueue
}

// Destroy destroys the semaphores and fences. The device must be idle.
func (m *Manager) Destroy() {
	syncobj.DestroySemaphores(m.drv, m.device, m.renderFinished)
	syncobj.DestroyFences(m.drv, m.device, m.inFlight)
	m.renderFinished = nil
	m.inFlight = nil
}
