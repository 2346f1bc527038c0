// Package drivertest provides a simulated GPU implementing driver.Driver.
//
// The simulation keeps binary semaphores, fences, swapchain images and queue
// submissions as plain Go state. Submitted work does not finish on its own: a
// submission completes only when the CPU waits on a fence it (or a later
// submission) signals, or on DeviceWaitIdle. This makes the worst case for
// CPU/GPU overlap the default, so every ordering mistake in the frame protocol
// shows up as a recorded violation.
package drivertest

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
)

// Kind identifies the type of a simulated Vulkan object.
type Kind string

// Object kinds tracked by the GPU.
const (
	KindDevice         Kind = "device"
	KindPhysicalDevice Kind = "physical-device"
	KindSurface        Kind = "surface"
	KindQueue          Kind = "queue"
	KindSwapchain      Kind = "swapchain"
	KindImage          Kind = "image"
	KindImageView      Kind = "image-view"
	KindFramebuffer    Kind = "framebuffer"
	KindRenderPass     Kind = "render-pass"
	KindCommandBuffer  Kind = "command-buffer"
	KindSemaphore      Kind = "semaphore"
	KindFence          Kind = "fence"
)

type object struct {
	kind      Kind
	id        int
	destroyed bool

	// semaphores and fences
	signaled        bool
	pendingSignal   int
	pendingWait     int
	consumeOnSignal bool

	// swapchains
	images   []*object
	acquired []bool
	next     int

	// image -> swapchain, view -> image, framebuffer -> view
	parent *object
}

func (o *object) String() string {
	return fmt.Sprintf("%s#%d", o.kind, o.id)
}

// Call is one recorded driver call.
type Call struct {
	Op   string
	Args []string
}

func (c Call) String() string {
	s := c.Op
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Submission is a batch accepted by QueueSubmit.
type Submission struct {
	ID               int
	Queue            vk.Queue
	WaitSemaphores   []vk.Semaphore
	WaitStages       []vk.PipelineStageFlags
	CommandBuffers   []vk.CommandBuffer
	SignalSemaphores []vk.Semaphore
	Fence            vk.Fence
	Done             bool
}

// Present is a request accepted by QueuePresent.
type Present struct {
	Queue          vk.Queue
	WaitSemaphores []vk.Semaphore
	Swapchain      vk.Swapchain
	ImageIndex     uint32
}

// GPU is a single-threaded simulated device. The exported surface fields are
// returned by the surface queries and may be changed freely before use.
type GPU struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode

	nextID  int
	live    map[*object]struct{}
	queues  map[uint32]*object
	counts  map[string]int
	failAt  map[string]map[int]vk.Result
	calls   []Call
	errs    []string
	subs    []*Submission
	pending []*Submission
	presnts []Present
	scInfos []vk.SwapchainCreateInfo

	maxOutstanding int
}

var _ driver.Driver = (*GPU)(nil)

// New returns a GPU with a surface reporting an 800x600 current extent, a
// [2, 8] image count range, B8G8R8A8_UNORM/SRGB_NONLINEAR and FIFO.
func New() *GPU {
	return &GPU{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:       2,
			MaxImageCount:       8,
			CurrentExtent:       vk.Extent2D{Width: 800, Height: 600},
			MinImageExtent:      vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:      vk.Extent2D{Width: 4096, Height: 4096},
			MaxImageArrayLayers: 1,
			CurrentTransform:    vk.SurfaceTransformIdentityBit,
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},

		live:   make(map[*object]struct{}),
		queues: make(map[uint32]*object),
		counts: make(map[string]int),
		failAt: make(map[string]map[int]vk.Result),
	}
}

func (g *GPU) newObject(kind Kind) *object {
	g.nextID++
	o := &object{kind: kind, id: g.nextID}
	g.live[o] = struct{}{}
	return o
}

func (g *GPU) destroy(o *object) {
	o.destroyed = true
	delete(g.live, o)
}

func (g *GPU) violation(format string, args ...any) {
	g.errs = append(g.errs, fmt.Sprintf(format, args...))
}

func (g *GPU) record(op string, args ...fmt.Stringer) {
	c := Call{Op: op}
	for _, a := range args {
		c.Args = append(c.Args, a.String())
	}
	g.calls = append(g.calls, c)
}

// inject counts a call to op and returns the result scheduled for it, if any.
func (g *GPU) inject(op string) (vk.Result, bool) {
	g.counts[op]++
	res, ok := g.failAt[op][g.counts[op]]
	if ok {
		delete(g.failAt[op], g.counts[op])
	}
	return res, ok
}

// FailNth makes the n-th call to op from now on (1-based) return res. For
// AcquireNextImage and QueuePresent a vk.Suboptimal result still performs the
// operation.
func (g *GPU) FailNth(op string, n int, res vk.Result) {
	if g.failAt[op] == nil {
		g.failAt[op] = make(map[int]vk.Result)
	}
	g.failAt[op][g.counts[op]+n] = res
}

// FailNext makes the next call to op return res.
func (g *GPU) FailNext(op string, res vk.Result) {
	g.FailNth(op, 1, res)
}

func (g *GPU) lookup(p unsafe.Pointer, want Kind) *object {
	if p == nil {
		g.violation("null %s handle", want)
		return nil
	}
	o := (*object)(p)
	if o.kind != want {
		g.violation("%s used where a %s is expected", o, want)
		return nil
	}
	if o.destroyed {
		g.violation("%s used after destruction", o)
		return nil
	}
	return o
}

// Device returns a new simulated logical device handle.
func (g *GPU) Device() vk.Device {
	return vk.Device(unsafe.Pointer(g.newObject(KindDevice)))
}

// PhysicalDevice returns a new simulated physical device handle.
func (g *GPU) PhysicalDevice() vk.PhysicalDevice {
	return vk.PhysicalDevice(unsafe.Pointer(g.newObject(KindPhysicalDevice)))
}

// Surface returns a new simulated surface handle.
func (g *GPU) Surface() vk.Surface {
	return vk.Surface(unsafe.Pointer(g.newObject(KindSurface)))
}

// RenderPass returns a new simulated render pass handle.
func (g *GPU) RenderPass() vk.RenderPass {
	return vk.RenderPass(unsafe.Pointer(g.newObject(KindRenderPass)))
}

// CommandBuffers returns n simulated, already recorded command buffers.
func (g *GPU) CommandBuffers(n int) []vk.CommandBuffer {
	buffers := make([]vk.CommandBuffer, n)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(unsafe.Pointer(g.newObject(KindCommandBuffer)))
	}
	return buffers
}

func (g *GPU) SurfaceCapabilities(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) (vk.SurfaceCapabilities, vk.Result) {
	g.record("SurfaceCapabilities")
	if res, ok := g.inject("SurfaceCapabilities"); ok {
		return vk.SurfaceCapabilities{}, res
	}
	return g.Capabilities, vk.Success
}

func (g *GPU) SurfaceFormats(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) ([]vk.SurfaceFormat, vk.Result) {
	g.record("SurfaceFormats")
	if res, ok := g.inject("SurfaceFormats"); ok {
		return nil, res
	}
	return append([]vk.SurfaceFormat(nil), g.Formats...), vk.Success
}

func (g *GPU) SurfacePresentModes(
	pd vk.PhysicalDevice,
	surface vk.Surface,
) ([]vk.PresentMode, vk.Result) {
	g.record("SurfacePresentModes")
	if res, ok := g.inject("SurfacePresentModes"); ok {
		return nil, res
	}
	return append([]vk.PresentMode(nil), g.PresentModes...), vk.Success
}

func (g *GPU) CreateSwapchain(
	device vk.Device,
	info *vk.SwapchainCreateInfo,
) (vk.Swapchain, vk.Result) {
	if res, ok := g.inject("CreateSwapchain"); ok {
		g.record("CreateSwapchain", resultLabel(res))
		return vk.Swapchain(vk.NullHandle), res
	}
	g.scInfos = append(g.scInfos, *info)

	switch info.ImageSharingMode {
	case vk.SharingModeConcurrent:
		if info.QueueFamilyIndexCount < 2 || len(info.PQueueFamilyIndices) < 2 {
			g.violation("concurrent swapchain with %d queue families", info.QueueFamilyIndexCount)
		}
	case vk.SharingModeExclusive:
		if info.QueueFamilyIndexCount != 0 {
			g.violation("exclusive swapchain with %d queue families", info.QueueFamilyIndexCount)
		}
	}

	sc := g.newObject(KindSwapchain)
	for i := uint32(0); i < info.MinImageCount; i++ {
		img := g.newObject(KindImage)
		img.parent = sc
		sc.images = append(sc.images, img)
	}
	sc.acquired = make([]bool, len(sc.images))

	g.record("CreateSwapchain", sc)
	return vk.Swapchain(unsafe.Pointer(sc)), vk.Success
}

func (g *GPU) SwapchainImages(
	device vk.Device,
	swapchain vk.Swapchain,
) ([]vk.Image, vk.Result) {
	if res, ok := g.inject("SwapchainImages"); ok {
		return nil, res
	}
	sc := g.lookup(unsafe.Pointer(swapchain), KindSwapchain)
	if sc == nil {
		return nil, vk.ErrorInitializationFailed
	}

	images := make([]vk.Image, len(sc.images))
	for i, img := range sc.images {
		images[i] = vk.Image(unsafe.Pointer(img))
	}
	return images, vk.Success
}

func (g *GPU) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	sc := g.lookup(unsafe.Pointer(swapchain), KindSwapchain)
	if sc == nil {
		return
	}
	g.record("DestroySwapchain", sc)

	for o := range g.live {
		if o.kind == KindImageView && o.parent != nil && o.parent.parent == sc {
			g.violation("%s destroyed while %s is alive", sc, o)
		}
	}
	for _, img := range sc.images {
		g.destroy(img)
	}
	g.destroy(sc)
}

func (g *GPU) CreateImageView(
	device vk.Device,
	info *vk.ImageViewCreateInfo,
) (vk.ImageView, vk.Result) {
	if res, ok := g.inject("CreateImageView"); ok {
		g.record("CreateImageView", resultLabel(res))
		return vk.ImageView(vk.NullHandle), res
	}
	img := g.lookup(unsafe.Pointer(info.Image), KindImage)

	view := g.newObject(KindImageView)
	view.parent = img

	g.record("CreateImageView", view)
	return vk.ImageView(unsafe.Pointer(view)), vk.Success
}

func (g *GPU) DestroyImageView(device vk.Device, view vk.ImageView) {
	v := g.lookup(unsafe.Pointer(view), KindImageView)
	if v == nil {
		return
	}
	g.record("DestroyImageView", v)

	for o := range g.live {
		if o.kind == KindFramebuffer && o.parent == v {
			g.violation("%s destroyed while %s is alive", v, o)
		}
	}
	g.destroy(v)
}

func (g *GPU) CreateFramebuffer(
	device vk.Device,
	info *vk.FramebufferCreateInfo,
) (vk.Framebuffer, vk.Result) {
	if res, ok := g.inject("CreateFramebuffer"); ok {
		g.record("CreateFramebuffer", resultLabel(res))
		return vk.Framebuffer(vk.NullHandle), res
	}
	g.lookup(unsafe.Pointer(info.RenderPass), KindRenderPass)

	fb := g.newObject(KindFramebuffer)
	if len(info.PAttachments) != int(info.AttachmentCount) || len(info.PAttachments) == 0 {
		g.violation("%s created with %d attachments (count %d)",
			fb, len(info.PAttachments), info.AttachmentCount)
	} else {
		fb.parent = g.lookup(unsafe.Pointer(info.PAttachments[0]), KindImageView)
	}

	g.record("CreateFramebuffer", fb)
	return vk.Framebuffer(unsafe.Pointer(fb)), vk.Success
}

func (g *GPU) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	fb := g.lookup(unsafe.Pointer(framebuffer), KindFramebuffer)
	if fb == nil {
		return
	}
	g.record("DestroyFramebuffer", fb)
	g.destroy(fb)
}

func (g *GPU) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	if res, ok := g.inject("CreateSemaphore"); ok {
		g.record("CreateSemaphore", resultLabel(res))
		return vk.Semaphore(vk.NullHandle), res
	}
	sem := g.newObject(KindSemaphore)
	g.record("CreateSemaphore", sem)
	return vk.Semaphore(unsafe.Pointer(sem)), vk.Success
}

func (g *GPU) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	sem := g.lookup(unsafe.Pointer(semaphore), KindSemaphore)
	if sem == nil {
		return
	}
	g.record("DestroySemaphore", sem)
	if sem.pendingSignal != 0 || sem.pendingWait != 0 {
		g.violation("%s destroyed with pending GPU work", sem)
	}
	g.destroy(sem)
}

func (g *GPU) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	if res, ok := g.inject("CreateFence"); ok {
		g.record("CreateFence", resultLabel(res))
		return vk.Fence(vk.NullHandle), res
	}
	fence := g.newObject(KindFence)
	fence.signaled = signaled
	g.record("CreateFence", fence)
	return vk.Fence(unsafe.Pointer(fence)), vk.Success
}

func (g *GPU) DestroyFence(device vk.Device, fence vk.Fence) {
	f := g.lookup(unsafe.Pointer(fence), KindFence)
	if f == nil {
		return
	}
	g.record("DestroyFence", f)
	if f.pendingSignal != 0 {
		g.violation("%s destroyed with pending GPU work", f)
	}
	g.destroy(f)
}

// WaitForFences completes pending submissions in queue order until every
// fence is signaled. A fence that no pending submission will signal makes it
// return vk.Timeout whatever the timeout, since the simulation cannot block.
func (g *GPU) WaitForFences(device vk.Device, fences []vk.Fence, timeout uint64) vk.Result {
	if res, ok := g.inject("WaitForFences"); ok {
		return res
	}
	for _, fence := range fences {
		f := g.lookup(unsafe.Pointer(fence), KindFence)
		if f == nil {
			return vk.ErrorDeviceLost
		}
		for !f.signaled {
			if len(g.pending) == 0 {
				g.record("WaitForFences", f, resultLabel(vk.Timeout))
				return vk.Timeout
			}
			g.complete(g.pending[0])
		}
		g.record("WaitForFences", f)
	}
	return vk.Success
}

func (g *GPU) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	if res, ok := g.inject("ResetFences"); ok {
		return res
	}
	for _, fence := range fences {
		f := g.lookup(unsafe.Pointer(fence), KindFence)
		if f == nil {
			return vk.ErrorDeviceLost
		}
		if f.pendingSignal != 0 {
			g.violation("%s reset while submission %d is pending", f, f.pendingSignal)
		}
		f.signaled = false
		g.record("ResetFences", f)
	}
	return vk.Success
}

func (g *GPU) DeviceQueue(device vk.Device, family uint32) vk.Queue {
	q, ok := g.queues[family]
	if !ok {
		q = g.newObject(KindQueue)
		g.queues[family] = q
	}
	return vk.Queue(unsafe.Pointer(q))
}

func (g *GPU) AcquireNextImage(
	device vk.Device,
	swapchain vk.Swapchain,
	timeout uint64,
	semaphore vk.Semaphore,
) (uint32, vk.Result) {
	res, injected := g.inject("AcquireNextImage")
	if injected && res != vk.Suboptimal {
		g.record("AcquireNextImage", resultLabel(res))
		return 0, res
	}
	sc := g.lookup(unsafe.Pointer(swapchain), KindSwapchain)
	sem := g.lookup(unsafe.Pointer(semaphore), KindSemaphore)
	if sc == nil || sem == nil {
		return 0, vk.ErrorDeviceLost
	}

	index := -1
	for i := range sc.images {
		candidate := (sc.next + i) % len(sc.images)
		if !sc.acquired[candidate] {
			index = candidate
			break
		}
	}
	if index < 0 {
		g.record("AcquireNextImage", resultLabel(vk.Timeout))
		if timeout == 0 {
			return 0, vk.NotReady
		}
		return 0, vk.Timeout
	}

	if sem.signaled || sem.pendingSignal != 0 {
		g.violation("%s signaled by acquire while already signaled", sem)
	}
	if sem.pendingWait != 0 {
		g.violation("%s signaled by acquire before submission %d waited on it",
			sem, sem.pendingWait)
	}
	sem.signaled = true

	sc.acquired[index] = true
	sc.next = (index + 1) % len(sc.images)

	g.record("AcquireNextImage", sc, sem, sc.images[index])
	if injected {
		return uint32(index), res
	}
	return uint32(index), vk.Success
}

func (g *GPU) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if res, ok := g.inject("QueueSubmit"); ok {
		g.record("QueueSubmit", resultLabel(res))
		return res
	}
	g.lookup(unsafe.Pointer(queue), KindQueue)

	var last *Submission
	for _, info := range submits {
		g.nextID++
		sub := &Submission{
			ID:               g.nextID,
			Queue:            queue,
			WaitSemaphores:   info.PWaitSemaphores,
			WaitStages:       info.PWaitDstStageMask,
			CommandBuffers:   info.PCommandBuffers,
			SignalSemaphores: info.PSignalSemaphores,
		}

		if int(info.WaitSemaphoreCount) != len(info.PWaitSemaphores) ||
			len(info.PWaitDstStageMask) != len(info.PWaitSemaphores) {
			g.violation("submission %d: %d wait semaphores, count %d, %d stage masks",
				sub.ID, len(info.PWaitSemaphores), info.WaitSemaphoreCount,
				len(info.PWaitDstStageMask))
		}
		if int(info.SignalSemaphoreCount) != len(info.PSignalSemaphores) {
			g.violation("submission %d: %d signal semaphores, count %d",
				sub.ID, len(info.PSignalSemaphores), info.SignalSemaphoreCount)
		}

		for _, s := range info.PWaitSemaphores {
			sem := g.lookup(unsafe.Pointer(s), KindSemaphore)
			if sem == nil {
				continue
			}
			if !sem.signaled && sem.pendingSignal == 0 {
				g.violation("submission %d waits on %s which has no signal pending",
					sub.ID, sem)
			}
			sem.signaled = false
			sem.pendingWait = sub.ID
		}
		for _, s := range info.PSignalSemaphores {
			sem := g.lookup(unsafe.Pointer(s), KindSemaphore)
			if sem == nil {
				continue
			}
			if sem.signaled || sem.pendingSignal != 0 {
				g.violation("submission %d signals %s before its previous signal was consumed",
					sub.ID, sem)
			}
			sem.pendingSignal = sub.ID
		}
		for _, cb := range info.PCommandBuffers {
			g.lookup(unsafe.Pointer(cb), KindCommandBuffer)
		}

		g.subs = append(g.subs, sub)
		g.pending = append(g.pending, sub)
		last = sub
	}

	if fence != vk.Fence(vk.NullHandle) {
		f := g.lookup(unsafe.Pointer(fence), KindFence)
		if f != nil {
			if f.signaled || f.pendingSignal != 0 {
				g.violation("%s submitted while signaled or in use", f)
			}
			if last != nil {
				last.Fence = fence
				f.pendingSignal = last.ID
			}
		}
	}

	if len(g.pending) > g.maxOutstanding {
		g.maxOutstanding = len(g.pending)
	}
	if last != nil {
		g.record("QueueSubmit", submissionLabel(last.ID))
	}
	return vk.Success
}

func (g *GPU) complete(sub *Submission) {
	for _, s := range sub.WaitSemaphores {
		if sem := (*object)(unsafe.Pointer(s)); sem != nil {
			sem.pendingWait = 0
		}
	}
	for _, s := range sub.SignalSemaphores {
		sem := (*object)(unsafe.Pointer(s))
		if sem == nil {
			continue
		}
		sem.pendingSignal = 0
		if sem.consumeOnSignal {
			sem.consumeOnSignal = false
			sem.signaled = false
		} else {
			sem.signaled = true
		}
	}
	if f := (*object)(unsafe.Pointer(sub.Fence)); f != nil {
		f.pendingSignal = 0
		f.signaled = true
	}
	sub.Done = true

	for i, p := range g.pending {
		if p == sub {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			break
		}
	}
}

func (g *GPU) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	res, injected := g.inject("QueuePresent")
	if injected && res != vk.Suboptimal {
		g.record("QueuePresent", resultLabel(res))
		return res
	}
	g.lookup(unsafe.Pointer(queue), KindQueue)

	for _, s := range info.PWaitSemaphores {
		sem := g.lookup(unsafe.Pointer(s), KindSemaphore)
		if sem == nil {
			continue
		}
		switch {
		case sem.pendingSignal != 0:
			sem.consumeOnSignal = true
		case sem.signaled:
			sem.signaled = false
		default:
			g.violation("present waits on %s which has no signal pending", sem)
		}
	}

	if len(info.PSwapchains) != len(info.PImageIndices) {
		g.violation("present with %d swapchains and %d image indices",
			len(info.PSwapchains), len(info.PImageIndices))
	}
	for i, swapchain := range info.PSwapchains {
		sc := g.lookup(unsafe.Pointer(swapchain), KindSwapchain)
		if sc == nil || i >= len(info.PImageIndices) {
			continue
		}
		index := info.PImageIndices[i]
		if int(index) >= len(sc.images) || !sc.acquired[index] {
			g.violation("present of %s image %d which is not acquired", sc, index)
			continue
		}
		sc.acquired[index] = false

		g.presnts = append(g.presnts, Present{
			Queue:          queue,
			WaitSemaphores: info.PWaitSemaphores,
			Swapchain:      swapchain,
			ImageIndex:     index,
		})
		g.record("QueuePresent", sc, sc.images[index])
	}

	if injected {
		return res
	}
	return vk.Success
}

func (g *GPU) DeviceWaitIdle(device vk.Device) vk.Result {
	if res, ok := g.inject("DeviceWaitIdle"); ok {
		return res
	}
	for len(g.pending) > 0 {
		g.complete(g.pending[0])
	}
	g.record("DeviceWaitIdle")
	return vk.Success
}

type submissionLabel int

func (s submissionLabel) String() string {
	return fmt.Sprintf("submission#%d", int(s))
}

type resultLabel vk.Result

func (r resultLabel) String() string {
	return fmt.Sprintf("result(%d)", int32(r))
}
