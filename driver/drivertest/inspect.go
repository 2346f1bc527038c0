package drivertest

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Calls returns every recorded driver call in order.
func (g *GPU) Calls() []Call {
	return append([]Call(nil), g.calls...)
}

// Ops returns the operation names of the recorded calls, optionally filtered
// to the given set of names.
func (g *GPU) Ops(only ...string) []string {
	keep := make(map[string]bool, len(only))
	for _, op := range only {
		keep[op] = true
	}

	var ops []string
	for _, c := range g.calls {
		if len(keep) == 0 || keep[c.Op] {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// Violations returns the protocol errors observed so far.
func (g *GPU) Violations() []string {
	return append([]string(nil), g.errs...)
}

// Submissions returns every accepted submission, completed or not.
func (g *GPU) Submissions() []Submission {
	subs := make([]Submission, len(g.subs))
	for i, s := range g.subs {
		subs[i] = *s
	}
	return subs
}

// Presents returns every accepted present request.
func (g *GPU) Presents() []Present {
	return append([]Present(nil), g.presnts...)
}

// SwapchainInfos returns the create infos passed to CreateSwapchain.
func (g *GPU) SwapchainInfos() []vk.SwapchainCreateInfo {
	return append([]vk.SwapchainCreateInfo(nil), g.scInfos...)
}

// Outstanding returns the number of submitted, not yet completed batches.
func (g *GPU) Outstanding() int {
	return len(g.pending)
}

// MaxOutstanding returns the highest value Outstanding has reached.
func (g *GPU) MaxOutstanding() int {
	return g.maxOutstanding
}

// Live returns the number of live objects of the given kind.
func (g *GPU) Live(kind Kind) int {
	n := 0
	for o := range g.live {
		if o.kind == kind {
			n++
		}
	}
	return n
}

// Name returns the label of a simulated handle, such as "fence#12", or "null"
// for null handles and unsupported types.
func (g *GPU) Name(handle any) string {
	o := objectOf(handle)
	if o == nil {
		return "null"
	}
	return o.String()
}

// Names returns the label of every handle in a slice of semaphores, fences or
// command buffers. Handles must be compared by name: gomega's Equal cannot
// inspect them.
func (g *GPU) Names(handles any) []string {
	var names []string
	switch hs := handles.(type) {
	case []vk.Semaphore:
		for _, h := range hs {
			names = append(names, g.Name(h))
		}
	case []vk.Fence:
		for _, h := range hs {
			names = append(names, g.Name(h))
		}
	case []vk.CommandBuffer:
		for _, h := range hs {
			names = append(names, g.Name(h))
		}
	}
	return names
}

// Signaled reports whether a semaphore or fence is currently signaled.
func (g *GPU) Signaled(handle any) bool {
	o := objectOf(handle)
	return o != nil && o.signaled
}

// Pending reports whether a semaphore or fence has a signal pending from an
// uncompleted submission.
func (g *GPU) Pending(handle any) bool {
	o := objectOf(handle)
	return o != nil && o.pendingSignal != 0
}

// Destroyed reports whether the object behind handle has been destroyed.
func (g *GPU) Destroyed(handle any) bool {
	o := objectOf(handle)
	return o != nil && o.destroyed
}

func objectOf(handle any) *object {
	var p unsafe.Pointer
	switch h := handle.(type) {
	case vk.Semaphore:
		p = unsafe.Pointer(h)
	case vk.Fence:
		p = unsafe.Pointer(h)
	case vk.Swapchain:
		p = unsafe.Pointer(h)
	case vk.Image:
		p = unsafe.Pointer(h)
	case vk.ImageView:
		p = unsafe.Pointer(h)
	case vk.Framebuffer:
		p = unsafe.Pointer(h)
	case vk.CommandBuffer:
		p = unsafe.Pointer(h)
	case vk.Queue:
		p = unsafe.Pointer(h)
	case vk.Device:
		p = unsafe.Pointer(h)
	case vk.PhysicalDevice:
		p = unsafe.Pointer(h)
	case vk.Surface:
		p = unsafe.Pointer(h)
	case vk.RenderPass:
		p = unsafe.Pointer(h)
	}
	return (*object)(p)
}
