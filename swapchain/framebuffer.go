package swapchain

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
)

// Framebuffers holds one framebuffer per swapchain image, each binding that
// image's view to the attachment of a fixed render pass. A framebuffer is
// invalid once the swapchain it was built from has been torn down, so Destroy
// must run before Swapchain.Teardown.
type Framebuffers struct {
	drv     driver.Driver
	device  vk.Device
	buffers []vk.Framebuffer
}

// NewFramebuffers creates a framebuffer for every image view of sc, sized to
// the swapchain extent. On error the framebuffers created so far are
// destroyed.
func NewFramebuffers(
	drv driver.Driver,
	device vk.Device,
	sc *Swapchain,
	renderPass vk.RenderPass,
) (*Framebuffers, error) {
	f := &Framebuffers{
		drv:     drv,
		device:  device,
		buffers: make([]vk.Framebuffer, 0, sc.ImageCount()),
	}
	extent := sc.Extent()

	for i := 0; i < sc.ImageCount(); i++ {
		attachments := []vk.ImageView{
			sc.ImageView(ImageIndex(i)),
		}

		frameBufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}

		frameBuffer, res := drv.CreateFramebuffer(device, &frameBufferInfo)
		if err := vk.Error(res); err != nil {
			f.Destroy()
			return nil, errors.Wrapf(err, "failed to create frame buffer %d", i)
		}

		f.buffers = append(f.buffers, frameBuffer)
	}

	return f, nil
}

// At returns the framebuffer of swapchain image i.
func (f *Framebuffers) At(i ImageIndex) vk.Framebuffer {
	return f.buffers[i]
}

// Len returns the number of framebuffers, which equals the swapchain image
// count.
func (f *Framebuffers) Len() int {
	return len(f.buffers)
}

// Destroy destroys all framebuffers.
func (f *Framebuffers) Destroy() {
	for _, frameBuffer := range f.buffers {
		f.drv.DestroyFramebuffer(f.device, frameBuffer)
	}
	f.buffers = nil
}
