// Package swapchain negotiates the chain of presentable images with the
// presentation engine, owns the image views and framebuffers built over them
// and acquires images for rendering.
//
// Swapchain recreation is not supported: the window is not resizable and an
// out-of-date or lost surface is reported to the caller as an error.
package swapchain

import (
	"log"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
)

var (
	// ErrUnsupportedSurface is returned when the surface reports no formats
	// or no present modes.
	ErrUnsupportedSurface = errors.New("surface supports no formats or no present modes")

	// ErrSwapchainOutOfDate is returned by acquire and present when the
	// swapchain no longer matches the surface.
	ErrSwapchainOutOfDate = errors.New("swapchain is out of date")

	// ErrSurfaceLost is returned by acquire and present when the surface is
	// no longer available.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrAcquireTimeout is returned when no image became available within
	// the configured acquire timeout.
	ErrAcquireTimeout = errors.New("timed out acquiring swapchain image")
)

// ImageIndex is the index of a swapchain image as returned by AcquireImage.
// It selects per-image resources (views, framebuffers, command buffers) and is
// unrelated to the frame-in-flight slot used for synchronization.
type ImageIndex uint32

// Config holds everything New needs to build a swapchain.
type Config struct {
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device
	Surface        vk.Surface

	// Width and Height are the desired extent. They are only used when the
	// surface lets the swapchain pick its own extent.
	Width  uint32
	Height uint32

	// GraphicsFamily and PresentFamily are the queue families which access
	// the images. When they differ the images are shared concurrently.
	GraphicsFamily uint32
	PresentFamily  uint32

	// AcquireTimeout bounds AcquireImage. Zero waits forever.
	AcquireTimeout time.Duration
}

// Swapchain owns a vk.Swapchain and one image view per swapchain image.
type Swapchain struct {
	drv    driver.Driver
	device vk.Device

	handle      vk.Swapchain
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	extent      vk.Extent2D
	timeout     uint64

	images []vk.Image
	views  []vk.ImageView

	suboptimalLogged bool
}

// New queries the surface, selects format, present mode, extent and image
// count, then creates the swapchain and its image views. On error everything
// created so far is destroyed.
func New(drv driver.Driver, cfg Config) (_ *Swapchain, err error) {
	log.Printf("Initializing swap chain...")

	support, err := QuerySupport(drv, cfg.PhysicalDevice, cfg.Surface)
	if err != nil {
		return nil, err
	}
	if !support.Adequate() {
		return nil, errors.Wrapf(ErrUnsupportedSurface, "%d formats, %d present modes",
			len(support.Formats), len(support.PresentModes))
	}

	s := &Swapchain{
		drv:         drv,
		device:      cfg.Device,
		handle:      vk.Swapchain(vk.NullHandle),
		format:      ChooseSurfaceFormat(support.Formats),
		presentMode: ChoosePresentMode(support.PresentModes),
		extent:      ChooseExtent(support.Capabilities, cfg.Width, cfg.Height),
		timeout:     driver.Timeout(cfg.AcquireTimeout),
	}
	defer func() {
		if err != nil {
			s.Teardown()
		}
	}()

	if err := s.createSwapchain(cfg, support.Capabilities); err != nil {
		return nil, err
	}

	if err := s.createImageViews(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Swapchain) createSwapchain(cfg Config, capabilities vk.SurfaceCapabilities) error {
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          cfg.Surface,
		MinImageCount:    ChooseImageCount(capabilities),
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.Swapchain(vk.NullHandle),
	}

	if cfg.GraphicsFamily != cfg.PresentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			cfg.GraphicsFamily,
			cfg.PresentFamily,
		}
		log.Printf("Using concurrent queue sharing mode.")
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
		log.Printf("Using exclusive queue sharing mode.")
	}

	swapchain, res := s.drv.CreateSwapchain(s.device, &createInfo)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to create swap chain")
	}
	s.handle = swapchain

	images, res := s.drv.SwapchainImages(s.device, s.handle)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to get swap chain images")
	}
	s.images = images

	return nil
}

func (s *Swapchain) createImageViews() error {
	s.views = make([]vk.ImageView, 0, len(s.images))

	for i, image := range s.images {
		createInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		view, res := s.drv.CreateImageView(s.device, &createInfo)
		if err := vk.Error(res); err != nil {
			return errors.Wrapf(err, "failed to create image view %d", i)
		}

		s.views = append(s.views, view)
	}

	return nil
}

// AcquireImage asks the presentation engine for the next image and returns
// its index. signal is signaled once the image may be rendered to; the call
// itself blocks only until the index is known.
//
// A suboptimal swapchain still yields a usable image and is only logged.
func (s *Swapchain) AcquireImage(signal vk.Semaphore) (ImageIndex, error) {
	index, res := s.drv.AcquireNextImage(s.device, s.handle, s.timeout, signal)

	switch res {
	case vk.Success:
	case vk.Suboptimal:
		if !s.suboptimalLogged {
			log.Printf("swap chain is suboptimal for the surface, continuing")
			s.suboptimalLogged = true
		}
	case vk.ErrorOutOfDate:
		return 0, errors.WithStack(ErrSwapchainOutOfDate)
	case vk.ErrorSurfaceLost:
		return 0, errors.WithStack(ErrSurfaceLost)
	case vk.Timeout, vk.NotReady:
		return 0, errors.WithStack(ErrAcquireTimeout)
	default:
		return 0, errors.Wrap(driver.ResultError(res), "failed to acquire swap chain image")
	}

	return ImageIndex(index), nil
}

// Handle returns the underlying vk.Swapchain.
func (s *Swapchain) Handle() vk.Swapchain {
	return s.handle
}

// Extent returns the size of the swapchain images.
func (s *Swapchain) Extent() vk.Extent2D {
	return s.extent
}

// ImageFormat returns the pixel format of the swapchain images.
func (s *Swapchain) ImageFormat() vk.Format {
	return s.format.Format
}

// ColorSpace returns the color space of the swapchain images.
func (s *Swapchain) ColorSpace() vk.ColorSpace {
	return s.format.ColorSpace
}

// PresentMode returns the selected present mode.
func (s *Swapchain) PresentMode() vk.PresentMode {
	return s.presentMode
}

// ImageCount returns the number of images the driver created, which may be
// more than requested.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// ImageView returns the view of image i.
func (s *Swapchain) ImageView(i ImageIndex) vk.ImageView {
	return s.views[i]
}

// Teardown destroys the image views and then the swapchain. The device must
// be idle. Calling Teardown again does nothing.
func (s *Swapchain) Teardown() {
	for _, view := range s.views {
		s.drv.DestroyImageView(s.device, view)
	}
	s.views = nil

	if s.handle != vk.Swapchain(vk.NullHandle) {
		s.drv.DestroySwapchain(s.device, s.handle)
		s.handle = vk.Swapchain(vk.NullHandle)
	}
	s.images = nil
}

