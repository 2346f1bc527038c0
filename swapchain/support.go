package swapchain

import (
	"cmp"
	"math"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
)

// SupportDetails describes what a surface supports on a physical device. The
// type is suitable for passing around many details of the surface between
// functions.
type SupportDetails struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether at least one format and one present mode are
// available.
func (d SupportDetails) Adequate() bool {
	return len(d.Formats) > 0 && len(d.PresentModes) > 0
}

// QuerySupport queries the capabilities, formats and present modes of surface
// on pd.
func QuerySupport(
	drv driver.Driver,
	pd vk.PhysicalDevice,
	surface vk.Surface,
) (SupportDetails, error) {
	details := SupportDetails{}

	capabilities, res := drv.SurfaceCapabilities(pd, surface)
	if err := vk.Error(res); err != nil {
		return details, errors.Wrap(err, "failed to query device surface capabilities")
	}
	details.Capabilities = capabilities

	formats, res := drv.SurfaceFormats(pd, surface)
	if err := vk.Error(res); err != nil {
		return details, errors.Wrap(err, "failed to query device surface formats")
	}
	details.Formats = formats

	presentModes, res := drv.SurfacePresentModes(pd, surface)
	if err := vk.Error(res); err != nil {
		return details, errors.Wrap(err, "failed to query device surface present modes")
	}
	details.PresentModes = presentModes

	return details, nil
}

// ChooseSurfaceFormat returns the 8-bit BGRA UNORM format with the sRGB
// non-linear color space when it is anywhere in available, and the first
// entry otherwise. available must not be empty.
func ChooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range available {
		if format.Format == vk.FormatB8g8r8a8Unorm &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}

	return available[0]
}

// ChoosePresentMode starts from FIFO, which is always supported, and lets
// every FIFO, FIFO_RELAXED, MAILBOX or IMMEDIATE entry replace the current
// choice while scanning available. The last recognised entry wins; other modes
// are skipped.
func ChoosePresentMode(available []vk.PresentMode) vk.PresentMode {
	bestMode := vk.PresentModeFifo

	for _, mode := range available {
		switch mode {
		case vk.PresentModeMailbox,
			vk.PresentModeFifoRelaxed,
			vk.PresentModeFifo,
			vk.PresentModeImmediate:
			bestMode = mode
		}
	}

	return bestMode
}

// ChooseExtent returns the surface's current extent, unless the surface lets
// the swapchain dictate it (current width is math.MaxUint32). In that case the
// desired width and height are clamped into the supported range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}

	return vk.Extent2D{
		Width: clamp(
			width,
			capabilities.MinImageExtent.Width,
			capabilities.MaxImageExtent.Width,
		),
		Height: clamp(
			height,
			capabilities.MinImageExtent.Height,
			capabilities.MaxImageExtent.Height,
		),
	}
}

// ChooseImageCount asks for one image more than the minimum, so the program
// does not have to wait on the driver before it can acquire another image. A
// MaxImageCount of zero means there is no maximum.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 &&
		imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		val = min
	}
	if val > max {
		val = max
	}
	return val
}
