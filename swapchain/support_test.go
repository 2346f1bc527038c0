package swapchain

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver/drivertest"
)

var preferredFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Unorm,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name      string
		available []vk.SurfaceFormat
		want      vk.SurfaceFormat
	}{
		{"only preferred", []vk.SurfaceFormat{preferredFormat}, preferredFormat},
		{"preferred first", []vk.SurfaceFormat{preferredFormat, srgb, rgba}, preferredFormat},
		{"preferred last", []vk.SurfaceFormat{srgb, rgba, preferredFormat}, preferredFormat},
		{"preferred in the middle", []vk.SurfaceFormat{rgba, preferredFormat, srgb}, preferredFormat},
		{"fallback to first", []vk.SurfaceFormat{srgb, rgba}, srgb},
		{"fallback keeps order", []vk.SurfaceFormat{rgba, srgb}, rgba},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewWithT(t).Expect(ChooseSurfaceFormat(tt.available)).To(Equal(tt.want))
		})
	}
}

func TestChooseSurfaceFormatNeedsMatchingColorSpace(t *testing.T) {
	g := NewWithT(t)

	wrongSpace := vk.SurfaceFormat{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorSpaceExtendedSrgbLinear,
	}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	g.Expect(ChooseSurfaceFormat([]vk.SurfaceFormat{wrongSpace, other})).To(Equal(wrongSpace))
	g.Expect(ChooseSurfaceFormat([]vk.SurfaceFormat{wrongSpace, preferredFormat})).To(Equal(preferredFormat))
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name      string
		available []vk.PresentMode
		want      vk.PresentMode
	}{
		{
			name:      "fifo only",
			available: []vk.PresentMode{vk.PresentModeFifo},
			want:      vk.PresentModeFifo,
		},
		{
			name:      "last recognised entry wins",
			available: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox, vk.PresentModeFifoRelaxed},
			want:      vk.PresentModeFifoRelaxed,
		},
		{
			name:      "immediate then fifo",
			available: []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo},
			want:      vk.PresentModeFifo,
		},
		{
			name:      "mailbox last",
			available: []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo, vk.PresentModeMailbox},
			want:      vk.PresentModeMailbox,
		},
		{
			name:      "empty list defaults to fifo",
			available: nil,
			want:      vk.PresentModeFifo,
		},
		{
			name:      "unknown modes are skipped",
			available: []vk.PresentMode{vk.PresentModeImmediate, vk.PresentMode(1000111000)},
			want:      vk.PresentModeImmediate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewWithT(t).Expect(ChoosePresentMode(tt.available)).To(Equal(tt.want))
		})
	}
}

func TestChooseExtent(t *testing.T) {
	tests := []struct {
		name          string
		current       vk.Extent2D
		width, height uint32
		want          vk.Extent2D
	}{
		{
			name:    "desired size clamped to maximum",
			current: vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			width:   1920, height: 1080,
			want: vk.Extent2D{Width: 1280, Height: 720},
		},
		{
			name:    "desired size clamped to minimum",
			current: vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			width:   320, height: 200,
			want: vk.Extent2D{Width: 640, Height: 480},
		},
		{
			name:    "desired size within range",
			current: vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
			width:   800, height: 600,
			want: vk.Extent2D{Width: 800, Height: 600},
		},
		{
			name:    "surface extent used verbatim",
			current: vk.Extent2D{Width: 800, Height: 600},
			width:   1920, height: 1080,
			want: vk.Extent2D{Width: 800, Height: 600},
		},
		{
			name:    "surface extent outside range still verbatim",
			current: vk.Extent2D{Width: 2000, Height: 100},
			width:   800, height: 600,
			want: vk.Extent2D{Width: 2000, Height: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capabilities := vk.SurfaceCapabilities{
				CurrentExtent:  tt.current,
				MinImageExtent: vk.Extent2D{Width: 640, Height: 480},
				MaxImageExtent: vk.Extent2D{Width: 1280, Height: 720},
			}
			got := ChooseExtent(capabilities, tt.width, tt.height)
			NewWithT(t).Expect(got).To(Equal(tt.want))
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{min: 1, max: 3, want: 2},
		{min: 2, max: 8, want: 3},
		{min: 2, max: 2, want: 2},
		{min: 3, max: 0, want: 4},
	}

	for _, tt := range tests {
		capabilities := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		NewWithT(t).Expect(ChooseImageCount(capabilities)).To(Equal(tt.want),
			"min %d, max %d", tt.min, tt.max)
	}
}

func TestQuerySupport(t *testing.T) {
	g := NewWithT(t)
	gpu := drivertest.New()
	gpu.PresentModes = []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}

	details, err := QuerySupport(gpu, gpu.PhysicalDevice(), gpu.Surface())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(details.Capabilities).To(Equal(gpu.Capabilities))
	g.Expect(details.Formats).To(Equal(gpu.Formats))
	g.Expect(details.PresentModes).To(Equal(gpu.PresentModes))
	g.Expect(details.Adequate()).To(BeTrue())
}

func TestQuerySupportInadequate(t *testing.T) {
	g := NewWithT(t)
	gpu := drivertest.New()
	gpu.Formats = nil

	details, err := QuerySupport(gpu, gpu.PhysicalDevice(), gpu.Surface())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(details.Adequate()).To(BeFalse())
}

func TestQuerySupportFailure(t *testing.T) {
	g := NewWithT(t)
	gpu := drivertest.New()
	gpu.FailNext("SurfaceFormats", vk.ErrorSurfaceLost)

	_, err := QuerySupport(gpu, gpu.PhysicalDevice(), gpu.Surface())
	g.Expect(err).To(MatchError(ContainSubstring("failed to query device surface formats")))
}
