package main

import (
	"strings"
	"time"

	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

const (
	windowWidth  = 800
	windowHeight = 600

	title = "Vulkan Base"
)

// config is built once at start up and never changed afterwards. Every name
// list holds null terminated strings, ready to be handed to vulkan-go.
type config struct {
	width  int
	height int
	title  string

	// validationLayers is the list of instance layers needed by this program
	// when enableValidationLayers is set.
	validationLayers       []string
	enableValidationLayers bool

	// deviceExtensions is the list of required device extensions needed by this
	// program.
	deviceExtensions []string

	// acquireTimeout and fenceTimeout bound the blocking calls of the frame
	// loop. Zero waits forever.
	acquireTimeout time.Duration
	fenceTimeout   time.Duration

	clearColor linmath.Vec4
}

func newConfig(debug bool) config {
	return config{
		width:                  windowWidth,
		height:                 windowHeight,
		title:                  title,
		enableValidationLayers: debug,
		validationLayers: []string{
			"VK_LAYER_KHRONOS_validation\x00",
		},
		deviceExtensions: []string{
			vk.KhrSwapchainExtensionName + "\x00",
		},
		clearColor: linmath.Vec4{0, 0, 0, 1},
	}
}

// instanceExtensions returns the extensions the instance is created with:
// the ones the window system needs plus debug reporting when validation is
// enabled.
func (c config) instanceExtensions(windowExtensions []string) []string {
	extensions := safeStrings(windowExtensions)
	if c.enableValidationLayers {
		extensions = append(extensions, vk.ExtDebugReportExtensionName+"\x00")
	}
	return extensions
}

// safeStrings returns a copy of list in which every string is null
// terminated.
func safeStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !strings.HasSuffix(s, "\x00") {
			s += "\x00"
		}
		out = append(out, s)
	}
	return out
}

// missingNames returns the entries of required which are not in available.
// Both lists hold null terminated strings.
func missingNames(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}

	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, strings.TrimSuffix(name, "\x00"))
		}
	}
	return missing
}
