package main

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func (a *App) createInstance() error {
	if a.cfg.enableValidationLayers {
		missing, err := missingLayers(a.cfg.validationLayers)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return errors.Errorf("validation layers requested but not available: %v", missing)
		}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   a.cfg.title + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}

	extensions := a.cfg.instanceExtensions(a.window.GetRequiredInstanceExtensions())
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}

	if a.cfg.enableValidationLayers {
		createInfo.EnabledLayerCount = uint32(len(a.cfg.validationLayers))
		createInfo.PpEnabledLayerNames = a.cfg.validationLayers
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return errors.Wrap(err, "failed to create Vulkan instance")
	}
	a.instance = instance

	if err := vk.InitInstance(a.instance); err != nil {
		return errors.Wrap(err, "failed to load instance functions")
	}

	return nil
}

// missingLayers returns the entries of layers which the Vulkan loader does
// not know about.
func missingLayers(layers []string) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, errors.Wrap(err, "counting instance layers")
	}
	availableLayers := make([]vk.LayerProperties, count)

	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, availableLayers)); err != nil {
		return nil, errors.Wrap(err, "enumerating instance layers")
	}

	available := make([]string, 0, count)
	for _, layer := range availableLayers {
		layer.Deref()

		layerName := vk.ToString(layer.LayerName[:])
		available = append(available, layerName+"\x00")
	}

	return missingNames(layers, available), nil
}

// setupDebugReport makes the validation layers report through log. It does
// nothing unless validation is enabled.
func (a *App) setupDebugReport() error {
	if !a.cfg.enableValidationLayers {
		return nil
	}

	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(
			vk.DebugReportErrorBit |
				vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit,
		),
		PfnCallback: debugReportCallback,
	}

	var callback vk.DebugReportCallback
	res := vk.CreateDebugReportCallback(a.instance, &createInfo, nil, &callback)
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, "failed to set up debug report callback")
	}

	a.debugReport = callback
	return nil
}

func debugReportCallback(
	flags vk.DebugReportFlags,
	objectType vk.DebugReportObjectType,
	object uint64,
	location uint,
	messageCode int32,
	pLayerPrefix string,
	pMessage string,
	pUserData unsafe.Pointer,
) vk.Bool32 {
	log.Print(debugReportMessage(flags, pLayerPrefix, messageCode, pMessage))

	// The call which triggered the report is never aborted.
	return vk.Bool32(vk.False)
}

func debugReportMessage(flags vk.DebugReportFlags, layer string, code int32, message string) string {
	var severity string
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		severity = "ERROR"
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		severity = "WARN"
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		severity = "PERF"
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		severity = "DEBUG"
	default:
		severity = "INFO"
	}

	return fmt.Sprintf("[%s %d] validation layer: %s (%s)", severity, code, message, layer)
}

func (a *App) createSurface() error {
	surfacePtr, err := a.window.CreateWindowSurface(a.instance, nil)
	if err != nil {
		return errors.Wrap(err, "cannot create surface within GLFW window")
	}

	a.surface = vk.SurfaceFromPointer(surfacePtr)
	return nil
}
