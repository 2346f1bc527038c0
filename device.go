package main

import (
	"log"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/queues"
	"github.com/foxmulder900/vulkan-base/swapchain"
)

// pickPhysicalDevice selects the first device which has every queue family,
// extension and surface feature the program needs.
func (a *App) pickPhysicalDevice() error {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(a.instance, &deviceCount, nil))
	if err != nil {
		return errors.Wrap(err, "failed to get the number of physical devices")
	}
	if deviceCount == 0 {
		return errors.New("failed to find GPUs with Vulkan support")
	}
	log.Printf("Found %d Vulkan supported device(s).", deviceCount)

	pDevices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(a.instance, &deviceCount, pDevices))
	if err != nil {
		return errors.Wrap(err, "failed to enumerate the physical devices")
	}

	for _, device := range pDevices {
		name := deviceName(device)

		indices, ok := a.isDeviceSuitable(device)
		if a.cfg.enableValidationLayers {
			log.Printf("Available device: %s (suitable: %t)", name, ok)
		}
		if !ok {
			continue
		}

		log.Printf("Using device: %s", name)
		a.physicalDevice = device
		a.families = indices
		return nil
	}

	return errors.New("failed to find a suitable GPU")
}

func deviceName(device vk.PhysicalDevice) string {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	return vk.ToString(properties.DeviceName[:])
}

func (a *App) isDeviceSuitable(device vk.PhysicalDevice) (queues.FamilyIndices, bool) {
	indices := a.findQueueFamilies(device)
	extensionsSupported := a.checkDeviceExtensionSupport(device)

	swapChainAdequate := false
	if extensionsSupported {
		support, err := swapchain.QuerySupport(a.drv, device, a.surface)
		if err != nil {
			log.Printf("WARNING: querying swap chain support: %s", err)
		}
		swapChainAdequate = err == nil && support.Adequate()
	}

	return indices, indices.IsComplete() && extensionsSupported && swapChainAdequate
}

// findQueueFamilies returns a FamilyIndices populated with Vulkan queue families needed
// by the program.
func (a *App) findQueueFamilies(device vk.PhysicalDevice) queues.FamilyIndices {
	indices := queues.FamilyIndices{}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)

	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i, family := range queueFamilies {
		family.Deref()
		if family.QueueCount == 0 {
			continue
		}

		if family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics.Set(uint32(i))
		}

		var hasPresent vk.Bool32
		err := vk.Error(
			vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), a.surface, &hasPresent),
		)
		if err != nil {
			log.Printf("error querying surface support for queue family %d: %s", i, err)
		} else if hasPresent.B() {
			indices.Present.Set(uint32(i))
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

func (a *App) checkDeviceExtensionSupport(device vk.PhysicalDevice) bool {
	var extensionsCount uint32
	res := vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount, nil)
	if err := vk.Error(res); err != nil {
		log.Printf("WARNING: enumerating device extension properties count: %s", err)
		return false
	}

	availableExtensions := make([]vk.ExtensionProperties, extensionsCount)
	res = vk.EnumerateDeviceExtensionProperties(device, "", &extensionsCount,
		availableExtensions)
	if err := vk.Error(res); err != nil {
		log.Printf("WARNING: getting device extension properties: %s", err)
		return false
	}

	available := make([]string, 0, len(availableExtensions))
	for _, extension := range availableExtensions {
		extension.Deref()
		available = append(available, vk.ToString(extension.ExtensionName[:])+"\x00")
	}

	return len(missingNames(a.cfg.deviceExtensions, available)) == 0
}

func (a *App) createLogicalDevice() error {
	if !a.families.IsComplete() {
		return errors.New("createLogicalDevice called for physical device which does " +
			"not have all the queues required by the program")
	}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{}
	for _, familyIndex := range a.families.Unique() {
		queueCreateInfos = append(
			queueCreateInfos,
			vk.DeviceQueueCreateInfo{
				SType:            vk.StructureTypeDeviceQueueCreateInfo,
				QueueFamilyIndex: familyIndex,
				QueueCount:       1,
				PQueuePriorities: []float32{1.0},
			},
		)
	}

	deviceFeatures := []vk.PhysicalDeviceFeatures{{}}

	createInfo := vk.DeviceCreateInfo{
		SType:            vk.StructureTypeDeviceCreateInfo,
		PEnabledFeatures: deviceFeatures,

		PQueueCreateInfos:    queueCreateInfos,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),

		EnabledExtensionCount:   uint32(len(a.cfg.deviceExtensions)),
		PpEnabledExtensionNames: a.cfg.deviceExtensions,
	}

	if a.cfg.enableValidationLayers {
		createInfo.PpEnabledLayerNames = a.cfg.validationLayers
		createInfo.EnabledLayerCount = uint32(len(a.cfg.validationLayers))
	}

	var device vk.Device
	err := vk.Error(vk.CreateDevice(a.physicalDevice, &createInfo, nil, &device))
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}
	a.device = device

	return nil
}
