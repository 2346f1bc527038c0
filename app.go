package main

import (
	"log"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/foxmulder900/vulkan-base/driver"
	"github.com/foxmulder900/vulkan-base/frame"
	"github.com/foxmulder900/vulkan-base/queues"
	"github.com/foxmulder900/vulkan-base/swapchain"
)

// App draws a single triangle in a window until the window is closed.
type App struct {
	cfg config
	drv driver.Driver

	window      *glfw.Window
	instance    vk.Instance
	debugReport vk.DebugReportCallback
	surface     vk.Surface

	// physicalDevice is the physical device selected for this program.
	physicalDevice vk.PhysicalDevice
	families       queues.FamilyIndices

	// device is the logical device created for interfacing with the physical device.
	device vk.Device

	swapChain    *swapchain.Swapchain
	framebuffers *swapchain.Framebuffers

	renderPass     vk.RenderPass
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	queueManager *queues.Manager
	loop         *frame.Loop
}

// NewApp returns an App which has not created anything yet.
func NewApp(cfg config) *App {
	return &App{
		cfg:            cfg,
		drv:            driver.Vulkan{},
		instance:       vk.Instance(vk.NullHandle),
		debugReport:    vk.NullDebugReportCallback,
		surface:        vk.NullSurface,
		physicalDevice: vk.PhysicalDevice(vk.NullHandle),
		device:         vk.Device(vk.NullHandle),
		renderPass:     vk.RenderPass(vk.NullHandle),
		pipelineLayout: vk.PipelineLayout(vk.NullHandle),
		pipeline:       vk.Pipeline(vk.NullHandle),
		commandPool:    vk.CommandPool(vk.NullHandle),
	}
}

// Run opens the window, brings up Vulkan and draws frames until the window is
// closed. Whatever was created is destroyed before Run returns, also when
// initialization fails halfway.
func (a *App) Run() error {
	if err := a.initWindow(); err != nil {
		return errors.Wrap(err, "initWindow")
	}
	defer a.cleanWindow()

	defer a.cleanVulkan()
	if err := a.initVulkan(); err != nil {
		return errors.Wrap(err, "initVulkan")
	}

	if err := a.loop.Run(a.window.ShouldClose, glfw.PollEvents); err != nil {
		return errors.Wrap(err, "mainLoop")
	}

	log.Printf("Drew %d frames.", a.loop.Frames())
	return nil
}

func (a *App) initWindow() error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "glfw.Init")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(a.cfg.width, a.cfg.height, a.cfg.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "creating window")
	}

	a.window = window
	return nil
}

func (a *App) cleanWindow() {
	a.window.Destroy()
	glfw.Terminate()
}

func (a *App) initVulkan() error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to init Vulkan Go")
	}

	if err := a.createInstance(); err != nil {
		return errors.Wrap(err, "createInstance")
	}

	if err := a.setupDebugReport(); err != nil {
		return errors.Wrap(err, "setupDebugReport")
	}

	if err := a.createSurface(); err != nil {
		return errors.Wrap(err, "createSurface")
	}

	if err := a.pickPhysicalDevice(); err != nil {
		return errors.Wrap(err, "pickPhysicalDevice")
	}

	if err := a.createLogicalDevice(); err != nil {
		return errors.Wrap(err, "createLogicalDevice")
	}

	if err := a.createSwapChain(); err != nil {
		return errors.Wrap(err, "createSwapChain")
	}

	if err := a.createRenderPass(); err != nil {
		return errors.Wrap(err, "createRenderPass")
	}

	if err := a.createGraphicsPipeline(); err != nil {
		return errors.Wrap(err, "createGraphicsPipeline")
	}

	if err := a.createFramebuffers(); err != nil {
		return errors.Wrap(err, "createFramebuffers")
	}

	if err := a.createQueueManager(); err != nil {
		return errors.Wrap(err, "createQueueManager")
	}

	if err := a.createCommandPool(); err != nil {
		return errors.Wrap(err, "createCommandPool")
	}

	if err := a.createCommandBuffers(); err != nil {
		return errors.Wrap(err, "createCommandBuffers")
	}

	if err := a.createFrameLoop(); err != nil {
		return errors.Wrap(err, "createFrameLoop")
	}

	return nil
}

// cleanVulkan destroys everything initVulkan managed to create, in reverse
// dependency order. Handles which were never created are skipped.
func (a *App) cleanVulkan() {
	if a.device != vk.Device(vk.NullHandle) {
		waitDeviceIdle(a.drv, a.device)
	}

	if a.loop != nil {
		a.loop.Destroy()
	}

	if a.framebuffers != nil {
		a.framebuffers.Destroy()
	}

	if a.swapChain != nil {
		a.swapChain.Teardown()
	}

	// Destroying the pool frees its command buffers.
	if a.commandPool != vk.CommandPool(vk.NullHandle) {
		vk.DestroyCommandPool(a.device, a.commandPool, nil)
	}
	a.commandBuffers = nil

	if a.pipeline != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(a.device, a.pipeline, nil)
	}
	if a.pipelineLayout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(a.device, a.pipelineLayout, nil)
	}
	if a.renderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(a.device, a.renderPass, nil)
	}

	if a.queueManager != nil {
		a.queueManager.Destroy()
	}

	if a.device != vk.Device(vk.NullHandle) {
		vk.DestroyDevice(a.device, nil)
	}
	if a.surface != vk.NullSurface {
		vk.DestroySurface(a.instance, a.surface, nil)
	}
	if a.debugReport != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(a.instance, a.debugReport, nil)
	}
	if a.instance != vk.Instance(vk.NullHandle) {
		vk.DestroyInstance(a.instance, nil)
	}
}

// waitDeviceIdle is the barrier before teardown. A failure is only logged:
// everything is destroyed either way.
func waitDeviceIdle(drv driver.Driver, device vk.Device) {
	if err := vk.Error(drv.DeviceWaitIdle(device)); err != nil {
		log.Printf("WARNING: waiting for device idle before cleanup: %s", err)
	}
}

func (a *App) createSwapChain() error {
	width, height := a.window.GetFramebufferSize()

	sc, err := swapchain.New(a.drv, swapchain.Config{
		PhysicalDevice: a.physicalDevice,
		Device:         a.device,
		Surface:        a.surface,
		Width:          uint32(width),
		Height:         uint32(height),
		GraphicsFamily: a.families.Graphics.Get(),
		PresentFamily:  a.families.Present.Get(),
		AcquireTimeout: a.cfg.acquireTimeout,
	})
	if err != nil {
		return err
	}

	a.swapChain = sc
	return nil
}

func (a *App) createFramebuffers() error {
	framebuffers, err := swapchain.NewFramebuffers(a.drv, a.device, a.swapChain, a.renderPass)
	if err != nil {
		return err
	}

	a.framebuffers = framebuffers
	return nil
}

func (a *App) createQueueManager() error {
	qm, err := queues.NewManager(a.drv, queues.Config{
		Device:       a.device,
		Families:     a.families,
		FenceTimeout: a.cfg.fenceTimeout,
	})
	if err != nil {
		return err
	}

	a.queueManager = qm
	return nil
}

func (a *App) createFrameLoop() error {
	loop, err := frame.New(a.drv, a.device, a.swapChain, a.queueManager, a.commandBuffers)
	if err != nil {
		return err
	}

	a.loop = loop
	return nil
}
