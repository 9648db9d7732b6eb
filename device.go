package vkcore

import (
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SurfaceMaker creates a VkSurfaceKHR against an already-created instance,
// and reports the instance extensions the windowing backend needs enabled.
// Implemented by the GLFW adapter in the embedder; kept as an interface so
// vkcore never imports a windowing package directly (spec §6).
type SurfaceMaker interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// Device owns the VkInstance, the selected VkPhysicalDevice, the VkDevice,
// and the queues drawn from it. It is the root handle every other vkcore
// type is constructed from, generalising the teacher's BaseCore +
// CoreRenderInstance + CoreDevice + CoreQueue cluster (core.go, instance.go,
// device.go, queue.go) into a single value with no interior package-level
// singletons.
type Device struct {
	cfg Config

	instance          vk.Instance
	debugCallback     vk.DebugReportCallback
	debugUtilsEnabled bool

	physical  PhysicalDeviceInfo
	handle    vk.Device
	families  queueFamilies
	graphicsQ vk.Queue
	presentQ  vk.Queue
	transferQ vk.Queue

	surface vk.Surface

	logger *log.Logger

	mu sync.Mutex // serializes queue submission, spec §5
}

// Logger returns the Device's diagnostic logger, shared by the Transfer
// engine, Swapchain and Renderer so every subsystem logs through one sink.
func (d *Device) Logger() *log.Logger { return d.logger }

// Handle returns the underlying VkDevice.
func (d *Device) Handle() vk.Device { return d.handle }

// Instance returns the underlying VkInstance.
func (d *Device) Instance() vk.Instance { return d.instance }

// PhysicalDevice returns the selected VkPhysicalDevice and its cached info.
func (d *Device) PhysicalDevice() PhysicalDeviceInfo { return d.physical }

// Surface returns the VkSurfaceKHR created for this device, or
// vk.NullSurface if the Device was created headless.
func (d *Device) Surface() vk.Surface { return d.surface }

// GraphicsQueue returns the device's graphics queue and its family index.
func (d *Device) GraphicsQueue() (vk.Queue, uint32) { return d.graphicsQ, d.families.graphics }

// PresentQueue returns the device's present queue, falling back to the
// graphics queue when they are the same family.
func (d *Device) PresentQueue() (vk.Queue, uint32) {
	if d.families.separatePresent() {
		return d.presentQ, d.families.present
	}
	return d.graphicsQ, d.families.graphics
}

// TransferQueue returns the device's transfer queue, falling back to the
// graphics queue when no dedicated transfer family was selected.
func (d *Device) TransferQueue() (vk.Queue, uint32) {
	if d.families.separateTransfer() {
		return d.transferQ, d.families.transfer
	}
	return d.graphicsQ, d.families.graphics
}

// requiredDeviceExtensions mirrors the teacher's
// BaseCore.GetDeviceExtensions (core.go), trimmed to the extensions this
// engine actually wires up: swapchain presentation is mandatory, the rest
// are opportunistic platform extras kept from the teacher's list.
var requiredDeviceExtensions = []string{"VK_KHR_swapchain"}

var optionalDeviceExtensions = []string{
	"VK_KHR_portability_subset",
	"VK_EXT_debug_utils",
	"VK_KHR_external_semaphore",
	"VK_KHR_external_fence",
}

// NewDevice creates a VkInstance, selects the best physical device,
// creates a VkSurfaceKHR through surfaceMaker (nil for a headless/compute
// Device), and creates the logical VkDevice with the queues cfg asks for.
// Grounded in BaseCore.CreateGraphicsInstance + CoreRenderInstance.Init
// (core.go, instance.go) and asche's NewPlatform (platform.go), merged into
// one constructor instead of three collaborating objects.
func NewDevice(cfg Config, surfaceMaker SurfaceMaker, logger *log.Logger) (*Device, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "vkcore: ", log.LstdFlags)
	}

	instLayers, err := enumerateValidationLayers()
	if err != nil {
		return nil, err
	}
	instExt, err := enumerateInstanceExtensions()
	if err != nil {
		return nil, err
	}

	wantedLayers := []string{}
	if cfg.Validation {
		wantedLayers = append(wantedLayers, "VK_LAYER_KHRONOS_validation")
	}
	layerSet := newExtensionSet(wantedLayers, nil, instLayers)
	enabledLayers := layerSet.resolve()

	wantedInstExt := []string{}
	if cfg.Validation {
		wantedInstExt = append(wantedInstExt, debugReportExtensionName, debugUtilsExtensionName)
	}
	var required []string
	if surfaceMaker != nil {
		required = append(required, surfaceMaker.RequiredInstanceExtensions()...)
	}
	instSet := newExtensionSet(wantedInstExt, required, instExt)
	ok, missing := instSet.hasRequired()
	if !ok {
		return nil, errors.Wrapf(ErrMissingExtension, "instance extensions: %v", missing)
	}
	enabledInstExt := instSet.resolve()

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(cfg.AppName),
			PEngineName:        safeString(cfg.EngineName),
		},
		EnabledExtensionCount:   uint32(len(enabledInstExt)),
		PpEnabledExtensionNames: enabledInstExt,
		EnabledLayerCount:       uint32(len(enabledLayers)),
		PpEnabledLayerNames:     enabledLayers,
	}, nil, &instance)
	if isError(ret) {
		return nil, resultError("CreateInstance", ret)
	}
	vk.InitInstance(instance)

	d := &Device{cfg: cfg, instance: instance, logger: logger}

	debugUtilsWanted, _ := instSet.hasAll([]string{debugUtilsExtensionName})
	d.debugUtilsEnabled = cfg.Validation && debugUtilsWanted

	if cfg.Validation {
		if ok, _ := instSet.hasAll([]string{debugReportExtensionName}); ok {
			cb, err := createDebugReportCallback(instance, logger)
			if err != nil {
				logger.Printf("debug report callback unavailable: %v", err)
			} else {
				d.debugCallback = cb
			}
		}
	}

	var surface vk.Surface = vk.NullSurface
	if surfaceMaker != nil {
		surface, err = surfaceMaker.CreateSurface(instance)
		if err != nil {
			d.destroyInstance()
			return nil, errors.Wrap(ErrSurfaceCreation, err.Error())
		}
	}
	d.surface = surface

	candidates, err := enumeratePhysicalDevices(instance)
	if err != nil {
		d.destroyInstance()
		return nil, err
	}

	needsPresent := surface != vk.NullSurface
	supportsPresent := func(gpu vk.PhysicalDevice, family uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, family, surface, &supported)
		return supported.B()
	}

	reqExt := append([]string{}, requiredDeviceExtensions...)
	physical, families, err := selectPhysicalDevice(candidates, reqExt, cfg.PreferredDeviceName, supportsPresent, needsPresent, cfg.DedicatedTransferQueue)
	if err != nil {
		d.destroyInstance()
		return nil, err
	}
	d.physical = physical
	d.families = families

	devExtSet := newExtensionSet(optionalDeviceExtensions, requiredDeviceExtensions, physical.Extensions)
	enabledDevExt := devExtSet.resolve()

	features := physical.Features

	infos := queueCreateInfos(families)
	var device vk.Device
	ret = vk.CreateDevice(physical.Handle, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(infos)),
		PQueueCreateInfos:       infos,
		EnabledExtensionCount:   uint32(len(enabledDevExt)),
		PpEnabledExtensionNames: enabledDevExt,
		PEnabledFeatures:        &features,
	}, nil, &device)
	if isError(ret) {
		d.destroyInstance()
		return nil, resultError("CreateDevice", ret)
	}
	d.handle = device

	var q vk.Queue
	vk.GetDeviceQueue(device, families.graphics, 0, &q)
	d.graphicsQ = q
	if families.separatePresent() {
		vk.GetDeviceQueue(device, families.present, 0, &q)
		d.presentQ = q
	}
	if families.separateTransfer() {
		vk.GetDeviceQueue(device, families.transfer, 0, &q)
		d.transferQ = q
	}

	return d, nil
}

// Submit serializes a VkQueueSubmit against q, guarding the queue handle
// with d.mu per spec §5 ("all submissions to a given VkQueue are
// serialized by a mutex; concurrent submission to different queues is
// allowed"), grounded in CoreRenderInstance.submit_pipeline (instance.go).
func (d *Device) Submit(q vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ret := vk.QueueSubmit(q, uint32(len(submits)), submits, fence)
	if isError(ret) {
		return resultError("QueueSubmit", ret)
	}
	return nil
}

// WaitForFences blocks on fences under d.mu, extending spec §5's "acquire/
// submit/present forwarded to the queue under the device lock" to the
// fence wait/reset pair guarding each frame-sync slot: a concurrent Submit
// on the same queue (e.g. a TransferEngine.Flush from another goroutine) must never
// interleave with the render loop resetting a fence it is about to wait on
// again.
func (d *Device) WaitForFences(fences []vk.Fence, waitAll bool, timeout uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ret := vk.WaitForFences(d.handle, uint32(len(fences)), fences, vkBool(waitAll), timeout); isError(ret) {
		return resultError("WaitForFences", ret)
	}
	return nil
}

// ResetFences resets fences to the unsignalled state under d.mu.
func (d *Device) ResetFences(fences []vk.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ret := vk.ResetFences(d.handle, uint32(len(fences)), fences); isError(ret) {
		return resultError("ResetFences", ret)
	}
	return nil
}

// WaitIdle blocks until every queue on this device is idle, used during
// shutdown (Engine.Shutdown, TransferEngine.Destroy).
func (d *Device) WaitIdle() error {
	if ret := vk.DeviceWaitIdle(d.handle); isError(ret) {
		return resultError("DeviceWaitIdle", ret)
	}
	return nil
}

func (d *Device) destroyInstance() {
	if d.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
	}
	vk.DestroyInstance(d.instance, nil)
}

// Destroy tears the Device down in the reverse order of creation: wait for
// idle, destroy the logical device, then the debug callback, surface and
// instance (teacher's CoreRenderInstance.teardown, instance.go).
func (d *Device) Destroy() {
	if d.handle != nil {
		vk.DeviceWaitIdle(d.handle)
		vk.DestroyDevice(d.handle, nil)
		d.handle = nil
	}
	d.destroyInstance()
}
