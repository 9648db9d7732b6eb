package vkcore

import (
	vk "github.com/vulkan-go/vulkan"
)

// PresentResult classifies the outcome of AcquireNext/Present beyond plain
// success, matching the teacher's handling of vk.Suboptimal/ErrorOutOfDate
// in CoreRenderInstance.Update (instance.go) but promoted to a named type
// instead of raw vk.Result comparisons at every call site.
type PresentResult int

const (
	PresentOK PresentResult = iota
	PresentSuboptimal
	PresentOutOfDate
	PresentPaused
	PresentError
)

// selectSurfaceFormat picks the first format matching a caller preference,
// falling back to the first format the surface reports, and finally to a
// default when the surface reports the single vk.FormatUndefined sentinel
// some drivers use to mean "anything goes" — the same fallback the
// teacher's NewCoreSwapchain applies (swapchain.go).
func selectSurfaceFormat(formats []vk.SurfaceFormat, prefs []SurfaceFormatPreference) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, ErrSwapchainNoFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}, nil
	}
	for _, pref := range prefs {
		for _, f := range formats {
			if uint32(f.Format) == pref.Format && uint32(f.ColorSpace) == pref.ColorSpace {
				return f, nil
			}
		}
	}
	return formats[0], nil
}

// selectPresentMode prefers an explicit preference list, then MAILBOX when
// vsync is off (lowest added latency without tearing), then falls back to
// FIFO — guaranteed available by the spec, same guarantee the teacher
// leans on when hard-coding vk.PresentModeFifo (swapchain.go).
func selectPresentMode(available []vk.PresentMode, prefs []PresentModePreference, vsync bool) vk.PresentMode {
	has := func(mode vk.PresentMode) bool {
		for _, m := range available {
			if m == mode {
				return true
			}
		}
		return false
	}
	for _, pref := range prefs {
		if has(vk.PresentMode(pref)) {
			return vk.PresentMode(pref)
		}
	}
	if !vsync && has(vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

// chooseImageCount clamps desired into [MinImageCount, MaxImageCount],
// where MaxImageCount == 0 means unbounded (spec §4.4).
func chooseImageCount(caps vk.SurfaceCapabilities, desired uint32) uint32 {
	if desired < caps.MinImageCount {
		desired = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && desired > caps.MaxImageCount {
		desired = caps.MaxImageCount
	}
	return desired
}

// chooseExtent returns the surface's current extent when the driver
// reports one, or clamps the caller's fallback size into the supported
// range when the surface reports the vk.MaxUint32 "you choose" sentinel.
func chooseExtent(caps vk.SurfaceCapabilities, fallbackWidth, fallbackHeight uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	clamp := func(v, lo, hi uint32) uint32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return vk.Extent2D{
		Width:  clamp(fallbackWidth, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(fallbackHeight, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// Swapchain owns a VkSwapchainKHR and its images/views, replacing the
// teacher's CoreSwapchain (swapchain.go) with a type whose create path
// routes every format/mode/extent/count decision through the pure
// selection functions above instead of inlining the logic into the
// constructor.
type Swapchain struct {
	device *Device
	cfg    Config

	handle vk.Swapchain
	format vk.SurfaceFormat
	mode   vk.PresentMode
	extent vk.Extent2D
	images []vk.Image
	views  []vk.ImageView

	paused bool
}

// NewSwapchain creates a swapchain for device.Surface(), sized to
// (width, height) when the surface doesn't dictate its own extent. old is
// vk.NullSwapchain on first creation, or the previous handle when
// recreating after a resize (spec §4.4, "retirement").
func NewSwapchain(device *Device, cfg Config, width, height uint32, old vk.Swapchain) (*Swapchain, error) {
	gpu := device.physical.Handle
	surface := device.Surface()

	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps); isError(ret) {
		return nil, resultError("GetPhysicalDeviceSurfaceCapabilities", ret)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	extent := chooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return &Swapchain{device: device, cfg: cfg, extent: extent, paused: true}, nil
	}

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}
	format, err := selectSurfaceFormat(formats, cfg.ColourFormatPreferences)
	if err != nil {
		return nil, err
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, modes)
	mode := selectPresentMode(modes, cfg.PresentModePreferences, cfg.VSync)

	imageCount := chooseImageCount(caps, uint32(cfg.inFlightFrames()))

	preTransform := caps.CurrentTransform
	if caps.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit, vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit, vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var handle vk.Swapchain
	ret := vk.CreateSwapchain(device.handle, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      mode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateSwapchain", ret)
	}

	// old (when non-null) is retired by OldSwapchain above but not yet
	// destroyed: the caller owns destroying it, once it is safe to (spec
	// §4.4 "Retired entries live one full frame before destruction"). See
	// Engine.Resize, which routes the previous Swapchain through the
	// DeferredQueue instead of destroying it here and stalling the render
	// loop on a synchronous device-idle wait.

	var imgCount uint32
	vk.GetSwapchainImages(device.handle, handle, &imgCount, nil)
	images := make([]vk.Image, imgCount)
	vk.GetSwapchainImages(device.handle, handle, &imgCount, images)

	views := make([]vk.ImageView, imgCount)
	for i, img := range images {
		var view vk.ImageView
		ret := vk.CreateImageView(device.handle, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity, G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity, A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if isError(ret) {
			return nil, resultError("CreateImageView(swapchain)", ret)
		}
		views[i] = view
	}

	return &Swapchain{
		device: device, cfg: cfg,
		handle: handle, format: format, mode: mode, extent: extent,
		images: images, views: views,
	}, nil
}

// Format returns the swapchain's selected surface format.
func (s *Swapchain) Format() vk.SurfaceFormat { return s.format }

// Extent returns the swapchain's current image extent.
func (s *Swapchain) Extent() vk.Extent2D { return s.extent }

// ImageCount returns the number of swapchain images.
func (s *Swapchain) ImageCount() int { return len(s.images) }

// View returns the image view for swapchain image index.
func (s *Swapchain) View(index uint32) vk.ImageView { return s.views[index] }

// Paused reports whether the swapchain has a zero extent (e.g. the window
// is minimized) and should be skipped until resized (spec §4.4).
func (s *Swapchain) Paused() bool { return s.paused }

// AcquireNext acquires the next presentable image, signalling semaphore
// when it is ready. Takes the device lock for the duration of the call:
// spec §5 puts acquire under the same mutex as submit/present so a queue
// submitted to from another goroutine (a TransferEngine.Flush, when
// transfer rides the graphics/present queue) can never interleave with it.
func (s *Swapchain) AcquireNext(semaphore vk.Semaphore) (uint32, PresentResult) {
	if s.paused {
		return 0, PresentPaused
	}
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	var index uint32
	ret := vk.AcquireNextImage(s.device.handle, s.handle, vk.MaxUint64, semaphore, vk.NullFence, &index)
	switch ret {
	case vk.Success:
		return index, PresentOK
	case vk.Suboptimal:
		return index, PresentSuboptimal
	case vk.ErrorOutOfDate:
		return 0, PresentOutOfDate
	default:
		return 0, PresentError
	}
}

// Present submits image for presentation on queue after waiting on wait.
// Takes the device lock for the same reason AcquireNext does: vkQueuePresentKHR
// requires external synchronization on queue, and queue may be the same
// VkQueue the transfer engine's Flush submits to.
func (s *Swapchain) Present(queue vk.Queue, wait vk.Semaphore, image uint32) PresentResult {
	if s.paused {
		return PresentPaused
	}
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	ret := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{image},
	})
	switch ret {
	case vk.Success:
		return PresentOK
	case vk.Suboptimal:
		return PresentSuboptimal
	case vk.ErrorOutOfDate:
		return PresentOutOfDate
	default:
		return PresentError
	}
}

// Handle returns the underlying VkSwapchainKHR, used as OldSwapchain when
// recreating.
func (s *Swapchain) Handle() vk.Swapchain { return s.handle }

// Destroy destroys the swapchain's image views and the swapchain itself.
// It does not wait for device idle; Engine.Resize passes the old handle to
// NewSwapchain as OldSwapchain and defers this call through the
// DeferredQueue until the old swapchain is no longer in flight.
func (s *Swapchain) Destroy() {
	for _, view := range s.views {
		if view != vk.NullImageView {
			vk.DestroyImageView(s.device.handle, view, nil)
		}
	}
	s.views = nil
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(s.device.handle, s.handle, nil)
		s.handle = vk.NullSwapchain
	}
}
