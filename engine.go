package vkcore

import (
	"log"

	vk "github.com/vulkan-go/vulkan"
)

// Engine wires together every component spec.md lists (Device, Allocator,
// TransferEngine, Swapchain, Renderer, DeferredQueue, resource caches)
// into one value, matching Design Notes "static singletons" decision: a
// struct the embedder owns and passes around explicitly rather than a
// package-level global the teacher's CoreRenderInstance approximates by
// being the sole top-level struct every other Core* type reaches back
// into (instance.go).
type Engine struct {
	Device    *Device
	Allocator *Allocator
	Transfer  *TransferEngine
	Swapchain *Swapchain
	Renderer  *Renderer
	Deferred  *DeferredQueue

	Buffers *ResourceCache[*Buffer]
	Images  *ResourceCache[*Image]
	Shaders *ResourceCache[*ShaderModule]
	Pipes   *ResourceCache[*Pipeline]

	cfg Config
}

// NewEngine performs the full startup sequence (spec §4): device creation
// against surfaceMaker, allocator, transfer engine with the configured
// staging reserve, initial swapchain sized to (width, height), a Renderer
// over it, and the deferred/resource-cache machinery sized to
// cfg.InFlightFrames.
func NewEngine(cfg Config, surfaceMaker SurfaceMaker, width, height uint32, logger *log.Logger) (*Engine, error) {
	device, err := NewDevice(cfg, surfaceMaker, logger)
	if err != nil {
		return nil, err
	}

	allocator := NewAllocator(device)

	transfer, err := NewTransferEngine(device, allocator, cfg.TransferReserve)
	if err != nil {
		device.Destroy()
		return nil, err
	}

	swapchain, err := NewSwapchain(device, cfg, width, height, vk.NullSwapchain)
	if err != nil {
		transfer.Destroy()
		device.Destroy()
		return nil, err
	}

	renderer, err := NewRenderer(device, swapchain, allocator, cfg.inFlightFrames())
	if err != nil {
		swapchain.Destroy()
		transfer.Destroy()
		device.Destroy()
		return nil, err
	}

	return &Engine{
		Device:    device,
		Allocator: allocator,
		Transfer:  transfer,
		Swapchain: swapchain,
		Renderer:  renderer,
		Deferred:  NewDeferredQueue(uint64(cfg.inFlightFrames())),
		Buffers:   NewResourceCache[*Buffer](),
		Images:    NewResourceCache[*Image](),
		Shaders:   NewResourceCache[*ShaderModule](),
		Pipes:     NewResourceCache[*Pipeline](),
		cfg:       cfg,
	}, nil
}

// Resize recreates the swapchain and renderer against a new surface size,
// retiring the old swapchain handle as OldSwapchain (spec §4.4). Called by
// the embedder in response to a window resize event; the Renderer and its
// framebuffers/depth target are rebuilt against the new extent.
//
// The old Swapchain and Renderer are not destroyed here: they may still
// back in-flight frames submitted before this call. Destruction is routed
// through the DeferredQueue instead, so it happens once BeginFrame's
// Advance call confirms cfg.InFlightFrames frames have elapsed (spec §4.4
// "retired entries live one full frame before destruction") rather than
// stalling the render loop on a synchronous device-idle wait.
func (e *Engine) Resize(width, height uint32) error {
	oldSwapchain := e.Swapchain
	oldRenderer := e.Renderer

	swapchain, err := NewSwapchain(e.Device, e.cfg, width, height, oldSwapchain.Handle())
	if err != nil {
		return err
	}
	renderer, err := NewRenderer(e.Device, swapchain, e.Allocator, e.cfg.inFlightFrames())
	if err != nil {
		swapchain.Destroy()
		return err
	}

	e.Swapchain = swapchain
	e.Renderer = renderer

	allocator := e.Allocator
	e.Deferred.Defer(func() {
		oldRenderer.Destroy(allocator)
		oldSwapchain.Destroy()
	})
	return nil
}

// CreateBuffer allocates a buffer and inserts it into the Buffers cache,
// returning a stable Handle the embedder holds instead of the *Buffer
// itself (spec §4.7 resource cache).
func (e *Engine) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlagBits, memUsage MemoryUsage) (Handle, error) {
	buf, err := CreateBuffer(e.Device, e.Allocator, size, usage, memUsage)
	if err != nil {
		return Handle{}, err
	}
	return e.Buffers.Insert(buf), nil
}

// Buffer resolves h to its live *Buffer, or ok=false if h was released or
// never valid.
func (e *Engine) Buffer(h Handle) (*Buffer, bool) { return e.Buffers.Get(h) }

// DestroyBuffer releases h from the cache and defers the underlying
// VkBuffer/VkDeviceMemory destruction until it is safe (spec §4.6): a
// no-op if h is already released.
func (e *Engine) DestroyBuffer(h Handle) {
	buf, ok := e.Buffers.Release(h)
	if !ok {
		return
	}
	allocator := e.Allocator
	e.Deferred.Defer(func() { buf.Destroy(allocator) })
}

// CreateImage allocates an image and inserts it into the Images cache.
func (e *Engine) CreateImage(info ImageCreateInfo) (Handle, error) {
	img, err := CreateImage(e.Device, e.Allocator, info)
	if err != nil {
		return Handle{}, err
	}
	return e.Images.Insert(img), nil
}

// Image resolves h to its live *Image, or ok=false if h was released or
// never valid.
func (e *Engine) Image(h Handle) (*Image, bool) { return e.Images.Get(h) }

// DestroyImage releases h from the cache and defers destruction.
func (e *Engine) DestroyImage(h Handle) {
	img, ok := e.Images.Release(h)
	if !ok {
		return
	}
	allocator := e.Allocator
	e.Deferred.Defer(func() { img.Destroy(allocator) })
}

// CreateShader compiles spirv and inserts the module into the Shaders
// cache.
func (e *Engine) CreateShader(stage ShaderStage, spirv []byte) (Handle, error) {
	mod, err := LoadShaderModule(e.Device, stage, spirv)
	if err != nil {
		return Handle{}, err
	}
	return e.Shaders.Insert(mod), nil
}

// Shader resolves h to its live *ShaderModule, or ok=false if h was
// released or never valid.
func (e *Engine) Shader(h Handle) (*ShaderModule, bool) { return e.Shaders.Get(h) }

// DestroyShader releases h from the cache and defers destruction. Shader
// modules are typically safe to destroy immediately after pipeline
// creation, but routing through the DeferredQueue keeps the contract
// uniform across every cached resource kind.
func (e *Engine) DestroyShader(h Handle) {
	mod, ok := e.Shaders.Release(h)
	if !ok {
		return
	}
	e.Deferred.Defer(func() { mod.Destroy() })
}

// CreatePipeline builds a graphics pipeline and inserts it into the Pipes
// cache.
func (e *Engine) CreatePipeline(desc PipelineDesc) (Handle, error) {
	pipe, err := CreateGraphicsPipeline(e.Device, desc)
	if err != nil {
		return Handle{}, err
	}
	return e.Pipes.Insert(pipe), nil
}

// Pipeline resolves h to its live *Pipeline, or ok=false if h was released
// or never valid.
func (e *Engine) Pipeline(h Handle) (*Pipeline, bool) { return e.Pipes.Get(h) }

// DestroyPipeline releases h from the cache and defers destruction, since
// an in-flight command buffer recorded against h may still be executing
// (spec §4.6).
func (e *Engine) DestroyPipeline(h Handle) {
	pipe, ok := e.Pipes.Release(h)
	if !ok {
		return
	}
	e.Deferred.Defer(func() { pipe.Destroy() })
}

// BeginFrame advances the deferred release queue, submits the transfer
// engine's pending batch and polls its submitted batches, the bookkeeping
// every frame must do before RenderFrame (spec §4.5/§4.6 ordering:
// deferred releases become safe exactly when the frame-sync ring cycles
// back to their slot).
func (e *Engine) BeginFrame() {
	e.Deferred.Advance()
	if err := e.Transfer.Flush(); err != nil {
		e.Device.Logger().Printf("transfer flush: %v", err)
	}
	e.Transfer.Poll()
}

// RenderFrame submits subpasses against the current swapchain image.
func (e *Engine) RenderFrame(subpasses []Subpass) (FrameStats, error) {
	return e.Renderer.RenderFrame(subpasses)
}

// Shutdown performs the teardown order spec §5 requires: wait idle, join
// the transfer worker, flush every deferred release, then destroy owned
// components outer-to-inner.
func (e *Engine) Shutdown() {
	e.Device.WaitIdle()
	e.Transfer.Destroy()
	e.Deferred.Flush()

	e.Renderer.Destroy(e.Allocator)
	e.Swapchain.Destroy()

	e.Buffers.Each(func(_ Handle, b *Buffer) { b.Destroy(e.Allocator) })
	e.Images.Each(func(_ Handle, img *Image) { img.Destroy(e.Allocator) })
	e.Shaders.Each(func(_ Handle, s *ShaderModule) { s.Destroy() })
	e.Pipes.Each(func(_ Handle, p *Pipeline) { p.Destroy() })

	e.Allocator.Destroy()
	e.Device.Destroy()
}
