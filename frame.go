package vkcore

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// LineWidthRange passes the device's supported wide-line range into
// Subpass.Setup, since VkPhysicalDeviceLimits.lineWidthRange is the one
// pipeline-affecting limit the teacher's display/pipeline code hard-codes
// (LineWidth: 1.0 in pipeline.go) instead of querying.
type LineWidthRange struct {
	Min, Max float32
}

// Subpass is the capability a frame-renderer client implements once per
// rendering stage (opaque geometry, skybox, UI) and passes to
// Renderer.RenderFrame. Each frame RenderFrame calls Setup and then Render
// on every subpass in order, with the command buffer already inside the
// renderpass.
type Subpass interface {
	Setup(att Attachments, limits LineWidthRange) error
	Render(cmd vk.CommandBuffer) error
}

// Extent2D re-exports vk.Extent2D's shape under a vkcore-local name so
// embedders can name a size without importing vulkan-go directly.
type Extent2D = vk.Extent2D

// FrameStats reports what one RenderFrame call did, for the embedder's own
// metrics/overlay — mirrors the kind of per-frame counters the teacher's
// CoreRenderInstance.Update loop computes inline (delta time, frame index)
// but never returns to its caller.
type FrameStats struct {
	FrameIndex    uint64
	SubpassCount  int
	ImageIndex    uint32
	Result        PresentResult
}

// frameSync holds the synchronization primitives for one in-flight frame
// slot: an image-available semaphore, a render-finished semaphore, and a
// fence the CPU waits on before reusing the slot — generalising the
// teacher's single-frame CoreRenderInstance fields (instance.go) into a
// ring sized by Config.InFlightFrames (spec §4.5).
type frameSync struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
	cmd            vk.CommandBuffer
}

// Renderer drives the per-frame acquire/record/submit/present sequence
// (spec §4.5) against a ring of frameSync slots and a shared RenderPass +
// per-image Framebuffers, replacing the teacher's CoreRenderInstance.Update
// (instance.go) — which inlines this loop once, for exactly one
// hard-coded renderpass — with a reusable type driving an arbitrary list
// of Subpass implementations.
type Renderer struct {
	device     *Device
	swapchain  *Swapchain
	pass       *RenderPass
	depth      *Image
	framebufs  []*Framebuffer
	pool       vk.CommandPool
	slots      []frameSync
	cur        int
	frameIndex uint64

	lastBoundPipeline vk.Pipeline

	// viewLayout/viewDescriptors/viewScratch provision the per-frame view
	// descriptor set (spec §4.5 "Descriptor write strategy" class (a): one
	// uniform buffer holding the view block), shared by every subpass's
	// pipeline at set index 0. Per-object storage arrays and
	// combined-image-sampler arrays (classes (b)/(c)) are each subpass's own
	// concern, built from the same CreateDescriptorSetLayout/
	// FrameDescriptors/WriteDescriptorSet primitives.
	viewLayout      *DescriptorSetLayout
	viewDescriptors []*FrameDescriptors
	viewScratch     *ScratchAllocator
	pendingView     []byte
	curViewSet      vk.DescriptorSet
}

// SetViewData stages the per-frame view block (view/projection matrices,
// camera position) the embedder assembles once per frame — e.g. via
// ObjectMVP — for RenderFrame to write into the shared view descriptor set
// before any subpass runs (spec §4.5 descriptor class (a)).
func (r *Renderer) SetViewData(data []byte) {
	r.pendingView = append(r.pendingView[:0], data...)
}

// ViewLayout returns the descriptor set layout of the shared per-frame view
// uniform, binding 0, for subpasses to include as set index 0 of their own
// PipelineLayout.
func (r *Renderer) ViewLayout() *DescriptorSetLayout { return r.viewLayout }

func (r *Renderer) writeViewSet(data []byte) (vk.DescriptorSet, error) {
	set, err := r.viewDescriptors[r.cur].Next()
	if err != nil {
		return vk.NullDescriptorSet, err
	}
	buf, offset, err := r.viewScratch.Write(data)
	if err != nil {
		return vk.NullDescriptorSet, err
	}
	WriteDescriptorSet(r.device, set, []BufferWrite{{
		Binding: 0,
		Buffer:  buf,
		Offset:  offset,
		Range:   vk.DeviceSize(len(data)),
		Type:    vk.DescriptorTypeUniformBuffer,
	}}, nil)
	return set, nil
}

// NewRenderer builds the renderpass, depth target, per-image framebuffers,
// command pool, and frame-sync ring for swapchain.
func NewRenderer(device *Device, swapchain *Swapchain, allocator *Allocator, inFlight int) (*Renderer, error) {
	if inFlight < 1 {
		inFlight = 1
	}
	if inFlight > 3 {
		inFlight = 3
	}

	depthFormat := vk.FormatD32Sfloat
	att := Attachments{
		ColorFormat: swapchain.Format().Format,
		DepthFormat: depthFormat,
		Extent:      swapchain.Extent(),
	}

	pass, err := CreateRenderPass(device, att, 1)
	if err != nil {
		return nil, err
	}

	extent := swapchain.Extent()
	depth, err := CreateImage(device, allocator, ImageCreateInfo{
		Format:    depthFormat,
		Extent:    vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels: 1,
		Usage:     vk.ImageUsageDepthStencilAttachmentBit,
		Aspect:    vk.ImageAspectDepthBit,
	})
	if err != nil {
		pass.Destroy()
		return nil, err
	}

	framebufs := make([]*Framebuffer, swapchain.ImageCount())
	for i := range framebufs {
		fb, err := CreateFramebuffer(device, pass, swapchain.View(uint32(i)), depth.View(), extent)
		if err != nil {
			depth.Destroy(allocator)
			pass.Destroy()
			return nil, err
		}
		framebufs[i] = fb
	}

	_, graphicsFamily := device.GraphicsQueue()
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: graphicsFamily,
	}, nil, &pool)
	if isError(ret) {
		return nil, resultError("CreateCommandPool(renderer)", ret)
	}

	cmds := make([]vk.CommandBuffer, inFlight)
	ret = vk.AllocateCommandBuffers(device.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(inFlight),
	}, cmds)
	if isError(ret) {
		return nil, resultError("AllocateCommandBuffers(renderer)", ret)
	}

	slots := make([]frameSync, inFlight)
	for i := range slots {
		var avail, finished vk.Semaphore
		var fence vk.Fence
		vk.CreateSemaphore(device.handle, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &avail)
		vk.CreateSemaphore(device.handle, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &finished)
		vk.CreateFence(device.handle, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence)
		slots[i] = frameSync{imageAvailable: avail, renderFinished: finished, inFlight: fence, cmd: cmds[i]}
	}

	viewLayout, err := CreateDescriptorSetLayout(device, []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: vk.ShaderStageFlagBits(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)},
	})
	if err != nil {
		return nil, err
	}

	viewDescriptors := make([]*FrameDescriptors, inFlight)
	for i := range viewDescriptors {
		viewDescriptors[i] = NewFrameDescriptors(device, viewLayout, 4)
	}

	const viewSlotSize = 256 // view/projection matrices + camera position, padded
	viewScratch, err := NewScratchAllocator(device, allocator, inFlight, viewSlotSize)
	if err != nil {
		viewLayout.Destroy()
		return nil, err
	}

	return &Renderer{
		device: device, swapchain: swapchain, pass: pass, depth: depth,
		framebufs: framebufs, pool: pool, slots: slots,
		viewLayout: viewLayout, viewDescriptors: viewDescriptors, viewScratch: viewScratch,
	}, nil
}

func (r *Renderer) RenderPass() *RenderPass { return r.pass }

// RenderFrame implements the acquire/record/submit/present sequence
// (spec §4.5, steps 1-13):
//  1. wait on the current slot's in-flight fence
//  2. acquire the next swapchain image
//  3. reset and begin the slot's command buffer, resetting the
//     pipeline-binding cache
//  4. begin the renderpass against that image's framebuffer
//  5-11. run each subpass's Setup and then its Render, in order
//  12. end the renderpass and command buffer, submit signalling
//     renderFinished, guarded by the slot's fence
//  13. present, advance to the next slot
func (r *Renderer) RenderFrame(subpasses []Subpass) (FrameStats, error) {
	stats := FrameStats{FrameIndex: r.frameIndex, SubpassCount: len(subpasses)}

	if r.swapchain.Paused() {
		stats.Result = PresentPaused
		return stats, nil
	}

	slot := &r.slots[r.cur]
	if err := r.device.WaitForFences([]vk.Fence{slot.inFlight}, true, vk.MaxUint64); err != nil {
		return stats, err
	}

	imageIndex, acquireResult := r.swapchain.AcquireNext(slot.imageAvailable)
	stats.ImageIndex = imageIndex
	if acquireResult == PresentOutOfDate {
		stats.Result = acquireResult
		return stats, nil
	}

	// The slot's fence just signalled, so every descriptor set and scratch
	// write this slot handed out last time it was used is now safe to reuse.
	r.viewDescriptors[r.cur].Reset()
	r.viewScratch.NextFrame()

	if err := r.device.ResetFences([]vk.Fence{slot.inFlight}); err != nil {
		return stats, err
	}
	vk.ResetCommandBuffer(slot.cmd, 0)
	r.lastBoundPipeline = vk.NullPipeline
	r.curViewSet = vk.NullDescriptorSet

	if len(r.pendingView) > 0 {
		set, err := r.writeViewSet(r.pendingView)
		if err != nil {
			return stats, errors.Wrap(err, "write view descriptor set")
		}
		r.curViewSet = set
	}

	if ret := vk.BeginCommandBuffer(slot.cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}); isError(ret) {
		return stats, resultError("BeginCommandBuffer", ret)
	}

	extent := r.swapchain.Extent()
	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0, 0, 0, 1}),
		vk.NewClearDepthStencil(1, 0),
	}
	vk.CmdBeginRenderPass(slot.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.pass.Handle(),
		Framebuffer: r.framebufs[imageIndex].Handle(),
		RenderArea:  vk.Rect2D{Extent: extent},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	vk.CmdSetViewport(slot.cmd, 0, 1, []vk.Viewport{{
		Width: float32(extent.Width), Height: float32(extent.Height), MinDepth: 0, MaxDepth: 1,
	}})
	vk.CmdSetScissor(slot.cmd, 0, 1, []vk.Rect2D{{Extent: extent}})

	limits := r.device.physical.Properties.Limits.LineWidthRange
	lineWidths := LineWidthRange{Min: limits[0], Max: limits[1]}
	for _, sp := range subpasses {
		if err := sp.Setup(r.pass.Attachments(), lineWidths); err != nil {
			vk.CmdEndRenderPass(slot.cmd)
			vk.EndCommandBuffer(slot.cmd)
			return stats, errors.Wrap(err, "subpass setup")
		}
		if err := sp.Render(slot.cmd); err != nil {
			vk.CmdEndRenderPass(slot.cmd)
			vk.EndCommandBuffer(slot.cmd)
			return stats, errors.Wrap(err, "subpass render")
		}
	}

	vk.CmdEndRenderPass(slot.cmd)
	if ret := vk.EndCommandBuffer(slot.cmd); isError(ret) {
		return stats, resultError("EndCommandBuffer", ret)
	}

	graphicsQ, _ := r.device.GraphicsQueue()
	waitStages := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	if err := r.device.Submit(graphicsQ, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.imageAvailable},
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.renderFinished},
	}}, slot.inFlight); err != nil {
		return stats, err
	}

	presentQ, _ := r.device.PresentQueue()
	stats.Result = r.swapchain.Present(presentQ, slot.renderFinished, imageIndex)

	r.frameIndex++
	r.cur = (r.cur + 1) % len(r.slots)
	return stats, nil
}

// BindPipeline binds pipeline on cmd only if it differs from the pipeline
// last bound this frame (the pipeline-binding cache, spec §4.5), then binds
// the shared per-frame view descriptor set to pipeline's layout at set
// index 0 — the convention every subpass's PipelineLayout is expected to
// follow by including Renderer.ViewLayout() first. Subpass.Render
// implementations call this instead of issuing vkCmdBindPipeline/
// vkCmdBindDescriptorSets for the view set themselves.
func (r *Renderer) BindPipeline(cmd vk.CommandBuffer, pipeline *Pipeline) {
	if r.lastBoundPipeline != pipeline.Handle() {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline.Handle())
		r.lastBoundPipeline = pipeline.Handle()
	}
	if r.curViewSet != vk.NullDescriptorSet {
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, pipeline.Layout().Handle(),
			0, 1, []vk.DescriptorSet{r.curViewSet}, 0, nil)
	}
}

// Destroy destroys every owned Vulkan object: frame-sync primitives,
// command pool, framebuffers, depth target, the renderpass, and the view
// descriptor machinery. Callers must ensure no in-flight frame still
// references this Renderer before calling Destroy — either by waiting for
// the device to go idle (shutdown) or by routing the call through the
// DeferredQueue (swapchain recreation, see Engine.Resize).
func (r *Renderer) Destroy(allocator *Allocator) {
	r.viewScratch.Destroy()
	for _, fd := range r.viewDescriptors {
		fd.Destroy()
	}
	r.viewLayout.Destroy()
	for _, s := range r.slots {
		vk.DestroySemaphore(r.device.handle, s.imageAvailable, nil)
		vk.DestroySemaphore(r.device.handle, s.renderFinished, nil)
		vk.DestroyFence(r.device.handle, s.inFlight, nil)
	}
	if r.pool != vk.NullCommandPool {
		vk.DestroyCommandPool(r.device.handle, r.pool, nil)
	}
	for _, fb := range r.framebufs {
		fb.Destroy()
	}
	r.depth.Destroy(allocator)
	r.pass.Destroy()
}

// BatchKind distinguishes the documented draw-submission conventions
// (spec §4.5) without introducing separate types per use: skybox and UI
// batches are Batch values with Kind set accordingly, not distinct Go
// types (keeps the embedder contract minimal per Non-goals — no scene
// API is owned by vkcore).
type BatchKind int

const (
	BatchOpaque BatchKind = iota
	BatchSkybox
	BatchUI
)

// ObjectData is the per-draw uniform payload a Drawable's scratch-buffer
// slot is written from, generalising the teacher's NewCoreUniformBuffer's
// fixed model-matrix-only payload (buffers.go) into an opaque byte blob
// the embedder defines the layout of.
type ObjectData struct {
	Data []byte
}

// Drawable is one draw call's worth of state: a pipeline, the vertex/index
// buffers, draw counts, and the per-object data written into a
// ScratchAllocator slot before the draw is recorded.
type Drawable struct {
	Pipeline    *Pipeline
	VertexBuf   *Buffer
	IndexBuf    *Buffer
	IndexCount  uint32
	VertexCount uint32
	Instances   uint32
	Object      ObjectData
}

// Batch groups Drawables sharing a BatchKind, the unit a Subpass.Render
// implementation consumes (spec §4.5 draw submission contract).
type Batch struct {
	Kind      BatchKind
	Drawables []Drawable
}

// ScratchAllocator is a per-frame ring of host-visible buffers that hands
// out monotonically-advancing write regions, reset at the start of each
// frame — generalising the teacher's single named uniform buffer
// (NewCoreUniformBuffer, buffers.go) from one fixed binding into an
// arbitrary number of per-draw allocations per frame.
type ScratchAllocator struct {
	device    *Device
	allocator *Allocator
	slotSize  vk.DeviceSize
	rings     []*Buffer
	cur       int
	cursor    vk.DeviceSize
}

// NewScratchAllocator creates a ring of `frames` host-visible buffers of
// slotSize bytes each.
func NewScratchAllocator(device *Device, allocator *Allocator, frames int, slotSize vk.DeviceSize) (*ScratchAllocator, error) {
	rings := make([]*Buffer, frames)
	for i := range rings {
		buf, err := CreateBuffer(device, allocator, slotSize, vk.BufferUsageFlagBits(vk.BufferUsageUniformBufferBit), MemoryUsageCPUToGPU)
		if err != nil {
			return nil, err
		}
		rings[i] = buf
	}
	return &ScratchAllocator{device: device, allocator: allocator, slotSize: slotSize, rings: rings}, nil
}

// NextFrame resets the write cursor to the start of the next ring slot.
func (s *ScratchAllocator) NextFrame() {
	s.cur = (s.cur + 1) % len(s.rings)
	s.cursor = 0
}

// Write copies data into the current ring slot at the current cursor,
// advances the cursor, and returns the buffer and offset written to. It
// returns an error, and writes nothing, if data would overrun the slot.
func (s *ScratchAllocator) Write(data []byte) (*Buffer, vk.DeviceSize, error) {
	buf := s.rings[s.cur]
	if s.cursor+vk.DeviceSize(len(data)) > s.slotSize {
		return nil, 0, errors.New("vkcore: scratch allocator slot exhausted for this frame")
	}
	offset := s.cursor
	if err := buf.writeAt(offset, data); err != nil {
		return nil, 0, err
	}
	s.cursor += vk.DeviceSize(len(data))
	return buf, offset, nil
}

// Destroy destroys every ring buffer.
func (s *ScratchAllocator) Destroy() {
	for _, b := range s.rings {
		b.Destroy(s.allocator)
	}
}
