package vkcore

import vk "github.com/vulkan-go/vulkan"

// Attachments describes the color/depth formats a RenderPass and its
// framebuffers are built against, passed to each Subpass.Setup call
// (spec §4.5) so a subpass can size its own pipelines without reaching
// back into the Swapchain directly.
type Attachments struct {
	ColorFormat vk.Format
	DepthFormat vk.Format
	Extent      vk.Extent2D
}

// RenderPass wraps a single VkRenderPass with one color + one depth
// attachment and a caller-supplied subpass count, generalising the
// teacher's CoreRenderPass.CreateRenderPass (renderpass.go) — which
// always builds exactly one subpass — into one renderpass shared by
// every Subpass the frame renderer drives (spec §4.5 runs N subpasses
// against one renderpass instance, not one renderpass each).
type RenderPass struct {
	device *Device
	handle vk.RenderPass
	att    Attachments
}

// CreateRenderPass builds a renderpass with subpassCount subpasses, each
// writing the same color+depth attachment pair, with an external
// dependency guarding entry and exit exactly as the teacher's
// subpass_dependencies does (renderpass.go), plus one additional
// dependency between each consecutive subpass pair so later subpasses
// observe earlier ones' writes.
func CreateRenderPass(device *Device, att Attachments, subpassCount int) (*RenderPass, error) {
	if subpassCount < 1 {
		subpassCount = 1
	}

	attachmentDescriptions := []vk.AttachmentDescription{
		{
			Format:         att.ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         att.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorRef := vk.AttachmentReference{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}

	subpasses := make([]vk.SubpassDescription, subpassCount)
	for i := range subpasses {
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    1,
			PColorAttachments:       []vk.AttachmentReference{colorRef},
			PDepthStencilAttachment: &depthRef,
		}
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:      vk.MaxUint32,
			DstSubpass:      0,
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		},
	}
	for i := 0; i < subpassCount-1; i++ {
		dependencies = append(dependencies, vk.SubpassDependency{
			SrcSubpass:      uint32(i),
			DstSubpass:      uint32(i + 1),
			SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
		})
	}
	dependencies = append(dependencies, vk.SubpassDependency{
		SrcSubpass:      uint32(subpassCount - 1),
		DstSubpass:      vk.MaxUint32,
		SrcStageMask:    vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:    vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		SrcAccessMask:   vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstAccessMask:   vk.AccessFlags(vk.AccessMemoryReadBit),
		DependencyFlags: vk.DependencyFlags(vk.DependencyByRegionBit),
	})

	var handle vk.RenderPass
	ret := vk.CreateRenderPass(device.handle, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateRenderPass", ret)
	}
	return &RenderPass{device: device, handle: handle, att: att}, nil
}

func (r *RenderPass) Handle() vk.RenderPass    { return r.handle }
func (r *RenderPass) Attachments() Attachments { return r.att }

func (r *RenderPass) Destroy() {
	if r.handle != vk.NullRenderPass {
		vk.DestroyRenderPass(r.device.handle, r.handle, nil)
		r.handle = vk.NullRenderPass
	}
}

// Framebuffer pairs one renderpass with the concrete color+depth image
// views for one swapchain image, replacing the teacher's per-image
// framebuffer loop in display.go with a standalone constructor the
// Renderer calls once per swapchain image.
type Framebuffer struct {
	device *Device
	handle vk.Framebuffer
}

func CreateFramebuffer(device *Device, pass *RenderPass, colorView, depthView vk.ImageView, extent vk.Extent2D) (*Framebuffer, error) {
	attachments := []vk.ImageView{colorView, depthView}
	var handle vk.Framebuffer
	ret := vk.CreateFramebuffer(device.handle, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.handle,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateFramebuffer", ret)
	}
	return &Framebuffer{device: device, handle: handle}, nil
}

func (f *Framebuffer) Handle() vk.Framebuffer { return f.handle }

func (f *Framebuffer) Destroy() {
	if f.handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(f.device.handle, f.handle, nil)
		f.handle = vk.NullFramebuffer
	}
}
