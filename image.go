package vkcore

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image owns a VkImage, its Allocation, and the image's current layout per
// mip level, replacing the teacher's CoreImage (image.go) — a bag of three
// parallel maps keyed by string — with one value per texture/target and a
// layoutTracker so barrier code never has to guess the previous layout
// (spec §3, "Image ... a layoutTracker recording the current
// VkImageLayout").
type Image struct {
	device *Device
	handle vk.Image
	alloc  *Allocation
	view   vk.ImageView
	format vk.Format
	extent vk.Extent3D
	mips   uint32
	layers uint32

	tracker layoutTracker
}

// layoutTracker records one VkImageLayout per mip level; vkcore images are
// single-subresource-range in practice (one layer, N mips) per spec's
// scope, so a flat slice indexed by mip is enough.
type layoutTracker struct {
	layouts []vk.ImageLayout
}

func newLayoutTracker(mips uint32, initial vk.ImageLayout) layoutTracker {
	layouts := make([]vk.ImageLayout, mips)
	for i := range layouts {
		layouts[i] = initial
	}
	return layoutTracker{layouts: layouts}
}

func (t *layoutTracker) current(mip uint32) vk.ImageLayout { return t.layouts[mip] }

func (t *layoutTracker) transition(mip uint32, to vk.ImageLayout) vk.ImageLayout {
	from := t.layouts[mip]
	t.layouts[mip] = to
	return from
}

// ImageCreateInfo gathers the parameters CreateImage needs, mirroring the
// subset of VkImageCreateInfo vkcore actually varies per call site.
type ImageCreateInfo struct {
	Format    vk.Format
	Extent    vk.Extent3D
	MipLevels uint32
	Usage     vk.ImageUsageFlagBits
	Aspect    vk.ImageAspectFlagBits
	Samples   vk.SampleCountFlagBits
}

// CreateImage creates a VkImage + backing memory + a full-range VkImageView,
// starting tracked in vk.ImageLayoutUndefined.
func CreateImage(device *Device, allocator *Allocator, info ImageCreateInfo) (*Image, error) {
	mips := info.MipLevels
	if mips == 0 {
		mips = 1
	}
	samples := info.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	var handle vk.Image
	ret := vk.CreateImage(device.handle, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        info.Format,
		Extent:        info.Extent,
		MipLevels:     mips,
		ArrayLayers:   1,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateImage", ret)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device.handle, handle, &req)
	req.Deref()

	alloc, err := allocator.allocateForImage(handle, req, MemoryUsageGPUOnly)
	if err != nil {
		vk.DestroyImage(device.handle, handle, nil)
		return nil, err
	}

	var view vk.ImageView
	ret = vk.CreateImageView(device.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   info.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(info.Aspect),
			BaseMipLevel:   0,
			LevelCount:     mips,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil, &view)
	if isError(ret) {
		allocator.Free(alloc)
		vk.DestroyImage(device.handle, handle, nil)
		return nil, resultError("CreateImageView", ret)
	}

	return &Image{
		device:  device,
		handle:  handle,
		alloc:   alloc,
		view:    view,
		format:  info.Format,
		extent:  info.Extent,
		mips:    mips,
		layers:  1,
		tracker: newLayoutTracker(mips, vk.ImageLayoutUndefined),
	}, nil
}

// Handle returns the underlying VkImage.
func (img *Image) Handle() vk.Image { return img.handle }

// View returns the VkImageView covering the full mip/array range.
func (img *Image) View() vk.ImageView { return img.view }

// Barrier records a pipeline barrier transitioning mip from its tracked
// layout to newLayout, grounded in the original engine's
// Memory::imageBarrier (original_source/libs/graphics/src/memory.cpp).
func (img *Image) Barrier(cmd vk.CommandBuffer, mip uint32, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlagBits, srcStage, dstStage vk.PipelineStageFlagBits) {
	oldLayout := img.tracker.transition(mip, newLayout)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   mip,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     img.layers,
		},
		SrcAccessMask: vk.AccessFlags(srcAccess),
		DstAccessMask: vk.AccessFlags(dstAccess),
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// Destroy frees the image view, image, and backing memory.
func (img *Image) Destroy(allocator *Allocator) {
	if img.view != vk.NullImageView {
		vk.DestroyImageView(img.device.handle, img.view, nil)
		img.view = vk.NullImageView
	}
	if img.handle != vk.NullHandle {
		vk.DestroyImage(img.device.handle, img.handle, nil)
	}
	allocator.Free(img.alloc)
}
