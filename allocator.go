package vkcore

import (
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// MemoryUsage mirrors VMA's usage enum from the original engine's
// Memory/VmaAllocator wrapper (original_source/libs/graphics/src/memory.cpp)
// so call sites read the same way, even though vkcore's Allocator talks to
// vkAllocateMemory directly: no Go binding for the Vulkan Memory Allocator
// library appears anywhere in the example pack, so this is a from-scratch
// suballocator grounded on the teacher's own FindRequiredMemoryType(Fallback)
// (extensions.go) rather than on a missing third-party dependency.
type MemoryUsage int

const (
	MemoryUsageGPUOnly MemoryUsage = iota
	MemoryUsageCPUToGPU
	MemoryUsageGPUToCPU
	MemoryUsageCPUOnly
)

func (u MemoryUsage) hostVisible() bool { return u != MemoryUsageGPUOnly }

func (u MemoryUsage) propertyFlags() vk.MemoryPropertyFlagBits {
	switch u {
	case MemoryUsageCPUToGPU:
		return vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case MemoryUsageGPUToCPU:
		return vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
	case MemoryUsageCPUOnly:
		return vk.MemoryPropertyFlagBits(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	default:
		return vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit)
	}
}

// allocKind tags an Allocation by the resource kind it backs, so Allocator
// can keep separate running byte totals per kind (spec §4.2/§8).
type allocKind int

const (
	allocKindBuffer allocKind = iota
	allocKindImage
)

// Allocation is a single vkAllocateMemory-backed block bound to exactly one
// buffer or image. vkcore does no sub-block suballocation within a single
// VkDeviceMemory (spec §4.2 non-goal); each Allocation owns its memory 1:1.
type Allocation struct {
	memory vk.DeviceMemory
	size   vk.DeviceSize
	usage  MemoryUsage
	kind   allocKind
	mapped unsafe.Pointer
}

// Map returns a CPU-visible pointer to the allocation's full extent,
// mapping it on first use and caching the pointer. It does not check
// usage itself: the host-visibility check is made at the buffer layer,
// where a violation is a usage error (spec §7, see Buffer.Write).
func (a *Allocation) Map(device vk.Device) (unsafe.Pointer, error) {
	if a.mapped != nil {
		return a.mapped, nil
	}
	var ptr unsafe.Pointer
	ret := vk.MapMemory(device, a.memory, 0, a.size, 0, &ptr)
	if isError(ret) {
		return nil, resultError("MapMemory", ret)
	}
	a.mapped = ptr
	return ptr, nil
}

// Unmap releases the CPU mapping, if any.
func (a *Allocation) Unmap(device vk.Device) {
	if a.mapped == nil {
		return
	}
	vk.UnmapMemory(device, a.memory)
	a.mapped = nil
}

// Allocator binds device memory to buffers and images, tracking a running
// total of bytes allocated per kind (spec §4.2/§8) for leak diagnostics —
// grounded in the teacher's FindRequiredMemoryType/Fallback pair
// (extensions.go), now unified as findMemoryTypeIndex.
type Allocator struct {
	device *Device

	bufferBytes atomic.Int64
	imageBytes  atomic.Int64
}

func NewAllocator(device *Device) *Allocator {
	return &Allocator{device: device}
}

// allocateForBuffer allocates and binds memory satisfying req and usage to
// buf, returning the Allocation. Host-visible usages are left unmapped;
// callers map on demand via (*Allocation).Map.
func (a *Allocator) allocateForBuffer(buf vk.Buffer, req vk.MemoryRequirements, usage MemoryUsage) (*Allocation, error) {
	typeIdx, err := findMemoryTypeIndex(a.device.physical.Memory, req.MemoryTypeBits, usage.propertyFlags(), usage.hostVisible())
	if err != nil {
		return nil, errors.Wrap(err, "allocateForBuffer")
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(a.device.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if isError(ret) {
		return nil, resultError("AllocateMemory", ret)
	}
	if ret := vk.BindBufferMemory(a.device.handle, buf, mem, 0); isError(ret) {
		vk.FreeMemory(a.device.handle, mem, nil)
		return nil, resultError("BindBufferMemory", ret)
	}
	a.bufferBytes.Add(int64(req.Size))
	return &Allocation{memory: mem, size: req.Size, usage: usage, kind: allocKindBuffer}, nil
}

// allocateForImage mirrors allocateForBuffer for a VkImage.
func (a *Allocator) allocateForImage(img vk.Image, req vk.MemoryRequirements, usage MemoryUsage) (*Allocation, error) {
	typeIdx, err := findMemoryTypeIndex(a.device.physical.Memory, req.MemoryTypeBits, usage.propertyFlags(), usage.hostVisible())
	if err != nil {
		return nil, errors.Wrap(err, "allocateForImage")
	}
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(a.device.handle, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}, nil, &mem)
	if isError(ret) {
		return nil, resultError("AllocateMemory", ret)
	}
	if ret := vk.BindImageMemory(a.device.handle, img, mem, 0); isError(ret) {
		vk.FreeMemory(a.device.handle, mem, nil)
		return nil, resultError("BindImageMemory", ret)
	}
	a.imageBytes.Add(int64(req.Size))
	return &Allocation{memory: mem, size: req.Size, usage: usage, kind: allocKindImage}, nil
}

// Free releases the underlying VkDeviceMemory. Callers must ensure no GPU
// work referencing the bound resource is still in flight (spec §4.6
// exists precisely to make that true before Free is called).
func (a *Allocator) Free(alloc *Allocation) {
	if alloc == nil || alloc.memory == vk.NullHandle {
		return
	}
	switch alloc.kind {
	case allocKindBuffer:
		a.bufferBytes.Add(-int64(alloc.size))
	case allocKindImage:
		a.imageBytes.Add(-int64(alloc.size))
	}
	vk.FreeMemory(a.device.handle, alloc.memory, nil)
	alloc.memory = vk.NullHandle
}

// Destroy reports the allocator's final byte counters, warning if either is
// nonzero (spec §8: a nonzero count at teardown means some Buffer or Image
// was never freed before its owning Allocator went away).
func (a *Allocator) Destroy() {
	bufBytes := a.bufferBytes.Load()
	imgBytes := a.imageBytes.Load()
	if bufBytes != 0 || imgBytes != 0 {
		a.device.Logger().Printf("allocator destroyed with live allocations: %d buffer bytes, %d image bytes", bufBytes, imgBytes)
	}
}
