package vkcore

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// advancePointer returns ptr offset by n bytes, for writing into a mapped
// buffer at a non-zero offset.
func advancePointer(ptr unsafe.Pointer, n vk.DeviceSize) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ptr) + uintptr(n))
}

// Buffer owns a VkBuffer and the Allocation backing it, replacing the
// teacher's CoreBuffer (buffers.go) — which hard-coded a uniform-buffer
// descriptor layout into the buffer type itself — with a plain resource
// any subsystem (vertex data, staging, uniforms) can use, grounded in
// asche's CreateBuffer helper (extensions.go) for the create+bind sequence.
type Buffer struct {
	device *Device
	handle vk.Buffer
	alloc  *Allocation
	size   vk.DeviceSize
	usage  MemoryUsage
}

// Handle returns the underlying VkBuffer.
func (b *Buffer) Handle() vk.Buffer { return b.handle }

// Size returns the buffer's byte size.
func (b *Buffer) Size() vk.DeviceSize { return b.size }

// CreateBuffer creates a VkBuffer of size bytes with usage flags bufUsage,
// allocating and binding memory suited to memUsage.
func CreateBuffer(device *Device, allocator *Allocator, size vk.DeviceSize, bufUsage vk.BufferUsageFlagBits, memUsage MemoryUsage) (*Buffer, error) {
	var handle vk.Buffer
	ret := vk.CreateBuffer(device.handle, &vk.BufferCreateInfo{
		SType: vk.StructureTypeBufferCreateInfo,
		Usage: vk.BufferUsageFlags(bufUsage),
		Size:  size,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateBuffer", ret)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.handle, handle, &req)
	req.Deref()

	alloc, err := allocator.allocateForBuffer(handle, req, memUsage)
	if err != nil {
		vk.DestroyBuffer(device.handle, handle, nil)
		return nil, err
	}

	return &Buffer{device: device, handle: handle, alloc: alloc, size: size, usage: memUsage}, nil
}

// Write copies data into the buffer's backing memory via a persistent or
// one-shot map. It is only valid for host-visible buffers; anything else
// is a usage error (spec §7) since the caller should have routed the
// upload through the Transfer engine's staging path instead.
func (b *Buffer) Write(data []byte) error {
	if !b.usage.hostVisible() {
		return newUsageError("Write: buffer is not host-visible, route through the transfer engine")
	}
	if vk.DeviceSize(len(data)) > b.size {
		return newUsageError("Write: %d bytes exceeds buffer size %d", len(data), b.size)
	}
	ptr, err := b.alloc.Map(b.device.handle)
	if err != nil {
		return err
	}
	n := vk.Memcopy(ptr, data)
	if n != len(data) {
		return newUsageError("Write: short copy, wrote %d of %d bytes", n, len(data))
	}
	return nil
}

// writeAt copies data into the buffer's backing memory starting at offset,
// used by ScratchAllocator to pack several writes into one ring slot
// without remapping memory per write.
func (b *Buffer) writeAt(offset vk.DeviceSize, data []byte) error {
	if !b.usage.hostVisible() {
		return newUsageError("writeAt: buffer is not host-visible")
	}
	if offset+vk.DeviceSize(len(data)) > b.size {
		return newUsageError("writeAt: %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	ptr, err := b.alloc.Map(b.device.handle)
	if err != nil {
		return err
	}
	dst := advancePointer(ptr, offset)
	n := vk.Memcopy(dst, data)
	if n != len(data) {
		return newUsageError("writeAt: short copy, wrote %d of %d bytes", n, len(data))
	}
	return nil
}

// Destroy frees the buffer and its backing memory. Callers must only call
// this once the deferred release queue has confirmed no in-flight frame
// still references it (spec §4.6).
func (b *Buffer) Destroy(allocator *Allocator) {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device.handle, b.handle, nil)
		b.handle = vk.NullBuffer
	}
	allocator.Free(b.alloc)
}
