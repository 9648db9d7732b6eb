package vkcore

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// DescriptorBinding describes one binding in a descriptor set layout,
// generalising the teacher's hard-coded single-uniform-buffer binding in
// NewCoreUniformBuffer (buffers.go) into a caller-supplied list.
type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlagBits
}

// DescriptorSetLayout wraps a VkDescriptorSetLayout built from a list of
// DescriptorBindings.
type DescriptorSetLayout struct {
	device  *Device
	handle  vk.DescriptorSetLayout
	binding []DescriptorBinding
}

// CreateDescriptorSetLayout builds a descriptor set layout from bindings,
// grounded in the teacher's ubo_layout/ubo_create sequence in
// NewCoreUniformBuffer (buffers.go), generalized from one fixed
// UniformBuffer binding to an arbitrary binding list.
func CreateDescriptorSetLayout(device *Device, bindings []DescriptorBinding) (*DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}

	var handle vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device.handle, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}, nil, &handle)
	if isError(ret) {
		return nil, resultError("CreateDescriptorSetLayout", ret)
	}
	return &DescriptorSetLayout{device: device, handle: handle, binding: bindings}, nil
}

func (l *DescriptorSetLayout) Handle() vk.DescriptorSetLayout { return l.handle }

func (l *DescriptorSetLayout) Destroy() {
	if l.handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(l.device.handle, l.handle, nil)
		l.handle = vk.NullDescriptorSetLayout
	}
}

// descriptorPoolBlock is one padded allocation of sets backing a
// DescriptorSetLayout — FrameDescriptors grows by allocating a new block
// whenever the current one runs out, rather than ever freeing individual
// sets (spec §4.5, "monotonically-growing padded arrays").
type descriptorPoolBlock struct {
	pool  vk.DescriptorPool
	sets  []vk.DescriptorSet
	next  int
}

// FrameDescriptors provisions descriptor sets for one in-flight frame slot.
// It never frees a set mid-frame: Reset reclaims every set at once by
// resetting each pool, matching the teacher's "recreate per frame" pattern
// for per-frame resources (CoreBuffer's per-frame array in buffers.go)
// generalized from buffers to descriptor sets.
type FrameDescriptors struct {
	device    *Device
	layout    *DescriptorSetLayout
	blockSize int
	blocks    []*descriptorPoolBlock
	cur       int
}

// NewFrameDescriptors creates a provisioner that grows its pool blockSize
// sets at a time.
func NewFrameDescriptors(device *Device, layout *DescriptorSetLayout, blockSize int) *FrameDescriptors {
	if blockSize <= 0 {
		blockSize = 64
	}
	return &FrameDescriptors{device: device, layout: layout, blockSize: blockSize}
}

func (f *FrameDescriptors) growBlock() error {
	sizes := make([]vk.DescriptorPoolSize, 0, 4)
	counts := map[vk.DescriptorType]uint32{}
	for _, b := range f.layout.binding {
		counts[b.Type] += b.Count * uint32(f.blockSize)
	}
	for t, c := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: c})
	}

	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(f.device.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(f.blockSize),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if isError(ret) {
		return resultError("CreateDescriptorPool", ret)
	}

	layouts := make([]vk.DescriptorSetLayout, f.blockSize)
	for i := range layouts {
		layouts[i] = f.layout.handle
	}
	sets := make([]vk.DescriptorSet, f.blockSize)
	ret = vk.AllocateDescriptorSets(f.device.handle, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(f.blockSize),
		PSetLayouts:        layouts,
	}, &sets[0])
	if isError(ret) {
		vk.DestroyDescriptorPool(f.device.handle, pool, nil)
		return resultError("AllocateDescriptorSets", ret)
	}

	f.blocks = append(f.blocks, &descriptorPoolBlock{pool: pool, sets: sets})
	f.cur = len(f.blocks) - 1
	return nil
}

// Next returns a fresh descriptor set, moving on to the next existing block
// when the current one is exhausted and growing the pool only when every
// block is.
func (f *FrameDescriptors) Next() (vk.DescriptorSet, error) {
	for len(f.blocks) > 0 && f.blocks[f.cur].next >= len(f.blocks[f.cur].sets) && f.cur+1 < len(f.blocks) {
		f.cur++
	}
	if len(f.blocks) == 0 || f.blocks[f.cur].next >= len(f.blocks[f.cur].sets) {
		if err := f.growBlock(); err != nil {
			return vk.NullDescriptorSet, err
		}
	}
	block := f.blocks[f.cur]
	set := block.sets[block.next]
	block.next++
	return set, nil
}

// Reset reclaims every set allocated across every block without freeing
// the pools themselves, so the next frame reuses the same capacity before
// growing further.
func (f *FrameDescriptors) Reset() {
	for _, b := range f.blocks {
		vk.ResetDescriptorPool(f.device.handle, b.pool, 0)
		b.next = 0
	}
	f.cur = 0
}

// Destroy destroys every pool block.
func (f *FrameDescriptors) Destroy() {
	for _, b := range f.blocks {
		vk.DestroyDescriptorPool(f.device.handle, b.pool, nil)
	}
	f.blocks = nil
}

// BufferWrite describes one uniform/storage-buffer binding to write into a
// descriptor set (descriptor write classes (a)/(b) — per-frame view uniform,
// per-object storage arrays).
type BufferWrite struct {
	Binding uint32
	Buffer  *Buffer
	Offset  vk.DeviceSize
	Range   vk.DeviceSize
	Type    vk.DescriptorType
}

// ImageWrite describes one combined-image-sampler array binding (descriptor
// write class (c)) — Images is written as a single DescriptorCount-sized
// array starting at Binding, so callers pad it themselves (see TextureSlots)
// before the array is only ever allowed to grow, never shrink.
type ImageWrite struct {
	Binding uint32
	Images  []vk.DescriptorImageInfo
}

// WriteDescriptorSet issues one vkUpdateDescriptorSets call binding every
// buffer and image write to set, implementing the descriptor write strategy
// (per-frame uniform, per-object storage arrays, combined-image-sampler
// arrays) that FrameDescriptors.Next only allocates space for.
func WriteDescriptorSet(device *Device, set vk.DescriptorSet, buffers []BufferWrite, images []ImageWrite) {
	writes := make([]vk.WriteDescriptorSet, 0, len(buffers)+len(images))
	for _, b := range buffers {
		info := vk.DescriptorBufferInfo{Buffer: b.Buffer.Handle(), Offset: b.Offset, Range: b.Range}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      b.Binding,
			DescriptorCount: 1,
			DescriptorType:  b.Type,
			PBufferInfo:     []vk.DescriptorBufferInfo{info},
		})
	}
	for _, img := range images {
		if len(img.Images) == 0 {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      img.Binding,
			DescriptorCount: uint32(len(img.Images)),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo:      img.Images,
		})
	}
	if len(writes) == 0 {
		return
	}
	vk.UpdateDescriptorSets(device.handle, uint32(len(writes)), writes, 0, nil)
}

// TextureSlots pads a combined-image-sampler array write so its
// DescriptorCount only ever grows across the lifetime of the owning
// pipeline layout, filling newly-grown slots with a 1x1 default image
// instead of leaving them undefined — the monotonic-array rule descriptor
// write class (c) requires, since shrinking a previously-bound array would
// invalidate descriptor sets still referencing the old count.
type TextureSlots struct {
	mu      sync.Mutex
	maxSeen int
	filler  vk.DescriptorImageInfo
}

// NewTextureSlots records the default (filler) sampler/view pair used to
// pad unused slots.
func NewTextureSlots(fillerSampler vk.Sampler, fillerView vk.ImageView) *TextureSlots {
	return &TextureSlots{
		filler: vk.DescriptorImageInfo{
			Sampler:     fillerSampler,
			ImageView:   fillerView,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		},
	}
}

// Pad returns images extended (if necessary) to the largest length ever
// passed to Pad, filling new entries with the filler image, and remembers
// that length so a subsequent, shorter call still returns the wider array.
func (t *TextureSlots) Pad(images []vk.DescriptorImageInfo) []vk.DescriptorImageInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(images) > t.maxSeen {
		t.maxSeen = len(images)
	}
	out := make([]vk.DescriptorImageInfo, t.maxSeen)
	copy(out, images)
	for i := len(images); i < t.maxSeen; i++ {
		out[i] = t.filler
	}
	return out
}
