package vkcore

import (
	"container/list"
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	vk "github.com/vulkan-go/vulkan"
)

// stagingReservation pre-warms the staging buffer free list, mirroring the
// original engine's g_stagingReserve table (original_source/src/gfx/vram.cpp):
// a handful of (size, count) entries chosen so the first wave of uploads
// in a frame never has to grow the pool on the hot path.
var defaultStagingReserve = []StagingReservation{
	{Size: 256 << 20, Count: 1},
	{Size: 64 << 20, Count: 2},
	{Size: 8 << 20, Count: 4},
}

// stagingBuffer is a free-list entry: a host-visible Buffer sized to the
// next power of two above some past request, reused by later requests
// whose size fits.
type stagingBuffer struct {
	buf  *Buffer
	size vk.DeviceSize
}

// stage is one queued upload: the staging buffer holding its payload, the
// command buffer recording the copy, and the future its caller is waiting
// on — the Go shape of the original's Batch::Entry.
type stage struct {
	staging *stagingBuffer
	command vk.CommandBuffer
	future  *TransferFuture
}

// stagingBatch groups every stage submitted together behind one fence,
// matching the original's Batch: one VkSubmitInfo covering N command
// buffers, one fence signalling when all of them have retired.
type stagingBatch struct {
	entries  []stage
	fence    vk.Fence
	framePad int
}

// TransferEngine batches small CPU->GPU uploads behind a worker goroutine,
// so callers never block on vkQueueSubmit/fence waits directly. Grounded
// end-to-end in original_source/src/gfx/vram.cpp's tfr:: namespace: free
// lists for buffers/commands/fences (g_resources), an active batch that
// accumulates stages and a submitted list polled for completion
// (g_batches), and a dedicated worker thread (here: an errgroup-managed
// goroutine) draining a work queue.
type TransferEngine struct {
	device    *Device
	allocator *Allocator
	pool      vk.CommandPool

	mu       sync.Mutex
	buffers  []*stagingBuffer
	commands []vk.CommandBuffer
	fences   []vk.Fence

	active    stagingBatch
	submitted *list.List // of stagingBatch

	jobs chan func()
	grp  *errgroup.Group
	stop context.CancelFunc
}

// NewTransferEngine creates the engine's transfer command pool and starts
// its worker goroutine. reserve pre-warms the staging free list; pass nil
// to use defaultStagingReserve.
func NewTransferEngine(device *Device, allocator *Allocator, reserve []StagingReservation) (*TransferEngine, error) {
	if reserve == nil {
		reserve = defaultStagingReserve
	}
	_, transferFamily := device.TransferQueue()

	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: transferFamily,
	}, nil, &pool)
	if isError(ret) {
		return nil, resultError("CreateCommandPool(transfer)", ret)
	}

	e := &TransferEngine{
		device:    device,
		allocator: allocator,
		pool:      pool,
		submitted: list.New(),
		jobs:      make(chan func(), 64),
	}

	for _, r := range reserve {
		for i := 0; i < r.Count; i++ {
			sb, err := e.createStagingBuffer(r.Size)
			if err != nil {
				e.Destroy()
				return nil, err
			}
			e.buffers = append(e.buffers, sb)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	grp, gctx := errgroup.WithContext(ctx)
	e.grp = grp
	grp.Go(func() error {
		return e.run(gctx)
	})

	return e, nil
}

func (e *TransferEngine) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Run whatever is already queued so no caller is left waiting.
			for {
				select {
				case job := <-e.jobs:
					job()
				default:
					return nil
				}
			}
		case job := <-e.jobs:
			job()
		}
	}
}

func (e *TransferEngine) createStagingBuffer(size vk.DeviceSize) (*stagingBuffer, error) {
	rounded := vk.DeviceSize(ceilPow2(uint64(size)))
	buf, err := CreateBuffer(e.device, e.allocator, rounded,
		vk.BufferUsageFlagBits(vk.BufferUsageTransferSrcBit), MemoryUsageCPUOnly)
	if err != nil {
		return nil, errors.Wrap(err, "createStagingBuffer")
	}
	return &stagingBuffer{buf: buf, size: rounded}, nil
}

// nextBuffer pops a staging buffer whose size covers size, or allocates a
// new one (original's tfr::nextBuffer).
func (e *TransferEngine) nextBuffer(size vk.DeviceSize) (*stagingBuffer, error) {
	e.mu.Lock()
	for i, sb := range e.buffers {
		if sb.size >= size {
			e.buffers = append(e.buffers[:i], e.buffers[i+1:]...)
			e.mu.Unlock()
			return sb, nil
		}
	}
	e.mu.Unlock()
	return e.createStagingBuffer(size)
}

// nextCommand pops a recycled command buffer or allocates one (original's
// tfr::nextCommand).
func (e *TransferEngine) nextCommand() (vk.CommandBuffer, error) {
	e.mu.Lock()
	if n := len(e.commands); n > 0 {
		cmd := e.commands[n-1]
		e.commands = e.commands[:n-1]
		e.mu.Unlock()
		return cmd, nil
	}
	e.mu.Unlock()

	bufs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(e.device.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        e.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if isError(ret) {
		return nil, resultError("AllocateCommandBuffers(transfer)", ret)
	}
	return bufs[0], nil
}

// nextFence pops a recycled (already-reset) fence or creates one unsignalled
// (original's tfr::nextFence).
func (e *TransferEngine) nextFence() (vk.Fence, error) {
	e.mu.Lock()
	if n := len(e.fences); n > 0 {
		f := e.fences[n-1]
		e.fences = e.fences[:n-1]
		e.mu.Unlock()
		return f, nil
	}
	e.mu.Unlock()

	var f vk.Fence
	ret := vk.CreateFence(e.device.handle, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}, nil, &f)
	if isError(ret) {
		return vk.NullFence, resultError("CreateFence(transfer)", ret)
	}
	return f, nil
}

// scavenge returns a retired stage's buffer and command for reuse, and its
// batch's fence once every stage sharing it has been scavenged (original's
// tfr::g_resources.scavenge).
func (e *TransferEngine) scavenge(batch *stagingBatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range batch.entries {
		e.buffers = append(e.buffers, s.staging)
		e.commands = append(e.commands, s.command)
	}
	vk.ResetFences(e.device.handle, 1, []vk.Fence{batch.fence})
	e.fences = append(e.fences, batch.fence)
}

// Upload stages a copy of data into dst's staging-backed region and queues
// it for submission on the transfer engine's worker. The returned future
// resolves once the copy has retired on the GPU; dst must not be read
// until then.
func (e *TransferEngine) Upload(data []byte, dst *Buffer, dstOffset vk.DeviceSize) (*TransferFuture, error) {
	future := newTransferFuture()
	errc := make(chan error, 1)

	e.jobs <- func() {
		errc <- e.stageBufferCopy(data, dst, dstOffset, future)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return future, nil
}

func (e *TransferEngine) stageBufferCopy(data []byte, dst *Buffer, dstOffset vk.DeviceSize, future *TransferFuture) error {
	size := vk.DeviceSize(len(data))
	sb, err := e.nextBuffer(size)
	if err != nil {
		return err
	}
	if err := sb.buf.Write(data); err != nil {
		return err
	}
	cmd, err := e.nextCommand()
	if err != nil {
		return err
	}

	vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	vk.CmdCopyBuffer(cmd, sb.buf.handle, dst.handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: dstOffset,
		Size:      size,
	}})
	vk.EndCommandBuffer(cmd)

	e.mu.Lock()
	e.active.entries = append(e.active.entries, stage{staging: sb, command: cmd, future: future})
	e.mu.Unlock()
	return nil
}

// Flush submits the accumulated active batch, if any, as one VkSubmitInfo
// on the transfer queue (original's tfr::update's submission half).
func (e *TransferEngine) Flush() error {
	e.mu.Lock()
	if len(e.active.entries) == 0 {
		e.mu.Unlock()
		return nil
	}
	batch := e.active
	e.active = stagingBatch{}
	e.mu.Unlock()

	fence, err := e.nextFence()
	if err != nil {
		return err
	}
	batch.fence = fence

	commands := make([]vk.CommandBuffer, len(batch.entries))
	for i, s := range batch.entries {
		commands[i] = s.command
	}

	transferQ, _ := e.device.TransferQueue()
	if err := e.device.Submit(transferQ, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(commands)),
		PCommandBuffers:    commands,
	}}, fence); err != nil {
		return err
	}

	e.mu.Lock()
	e.submitted.PushBack(&batch)
	e.mu.Unlock()
	return nil
}

// Poll checks every submitted batch's fence and resolves the futures of
// any batch whose fence has signalled, after framePad more Poll calls have
// passed — giving the frame-sync-slot ring time to finish reading the
// staging buffer on another queue before it is recycled. Call once per
// frame (original's tfr::update's removeDone half).
func (e *TransferEngine) Poll() {
	e.mu.Lock()
	var done []*stagingBatch
	for el := e.submitted.Front(); el != nil; {
		next := el.Next()
		batch := el.Value.(*stagingBatch)
		ret := vk.GetFenceStatus(e.device.handle, batch.fence)
		if ret == vk.Success {
			if batch.framePad == 0 {
				done = append(done, batch)
				e.submitted.Remove(el)
			} else {
				batch.framePad--
			}
		}
		el = next
	}
	e.mu.Unlock()

	for _, batch := range done {
		for _, s := range batch.entries {
			s.future.resolve(nil)
		}
		e.scavenge(batch)
	}
}

// Destroy stops the worker, waits for outstanding work to drain, and frees
// every pooled buffer/command/fence plus the transfer command pool.
func (e *TransferEngine) Destroy() {
	if e.stop != nil {
		e.stop()
		e.grp.Wait()
	}
	e.Flush()
	e.device.WaitIdle()
	e.Poll()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sb := range e.buffers {
		sb.buf.Destroy(e.allocator)
	}
	for _, f := range e.fences {
		vk.DestroyFence(e.device.handle, f, nil)
	}
	if e.pool != vk.NullCommandPool {
		vk.DestroyCommandPool(e.device.handle, e.pool, nil)
	}
}
