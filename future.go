package vkcore

// TransferFuture is resolved once its staged upload's command buffer has
// retired on the GPU, standing in for the original engine's
// std::shared_ptr<std::promise<void>> (original_source/src/gfx/vram.cpp,
// Batch::Entry). Wait blocks; Done is for select-style callers that also
// need to watch a context or shutdown channel.
type TransferFuture struct {
	done chan struct{}
	err  error
}

func newTransferFuture() *TransferFuture {
	return &TransferFuture{done: make(chan struct{})}
}

// Wait blocks until the upload completes, then returns its error (nil on
// success).
func (f *TransferFuture) Wait() error {
	<-f.done
	return f.err
}

// Done returns a channel closed when the upload completes, for use in a
// select alongside a context.Done() or shutdown signal.
func (f *TransferFuture) Done() <-chan struct{} { return f.done }

func (f *TransferFuture) resolve(err error) {
	f.err = err
	close(f.done)
}
