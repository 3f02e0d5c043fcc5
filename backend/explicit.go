package backend

import (
	"github.com/Unity-Technologies/ClusterDisplay/internal/hostevent"
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

func init() {
	Register(native.RendererExplicit, func(cfg Config) (GraphicsDevice, error) {
		return NewExplicitDevice(cfg)
	})
}

// Debug names attached to the repeat objects.
const (
	repeatAllocatorName = "FrameLockRepeatAllocator"
	repeatListName      = "FrameLockRepeatList"
)

// barrierDesc is a transition barrier prepared for recording.
type barrierDesc struct {
	resource native.Resource
	before   native.State
	after    native.State
}

// ExplicitDevice adapts a stateful graphics API with explicit command
// recording. Every submission is fenced: the fence value is incremented
// before Signal, and the allocator and list are only reused after the GPU
// has caught up.
//
// Construction upgrades the supplied swap chain to the generation exposing
// the current back-buffer index. When the upgrade fails the adapter runs
// degraded: all warm-up operations early-out and the host keeps presenting
// unsynchronized.
type ExplicitDevice struct {
	device       native.Device
	swapChain    native.SwapChain
	flip         native.FlipSwapChain
	queue        native.CommandQueue
	syncInterval uint32
	presentFlags uint32

	factory native.ResourceFactory

	alloc       native.CommandAllocator
	list        native.CommandList
	backBuffers []native.Resource
	savedFrame  native.Resource
	fence       native.Fence
	event       hostevent.Event

	// fenceNext is the next value the GPU will signal. Incremented
	// before Signal.
	fenceNext uint64

	// firstRepeatIndex captures the back-buffer index at the start of
	// the repeat sequence; -1 while no sequence is active.
	firstRepeatIndex int

	// presentBarrier is initialized alongside the recorded transitions
	// but never submitted.
	presentBarrier barrierDesc
}

// NewExplicitDevice creates the adapter over the host's borrowed handles.
// The command queue is required.
func NewExplicitDevice(cfg Config) (*ExplicitDevice, error) {
	if cfg.CommandQueue == nil {
		return nil, ErrMissingCommandQueue
	}
	d := &ExplicitDevice{
		device:           cfg.Device,
		swapChain:        cfg.SwapChain,
		queue:            cfg.CommandQueue,
		syncInterval:     cfg.SyncInterval,
		presentFlags:     cfg.PresentFlags,
		firstRepeatIndex: -1,
	}
	if flip, ok := cfg.SwapChain.(native.FlipSwapChain); ok {
		d.flip = flip
	} else {
		slogger().Error("explicit adapter: swap chain has no current-index query, running degraded")
	}
	if f, ok := cfg.Device.(native.ResourceFactory); ok {
		d.factory = f
	} else {
		slogger().Error("explicit adapter: device cannot create repeat resources, running degraded")
	}
	return d, nil
}

// Device returns the borrowed device handle.
func (d *ExplicitDevice) Device() native.Device { return d.device }

// SwapChain returns the borrowed swap chain.
func (d *ExplicitDevice) SwapChain() native.SwapChain { return d.swapChain }

// SyncInterval returns the host's present sync interval.
func (d *ExplicitDevice) SyncInterval() uint32 { return d.syncInterval }

// PresentFlags returns the host's present flags.
func (d *ExplicitDevice) PresentFlags() uint32 { return d.presentFlags }

// degraded reports whether the adapter lacks the handles a repeat sequence
// needs.
func (d *ExplicitDevice) degraded() bool {
	return d.flip == nil || d.factory == nil
}

// InitiateRepeats allocates the repeat objects, caches the back buffers and
// captures the current one into a freshly allocated saved frame. The copy
// is submitted and fenced before returning so the saved frame is complete
// when the first repeated present goes out.
func (d *ExplicitDevice) InitiateRepeats() {
	if d.degraded() {
		return
	}
	if d.savedFrame != nil {
		// Warm-up can span several presents; the sequence stays live.
		slogger().Debug("explicit adapter: repeat sequence already active")
		return
	}

	alloc, err := d.factory.CreateCommandAllocator(repeatAllocatorName)
	if err != nil {
		slogger().Error("explicit adapter: command allocator creation failed", "err", err)
		return
	}
	list, err := d.factory.CreateCommandList(repeatListName, alloc)
	if err != nil {
		slogger().Error("explicit adapter: command list creation failed", "err", err)
		alloc.Release()
		return
	}

	count := d.swapChain.BufferCount()
	buffers := make([]native.Resource, 0, count)
	for i := 0; i < count; i++ {
		bb, err := d.swapChain.Buffer(i)
		if err != nil {
			slogger().Error("explicit adapter: back buffer unavailable", "index", i, "err", err)
			releaseAll(buffers)
			list.Release()
			alloc.Release()
			return
		}
		buffers = append(buffers, bb)
	}

	if !d.ensureFenceCreated() {
		releaseAll(buffers)
		list.Release()
		alloc.Release()
		return
	}

	idx := d.flip.CurrentBackBufferIndex()
	desc := buffers[idx].Desc()
	desc.Usage = 0
	saved, err := d.factory.CreateCommittedResource(desc)
	if err != nil {
		slogger().Error("explicit adapter: saved frame allocation failed", "err", err)
		releaseAll(buffers)
		list.Release()
		alloc.Release()
		return
	}

	d.alloc = alloc
	d.list = list
	d.backBuffers = buffers
	d.savedFrame = saved

	d.list.Copy(d.savedFrame, d.backBuffers[idx])
	d.list.Transition(d.savedFrame, native.StateCopyDest, native.StateCopySource)
	if err := d.list.Close(); err != nil {
		slogger().Error("explicit adapter: command list close failed", "err", err)
		return
	}
	d.queue.Execute(d.list)
	d.queueUpdateFence()
	d.waitForFence()
}

// PrepareSingleRepeat records and submits the copy that restores the saved
// frame into the current back buffer. The first call of a sequence latches
// the back-buffer index the sequence must terminate at.
func (d *ExplicitDevice) PrepareSingleRepeat() {
	if d.degraded() || d.savedFrame == nil {
		return
	}

	idx := d.flip.CurrentBackBufferIndex()
	if d.firstRepeatIndex == -1 {
		d.firstRepeatIndex = idx
	}

	d.waitForFence()

	if err := d.alloc.Reset(); err != nil {
		slogger().Error("explicit adapter: allocator reset failed", "err", err)
		return
	}
	if err := d.list.Reset(d.alloc); err != nil {
		slogger().Error("explicit adapter: command list reset failed", "err", err)
		return
	}

	bb := d.backBuffers[idx]
	// Initialized but never submitted.
	d.presentBarrier = barrierDesc{resource: bb, before: native.StateCopyDest, after: native.StatePresent}

	d.list.Transition(bb, native.StatePresent, native.StateCopyDest)
	d.list.Copy(bb, d.savedFrame)
	d.list.Transition(bb, native.StateCopyDest, native.StatePresent)
	if err := d.list.Close(); err != nil {
		slogger().Error("explicit adapter: command list close failed", "err", err)
		return
	}
	d.queue.Execute(d.list)
	d.queueUpdateFence()
}

// ConcludeRepeats drains outstanding work, walks the swap chain back to the
// index the repeat sequence started at, and releases the repeat resources
// in reverse acquisition order. The host assumes a specific current index
// after the sequence ends, so the re-alignment presents go through the
// native path.
func (d *ExplicitDevice) ConcludeRepeats() {
	if d.savedFrame == nil {
		return
	}

	d.waitForFence()

	if d.flip != nil && d.firstRepeatIndex >= 0 {
		for d.flip.CurrentBackBufferIndex() != d.firstRepeatIndex {
			d.PrepareSingleRepeat()
			if err := d.swapChain.Present(d.syncInterval, d.presentFlags); err != nil {
				slogger().Error("explicit adapter: re-alignment present failed", "err", err)
				break
			}
			d.waitForFence()
		}
	}

	d.savedFrame.Release()
	d.savedFrame = nil
	releaseAll(d.backBuffers)
	d.backBuffers = nil
	if d.list != nil {
		d.list.Release()
		d.list = nil
	}
	if d.alloc != nil {
		d.alloc.Release()
		d.alloc = nil
	}
	d.firstRepeatIndex = -1
}

// Free drains the fence and releases everything the adapter still owns,
// including an active repeat sequence.
func (d *ExplicitDevice) Free() {
	d.waitForFence()
	d.ConcludeRepeats()
	if d.fence != nil {
		d.fence.Release()
		d.fence = nil
	}
	if d.event != nil {
		_ = d.event.Close()
		d.event = nil
	}
	d.fenceNext = 0
}

// ensureFenceCreated lazily creates the fence and its wait event.
func (d *ExplicitDevice) ensureFenceCreated() bool {
	if d.fence != nil {
		return true
	}
	fence, err := d.factory.CreateFence(0)
	if err != nil {
		slogger().Error("explicit adapter: fence creation failed", "err", err)
		return false
	}
	event, err := hostevent.New()
	if err != nil {
		slogger().Error("explicit adapter: fence event creation failed", "err", err)
		fence.Release()
		return false
	}
	d.fence = fence
	d.event = event
	d.fenceNext = 0
	return true
}

// queueUpdateFence increments the target value, then signals the queue.
func (d *ExplicitDevice) queueUpdateFence() {
	if d.fence == nil {
		return
	}
	d.fenceNext++
	if err := d.queue.Signal(d.fence, d.fenceNext); err != nil {
		slogger().Error("explicit adapter: fence signal failed", "err", err)
	}
}

// waitForFence blocks until the GPU has signalled the last queued value.
func (d *ExplicitDevice) waitForFence() {
	if d.fence == nil {
		return
	}
	if d.fence.CompletedValue() >= d.fenceNext {
		return
	}
	if err := d.fence.SetEventOnCompletion(d.fenceNext, d.event); err != nil {
		slogger().Error("explicit adapter: fence wait arming failed", "err", err)
		return
	}
	d.event.Wait()
}

func releaseAll(resources []native.Resource) {
	for i := len(resources) - 1; i >= 0; i-- {
		resources[i].Release()
	}
}
