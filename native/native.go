// Package native declares the graphics-layer handles the host engine lends
// to the frame-lock core: device, swap chain, immediate context, command
// queue and the objects needed to record and fence copy work.
//
// All handles are borrowed. The core never extends their lifetime beyond the
// call that received them; objects the core creates through a device factory
// are released through their Release method in reverse acquisition order.
package native

import "fmt"

// Renderer identifies the graphics API the host engine is running on.
type Renderer int32

const (
	// RendererUnknown is an unrecognised or unsupported graphics API.
	RendererUnknown Renderer = iota

	// RendererImmediate is a stateless API with an immediate device
	// context. Resource copies synchronize inside the driver.
	RendererImmediate

	// RendererExplicit is a stateful API with explicit command recording,
	// queues and GPU fences.
	RendererExplicit
)

// String returns the string representation of Renderer.
func (r Renderer) String() string {
	switch r {
	case RendererImmediate:
		return "immediate"
	case RendererExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("unknown(%d)", int32(r))
	}
}

// Device is an opaque device handle borrowed from the host.
//
// Concrete devices may additionally implement ResourceFactory (explicit
// APIs) or ContextProvider (immediate APIs); adapters type-assert for the
// capabilities they need and degrade when they are absent.
type Device interface{}

// State is a resource state used in transition barriers.
type State int32

const (
	// StatePresent is the state a back buffer must be in to be presented.
	StatePresent State = iota

	// StateCopyDest marks a resource as a copy destination.
	StateCopyDest

	// StateCopySource marks a resource as a copy source.
	StateCopySource

	// StateRenderTarget marks a resource as the bound render target.
	StateRenderTarget
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateCopyDest:
		return "copy-dest"
	case StateCopySource:
		return "copy-source"
	case StateRenderTarget:
		return "render-target"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Usage is a bit set of GPU-visible usage flags on a resource.
type Usage uint32

const (
	// UsageRenderTarget allows binding the resource as a render target.
	UsageRenderTarget Usage = 1 << iota

	// UsageShaderResource allows sampling the resource from shaders.
	UsageShaderResource

	// UsageUnorderedAccess allows unordered shader access.
	UsageUnorderedAccess
)

// ResourceDesc describes the layout of a texture resource.
type ResourceDesc struct {
	Width  int
	Height int
	Format uint32
	Usage  Usage
}

// Resource is a texture-like object: a back buffer, or a saved frame the
// core allocates while warming up a swap barrier.
type Resource interface {
	// Desc returns the resource layout.
	Desc() ResourceDesc

	// Release gives the resource back to the graphics layer. A resource
	// must be released exactly once by its owner.
	Release()
}

// SwapChain is a borrowed presentation chain.
type SwapChain interface {
	// Present displays the current back buffer through the native path,
	// bypassing any frame-lock synchronization.
	Present(syncInterval, flags uint32) error

	// BufferCount returns the number of back buffers in the chain.
	BufferCount() int

	// Buffer returns the i-th back buffer. The returned resource is
	// borrowed; callers that cache it must Release it when done.
	Buffer(i int) (Resource, error)
}

// FlipSwapChain is the swap-chain generation that exposes the index of the
// buffer the next render pass will target. Explicit-API adapters require it
// to re-align the chain after a repeat sequence.
type FlipSwapChain interface {
	SwapChain

	// CurrentBackBufferIndex returns the index of the current back buffer.
	CurrentBackBufferIndex() int
}

// ImmediateContext is the immediate device context of a stateless API.
type ImmediateContext interface {
	// SetRenderTarget binds res as the sole render target.
	SetRenderTarget(res Resource)

	// CopyResource copies the full contents of src into dst.
	CopyResource(dst, src Resource)
}

// ContextProvider is implemented by devices that expose an immediate
// context.
type ContextProvider interface {
	ImmediateContext() ImmediateContext
}

// CommandAllocator backs the storage of a command list.
type CommandAllocator interface {
	// Reset recycles the allocator. All lists recorded against it must
	// have completed on the GPU.
	Reset() error

	// Release destroys the allocator.
	Release()
}

// CommandList records copy and transition commands for an explicit API.
type CommandList interface {
	// Reset re-opens the list for recording against alloc.
	Reset(alloc CommandAllocator) error

	// Transition records a state transition barrier on res.
	Transition(res Resource, from, to State)

	// Copy records a full-resource copy from src into dst.
	Copy(dst, src Resource)

	// Close ends recording. A closed list may be executed.
	Close() error

	// Release destroys the list.
	Release()
}

// CommandQueue is the host's direct command queue.
type CommandQueue interface {
	// Execute submits closed command lists for execution.
	Execute(lists ...CommandList)

	// Signal asks the GPU to set fence to value once all prior work on
	// the queue has completed.
	Signal(fence Fence, value uint64) error
}

// Event is a one-shot auto-reset synchronization event. One Wait consumes
// one Set.
type Event interface {
	Set()
	Wait()
}

// Fence is a monotonic GPU fence.
type Fence interface {
	// CompletedValue returns the last value the GPU has signalled.
	CompletedValue() uint64

	// SetEventOnCompletion arms ev to be set once the fence reaches
	// value. If the fence already passed value, ev is set immediately.
	SetEventOnCompletion(value uint64, ev Event) error

	// Release destroys the fence.
	Release()
}

// ResourceFactory is implemented by devices of explicit APIs that can
// allocate the objects a repeat sequence needs.
type ResourceFactory interface {
	// CreateCommandAllocator creates a direct-type command allocator.
	// The name is attached for debuggers.
	CreateCommandAllocator(name string) (CommandAllocator, error)

	// CreateCommandList creates a direct-type command list open for
	// recording against alloc. The name is attached for debuggers.
	CreateCommandList(name string, alloc CommandAllocator) (CommandList, error)

	// CreateCommittedResource allocates a texture with the given layout
	// in the same heap the back buffers live in.
	CreateCommittedResource(desc ResourceDesc) (Resource, error)

	// CreateFence creates a fence starting at initial.
	CreateFence(initial uint64) (Fence, error)
}

// TextureFactory is implemented by devices of immediate APIs that can
// allocate staging textures.
type TextureFactory interface {
	// CreateTexture allocates a texture with the given layout.
	CreateTexture(desc ResourceDesc) (Resource, error)
}

// RendererBinding is the per-renderer glue the host engine hands to the
// plugin when the graphics device initializes. It carries the borrowed
// handles every frame-lock operation runs against.
type RendererBinding interface {
	// Renderer identifies the graphics API behind the binding.
	Renderer() Renderer

	// Device returns the borrowed device handle, or nil when the host
	// has not created it yet.
	Device() Device

	// SwapChain returns the borrowed swap chain, or nil early during
	// host start-up.
	SwapChain() SwapChain

	// SyncInterval returns the host's configured present sync interval.
	SyncInterval() uint32

	// PresentFlags returns the host's configured present flags.
	PresentFlags() uint32

	// CommandQueue returns the host's direct queue on explicit APIs and
	// nil on immediate ones.
	CommandQueue() CommandQueue
}
