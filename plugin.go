package framelock

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Unity-Technologies/ClusterDisplay/backend"
	"github.com/Unity-Technologies/ClusterDisplay/driver"
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// RenderEvent is an integer event code the host issues on its render
// thread. The values are part of the host contract.
type RenderEvent int32

const (
	// EventInitialize runs the boot protocol.
	EventInitialize RenderEvent = 0
	// EventQueryFrameCount reads the frame counter into a *int32
	// payload.
	EventQueryFrameCount RenderEvent = 1
	// EventResetFrameCount resets the frame counter.
	EventResetFrameCount RenderEvent = 2
	// EventDispose leaves the barrier and swap group.
	EventDispose RenderEvent = 3
	// EventEnableSystem toggles group and barrier together; bool
	// payload.
	EventEnableSystem RenderEvent = 4
	// EventEnableSwapGroup toggles the swap group; bool payload.
	EventEnableSwapGroup RenderEvent = 5
	// EventEnableSwapBarrier toggles the swap barrier; bool payload.
	EventEnableSwapBarrier RenderEvent = 6
	// EventEnableSyncCounter toggles the vendor frame counter; bool
	// payload.
	EventEnableSyncCounter RenderEvent = 7
)

// DeviceEvent is a host graphics-device lifecycle event.
type DeviceEvent int32

const (
	// DeviceEventInitialize announces the host's renderer binding.
	DeviceEventInitialize DeviceEvent = iota
	// DeviceEventShutdown tears the binding down.
	DeviceEventShutdown
)

// Plugin is the process-lifetime object the host embeds: it owns the
// swap-group client, the per-API adapter and the borrowed renderer
// binding, dispatches the host's render events and serves the status
// surface.
//
// A Plugin is created once at host load and torn down at unload. All
// methods except StatusSnapshot must be called on the render thread.
type Plugin struct {
	nodeID string
	client *Client

	binding native.RendererBinding
	gfx     backend.GraphicsDevice

	initState atomic.Uint32
}

// NewPlugin creates the plugin over the given frame-lock facility.
func NewPlugin(fl driver.FrameLock) *Plugin {
	return &Plugin{
		nodeID: uuid.NewString(),
		client: NewClient(fl),
	}
}

// Client returns the swap-group state machine.
func (p *Plugin) Client() *Client { return p.client }

// NodeID returns the identity stamped into telemetry.
func (p *Plugin) NodeID() string { return p.nodeID }

// OnDeviceEvent receives host graphics lifecycle events. Initialize
// captures the renderer binding; Shutdown releases the adapter and drops
// every borrowed handle.
func (p *Plugin) OnDeviceEvent(ev DeviceEvent, binding native.RendererBinding) {
	switch ev {
	case DeviceEventInitialize:
		if binding == nil {
			Logger().Error("device initialize without a renderer binding")
			p.initState.Store(uint32(StateMissingHostBinding))
			return
		}
		p.binding = binding
		Logger().Info("renderer binding captured", "renderer", binding.Renderer().String())
	case DeviceEventShutdown:
		if p.gfx != nil {
			p.gfx.Free()
			p.gfx = nil
		}
		p.client.SetGraphicsDevice(nil)
		p.binding = nil
		p.initState.Store(uint32(StateNotInitialized))
	}
}

// OnRenderEvent dispatches one host render event. Payload semantics follow
// the event table: EventQueryFrameCount takes a *int32 out pointer, the
// toggle events take a bool.
func (p *Plugin) OnRenderEvent(ev RenderEvent, data any) {
	switch ev {
	case EventInitialize:
		p.initialize()
	case EventQueryFrameCount:
		out, ok := data.(*int32)
		if !ok || out == nil || !p.contextValid() {
			return
		}
		*out = int32(p.client.QueryFrameCount(p.binding.Device()))
	case EventResetFrameCount:
		if !p.contextValid() {
			return
		}
		p.client.ResetFrameCount(p.binding.Device())
	case EventDispose:
		if !p.contextValid() {
			return
		}
		p.client.Dispose(p.binding.Device(), p.binding.SwapChain())
		p.client.DisposeWorkstation()
		p.initState.Store(uint32(StateNotInitialized))
	case EventEnableSystem:
		if on, ok := data.(bool); ok && p.contextValid() {
			p.client.EnableSystem(p.binding.Device(), p.binding.SwapChain(), on)
		}
	case EventEnableSwapGroup:
		if on, ok := data.(bool); ok && p.contextValid() {
			p.client.EnableSwapGroup(p.binding.Device(), p.binding.SwapChain(), on)
		}
	case EventEnableSwapBarrier:
		if on, ok := data.(bool); ok && p.contextValid() {
			p.client.EnableSwapBarrier(p.binding.Device(), on)
		}
	case EventEnableSyncCounter:
		if on, ok := data.(bool); ok {
			p.client.EnableSyncCounter(on)
		}
	default:
		Logger().Warn("unknown render event", "event", int32(ev))
	}
}

// initialize builds the adapter and runs the boot protocol.
func (p *Plugin) initialize() {
	if p.binding == nil {
		Logger().Error("initialize without a renderer binding")
		p.initState.Store(uint32(StateMissingHostBinding))
		return
	}
	renderer := p.binding.Renderer()
	if !backend.Supported(renderer) {
		Logger().Error("unsupported graphics api", "renderer", renderer.String())
		p.initState.Store(uint32(StateUnsupportedGraphicsAPI))
		return
	}
	if p.binding.Device() == nil {
		p.initState.Store(uint32(StateMissingDevice))
		return
	}
	if p.binding.SwapChain() == nil {
		p.initState.Store(uint32(StateMissingSwapChain))
		return
	}

	if p.gfx == nil {
		gfx, err := backend.New(renderer, backend.Config{
			Device:       p.binding.Device(),
			SwapChain:    p.binding.SwapChain(),
			CommandQueue: p.binding.CommandQueue(),
			SyncInterval: p.binding.SyncInterval(),
			PresentFlags: p.binding.PresentFlags(),
		})
		if err != nil {
			Logger().Error("graphics adapter creation failed", "renderer", renderer.String(), "err", err)
			p.initState.Store(uint32(StateGenericFailure))
			return
		}
		p.gfx = gfx
		p.client.SetGraphicsDevice(gfx)
		Logger().Info("graphics adapter created", "renderer", renderer.String())
	}

	p.client.Prepare()
	p.client.SetupWorkstation()
	status := p.client.Initialize(p.binding.Device(), p.binding.SwapChain())
	p.initState.Store(uint32(initStateFor(status)))
	if status != InitSuccess {
		Logger().Error("swap group initialize failed", "status", status.String())
	}
}

// contextValid reports whether the borrowed handles are usable. The swap
// chain can be nil during the host's first frame; the handles are
// re-resolved from the binding on every call.
func (p *Plugin) contextValid() bool {
	if p.binding == nil {
		return false
	}
	if !backend.Supported(p.binding.Renderer()) {
		return false
	}
	if p.binding.Device() == nil {
		Logger().Error("renderer binding has no device")
		return false
	}
	if p.binding.SwapChain() == nil {
		Logger().Error("renderer binding has no swap chain")
		return false
	}
	return true
}

// ShouldOverridePresent answers the host's present-override query: whether
// the plugin wants to own frame presentation. Any unhealthy state answers
// false, and the host falls back to its own presentation path.
func (p *Plugin) ShouldOverridePresent() bool {
	return p.contextValid() && p.gfx != nil
}

// PresentFrame performs the synchronized present on behalf of the host.
// It returns false when the host must present the frame itself.
func (p *Plugin) PresentFrame() bool {
	if !p.contextValid() || p.gfx == nil {
		return false
	}
	return p.client.Render(
		p.gfx.Device(),
		p.gfx.SwapChain(),
		p.gfx.SyncInterval(),
		p.gfx.PresentFlags(),
	)
}

// StatusSnapshot samples the status surface. Safe to call from any
// goroutine while the render thread keeps mutating.
func (p *Plugin) StatusSnapshot() StatusSnapshot {
	ok, failed := p.client.PresentCounts()
	return StatusSnapshot{
		NodeID:                 p.nodeID,
		InitializationState:    InitializationState(p.initState.Load()),
		SwapGroupID:            p.client.GroupID(),
		SwapBarrierID:          p.client.BarrierID(),
		PresentedFramesSuccess: ok,
		PresentedFramesFailed:  failed,
	}
}
