package sim

import "github.com/Unity-Technologies/ClusterDisplay/native"

// Binding bundles a simulated device, swap chain and queue into the
// renderer binding the plugin consumes.
type Binding struct {
	Kind         native.Renderer
	Dev          *Device
	Chain        native.SwapChain
	Queue        native.CommandQueue
	Sync         uint32
	Flags        uint32
	HideDevice   bool
	HideSwapping bool
}

// NewBinding wires a complete binding for the given renderer: an explicit
// binding gets a command queue, an immediate one does not.
func NewBinding(kind native.Renderer, width, height, buffers int) *Binding {
	dev := NewDevice(kind.String())
	b := &Binding{
		Kind:  kind,
		Dev:   dev,
		Chain: NewSwapChain(dev, width, height, buffers),
		Sync:  1,
	}
	if kind == native.RendererExplicit {
		b.Queue = dev.NewCommandQueue()
	}
	return b
}

// Renderer identifies the simulated graphics API.
func (b *Binding) Renderer() native.Renderer { return b.Kind }

// Device returns the simulated device, or nil when hidden.
func (b *Binding) Device() native.Device {
	if b.HideDevice {
		return nil
	}
	return b.Dev
}

// SwapChain returns the simulated swap chain, or nil when hidden.
func (b *Binding) SwapChain() native.SwapChain {
	if b.HideSwapping {
		return nil
	}
	return b.Chain
}

// SyncInterval returns the configured present sync interval.
func (b *Binding) SyncInterval() uint32 { return b.Sync }

// PresentFlags returns the configured present flags.
func (b *Binding) PresentFlags() uint32 { return b.Flags }

// CommandQueue returns the direct queue on explicit bindings.
func (b *Binding) CommandQueue() native.CommandQueue { return b.Queue }
