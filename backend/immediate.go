package backend

import (
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

func init() {
	Register(native.RendererImmediate, func(cfg Config) (GraphicsDevice, error) {
		return NewImmediateDevice(cfg)
	})
}

// ImmediateDevice adapts a stateless graphics API with an immediate device
// context. Copies synchronize inside the API, so repeats need no fences.
type ImmediateDevice struct {
	device       native.Device
	swapChain    native.SwapChain
	syncInterval uint32
	presentFlags uint32

	context    native.ImmediateContext
	backBuffer native.Resource
	savedFrame native.Resource
}

// NewImmediateDevice creates the adapter over the host's borrowed handles.
func NewImmediateDevice(cfg Config) (*ImmediateDevice, error) {
	d := &ImmediateDevice{
		device:       cfg.Device,
		swapChain:    cfg.SwapChain,
		syncInterval: cfg.SyncInterval,
		presentFlags: cfg.PresentFlags,
	}
	if cp, ok := cfg.Device.(native.ContextProvider); ok {
		d.context = cp.ImmediateContext()
	}
	if d.context == nil {
		slogger().Error("immediate adapter: device exposes no immediate context")
	}
	return d, nil
}

// Device returns the borrowed device handle.
func (d *ImmediateDevice) Device() native.Device { return d.device }

// SwapChain returns the borrowed swap chain.
func (d *ImmediateDevice) SwapChain() native.SwapChain { return d.swapChain }

// SyncInterval returns the host's present sync interval.
func (d *ImmediateDevice) SyncInterval() uint32 { return d.syncInterval }

// PresentFlags returns the host's present flags.
func (d *ImmediateDevice) PresentFlags() uint32 { return d.presentFlags }

// InitiateRepeats captures the current back buffer into a newly created
// compatible texture and binds the back buffer as the sole render target.
// The saved texture is what every subsequent repeat displays.
func (d *ImmediateDevice) InitiateRepeats() {
	if d.context == nil {
		return
	}
	if d.savedFrame != nil {
		// Warm-up can span several presents; the sequence stays live.
		slogger().Debug("immediate adapter: repeat sequence already active")
		return
	}

	bb, err := d.swapChain.Buffer(0)
	if err != nil {
		slogger().Error("immediate adapter: back buffer unavailable", "err", err)
		return
	}

	tf, ok := d.device.(native.TextureFactory)
	if !ok {
		slogger().Error("immediate adapter: device cannot create textures")
		bb.Release()
		return
	}

	desc := bb.Desc()
	desc.Usage = 0
	saved, err := tf.CreateTexture(desc)
	if err != nil {
		slogger().Error("immediate adapter: saved frame allocation failed", "err", err)
		bb.Release()
		return
	}

	d.backBuffer = bb
	d.savedFrame = saved
	d.context.SetRenderTarget(d.backBuffer)
	d.context.CopyResource(d.savedFrame, d.backBuffer)
}

// PrepareSingleRepeat copies the saved frame back into the back buffer so
// the next present re-displays it.
func (d *ImmediateDevice) PrepareSingleRepeat() {
	if d.context == nil || d.savedFrame == nil || d.backBuffer == nil {
		return
	}
	d.context.CopyResource(d.backBuffer, d.savedFrame)
}

// ConcludeRepeats releases the transient repeat resources.
func (d *ImmediateDevice) ConcludeRepeats() {
	if d.savedFrame != nil {
		d.savedFrame.Release()
		d.savedFrame = nil
	}
	if d.backBuffer != nil {
		d.backBuffer.Release()
		d.backBuffer = nil
	}
}

// Free releases everything the adapter still owns.
func (d *ImmediateDevice) Free() {
	d.ConcludeRepeats()
}
