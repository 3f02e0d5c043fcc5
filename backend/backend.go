// Package backend provides the graphics-device adapters that freeze the
// visible image while a swap barrier warms up. Each adapter repeatedly
// copies a saved frame into the back buffers so that the presents consumed
// by the converging barrier never display intermediate content.
//
// Adapters are registered per graphics API and constructed through New.
package backend

import (
	"errors"

	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// Common adapter errors.
var (
	// ErrRendererNotSupported is returned when no adapter is registered
	// for the requested graphics API.
	ErrRendererNotSupported = errors.New("backend: renderer not supported")

	// ErrMissingDevice is returned when the host has not provided a
	// device handle yet.
	ErrMissingDevice = errors.New("backend: device handle is nil")

	// ErrMissingSwapChain is returned when the host has not provided a
	// swap chain yet.
	ErrMissingSwapChain = errors.New("backend: swap chain handle is nil")

	// ErrMissingCommandQueue is returned when an explicit-API adapter is
	// constructed without the host's direct queue.
	ErrMissingCommandQueue = errors.New("backend: command queue handle is nil")
)

// GraphicsDevice is the capability set the swap-group controller drives.
//
// The warm-up entry points form a strict sequence within one synchronized
// present: InitiateRepeats, zero or more PrepareSingleRepeat, and
// ConcludeRepeats once the barrier is engaged. All methods run on the
// host's render thread.
type GraphicsDevice interface {
	// Device returns the borrowed device handle.
	Device() native.Device

	// SwapChain returns the borrowed swap chain.
	SwapChain() native.SwapChain

	// SyncInterval returns the host's present sync interval.
	SyncInterval() uint32

	// PresentFlags returns the host's present flags.
	PresentFlags() uint32

	// InitiateRepeats saves the current back buffer so that subsequent
	// repeats can copy it forward. Failures are logged and leave the
	// adapter inert; the host keeps rendering unsynchronized.
	InitiateRepeats()

	// PrepareSingleRepeat copies the saved frame into the current back
	// buffer ahead of the next repeated present.
	PrepareSingleRepeat()

	// ConcludeRepeats releases the repeat resources. Adapters that track
	// the current back-buffer index first re-align the swap chain to the
	// index the repeat sequence started at.
	ConcludeRepeats()

	// Free releases everything the adapter still owns. The adapter must
	// tolerate being freed while a repeat sequence is active.
	Free()
}

// Config carries the borrowed handles an adapter is constructed over.
type Config struct {
	Device       native.Device
	SwapChain    native.SwapChain
	CommandQueue native.CommandQueue
	SyncInterval uint32
	PresentFlags uint32
}
