// Package driver is a thin, deterministic facade over the vendor frame-lock
// facility on the graphics driver. It exposes the small set of named calls
// the swap-group controller needs and maps their raw status codes onto a
// coarse kind the caller can branch on.
//
// The vendor API itself is opaque: implementations of FrameLock either bind
// the real driver entry points or, like driver/sim, provide a deterministic
// in-process stand-in for bring-up and tests.
package driver

import (
	"errors"
	"fmt"

	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// ErrNotSupported is returned by implementations that cannot reach a
// frame-lock facility on this system.
var ErrNotSupported = errors.New("driver: frame lock not supported")

// Status is a raw status code returned by every vendor call.
type Status int32

const (
	// StatusOK means the call succeeded.
	StatusOK Status = 0

	// StatusError is the vendor's generic failure.
	StatusError Status = -1

	// StatusInvalidArgument means a handle or id was rejected.
	StatusInvalidArgument Status = -5

	// StatusAPINotInitialized means Initialize has not been called.
	StatusAPINotInitialized Status = -6

	// StatusNoImplementation means the driver lacks the facility.
	StatusNoImplementation Status = -7

	// StatusDeviceBusy means the driver asked the caller to retry.
	StatusDeviceBusy Status = -10
)

// String returns the vendor-style name of the status code.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusAPINotInitialized:
		return "API_NOT_INITIALIZED"
	case StatusNoImplementation:
		return "NO_IMPLEMENTATION"
	case StatusDeviceBusy:
		return "DEVICE_BUSY"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// Kind is the coarse classification of a Status.
type Kind int32

const (
	// KindOK classifies successful calls.
	KindOK Kind = iota

	// KindRejected classifies calls the driver refused: bad arguments,
	// busy device, or the generic error.
	KindRejected

	// KindUnavailable classifies calls that cannot succeed until the
	// facility is initialized or present at all.
	KindUnavailable
)

// Kind returns the coarse classification of s.
func (s Status) Kind() Kind {
	switch s {
	case StatusOK:
		return KindOK
	case StatusAPINotInitialized, StatusNoImplementation:
		return KindUnavailable
	default:
		return KindRejected
	}
}

// CallError wraps a non-OK Status with the operation that produced it.
type CallError struct {
	Op     string
	Status Status
	Detail string
}

// Error formats the vendor operation, its human-readable error string and
// the numeric code.
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("driver: %s: %s (%d): %s", e.Op, e.Status, int32(e.Status), e.Detail)
	}
	return fmt.Sprintf("driver: %s: %s (%d)", e.Op, e.Status, int32(e.Status))
}

// Err converts a status into an error, nil for StatusOK.
func Err(op string, s Status) error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Op: op, Status: s}
}

// GPU is an opaque physical-GPU handle enumerated from the driver.
type GPU uintptr

// FrameLock is the vendor frame-lock facility.
//
// All calls return a raw Status; none of them panic or block except
// Present, which stalls until the cluster-wide swap barrier releases.
// Device and swap-chain handles are borrowed from the host for the duration
// of each call.
type FrameLock interface {
	// Initialize prepares the vendor API for use in this process.
	Initialize() Status

	// EnumerateGpus lists the physical GPUs the driver controls.
	EnumerateGpus() ([]GPU, Status)

	// EnableWorkstationFeature registers (or unregisters) this process'
	// request to use the workstation swap-group resources of gpu.
	EnableWorkstationFeature(gpu GPU, enable bool) Status

	// QueryMaxSwapGroup returns the number of swap groups and barriers
	// the device supports.
	QueryMaxSwapGroup(device native.Device) (maxGroups, maxBarriers uint32, s Status)

	// JoinSwapGroup joins (group > 0) or leaves (group == 0) a swap
	// group. blocking selects whether presents block on the group.
	JoinSwapGroup(device native.Device, swapChain native.SwapChain, group uint32, blocking bool) Status

	// BindSwapBarrier binds group to barrier, or unbinds with barrier 0.
	BindSwapBarrier(device native.Device, group, barrier uint32) Status

	// QuerySwapGroup returns the group and barrier the swap chain is
	// currently part of.
	QuerySwapGroup(device native.Device, swapChain native.SwapChain) (group, barrier uint32, s Status)

	// QueryFrameCount returns the cluster-wide frame counter.
	QueryFrameCount(device native.Device) (uint32, Status)

	// ResetFrameCount resets the cluster-wide frame counter.
	ResetFrameCount(device native.Device) Status

	// Present performs the synchronized present. It blocks until the
	// swap barrier releases.
	Present(device native.Device, swapChain native.SwapChain, syncInterval, flags uint32) Status

	// ErrorString returns the driver's human-readable text for s.
	ErrorString(s Status) string
}
