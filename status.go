package framelock

import "fmt"

// InitializationState is the plugin-level boot state exposed to the host
// through the status surface. The numeric values are part of the host
// contract.
type InitializationState uint32

const (
	// StateNotInitialized means the initialize event has not run yet.
	StateNotInitialized InitializationState = 0
	// StateInitialized means the boot protocol completed.
	StateInitialized InitializationState = 1
	// StateMissingHostBinding means the host never delivered its
	// renderer binding.
	StateMissingHostBinding InitializationState = 2
	// StateUnsupportedGraphicsAPI means no adapter exists for the
	// host's renderer.
	StateUnsupportedGraphicsAPI InitializationState = 3
	// StateMissingDevice means the host binding has no device yet.
	StateMissingDevice InitializationState = 4
	// StateMissingSwapChain means the host binding has no swap chain
	// yet.
	StateMissingSwapChain InitializationState = 5
	// StateGenericFailure covers failures without a dedicated state.
	StateGenericFailure InitializationState = 6
	// StateNoSwapGroupDetected mirrors InitNoSwapGroupDetected.
	StateNoSwapGroupDetected InitializationState = 7
	// StateQuerySwapGroupFailed mirrors InitQuerySwapGroupFailed.
	StateQuerySwapGroupFailed InitializationState = 8
	// StateFailedToJoinSwapGroup mirrors InitFailedToJoinSwapGroup.
	StateFailedToJoinSwapGroup InitializationState = 9
	// StateSwapGroupMismatch mirrors InitSwapGroupMismatch.
	StateSwapGroupMismatch InitializationState = 10
	// StateFailedToBindSwapBarrier mirrors InitFailedToBindSwapBarrier.
	StateFailedToBindSwapBarrier InitializationState = 11
	// StateSwapBarrierIdMismatch mirrors InitSwapBarrierIdMismatch.
	StateSwapBarrierIdMismatch InitializationState = 12
)

// String returns the string representation of InitializationState.
func (s InitializationState) String() string {
	switch s {
	case StateNotInitialized:
		return "not initialized"
	case StateInitialized:
		return "initialized"
	case StateMissingHostBinding:
		return "missing host binding"
	case StateUnsupportedGraphicsAPI:
		return "unsupported graphics api"
	case StateMissingDevice:
		return "missing device"
	case StateMissingSwapChain:
		return "missing swap chain"
	case StateGenericFailure:
		return "generic failure"
	case StateNoSwapGroupDetected:
		return "no swap group detected"
	case StateQuerySwapGroupFailed:
		return "query swap group failed"
	case StateFailedToJoinSwapGroup:
		return "failed to join swap group"
	case StateSwapGroupMismatch:
		return "swap group mismatch"
	case StateFailedToBindSwapBarrier:
		return "failed to bind swap barrier"
	case StateSwapBarrierIdMismatch:
		return "swap barrier id mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

// initStateFor maps a boot-protocol outcome onto the plugin state.
func initStateFor(s InitStatus) InitializationState {
	switch s {
	case InitSuccess:
		return StateInitialized
	case InitNoSwapGroupDetected:
		return StateNoSwapGroupDetected
	case InitQuerySwapGroupFailed:
		return StateQuerySwapGroupFailed
	case InitFailedToJoinSwapGroup:
		return StateFailedToJoinSwapGroup
	case InitSwapGroupMismatch:
		return StateSwapGroupMismatch
	case InitFailedToBindSwapBarrier:
		return StateFailedToBindSwapBarrier
	case InitSwapBarrierIdMismatch:
		return StateSwapBarrierIdMismatch
	default:
		return StateGenericFailure
	}
}

// StatusSnapshot is a point-in-time copy of the status surface. Fields are
// sampled with relaxed atomic loads; consistency between fields is not
// guaranteed, it is a telemetry snapshot.
type StatusSnapshot struct {
	// NodeID identifies this node in telemetry.
	NodeID string

	// InitializationState is the plugin boot state.
	InitializationState InitializationState

	// SwapGroupID is the driver-confirmed swap group id.
	SwapGroupID uint32

	// SwapBarrierID is the driver-confirmed barrier id.
	SwapBarrierID uint32

	// PresentedFramesSuccess counts successful synchronized presents.
	PresentedFramesSuccess uint64

	// PresentedFramesFailed counts rejected synchronized presents.
	PresentedFramesFailed uint64
}
