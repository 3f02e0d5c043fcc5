package framelock

import "fmt"

// InitStatus is the outcome of the swap-group boot protocol.
type InitStatus int32

const (
	// InitSuccess means the node joined its group and, when barriers are
	// available, bound its barrier.
	InitSuccess InitStatus = iota

	// InitFailed is the generic boot failure.
	InitFailed

	// InitNoSwapGroupDetected means the driver reports no swap groups
	// and none was requested.
	InitNoSwapGroupDetected

	// InitQuerySwapGroupFailed means a swap-group query was rejected.
	InitQuerySwapGroupFailed

	// InitFailedToJoinSwapGroup means JoinSwapGroup was rejected.
	InitFailedToJoinSwapGroup

	// InitSwapGroupMismatch means a group was requested but the driver
	// reports no swap groups.
	InitSwapGroupMismatch

	// InitFailedToBindSwapBarrier means BindSwapBarrier was rejected.
	InitFailedToBindSwapBarrier

	// InitSwapBarrierIdMismatch means a barrier was requested but the
	// driver reports no barriers.
	InitSwapBarrierIdMismatch
)

// String returns the string representation of InitStatus.
func (s InitStatus) String() string {
	switch s {
	case InitSuccess:
		return "success"
	case InitFailed:
		return "failed"
	case InitNoSwapGroupDetected:
		return "no swap group detected"
	case InitQuerySwapGroupFailed:
		return "query swap group failed"
	case InitFailedToJoinSwapGroup:
		return "failed to join swap group"
	case InitSwapGroupMismatch:
		return "swap group mismatch"
	case InitFailedToBindSwapBarrier:
		return "failed to bind swap barrier"
	case InitSwapBarrierIdMismatch:
		return "swap barrier id mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}
