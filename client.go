package framelock

import (
	"sync/atomic"

	"github.com/Unity-Technologies/ClusterDisplay/backend"
	"github.com/Unity-Technologies/ClusterDisplay/driver"
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// Client is the swap-group / swap-barrier state machine. It joins the
// node's swap chain to the cluster-wide swap group, binds the swap barrier,
// counts frames and dispatches synchronized presents, driving the graphics
// adapter through the barrier warm-up sequence.
//
// The client distinguishes requested ids (what the boot protocol asks the
// driver for, 1 by default) from confirmed ids (what the driver last
// acknowledged). The status surface only ever sees confirmed ids.
//
// All mutating operations run on the host's render thread. The confirmed
// ids and the present counters are stored atomically so the status surface
// can sample them from any goroutine.
type Client struct {
	fl driver.FrameLock

	// requestedGroup and requestedBarrier are the ids the boot protocol
	// asks for. The only non-zero id the driver accepts is 1.
	requestedGroup   uint32
	requestedBarrier uint32

	// groupID and barrierID hold the driver-confirmed ids.
	groupID   atomic.Uint32
	barrierID atomic.Uint32

	frameCount    uint32
	maxSwapGroups uint32
	maxBarriers   uint32

	isMaster    bool
	syncCounter bool
	active      bool
	needWarmup  bool
	skipNext    bool

	presentOK   atomic.Uint64
	presentFail atomic.Uint64

	oracle WarmupOracle
	gfx    backend.GraphicsDevice

	prepared    bool
	prepareFail bool
}

// NewClient creates a client over the given frame-lock facility. The node
// requests group 1 and barrier 1 and acts as the master that resets the
// cluster frame counter; use SetMaster on repeater nodes.
func NewClient(fl driver.FrameLock) *Client {
	return &Client{
		fl:               fl,
		requestedGroup:   1,
		requestedBarrier: 1,
		isMaster:         true,
		oracle:           defaultWarmupOracle,
	}
}

// SetMaster selects whether this node resets the cluster frame counter.
func (c *Client) SetMaster(master bool) { c.isMaster = master }

// SetRequested selects the ids the boot protocol requests. The only
// non-zero id the driver accepts is 1.
func (c *Client) SetRequested(group, barrier uint32) {
	c.requestedGroup = group
	c.requestedBarrier = barrier
}

// SetGraphicsDevice installs the adapter driven during barrier warm-up.
func (c *Client) SetGraphicsDevice(gfx backend.GraphicsDevice) { c.gfx = gfx }

// SetWarmupOracle installs the warm-up oracle. A nil oracle restores the
// default, which imposes no warm-up.
func (c *Client) SetWarmupOracle(oracle WarmupOracle) {
	if oracle == nil {
		oracle = defaultWarmupOracle
	}
	c.oracle = oracle
}

// GroupID returns the driver-confirmed swap group id, 0 when not joined.
func (c *Client) GroupID() uint32 { return c.groupID.Load() }

// BarrierID returns the driver-confirmed barrier id, 0 when not bound.
func (c *Client) BarrierID() uint32 { return c.barrierID.Load() }

// PresentCounts returns the synchronized-present counters.
func (c *Client) PresentCounts() (ok, failed uint64) {
	return c.presentOK.Load(), c.presentFail.Load()
}

// Active reports whether EnableSystem last switched the system on.
func (c *Client) Active() bool { return c.active }

// NeedsWarmup reports whether the next synchronized present enters the
// barrier warm-up sequence.
func (c *Client) NeedsWarmup() bool { return c.needWarmup }

// Prepare initializes the vendor facility. It is idempotent; a failure is
// logged and turns every subsequent operation into a no-op.
func (c *Client) Prepare() {
	if c.prepared {
		return
	}
	c.prepared = true
	if s := c.fl.Initialize(); s != driver.StatusOK {
		c.prepareFail = true
		Logger().Error("frame lock initialize failed",
			"status", s.String(), "code", int32(s), "err", c.fl.ErrorString(s))
		return
	}
	Logger().Info("frame lock initialized")
}

// usable reports whether the facility survived Prepare.
func (c *Client) usable() bool { return c.prepared && !c.prepareFail }

// SetupWorkstation registers this process' request for workstation
// swap-group resources on every GPU. Per-GPU failures are logged; the
// cluster may still function on the remaining GPUs.
func (c *Client) SetupWorkstation() {
	c.workstationFeature(true)
}

// DisposeWorkstation unregisters the workstation swap-group request.
func (c *Client) DisposeWorkstation() {
	c.workstationFeature(false)
}

func (c *Client) workstationFeature(enable bool) {
	if !c.usable() {
		return
	}
	gpus, s := c.fl.EnumerateGpus()
	if s != driver.StatusOK {
		Logger().Error("gpu enumeration failed", "status", s.String(), "err", c.fl.ErrorString(s))
		return
	}
	for _, gpu := range gpus {
		if s := c.fl.EnableWorkstationFeature(gpu, enable); s != driver.StatusOK {
			Logger().Error("workstation feature setup failed",
				"gpu", uintptr(gpu), "enable", enable, "status", s.String(), "err", c.fl.ErrorString(s))
		}
	}
}

// Initialize runs the boot protocol: query capabilities, join the
// requested swap group, probe the frame counter, bind the requested
// barrier and store the driver-confirmed ids. On any non-success outcome
// the confirmed ids are reset to 0.
func (c *Client) Initialize(device native.Device, swapChain native.SwapChain) InitStatus {
	if !c.usable() {
		return InitFailed
	}

	maxGroups, maxBarriers, s := c.fl.QueryMaxSwapGroup(device)
	if s != driver.StatusOK {
		Logger().Error("query max swap group failed", "status", s.String(), "err", c.fl.ErrorString(s))
		return c.failInit(InitQuerySwapGroupFailed)
	}
	c.maxSwapGroups = maxGroups
	c.maxBarriers = maxBarriers

	if c.maxSwapGroups == 0 {
		if c.requestedGroup > 0 {
			Logger().Error("driver reports no swap groups but one was requested")
			c.requestedGroup = 0
			return c.failInit(InitSwapGroupMismatch)
		}
		Logger().Warn("driver reports no swap groups")
		return c.failInit(InitNoSwapGroupDetected)
	}

	if c.requestedGroup <= c.maxSwapGroups {
		s = c.fl.JoinSwapGroup(device, swapChain, c.requestedGroup, c.requestedGroup > 0)
		if s != driver.StatusOK {
			Logger().Error("join swap group failed",
				"group", c.requestedGroup, "status", s.String(), "err", c.fl.ErrorString(s))
			return c.failInit(InitFailedToJoinSwapGroup)
		}
		Logger().Info("joined swap group", "group", c.requestedGroup, "max", c.maxSwapGroups)
	}

	barrierBound := false
	if c.maxBarriers > 0 {
		if _, s := c.fl.QueryFrameCount(device); s == driver.StatusOK {
			c.syncCounter = true
		} else {
			c.syncCounter = false
		}

		if c.isMaster && c.syncCounter {
			if s := c.fl.ResetFrameCount(device); s != driver.StatusOK {
				Logger().Warn("reset frame count failed", "status", s.String(), "err", c.fl.ErrorString(s))
			}
		}

		if c.requestedBarrier <= c.maxBarriers && c.requestedGroup <= c.maxSwapGroups {
			s = c.fl.BindSwapBarrier(device, c.requestedGroup, c.requestedBarrier)
			if s != driver.StatusOK {
				Logger().Error("bind swap barrier failed",
					"group", c.requestedGroup, "barrier", c.requestedBarrier,
					"status", s.String(), "err", c.fl.ErrorString(s))
				return c.failInit(InitFailedToBindSwapBarrier)
			}
			Logger().Info("bound swap barrier", "barrier", c.requestedBarrier, "max", c.maxBarriers)
			barrierBound = c.requestedBarrier > 0
		}
	} else if c.requestedBarrier > 0 {
		Logger().Error("driver reports no swap barriers but one was requested")
		c.requestedBarrier = 0
		return c.failInit(InitSwapBarrierIdMismatch)
	}

	group, barrier, s := c.fl.QuerySwapGroup(device, swapChain)
	if s != driver.StatusOK {
		Logger().Error("query swap group failed", "status", s.String(), "err", c.fl.ErrorString(s))
		return c.failInit(InitQuerySwapGroupFailed)
	}
	c.groupID.Store(group)
	c.barrierID.Store(barrier)

	c.needWarmup = barrierBound
	return InitSuccess
}

// failInit resets the confirmed ids before reporting a non-success boot
// outcome.
func (c *Client) failInit(status InitStatus) InitStatus {
	c.groupID.Store(0)
	c.barrierID.Store(0)
	return status
}

// Dispose unbinds the barrier, leaves the swap group and resets the
// present counters. Each id is zeroed only after the driver accepted the
// respective call.
func (c *Client) Dispose(device native.Device, swapChain native.SwapChain) {
	if c.usable() {
		if c.barrierID.Load() > 0 {
			if s := c.fl.BindSwapBarrier(device, c.groupID.Load(), 0); s == driver.StatusOK {
				c.barrierID.Store(0)
			} else {
				Logger().Error("barrier unbind failed", "status", s.String(), "err", c.fl.ErrorString(s))
			}
		}
		if c.groupID.Load() > 0 {
			if s := c.fl.JoinSwapGroup(device, swapChain, 0, false); s == driver.StatusOK {
				c.groupID.Store(0)
			} else {
				Logger().Error("swap group leave failed", "status", s.String(), "err", c.fl.ErrorString(s))
			}
		}
	}
	c.needWarmup = false
	c.presentOK.Store(0)
	c.presentFail.Store(0)
}

// EnableSystem joins or leaves the swap group and barrier together. The
// group toggles before the barrier; the driver requires that order.
func (c *Client) EnableSystem(device native.Device, swapChain native.SwapChain, on bool) {
	c.active = on
	c.EnableSwapGroup(device, swapChain, on)
	c.EnableSwapBarrier(device, on)
}

// EnableSwapGroup joins (on) or leaves (off) swap group 1. The stored id
// changes only after the driver accepted the call.
func (c *Client) EnableSwapGroup(device native.Device, swapChain native.SwapChain, on bool) {
	if !c.usable() {
		return
	}
	var newGroup uint32
	if on {
		newGroup = 1
	}
	Logger().Info("enable swap group", "enable", on, "group", newGroup)

	if newGroup == c.groupID.Load() || newGroup > c.maxSwapGroups {
		return
	}
	s := c.fl.JoinSwapGroup(device, swapChain, newGroup, newGroup > 0)
	if s != driver.StatusOK {
		Logger().Error("join swap group failed",
			"group", newGroup, "status", s.String(), "err", c.fl.ErrorString(s))
		return
	}
	c.groupID.Store(newGroup)
	if newGroup == 0 {
		// Leaving the group drops the barrier binding with it.
		c.barrierID.Store(0)
	}
}

// EnableSwapBarrier binds (on) or unbinds (off) barrier 1. It only acts
// while the node is in swap group 1; a successful bind flags the next
// synchronized present for barrier warm-up.
func (c *Client) EnableSwapBarrier(device native.Device, on bool) {
	if !c.usable() {
		return
	}
	if c.groupID.Load() != 1 {
		Logger().Info("enable swap barrier skipped, not in swap group 1")
		return
	}
	var newBarrier uint32
	if on {
		newBarrier = 1
	}
	Logger().Info("enable swap barrier", "enable", on, "barrier", newBarrier)

	if newBarrier == c.barrierID.Load() || newBarrier > c.maxBarriers {
		return
	}
	s := c.fl.BindSwapBarrier(device, c.groupID.Load(), newBarrier)
	if s != driver.StatusOK {
		Logger().Error("bind swap barrier failed",
			"barrier", newBarrier, "status", s.String(), "err", c.fl.ErrorString(s))
		return
	}
	c.barrierID.Store(newBarrier)
	if newBarrier > 0 {
		c.needWarmup = true
	}
}

// EnableSyncCounter selects the vendor frame counter (on) or the local
// one (off).
func (c *Client) EnableSyncCounter(on bool) {
	c.syncCounter = on
}

// QueryFrameCount returns the cluster frame counter. In local-counter mode
// the counter advances on every query.
func (c *Client) QueryFrameCount(device native.Device) uint32 {
	if c.syncCounter && c.usable() {
		if count, s := c.fl.QueryFrameCount(device); s == driver.StatusOK {
			c.frameCount = count
		}
	} else {
		c.frameCount++
	}
	return c.frameCount
}

// ResetFrameCount resets the cluster counter on the master node and the
// local counter elsewhere.
func (c *Client) ResetFrameCount(device native.Device) {
	if c.isMaster && c.usable() {
		if s := c.fl.ResetFrameCount(device); s != driver.StatusOK {
			Logger().Warn("reset frame count failed", "status", s.String(), "err", c.fl.ErrorString(s))
		}
		return
	}
	c.frameCount = 0
}

// SkipSynchronizedPresentOfNextFrame makes exactly the next Render call
// return false without touching the driver, telling the host to present
// through its own path once.
func (c *Client) SkipSynchronizedPresentOfNextFrame() {
	c.skipNext = true
}

// Render performs the synchronized present. While warm-up is pending it
// drives the adapter's repeat sequence, consulting the oracle after each
// successful present. It returns false when the host must present the
// frame itself.
func (c *Client) Render(device native.Device, swapChain native.SwapChain, syncInterval, flags uint32) bool {
	if c.skipNext {
		c.skipNext = false
		return false
	}
	if !c.usable() {
		return false
	}

	warming := c.needWarmup && c.gfx != nil
	if warming {
		c.gfx.InitiateRepeats()
	}

	for {
		s := c.fl.Present(device, swapChain, syncInterval, flags)
		if s != driver.StatusOK {
			c.presentFail.Add(1)
			Logger().Error("synchronized present failed",
				"status", s.String(), "code", int32(s), "err", c.fl.ErrorString(s))
			return false
		}
		c.presentOK.Add(1)

		if warming {
			switch c.oracle() {
			case RepeatPresent:
				c.gfx.PrepareSingleRepeat()
				continue
			case BarrierWarmedUp:
				c.gfx.ConcludeRepeats()
				c.needWarmup = false
			}
		}
		break
	}
	return true
}
