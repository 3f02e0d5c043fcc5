// Package sim provides a deterministic in-process stand-in for the vendor
// frame-lock facility. A single Cluster is shared by every simulated node;
// it tracks group membership, barrier binds and a cluster-wide frame
// counter, and supports scripted failure injection for tests and bring-up
// without frame-lock hardware.
package sim

import (
	"sync"

	"github.com/Unity-Technologies/ClusterDisplay/driver"
	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// Option configures a Cluster.
type Option func(*Cluster)

// WithLimits sets the driver-reported swap-group and barrier capacities.
func WithLimits(maxGroups, maxBarriers uint32) Option {
	return func(c *Cluster) {
		c.maxGroups = maxGroups
		c.maxBarriers = maxBarriers
	}
}

// WithGPUCount sets the number of physical GPUs the driver enumerates.
func WithGPUCount(n int) Option {
	return func(c *Cluster) {
		c.gpuCount = n
	}
}

// WithEngagedAfter sets how many presents a freshly bound barrier consumes
// before it engages.
func WithEngagedAfter(presents int) Option {
	return func(c *Cluster) {
		c.engagedAfter = presents
	}
}

// Cluster is a deterministic fake of the vendor frame-lock driver. Safe
// for concurrent use by multiple simulated nodes.
type Cluster struct {
	mu sync.Mutex

	maxGroups    uint32
	maxBarriers  uint32
	gpuCount     int
	engagedAfter int

	initialized bool
	frameCount  uint32

	workstation map[driver.GPU]bool
	groups      map[native.Device]uint32
	barriers    map[native.Device]uint32

	// presentsSinceBind counts presents per device since its last
	// non-zero barrier bind.
	presentsSinceBind map[native.Device]int

	// failures maps an operation name to the number of upcoming calls
	// that must fail.
	failures map[string]int

	// calls counts invocations per operation name.
	calls map[string]int
}

// New creates a cluster with one GPU, one swap group and one barrier.
func New(opts ...Option) *Cluster {
	c := &Cluster{
		maxGroups:         1,
		maxBarriers:       1,
		gpuCount:          1,
		workstation:       make(map[driver.GPU]bool),
		groups:            make(map[native.Device]uint32),
		barriers:          make(map[native.Device]uint32),
		presentsSinceBind: make(map[native.Device]int),
		failures:          make(map[string]int),
		calls:             make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FailNext makes the next n calls of the named operation return the
// generic driver error. Operation names match the FrameLock method names.
func (c *Cluster) FailNext(op string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = n
}

// Calls returns how many times the named operation was invoked.
func (c *Cluster) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// PresentsSinceBind returns the number of synchronized presents the device
// performed since its last barrier bind.
func (c *Cluster) PresentsSinceBind(device native.Device) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presentsSinceBind[device]
}

// BarrierEngaged reports whether the device's barrier has consumed enough
// presents to engage.
func (c *Cluster) BarrierEngaged(device native.Device) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.barriers[device] > 0 && c.presentsSinceBind[device] >= c.engagedAfter
}

// FrameCount returns the cluster-wide frame counter.
func (c *Cluster) FrameCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCount
}

// enter records the call and consumes one scripted failure if present.
// Callers hold c.mu.
func (c *Cluster) enter(op string) driver.Status {
	c.calls[op]++
	if c.failures[op] > 0 {
		c.failures[op]--
		return driver.StatusError
	}
	return driver.StatusOK
}

// Initialize prepares the simulated facility.
func (c *Cluster) Initialize() driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("Initialize"); s != driver.StatusOK {
		return s
	}
	c.initialized = true
	return driver.StatusOK
}

// EnumerateGpus lists the simulated GPUs.
func (c *Cluster) EnumerateGpus() ([]driver.GPU, driver.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("EnumerateGpus"); s != driver.StatusOK {
		return nil, s
	}
	gpus := make([]driver.GPU, c.gpuCount)
	for i := range gpus {
		gpus[i] = driver.GPU(i + 1)
	}
	return gpus, driver.StatusOK
}

// EnableWorkstationFeature flips the workstation swap-group registration.
func (c *Cluster) EnableWorkstationFeature(gpu driver.GPU, enable bool) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("EnableWorkstationFeature"); s != driver.StatusOK {
		return s
	}
	c.workstation[gpu] = enable
	return driver.StatusOK
}

// QueryMaxSwapGroup reports the configured capacities.
func (c *Cluster) QueryMaxSwapGroup(native.Device) (uint32, uint32, driver.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("QueryMaxSwapGroup"); s != driver.StatusOK {
		return 0, 0, s
	}
	return c.maxGroups, c.maxBarriers, driver.StatusOK
}

// JoinSwapGroup joins or leaves a swap group.
func (c *Cluster) JoinSwapGroup(device native.Device, _ native.SwapChain, group uint32, _ bool) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("JoinSwapGroup"); s != driver.StatusOK {
		return s
	}
	if !c.initialized {
		return driver.StatusAPINotInitialized
	}
	if group > c.maxGroups {
		return driver.StatusInvalidArgument
	}
	if group == 0 {
		delete(c.groups, device)
		delete(c.barriers, device)
		return driver.StatusOK
	}
	c.groups[device] = group
	return driver.StatusOK
}

// BindSwapBarrier binds or unbinds the group's barrier for the device.
func (c *Cluster) BindSwapBarrier(device native.Device, group, barrier uint32) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("BindSwapBarrier"); s != driver.StatusOK {
		return s
	}
	if !c.initialized {
		return driver.StatusAPINotInitialized
	}
	if barrier > c.maxBarriers {
		return driver.StatusInvalidArgument
	}
	if barrier > 0 && c.groups[device] != group {
		return driver.StatusInvalidArgument
	}
	if barrier == 0 {
		delete(c.barriers, device)
		return driver.StatusOK
	}
	c.barriers[device] = barrier
	c.presentsSinceBind[device] = 0
	return driver.StatusOK
}

// QuerySwapGroup returns the device's current group and barrier.
func (c *Cluster) QuerySwapGroup(device native.Device, _ native.SwapChain) (uint32, uint32, driver.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("QuerySwapGroup"); s != driver.StatusOK {
		return 0, 0, s
	}
	return c.groups[device], c.barriers[device], driver.StatusOK
}

// QueryFrameCount returns the cluster-wide frame counter.
func (c *Cluster) QueryFrameCount(native.Device) (uint32, driver.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("QueryFrameCount"); s != driver.StatusOK {
		return 0, s
	}
	if !c.initialized {
		return 0, driver.StatusAPINotInitialized
	}
	return c.frameCount, driver.StatusOK
}

// ResetFrameCount zeroes the cluster-wide frame counter.
func (c *Cluster) ResetFrameCount(native.Device) driver.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.enter("ResetFrameCount"); s != driver.StatusOK {
		return s
	}
	c.frameCount = 0
	return driver.StatusOK
}

// Present performs the simulated synchronized present: the swap chain
// flips through its native path and, when the device is in a swap group,
// the cluster counter advances.
func (c *Cluster) Present(device native.Device, swapChain native.SwapChain, syncInterval, flags uint32) driver.Status {
	c.mu.Lock()
	if s := c.enter("Present"); s != driver.StatusOK {
		c.mu.Unlock()
		return s
	}
	if c.groups[device] > 0 {
		c.frameCount++
	}
	if c.barriers[device] > 0 {
		c.presentsSinceBind[device]++
	}
	c.mu.Unlock()

	if swapChain != nil {
		if err := swapChain.Present(syncInterval, flags); err != nil {
			return driver.StatusError
		}
	}
	return driver.StatusOK
}

// ErrorString returns the human-readable text for a status code.
func (c *Cluster) ErrorString(s driver.Status) string {
	return s.String()
}
