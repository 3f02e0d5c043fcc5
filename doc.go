// Package framelock synchronizes frame presentation across a cluster of
// workstations through the graphics driver's swap-group and swap-barrier
// facility. It is embedded into a host engine that owns the graphics
// device, command queue and swap chain; the package takes over frame
// presentation so every participating node swaps its back buffer on the
// same hardware tick.
//
// The host talks to the package through a Plugin: device lifecycle events,
// integer render-event codes, the present-override query and a read-only
// status snapshot. The swap-group state machine itself lives in Client,
// the per-API warm-up adapters in package backend, and the vendor facility
// behind the driver.FrameLock facade.
//
// Everything except Status sampling runs on the host's render thread.
package framelock
