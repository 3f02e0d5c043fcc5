package backend

import (
	"sync"

	"github.com/Unity-Technologies/ClusterDisplay/native"
)

// Factory creates an adapter over the given borrowed handles.
type Factory func(cfg Config) (GraphicsDevice, error)

// registry holds the adapter factory per graphics API.
var (
	registryMu sync.RWMutex
	factories  = make(map[native.Renderer]Factory)
)

// Register registers an adapter factory for a renderer. It is typically
// called from init functions of adapter implementations. Registering the
// same renderer twice replaces the previous factory.
func Register(r native.Renderer, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[r] = f
}

// Supported reports whether an adapter is registered for the renderer.
func Supported(r native.Renderer) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[r]
	return ok
}

// New constructs the adapter registered for the renderer.
func New(r native.Renderer, cfg Config) (GraphicsDevice, error) {
	registryMu.RLock()
	f, ok := factories[r]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrRendererNotSupported
	}
	if cfg.Device == nil {
		return nil, ErrMissingDevice
	}
	if cfg.SwapChain == nil {
		return nil, ErrMissingSwapChain
	}
	return f(cfg)
}
