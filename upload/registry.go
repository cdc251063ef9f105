// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package upload

import (
	"errors"
	"sort"
	"sync"
)

// LoaderFactory creates a TileLoader for a device provider.
type LoaderFactory func(provider DeviceHandle) (TileLoader, error)

// RegistryEntry represents a registered loader backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: GPU upload through HAL
	//   - 10: CPU memory
	Priority int

	// Factory creates loader instances.
	Factory LoaderFactory

	// Available reports if the backend can serve the provider.
	Available func(provider DeviceHandle) bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered loader backends.
//
// Example registration:
//
//	func init() {
//	    upload.Register("vulkan-staging", 120, stagingFactory, stagingAvailable)
//	}
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and NewLoader.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory LoaderFactory, available func(DeviceHandle) bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// NewLoader creates a loader using the best backend available for provider.
func NewLoader(provider DeviceHandle) (TileLoader, error) {
	return globalRegistry.NewLoader(provider)
}

// NewLoaderByName creates a loader using a specific named backend.
func NewLoaderByName(name string, provider DeviceHandle) (TileLoader, error) {
	return globalRegistry.NewLoaderByName(name, provider)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory LoaderFactory, available func(DeviceHandle) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}

	if available == nil {
		available = func(DeviceHandle) bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(nil)
}

// NewLoader creates a loader using the best backend available for provider.
// Backends are tried in priority order; the first that succeeds wins.
func (r *Registry) NewLoader(provider DeviceHandle) (TileLoader, error) {
	r.mu.RLock()
	available := r.sortedNames(provider)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var lastErr error
	for _, name := range available {
		l, err := r.NewLoaderByName(name, provider)
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewLoaderByName creates a loader using a specific backend.
func (r *Registry) NewLoaderByName(name string, provider DeviceHandle) (TileLoader, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !entry.Available(provider) {
		return nil, &BackendUnavailableError{Name: name}
	}
	return entry.Factory(provider)
}

// sortedNames returns backend names sorted by priority (highest first).
// A non-nil provider filters to backends available for it.
// Must be called with lock held.
func (r *Registry) sortedNames(provider DeviceHandle) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if provider != nil && !e.Available(provider) {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Errors.
var (
	// ErrNoBackendAvailable is returned when no loader backends are
	// registered or available for the provider.
	ErrNoBackendAvailable = errors.New("upload: no backend available")
)

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "upload: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "upload: backend unavailable: " + e.Name
}

// init registers the built-in backends.
func init() {
	Register("hal", 100, func(p DeviceHandle) (TileLoader, error) {
		return NewHALLoader(p)
	}, func(p DeviceHandle) bool { return HasHAL(p) })

	Register("memory", 10, func(DeviceHandle) (TileLoader, error) {
		return NewMemoryLoader(), nil
	}, nil)
}
