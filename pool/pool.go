// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pool holds helper resources shared between layer caches.
//
// Two kinds of sharing exist. [ListObjects] are tied to a GPU sharing
// group: every cache whose device provider returns the same device gets the
// same instance, so meshes and shader modules are built once per device.
// [NonListObjects] are independent of any device and shared by everyone.
package pool

import (
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/layercache/internal/logging"
)

// Pools hands out shared helper resources.
// Pools is safe for concurrent use.
type Pools struct {
	mu     sync.Mutex
	groups map[gpucontext.Device]*ListObjects

	globalOnce sync.Once
	global     *NonListObjects
}

// Default is the process-wide pool used when a cache is not given its own.
var Default = New()

// New creates an empty set of pools.
func New() *Pools {
	return &Pools{groups: make(map[gpucontext.Device]*ListObjects)}
}

// ListObjects returns the objects shared by the sharing group of provider.
// Providers returning the same device share an instance. A nil provider, or
// one without a device, belongs to the headless group.
func (p *Pools) ListObjects(provider gpucontext.DeviceProvider) *ListObjects {
	key := groupKey(provider)

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.groups[key]; ok {
		return l
	}
	l := newListObjects(provider, p.NonListObjects())
	p.groups[key] = l
	logging.Logger().Info("pool: sharing group created",
		"headless", key == nil, "hal", l.device != nil, "groups", len(p.groups))
	return l
}

// NonListObjects returns the objects shared by every sharing group.
func (p *Pools) NonListObjects() *NonListObjects {
	p.globalOnce.Do(func() {
		p.global = newNonListObjects()
	})
	return p.global
}

// Release drops the sharing group of provider and destroys its device
// objects. Caches still holding the group keep a usable CPU-side instance
// but lose its shader modules.
func (p *Pools) Release(provider gpucontext.DeviceProvider) {
	key := groupKey(provider)

	p.mu.Lock()
	l, ok := p.groups[key]
	delete(p.groups, key)
	p.mu.Unlock()

	if ok {
		l.destroy()
	}
}

// Groups returns the number of live sharing groups.
func (p *Pools) Groups() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.groups)
}

func groupKey(provider gpucontext.DeviceProvider) gpucontext.Device {
	if provider == nil {
		return nil
	}
	return provider.Device()
}
