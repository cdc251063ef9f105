// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"github.com/gogpu/layercache/internal/logging"
	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/upload"
)

// Table maps layers to their registries.
type Table struct {
	env        *Env
	registries map[layer.Proxy]*Registry
}

// NewTable creates an empty table. Missing Env fields get defaults: a
// memory loader and the default pool's global objects.
func NewTable(env Env) *Table {
	if env.Loader == nil {
		env.Loader = upload.NewMemoryLoader()
	}
	if env.Global == nil {
		env.Global = pool.Default.NonListObjects()
	}
	return &Table{
		env:        &env,
		registries: make(map[layer.Proxy]*Registry),
	}
}

// Env returns the environment shared by the table's usages.
func (t *Table) Env() *Env { return t.env }

// Registry returns the registry of proxy, creating it on first use.
func (t *Table) Registry(proxy layer.Proxy) *Registry {
	if r, ok := t.registries[proxy]; ok {
		return r
	}
	r := NewRegistry(proxy, t.env)
	t.registries[proxy] = r
	return r
}

// Lookup returns the registry of proxy without creating one.
func (t *Table) Lookup(proxy layer.Proxy) (*Registry, bool) {
	r, ok := t.registries[proxy]
	return r, ok
}

// Len returns the number of registries.
func (t *Table) Len() int { return len(t.registries) }

// Usages returns the number of usages across all registries.
func (t *Table) Usages() int {
	n := 0
	for _, r := range t.registries {
		n += r.Len()
	}
	return n
}

// RemoveLayer forgets doomed. Its own registry is erased first; then every
// remaining registry drops or detaches its references to doomed.
func (t *Table) RemoveLayer(doomed layer.Proxy) {
	if r, ok := t.registries[doomed]; ok {
		delete(t.registries, doomed)
		r.erase()
	}
	for _, r := range t.registries {
		r.RemoveReferencesToLayer(doomed)
	}
	logging.Logger().Info("resource: layer removed",
		"layer", doomed.LayerName(), "registries", len(t.registries))
}

// Clear erases every registry.
func (t *Table) Clear() {
	for proxy, r := range t.registries {
		delete(t.registries, proxy)
		r.erase()
	}
}
