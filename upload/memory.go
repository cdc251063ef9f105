// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package upload

import (
	"errors"
	"sync"
)

// ErrInjectedFailure is returned by MemoryLoader after FailNext.
var ErrInjectedFailure = errors.New("upload: injected load failure")

// MemoryLoader is a headless TileLoader keeping CPU copies of every tile.
//
// MemoryLoader is safe for concurrent use.
type MemoryLoader struct {
	mu       sync.Mutex
	loads    int
	updates  int
	releases int
	live     map[*MemoryTile]struct{}
	failNext int
}

// NewMemoryLoader creates an empty loader.
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{live: make(map[*MemoryTile]struct{})}
}

// LoadTile implements TileLoader.
func (l *MemoryLoader) LoadTile(req TileRequest) (Tile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failNext > 0 {
		l.failNext--
		return nil, ErrInjectedFailure
	}

	t := &MemoryTile{
		loader: l,
		req:    req,
		pixels: append([]byte(nil), req.Pixels...),
	}
	t.req.Pixels = nil
	l.loads++
	l.live[t] = struct{}{}
	return t, nil
}

// FailNext makes the next n loads fail with ErrInjectedFailure.
func (l *MemoryLoader) FailNext(n int) {
	l.mu.Lock()
	l.failNext = n
	l.mu.Unlock()
}

// Loads returns the number of successful loads.
func (l *MemoryLoader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Updates returns the number of in-place updates.
func (l *MemoryLoader) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// Releases returns the number of released tiles.
func (l *MemoryLoader) Releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releases
}

// Live returns the number of tiles loaded and not yet released.
func (l *MemoryLoader) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// MemoryTile is a tile held in CPU memory.
type MemoryTile struct {
	loader   *MemoryLoader
	req      TileRequest
	pixels   []byte
	released bool
}

// Request returns the request the tile was loaded with, without pixels.
func (t *MemoryTile) Request() TileRequest {
	return t.req
}

// Pixels returns the tile's current pixels.
func (t *MemoryTile) Pixels() []byte {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()
	return t.pixels
}

// Update implements Tile.
func (t *MemoryTile) Update(pixels []byte) error {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()

	if t.released {
		return ErrTileReleased
	}
	if len(pixels) != len(t.pixels) {
		return ErrInvalidTile
	}
	copy(t.pixels, pixels)
	t.loader.updates++
	return nil
}

// Release implements Tile.
func (t *MemoryTile) Release() {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()

	if t.released {
		return
	}
	t.released = true
	t.loader.releases++
	delete(t.loader.live, t)
}

// SizeBytes implements Tile.
func (t *MemoryTile) SizeBytes() uint64 {
	return uint64(len(t.pixels))
}

// Ensure MemoryLoader implements TileLoader.
var _ TileLoader = (*MemoryLoader)(nil)
