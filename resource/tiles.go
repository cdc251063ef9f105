// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"sync/atomic"

	"github.com/gogpu/layercache/upload"
)

// TileSet is a group of uploaded tiles with a reference count. The usage
// that built the set holds one reference; each cache handle drawing it
// holds another. The tiles are released when the last reference goes.
type TileSet struct {
	tiles []upload.Tile
	refs  atomic.Int32
}

func newTileSet(capacity int) *TileSet {
	s := &TileSet{tiles: make([]upload.Tile, 0, capacity)}
	s.refs.Store(1)
	return s
}

// loadAll uploads every request in order. On failure the tiles loaded so
// far are released and the error returned.
func loadAll(loader upload.TileLoader, reqs []upload.TileRequest) (*TileSet, error) {
	s := newTileSet(len(reqs))
	for _, req := range reqs {
		t, err := loader.LoadTile(req)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.tiles = append(s.tiles, t)
	}
	return s, nil
}

// Retain adds a reference and returns s.
func (s *TileSet) Retain() *TileSet {
	s.refs.Add(1)
	return s
}

// Release drops a reference. Dropping the last one releases the tiles.
func (s *TileSet) Release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	for _, t := range s.tiles {
		t.Release()
	}
}

// Len returns the number of tiles.
func (s *TileSet) Len() int { return len(s.tiles) }

// At returns tile i.
func (s *TileSet) At(i int) upload.Tile { return s.tiles[i] }

// SizeBytes returns the memory held by the tiles.
func (s *TileSet) SizeBytes() uint64 {
	var n uint64
	for _, t := range s.tiles {
		n += t.SizeBytes()
	}
	return n
}

// update rewrites tile i in place.
func (s *TileSet) update(i int, pixels []byte) error {
	return s.tiles[i].Update(pixels)
}
