// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// ErrBudgetExceeded is returned when a load would exceed the memory budget.
var ErrBudgetExceeded = errors.New("upload: memory budget exceeded")

// BudgetStats contains tile memory statistics.
type BudgetStats struct {
	// BudgetBytes is the budget; 0 means unlimited.
	BudgetBytes uint64

	// UsedBytes is the memory held by live tiles.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes observed.
	PeakBytes uint64

	// LiveTiles is the number of tiles not yet released.
	LiveTiles int

	// Rejected is the number of loads refused for lack of budget.
	Rejected uint64
}

// String returns a human-readable summary.
func (s BudgetStats) String() string {
	budget := "unlimited"
	if s.BudgetBytes > 0 {
		budget = humanize.IBytes(s.BudgetBytes)
	}
	return fmt.Sprintf("Tiles[%d live, %s used, %s peak, budget %s, %d rejected]",
		s.LiveTiles,
		humanize.IBytes(s.UsedBytes),
		humanize.IBytes(s.PeakBytes),
		budget,
		s.Rejected)
}

// Budget wraps a TileLoader, accounting for the memory held by live tiles
// and refusing loads that would exceed the budget.
//
// Budget is safe for concurrent use.
type Budget struct {
	mu     sync.Mutex
	next   TileLoader
	budget uint64
	stats  BudgetStats
}

// NewBudget wraps next with a budget in bytes. A budget of 0 only counts.
func NewBudget(next TileLoader, budgetBytes uint64) *Budget {
	return &Budget{
		next:   next,
		budget: budgetBytes,
		stats:  BudgetStats{BudgetBytes: budgetBytes},
	}
}

// LoadTile implements TileLoader.
func (b *Budget) LoadTile(req TileRequest) (Tile, error) {
	size := req.SizeBytes()

	b.mu.Lock()
	if b.budget > 0 && b.stats.UsedBytes+size > b.budget {
		b.stats.Rejected++
		used := b.stats.UsedBytes
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s requested with %s of %s in use",
			ErrBudgetExceeded, humanize.IBytes(size), humanize.IBytes(used), humanize.IBytes(b.budget))
	}
	b.mu.Unlock()

	t, err := b.next.LoadTile(req)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.stats.UsedBytes += t.SizeBytes()
	b.stats.LiveTiles++
	if b.stats.UsedBytes > b.stats.PeakBytes {
		b.stats.PeakBytes = b.stats.UsedBytes
	}
	b.mu.Unlock()

	return &budgetTile{Tile: t, budget: b}, nil
}

// Stats returns current statistics.
func (b *Budget) Stats() BudgetStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

type budgetTile struct {
	Tile
	budget   *Budget
	released bool
}

// Release returns the tile's memory to the budget.
func (t *budgetTile) Release() {
	t.budget.mu.Lock()
	if t.released {
		t.budget.mu.Unlock()
		return
	}
	t.released = true
	t.budget.stats.UsedBytes -= t.SizeBytes()
	t.budget.stats.LiveTiles--
	t.budget.mu.Unlock()

	t.Tile.Release()
}

// Ensure Budget implements TileLoader.
var _ TileLoader = (*Budget)(nil)
