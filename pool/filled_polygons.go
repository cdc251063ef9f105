// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"sync"

	"github.com/gogpu/layercache/layer"
)

// filledInitialCapacity is the initial vertex capacity of the renderer's
// scratch buffers.
const filledInitialCapacity = 256

// FilledMesh is a set of polygons ready for stencil-then-cover drawing.
type FilledMesh struct {
	Positions []layer.Vec3
	Indices   []uint32

	// Polygons is the number of rings that produced triangles.
	Polygons int
}

// FilledPolygonRenderer converts polygon rings into triangle fans.
//
// Each ring is fanned from its first vertex. The fan is only correct for
// convex rings on its own; concave and self-intersecting rings rely on the
// stencil pass to resolve winding, so the tessellation never has to.
//
// The renderer reuses its scratch buffers across calls and is safe for
// concurrent use.
type FilledPolygonRenderer struct {
	mu        sync.Mutex
	positions []layer.Vec3
	indices   []uint32
}

// NewFilledPolygonRenderer creates a renderer with pre-allocated scratch
// buffers.
func NewFilledPolygonRenderer() *FilledPolygonRenderer {
	return &FilledPolygonRenderer{
		positions: make([]layer.Vec3, 0, filledInitialCapacity),
		indices:   make([]uint32, 0, filledInitialCapacity*3),
	}
}

// Tessellate fans every ring with at least three vertices. rotation, if
// not nil, gives the rotation applied to each plate's vertices.
func (r *FilledPolygonRenderer) Tessellate(polys []layer.Polygon, rotation func(plateID int) layer.Rotation) FilledMesh {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.positions = r.positions[:0]
	r.indices = r.indices[:0]
	n := 0
	for _, p := range polys {
		if len(p.Ring) < 3 {
			continue
		}
		rot := layer.IdentityRotation()
		if rotation != nil {
			rot = rotation(p.PlateID)
		}
		base := uint32(len(r.positions)) //nolint:gosec // G115: vertex count fits uint32
		for _, ll := range p.Ring {
			r.positions = append(r.positions, rot.Apply(ll.Vector()))
		}
		r.indices = AppendFan(r.indices, base, len(p.Ring))
		n++
	}

	return FilledMesh{
		Positions: append([]layer.Vec3(nil), r.positions...),
		Indices:   append([]uint32(nil), r.indices...),
		Polygons:  n,
	}
}

// AppendFan appends the triangles (v0, vi, vi+1) of a fan over n vertices
// starting at base.
func AppendFan(dst []uint32, base uint32, n int) []uint32 {
	for i := 1; i+1 < n; i++ {
		dst = append(dst, base, base+uint32(i), base+uint32(i+1)) //nolint:gosec // G115: i < n
	}
	return dst
}
