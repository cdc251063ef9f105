// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/token"
)

// PolygonMeshes are a reconstruction layer's present-day polygons
// triangulated once and rotated to a reconstruction time.
type PolygonMeshes struct {
	// Present holds the present-day vertices; PlateIDs the plate of each.
	Present  []layer.Vec3
	PlateIDs []int

	// Indices holds the triangle fans of every polygon.
	Indices  []uint32
	Polygons int

	// Reconstructed holds Present rotated to Time.
	Reconstructed []layer.Vec3
	Time          float64
}

// reconstruct rotates the present-day vertices to time.
func (m *PolygonMeshes) reconstruct(src layer.ReconstructionSource, time float64) {
	m.Time = time
	rotations := make(map[int]layer.Rotation)
	for i, v := range m.Present {
		id := m.PlateIDs[i]
		rot, ok := rotations[id]
		if !ok {
			rot = src.RotationAt(id, time)
			rotations[id] = rot
		}
		m.Reconstructed[i] = rot.Apply(v)
	}
}

// PolygonMeshesUsage triangulates a reconstruction layer's polygons.
//
// Only a geometry change rebuilds the meshes. A new reconstruction time or
// rotation model re-rotates the existing vertices in place; time is
// compared by value on every Get and never forces a rebuild.
type PolygonMeshesUsage struct {
	usageBase

	source layer.ReconstructionSource

	geometryObserver token.Observer
	rotationObserver token.Observer

	value   *PolygonMeshes
	updates int
}

func newPolygonMeshesUsage(source layer.ReconstructionSource, env *Env) *PolygonMeshesUsage {
	return &PolygonMeshesUsage{
		usageBase: usageBase{kind: KindPolygonMeshes, proxy: source, env: env},
		source:    source,
	}
}

// Updates returns the number of in-place re-rotations.
func (u *PolygonMeshesUsage) Updates() int { return u.updates }

// IsRequiredDependency implements Usage.
func (u *PolygonMeshesUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy
}

// Get returns the meshes reconstructed to time, or nil when the layer has
// no polygons loaded.
func (u *PolygonMeshesUsage) Get(time float64) *PolygonMeshes {
	if u.orphaned {
		return nil
	}

	polys, ok := u.source.PresentDayPolygons()
	if !ok {
		u.clear()
		return nil
	}

	geometry := u.source.GeometrySubject()
	rotation := u.source.RotationSubject()
	if !u.geometryObserver.IsUpToDate(geometry) {
		u.clear()
	}
	rotationStale := !u.rotationObserver.IsUpToDate(rotation)
	u.geometryObserver.Sync(geometry)
	u.rotationObserver.Sync(rotation)

	switch {
	case u.value == nil:
		u.value = triangulate(polys)
		u.value.reconstruct(u.source, time)
		u.rebuilt("present-day geometry changed")
	case rotationStale || u.value.Time != time:
		u.value.reconstruct(u.source, time)
		u.updates++
		u.subject.Invalidate()
	}
	return u.value
}

func triangulate(polys []layer.Polygon) *PolygonMeshes {
	m := &PolygonMeshes{}
	for _, p := range polys {
		if len(p.Ring) < 3 {
			continue
		}
		base := uint32(len(m.Present)) //nolint:gosec // G115: vertex count fits uint32
		for _, ll := range p.Ring {
			m.Present = append(m.Present, ll.Vector())
			m.PlateIDs = append(m.PlateIDs, p.PlateID)
		}
		m.Indices = pool.AppendFan(m.Indices, base, len(p.Ring))
		m.Polygons++
	}
	m.Reconstructed = make([]layer.Vec3, len(m.Present))
	return m
}

func (u *PolygonMeshesUsage) clear() {
	if u.value == nil {
		return
	}
	u.value = nil
	u.subject.Invalidate()
}

func (u *PolygonMeshesUsage) orphan() {
	u.orphaned = true
	u.clear()
}
