// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/token"
)

// ReconstructedRaster is a cube raster drawn through reconstructed
// polygons, optionally masked by an age grid and lit by a normal map.
type ReconstructedRaster struct {
	Cube *CubeRaster

	// Meshes is nil when no reconstruction is wired in; the raster is then
	// drawn at its present-day position.
	Meshes *PolygonMeshes

	// AgeGrid is nil when the raster is not age masked.
	AgeGrid *AgeGrid

	// NormalMap is nil when the raster is not surface lit.
	NormalMap *CubeRaster

	Time float64
}

// Reconstructed reports whether the raster is drawn through polygons.
func (r *ReconstructedRaster) Reconstructed() bool { return r.Meshes != nil }

// TileSets returns every tile set the raster draws from.
func (r *ReconstructedRaster) TileSets() []*TileSet {
	sets := []*TileSet{r.Cube.Tiles}
	if r.AgeGrid != nil {
		sets = append(sets, r.AgeGrid.Coverage, r.AgeGrid.Mask)
	}
	if r.NormalMap != nil {
		sets = append(sets, r.NormalMap.Tiles)
	}
	return sets
}

// ReconstructedRasterUsage combines a layer's cube raster with optional
// inputs from other layers: reconstructed polygon meshes, an age grid and a
// normal map.
//
// Wiring a different optional producer rebuilds the raster. Changes within
// the wired producers, or a new reconstruction time, refresh it in place.
// Without any optional input the cube raster passes through unreconstructed.
type ReconstructedRasterUsage struct {
	usageBase

	cube *CubeRasterUsage
	wiring

	// built is the wiring the current value was built with.
	built wiring

	cubeObserver      token.Observer
	meshesObserver    token.Observer
	ageGridObserver   token.Observer
	normalMapObserver token.Observer

	value     *ReconstructedRaster
	refreshes int
}

// wiring is the set of optional producers, compared by identity.
type wiring struct {
	meshes    *PolygonMeshesUsage
	ageGrid   *AgeGridUsage
	normalMap *CubeRasterUsage
}

func newReconstructedRasterUsage(proxy layer.Proxy, cube *CubeRasterUsage, env *Env) *ReconstructedRasterUsage {
	return &ReconstructedRasterUsage{
		usageBase: usageBase{kind: KindReconstructedRaster, proxy: proxy, env: env},
		cube:      cube,
	}
}

// SetReconstruction wires the polygon meshes to reconstruct through. Nil
// draws the raster unreconstructed. Producers are compared by identity with
// those the raster was last built with, so wiring back the same producer
// costs nothing.
func (u *ReconstructedRasterUsage) SetReconstruction(m *PolygonMeshesUsage) {
	u.meshes = m
}

// SetAgeGrid wires the age grid masking the raster. Nil disables masking.
func (u *ReconstructedRasterUsage) SetAgeGrid(a *AgeGridUsage) {
	u.ageGrid = a
}

// SetNormalMap wires the cube raster used as a normal map. Nil disables
// surface lighting.
func (u *ReconstructedRasterUsage) SetNormalMap(n *CubeRasterUsage) {
	u.normalMap = n
}

// Reconstruction returns the wired polygon meshes usage, if any.
func (u *ReconstructedRasterUsage) Reconstruction() *PolygonMeshesUsage { return u.meshes }

// AgeGrid returns the wired age grid usage, if any.
func (u *ReconstructedRasterUsage) AgeGrid() *AgeGridUsage { return u.ageGrid }

// NormalMap returns the wired normal map usage, if any.
func (u *ReconstructedRasterUsage) NormalMap() *CubeRasterUsage { return u.normalMap }

// Refreshes returns the number of in-place refreshes.
func (u *ReconstructedRasterUsage) Refreshes() int { return u.refreshes }

// IsRequiredDependency implements Usage. Optional inputs are never
// reported.
func (u *ReconstructedRasterUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy || u.cube.IsRequiredDependency(proxy)
}

// RemovingLayer implements Usage by unwiring every optional input that
// needs proxy.
func (u *ReconstructedRasterUsage) RemovingLayer(proxy layer.Proxy) {
	if u.meshes != nil && u.meshes.IsRequiredDependency(proxy) {
		u.SetReconstruction(nil)
	}
	if u.ageGrid != nil && u.ageGrid.IsRequiredDependency(proxy) {
		u.SetAgeGrid(nil)
	}
	if u.normalMap != nil && u.normalMap.IsRequiredDependency(proxy) {
		u.SetNormalMap(nil)
	}
}

// Get returns the raster at time, or nil when the layer's cube raster is
// unavailable. Missing optional inputs only degrade the result.
func (u *ReconstructedRasterUsage) Get(time float64) *ReconstructedRaster {
	if u.orphaned {
		return nil
	}

	cube := u.cube.Get()
	if cube == nil {
		u.clear()
		return nil
	}

	var (
		meshes    *PolygonMeshes
		ageGrid   *AgeGrid
		normalMap *CubeRaster
	)
	stale := !u.cubeObserver.IsUpToDate(u.cube.Subject())
	if u.meshes != nil {
		meshes = u.meshes.Get(time)
		stale = stale || !u.meshesObserver.IsUpToDate(u.meshes.Subject())
	}
	if u.ageGrid != nil {
		ageGrid = u.ageGrid.Get(time)
		stale = stale || !u.ageGridObserver.IsUpToDate(u.ageGrid.Subject())
	}
	if u.normalMap != nil {
		normalMap = u.normalMap.Get()
		stale = stale || !u.normalMapObserver.IsUpToDate(u.normalMap.Subject())
	}

	if u.value != nil {
		switch {
		case u.wiring != u.built || cube != u.value.Cube:
			u.clear()
		case stale || time != u.value.Time:
			u.value.Meshes = meshes
			u.value.AgeGrid = ageGrid
			u.value.NormalMap = normalMap
			u.value.Time = time
			u.refreshes++
			u.subject.Invalidate()
		}
	}
	u.syncObservers()

	if u.value == nil {
		u.value = &ReconstructedRaster{
			Cube:      cube,
			Meshes:    meshes,
			AgeGrid:   ageGrid,
			NormalMap: normalMap,
			Time:      time,
		}
		u.built = u.wiring
		u.rebuilt("cube raster or optional wiring changed")
	}
	return u.value
}

func (u *ReconstructedRasterUsage) syncObservers() {
	u.cubeObserver.Sync(u.cube.Subject())
	if u.meshes != nil {
		u.meshesObserver.Sync(u.meshes.Subject())
	}
	if u.ageGrid != nil {
		u.ageGridObserver.Sync(u.ageGrid.Subject())
	}
	if u.normalMap != nil {
		u.normalMapObserver.Sync(u.normalMap.Subject())
	}
}

func (u *ReconstructedRasterUsage) clear() {
	if u.value == nil {
		return
	}
	u.value = nil
	u.subject.Invalidate()
}

func (u *ReconstructedRasterUsage) orphan() {
	u.orphaned = true
	u.wiring = wiring{}
	u.clear()
}
