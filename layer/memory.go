// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import "github.com/gogpu/layercache/token"

// RasterProxy is an in-memory RasterSource. Setters invalidate the
// matching subject, deferred through the batch context if one is attached.
type RasterProxy struct {
	name   string
	batch  *token.Batch
	raster *RawRaster
	georef *Georeferencing

	featureSubject token.Subject
	contentSubject token.Subject
}

// NewRasterProxy creates an empty raster proxy. batch may be nil.
func NewRasterProxy(name string, batch *token.Batch) *RasterProxy {
	return &RasterProxy{name: name, batch: batch}
}

// LayerName implements Proxy.
func (p *RasterProxy) LayerName() string { return p.name }

// Raster implements RasterSource.
func (p *RasterProxy) Raster() (*RawRaster, bool) {
	return p.raster, p.raster != nil
}

// Georeferencing implements RasterSource.
func (p *RasterProxy) Georeferencing() (Georeferencing, bool) {
	if p.georef == nil {
		return Georeferencing{}, false
	}
	return *p.georef, true
}

// RasterFeatureSubject implements RasterSource.
func (p *RasterProxy) RasterFeatureSubject() *token.Subject { return &p.featureSubject }

// RasterContentSubject implements RasterSource.
func (p *RasterProxy) RasterContentSubject() *token.Subject { return &p.contentSubject }

// SetRaster replaces the pixel content. Nil unloads the raster.
func (p *RasterProxy) SetRaster(r *RawRaster) {
	p.raster = r
	p.batch.Invalidate(&p.contentSubject)
}

// SetGeoreferencing sets the raster's position on the globe.
func (p *RasterProxy) SetGeoreferencing(g Georeferencing) {
	p.georef = &g
	p.batch.Invalidate(&p.featureSubject)
}

// ClearGeoreferencing removes the georeferencing.
func (p *RasterProxy) ClearGeoreferencing() {
	p.georef = nil
	p.batch.Invalidate(&p.featureSubject)
}

// ReconstructionProxy is an in-memory ReconstructionSource with a simple
// rotation model: each plate rotates about a fixed pole at a constant rate.
type ReconstructionProxy struct {
	name     string
	batch    *token.Batch
	polygons []Polygon
	loaded   bool
	poles    map[int]stagePole

	geometrySubject token.Subject
	rotationSubject token.Subject
}

type stagePole struct {
	pole LatLon
	rate float32 // degrees per Myr
}

// NewReconstructionProxy creates a proxy with no polygons. batch may be nil.
func NewReconstructionProxy(name string, batch *token.Batch) *ReconstructionProxy {
	return &ReconstructionProxy{name: name, batch: batch, poles: make(map[int]stagePole)}
}

// LayerName implements Proxy.
func (p *ReconstructionProxy) LayerName() string { return p.name }

// PresentDayPolygons implements ReconstructionSource.
func (p *ReconstructionProxy) PresentDayPolygons() ([]Polygon, bool) {
	return p.polygons, p.loaded
}

// RotationAt implements ReconstructionSource. Plates without a pole do not
// move.
func (p *ReconstructionProxy) RotationAt(plateID int, time float64) Rotation {
	sp, ok := p.poles[plateID]
	if !ok || time == 0 {
		return IdentityRotation()
	}
	return Rotation{Pole: sp.pole, Angle: sp.rate * float32(time)}
}

// GeometrySubject implements ReconstructionSource.
func (p *ReconstructionProxy) GeometrySubject() *token.Subject { return &p.geometrySubject }

// RotationSubject implements ReconstructionSource.
func (p *ReconstructionProxy) RotationSubject() *token.Subject { return &p.rotationSubject }

// SetPolygons replaces the present-day polygons.
func (p *ReconstructionProxy) SetPolygons(polys []Polygon) {
	p.polygons = polys
	p.loaded = true
	p.batch.Invalidate(&p.geometrySubject)
}

// SetStagePole sets the rotation of a plate: rate degrees per Myr about pole.
func (p *ReconstructionProxy) SetStagePole(plateID int, pole LatLon, rate float32) {
	p.poles[plateID] = stagePole{pole: pole, rate: rate}
	p.batch.Invalidate(&p.rotationSubject)
}

// Ensure the in-memory proxies implement their capabilities.
var (
	_ RasterSource         = (*RasterProxy)(nil)
	_ ReconstructionSource = (*ReconstructionProxy)(nil)
)
