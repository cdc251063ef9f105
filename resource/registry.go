// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"

	"github.com/gogpu/layercache/layer"
)

// CapabilityError reports a usage requested from a layer that cannot
// supply its input. It is raised as a panic: asking for it is a
// programming error, not a runtime condition.
type CapabilityError struct {
	Layer      string
	Kind       Kind
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("resource: layer %q cannot supply %s for %s usage", e.Layer, e.Capability, e.Kind)
}

// Registry owns the usages of one layer, at most one per kind, created on
// first request. Capabilities of the layer are resolved once, when the
// registry is created.
type Registry struct {
	proxy  layer.Proxy
	raster layer.RasterSource
	recon  layer.ReconstructionSource
	env    *Env

	slots [numKinds]orphanable
}

// NewRegistry creates the registry of proxy.
func NewRegistry(proxy layer.Proxy, env *Env) *Registry {
	r := &Registry{proxy: proxy, env: env}
	r.raster, _ = proxy.(layer.RasterSource)
	r.recon, _ = proxy.(layer.ReconstructionSource)
	return r
}

// Layer returns the layer owning the registry.
func (r *Registry) Layer() layer.Proxy { return r.proxy }

// Usage returns the usage of kind k, or nil if it has not been created.
func (r *Registry) Usage(k Kind) Usage {
	if u := r.slots[k]; u != nil {
		return u
	}
	return nil
}

// Len returns the number of usages created.
func (r *Registry) Len() int {
	n := 0
	for _, u := range r.slots {
		if u != nil {
			n++
		}
	}
	return n
}

func (r *Registry) rasterSource(k Kind) layer.RasterSource {
	if r.raster == nil {
		panic(&CapabilityError{Layer: r.proxy.LayerName(), Kind: k, Capability: "rasters"})
	}
	return r.raster
}

func (r *Registry) reconstructionSource(k Kind) layer.ReconstructionSource {
	if r.recon == nil {
		panic(&CapabilityError{Layer: r.proxy.LayerName(), Kind: k, Capability: "reconstruction polygons"})
	}
	return r.recon
}

// AdaptedRasterUsage returns the layer's adapted raster usage.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) AdaptedRasterUsage() *AdaptedRasterUsage {
	if u, ok := r.slots[KindAdaptedRaster].(*AdaptedRasterUsage); ok {
		return u
	}
	u := newAdaptedRasterUsage(KindAdaptedRaster, r.rasterSource(KindAdaptedRaster), r.env)
	r.slots[KindAdaptedRaster] = u
	return u
}

// CubeRasterUsage returns the layer's cube raster usage.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) CubeRasterUsage() *CubeRasterUsage {
	if u, ok := r.slots[KindCubeRaster].(*CubeRasterUsage); ok {
		return u
	}
	u := newCubeRasterUsage(KindCubeRaster, r.rasterSource(KindCubeRaster), r.AdaptedRasterUsage(), r.env)
	r.slots[KindCubeRaster] = u
	return u
}

// AgeGridUsage returns the layer's age grid usage.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) AgeGridUsage() *AgeGridUsage {
	if u, ok := r.slots[KindAgeGrid].(*AgeGridUsage); ok {
		return u
	}
	u := newAgeGridUsage(r.rasterSource(KindAgeGrid), r.env)
	r.slots[KindAgeGrid] = u
	return u
}

// PolygonMeshesUsage returns the layer's polygon meshes usage.
// It panics with a *CapabilityError if the layer supplies no polygons.
func (r *Registry) PolygonMeshesUsage() *PolygonMeshesUsage {
	if u, ok := r.slots[KindPolygonMeshes].(*PolygonMeshesUsage); ok {
		return u
	}
	u := newPolygonMeshesUsage(r.reconstructionSource(KindPolygonMeshes), r.env)
	r.slots[KindPolygonMeshes] = u
	return u
}

// ReconstructedRasterUsage returns the layer's reconstructed raster usage.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) ReconstructedRasterUsage() *ReconstructedRasterUsage {
	if u, ok := r.slots[KindReconstructedRaster].(*ReconstructedRasterUsage); ok {
		return u
	}
	r.rasterSource(KindReconstructedRaster)
	u := newReconstructedRasterUsage(r.proxy, r.CubeRasterUsage(), r.env)
	r.slots[KindReconstructedRaster] = u
	return u
}

// MapRasterUsage returns the layer's map raster usage.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) MapRasterUsage() *MapRasterUsage {
	if u, ok := r.slots[KindMapRaster].(*MapRasterUsage); ok {
		return u
	}
	r.rasterSource(KindMapRaster)
	u := newMapRasterUsage(r.proxy, r.CubeRasterUsage(), r.ReconstructedRasterUsage(), r.env)
	r.slots[KindMapRaster] = u
	return u
}

// ScalarFieldUsage returns the cube raster drawn when the layer is shown
// as a scalar field. Its palette and modulation colour are independent of
// the layer's plain raster.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) ScalarFieldUsage() *CubeRasterUsage {
	return r.privateCube(KindScalarField, nil)
}

// NormalMapUsage returns the cube raster sampled when the layer serves as
// a normal map for another layer. Normal maps are pre-coloured, so the
// usage colours with a passthrough palette; a scalar layer yields nothing.
// It panics with a *CapabilityError if the layer supplies no rasters.
func (r *Registry) NormalMapUsage() *CubeRasterUsage {
	return r.privateCube(KindNormalMap, layer.NewPassthroughPalette())
}

// privateCube returns the usage of kind k, a cube raster over an adapted
// raster of its own.
func (r *Registry) privateCube(k Kind, palette *layer.ColourPalette) *CubeRasterUsage {
	if u, ok := r.slots[k].(*CubeRasterUsage); ok {
		return u
	}
	src := r.rasterSource(k)
	adapted := newAdaptedRasterUsage(k, src, r.env)
	if palette != nil {
		adapted.SetPalette(palette)
	}
	u := newCubeRasterUsage(k, src, adapted, r.env)
	u.ownsAdapted = true
	r.slots[k] = u
	return u
}

// RemoveReferencesToLayer prepares the registry for the removal of
// another layer. Usages that cannot work without doomed are dropped and
// cut off, so anything still holding them gets nothing from now on. All
// other usages detach any optional input from doomed.
func (r *Registry) RemoveReferencesToLayer(doomed layer.Proxy) {
	for k, u := range r.slots {
		if u == nil {
			continue
		}
		if u.IsRequiredDependency(doomed) {
			r.slots[k] = nil
			u.orphan()
			continue
		}
		u.RemovingLayer(doomed)
	}
}

// erase drops and cuts off every usage.
func (r *Registry) erase() {
	for k, u := range r.slots {
		if u != nil {
			r.slots[k] = nil
			u.orphan()
		}
	}
}
