// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource builds and caches the derived resources drawn for a
// layer: colour-mapped rasters, cube tiles, age-grid masks, reconstructed
// polygon meshes, reconstructed rasters and map rasters.
//
// Each kind of derived resource is wrapped by a usage. A usage's Get method
// pulls its inputs first, compares its observers against their subjects,
// and rebuilds only what went stale. Usages are owned by a [Registry], one
// per layer, and registries by a [Table] which also handles layer removal.
//
// Nothing in this package is safe for concurrent use. A frame's dependency
// walk runs on the goroutine issuing the draw.
package resource

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/layercache/internal/logging"
	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// DefaultTileSize is the edge length of cube tiles in texels.
const DefaultTileSize = 64

// Kind identifies a usage kind. Each registry holds at most one usage per
// kind.
type Kind uint8

const (
	KindAdaptedRaster Kind = iota
	KindCubeRaster
	KindAgeGrid
	KindPolygonMeshes
	KindReconstructedRaster
	KindMapRaster

	// KindScalarField and KindNormalMap are cube rasters with their own
	// colour mapping, so drawing a layer as a field or a normal map never
	// disturbs its plain raster.
	KindScalarField
	KindNormalMap

	numKinds
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAdaptedRaster:
		return "adapted-raster"
	case KindCubeRaster:
		return "cube-raster"
	case KindAgeGrid:
		return "age-grid"
	case KindPolygonMeshes:
		return "polygon-meshes"
	case KindReconstructedRaster:
		return "reconstructed-raster"
	case KindMapRaster:
		return "map-raster"
	case KindScalarField:
		return "scalar-field"
	case KindNormalMap:
		return "normal-map"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Usage is the behaviour shared by every usage kind. Each kind adds its
// own Get method returning its resource.
type Usage interface {
	// Kind returns the usage kind.
	Kind() Kind

	// Layer returns the layer owning the usage.
	Layer() layer.Proxy

	// Subject is invalidated whenever the usage's resource is rebuilt or
	// modified.
	Subject() *token.Subject

	// IsRequiredDependency reports whether the usage cannot produce
	// anything without proxy, directly or through another usage.
	IsRequiredDependency(proxy layer.Proxy) bool

	// RemovingLayer detaches any optional input coming from proxy.
	RemovingLayer(proxy layer.Proxy)

	// Builds returns the number of full rebuilds so far.
	Builds() int
}

// Env is what usages need from their surroundings.
type Env struct {
	// Loader uploads tiles.
	Loader upload.TileLoader

	// Global holds device-independent shared tables.
	Global *pool.NonListObjects

	// TileSize is the cube tile edge in texels. Zero means DefaultTileSize.
	TileSize int
}

func (e *Env) tileSize() int {
	if e.TileSize <= 0 {
		return DefaultTileSize
	}
	return e.TileSize
}

// usageBase carries the state common to every usage.
type usageBase struct {
	kind    Kind
	proxy   layer.Proxy
	env     *Env
	subject token.Subject
	builds  int

	// orphaned is set once the owning registry is gone or a required input
	// was removed; Get returns nothing from then on.
	orphaned bool

	// failed is set when the last build failed to upload. The usage does
	// not retry until an input changes.
	failed bool
	warned bool
}

func (b *usageBase) Kind() Kind                { return b.kind }
func (b *usageBase) Layer() layer.Proxy        { return b.proxy }
func (b *usageBase) Subject() *token.Subject   { return &b.subject }
func (b *usageBase) Builds() int               { return b.builds }
func (b *usageBase) RemovingLayer(layer.Proxy) {}

// Orphaned reports whether the usage was cut off from its layer.
func (b *usageBase) Orphaned() bool { return b.orphaned }

func (b *usageBase) logger() *slog.Logger {
	return logging.Logger().With("layer", b.proxy.LayerName(), "kind", b.kind.String())
}

// rebuilt records a full rebuild and tells consumers.
func (b *usageBase) rebuilt(reason string) {
	b.builds++
	b.failed = false
	b.subject.Invalidate()
	b.logger().Debug("resource: rebuilt", "reason", reason, "builds", b.builds)
}

// uploadFailed records a failed build. The warning is logged once per
// usage so a layer that keeps failing does not flood the log.
func (b *usageBase) uploadFailed(err error) {
	b.failed = true
	if b.warned {
		return
	}
	b.warned = true
	b.logger().Warn("resource: tile upload failed, layer will not be drawn", "err", err)
}

// orphanable is implemented by every usage kind.
type orphanable interface {
	Usage
	orphan()
}
