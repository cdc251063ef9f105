// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package layer defines the upstream producers consumed by the layer
// resource cache.
//
// A [Proxy] is an opaque handle compared by identity only. What a proxy can
// supply is expressed through capability interfaces ([RasterSource],
// [ReconstructionSource]) which the cache resolves once, when it first sees
// the proxy, instead of repeatedly downcasting.
//
// Each independently varying aspect of a proxy has its own
// [token.Subject] so that, for example, a pixel-only change never rebuilds
// state that depends only on georeferencing.
package layer

import "github.com/gogpu/layercache/token"

// Proxy is an upstream producer. Implementations must be pointer types:
// proxies are used as map keys and compared by identity.
type Proxy interface {
	// LayerName returns a human-readable name used in log output.
	LayerName() string
}

// RasterSource is implemented by proxies that supply raster data.
type RasterSource interface {
	Proxy

	// Raster returns the current raw raster, or false if none is loaded.
	Raster() (*RawRaster, bool)

	// Georeferencing returns the raster's georeferencing, or false if it
	// has not been set.
	Georeferencing() (Georeferencing, bool)

	// RasterFeatureSubject changes when the raster feature itself or its
	// georeferencing changes.
	RasterFeatureSubject() *token.Subject

	// RasterContentSubject changes when the pixel content changes.
	RasterContentSubject() *token.Subject
}

// ReconstructionSource is implemented by proxies that supply present-day
// polygon geometry together with a rotation model.
type ReconstructionSource interface {
	Proxy

	// PresentDayPolygons returns the present-day polygons, or false if
	// none are loaded.
	PresentDayPolygons() ([]Polygon, bool)

	// RotationAt returns the rotation of plateID at the reconstruction
	// time (in Ma).
	RotationAt(plateID int, time float64) Rotation

	// GeometrySubject changes when the present-day polygons change.
	GeometrySubject() *token.Subject

	// RotationSubject changes when the rotation model changes.
	RotationSubject() *token.Subject
}
