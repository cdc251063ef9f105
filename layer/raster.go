// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Raster errors.
var (
	// ErrEmptyRaster is returned for rasters with no pixels.
	ErrEmptyRaster = errors.New("layer: raster has no pixels")

	// ErrRasterSize is returned when the sample buffer does not match the
	// declared dimensions.
	ErrRasterSize = errors.New("layer: raster buffer does not match dimensions")
)

// RasterType distinguishes rasters that need a colour palette from rasters
// that are already coloured.
type RasterType uint8

const (
	// RasterScalar holds one float32 sample per pixel. NaN means no data.
	RasterScalar RasterType = iota

	// RasterRGBA holds four bytes per pixel, non-premultiplied.
	RasterRGBA
)

// String returns a human-readable name for the raster type.
func (t RasterType) String() string {
	switch t {
	case RasterScalar:
		return "scalar"
	case RasterRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("RasterType(%d)", t)
	}
}

// RawRaster is the unprocessed pixel data of a raster layer.
// Exactly one of Scalars and RGBA is populated.
type RawRaster struct {
	Width   int
	Height  int
	Scalars []float32
	RGBA    []byte
}

// NewScalarRaster wraps scalar samples laid out row by row.
func NewScalarRaster(width, height int, samples []float32) (*RawRaster, error) {
	r := &RawRaster{Width: width, Height: height, Scalars: samples}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRGBARaster wraps pre-coloured RGBA bytes laid out row by row.
func NewRGBARaster(width, height int, pix []byte) (*RawRaster, error) {
	r := &RawRaster{Width: width, Height: height, RGBA: pix}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Type returns the raster type.
func (r *RawRaster) Type() RasterType {
	if r.RGBA != nil {
		return RasterRGBA
	}
	return RasterScalar
}

// Validate checks that the buffers match the dimensions.
func (r *RawRaster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return ErrEmptyRaster
	}
	n := r.Width * r.Height
	switch r.Type() {
	case RasterRGBA:
		if len(r.RGBA) != n*4 {
			return fmt.Errorf("%w: %d bytes for %dx%d rgba", ErrRasterSize, len(r.RGBA), r.Width, r.Height)
		}
	default:
		if len(r.Scalars) != n {
			return fmt.Errorf("%w: %d samples for %dx%d scalar", ErrRasterSize, len(r.Scalars), r.Width, r.Height)
		}
	}
	return nil
}

// SameShape reports whether o has the same dimensions and type as r.
func (r *RawRaster) SameShape(o *RawRaster) bool {
	return r != nil && o != nil &&
		r.Width == o.Width && r.Height == o.Height && r.Type() == o.Type()
}

// Georeferencing places an equirectangular raster on the globe.
// Extents are in degrees; pixel (0,0) is the north-west corner.
type Georeferencing struct {
	West, East   float32
	South, North float32
}

// GlobalGeoreferencing covers the whole globe.
func GlobalGeoreferencing() Georeferencing {
	return Georeferencing{West: -180, East: 180, South: -90, North: 90}
}

// Valid reports whether the extent is non-empty and within the globe.
func (g Georeferencing) Valid() bool {
	return g.East > g.West && g.North > g.South &&
		g.South >= -90 && g.North <= 90 &&
		g.East-g.West <= 360
}

// PixelAt maps a position to fractional pixel coordinates in a raster of
// the given size. ok is false when the position lies outside the extent.
func (g Georeferencing) PixelAt(p LatLon, width, height int) (x, y float32, ok bool) {
	lon := p.Lon
	// Wrap longitude into the extent when it spans the antimeridian.
	for lon < g.West {
		lon += 360
	}
	for lon > g.East && lon-360 >= g.West {
		lon -= 360
	}
	if lon < g.West || lon > g.East || p.Lat < g.South || p.Lat > g.North {
		return 0, 0, false
	}
	x = (lon - g.West) / (g.East - g.West) * float32(width)
	y = (g.North - p.Lat) / (g.North - g.South) * float32(height)
	x = math32.Min(x, float32(width)-1)
	y = math32.Min(y, float32(height)-1)
	return x, y, true
}
