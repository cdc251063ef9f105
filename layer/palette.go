// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/google/btree"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrNoStops is returned when a scalar palette is built without stops.
var ErrNoStops = errors.New("layer: colour palette needs at least one stop")

// PaletteType is the kind of colour mapping a palette performs.
type PaletteType uint8

const (
	// PaletteScalar maps scalar samples to colours.
	PaletteScalar PaletteType = iota

	// PalettePassthrough leaves pre-coloured RGBA pixels unchanged.
	PalettePassthrough
)

// String returns a human-readable name for the palette type.
func (t PaletteType) String() string {
	switch t {
	case PaletteScalar:
		return "scalar"
	case PalettePassthrough:
		return "passthrough"
	default:
		return fmt.Sprintf("PaletteType(%d)", t)
	}
}

// Accepts reports whether palettes of type t can colour rasters of type rt.
func (t PaletteType) Accepts(rt RasterType) bool {
	switch t {
	case PaletteScalar:
		return rt == RasterScalar
	case PalettePassthrough:
		return rt == RasterRGBA
	}
	return false
}

// Stop is a control point of a scalar palette.
type Stop struct {
	Value  float64
	Colour color.RGBA
}

// ColourPalette maps raster samples to colours. Palettes are immutable once
// built and are compared by identity: installing a different palette means
// passing a different pointer.
type ColourPalette struct {
	typ    PaletteType
	stops  *btree.BTreeG[Stop]
	noData color.RGBA
}

// NewScalarPalette builds a palette interpolating between stops in Lab
// space. Values outside the stop range clamp to the end colours. A stop
// with the same value as an earlier one replaces it.
func NewScalarPalette(stops ...Stop) (*ColourPalette, error) {
	if len(stops) == 0 {
		return nil, ErrNoStops
	}
	t := btree.NewG[Stop](4, func(a, b Stop) bool { return a.Value < b.Value })
	for _, s := range stops {
		if math.IsNaN(s.Value) {
			return nil, fmt.Errorf("layer: palette stop value is NaN")
		}
		t.ReplaceOrInsert(s)
	}
	return &ColourPalette{typ: PaletteScalar, stops: t}, nil
}

// MustScalarPalette is like NewScalarPalette but panics on error.
func MustScalarPalette(stops ...Stop) *ColourPalette {
	p, err := NewScalarPalette(stops...)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPassthroughPalette returns a palette for pre-coloured rasters.
func NewPassthroughPalette() *ColourPalette {
	return &ColourPalette{typ: PalettePassthrough}
}

// Type returns the palette type.
func (p *ColourPalette) Type() PaletteType {
	return p.typ
}

// Len returns the number of stops.
func (p *ColourPalette) Len() int {
	if p.stops == nil {
		return 0
	}
	return p.stops.Len()
}

// Lookup returns the colour for a scalar sample. NaN samples map to
// transparent.
func (p *ColourPalette) Lookup(v float64) color.RGBA {
	if p.typ != PaletteScalar || math.IsNaN(v) {
		return p.noData
	}

	pivot := Stop{Value: v}
	var lo, hi Stop
	var haveLo, haveHi bool
	p.stops.DescendLessOrEqual(pivot, func(s Stop) bool {
		lo, haveLo = s, true
		return false
	})
	p.stops.AscendGreaterOrEqual(pivot, func(s Stop) bool {
		hi, haveHi = s, true
		return false
	})

	switch {
	case haveLo && !haveHi:
		return lo.Colour
	case haveHi && !haveLo:
		return hi.Colour
	case lo.Value == hi.Value:
		return lo.Colour
	}

	t := (v - lo.Value) / (hi.Value - lo.Value)
	a := toColorful(lo.Colour)
	b := toColorful(hi.Colour)
	r, g, bl := a.BlendLab(b, t).Clamped().RGB255()
	alpha := float64(lo.Colour.A) + t*(float64(hi.Colour.A)-float64(lo.Colour.A))
	return color.RGBA{R: r, G: g, B: bl, A: uint8(math.Round(alpha))}
}

func toColorful(c color.RGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}
