// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/token"
)

// maxMipLevels bounds the length of an adapted raster's mip chain.
const maxMipLevels = 8

// opaqueWhite leaves colours unchanged when used as modulation.
var opaqueWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// AdaptedRaster is a raster coloured for display. Pixels are premultiplied
// RGBA.
type AdaptedRaster struct {
	// Levels[0] is full resolution; each further level halves both sides.
	Levels []*image.RGBA

	rasterType  layer.RasterType
	paletteType layer.PaletteType
}

// Width returns the full-resolution width.
func (a *AdaptedRaster) Width() int { return a.Levels[0].Rect.Dx() }

// Height returns the full-resolution height.
func (a *AdaptedRaster) Height() int { return a.Levels[0].Rect.Dy() }

// accepts reports whether raw and palette can be recoloured into a in
// place.
func (a *AdaptedRaster) accepts(raw *layer.RawRaster, palette *layer.ColourPalette) bool {
	return raw.Width == a.Width() && raw.Height == a.Height() &&
		raw.Type() == a.rasterType && palette.Type() == a.paletteType
}

// AdaptedRasterUsage colours a layer's raw raster with a palette and an
// optional modulation colour.
//
// Changing the pixels, palette or modulation colour recolours the existing
// raster in place when its dimensions and mapping type still fit. The
// resource keeps its identity in that case, which lets cube tiles refresh
// instead of rebuilding.
type AdaptedRasterUsage struct {
	usageBase

	source   layer.RasterSource
	palette  *layer.ColourPalette
	modulate color.RGBA

	// params changes with the palette or modulation colour.
	params token.Subject

	contentObserver token.Observer
	paramsObserver  token.Observer

	value   *AdaptedRaster
	mutates int

	// mismatched is set while the palette cannot colour the raster, so the
	// mismatch is logged once rather than on every frame.
	mismatched bool
}

func newAdaptedRasterUsage(kind Kind, source layer.RasterSource, env *Env) *AdaptedRasterUsage {
	return &AdaptedRasterUsage{
		usageBase: usageBase{kind: kind, proxy: source, env: env},
		source:    source,
		modulate:  opaqueWhite,
	}
}

// SetPalette sets the colour palette. Palettes are compared by identity.
func (u *AdaptedRasterUsage) SetPalette(p *layer.ColourPalette) {
	if p == u.palette {
		return
	}
	u.palette = p
	u.params.Invalidate()
}

// Palette returns the current palette.
func (u *AdaptedRasterUsage) Palette() *layer.ColourPalette { return u.palette }

// SetModulateColour sets the colour multiplied into every pixel.
func (u *AdaptedRasterUsage) SetModulateColour(c color.RGBA) {
	if c == u.modulate {
		return
	}
	u.modulate = c
	u.params.Invalidate()
}

// Mutates returns the number of in-place recolourings.
func (u *AdaptedRasterUsage) Mutates() int { return u.mutates }

// IsRequiredDependency implements Usage.
func (u *AdaptedRasterUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy
}

// Get returns the adapted raster, or nil when the layer has no raster or
// no palette suitable for it.
func (u *AdaptedRasterUsage) Get() *AdaptedRaster {
	if u.orphaned {
		return nil
	}

	raw, ok := u.source.Raster()
	if !ok || raw.Validate() != nil || u.palette == nil {
		u.clear()
		return nil
	}
	if !u.palette.Type().Accepts(raw.Type()) {
		u.clear()
		u.paletteMismatch(raw.Type())
		return nil
	}
	u.mismatched = false

	content := u.source.RasterContentSubject()
	stale := !u.contentObserver.IsUpToDate(content) || !u.paramsObserver.IsUpToDate(&u.params)
	if u.value != nil && stale {
		if u.value.accepts(raw, u.palette) {
			u.colourize(raw)
			u.mutates++
			u.subject.Invalidate()
		} else {
			u.clear()
		}
	}
	u.contentObserver.Sync(content)
	u.paramsObserver.Sync(&u.params)

	if u.value == nil {
		u.value = &AdaptedRaster{
			Levels:      mipChain(raw.Width, raw.Height),
			rasterType:  raw.Type(),
			paletteType: u.palette.Type(),
		}
		u.colourize(raw)
		u.rebuilt("raster or palette shape changed")
	}
	return u.value
}

// colourize writes raw into level 0 of the current value and downsamples
// the remaining levels.
func (u *AdaptedRasterUsage) colourize(raw *layer.RawRaster) {
	dst := u.value.Levels[0]
	m := u.modulate
	for i := 0; i < raw.Width*raw.Height; i++ {
		var c color.RGBA
		if raw.Type() == layer.RasterRGBA {
			c = color.RGBA{R: raw.RGBA[i*4], G: raw.RGBA[i*4+1], B: raw.RGBA[i*4+2], A: raw.RGBA[i*4+3]}
		} else {
			c = u.palette.Lookup(float64(raw.Scalars[i]))
		}
		a := mul8(c.A, m.A)
		dst.Pix[i*4+0] = mul8(mul8(c.R, m.R), a)
		dst.Pix[i*4+1] = mul8(mul8(c.G, m.G), a)
		dst.Pix[i*4+2] = mul8(mul8(c.B, m.B), a)
		dst.Pix[i*4+3] = a
	}

	levels := u.value.Levels
	for i := 1; i < len(levels); i++ {
		draw.ApproxBiLinear.Scale(levels[i], levels[i].Rect, levels[i-1], levels[i-1].Rect, draw.Src, nil)
	}
}

func (u *AdaptedRasterUsage) clear() {
	if u.value == nil {
		return
	}
	u.value = nil
	u.subject.Invalidate()
}

func (u *AdaptedRasterUsage) paletteMismatch(rt layer.RasterType) {
	if u.mismatched {
		return
	}
	u.mismatched = true
	u.logger().Warn("resource: palette cannot colour raster, layer will not be drawn",
		"palette", u.palette.Type().String(), "raster", rt.String())
}

func (u *AdaptedRasterUsage) orphan() {
	u.orphaned = true
	u.clear()
}

// mipChain allocates a full-resolution image followed by halved levels.
func mipChain(w, h int) []*image.RGBA {
	levels := []*image.RGBA{image.NewRGBA(image.Rect(0, 0, w, h))}
	for len(levels) < maxMipLevels && (w > 1 || h > 1) {
		w = max(w/2, 1)
		h = max(h/2, 1)
		levels = append(levels, image.NewRGBA(image.Rect(0, 0, w, h)))
	}
	return levels
}

// mul8 multiplies two 8-bit fractions.
func mul8(a, b uint8) uint8 {
	return uint8((uint16(a)*uint16(b) + 127) / 255)
}
