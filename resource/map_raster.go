// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// MapProjection is a plate carrée map of the given size in texels,
// centred on CentralMeridian (degrees).
type MapProjection struct {
	Width, Height   int
	CentralMeridian float32
}

// Valid reports whether the projection has a drawable size.
func (p MapProjection) Valid() bool {
	return p.Width > 0 && p.Height > 0
}

// MapRaster is a raster projected onto a flat map and uploaded as a single
// tile.
type MapRaster struct {
	Projection MapProjection
	Image      *image.RGBA
	Tiles      *TileSet

	// Reconstructed is true when the map was drawn from a reconstructed
	// raster rather than the plain cube raster.
	Reconstructed bool

	// source is the upstream resource the map was drawn from.
	source any
}

// MapRasterUsage projects a layer's raster onto a flat map. It prefers the
// layer's reconstructed raster when that is drawn through polygons, and
// falls back to the cube raster otherwise.
//
// Drawing from a different upstream object, or a new projection, rebuilds
// the map. A change within the same upstream object redraws it in place.
type MapRasterUsage struct {
	usageBase

	cube          *CubeRasterUsage
	reconstructed *ReconstructedRasterUsage

	sourceUsage    Usage
	sourceObserver token.Observer

	value     *MapRaster
	refreshes int
}

func newMapRasterUsage(proxy layer.Proxy, cube *CubeRasterUsage, reconstructed *ReconstructedRasterUsage, env *Env) *MapRasterUsage {
	return &MapRasterUsage{
		usageBase:     usageBase{kind: KindMapRaster, proxy: proxy, env: env},
		cube:          cube,
		reconstructed: reconstructed,
	}
}

// Refreshes returns the number of in-place redraws.
func (u *MapRasterUsage) Refreshes() int { return u.refreshes }

// IsRequiredDependency implements Usage.
func (u *MapRasterUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy || u.cube.IsRequiredDependency(proxy)
}

// Get returns the map at time in projection proj, or nil when the layer's
// cube raster is unavailable or proj is empty.
func (u *MapRasterUsage) Get(time float64, proj MapProjection) *MapRaster {
	if u.orphaned {
		return nil
	}
	if !proj.Valid() {
		u.clear()
		return nil
	}

	var (
		source      any
		sourceUsage Usage
		cube        *CubeRaster
		recon       bool
	)
	if r := u.reconstructed.Get(time); r != nil && r.Reconstructed() {
		source, sourceUsage, cube, recon = r, u.reconstructed, r.Cube, true
	} else if c := u.cube.Get(); c != nil {
		source, sourceUsage, cube = c, u.cube, c
	} else {
		u.clear()
		return nil
	}

	if sourceUsage != u.sourceUsage {
		u.sourceUsage = sourceUsage
		u.sourceObserver.Reset()
	}
	stale := !u.sourceObserver.IsUpToDate(sourceUsage.Subject())
	if stale {
		u.failed = false
	}

	if u.value != nil {
		switch {
		case source != u.value.source || proj != u.value.Projection:
			u.clear()
		case stale:
			renderMap(u.value.Image, cube, proj)
			if err := u.value.Tiles.update(0, u.value.Image.Pix); err != nil {
				u.clear()
				u.uploadFailed(err)
			} else {
				u.refreshes++
				u.subject.Invalidate()
			}
		}
	}
	u.sourceObserver.Sync(sourceUsage.Subject())

	if u.value == nil && !u.failed {
		u.build(source, cube, recon, proj)
	}
	return u.value
}

func (u *MapRasterUsage) build(source any, cube *CubeRaster, recon bool, proj MapProjection) {
	m := &MapRaster{
		Projection:    proj,
		Image:         image.NewRGBA(image.Rect(0, 0, proj.Width, proj.Height)),
		Reconstructed: recon,
		source:        source,
	}
	renderMap(m.Image, cube, proj)

	tiles, err := loadAll(u.env.Loader, []upload.TileRequest{{
		Label:  u.proxy.LayerName() + "/map",
		Target: upload.TargetMap,
		Size:   image.Pt(proj.Width, proj.Height),
		Format: gputypes.TextureFormatRGBA8Unorm,
		Pixels: m.Image.Pix,
	}})
	if err != nil {
		u.uploadFailed(err)
		return
	}
	m.Tiles = tiles
	u.value = m
	u.rebuilt("map source or projection changed")
}

// renderMap draws the cube raster's adapted raster into dst at its
// georeferenced extent, wrapping across the map's edge.
func renderMap(dst *image.RGBA, cube *CubeRaster, proj MapProjection) {
	draw.Draw(dst, dst.Rect, image.Transparent, image.Point{}, draw.Src)

	src := cube.adapted.Levels[0]
	g := cube.Georeferencing
	w, h := float64(proj.Width), float64(proj.Height)

	west := math.Mod(float64(g.West-(proj.CentralMeridian-180)), 360)
	if west < 0 {
		west += 360
	}
	x0 := west / 360 * w
	x1 := x0 + float64(g.East-g.West)/360*w
	y0 := float64(90-g.North) / 180 * h
	y1 := float64(90-g.South) / 180 * h

	r := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
	if r.Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(dst, r, src, src.Rect, draw.Over, nil)
	if r.Max.X > proj.Width {
		draw.ApproxBiLinear.Scale(dst, r.Sub(image.Pt(proj.Width, 0)), src, src.Rect, draw.Over, nil)
	}
}

func (u *MapRasterUsage) clear() {
	if u.value == nil {
		return
	}
	u.value.Tiles.Release()
	u.value = nil
	u.subject.Invalidate()
}

func (u *MapRasterUsage) orphan() {
	u.orphaned = true
	u.clear()
}
