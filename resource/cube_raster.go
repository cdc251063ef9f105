// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// maxCubeLevels bounds the levels of detail of a cube raster.
const maxCubeLevels = 4

// CubeRaster is a raster resampled into square tiles on the six faces of a
// cube. Level 0 has one tile per face; each further level doubles the
// tiles along each face edge.
type CubeRaster struct {
	TileSize       int
	Levels         int
	Georeferencing layer.Georeferencing

	// Tiles holds every tile ordered by level, face, row and column.
	Tiles *TileSet

	adapted *AdaptedRaster
}

// TilesPerEdge returns the number of tiles along a face edge at level.
func (c *CubeRaster) TilesPerEdge(level int) int { return 1 << level }

// TileIndex returns the index in Tiles of a tile.
func (c *CubeRaster) TileIndex(level, face, tx, ty int) int {
	offset := 0
	for l := 0; l < level; l++ {
		n := c.TilesPerEdge(l)
		offset += 6 * n * n
	}
	n := c.TilesPerEdge(level)
	return offset + face*n*n + ty*n + tx
}

// Tile returns one tile.
func (c *CubeRaster) Tile(level, face, tx, ty int) upload.Tile {
	return c.Tiles.At(c.TileIndex(level, face, tx, ty))
}

// cubeLevels picks enough levels for the finest face resolution to match a
// raster of the given width, whose equator spans four faces.
func cubeLevels(rasterWidth, tileSize int) int {
	levels := 1
	for levels < maxCubeLevels && tileSize<<levels <= rasterWidth/4 {
		levels++
	}
	return levels
}

// CubeRasterUsage resamples the adapted raster of its layer into cube
// tiles.
//
// A change of georeferencing, or an adapted raster that was rebuilt rather
// than recoloured, rebuilds every tile. A recoloured adapted raster only
// rewrites the existing tiles, so the cube raster keeps its identity.
type CubeRasterUsage struct {
	usageBase

	source  layer.RasterSource
	adapted *AdaptedRasterUsage

	adaptedObserver token.Observer
	featureObserver token.Observer

	value     *CubeRaster
	refreshes int
	scratch   []byte

	// ownsAdapted is set when adapted is private to this usage and shares
	// its fate.
	ownsAdapted bool
}

func newCubeRasterUsage(kind Kind, source layer.RasterSource, adapted *AdaptedRasterUsage, env *Env) *CubeRasterUsage {
	return &CubeRasterUsage{
		usageBase: usageBase{kind: kind, proxy: source, env: env},
		source:    source,
		adapted:   adapted,
	}
}

// Adapted returns the usage supplying the adapted raster.
func (u *CubeRasterUsage) Adapted() *AdaptedRasterUsage { return u.adapted }

// Refreshes returns the number of in-place tile rewrites.
func (u *CubeRasterUsage) Refreshes() int { return u.refreshes }

// IsRequiredDependency implements Usage.
func (u *CubeRasterUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy || u.adapted.IsRequiredDependency(proxy)
}

// Get returns the cube raster, or nil when the layer has no adapted raster
// or no valid georeferencing, or the tiles could not be uploaded.
func (u *CubeRasterUsage) Get() *CubeRaster {
	if u.orphaned {
		return nil
	}

	adapted := u.adapted.Get()
	georef, ok := u.source.Georeferencing()
	if adapted == nil || !ok || !georef.Valid() {
		u.clear()
		return nil
	}

	feature := u.source.RasterFeatureSubject()
	adaptedStale := !u.adaptedObserver.IsUpToDate(u.adapted.Subject())
	featureStale := !u.featureObserver.IsUpToDate(feature)
	if adaptedStale || featureStale {
		u.failed = false
	}

	if u.value != nil {
		switch {
		case featureStale || adapted != u.value.adapted:
			u.clear()
		case adaptedStale:
			if err := u.refresh(); err != nil {
				u.clear()
				u.uploadFailed(err)
			} else {
				u.refreshes++
				u.subject.Invalidate()
			}
		}
	}
	u.adaptedObserver.Sync(u.adapted.Subject())
	u.featureObserver.Sync(feature)

	if u.value == nil && !u.failed {
		u.build(adapted, georef)
	}
	return u.value
}

func (u *CubeRasterUsage) build(adapted *AdaptedRaster, georef layer.Georeferencing) {
	c := &CubeRaster{
		TileSize:       u.env.tileSize(),
		Levels:         cubeLevels(adapted.Width(), u.env.tileSize()),
		Georeferencing: georef,
		adapted:        adapted,
	}

	var reqs []upload.TileRequest
	u.eachTile(c, func(level, face, tx, ty int, pixels []byte) {
		reqs = append(reqs, upload.TileRequest{
			Label:  fmt.Sprintf("%s/cube/L%d/f%d/%d,%d", u.proxy.LayerName(), level, face, tx, ty),
			Target: upload.TargetCubeFace,
			Face:   face,
			Level:  level,
			Offset: image.Pt(tx*c.TileSize, ty*c.TileSize),
			Size:   image.Pt(c.TileSize, c.TileSize),
			Format: gputypes.TextureFormatRGBA8Unorm,
			Pixels: append([]byte(nil), pixels...),
		})
	})

	tiles, err := loadAll(u.env.Loader, reqs)
	if err != nil {
		u.uploadFailed(err)
		return
	}
	c.Tiles = tiles
	u.value = c
	u.rebuilt("adapted raster or georeferencing changed")
}

// refresh rewrites every tile of the current value from its adapted
// raster.
func (u *CubeRasterUsage) refresh() error {
	i := 0
	var err error
	u.eachTile(u.value, func(_, _, _, _ int, pixels []byte) {
		if err == nil {
			err = u.value.Tiles.update(i, pixels)
		}
		i++
	})
	return err
}

// eachTile renders the tiles of c in storage order. The pixel buffer is
// reused between calls.
func (u *CubeRasterUsage) eachTile(c *CubeRaster, fn func(level, face, tx, ty int, pixels []byte)) {
	ts := c.TileSize
	if n := ts * ts * 4; cap(u.scratch) < n {
		u.scratch = make([]byte, n)
	}
	pixels := u.scratch[:ts*ts*4]

	for level := 0; level < c.Levels; level++ {
		n := c.TilesPerEdge(level)
		table := u.env.Global.FaceTable(ts * n)
		src := sourceLevel(c.adapted, ts*n)
		for face := 0; face < 6; face++ {
			for ty := 0; ty < n; ty++ {
				for tx := 0; tx < n; tx++ {
					sampleFace(pixels, table, face, tx, ty, ts, src, c.Georeferencing)
					fn(level, face, tx, ty, pixels)
				}
			}
		}
	}
}

// sourceLevel picks the smallest mip level still at least as fine as a
// face resolution of faceRes.
func sourceLevel(a *AdaptedRaster, faceRes int) *image.RGBA {
	for i := len(a.Levels) - 1; i > 0; i-- {
		if a.Levels[i].Rect.Dx() >= 4*faceRes {
			return a.Levels[i]
		}
	}
	return a.Levels[0]
}

// sampleFace fills one tile by nearest-neighbour lookup of src. Texels
// outside the georeferenced extent are transparent.
func sampleFace(dst []byte, table *pool.FaceTable, face, tx, ty, ts int, src *image.RGBA, georef layer.Georeferencing) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	positions := table.Positions[face]
	for y := 0; y < ts; y++ {
		row := (ty*ts + y) * table.Size
		for x := 0; x < ts; x++ {
			o := (y*ts + x) * 4
			px, py, ok := georef.PixelAt(positions[row+tx*ts+x], w, h)
			if !ok {
				dst[o], dst[o+1], dst[o+2], dst[o+3] = 0, 0, 0, 0
				continue
			}
			s := src.PixOffset(int(px), int(py))
			copy(dst[o:o+4], src.Pix[s:s+4])
		}
	}
}

func (u *CubeRasterUsage) clear() {
	if u.value == nil {
		return
	}
	u.value.Tiles.Release()
	u.value = nil
	u.subject.Invalidate()
}

func (u *CubeRasterUsage) orphan() {
	u.orphaned = true
	u.clear()
	if u.ownsAdapted {
		u.adapted.orphan()
	}
}
