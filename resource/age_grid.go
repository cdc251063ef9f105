// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"image"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// AgeGrid is a present-day grid of crust ages (in Ma) viewed two ways: a
// coverage mask of where the grid has data, and a binary mask of where the
// crust already existed at a reconstruction time.
type AgeGrid struct {
	Width, Height  int
	Georeferencing layer.Georeferencing

	// Time is the reconstruction time Mask was generated for.
	Time float64

	// Coverage holds one R8 tile, 255 where the grid has an age.
	Coverage *TileSet

	// Mask holds one R8 tile, 255 where the age is at least Time.
	Mask *TileSet

	ages []float32
	mask []byte
}

// Masked reports whether pixel (x, y) is hidden at Time.
func (g *AgeGrid) Masked(x, y int) bool {
	return g.mask[y*g.Width+x] == 0
}

func (g *AgeGrid) release() {
	g.Coverage.Release()
	g.Mask.Release()
}

func (g *AgeGrid) fillMask(time float64) {
	g.Time = time
	for i, age := range g.ages {
		if !math.IsNaN(float64(age)) && float64(age) >= time {
			g.mask[i] = 255
		} else {
			g.mask[i] = 0
		}
	}
}

// AgeGridUsage turns a scalar raster layer into an age grid. The raster is
// fetched once per rebuild and shared by both masks. A new reconstruction
// time regenerates only the time mask, in place.
//
// The subject changes when the grid is rebuilt; time changes are not
// signalled through it.
type AgeGridUsage struct {
	usageBase

	source layer.RasterSource

	contentObserver token.Observer
	featureObserver token.Observer

	value       *AgeGrid
	maskUpdates int
}

func newAgeGridUsage(source layer.RasterSource, env *Env) *AgeGridUsage {
	return &AgeGridUsage{
		usageBase: usageBase{kind: KindAgeGrid, proxy: source, env: env},
		source:    source,
	}
}

// MaskUpdates returns the number of time mask regenerations.
func (u *AgeGridUsage) MaskUpdates() int { return u.maskUpdates }

// IsRequiredDependency implements Usage.
func (u *AgeGridUsage) IsRequiredDependency(proxy layer.Proxy) bool {
	return proxy == u.proxy
}

// Get returns the age grid masked at time, or nil when the layer has no
// scalar raster or no valid georeferencing.
func (u *AgeGridUsage) Get(time float64) *AgeGrid {
	if u.orphaned {
		return nil
	}

	raw, ok := u.source.Raster()
	if !ok || raw.Validate() != nil || raw.Type() != layer.RasterScalar {
		u.clear()
		return nil
	}
	georef, ok := u.source.Georeferencing()
	if !ok || !georef.Valid() {
		u.clear()
		return nil
	}

	content := u.source.RasterContentSubject()
	feature := u.source.RasterFeatureSubject()
	if !u.contentObserver.IsUpToDate(content) || !u.featureObserver.IsUpToDate(feature) {
		u.failed = false
		u.clear()
	}
	u.contentObserver.Sync(content)
	u.featureObserver.Sync(feature)

	switch {
	case u.value == nil && !u.failed:
		u.build(raw, georef, time)
	case u.value != nil && u.value.Time != time:
		u.value.fillMask(time)
		if err := u.value.Mask.update(0, u.value.mask); err != nil {
			u.clear()
			u.uploadFailed(err)
			return nil
		}
		u.maskUpdates++
	}
	return u.value
}

func (u *AgeGridUsage) build(raw *layer.RawRaster, georef layer.Georeferencing, time float64) {
	g := &AgeGrid{
		Width:          raw.Width,
		Height:         raw.Height,
		Georeferencing: georef,
		ages:           raw.Scalars,
		mask:           make([]byte, len(raw.Scalars)),
	}
	g.fillMask(time)

	coverage := make([]byte, len(raw.Scalars))
	for i, age := range raw.Scalars {
		if !math.IsNaN(float64(age)) {
			coverage[i] = 255
		}
	}

	req := func(target upload.Target, pixels []byte) upload.TileRequest {
		return upload.TileRequest{
			Label:  u.proxy.LayerName() + "/" + target.String(),
			Target: target,
			Size:   image.Pt(raw.Width, raw.Height),
			Format: gputypes.TextureFormatR8Unorm,
			Pixels: pixels,
		}
	}
	var err error
	if g.Coverage, err = loadAll(u.env.Loader, []upload.TileRequest{req(upload.TargetCoverage, coverage)}); err != nil {
		u.uploadFailed(err)
		return
	}
	if g.Mask, err = loadAll(u.env.Loader, []upload.TileRequest{req(upload.TargetAgeMask, g.mask)}); err != nil {
		g.Coverage.Release()
		u.uploadFailed(err)
		return
	}
	u.value = g
	u.rebuilt("age raster changed")
}

func (u *AgeGridUsage) clear() {
	if u.value == nil {
		return
	}
	u.value.release()
	u.value = nil
	u.subject.Invalidate()
}

func (u *AgeGridUsage) orphan() {
	u.orphaned = true
	u.clear()
}
