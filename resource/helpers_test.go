// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/upload"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// fixture is a table with a memory loader and small tiles.
type fixture struct {
	loader *upload.MemoryLoader
	table  *Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loader := upload.NewMemoryLoader()
	return &fixture{
		loader: loader,
		table: NewTable(Env{
			Loader:   loader,
			Global:   pool.New().NonListObjects(),
			TileSize: 4,
		}),
	}
}

// constantRaster returns a w x h scalar raster with every sample v.
func constantRaster(t *testing.T, w, h int, v float32) *layer.RawRaster {
	t.Helper()
	samples := make([]float32, w*h)
	for i := range samples {
		samples[i] = v
	}
	r, err := layer.NewScalarRaster(w, h, samples)
	if err != nil {
		t.Fatalf("NewScalarRaster: %v", err)
	}
	return r
}

// georeferencedRaster returns a global 16x8 raster proxy with constant
// samples of 0.
func georeferencedRaster(t *testing.T, name string) *layer.RasterProxy {
	t.Helper()
	p := layer.NewRasterProxy(name, nil)
	p.SetRaster(constantRaster(t, 16, 8, 0))
	p.SetGeoreferencing(layer.GlobalGeoreferencing())
	return p
}

// redPalette maps 0 to red and 1 to blue.
func redPalette() *layer.ColourPalette {
	return layer.MustScalarPalette(layer.Stop{Value: 0, Colour: red}, layer.Stop{Value: 1, Colour: blue})
}

// squarePlate returns a reconstruction proxy with one square polygon on
// plate 1.
func squarePlate(name string) *layer.ReconstructionProxy {
	p := layer.NewReconstructionProxy(name, nil)
	p.SetPolygons([]layer.Polygon{{
		PlateID: 1,
		Ring:    []layer.LatLon{{Lat: -10, Lon: -10}, {Lat: -10, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: -10}},
	}})
	p.SetStagePole(1, layer.LatLon{Lat: 90}, 1)
	return p
}

// firstTexel returns the first texel of a memory tile.
func firstTexel(t *testing.T, tile upload.Tile) color.RGBA {
	t.Helper()
	mt, ok := tile.(*upload.MemoryTile)
	if !ok {
		t.Fatalf("tile is %T, want *upload.MemoryTile", tile)
	}
	px := mt.Pixels()
	return color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
}

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}
