// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gogpu/layercache/token"
)

func TestRawRasterValidate(t *testing.T) {
	tests := []struct {
		name    string
		raster  RawRaster
		wantErr error
	}{
		{"scalar ok", RawRaster{Width: 2, Height: 2, Scalars: make([]float32, 4)}, nil},
		{"rgba ok", RawRaster{Width: 2, Height: 1, RGBA: make([]byte, 8)}, nil},
		{"empty", RawRaster{}, ErrEmptyRaster},
		{"short scalar", RawRaster{Width: 2, Height: 2, Scalars: make([]float32, 3)}, ErrRasterSize},
		{"short rgba", RawRaster{Width: 2, Height: 2, RGBA: make([]byte, 4)}, ErrRasterSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.raster.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRawRasterSameShape(t *testing.T) {
	a, _ := NewScalarRaster(2, 2, make([]float32, 4))
	b, _ := NewScalarRaster(2, 2, []float32{1, 2, 3, 4})
	c, _ := NewScalarRaster(4, 1, make([]float32, 4))
	d, _ := NewRGBARaster(2, 2, make([]byte, 16))

	if !a.SameShape(b) {
		t.Error("same dims and type should match")
	}
	if a.SameShape(c) {
		t.Error("different dims should not match")
	}
	if a.SameShape(d) {
		t.Error("different type should not match")
	}
}

func TestGeoreferencingPixelAt(t *testing.T) {
	g := GlobalGeoreferencing()
	if !g.Valid() {
		t.Fatal("global georeferencing should be valid")
	}

	x, y, ok := g.PixelAt(LatLon{Lat: 90, Lon: -180}, 360, 180)
	if !ok || x != 0 || y != 0 {
		t.Errorf("north-west corner = (%v, %v, %v), want (0, 0, true)", x, y, ok)
	}

	x, y, ok = g.PixelAt(LatLon{Lat: 0, Lon: 0}, 360, 180)
	if !ok || x != 180 || y != 90 {
		t.Errorf("origin = (%v, %v, %v), want (180, 90, true)", x, y, ok)
	}

	regional := Georeferencing{West: 0, East: 10, South: 0, North: 10}
	if _, _, ok := regional.PixelAt(LatLon{Lat: 20, Lon: 5}, 10, 10); ok {
		t.Error("point outside extent should not map")
	}
	if (Georeferencing{West: 10, East: 0, South: 0, North: 10}).Valid() {
		t.Error("inverted extent should be invalid")
	}
}

func TestLatLonRoundTrip(t *testing.T) {
	for _, p := range []LatLon{{0, 0}, {45, 90}, {-30, -120}, {89, 179}} {
		got := p.Vector().LatLon()
		if math32.Abs(got.Lat-p.Lat) > 1e-3 || math32.Abs(got.Lon-p.Lon) > 1e-3 {
			t.Errorf("round trip %v = %v", p, got)
		}
	}
}

func TestRotationApply(t *testing.T) {
	// 90 degrees about the north pole moves (0,0) to (0,90).
	r := Rotation{Pole: LatLon{Lat: 90}, Angle: 90}
	got := r.Apply(LatLon{}.Vector()).LatLon()
	if math32.Abs(got.Lat) > 1e-3 || math32.Abs(got.Lon-90) > 1e-3 {
		t.Errorf("rotated = %v, want (0, 90)", got)
	}

	v := LatLon{Lat: 10, Lon: 20}.Vector()
	if IdentityRotation().Apply(v) != v {
		t.Error("identity rotation should not move points")
	}
}

func TestScalarPaletteLookup(t *testing.T) {
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}
	p := MustScalarPalette(Stop{Value: 0, Colour: black}, Stop{Value: 10, Colour: white})

	if p.Type() != PaletteScalar {
		t.Errorf("Type() = %v, want scalar", p.Type())
	}
	if got := p.Lookup(-5); got != black {
		t.Errorf("below range = %v, want %v", got, black)
	}
	if got := p.Lookup(50); got != white {
		t.Errorf("above range = %v, want %v", got, white)
	}
	if got := p.Lookup(10); got != white {
		t.Errorf("exact stop = %v, want %v", got, white)
	}
	mid := p.Lookup(5)
	if mid.R == 0 || mid.R == 255 || mid.A != 255 {
		t.Errorf("midpoint = %v, want an intermediate grey", mid)
	}
	if got := p.Lookup(math.NaN()); got.A != 0 {
		t.Errorf("NaN = %v, want transparent", got)
	}
}

func TestScalarPaletteErrors(t *testing.T) {
	if _, err := NewScalarPalette(); !errors.Is(err, ErrNoStops) {
		t.Errorf("no stops: err = %v, want ErrNoStops", err)
	}
	if _, err := NewScalarPalette(Stop{Value: math.NaN()}); err == nil {
		t.Error("NaN stop should fail")
	}
}

func TestPaletteAccepts(t *testing.T) {
	if !PaletteScalar.Accepts(RasterScalar) || PaletteScalar.Accepts(RasterRGBA) {
		t.Error("scalar palette should only accept scalar rasters")
	}
	if !PalettePassthrough.Accepts(RasterRGBA) || PalettePassthrough.Accepts(RasterScalar) {
		t.Error("passthrough palette should only accept rgba rasters")
	}
}

func TestRasterProxySubjects(t *testing.T) {
	p := NewRasterProxy("topography", nil)
	var content, feature token.Observer
	content.Sync(p.RasterContentSubject())
	feature.Sync(p.RasterFeatureSubject())

	r, _ := NewScalarRaster(1, 1, []float32{1})
	p.SetRaster(r)
	if content.IsUpToDate(p.RasterContentSubject()) {
		t.Error("SetRaster should invalidate the content subject")
	}
	if !feature.IsUpToDate(p.RasterFeatureSubject()) {
		t.Error("SetRaster should not invalidate the feature subject")
	}

	p.SetGeoreferencing(GlobalGeoreferencing())
	if feature.IsUpToDate(p.RasterFeatureSubject()) {
		t.Error("SetGeoreferencing should invalidate the feature subject")
	}
	if _, ok := p.Georeferencing(); !ok {
		t.Error("georeferencing should be set")
	}
	p.ClearGeoreferencing()
	if _, ok := p.Georeferencing(); ok {
		t.Error("georeferencing should be cleared")
	}
}

func TestRasterProxyBatch(t *testing.T) {
	batch := token.NewBatch()
	p := NewRasterProxy("ages", batch)
	var content token.Observer
	content.Sync(p.RasterContentSubject())

	exit := batch.Enter()
	r, _ := NewScalarRaster(1, 1, []float32{1})
	p.SetRaster(r)
	p.SetRaster(r)
	if !content.IsUpToDate(p.RasterContentSubject()) {
		t.Error("invalidation should wait for the batch to close")
	}
	exit()
	if content.IsUpToDate(p.RasterContentSubject()) {
		t.Error("invalidation should apply after the batch closes")
	}
}

func TestReconstructionProxy(t *testing.T) {
	p := NewReconstructionProxy("plates", nil)
	if _, ok := p.PresentDayPolygons(); ok {
		t.Error("new proxy should have no polygons")
	}

	var rot token.Observer
	rot.Sync(p.RotationSubject())
	p.SetStagePole(701, LatLon{Lat: 90}, 1)
	if rot.IsUpToDate(p.RotationSubject()) {
		t.Error("SetStagePole should invalidate the rotation subject")
	}

	r := p.RotationAt(701, 10)
	if r.Angle != 10 {
		t.Errorf("Angle = %v, want 10", r.Angle)
	}
	if !p.RotationAt(999, 10).IsIdentity() {
		t.Error("unknown plate should not rotate")
	}
	if !p.RotationAt(701, 0).IsIdentity() {
		t.Error("present day should not rotate")
	}
}
