// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/layercache/layer"
)

// mockDevice implements gpucontext.Device. The id keeps instances distinct.
type mockDevice struct{ id int }

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockProvider struct {
	device gpucontext.Device
}

func (m *mockProvider) Device() gpucontext.Device             { return m.device }
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

func TestListObjectsSharedWithinGroup(t *testing.T) {
	p := New()
	shared := &mockDevice{id: 1}
	other := &mockDevice{id: 2}

	a := p.ListObjects(&mockProvider{device: shared})
	b := p.ListObjects(&mockProvider{device: shared})
	c := p.ListObjects(&mockProvider{device: other})

	if a != b {
		t.Error("providers with the same device should share ListObjects")
	}
	if a == c {
		t.Error("providers with different devices should not share ListObjects")
	}
	if p.Groups() != 2 {
		t.Errorf("Groups() = %d, want 2", p.Groups())
	}

	if a.CubeMesh() != b.CubeMesh() {
		t.Error("cube mesh should be built once per group")
	}
	if a.FilledPolygons() != b.FilledPolygons() {
		t.Error("filled polygon renderer should be shared within a group")
	}
}

func TestHeadlessGroup(t *testing.T) {
	p := New()
	a := p.ListObjects(nil)
	b := p.ListObjects(&mockProvider{})
	if a != b {
		t.Error("nil provider and provider without device should share the headless group")
	}
	if a.HasDevice() {
		t.Error("headless group should have no device")
	}
	if _, err := a.ShaderModule(ShaderCubeRaster); !errors.Is(err, ErrNoDevice) {
		t.Errorf("ShaderModule err = %v, want ErrNoDevice", err)
	}
}

func TestReleaseDropsGroup(t *testing.T) {
	p := New()
	prov := &mockProvider{device: &mockDevice{id: 3}}
	first := p.ListObjects(prov)
	p.Release(prov)
	if p.Groups() != 0 {
		t.Fatalf("Groups() = %d after release", p.Groups())
	}
	if p.ListObjects(prov) == first {
		t.Error("a released group should be recreated")
	}
	p.Release(&mockProvider{device: &mockDevice{id: 4}}) // unknown group is a no-op
}

func TestNonListObjectsGlobal(t *testing.T) {
	p := New()
	a := p.ListObjects(&mockProvider{device: &mockDevice{id: 1}})
	b := p.ListObjects(&mockProvider{device: &mockDevice{id: 2}})
	if a.global != b.global || a.global != p.NonListObjects() {
		t.Error("all groups should share one NonListObjects")
	}
	if New().NonListObjects() == p.NonListObjects() {
		t.Error("separate Pools should have separate NonListObjects")
	}
}

func TestFaceTable(t *testing.T) {
	n := New().NonListObjects()
	ft := n.FaceTable(1)
	if n.FaceTable(1) != ft {
		t.Error("face tables should be cached per size")
	}

	// A 1x1 tile samples the face centre.
	tests := []struct {
		face int
		want layer.LatLon
	}{
		{0, layer.LatLon{Lat: 0, Lon: 0}},
		{2, layer.LatLon{Lat: 0, Lon: 90}},
		{3, layer.LatLon{Lat: 0, Lon: -90}},
		{4, layer.LatLon{Lat: 90}},
		{5, layer.LatLon{Lat: -90}},
	}
	for _, tt := range tests {
		got := ft.Positions[tt.face][0]
		if math.Abs(float64(got.Lat-tt.want.Lat)) > 1e-3 {
			t.Errorf("face %d lat = %v, want %v", tt.face, got.Lat, tt.want.Lat)
		}
		if tt.want.Lat == 0 && math.Abs(float64(got.Lon-tt.want.Lon)) > 1e-3 {
			t.Errorf("face %d lon = %v, want %v", tt.face, got.Lon, tt.want.Lon)
		}
	}
	if lon := math.Abs(float64(ft.Positions[1][0].Lon)); math.Abs(lon-180) > 1e-3 {
		t.Errorf("-X face lon = %v, want ±180", ft.Positions[1][0].Lon)
	}

	big := n.FaceTable(8)
	for f := range big.Positions {
		if len(big.Positions[f]) != 64 {
			t.Fatalf("face %d has %d texels, want 64", f, len(big.Positions[f]))
		}
	}
}

func TestCubeMesh(t *testing.T) {
	m := NewCubeMesh(4)
	if got, want := len(m.Positions), 6*5*5; got != want {
		t.Errorf("positions = %d, want %d", got, want)
	}
	if got, want := m.Triangles(), 6*4*4*2; got != want {
		t.Errorf("triangles = %d, want %d", got, want)
	}
	for i, p := range m.Positions {
		if l := p.Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Fatalf("vertex %d has length %v", i, l)
		}
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestFilledPolygonRenderer(t *testing.T) {
	r := NewFilledPolygonRenderer()
	polys := []layer.Polygon{
		{PlateID: 1, Ring: []layer.LatLon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}},
		{PlateID: 2, Ring: []layer.LatLon{{0, 0}, {1, 1}}}, // degenerate
		{PlateID: 3, Ring: []layer.LatLon{{20, 20}, {20, 30}, {30, 25}}},
	}

	mesh := r.Tessellate(polys, nil)
	if mesh.Polygons != 2 {
		t.Errorf("Polygons = %d, want 2", mesh.Polygons)
	}
	if len(mesh.Positions) != 7 {
		t.Errorf("positions = %d, want 7", len(mesh.Positions))
	}
	want := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6}
	if len(mesh.Indices) != len(want) {
		t.Fatalf("indices = %v, want %v", mesh.Indices, want)
	}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", mesh.Indices, want)
		}
	}

	// A half turn about the north pole moves (0, 0) to (0, 180).
	rotated := r.Tessellate(polys[:1], func(int) layer.Rotation {
		return layer.Rotation{Pole: layer.LatLon{Lat: 90}, Angle: 180}
	})
	ll := rotated.Positions[0].LatLon()
	if math.Abs(math.Abs(float64(ll.Lon))-180) > 1e-3 {
		t.Errorf("rotated vertex lon = %v, want ±180", ll.Lon)
	}
	if mesh.Positions[0] == rotated.Positions[0] {
		t.Error("earlier meshes must not alias the renderer's scratch buffers")
	}
}

func TestLighting(t *testing.T) {
	l := New().ListObjects(nil).Lighting()
	s := l.Subject()
	before := *s

	l.SetEnabled(true)
	l.SetAmbient(2)
	l.SetDirection(layer.Vec3{0, 0, 5})

	st := l.State()
	if !st.Enabled || st.Ambient != 1 || st.Direction != (layer.Vec3{0, 0, 1}) {
		t.Errorf("State() = %+v", st)
	}
	if *s == before {
		t.Error("lighting changes should invalidate the subject")
	}
}

func TestShaderSources(t *testing.T) {
	for _, s := range []Shader{ShaderCubeRaster, ShaderFilledPolygon} {
		src := s.Source()
		for _, want := range []string{"@vertex", "@fragment", "vs_main", "fs_main", "@group(0) @binding(0)"} {
			if !strings.Contains(src, want) {
				t.Errorf("%s shader missing %q", s, want)
			}
		}
	}
	if _, err := New().NonListObjects().SPIRV("missing"); err == nil {
		t.Error("unknown shader should fail to compile")
	}
}
