package layercache

import (
	"bytes"
	"errors"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/resource"
	"github.com/gogpu/layercache/upload"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// ignoreResources skips the resource pointers of a DrawCommand.
var ignoreResources = cmpopts.IgnoreFields(DrawCommand{},
	"Globe", "Cube", "Map", "Reconstruction", "Filled")

// recorder collects draw commands.
type recorder struct {
	cmds []DrawCommand
}

func (r *recorder) Draw(cmd DrawCommand) { r.cmds = append(r.cmds, cmd) }

func (r *recorder) last(t *testing.T) DrawCommand {
	t.Helper()
	if len(r.cmds) == 0 {
		t.Fatal("nothing drawn")
	}
	return r.cmds[len(r.cmds)-1]
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *upload.MemoryLoader) {
	t.Helper()
	mem := upload.NewMemoryLoader()
	opts = append([]Option{WithLoader(mem), WithPools(pool.New()), WithTileSize(4)}, opts...)
	c, err := New(nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mem
}

func scalarRaster(t *testing.T, c *Cache, name string, v float32) *layer.RasterProxy {
	t.Helper()
	samples := make([]float32, 16*8)
	for i := range samples {
		samples[i] = v
	}
	raw, err := layer.NewScalarRaster(16, 8, samples)
	if err != nil {
		t.Fatalf("NewScalarRaster: %v", err)
	}
	p := layer.NewRasterProxy(name, c.Batch())
	p.SetRaster(raw)
	return p
}

func plate(c *Cache, name string) *layer.ReconstructionProxy {
	p := layer.NewReconstructionProxy(name, c.Batch())
	p.SetPolygons([]layer.Polygon{{
		PlateID: 1,
		Ring:    []layer.LatLon{{Lat: -10, Lon: -10}, {Lat: -10, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: -10}},
	}})
	p.SetStagePole(1, layer.LatLon{Lat: 90}, 1)
	return p
}

func redBlue() *layer.ColourPalette {
	return layer.MustScalarPalette(layer.Stop{Value: 0, Colour: red}, layer.Stop{Value: 1, Colour: blue})
}

func TestRenderRasterReconstructionLifecycle(t *testing.T) {
	c, mem := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	b := plate(c, "b")
	view := &recorder{}

	params := RasterParams{Raster: a, Palette: redBlue(), Reconstruction: b, Time: 10}

	// Without georeferencing nothing can be drawn.
	if h := c.RenderRaster(view, params); h != nil {
		t.Fatal("raster without georeferencing should not draw")
	}
	if len(view.cmds) != 0 {
		t.Fatalf("drew %d commands, want 0", len(view.cmds))
	}

	c.Update(func() { a.SetGeoreferencing(layer.GlobalGeoreferencing()) })

	h := c.RenderRaster(view, params)
	if h == nil {
		t.Fatal("georeferenced raster should draw")
	}
	defer h.Release()

	want := DrawCommand{
		Kind:      DrawReconstructedRaster,
		Layer:     "a",
		Time:      10,
		Tiles:     6,
		Levels:    1,
		Polygons:  1,
		Triangles: 2,
	}
	if diff := cmp.Diff(want, view.last(t), ignoreResources); diff != "" {
		t.Errorf("reconstructed draw mismatch (-want +got):\n%s", diff)
	}

	c.LayerAboutToBeRemoved(b)
	params.Reconstruction = nil

	h2 := c.RenderRaster(view, params)
	if h2 == nil {
		t.Fatal("raster should still draw after its reconstruction layer is removed")
	}
	defer h2.Release()

	got := view.last(t)
	if got.Kind != DrawRaster || got.Reconstruction != nil {
		t.Errorf("draw after removal = %v, want unreconstructed raster", got.Kind)
	}
	if got.Triangles != got.Globe.Triangles() {
		t.Errorf("triangles = %d, want globe mesh %d", got.Triangles, got.Globe.Triangles())
	}
	if s := c.Stats(); s.Layers != 1 {
		t.Errorf("layers = %d, want 1", s.Layers)
	}
	if mem.Live() == 0 {
		t.Error("drawn tiles should be live")
	}
}

func TestRenderRasterPaletteRecolourKeepsTiles(t *testing.T) {
	c, mem := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	view := &recorder{}

	c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue()}).Release()
	first := view.last(t).Cube
	loads := mem.Loads()

	other := layer.MustScalarPalette(layer.Stop{Value: 0, Colour: blue}, layer.Stop{Value: 1, Colour: red})
	c.RenderRaster(view, RasterParams{Raster: a, Palette: other}).Release()

	if view.last(t).Cube != first {
		t.Error("recolouring should keep the cube raster")
	}
	if mem.Loads() != loads {
		t.Errorf("loads = %d, want %d", mem.Loads(), loads)
	}
	if mem.Updates() == 0 {
		t.Error("recolouring should update tiles in place")
	}
}

func TestRenderRasterAgeGridAndNormalMap(t *testing.T) {
	c, _ := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	ages := scalarRaster(t, c, "ages", 50)
	ages.SetGeoreferencing(layer.GlobalGeoreferencing())

	pix := make([]byte, 16*8*4)
	for i := range pix {
		pix[i] = 128
	}
	raw, err := layer.NewRGBARaster(16, 8, pix)
	if err != nil {
		t.Fatalf("NewRGBARaster: %v", err)
	}
	normals := layer.NewRasterProxy("normals", c.Batch())
	normals.SetRaster(raw)
	normals.SetGeoreferencing(layer.GlobalGeoreferencing())

	c.Lighting().SetEnabled(true)
	view := &recorder{}
	h := c.RenderRaster(view, RasterParams{
		Raster:    a,
		Palette:   redBlue(),
		AgeGrid:   ages,
		NormalMap: normals,
	})
	if h == nil {
		t.Fatal("raster should draw")
	}
	defer h.Release()

	got := view.last(t)
	if !got.AgeMasked || !got.NormalMapped {
		t.Errorf("AgeMasked=%v NormalMapped=%v, want both", got.AgeMasked, got.NormalMapped)
	}
	if !got.Lighting.Enabled {
		t.Error("normal-mapped draw should carry the lighting state")
	}
	// Cube tiles, coverage, mask and normal map tiles.
	if got.Tiles != 6+1+1+6 {
		t.Errorf("tiles = %d, want 14", got.Tiles)
	}

	c.LayerAboutToBeRemoved(ages)
	h2 := c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue(), NormalMap: normals})
	defer h2.Release()
	if got := view.last(t); got.AgeMasked || !got.NormalMapped {
		t.Errorf("after removal AgeMasked=%v NormalMapped=%v", got.AgeMasked, got.NormalMapped)
	}
}

func TestRenderRasterMap(t *testing.T) {
	c, _ := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	view := &recorder{}

	h := c.RenderRaster(view, RasterParams{
		Raster:  a,
		Palette: redBlue(),
		Map:     &resource.MapProjection{Width: 8, Height: 4},
	})
	if h == nil {
		t.Fatal("map raster should draw")
	}
	defer h.Release()

	want := DrawCommand{Kind: DrawMapRaster, Layer: "a", Tiles: 1}
	if diff := cmp.Diff(want, view.last(t), ignoreResources); diff != "" {
		t.Errorf("map draw mismatch (-want +got):\n%s", diff)
	}
	if m := view.last(t).Map; m == nil || m.Reconstructed {
		t.Error("map should be drawn from the plain cube raster")
	}
}

func TestRenderScalarField(t *testing.T) {
	c, _ := newTestCache(t)
	field := scalarRaster(t, c, "field", 1)
	view := &recorder{}

	if h := c.RenderScalarField(view, field, ScalarFieldParams{Palette: redBlue()}); h != nil {
		t.Fatal("field without georeferencing should not draw")
	}
	field.SetGeoreferencing(layer.GlobalGeoreferencing())

	h := c.RenderScalarField(view, field, ScalarFieldParams{Palette: redBlue(), Opacity: 0.5})
	if h == nil {
		t.Fatal("field should draw")
	}
	defer h.Release()
	if got := view.last(t); got.Kind != DrawScalarField || got.Tiles != 6 {
		t.Errorf("draw = %v with %d tiles", got.Kind, got.Tiles)
	}
}

func TestRenderFilledPolygons(t *testing.T) {
	c, _ := newTestCache(t)
	view := &recorder{}

	c.RenderFilledPolygons(view, nil, red)
	if len(view.cmds) != 0 {
		t.Fatal("no polygons should draw nothing")
	}

	polys := []layer.Polygon{
		{PlateID: 1, Ring: []layer.LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0}, {Lat: 5, Lon: -5}}},
		{PlateID: 2, Ring: []layer.LatLon{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}},
	}
	c.RenderFilledPolygons(view, polys, red)

	want := DrawCommand{Kind: DrawFilledPolygons, Polygons: 1, Triangles: 3, Colour: red}
	if diff := cmp.Diff(want, view.last(t), ignoreResources); diff != "" {
		t.Errorf("filled draw mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleKeepsTilesAlive(t *testing.T) {
	c, mem := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())

	h := c.RenderRaster(&recorder{}, RasterParams{Raster: a, Palette: redBlue()})
	if h == nil {
		t.Fatal("raster should draw")
	}
	c.LayerAboutToBeRemoved(a)
	if mem.Live() != 6 {
		t.Errorf("live tiles with handle held = %d, want 6", mem.Live())
	}
	h.Release()
	h.Release()
	if mem.Live() != 0 {
		t.Errorf("live tiles after release = %d, want 0", mem.Live())
	}

	var nilHandle *Handle
	nilHandle.Release()
}

func TestCacheBudget(t *testing.T) {
	// One 4x4 RGBA tile is 64 bytes; six fit, a second raster does not.
	c, _ := newTestCache(t, WithConfig(Config{Budget: "400"}))
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	b := scalarRaster(t, c, "b", 1)
	b.SetGeoreferencing(layer.GlobalGeoreferencing())

	view := &recorder{}
	ha := c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue()})
	if ha == nil {
		t.Fatal("first raster should fit the budget")
	}
	defer ha.Release()
	if hb := c.RenderRaster(view, RasterParams{Raster: b, Palette: redBlue()}); hb != nil {
		t.Error("second raster should exceed the budget")
	}

	s := c.Stats()
	if !s.HasBudget || s.Tiles.LiveTiles != 6 || s.Tiles.Rejected == 0 {
		t.Errorf("stats = %s", s)
	}
}

func TestNewConfigBackend(t *testing.T) {
	c, err := New(nil, WithPools(pool.New()), WithConfig(Config{Backend: "memory"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if got := c.table.Env().TileSize; got != 0 && got != resource.DefaultTileSize {
		t.Errorf("tile size = %d", got)
	}

	_, err = New(nil, WithPools(pool.New()), WithConfig(Config{Backend: "hal"}))
	var unavailable *upload.BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("hal backend without device err = %v", err)
	}

	_, err = New(nil, WithConfig(Config{Budget: "lots"}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad budget err = %v, want ErrInvalidConfig", err)
	}
}

func TestClosedCacheDrawsNothing(t *testing.T) {
	c, mem := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	c.RenderRaster(&recorder{}, RasterParams{Raster: a, Palette: redBlue()}).Release()

	c.Close()
	c.Close()
	if mem.Live() != 0 {
		t.Errorf("live tiles after close = %d, want 0", mem.Live())
	}
	view := &recorder{}
	if h := c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue()}); h != nil || len(view.cmds) != 0 {
		t.Error("closed cache should not draw")
	}
}

func TestRasterAndScalarFieldOfOneLayerStaySteady(t *testing.T) {
	c, mem := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	field := layer.MustScalarPalette(layer.Stop{Value: 0, Colour: blue}, layer.Stop{Value: 1, Colour: red})
	view := &recorder{}

	var first *resource.CubeRaster
	for frame := 0; frame < 5; frame++ {
		h := c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue()})
		if h == nil {
			t.Fatalf("frame %d: raster not drawn", frame)
		}
		if first == nil {
			first = view.last(t).Cube
		}
		hf := c.RenderScalarField(view, a, ScalarFieldParams{Palette: field, Opacity: 0.5})
		if hf == nil {
			t.Fatalf("frame %d: field not drawn", frame)
		}
		h.Release()
		hf.Release()
	}

	reg := c.table.Registry(a)
	for _, u := range []*resource.CubeRasterUsage{reg.CubeRasterUsage(), reg.ScalarFieldUsage()} {
		if u.Builds() != 1 || u.Refreshes() != 0 || u.Adapted().Mutates() != 0 {
			t.Errorf("%v: builds=%d refreshes=%d mutates=%d, want 1/0/0",
				u.Kind(), u.Builds(), u.Refreshes(), u.Adapted().Mutates())
		}
	}
	if mem.Updates() != 0 {
		t.Errorf("tile updates = %d, want 0", mem.Updates())
	}
	mt, ok := first.Tile(0, 0, 0, 0).(*upload.MemoryTile)
	if !ok {
		t.Fatalf("tile is %T", first.Tile(0, 0, 0, 0))
	}
	if px := mt.Pixels(); px[0] != 255 || px[2] != 0 {
		t.Errorf("raster texel = %v, want red", px[:4])
	}
}

func TestScalarNormalMapIsDroppedWithWarning(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	c, _ := newTestCache(t)
	a := scalarRaster(t, c, "a", 0)
	a.SetGeoreferencing(layer.GlobalGeoreferencing())
	normals := scalarRaster(t, c, "normals", 1)
	normals.SetGeoreferencing(layer.GlobalGeoreferencing())
	view := &recorder{}

	for i := 0; i < 3; i++ {
		h := c.RenderRaster(view, RasterParams{Raster: a, Palette: redBlue(), NormalMap: normals})
		if h == nil {
			t.Fatal("raster should draw without its normal map")
		}
		h.Release()
		if view.last(t).NormalMapped {
			t.Fatal("a scalar layer cannot serve as a normal map")
		}
	}
	if n := strings.Count(buf.String(), "palette cannot colour raster"); n != 1 {
		t.Errorf("warnings logged = %d, want 1\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "layer=normals") {
		t.Errorf("warning should name the layer:\n%s", buf.String())
	}
}
