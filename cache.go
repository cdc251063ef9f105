package layercache

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/resource"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// opaqueWhite leaves colours unchanged when used as a modulate colour.
var opaqueWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Cache is the layer resource cache of one view. It owns the derived
// resources of every layer drawn through it and shares device-level
// objects with the other caches of its sharing group.
//
// Cache methods are safe for concurrent use; draws are serialized.
type Cache struct {
	mu sync.Mutex

	id       uuid.UUID
	provider upload.DeviceHandle
	pools    *pool.Pools
	list     *pool.ListObjects
	table    *resource.Table
	budget   *upload.Budget
	batch    *token.Batch

	passthrough *layer.ColourPalette
	closed      bool
}

// New creates a cache drawing with provider's device. A nil provider
// creates a headless cache uploading to CPU memory unless a loader is
// given with WithLoader.
func New(provider upload.DeviceHandle, opts ...Option) (*Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if provider == nil {
		provider = upload.NullDeviceHandle{}
	}

	var cfg Config
	if o.config != nil {
		cfg = *o.config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	loader := o.loader
	if loader == nil {
		var err error
		if cfg.Backend != "" {
			loader, err = upload.NewLoaderByName(cfg.Backend, provider)
		} else {
			loader, err = upload.NewLoader(provider)
		}
		if err != nil {
			return nil, fmt.Errorf("layercache: create loader: %w", err)
		}
	}

	budgetBytes, err := cfg.BudgetBytes()
	if err != nil {
		return nil, err
	}
	var budget *upload.Budget
	if budgetBytes > 0 {
		budget = upload.NewBudget(loader, budgetBytes)
		loader = budget
	}

	tileSize := cfg.TileSize
	if o.tileSize > 0 {
		tileSize = o.tileSize
	}

	batch := o.batch
	if batch == nil {
		batch = token.NewBatch()
	}

	c := &Cache{
		id:       uuid.New(),
		provider: provider,
		pools:    o.pools,
		list:     o.pools.ListObjects(provider),
		budget:   budget,
		batch:    batch,
		table: resource.NewTable(resource.Env{
			Loader:   loader,
			Global:   o.pools.NonListObjects(),
			TileSize: tileSize,
		}),
		passthrough: layer.NewPassthroughPalette(),
	}

	if c.list.HasDevice() {
		for _, s := range []pool.Shader{pool.ShaderCubeRaster, pool.ShaderFilledPolygon} {
			if _, err := c.list.ShaderModule(s); err != nil {
				Logger().Warn("layercache: shader module unavailable",
					"cache", c.id, "shader", s, "err", err)
			}
		}
	}

	Logger().Info("layercache: cache created",
		"cache", c.id, "tile_size", c.table.Env().TileSize, "budget", budgetBytes)
	return c, nil
}

// ID returns the cache's instance identifier, used in log output.
func (c *Cache) ID() uuid.UUID { return c.id }

// Batch returns the batch context of the cache. Layers created with it
// defer their invalidations while Update runs.
func (c *Cache) Batch() *token.Batch { return c.batch }

// Lighting returns the lighting shared by the cache's sharing group.
func (c *Cache) Lighting() *pool.Lighting { return c.list.Lighting() }

// Update runs fn in a batch scope: layer changes made by fn become visible
// together when fn returns.
func (c *Cache) Update(fn func()) {
	defer c.batch.Enter()()
	fn()
}

// RasterParams describes one raster draw.
type RasterParams struct {
	// Raster supplies the raster to draw. Required.
	Raster layer.RasterSource

	// Palette colour-maps the raster. Nil draws RGBA rasters unchanged.
	Palette *layer.ColourPalette

	// ModulateColour multiplies every texel. The zero value means white.
	ModulateColour color.RGBA

	// Reconstruction, AgeGrid and NormalMap are optional producers from
	// other layers.
	Reconstruction layer.ReconstructionSource
	AgeGrid        layer.RasterSource
	NormalMap      layer.RasterSource

	// Time is the reconstruction time in Ma.
	Time float64

	// Map selects a flat map projection; nil draws on the globe.
	Map *resource.MapProjection
}

// RenderRaster draws a raster into view. It returns nil and draws nothing
// when the raster cannot be drawn yet, for example before it has been
// loaded or georeferenced.
func (c *Cache) RenderRaster(view View, params RasterParams) *Handle {
	if params.Raster == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	reg := c.table.Registry(params.Raster)
	adapted := reg.AdaptedRasterUsage()
	adapted.SetPalette(c.palette(params.Palette))
	adapted.SetModulateColour(modulate(params.ModulateColour))

	rr := reg.ReconstructedRasterUsage()
	c.wire(rr, params)

	if params.Map != nil {
		m := reg.MapRasterUsage().Get(params.Time, *params.Map)
		if m == nil {
			return nil
		}
		view.Draw(DrawCommand{
			Kind:  DrawMapRaster,
			Layer: params.Raster.LayerName(),
			Time:  params.Time,
			Tiles: m.Tiles.Len(),
			Map:   m,
		})
		return newHandle(m.Tiles)
	}

	r := rr.Get(params.Time)
	if r == nil {
		return nil
	}

	cmd := DrawCommand{
		Kind:         DrawRaster,
		Layer:        params.Raster.LayerName(),
		Time:         params.Time,
		Levels:       r.Cube.Levels,
		AgeMasked:    r.AgeGrid != nil,
		NormalMapped: r.NormalMap != nil,
		Globe:        c.list.CubeMesh(),
		Cube:         r.Cube,
	}
	sets := r.TileSets()
	for _, s := range sets {
		cmd.Tiles += s.Len()
	}
	if r.NormalMap != nil {
		cmd.Lighting = c.list.Lighting().State()
	}
	if r.Reconstructed() {
		cmd.Kind = DrawReconstructedRaster
		cmd.Reconstruction = r.Meshes
		cmd.Polygons = r.Meshes.Polygons
		cmd.Triangles = len(r.Meshes.Indices) / 3
	} else {
		cmd.Triangles = cmd.Globe.Triangles()
	}
	view.Draw(cmd)
	return newHandle(sets...)
}

// wire connects the optional producers of params to rr.
func (c *Cache) wire(rr *resource.ReconstructedRasterUsage, params RasterParams) {
	var meshes *resource.PolygonMeshesUsage
	if params.Reconstruction != nil {
		meshes = c.table.Registry(params.Reconstruction).PolygonMeshesUsage()
	}
	rr.SetReconstruction(meshes)

	var ages *resource.AgeGridUsage
	if params.AgeGrid != nil {
		ages = c.table.Registry(params.AgeGrid).AgeGridUsage()
	}
	rr.SetAgeGrid(ages)

	var normals *resource.CubeRasterUsage
	if params.NormalMap != nil {
		normals = c.table.Registry(params.NormalMap).NormalMapUsage()
	}
	rr.SetNormalMap(normals)
}

func (c *Cache) palette(p *layer.ColourPalette) *layer.ColourPalette {
	if p == nil {
		return c.passthrough
	}
	return p
}

func modulate(col color.RGBA) color.RGBA {
	if col == (color.RGBA{}) {
		return opaqueWhite
	}
	return col
}

// ScalarFieldParams describes a scalar field draw.
type ScalarFieldParams struct {
	// Palette maps field values to colours. Required.
	Palette *layer.ColourPalette

	// Opacity in [0, 1]. Zero means opaque.
	Opacity float32
}

// RenderScalarField draws a colour-mapped scalar field on the globe. It
// returns nil and draws nothing when the field cannot be drawn yet.
func (c *Cache) RenderScalarField(view View, field layer.RasterSource, params ScalarFieldParams) *Handle {
	if field == nil || params.Palette == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	cube := c.table.Registry(field).ScalarFieldUsage()
	cube.Adapted().SetPalette(params.Palette)
	cube.Adapted().SetModulateColour(opacityColour(params.Opacity))

	r := cube.Get()
	if r == nil {
		return nil
	}
	view.Draw(DrawCommand{
		Kind:      DrawScalarField,
		Layer:     field.LayerName(),
		Tiles:     r.Tiles.Len(),
		Levels:    r.Levels,
		Globe:     c.list.CubeMesh(),
		Triangles: c.list.CubeMesh().Triangles(),
		Cube:      r,
	})
	return newHandle(r.Tiles)
}

func opacityColour(opacity float32) color.RGBA {
	if opacity <= 0 || opacity >= 1 {
		return opaqueWhite
	}
	a := uint8(opacity*255 + 0.5)
	return color.RGBA{R: a, G: a, B: a, A: a}
}

// RenderFilledPolygons draws polygons filled with colour. Polygons are
// tessellated by the sharing group's filled-polygon renderer and are not
// cached.
func (c *Cache) RenderFilledPolygons(view View, polygons []layer.Polygon, colour color.RGBA) {
	if len(polygons) == 0 {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	mesh := c.list.FilledPolygons().Tessellate(polygons, nil)
	if mesh.Polygons == 0 {
		return
	}
	view.Draw(DrawCommand{
		Kind:      DrawFilledPolygons,
		Polygons:  mesh.Polygons,
		Triangles: len(mesh.Indices) / 3,
		Colour:    colour,
		Filled:    &mesh,
	})
}

// LayerAboutToBeRemoved drops every resource belonging to proxy and
// detaches proxy from the resources of other layers. Resources that
// cannot exist without proxy are dropped too. Call it before the layer is
// destroyed.
func (c *Cache) LayerAboutToBeRemoved(proxy layer.Proxy) {
	if proxy == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.RemoveLayer(proxy)
}

// Stats summarizes the cache's contents.
type Stats struct {
	// Layers is the number of layers with a registry.
	Layers int

	// Usages is the number of usages across all layers.
	Usages int

	// Tiles is the tile memory accounting; only set when HasBudget.
	Tiles     upload.BudgetStats
	HasBudget bool
}

// String returns a human-readable summary.
func (s Stats) String() string {
	if !s.HasBudget {
		return fmt.Sprintf("Cache[%d layers, %d usages]", s.Layers, s.Usages)
	}
	return fmt.Sprintf("Cache[%d layers, %d usages] %s", s.Layers, s.Usages, s.Tiles)
}

// Stats returns current statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Layers: c.table.Len(), Usages: c.table.Usages()}
	if c.budget != nil {
		s.Tiles = c.budget.Stats()
		s.HasBudget = true
	}
	return s
}

// Close drops every resource held by the cache. Tiles still referenced by
// unreleased handles are freed when those handles are released. Close
// does not release the sharing group; see pool.Pools.Release.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.table.Clear()
	Logger().Info("layercache: cache closed", "cache", c.id)
}
