package layercache

import (
	"fmt"
	"image/color"

	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/resource"
)

// DrawKind says what a DrawCommand draws.
type DrawKind uint8

const (
	// DrawRaster draws a cube raster at its present-day position.
	DrawRaster DrawKind = iota

	// DrawReconstructedRaster draws a cube raster through reconstructed
	// polygon meshes.
	DrawReconstructedRaster

	// DrawMapRaster draws a map-projected raster.
	DrawMapRaster

	// DrawScalarField draws a colour-mapped scalar field on the globe.
	DrawScalarField

	// DrawFilledPolygons draws filled polygons.
	DrawFilledPolygons
)

// String returns a human-readable name for the draw kind.
func (k DrawKind) String() string {
	switch k {
	case DrawRaster:
		return "raster"
	case DrawReconstructedRaster:
		return "reconstructed-raster"
	case DrawMapRaster:
		return "map-raster"
	case DrawScalarField:
		return "scalar-field"
	case DrawFilledPolygons:
		return "filled-polygons"
	default:
		return fmt.Sprintf("DrawKind(%d)", k)
	}
}

// DrawCommand is one draw issued to a View. Resources referenced by the
// command stay valid until the Handle returned with it is released.
type DrawCommand struct {
	Kind  DrawKind
	Layer string
	Time  float64

	// Tiles is the number of tiles drawn from; Levels the cube levels.
	Tiles  int
	Levels int

	AgeMasked    bool
	NormalMapped bool
	Lighting     pool.LightingState

	// Polygons and Triangles count reconstructed or filled polygons.
	Polygons  int
	Triangles int

	// Colour is the fill colour of filled polygons.
	Colour color.RGBA

	// Globe is the sharing group's cube mesh for globe draws.
	Globe *pool.CubeMesh

	Cube           *resource.CubeRaster
	Map            *resource.MapRaster
	Reconstruction *resource.PolygonMeshes
	Filled         *pool.FilledMesh
}

// View receives the draw commands of a frame.
type View interface {
	Draw(cmd DrawCommand)
}

// ViewFunc adapts a function to the View interface.
type ViewFunc func(cmd DrawCommand)

// Draw calls f(cmd).
func (f ViewFunc) Draw(cmd DrawCommand) { f(cmd) }
