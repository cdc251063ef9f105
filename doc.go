// Package layercache caches the GPU resources drawn for geological layers:
// colour-mapped rasters tiled onto a cube, age-grid masks, reconstructed
// polygon meshes and the rasters reconstructed through them.
//
// # Overview
//
// Derived resources are expensive to build and cheap to reuse. layercache
// builds them lazily when a frame needs them, keeps them while their inputs
// are unchanged, and rebuilds exactly what an upstream change affects.
//
// Invalidation is pull based. Upstream layers own [token.Subject] values
// and invalidate them when they change; the cache checks its observers on
// each draw. No callbacks run between frames.
//
// # Quick Start
//
//	cache, err := layercache.New(provider)
//	if err != nil {
//	    return err
//	}
//
//	raster := layer.NewRasterProxy("topography", cache.Batch())
//	raster.SetRaster(raw)
//	raster.SetGeoreferencing(layer.GlobalGeoreferencing())
//
//	// Once per frame:
//	h := cache.RenderRaster(view, layercache.RasterParams{
//	    Raster:  raster,
//	    Palette: palette,
//	})
//	defer h.Release()
//
// # Architecture
//
// The module is organized into:
//   - token: subjects, observers and batched invalidation
//   - layer: the upstream layer interfaces and in-memory layers
//   - upload: tile upload to a HAL device or to memory
//   - resource: usages, per-layer registries and the registry table
//   - pool: resources shared per sharing group and globally
//
// # Removing Layers
//
// Call [Cache.LayerAboutToBeRemoved] before a layer is destroyed. Usages
// that cannot work without it are cut off and draw nothing; usages that
// only used it optionally, such as a raster masked by a removed age grid,
// keep drawing without it.
//
// # Concurrency
//
// Cache methods may be called from several goroutines; draws are
// serialized. Layers themselves are not synchronized, so change them
// between draws or from the drawing goroutine.
package layercache
