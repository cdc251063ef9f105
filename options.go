package layercache

import (
	"github.com/gogpu/layercache/pool"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// Option configures a Cache during creation.
// Use functional options to customize Cache behavior.
//
// Example:
//
//	// Default: best available loader for the provider
//	cache, err := layercache.New(provider)
//
//	// Headless cache with small tiles
//	cache, err := layercache.New(nil,
//	    layercache.WithLoader(upload.NewMemoryLoader()),
//	    layercache.WithTileSize(32))
type Option func(*options)

// options holds optional configuration for Cache creation.
type options struct {
	loader   upload.TileLoader
	pools    *pool.Pools
	tileSize int
	config   *Config
	batch    *token.Batch
}

// defaultOptions returns the default cache options.
func defaultOptions() options {
	return options{
		loader: nil, // Chosen from the upload registry if nil
		pools:  pool.Default,
	}
}

// WithLoader sets the tile loader, bypassing backend selection.
// Use this for dependency injection of custom or headless loaders.
//
// Example:
//
//	mem := upload.NewMemoryLoader()
//	cache, err := layercache.New(nil, layercache.WithLoader(mem))
func WithLoader(l upload.TileLoader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithPools sets the shared resource pools. Caches created with the same
// pools and devices in the same sharing group share meshes and shaders.
// The default is pool.Default.
func WithPools(p *pool.Pools) Option {
	return func(o *options) {
		if p != nil {
			o.pools = p
		}
	}
}

// WithTileSize sets the cube tile edge in texels. It takes precedence over
// the tile size of a configuration.
func WithTileSize(size int) Option {
	return func(o *options) {
		o.tileSize = size
	}
}

// WithConfig applies a configuration, usually loaded with LoadConfig.
//
// Example:
//
//	cfg, err := layercache.LoadConfig("layercache.toml")
//	if err != nil {
//	    return err
//	}
//	cache, err := layercache.New(provider, layercache.WithConfig(cfg))
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithBatch shares a batch context with the cache. Layers created with
// the same batch defer their invalidations within Cache.Update.
func WithBatch(b *token.Batch) Option {
	return func(o *options) {
		if b != nil {
			o.batch = b
		}
	}
}
