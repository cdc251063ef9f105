package layercache

import (
	"errors"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for configurations that cannot be applied.
var ErrInvalidConfig = errors.New("layercache: invalid config")

// Config is the file-based configuration of a Cache.
//
// Example layercache.toml:
//
//	backend   = "memory"
//	tile_size = 128
//	budget    = "256MiB"
type Config struct {
	// Backend names the upload backend ("hal", "memory"). Empty selects
	// the best available one.
	Backend string `toml:"backend"`

	// TileSize is the cube tile edge in texels. Zero uses the default.
	TileSize int `toml:"tile_size"`

	// Budget caps the memory held by uploaded tiles, as a size string such
	// as "512MiB" or "1g". Empty means unlimited.
	Budget string `toml:"budget"`
}

// ParseConfig decodes a TOML configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("layercache: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration's values.
func (c Config) Validate() error {
	if c.TileSize < 0 {
		return fmt.Errorf("%w: tile_size %d is negative", ErrInvalidConfig, c.TileSize)
	}
	if _, err := c.BudgetBytes(); err != nil {
		return err
	}
	return nil
}

// BudgetBytes returns the tile memory budget in bytes; 0 means unlimited.
func (c Config) BudgetBytes() (uint64, error) {
	if c.Budget == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.Budget)
	if err != nil {
		return 0, fmt.Errorf("%w: budget %q: %w", ErrInvalidConfig, c.Budget, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: budget %q is negative", ErrInvalidConfig, c.Budget)
	}
	return uint64(n), nil
}
