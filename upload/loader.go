// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package upload is the graphics-upload boundary of the layer cache.
//
// The cache decides when tiles must be (re)uploaded; a [TileLoader] decides
// how. Two loaders are provided: [HALLoader] uploads to a gogpu/wgpu HAL
// device and [MemoryLoader] keeps CPU copies for headless use and tests.
// Loaders are selected through the backend [Registry].
package upload

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
// The cache receives the device from the host; it never creates one.
type DeviceHandle = gpucontext.DeviceProvider

// Upload errors.
var (
	// ErrInvalidTile is returned for requests with empty size or a pixel
	// buffer that does not match size and format.
	ErrInvalidTile = errors.New("upload: invalid tile request")

	// ErrTileReleased is returned when updating a released tile.
	ErrTileReleased = errors.New("upload: tile has been released")
)

// Target identifies what a tile is used for.
type Target uint8

const (
	// TargetCubeFace is a colour tile of a cube-projected raster.
	TargetCubeFace Target = iota

	// TargetAgeMask is a binary age-grid mask tile.
	TargetAgeMask

	// TargetCoverage is an age-grid coverage (alpha) tile.
	TargetCoverage

	// TargetMap is a map-projected raster tile.
	TargetMap
)

// String returns a human-readable name for the target.
func (t Target) String() string {
	switch t {
	case TargetCubeFace:
		return "cube-face"
	case TargetAgeMask:
		return "age-mask"
	case TargetCoverage:
		return "coverage"
	case TargetMap:
		return "map"
	default:
		return fmt.Sprintf("Target(%d)", t)
	}
}

// TileRequest describes one tile upload.
type TileRequest struct {
	// Label is an optional debug label.
	Label string

	// Target says what the tile is used for.
	Target Target

	// Face is the cube face (0-5) for cube targets.
	Face int

	// Level is the level of detail; 0 is the coarsest.
	Level int

	// Offset is the tile's position in texels within its level.
	Offset image.Point

	// Size is the tile size in texels.
	Size image.Point

	// Format is the pixel format of Pixels.
	Format gputypes.TextureFormat

	// Pixels holds Size.X*Size.Y texels, row by row.
	Pixels []byte
}

// Validate checks size and pixel buffer length.
func (r TileRequest) Validate() error {
	if r.Size.X <= 0 || r.Size.Y <= 0 {
		return fmt.Errorf("%w: size %v", ErrInvalidTile, r.Size)
	}
	want := r.Size.X * r.Size.Y * BytesPerPixel(r.Format)
	if len(r.Pixels) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidTile, len(r.Pixels), want)
	}
	return nil
}

// SizeBytes returns the size of the tile's pixel data.
func (r TileRequest) SizeBytes() uint64 {
	//nolint:gosec // G115: Validate ensures non-negative dimensions
	return uint64(r.Size.X * r.Size.Y * BytesPerPixel(r.Format))
}

// BytesPerPixel returns the texel size of the formats tiles are uploaded in.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}

// Tile is an uploaded tile. It stays valid until Release.
type Tile interface {
	// Update replaces the tile's pixels in place. The buffer must have
	// the same length as the original upload.
	Update(pixels []byte) error

	// Release frees the tile's GPU resources. Release is idempotent.
	Release()

	// SizeBytes returns the memory held by the tile.
	SizeBytes() uint64
}

// TileLoader uploads tiles.
type TileLoader interface {
	LoadTile(req TileRequest) (Tile, error)
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used for headless operation where no GPU is available.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
