// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/layercache/internal/logging"
)

// ErrNoHAL is returned when a provider does not expose HAL device access.
var ErrNoHAL = errors.New("upload: provider does not expose HAL types")

// halProvider is implemented by device providers that give direct HAL
// access (gogpu exposes this on its context provider).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// HasHAL reports whether provider exposes a usable HAL device and queue.
func HasHAL(provider any) bool {
	_, _, err := HAL(provider)
	return err == nil
}

// HAL returns the provider's HAL device and queue.
func HAL(provider any) (hal.Device, hal.Queue, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return device, queue, nil
}

// HALLoader uploads tiles as sampled textures on a shared HAL device.
// The device belongs to the host application; HALLoader never destroys it.
type HALLoader struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
}

// NewHALLoader creates a loader on the provider's HAL device.
func NewHALLoader(provider any) (*HALLoader, error) {
	device, queue, err := HAL(provider)
	if err != nil {
		return nil, err
	}
	return &HALLoader{device: device, queue: queue}, nil
}

// LoadTile implements TileLoader.
func (l *HALLoader) LoadTile(req TileRequest) (Tile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	//nolint:gosec // G115: Validate ensures positive dimensions
	w, h := uint32(req.Size.X), uint32(req.Size.Y)
	format := req.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tex, err := l.device.CreateTexture(&hal.TextureDescriptor{
		Label:         req.Label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: create texture %q: %w", req.Label, err)
	}

	view, err := l.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         req.Label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		l.device.DestroyTexture(tex)
		return nil, fmt.Errorf("upload: create texture view %q: %w", req.Label, err)
	}

	t := &halTile{
		loader:      l,
		tex:         tex,
		view:        view,
		width:       w,
		height:      h,
		bytesPerRow: w * uint32(BytesPerPixel(format)), //nolint:gosec // G115: 1 or 4
		size:        req.SizeBytes(),
	}
	t.writeLocked(req.Pixels)

	logging.Logger().Debug("upload: tile loaded",
		"label", req.Label, "target", req.Target, "face", req.Face,
		"level", req.Level, "width", w, "height", h)
	return t, nil
}

// halTile is a texture and view on the loader's device.
type halTile struct {
	loader      *HALLoader
	tex         hal.Texture
	view        hal.TextureView
	width       uint32
	height      uint32
	bytesPerRow uint32
	size        uint64
}

// View returns the texture view used to sample the tile.
func (t *halTile) View() hal.TextureView {
	return t.view
}

func (t *halTile) writeLocked(pixels []byte) {
	t.loader.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.bytesPerRow,
			RowsPerImage: t.height,
		},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
}

// Update implements Tile.
func (t *halTile) Update(pixels []byte) error {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()

	if t.tex == nil {
		return ErrTileReleased
	}
	if uint64(len(pixels)) != t.size {
		return ErrInvalidTile
	}
	t.writeLocked(pixels)
	return nil
}

// Release implements Tile.
func (t *halTile) Release() {
	t.loader.mu.Lock()
	defer t.loader.mu.Unlock()

	if t.view != nil {
		t.loader.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.loader.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// SizeBytes implements Tile.
func (t *halTile) SizeBytes() uint64 {
	return t.size
}

// Ensure HALLoader implements TileLoader.
var _ TileLoader = (*HALLoader)(nil)
