// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/layercache/layer"
	"github.com/gogpu/layercache/token"
	"github.com/gogpu/layercache/upload"
)

// cubeMeshSegments is the number of quads along each cube face edge.
const cubeMeshSegments = 16

// ErrNoDevice is returned when a device object is requested from a sharing
// group without HAL access.
var ErrNoDevice = errors.New("pool: sharing group has no HAL device")

// ListObjects are resources shared within one GPU sharing group.
type ListObjects struct {
	global *NonListObjects

	mu       sync.Mutex
	cubeMesh *CubeMesh
	polygons *FilledPolygonRenderer
	lighting *Lighting

	device  hal.Device
	modules map[Shader]hal.ShaderModule
}

func newListObjects(provider gpucontext.DeviceProvider, global *NonListObjects) *ListObjects {
	l := &ListObjects{
		global:   global,
		lighting: newLighting(),
		modules:  make(map[Shader]hal.ShaderModule),
	}
	if provider != nil {
		if device, _, err := upload.HAL(provider); err == nil {
			l.device = device
		}
	}
	return l
}

// CubeMesh returns the globe mesh, building it on first use.
func (l *ListObjects) CubeMesh() *CubeMesh {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cubeMesh == nil {
		l.cubeMesh = NewCubeMesh(cubeMeshSegments)
	}
	return l.cubeMesh
}

// FilledPolygons returns the group's filled polygon renderer.
func (l *ListObjects) FilledPolygons() *FilledPolygonRenderer {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.polygons == nil {
		l.polygons = NewFilledPolygonRenderer()
	}
	return l.polygons
}

// Lighting returns the group's lighting state.
func (l *ListObjects) Lighting() *Lighting {
	return l.lighting
}

// HasDevice reports whether the group can create device objects.
func (l *ListObjects) HasDevice() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.device != nil
}

// ShaderModule returns the group's module for s, creating it on first use
// from the globally cached SPIR-V.
func (l *ListObjects) ShaderModule(s Shader) (hal.ShaderModule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.device == nil {
		return nil, ErrNoDevice
	}
	if m, ok := l.modules[s]; ok {
		return m, nil
	}

	code, err := l.global.SPIRV(s)
	if err != nil {
		return nil, err
	}
	m, err := l.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  string(s),
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("pool: create shader module %s: %w", s, err)
	}
	l.modules[s] = m
	return m, nil
}

func (l *ListObjects) destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for s, m := range l.modules {
		l.device.DestroyShaderModule(m)
		delete(l.modules, s)
	}
	l.device = nil
}

// Lighting is the light applied when drawing globe rasters.
// The subject is invalidated on every change.
type Lighting struct {
	mu        sync.Mutex
	enabled   bool
	direction layer.Vec3
	ambient   float32
	subject   token.Subject
}

func newLighting() *Lighting {
	return &Lighting{
		direction: layer.Vec3{1, 0, 0},
		ambient:   0.4,
	}
}

// LightingState is a snapshot of Lighting.
type LightingState struct {
	Enabled   bool
	Direction layer.Vec3
	Ambient   float32
}

// State returns the current lighting.
func (l *Lighting) State() LightingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LightingState{Enabled: l.enabled, Direction: l.direction, Ambient: l.ambient}
}

// SetEnabled turns lighting on or off.
func (l *Lighting) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled != enabled {
		l.enabled = enabled
		l.subject.Invalidate()
	}
}

// SetDirection sets the direction towards the light.
func (l *Lighting) SetDirection(dir layer.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = dir.Normalize()
	l.subject.Invalidate()
}

// SetAmbient sets the ambient term, clamped to [0, 1].
func (l *Lighting) SetAmbient(a float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ambient = min(max(a, 0), 1)
	l.subject.Invalidate()
}

// Subject changes when the lighting changes.
func (l *Lighting) Subject() *token.Subject {
	return &l.subject
}
