// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Shader names a built-in WGSL shader.
type Shader string

// Built-in shaders.
const (
	ShaderCubeRaster    Shader = "cube_raster"
	ShaderFilledPolygon Shader = "filled_polygon"
)

//go:embed shaders/cube_raster.wgsl
var cubeRasterShaderSource string

//go:embed shaders/filled_polygon.wgsl
var filledPolygonShaderSource string

// Source returns the WGSL source of s, or "" for an unknown shader.
func (s Shader) Source() string {
	switch s {
	case ShaderCubeRaster:
		return cubeRasterShaderSource
	case ShaderFilledPolygon:
		return filledPolygonShaderSource
	default:
		return ""
	}
}

// compileSPIRV compiles WGSL source to little-endian SPIR-V words.
func compileSPIRV(s Shader) ([]uint32, error) {
	src := s.Source()
	if src == "" {
		return nil, fmt.Errorf("pool: unknown shader %q", string(s))
	}

	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("pool: compile shader %s: %w", s, err)
	}

	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
