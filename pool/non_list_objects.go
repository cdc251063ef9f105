// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import (
	"github.com/gogpu/layercache/internal/cache"
	"github.com/gogpu/layercache/layer"
)

// faceTableCapacity bounds the number of tile sizes kept at once.
const faceTableCapacity = 8

// NonListObjects are read-only resources shared by every sharing group.
// NonListObjects is safe for concurrent use.
type NonListObjects struct {
	faces *cache.Cache[int, *FaceTable]
	spirv *cache.Cache[Shader, compiledShader]
}

type compiledShader struct {
	code []uint32
	err  error
}

func newNonListObjects() *NonListObjects {
	return &NonListObjects{
		faces: cache.New[int, *FaceTable](faceTableCapacity),
		spirv: cache.New[Shader, compiledShader](0),
	}
}

// FaceTable returns the texel direction table for cube tiles of the given
// size. Tables are built once per size and then shared.
func (n *NonListObjects) FaceTable(tileSize int) *FaceTable {
	return n.faces.GetOrCreate(tileSize, func() *FaceTable {
		return newFaceTable(tileSize)
	})
}

// SPIRV returns the compiled SPIR-V of a built-in shader. The result,
// including a compile error, is computed once.
func (n *NonListObjects) SPIRV(s Shader) ([]uint32, error) {
	c := n.spirv.GetOrCreate(s, func() compiledShader {
		code, err := compileSPIRV(s)
		return compiledShader{code: code, err: err}
	})
	return c.code, c.err
}

// CubeFace is the orientation of one cube face. A texel at face coordinates
// (s, t) in [-1, 1] looks along Normal + s*U + t*V.
type CubeFace struct {
	Normal, U, V layer.Vec3
}

// CubeFaces lists the faces in the order +X, -X, +Y, -Y, +Z, -Z.
var CubeFaces = [6]CubeFace{
	{Normal: layer.Vec3{1, 0, 0}, U: layer.Vec3{0, 0, -1}, V: layer.Vec3{0, -1, 0}},
	{Normal: layer.Vec3{-1, 0, 0}, U: layer.Vec3{0, 0, 1}, V: layer.Vec3{0, -1, 0}},
	{Normal: layer.Vec3{0, 1, 0}, U: layer.Vec3{1, 0, 0}, V: layer.Vec3{0, 0, 1}},
	{Normal: layer.Vec3{0, -1, 0}, U: layer.Vec3{1, 0, 0}, V: layer.Vec3{0, 0, -1}},
	{Normal: layer.Vec3{0, 0, 1}, U: layer.Vec3{1, 0, 0}, V: layer.Vec3{0, -1, 0}},
	{Normal: layer.Vec3{0, 0, -1}, U: layer.Vec3{-1, 0, 0}, V: layer.Vec3{0, -1, 0}},
}

// Direction returns the unit direction through face coordinates (s, t).
func (f CubeFace) Direction(s, t float32) layer.Vec3 {
	return f.Normal.Add(f.U.Scale(s)).Add(f.V.Scale(t)).Normalize()
}

// FaceTable holds, for every texel centre of a square cube tile, the
// position on the globe it samples.
type FaceTable struct {
	Size int

	// Positions[face][y*Size+x] is the lat/lon sampled by texel (x, y).
	Positions [6][]layer.LatLon
}

func newFaceTable(size int) *FaceTable {
	t := &FaceTable{Size: size}
	if size <= 0 {
		return t
	}
	for f, face := range CubeFaces {
		pos := make([]layer.LatLon, size*size)
		for y := 0; y < size; y++ {
			tc := 2*(float32(y)+0.5)/float32(size) - 1
			for x := 0; x < size; x++ {
				sc := 2*(float32(x)+0.5)/float32(size) - 1
				pos[y*size+x] = face.Direction(sc, tc).LatLon()
			}
		}
		t.Positions[f] = pos
	}
	return t
}
