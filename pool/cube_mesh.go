// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pool

import "github.com/gogpu/layercache/layer"

// CubeMesh is a cube with subdivided faces projected onto the unit sphere.
// Cube raster tiles are drawn onto it face by face.
type CubeMesh struct {
	// Segments is the number of quads along each face edge.
	Segments int

	Positions []layer.Vec3
	UVs       [][2]float32

	// Indices holds triangles. Face f occupies
	// Indices[f*FaceIndexCount : (f+1)*FaceIndexCount].
	Indices        []uint32
	FaceIndexCount int
}

// NewCubeMesh builds a mesh with segments quads along each face edge.
func NewCubeMesh(segments int) *CubeMesh {
	if segments < 1 {
		segments = 1
	}
	row := segments + 1
	m := &CubeMesh{
		Segments:       segments,
		Positions:      make([]layer.Vec3, 0, 6*row*row),
		UVs:            make([][2]float32, 0, 6*row*row),
		Indices:        make([]uint32, 0, 6*segments*segments*6),
		FaceIndexCount: segments * segments * 6,
	}

	for _, face := range CubeFaces {
		base := uint32(len(m.Positions)) //nolint:gosec // G115: bounded by 6*row*row
		for j := 0; j <= segments; j++ {
			v := float32(j) / float32(segments)
			for i := 0; i <= segments; i++ {
				u := float32(i) / float32(segments)
				m.Positions = append(m.Positions, face.Direction(2*u-1, 2*v-1))
				m.UVs = append(m.UVs, [2]float32{u, v})
			}
		}
		for j := 0; j < segments; j++ {
			for i := 0; i < segments; i++ {
				a := base + uint32(j*row+i) //nolint:gosec // G115: bounded by row*row
				b := a + 1
				c := a + uint32(row) //nolint:gosec // G115: small
				d := c + 1
				m.Indices = append(m.Indices, a, c, b, b, c, d)
			}
		}
	}
	return m
}

// Triangles returns the number of triangles in the mesh.
func (m *CubeMesh) Triangles() int {
	return len(m.Indices) / 3
}
