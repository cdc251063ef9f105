// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import "github.com/chewxy/math32"

const degToRad = math32.Pi / 180

// LatLon is a position on the globe in degrees.
type LatLon struct {
	Lat, Lon float32
}

// Vec3 is a point or direction in globe space (unit sphere, +Z north).
type Vec3 [3]float32

// Vector returns the unit vector of p.
func (p LatLon) Vector() Vec3 {
	lat := p.Lat * degToRad
	lon := p.Lon * degToRad
	cl := math32.Cos(lat)
	return Vec3{cl * math32.Cos(lon), cl * math32.Sin(lon), math32.Sin(lat)}
}

// LatLon converts v (not necessarily unit length) back to a position.
func (v Vec3) LatLon() LatLon {
	n := v.Len()
	if n == 0 {
		return LatLon{}
	}
	z := math32.Max(-1, math32.Min(1, v[2]/n))
	return LatLon{
		Lat: math32.Asin(z) / degToRad,
		Lon: math32.Atan2(v[1], v[0]) / degToRad,
	}
}

// Len returns the Euclidean length of v.
func (v Vec3) Len() float32 {
	return math32.Sqrt(v.Dot(v))
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Len()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Polygon is a closed present-day ring attached to a tectonic plate.
// The ring is implicitly closed; the last vertex need not repeat the first.
type Polygon struct {
	PlateID int
	Ring    []LatLon
}

// Rotation is a finite rotation about an Euler pole.
type Rotation struct {
	Pole  LatLon
	Angle float32 // degrees, counter-clockwise about the pole
}

// IdentityRotation leaves every point in place.
func IdentityRotation() Rotation {
	return Rotation{Pole: LatLon{Lat: 90}}
}

// IsIdentity reports whether r does not move any point.
func (r Rotation) IsIdentity() bool {
	return r.Angle == 0
}

// Apply rotates v using Rodrigues' rotation formula.
func (r Rotation) Apply(v Vec3) Vec3 {
	if r.IsIdentity() {
		return v
	}
	k := r.Pole.Vector()
	theta := r.Angle * degToRad
	c, s := math32.Cos(theta), math32.Sin(theta)
	return v.Scale(c).
		Add(k.Cross(v).Scale(s)).
		Add(k.Scale(k.Dot(v) * (1 - c)))
}
