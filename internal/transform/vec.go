// Package transform provides the vector algebra, time scales and reference
// frame rotations used to build observer-to-body geometry for TOAs.
//
// Frames: solar-system positions are barycentric and ICRS-aligned. Observatory
// positions are rotated from the Earth-fixed frame by GMST only, ignoring
// precession, nutation and polar motion. That leaves a geocentric error of a
// few tens of metres for ground sites, well below what matters for the
// solar-system Shapiro delay, which depends on the logarithm of AU-scale
// distances.
package transform

import "math"

// Physical constants (SI, IAU 2012).
const (
	AU           = 149597870700.0 // astronomical unit, metres
	SpeedOfLight = 299792458.0    // m/s
)

// Vec3 is a Cartesian 3-vector. Position vectors are in metres unless noted.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns s*v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v.X, s * v.Y, s * v.Z}
}

// Dot returns the scalar product v·w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Unit returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether every component is neither NaN nor ±Inf.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Array returns the components as a fixed-size array, the form used on the wire.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromArray builds a Vec3 from a [x, y, z] array.
func FromArray(a [3]float64) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}
