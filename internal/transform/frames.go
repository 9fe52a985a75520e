package transform

import (
	"math"
	"time"
)

// ECEFToInertial rotates an Earth-fixed position into the inertial frame at
// the given UTC time.
func ECEFToInertial(v Vec3, t time.Time) Vec3 {
	return ECEFToInertialWithGMST(v, GMST(t))
}

// ECEFToInertialWithGMST applies r_inertial = R3(-θ) * r_ECEF, the inverse of
// the GMST rotation, for a precomputed GMST angle θ in radians.
func ECEFToInertialWithGMST(v Vec3, gmst float64) Vec3 {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)
	return Vec3{
		X: v.X*cosG - v.Y*sinG,
		Y: v.X*sinG + v.Y*cosG,
		Z: v.Z,
	}
}

// InertialToECEFWithGMST applies r_ECEF = R3(θ) * r_inertial.
func InertialToECEFWithGMST(v Vec3, gmst float64) Vec3 {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)
	return Vec3{
		X: v.X*cosG + v.Y*sinG,
		Y: -v.X*sinG + v.Y*cosG,
		Z: v.Z,
	}
}

// TEMEToInertial converts an SGP4 TEME position in km to metres. TEME is
// treated as inertial; the equinox offset is below the frame tolerance
// documented on the package.
func TEMEToInertial(x, y, z float64) Vec3 {
	return Vec3{X: x * 1000.0, Y: y * 1000.0, Z: z * 1000.0}
}

// ValidateGeocentric checks that a geocentric position is physically
// reasonable for an observatory: on or above the Earth's surface and inside
// the Moon's orbit. Expected magnitude: 6200 km to 400000 km.
func ValidateGeocentric(v Vec3) bool {
	if !v.IsFinite() {
		return false
	}
	const minRadius = 6200.0 * 1000.0
	const maxRadius = 400000.0 * 1000.0
	mag := v.Norm()
	return mag >= minRadius && mag <= maxRadius
}
