package transform

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// GeodeticPoint holds a geodetic position (latitude/longitude in degrees, altitude in meters).
type GeodeticPoint struct {
	LatDeg, LonDeg, AltM float64
}

// GeodeticToECEF converts a geodetic position on the WGS-84 ellipsoid to
// Earth-fixed Cartesian coordinates in metres.
func GeodeticToECEF(p GeodeticPoint) Vec3 {
	lat := p.LatDeg * math.Pi / 180.0
	lon := p.LonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Vec3{
		X: (N + p.AltM) * cosLat * math.Cos(lon),
		Y: (N + p.AltM) * cosLat * math.Sin(lon),
		Z: (N*(1-wgs84E2) + p.AltM) * sinLat,
	}
}

// ECEFToGeodetic converts Earth-fixed coordinates (meters) to geodetic
// coordinates using the iterative Bowring method. Converges in 2-3 iterations
// for points near the surface.
func ECEFToGeodetic(v Vec3) GeodeticPoint {
	lon := math.Atan2(v.Y, v.X)
	p := math.Sqrt(v.X*v.X + v.Y*v.Y)

	lat := math.Atan2(v.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(v.Z+wgs84E2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(v.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltM:   alt,
	}
}
