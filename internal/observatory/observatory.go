// Package observatory resolves observatory names to geocentric positions.
//
// Ground sites are fixed in the Earth frame and rotated to the inertial
// frame by GMST. Spacecraft are propagated from two-line elements with
// SGP4. The barycentric pseudo-observatory has no position: TOAs tagged
// with it are already referred to the solar-system barycentre.
package observatory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

var (
	ErrUnknown   = errors.New("unknown observatory")
	ErrDuplicate = errors.New("duplicate observatory")
	// ErrNoPosition is returned by observatories without a physical location.
	ErrNoPosition = errors.New("observatory has no geocentric position")
)

// Observatory is a place TOAs are recorded.
type Observatory interface {
	Name() string
	// IsBarycentric reports whether TOAs from this observatory are already
	// at the solar-system barycentre.
	IsBarycentric() bool
	// GeocentricPosition returns the observatory position relative to the
	// geocentre in the inertial frame, in metres, at a TDB epoch (MJD).
	GeocentricPosition(tdb float64) (transform.Vec3, error)
}

type barycenter struct{}

// Barycenter returns the barycentric pseudo-observatory.
func Barycenter() Observatory { return barycenter{} }

func (barycenter) Name() string        { return toa.Barycenter }
func (barycenter) IsBarycentric() bool { return true }

func (barycenter) GeocentricPosition(float64) (transform.Vec3, error) {
	return transform.Vec3{}, fmt.Errorf("%w: %s", ErrNoPosition, toa.Barycenter)
}

// GeocenterName labels TOAs referred to the Earth's centre.
const GeocenterName = "Geocenter"

type geocenter struct{}

// Geocenter returns the observatory at the Earth's centre.
func Geocenter() Observatory { return geocenter{} }

func (geocenter) Name() string        { return GeocenterName }
func (geocenter) IsBarycentric() bool { return false }

func (geocenter) GeocentricPosition(float64) (transform.Vec3, error) {
	return transform.Vec3{}, nil
}

// Site is a ground observatory at a fixed Earth-fixed (ITRF) position.
type Site struct {
	name string
	ecef transform.Vec3
}

// NewSite creates a site from ITRF coordinates in metres.
func NewSite(name string, itrf transform.Vec3) (*Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("observatory: empty site name")
	}
	if !transform.ValidateGeocentric(itrf) {
		return nil, fmt.Errorf("observatory %s: ITRF position [%.1f, %.1f, %.1f] m is not on the Earth's surface",
			name, itrf.X, itrf.Y, itrf.Z)
	}
	return &Site{name: name, ecef: itrf}, nil
}

// NewGeodeticSite creates a site from WGS-84 latitude, longitude and height.
func NewGeodeticSite(name string, p transform.GeodeticPoint) (*Site, error) {
	if p.LatDeg < -90 || p.LatDeg > 90 {
		return nil, fmt.Errorf("observatory %s: latitude %.6f out of range", name, p.LatDeg)
	}
	return NewSite(name, transform.GeodeticToECEF(p))
}

func (s *Site) Name() string        { return s.name }
func (s *Site) IsBarycentric() bool { return false }

// ITRF returns the Earth-fixed position in metres.
func (s *Site) ITRF() transform.Vec3 { return s.ecef }

func (s *Site) GeocentricPosition(tdb float64) (transform.Vec3, error) {
	return transform.ECEFToInertial(s.ecef, transform.UTCFromTDB(tdb)), nil
}
