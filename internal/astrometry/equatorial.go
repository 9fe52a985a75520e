// Package astrometry provides the pulsar position components of a timing
// model. They contribute no delay terms here; they supply the direction
// vector other components project geometry onto.
package astrometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/timing"
	"github.com/star/pulsedelay/internal/transform"
)

// ComponentName is the registered name of the equatorial astrometry component.
const ComponentName = "AstrometryEquatorial"

const (
	masToRad    = math.Pi / (180 * 3600 * 1000)
	daysPerYear = 365.25
)

// ErrNoEpoch is returned by Setup when proper motion is set without POSEPOCH.
var ErrNoEpoch = errors.New("proper motion requires POSEPOCH")

// Equatorial models the pulsar position in ICRS equatorial coordinates with
// linear proper motion.
type Equatorial struct {
	timing.Base

	RAJ      *param.Param[float64]
	DECJ     *param.Param[float64]
	PMRA     *param.Param[float64]
	PMDEC    *param.Param[float64]
	POSEPOCH *param.Param[float64]
}

// NewEquatorial returns an Equatorial component with zeroed parameters.
func NewEquatorial() *Equatorial {
	a := &Equatorial{Base: timing.NewBase(ComponentName)}
	a.RAJ = param.NewHourAngle("RAJ", 0, true, "Right ascension (J2000)")
	a.DECJ = param.NewDegAngle("DECJ", 0, true, "Declination (J2000)")
	a.PMRA = param.NewFloat("PMRA", "mas/yr", 0, true, "Proper motion in RA, times cos(DECJ)")
	a.PMDEC = param.NewFloat("PMDEC", "mas/yr", 0, true, "Proper motion in declination")
	a.POSEPOCH = param.NewMJD("POSEPOCH", 0, "Reference epoch for position")

	for _, p := range []param.Parameter{a.RAJ, a.DECJ, a.PMRA, a.PMDEC, a.POSEPOCH} {
		a.AddParam(p)
	}
	return a
}

// Setup checks that proper motion has a reference epoch.
func (a *Equatorial) Setup(m *timing.Model) error {
	if err := a.Base.Setup(m); err != nil {
		return err
	}
	if (a.PMRA.Value() != 0 || a.PMDEC.Value() != 0) && a.POSEPOCH.Value() == 0 {
		return ErrNoEpoch
	}
	return nil
}

// SSBToPSBXYZ returns the unit vector from the solar-system barycentre to the
// pulsar at each TDB epoch (MJD).
func (a *Equatorial) SSBToPSBXYZ(tdb []float64) ([]transform.Vec3, error) {
	ra0, dec0 := a.RAJ.Value(), a.DECJ.Value()
	pmra, pmdec := a.PMRA.Value()*masToRad, a.PMDEC.Value()*masToRad
	cosDec0 := math.Cos(dec0)

	out := make([]transform.Vec3, len(tdb))
	for i, t := range tdb {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: non-finite TDB epoch at index %d", timing.ErrMissingData, i)
		}
		ra, dec := ra0, dec0
		if pmra != 0 || pmdec != 0 {
			dt := (t - a.POSEPOCH.Value()) / daysPerYear
			dec += pmdec * dt
			if cosDec0 != 0 {
				ra += pmra * dt / cosDec0
			}
		}
		cd := math.Cos(dec)
		out[i] = transform.Vec3{
			X: cd * math.Cos(ra),
			Y: cd * math.Sin(ra),
			Z: math.Sin(dec),
		}
	}
	return out, nil
}
