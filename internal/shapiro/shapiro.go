// Package shapiro implements the solar-system Shapiro delay: the extra
// light-travel time as a pulse passes through the gravitational potential of
// the Sun and the major planets on its way to the observatory.
package shapiro

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/metrics"
	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/timing"
	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

// ComponentName is the registered name of the solar-system Shapiro component.
const ComponentName = "SolarSystemShapiro"

// ObjectDelay returns the Shapiro delay in seconds for one body.
//
// objPos is the vector from the observatory to the body (any length unit
// consistent with transform.AU, here metres), psrDir the unit vector towards
// the pulsar and tObj the body's GM/c³ in seconds.
//
// The formula is tempo2's with the sign of the cos(theta) term flipped,
// because objPos points from the observatory to the body rather than the
// reverse. Do not "fix" it. The degenerate case r == r·cos(theta) is not
// clamped and yields +Inf.
func ObjectDelay(objPos, psrDir transform.Vec3, tObj float64) float64 {
	r := objPos.Norm()
	rcostheta := objPos.Dot(psrDir)
	return -2.0 * tObj * math.Log((r-rcostheta)/transform.AU)
}

// SolarSystem is the solar-system Shapiro delay component. It needs a
// direction provider (an astrometry component) in the same model.
type SolarSystem struct {
	timing.Base

	// PlanetShapiro enables the Jupiter, Saturn, Venus and Uranus terms.
	PlanetShapiro *param.Param[bool]

	dir    timing.DirectionProvider
	logger *slog.Logger
}

// New returns a SolarSystem component with PLANET_SHAPIRO enabled.
func New(logger *slog.Logger) *SolarSystem {
	s := &SolarSystem{
		Base:   timing.NewBase(ComponentName),
		logger: logger.With("component", "shapiro"),
	}
	s.PlanetShapiro = param.NewBool("PLANET_SHAPIRO", true, "Include planetary Shapiro delays (Y/N)")
	s.AddParam(s.PlanetShapiro)
	s.AddDelay(s.Delay)
	return s
}

// Setup binds the model's direction provider.
func (s *SolarSystem) Setup(m *timing.Model) error {
	if err := s.Base.Setup(m); err != nil {
		return err
	}
	dp, err := m.DirectionProvider()
	if err != nil {
		return err
	}
	s.dir = dp
	return nil
}

// Bodies returns the bodies that contribute under the current parameters,
// in summation order.
func (s *SolarSystem) Bodies() []body.Body {
	if !s.PlanetShapiro.Value() {
		return []body.Body{body.Sun}
	}
	return append([]body.Body{body.Sun}, body.ShapiroPlanets()...)
}

// Delay returns the total solar-system Shapiro delay in seconds for every TOA.
// Barycentric groups contribute zero. A missing position for a contributing
// body aborts the computation with timing.ErrMissingData.
func (s *SolarSystem) Delay(b *toa.Batch) ([]float64, error) {
	if s.dir == nil {
		return nil, fmt.Errorf("%w: %s used before Setup", timing.ErrMissingProvider, ComponentName)
	}

	delay := make([]float64, b.Len())
	bodies := s.Bodies()

	for _, g := range b.Groups() {
		if g.IsBarycentric() {
			s.logger.Info("skipping Shapiro delay for barycentric TOAs", "toas", g.Len())
			metrics.RecordSkippedGroup(ComponentName, "barycentric")
			continue
		}

		psrDir, err := s.dir.SSBToPSBXYZ(b.TDB(g))
		if err != nil {
			return nil, fmt.Errorf("pulsar direction for observatory %s: %w", g.Observatory, err)
		}
		if len(psrDir) != g.Len() {
			return nil, fmt.Errorf("%w: %d pulsar directions for %d TOAs at observatory %s",
				timing.ErrMissingData, len(psrDir), g.Len(), g.Observatory)
		}

		for _, bd := range bodies {
			pos, err := b.Positions(g, bd)
			if err != nil {
				return nil, err
			}
			tObj := bd.MassSeconds()
			for i := range pos {
				delay[g.Lo+i] += ObjectDelay(pos[i], psrDir[i], tObj)
			}
		}
	}
	return delay, nil
}
