package observatory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/pulsedelay/internal/transform"
)

// Spacecraft is an orbiting observatory propagated with SGP4 from a TLE.
//
// satellite.Propagate takes whole seconds, so positions at fractional
// seconds are linearly interpolated between the bracketing seconds. For a
// low Earth orbit that adds about a metre of error.
type Spacecraft struct {
	name    string
	sat     satellite.Satellite
	noradID int
}

// NewSpacecraft parses a TLE and initializes the SGP4 model.
//
// The lines are validated first: go-satellite calls log.Fatal on malformed
// input.
func NewSpacecraft(name, line1, line2 string) (*Spacecraft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("observatory: empty spacecraft name")
	}
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("observatory %s: invalid TLE: %w", name, err)
	}
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	norad, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return nil, fmt.Errorf("observatory %s: invalid catalog number %q: %w", name, line1[2:7], err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("observatory %s: sgp4 init failed: code=%d %s", name, sat.Error, sat.ErrorStr)
	}
	return &Spacecraft{name: name, sat: sat, noradID: norad}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("catalog number mismatch: %q vs %q", line1[2:7], line2[2:7])
	}
	return nil
}

func (s *Spacecraft) Name() string        { return s.name }
func (s *Spacecraft) IsBarycentric() bool { return false }

// NoradID returns the catalog number from the TLE.
func (s *Spacecraft) NoradID() int { return s.noradID }

func (s *Spacecraft) GeocentricPosition(tdb float64) (transform.Vec3, error) {
	t := transform.UTCFromTDB(tdb)
	t0 := t.Truncate(time.Second)
	frac := t.Sub(t0).Seconds()

	p0, err := s.propagate(t0)
	if err != nil {
		return transform.Vec3{}, err
	}
	if frac == 0 {
		return p0, nil
	}
	p1, err := s.propagate(t0.Add(time.Second))
	if err != nil {
		return transform.Vec3{}, err
	}
	return p0.Add(p1.Sub(p0).Scale(frac)), nil
}

func (s *Spacecraft) propagate(t time.Time) (transform.Vec3, error) {
	pos, _ := satellite.Propagate(s.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.Vec3{}, fmt.Errorf("sgp4 propagation failed for %s (NORAD %d): output is NaN/Inf", s.name, s.noradID)
	}

	v := transform.TEMEToInertial(pos.X, pos.Y, pos.Z)
	if !transform.ValidateGeocentric(v) {
		return transform.Vec3{}, fmt.Errorf("sgp4 propagation failed for %s (NORAD %d): unreasonable position magnitude %.1f km",
			s.name, s.noradID, v.Norm()/1000)
	}
	return v, nil
}
