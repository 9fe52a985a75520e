// Package body enumerates the solar-system bodies that contribute light-path
// geometry to TOAs, with their masses in time units (GM/c³).
package body

import (
	"fmt"
	"slices"
	"strings"
)

// Body identifies a solar-system body.
type Body int

const (
	Sun Body = iota
	Mercury
	Venus
	Earth
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
)

// Tsun is GM☉/c³ in seconds (IAU 2015 nominal GM☉).
const Tsun = 4.925490947641267e-6

// massRatio is M☉/M for each planet (IAU 2009 system of constants).
var massRatio = [...]float64{
	Sun:     1,
	Mercury: 6023600.0,
	Venus:   408523.71,
	Earth:   332946.050895,
	Mars:    3098708.0,
	Jupiter: 1047.3486,
	Saturn:  3497.898,
	Uranus:  22902.98,
	Neptune: 19412.24,
}

var names = [...]string{
	Sun:     "sun",
	Mercury: "mercury",
	Venus:   "venus",
	Earth:   "earth",
	Mars:    "mars",
	Jupiter: "jupiter",
	Saturn:  "saturn",
	Uranus:  "uranus",
	Neptune: "neptune",
}

// All lists every body in enumeration order.
var All = []Body{Sun, Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune}

var (
	planets        = []Body{Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune}
	shapiroPlanets = []Body{Jupiter, Saturn, Venus, Uranus}
)

// Planets lists every body except the Sun. The caller owns the returned slice.
func Planets() []Body { return slices.Clone(planets) }

// ShapiroPlanets returns the planets included in the planetary Shapiro term,
// in summation order. This matches tempo2 and must not be extended. The
// caller owns the returned slice.
func ShapiroPlanets() []Body { return slices.Clone(shapiroPlanets) }

// Valid reports whether b is a known body.
func (b Body) Valid() bool {
	return b >= Sun && b <= Neptune
}

// String returns the lowercase body name.
func (b Body) String() string {
	if !b.Valid() {
		return fmt.Sprintf("body(%d)", int(b))
	}
	return names[b]
}

// MassSeconds returns GM/c³ for the body in seconds.
func (b Body) MassSeconds() float64 {
	if !b.Valid() {
		return 0
	}
	return Tsun / massRatio[b]
}

// PositionField returns the conventional name of the observer-to-body
// position column, e.g. "obs_jupiter_pos".
func (b Body) PositionField() string {
	return "obs_" + b.String() + "_pos"
}

// Parse resolves a body name (case-insensitive).
func Parse(name string) (Body, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range names {
		if s == n {
			return Body(i), nil
		}
	}
	return 0, fmt.Errorf("unknown solar-system body %q", name)
}

// ParseField resolves an "obs_<body>_pos" field name.
func ParseField(field string) (Body, error) {
	if !strings.HasPrefix(field, "obs_") || !strings.HasSuffix(field, "_pos") {
		return 0, fmt.Errorf("not a body position field: %q", field)
	}
	return Parse(strings.TrimSuffix(strings.TrimPrefix(field, "obs_"), "_pos"))
}

// MarshalText implements encoding.TextMarshaler.
func (b Body) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid body %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Body) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
