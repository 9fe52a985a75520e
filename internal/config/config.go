// Package config loads the timing-model file: which delay components to
// build, their parameter values, extra observatories and the ephemeris.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/pulsedelay/internal/astrometry"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/shapiro"
	"github.com/star/pulsedelay/internal/timing"
	"github.com/star/pulsedelay/internal/transform"
)

// DefaultComponents is the component list used when the file names none.
var DefaultComponents = []string{astrometry.ComponentName, shapiro.ComponentName}

// factories builds each known component by name.
var factories = map[string]func(*slog.Logger) timing.Component{
	astrometry.ComponentName: func(*slog.Logger) timing.Component { return astrometry.NewEquatorial() },
	shapiro.ComponentName:    func(l *slog.Logger) timing.Component { return shapiro.New(l) },
}

// Config is the top-level model file. Fields map 1:1 to the YAML keys.
type Config struct {
	// Components lists delay components in evaluation order.
	Components []string `yaml:"components"`

	// Params maps parameter names to their text values, e.g.
	// RAJ: "04:37:15.8961737" or PLANET_SHAPIRO: "N".
	Params map[string]string `yaml:"params"`

	// Ephemeris is the path to a tabulated ephemeris file. Optional; without
	// it only requests carrying explicit positions can be served.
	Ephemeris string `yaml:"ephemeris"`

	// Observatories are added to the registry next to the built-in
	// barycentre and geocentre.
	Observatories []Observatory `yaml:"observatories"`
}

// Observatory describes one site or spacecraft. Exactly one of ITRF,
// Geodetic or TLE must be set.
type Observatory struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`

	// ITRF is the Earth-fixed position in metres.
	ITRF *[3]float64 `yaml:"itrf"`

	// Geodetic is the WGS-84 position.
	Geodetic *Geodetic `yaml:"geodetic"`

	// TLE holds the two element lines of an orbiting observatory.
	TLE []string `yaml:"tle"`
}

// Geodetic is a WGS-84 latitude, longitude and height.
type Geodetic struct {
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`
	AltM   float64 `yaml:"alt_m"`
}

// Load reads and parses the YAML model file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML model file.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if len(cfg.Components) == 0 {
		cfg.Components = append([]string(nil), DefaultComponents...)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no model file is given.
func Default() *Config {
	cfg := defaults()
	cfg.Components = append([]string(nil), DefaultComponents...)
	return cfg
}

func defaults() *Config {
	return &Config{Params: map[string]string{}}
}

// validate checks structural constraints. Parameter values are checked when
// the model is built, since only the components know their parameters.
func validate(cfg *Config) error {
	seen := make(map[string]bool)
	for i, name := range cfg.Components {
		if _, ok := factories[name]; !ok {
			return fmt.Errorf("components[%d]: unknown component %q", i, name)
		}
		if seen[name] {
			return fmt.Errorf("components[%d]: %w: %s", i, timing.ErrDuplicateComponent, name)
		}
		seen[name] = true
	}

	for i, o := range cfg.Observatories {
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("observatories[%d]: name is required", i)
		}
		n := 0
		if o.ITRF != nil {
			n++
		}
		if o.Geodetic != nil {
			n++
		}
		if len(o.TLE) > 0 {
			n++
			if len(o.TLE) != 2 {
				return fmt.Errorf("observatories[%d] %q: tle needs 2 lines, got %d", i, o.Name, len(o.TLE))
			}
		}
		if n != 1 {
			return fmt.Errorf("observatories[%d] %q: exactly one of itrf, geodetic or tle is required", i, o.Name)
		}
	}
	return nil
}

// BuildModel constructs the configured components, applies parameter
// values and runs setup.
func (c *Config) BuildModel(logger *slog.Logger) (*timing.Model, error) {
	comps := make([]timing.Component, 0, len(c.Components))
	for _, name := range c.Components {
		build, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown component %q", name)
		}
		comps = append(comps, build(logger))
	}

	m, err := timing.NewModel(logger, comps...)
	if err != nil {
		return nil, err
	}
	if err := m.SetParams(c.Params); err != nil {
		return nil, err
	}
	// Re-run setup: components validate parameter combinations there.
	if err := m.Setup(); err != nil {
		return nil, err
	}
	return m, nil
}

// BuildRegistry returns the built-in observatories plus the configured ones.
func (c *Config) BuildRegistry() (*observatory.Registry, error) {
	reg := observatory.NewRegistry()
	for _, o := range c.Observatories {
		var (
			obs observatory.Observatory
			err error
		)
		switch {
		case o.ITRF != nil:
			obs, err = observatory.NewSite(o.Name, transform.FromArray(*o.ITRF))
		case o.Geodetic != nil:
			obs, err = observatory.NewGeodeticSite(o.Name, transform.GeodeticPoint{
				LatDeg: o.Geodetic.LatDeg,
				LonDeg: o.Geodetic.LonDeg,
				AltM:   o.Geodetic.AltM,
			})
		default:
			obs, err = observatory.NewSpacecraft(o.Name, o.TLE[0], o.TLE[1])
		}
		if err != nil {
			return nil, err
		}
		if err := reg.Register(obs, o.Aliases...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadEphemeris loads the configured ephemeris table, or returns nil when
// none is configured.
func (c *Config) LoadEphemeris() (*ephem.Table, error) {
	if c.Ephemeris == "" {
		return nil, nil
	}
	return ephem.Load(c.Ephemeris)
}
