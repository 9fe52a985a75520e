// Package ephem supplies barycentric positions of solar-system bodies.
//
// Table is a tabulated ephemeris with linear interpolation between samples.
// Interpolation error scales with the square of the sample spacing; a
// half-day spacing keeps Earth's position error under a few kilometres.
package ephem

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/transform"
)

var (
	// ErrNoBody: the ephemeris has no data for the requested body.
	ErrNoBody = errors.New("body not in ephemeris")
	// ErrOutOfRange: the epoch lies outside the tabulated span.
	ErrOutOfRange = errors.New("epoch outside ephemeris range")
)

// Ephemeris returns the position of a body relative to the solar-system
// barycentre, in metres, at a TDB epoch given as MJD.
type Ephemeris interface {
	Position(b body.Body, tdb float64) (transform.Vec3, error)
}

// Sample is one tabulated position.
type Sample struct {
	TDB float64 // MJD
	Pos transform.Vec3
}

// Table is an in-memory tabulated ephemeris. It is immutable after
// construction and safe for concurrent reads.
type Table struct {
	name    string
	samples map[body.Body][]Sample
}

// NewTable builds a table from per-body samples. Samples are sorted by
// epoch; each body needs at least two distinct epochs.
func NewTable(name string, samples map[body.Body][]Sample) (*Table, error) {
	t := &Table{name: name, samples: make(map[body.Body][]Sample, len(samples))}
	for b, s := range samples {
		if !b.Valid() {
			return nil, fmt.Errorf("ephemeris %s: %w: %d", name, ErrNoBody, int(b))
		}
		sorted := append([]Sample(nil), s...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].TDB < sorted[j].TDB })
		if len(sorted) < 2 {
			return nil, fmt.Errorf("ephemeris %s: %s needs at least 2 samples, got %d", name, b, len(sorted))
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i].TDB == sorted[i-1].TDB {
				return nil, fmt.Errorf("ephemeris %s: %s has duplicate epoch %v", name, b, sorted[i].TDB)
			}
		}
		t.samples[b] = sorted
	}
	return t, nil
}

// Name identifies the ephemeris, e.g. "DE440".
func (t *Table) Name() string { return t.name }

// Span returns the epoch range covered for b.
func (t *Table) Span(b body.Body) (lo, hi float64, ok bool) {
	s, ok := t.samples[b]
	if !ok {
		return 0, 0, false
	}
	return s[0].TDB, s[len(s)-1].TDB, true
}

// Position interpolates the barycentric position of b at tdb.
func (t *Table) Position(b body.Body, tdb float64) (transform.Vec3, error) {
	s, ok := t.samples[b]
	if !ok {
		return transform.Vec3{}, fmt.Errorf("%w: %s in %s", ErrNoBody, b, t.name)
	}
	if tdb < s[0].TDB || tdb > s[len(s)-1].TDB {
		return transform.Vec3{}, fmt.Errorf("%w: %s at MJD %.6f, %s covers [%.6f, %.6f]",
			ErrOutOfRange, b, tdb, t.name, s[0].TDB, s[len(s)-1].TDB)
	}

	// First sample strictly after tdb; clamp so the last epoch uses the
	// final interval.
	i := sort.Search(len(s), func(i int) bool { return s[i].TDB > tdb })
	if i == len(s) {
		i--
	}
	a, c := s[i-1], s[i]
	f := (tdb - a.TDB) / (c.TDB - a.TDB)
	return a.Pos.Add(c.Pos.Sub(a.Pos).Scale(f)), nil
}

// file is the on-disk YAML layout:
//
//	name: DE440-excerpt
//	unit: au          # au | km | m
//	bodies:
//	  earth:
//	    - [55000.0, -0.17, 0.89, 0.39]   # tdb, x, y, z
type file struct {
	Name   string                  `yaml:"name"`
	Unit   string                  `yaml:"unit"`
	Bodies map[string][][4]float64 `yaml:"bodies"`
}

// Load reads a YAML ephemeris table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ephem: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML ephemeris table.
func Parse(data []byte) (*Table, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ephem: parse yaml: %w", err)
	}

	var scale float64
	switch strings.ToLower(f.Unit) {
	case "au", "":
		scale = transform.AU
	case "km":
		scale = 1000
	case "m":
		scale = 1
	default:
		return nil, fmt.Errorf("ephem: unknown unit %q", f.Unit)
	}

	samples := make(map[body.Body][]Sample, len(f.Bodies))
	for name, rows := range f.Bodies {
		b, err := body.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("ephem: %w", err)
		}
		for _, r := range rows {
			samples[b] = append(samples[b], Sample{
				TDB: r[0],
				Pos: transform.Vec3{X: r[1], Y: r[2], Z: r[3]}.Scale(scale),
			})
		}
	}
	if f.Name == "" {
		f.Name = "table"
	}
	return NewTable(f.Name, samples)
}
