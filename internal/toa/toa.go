// Package toa holds observation batches: times of arrival grouped
// contiguously by observatory, each carrying the observer-to-body position
// vectors needed by delay components.
package toa

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/transform"
)

// Barycenter is the observatory label for TOAs already referred to the
// solar-system barycentre. Such TOAs have no local light-path geometry.
const Barycenter = "Barycenter"

var barycenterAliases = map[string]bool{
	"barycenter": true,
	"@":          true,
	"ssb":        true,
	"bary":       true,
	"bat":        true,
}

// ErrMissingData reports that a batch lacks data a delay function needs.
var ErrMissingData = errors.New("missing observation data")

// ErrBadGroups reports a grouping index that does not partition the batch.
var ErrBadGroups = errors.New("invalid observatory grouping")

// MJD is a Modified Julian Date split into integer day and fractional day
// so that nanosecond resolution survives over decades.
type MJD struct {
	Day  int64
	Frac float64 // [0, 1)
}

// NewMJD normalizes day and fraction so that 0 <= Frac < 1.
func NewMJD(day int64, frac float64) MJD {
	whole := math.Floor(frac)
	f := frac - whole
	if f >= 1 {
		// A tiny negative fraction rounds up to exactly 1.
		whole++
		f = 0
	}
	return MJD{Day: day + int64(whole), Frac: f}
}

// Float returns the date as a single float64 (about 1 µs resolution).
func (m MJD) Float() float64 {
	return float64(m.Day) + m.Frac
}

func (m MJD) String() string {
	day, frac := m.Day, strconv.FormatFloat(m.Frac, 'f', 15, 64)
	if frac[0] == '1' {
		day++
		frac = "0.000000000000000"
	}
	return strconv.FormatInt(day, 10) + frac[1:]
}

// TOA is one observation record.
type TOA struct {
	MJD         MJD
	Observatory string
	// TDB is the arrival epoch on the TDB scale as MJD.
	TDB float64
	// BodyPos maps a body to the vector from the observatory to that body,
	// in metres.
	BodyPos map[body.Body]transform.Vec3
}

// Position returns the observer-to-body vector for b.
func (t TOA) Position(b body.Body) (transform.Vec3, bool) {
	v, ok := t.BodyPos[b]
	return v, ok
}

// Group is a contiguous run [Lo, Hi) of TOAs from one observatory.
type Group struct {
	Observatory string
	Lo, Hi      int
}

// Len returns the number of TOAs in the group.
func (g Group) Len() int { return g.Hi - g.Lo }

// IsBarycentric reports whether the group's TOAs are barycentric.
func (g Group) IsBarycentric() bool { return g.Observatory == Barycenter }

// Batch is an ordered set of TOAs with its observatory grouping.
// It is read-only once built, except through SetPosition.
type Batch struct {
	toas   []TOA
	groups []Group
	src    []int // nil means identity
}

// CanonicalObservatory maps barycentre aliases ("@", "ssb", "bary", "bat")
// to Barycenter and returns every other name unchanged.
func CanonicalObservatory(name string) string {
	n := strings.TrimSpace(name)
	if barycenterAliases[strings.ToLower(n)] {
		return Barycenter
	}
	return n
}

// NewBatch groups toas by observatory. TOAs are stably reordered so each
// observatory occupies one contiguous range; within an observatory the
// input order is kept. Groups are ordered by first appearance. Source maps
// batch positions back to input positions.
func NewBatch(toas []TOA) *Batch {
	order := make(map[string]int)
	src := make([]int, len(toas))
	for i, t := range toas {
		obs := CanonicalObservatory(t.Observatory)
		if _, ok := order[obs]; !ok {
			order[obs] = len(order)
		}
		src[i] = i
	}
	sort.SliceStable(src, func(i, j int) bool {
		return order[CanonicalObservatory(toas[src[i]].Observatory)] < order[CanonicalObservatory(toas[src[j]].Observatory)]
	})

	sorted := make([]TOA, len(toas))
	var groups []Group
	for i, k := range src {
		t := toas[k]
		t.Observatory = CanonicalObservatory(t.Observatory)
		t.BodyPos = maps.Clone(t.BodyPos)
		sorted[i] = t
		if len(groups) == 0 || groups[len(groups)-1].Observatory != t.Observatory {
			groups = append(groups, Group{Observatory: t.Observatory, Lo: i, Hi: i})
		}
		groups[len(groups)-1].Hi = i + 1
	}
	return &Batch{toas: sorted, groups: groups, src: src}
}

// FromGroups builds a batch from already-grouped TOAs and takes ownership
// of both slices. The groups must partition [0, len(toas)) in order with no
// gaps or overlaps, and each TOA must belong to its group's observatory.
func FromGroups(toas []TOA, groups []Group) (*Batch, error) {
	next := 0
	for i, g := range groups {
		g.Observatory = CanonicalObservatory(g.Observatory)
		groups[i] = g
		if g.Lo != next {
			return nil, fmt.Errorf("%w: group %d (%s) starts at %d, want %d", ErrBadGroups, i, g.Observatory, g.Lo, next)
		}
		if g.Hi <= g.Lo {
			return nil, fmt.Errorf("%w: group %d (%s) is empty or reversed [%d, %d)", ErrBadGroups, i, g.Observatory, g.Lo, g.Hi)
		}
		if g.Hi > len(toas) {
			return nil, fmt.Errorf("%w: group %d (%s) ends at %d beyond %d TOAs", ErrBadGroups, i, g.Observatory, g.Hi, len(toas))
		}
		for j := g.Lo; j < g.Hi; j++ {
			if CanonicalObservatory(toas[j].Observatory) != g.Observatory {
				return nil, fmt.Errorf("%w: TOA %d observatory %q in group %q", ErrBadGroups, j, toas[j].Observatory, g.Observatory)
			}
			toas[j].Observatory = g.Observatory
		}
		next = g.Hi
	}
	if next != len(toas) {
		return nil, fmt.Errorf("%w: groups cover %d of %d TOAs", ErrBadGroups, next, len(toas))
	}
	return &Batch{toas: toas, groups: groups}, nil
}

// Len returns the number of TOAs.
func (b *Batch) Len() int { return len(b.toas) }

// Source returns the input position of the i-th TOA as given to NewBatch.
func (b *Batch) Source(i int) int {
	if b.src == nil {
		return i
	}
	return b.src[i]
}

// TOA returns the i-th record.
func (b *Batch) TOA(i int) TOA { return b.toas[i] }

// Groups returns the observatory groups in index order.
func (b *Batch) Groups() []Group { return b.groups }

// TDB returns the TDB epochs of the TOAs in g.
func (b *Batch) TDB(g Group) []float64 {
	out := make([]float64, 0, g.Len())
	for _, t := range b.toas[g.Lo:g.Hi] {
		out = append(out, t.TDB)
	}
	return out
}

// Positions returns the observer-to-body vectors for every TOA in g.
// A TOA without a position for bd yields ErrMissingData naming the body,
// observatory and TOA index.
func (b *Batch) Positions(g Group, bd body.Body) ([]transform.Vec3, error) {
	out := make([]transform.Vec3, 0, g.Len())
	for i := g.Lo; i < g.Hi; i++ {
		v, ok := b.toas[i].Position(bd)
		if !ok {
			return nil, fmt.Errorf("%w: %s for observatory %s at TOA %d", ErrMissingData, bd.PositionField(), g.Observatory, b.Source(i))
		}
		out = append(out, v)
	}
	return out, nil
}

// SetPosition stores the observer-to-body vector for TOA i.
func (b *Batch) SetPosition(i int, bd body.Body, v transform.Vec3) {
	t := &b.toas[i]
	if t.BodyPos == nil {
		t.BodyPos = make(map[body.Body]transform.Vec3)
	}
	t.BodyPos[bd] = v
}
