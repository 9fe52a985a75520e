// Package posvel fills TOA batches with observer-to-body position vectors
// from an ephemeris and the observatory registry.
package posvel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/toa"
)

// Computer derives obs_<body>_pos vectors for every non-barycentric TOA.
type Computer struct {
	eph    ephem.Ephemeris
	reg    *observatory.Registry
	logger *slog.Logger
}

// NewComputer creates a Computer.
func NewComputer(eph ephem.Ephemeris, reg *observatory.Registry, logger *slog.Logger) *Computer {
	return &Computer{
		eph:    eph,
		reg:    reg,
		logger: logger.With("component", "posvel"),
	}
}

// Fill sets the vector from the observatory to each body in bodies for
// every TOA in b:
//
//	r_obs->body = r_body - (r_earth + r_obs,geo)
//
// with barycentric positions from the ephemeris and the geocentric
// observatory position from the registry. Barycentric groups are left
// untouched. ctx is checked between groups.
func (c *Computer) Fill(ctx context.Context, b *toa.Batch, bodies []body.Body) error {
	for _, g := range b.Groups() {
		if err := ctx.Err(); err != nil {
			return err
		}

		obs, err := c.reg.Lookup(g.Observatory)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.Observatory, err)
		}
		if g.IsBarycentric() || obs.IsBarycentric() {
			continue
		}

		for i := g.Lo; i < g.Hi; i++ {
			tdb := b.TOA(i).TDB
			geo, err := obs.GeocentricPosition(tdb)
			if err != nil {
				return fmt.Errorf("TOA %d at %s: %w", i, obs.Name(), err)
			}
			earth, err := c.eph.Position(body.Earth, tdb)
			if err != nil {
				return fmt.Errorf("TOA %d: %w", i, err)
			}
			observer := earth.Add(geo)

			for _, bd := range bodies {
				p, err := c.eph.Position(bd, tdb)
				if err != nil {
					return fmt.Errorf("TOA %d: %w", i, err)
				}
				b.SetPosition(i, bd, p.Sub(observer))
			}
		}
		c.logger.Debug("filled positions", "observatory", obs.Name(), "toas", g.Len(), "bodies", len(bodies))
	}
	return nil
}
