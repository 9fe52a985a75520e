// Command diag prints Shapiro delays for a synthetic year of geocentric TOAs,
// using circular coplanar orbits in place of a real ephemeris. The pulsar
// sits one degree from the Sun's path, so the solar term peaks near day 182.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/config"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/posvel"
	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

const start = 58849.0 // 2020-01-01

type orbit struct {
	b      body.Body
	radius float64 // AU
	period float64 // days
	phase0 float64 // rad at start
}

var orbits = []orbit{
	{body.Venus, 0.723, 224.70, 1.2},
	{body.Earth, 1.000, 365.25, 0},
	{body.Jupiter, 5.203, 4332.6, 0.4},
	{body.Saturn, 9.537, 10759, 2.9},
	{body.Uranus, 19.19, 30687, 4.1},
}

func syntheticEphemeris() (*ephem.Table, error) {
	samples := map[body.Body][]ephem.Sample{}
	for d := -1.0; d <= 367; d++ {
		tdb := start + d
		samples[body.Sun] = append(samples[body.Sun], ephem.Sample{TDB: tdb})
		for _, o := range orbits {
			phi := o.phase0 + 2*math.Pi*d/o.period
			pos := transform.Vec3{X: math.Cos(phi), Y: math.Sin(phi)}.Scale(o.radius * transform.AU)
			samples[o.b] = append(samples[o.b], ephem.Sample{TDB: tdb, Pos: pos})
		}
	}
	return ephem.NewTable("synthetic", samples)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.Default()
	if len(os.Args) > 1 {
		var err error
		cfg, err = config.Load(os.Args[1])
		if err != nil {
			fmt.Println("ERROR loading config:", err)
			os.Exit(1)
		}
	} else {
		cfg.Params["RAJ"] = "00:00:00"
		cfg.Params["DECJ"] = "+01:00:00"
	}

	model, err := cfg.BuildModel(logger)
	if err != nil {
		fmt.Println("ERROR building model:", err)
		os.Exit(1)
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		fmt.Println("ERROR building observatories:", err)
		os.Exit(1)
	}
	eph, err := syntheticEphemeris()
	if err != nil {
		fmt.Println("ERROR building ephemeris:", err)
		os.Exit(1)
	}

	var toas []toa.TOA
	for d := 0.0; d < 366; d += 5 {
		toas = append(toas, toa.TOA{MJD: toa.NewMJD(int64(start+d), 0), Observatory: observatory.GeocenterName, TDB: start + d})
	}
	toas = append(toas, toa.TOA{MJD: toa.NewMJD(int64(start), 0), Observatory: toa.Barycenter, TDB: start})
	batch := toa.NewBatch(toas)

	bodies := append([]body.Body{body.Sun}, body.ShapiroPlanets()...)
	if err := posvel.NewComputer(eph, reg, logger).Fill(context.Background(), batch, bodies); err != nil {
		fmt.Println("ERROR computing positions:", err)
		os.Exit(1)
	}

	delays, err := model.Delay(batch)
	if err != nil {
		fmt.Println("ERROR computing delays:", err)
		os.Exit(1)
	}

	for _, p := range model.Params() {
		fmt.Printf("%-15s %s\n", p.Name(), p.Text())
	}
	fmt.Println()

	maxIdx := 0
	for i, d := range delays {
		t := batch.TOA(i)
		fmt.Printf("  %-11s MJD %-20s delay %+.9e s\n", t.Observatory, t.MJD, d)
		if d > delays[maxIdx] {
			maxIdx = i
		}
	}
	fmt.Printf("\nPeak delay %.3f us at MJD %.1f (%d TOAs)\n", delays[maxIdx]*1e6, batch.TOA(maxIdx).TDB, batch.Len())
}
