package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

// maxTOAs bounds the work a single request can ask for.
const maxTOAs = 100000

var errTooManyTOAs = errors.New("too many TOAs")

// delayRequest is the body of POST /api/v1/delay and /api/v1/delay/sites.
type delayRequest struct {
	TOAs []toaRequest `json:"toas"`
}

// toaRequest is one TOA. Besides the fixed keys it accepts one
// obs_<body>_pos key per body, a [x, y, z] vector in metres from the
// observatory to the body.
type toaRequest struct {
	Observatory string
	MJD         *float64
	TDB         float64
	BodyPos     map[body.Body]transform.Vec3
}

func (t *toaRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var haveTDB bool
	for k, v := range raw {
		switch k {
		case "observatory":
			if err := json.Unmarshal(v, &t.Observatory); err != nil {
				return fmt.Errorf("observatory: %w", err)
			}
		case "mjd":
			var mjd float64
			if err := json.Unmarshal(v, &mjd); err != nil {
				return fmt.Errorf("mjd: %w", err)
			}
			t.MJD = &mjd
		case "tdb":
			if err := json.Unmarshal(v, &t.TDB); err != nil {
				return fmt.Errorf("tdb: %w", err)
			}
			haveTDB = true
		default:
			b, err := body.ParseField(k)
			if err != nil {
				return fmt.Errorf("unknown field %q", k)
			}
			var xyz []float64
			if err := json.Unmarshal(v, &xyz); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if len(xyz) != 3 {
				return fmt.Errorf("%s: want 3 components, got %d", k, len(xyz))
			}
			if t.BodyPos == nil {
				t.BodyPos = make(map[body.Body]transform.Vec3)
			}
			t.BodyPos[b] = transform.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
	}

	if t.Observatory == "" {
		return errors.New("observatory is required")
	}
	if !haveTDB || math.IsNaN(t.TDB) || math.IsInf(t.TDB, 0) {
		return errors.New("tdb is required")
	}
	return nil
}

// batch converts the request into a grouped batch.
func (r *delayRequest) batch() (*toa.Batch, error) {
	if len(r.TOAs) == 0 {
		return nil, errors.New("no TOAs")
	}
	if len(r.TOAs) > maxTOAs {
		return nil, errTooManyTOAs
	}
	toas := make([]toa.TOA, len(r.TOAs))
	for i, t := range r.TOAs {
		mjd := t.TDB
		if t.MJD != nil {
			mjd = *t.MJD
		}
		day := math.Floor(mjd)
		toas[i] = toa.TOA{
			MJD:         toa.NewMJD(int64(day), mjd-day),
			Observatory: t.Observatory,
			TDB:         t.TDB,
			BodyPos:     t.BodyPos,
		}
	}
	return toa.NewBatch(toas), nil
}

// delayResponse reports delays in request order.
type delayResponse struct {
	RequestID string    `json:"request_id"`
	Delays    []float64 `json:"delays"`
	Units     string    `json:"units"`
}
