package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/metrics"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/posvel"
	"github.com/star/pulsedelay/internal/timing"
	"github.com/star/pulsedelay/internal/toa"
)

const (
	maxRequestBytes = 32 << 20
	maxParamBytes   = 4 << 10
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps model and data errors to HTTP status codes: a bad model
// configuration is the client's 400, incomplete observation data is 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, toa.ErrMissingData),
		errors.Is(err, toa.ErrBadGroups),
		errors.Is(err, ephem.ErrOutOfRange),
		errors.Is(err, ephem.ErrNoBody),
		errors.Is(err, observatory.ErrUnknown),
		errors.Is(err, observatory.ErrNoPosition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, timing.ErrMissingProvider),
		errors.Is(err, timing.ErrUnknownParam),
		errors.Is(err, timing.ErrDuplicateParam),
		errors.Is(err, timing.ErrDuplicateComponent),
		errors.Is(err, param.ErrParse):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type paramInfo struct {
	Name        string `json:"name"`
	Units       string `json:"units"`
	Value       string `json:"value"`
	Fittable    bool   `json:"fittable"`
	Description string `json:"description"`
}

func toParamInfo(p param.Parameter) paramInfo {
	return paramInfo{
		Name:        p.Name(),
		Units:       p.Units(),
		Value:       p.Text(),
		Fittable:    p.Fittable(),
		Description: p.Description(),
	}
}

// listParamsHandler returns every model parameter in registration order.
func listParamsHandler(state *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()
		if state.model == nil {
			writeError(w, http.StatusServiceUnavailable, "no model loaded")
			return
		}

		params := state.model.Params()
		out := make([]paramInfo, 0, len(params))
		for _, p := range params {
			out = append(out, toParamInfo(p))
		}
		writeJSON(w, http.StatusOK, map[string]any{"params": out})
	}
}

// setParamHandler parses the plain-text request body into the named
// parameter and re-runs model setup. A value the model rejects is rolled
// back.
func setParamHandler(state *State, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParamBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read parameter value")
			return
		}
		text := strings.TrimSpace(string(data))

		state.mu.Lock()
		defer state.mu.Unlock()
		if state.model == nil {
			writeError(w, http.StatusServiceUnavailable, "no model loaded")
			return
		}

		p, err := state.model.Param(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		old := p.Text()
		restore := p.Checkpoint()
		if err := p.SetText(text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := state.model.Setup(); err != nil {
			restore()
			if rerr := state.model.Setup(); rerr != nil {
				logger.Error("parameter rollback left model invalid", "component", "api", "param", name, "error", rerr)
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		logger.Info("parameter updated", "component", "api", "param", name, "old", old, "new", p.Text())
		writeJSON(w, http.StatusOK, toParamInfo(p))
	}
}

func decodeDelayRequest(w http.ResponseWriter, r *http.Request) (*toa.Batch, bool) {
	var req delayRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}

	b, err := req.batch()
	if errors.Is(err, errTooManyTOAs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    err.Error(),
			"max_toas": maxTOAs,
		})
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return b, true
}

// evaluate runs the model on b and writes the delays in request order.
// The caller holds state.mu for reading.
func evaluate(w http.ResponseWriter, model *timing.Model, b *toa.Batch, logger *slog.Logger) {
	delays, err := model.Delay(b)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make([]float64, len(delays))
	for i, d := range delays {
		src := b.Source(i)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": "non-finite delay: pulsar direction is aligned with a body as seen from the observatory",
				"index": src,
			})
			return
		}
		out[src] = d
	}
	metrics.AddTOAsProcessed(b.Len())

	id := uuid.New().String()
	logger.Debug("delay computed", "component", "api", "request_id", id, "toas", b.Len(), "groups", len(b.Groups()))
	writeJSON(w, http.StatusOK, delayResponse{RequestID: id, Delays: out, Units: "s"})
}

// delayHandler evaluates the model on TOAs that carry their own
// observer-to-body vectors.
func delayHandler(state *State, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := decodeDelayRequest(w, r)
		if !ok {
			return
		}

		state.mu.RLock()
		defer state.mu.RUnlock()
		if state.model == nil {
			writeError(w, http.StatusServiceUnavailable, "no model loaded")
			return
		}
		evaluate(w, state.model, b, logger)
	}
}

// bodyUser is implemented by components that read body positions.
type bodyUser interface {
	Bodies() []body.Body
}

// requiredBodies collects the bodies the model's components will read.
func requiredBodies(m *timing.Model) []body.Body {
	seen := make(map[body.Body]bool)
	var out []body.Body
	for _, c := range m.Components() {
		bu, ok := c.(bodyUser)
		if !ok {
			continue
		}
		for _, b := range bu.Bodies() {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}

// delaySitesHandler fills observer-to-body vectors from the ephemeris and
// observatory registry before evaluating the model.
func delaySitesHandler(state *State, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := decodeDelayRequest(w, r)
		if !ok {
			return
		}

		state.mu.RLock()
		defer state.mu.RUnlock()
		if state.model == nil {
			writeError(w, http.StatusServiceUnavailable, "no model loaded")
			return
		}
		if state.eph == nil {
			writeError(w, http.StatusServiceUnavailable, "no ephemeris configured")
			return
		}

		pv := posvel.NewComputer(state.eph, state.reg, logger)
		if err := pv.Fill(r.Context(), b, requiredBodies(state.model)); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		evaluate(w, state.model, b, logger)
	}
}

type observatoryInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Barycentric bool   `json:"barycentric"`
}

// listObservatoriesHandler returns the registered observatories.
func listObservatoriesHandler(state *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state.mu.RLock()
		defer state.mu.RUnlock()
		if state.reg == nil {
			writeError(w, http.StatusServiceUnavailable, "no model loaded")
			return
		}

		names := state.reg.Names()
		out := make([]observatoryInfo, 0, len(names))
		for _, n := range names {
			obs, err := state.reg.Lookup(n)
			if err != nil {
				continue
			}
			kind := "builtin"
			switch obs.(type) {
			case *observatory.Site:
				kind = "site"
			case *observatory.Spacecraft:
				kind = "spacecraft"
			}
			out = append(out, observatoryInfo{Name: n, Kind: kind, Barycentric: obs.IsBarycentric()})
		}
		writeJSON(w, http.StatusOK, map[string]any{"observatories": out})
	}
}
