package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/star/pulsedelay/internal/auth"
	"github.com/star/pulsedelay/internal/body"
	"github.com/star/pulsedelay/internal/config"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/shapiro"
	"github.com/star/pulsedelay/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newTestHandler serves the default model (pulsar at RA=0, Dec=0) with the
// given parameter overrides.
func newTestHandler(t *testing.T, params map[string]string, eph ephem.Ephemeris) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Params = params
	m, err := cfg.BuildModel(testLogger())
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	state := NewState()
	state.Set(m, reg, eph)
	return newHandler(testLogger(), auth.Config{}, state)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sunDelay(pos transform.Vec3) float64 {
	return shapiro.ObjectDelay(pos, transform.Vec3{X: 1}, body.Sun.MassSeconds())
}

// TestDelayPreservesRequestOrder verifies delays come back in request order
// even though TOAs are regrouped by observatory internally.
func TestDelayPreservesRequestOrder(t *testing.T) {
	h := newTestHandler(t, map[string]string{"PLANET_SHAPIRO": "N"}, nil)
	au := transform.AU

	reqBody := fmt.Sprintf(`{"toas": [
		{"observatory": "gbt", "tdb": 55000.1, "obs_sun_pos": [%[1]g, 0, 0]},
		{"observatory": "@",   "tdb": 55000.2},
		{"observatory": "ao",  "tdb": 55000.3, "obs_sun_pos": [0, %[2]g, 0]},
		{"observatory": "gbt", "tdb": 55000.4, "mjd": 55000.399, "obs_sun_pos": [%[3]g, 0, 0]}
	]}`, -au, au, -3*au)

	w := do(h, "POST", "/api/v1/delay", reqBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp delayResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("missing request_id")
	}
	if resp.Units != "s" {
		t.Errorf("units = %q, want s", resp.Units)
	}

	want := []float64{
		sunDelay(transform.Vec3{X: -au}),
		0,
		sunDelay(transform.Vec3{Y: au}),
		sunDelay(transform.Vec3{X: -3 * au}),
	}
	if len(resp.Delays) != len(want) {
		t.Fatalf("got %d delays, want %d", len(resp.Delays), len(want))
	}
	for i := range want {
		if math.Abs(resp.Delays[i]-want[i]) > 1e-15 {
			t.Errorf("delay[%d] = %.15g, want %.15g", i, resp.Delays[i], want[i])
		}
	}
}

func TestDelayErrors(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	au := transform.AU

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{"toas": [`, http.StatusBadRequest},
		{"unknown top-level field", `{"toas": [], "extra": 1}`, http.StatusBadRequest},
		{"unknown toa field", `{"toas": [{"observatory": "gbt", "tdb": 1, "freq": 1400}]}`, http.StatusBadRequest},
		{"unknown body", `{"toas": [{"observatory": "gbt", "tdb": 1, "obs_pluto_pos": [1, 2, 3]}]}`, http.StatusBadRequest},
		{"short vector", `{"toas": [{"observatory": "gbt", "tdb": 1, "obs_sun_pos": [1, 2]}]}`, http.StatusBadRequest},
		{"missing tdb", `{"toas": [{"observatory": "gbt"}]}`, http.StatusBadRequest},
		{"missing observatory", `{"toas": [{"tdb": 1}]}`, http.StatusBadRequest},
		{"no toas", `{"toas": []}`, http.StatusBadRequest},
		{"planet positions missing", `{"toas": [{"observatory": "gbt", "tdb": 1, "obs_sun_pos": [1e11, 1e11, 0]}]}`, http.StatusUnprocessableEntity},
		{"aligned with sun", fmt.Sprintf(`{"toas": [{"observatory": "gbt", "tdb": 1,
			"obs_sun_pos": [%[1]g, 0, 0], "obs_jupiter_pos": [0, %[1]g, 0], "obs_saturn_pos": [0, %[1]g, 0],
			"obs_venus_pos": [0, %[1]g, 0], "obs_uranus_pos": [0, %[1]g, 0]}]}`, au), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, "POST", "/api/v1/delay", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp map[string]any
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == nil {
				t.Error("expected error field in response")
			}
		})
	}
}

// TestDelayTOABudget verifies oversized batches are rejected before any
// work is done.
func TestDelayTOABudget(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	var buf bytes.Buffer
	buf.WriteString(`{"toas": [`)
	for i := 0; i <= maxTOAs; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"observatory":"@","tdb":1}`)
	}
	buf.WriteString(`]}`)

	w := do(h, "POST", "/api/v1/delay", buf.String())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["max_toas"] == nil {
		t.Error("expected max_toas field in response")
	}
}

func TestNotReady(t *testing.T) {
	h := newHandler(testLogger(), auth.Config{}, NewState())

	if w := do(h, "GET", "/readyz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", w.Code)
	}
	if w := do(h, "GET", "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
	if w := do(h, "POST", "/api/v1/delay", `{"toas": [{"observatory": "@", "tdb": 1}]}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("delay status = %d, want 503", w.Code)
	}
	if w := do(h, "GET", "/api/v1/params", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("params status = %d, want 503", w.Code)
	}
}

func TestParams(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	w := do(h, "GET", "/api/v1/params", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Params []paramInfo `json:"params"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	byName := make(map[string]paramInfo)
	for _, p := range list.Params {
		byName[p.Name] = p
	}
	ps, ok := byName["PLANET_SHAPIRO"]
	if !ok {
		t.Fatal("PLANET_SHAPIRO not listed")
	}
	if ps.Value != "Y" || ps.Fittable {
		t.Errorf("PLANET_SHAPIRO = %+v, want value Y, not fittable", ps)
	}
	if _, ok := byName["RAJ"]; !ok {
		t.Error("RAJ not listed")
	}

	tests := []struct {
		name       string
		param      string
		value      string
		wantStatus int
		wantValue  string
	}{
		{"set bool", "PLANET_SHAPIRO", "n\n", http.StatusOK, "N"},
		{"malformed bool", "PLANET_SHAPIRO", "maybe", http.StatusBadRequest, "N"},
		{"unknown param", "F0", "1", http.StatusNotFound, ""},
		{"rejected by setup is rolled back", "PMRA", "5", http.StatusBadRequest, "0"},
		{"set epoch", "POSEPOCH", "55000", http.StatusOK, "55000"},
		{"proper motion with epoch", "PMRA", "5", http.StatusOK, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, "PUT", "/api/v1/params/"+tt.param, tt.value)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantValue == "" {
				return
			}
			w = do(h, "GET", "/api/v1/params", "")
			var list struct {
				Params []paramInfo `json:"params"`
			}
			json.NewDecoder(w.Body).Decode(&list)
			for _, p := range list.Params {
				if p.Name == tt.param && p.Value != tt.wantValue {
					t.Errorf("%s = %q, want %q", tt.param, p.Value, tt.wantValue)
				}
			}
		})
	}
}

func TestDelaySites(t *testing.T) {
	au := transform.AU
	eph, err := ephem.NewTable("test", map[body.Body][]ephem.Sample{
		body.Sun: {
			{TDB: 55000, Pos: transform.Vec3{}},
			{TDB: 55010, Pos: transform.Vec3{}},
		},
		body.Earth: {
			{TDB: 55000, Pos: transform.Vec3{X: au}},
			{TDB: 55010, Pos: transform.Vec3{X: au}},
		},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	h := newTestHandler(t, map[string]string{"PLANET_SHAPIRO": "N"}, eph)

	w := do(h, "POST", "/api/v1/delay/sites", `{"toas": [
		{"observatory": "coe", "tdb": 55001},
		{"observatory": "bat", "tdb": 1}
	]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp delayResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := sunDelay(transform.Vec3{X: -au})
	if math.Abs(resp.Delays[0]-want) > 1e-15 {
		t.Errorf("geocenter delay = %g, want %g", resp.Delays[0], want)
	}
	if resp.Delays[1] != 0 {
		t.Errorf("barycentric delay = %g, want 0", resp.Delays[1])
	}

	// Planets need positions the table does not have.
	h = newTestHandler(t, nil, eph)
	w = do(h, "POST", "/api/v1/delay/sites", `{"toas": [{"observatory": "coe", "tdb": 55001}]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing planets: status = %d, want 422", w.Code)
	}

	w = do(h, "POST", "/api/v1/delay/sites", `{"toas": [{"observatory": "nowhere", "tdb": 55001}]}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown observatory: status = %d, want 422", w.Code)
	}

	h = newTestHandler(t, nil, nil)
	w = do(h, "POST", "/api/v1/delay/sites", `{"toas": [{"observatory": "coe", "tdb": 55001}]}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no ephemeris: status = %d, want 503", w.Code)
	}
}

func TestObservatories(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	w := do(h, "GET", "/api/v1/observatories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Observatories []observatoryInfo `json:"observatories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Observatories) != 2 {
		t.Fatalf("got %d observatories, want 2", len(resp.Observatories))
	}
	if resp.Observatories[0].Name != "Barycenter" || !resp.Observatories[0].Barycentric {
		t.Errorf("first = %+v", resp.Observatories[0])
	}
	if resp.Observatories[1].Name != observatory.GeocenterName || resp.Observatories[1].Kind != "builtin" {
		t.Errorf("second = %+v", resp.Observatories[1])
	}
}

// TestSetParamRollbackRestoresTypedValue verifies a value rejected by model
// setup is undone from the stored value, not from its text form.
func TestSetParamRollbackRestoresTypedValue(t *testing.T) {
	m, err := config.Default().BuildModel(testLogger())
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	p, err := m.Param("PMRA")
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	pmra := p.(*param.Param[float64])
	pmra.Set(0)

	state := NewState()
	state.Set(m, observatory.NewRegistry(), nil)
	h := newHandler(testLogger(), auth.Config{}, state)

	// PMRA without POSEPOCH fails setup.
	w := do(h, "PUT", "/api/v1/params/PMRA", "1.0000000000000002")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := pmra.Value(); got != 0 || math.Signbit(got) {
		t.Errorf("PMRA after rollback = %v, want 0", got)
	}
	if err := m.Setup(); err != nil {
		t.Errorf("model left invalid after rollback: %v", err)
	}
}
