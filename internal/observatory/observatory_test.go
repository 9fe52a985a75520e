package observatory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

// Real ISS orbital elements, epoch 2024-04-09 12:00 UTC.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// 2024-04-10 12:00:00 UTC on the TDB scale.
const issTDB = 60410.5 + 69.184/86400

// Green Bank Telescope, ITRF metres.
var gbt = transform.Vec3{X: 882589.289, Y: -4924872.368, Z: 3943729.418}

func TestSiteGeocentricPosition(t *testing.T) {
	site, err := NewSite("GBT", gbt)
	require.NoError(t, err)
	assert.Equal(t, "GBT", site.Name())
	assert.False(t, site.IsBarycentric())
	assert.Equal(t, gbt, site.ITRF())

	for _, tdb := range []float64{55000, 55000.25, 58849.123456} {
		pos, err := site.GeocentricPosition(tdb)
		require.NoError(t, err)
		assert.InDelta(t, gbt.Norm(), pos.Norm(), 1e-6)
		assert.Equal(t, gbt.Z, pos.Z)
	}

	// A quarter sidereal day turns the site by about 90 degrees.
	p0, _ := site.GeocentricPosition(55000)
	p1, _ := site.GeocentricPosition(55000 + 0.99726958/4)
	cos := p0.Dot(p1) - p0.Z*p1.Z
	assert.InDelta(t, 0, cos/(p0.Norm()*p1.Norm()), 1e-3)
}

func TestNewSiteRejectsBadPosition(t *testing.T) {
	_, err := NewSite("nowhere", transform.Vec3{X: 1000})
	assert.Error(t, err)

	_, err = NewSite("  ", gbt)
	assert.Error(t, err)

	_, err = NewGeodeticSite("pole", transform.GeodeticPoint{LatDeg: 91})
	assert.Error(t, err)
}

func TestGeodeticSite(t *testing.T) {
	site, err := NewGeodeticSite("Parkes", transform.GeodeticPoint{LatDeg: -32.99984, LonDeg: 148.26352, AltM: 414.8})
	require.NoError(t, err)
	back := transform.ECEFToGeodetic(site.ITRF())
	assert.InDelta(t, -32.99984, back.LatDeg, 1e-8)
	assert.InDelta(t, 148.26352, back.LonDeg, 1e-8)
	assert.InDelta(t, 414.8, back.AltM, 1e-3)
}

func TestBarycenterAndGeocenter(t *testing.T) {
	b := Barycenter()
	assert.Equal(t, toa.Barycenter, b.Name())
	assert.True(t, b.IsBarycentric())
	_, err := b.GeocentricPosition(55000)
	assert.ErrorIs(t, err, ErrNoPosition)

	g := Geocenter()
	assert.False(t, g.IsBarycentric())
	pos, err := g.GeocentricPosition(55000)
	require.NoError(t, err)
	assert.Equal(t, transform.Vec3{}, pos)
}

func TestSpacecraftPropagation(t *testing.T) {
	iss, err := NewSpacecraft("ISS", issLine1, issLine2)
	require.NoError(t, err)
	assert.Equal(t, 25544, iss.NoradID())
	assert.False(t, iss.IsBarycentric())

	pos, err := iss.GeocentricPosition(issTDB)
	require.NoError(t, err)

	// About 420 km altitude.
	km := pos.Norm() / 1000
	assert.Greater(t, km, 6500.0)
	assert.Less(t, km, 7000.0)
}

func TestSpacecraftSubSecondInterpolation(t *testing.T) {
	iss, err := NewSpacecraft("ISS", issLine1, issLine2)
	require.NoError(t, err)

	const sec = 1.0 / 86400
	p0, err := iss.GeocentricPosition(issTDB)
	require.NoError(t, err)
	p1, err := iss.GeocentricPosition(issTDB + sec)
	require.NoError(t, err)
	mid, err := iss.GeocentricPosition(issTDB + sec/2)
	require.NoError(t, err)

	// ISS moves about 7.7 km per second.
	step := p1.Sub(p0).Norm()
	assert.InDelta(t, 7660, step, 300)
	assert.InDelta(t, step/2, mid.Sub(p0).Norm(), 20)
	assert.InDelta(t, step/2, p1.Sub(mid).Norm(), 20)
}

func TestNewSpacecraftInvalidTLE(t *testing.T) {
	tests := []struct {
		name  string
		line1 string
		line2 string
	}{
		{"garbage", "invalid line 1", "invalid line 2"},
		{"swapped lines", issLine2, issLine1},
		{"catalog mismatch", issLine1, "2 25545" + issLine2[7:]},
		{"bad catalog", "1 2X544" + issLine1[7:], "2 2X544" + issLine2[7:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpacecraft("bad", tt.line1, tt.line2)
			assert.Error(t, err)
		})
	}

	_, err := NewSpacecraft("", issLine1, issLine2)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{toa.Barycenter, GeocenterName}, r.Names())

	for _, alias := range []string{"@", "SSB", "bat", "barycenter"} {
		obs, err := r.Lookup(alias)
		require.NoError(t, err, alias)
		assert.True(t, obs.IsBarycentric(), alias)
	}

	obs, err := r.Lookup("COE")
	require.NoError(t, err)
	assert.Equal(t, GeocenterName, obs.Name())

	site, err := NewSite("GBT", gbt)
	require.NoError(t, err)
	require.NoError(t, r.Register(site, "gb", "1"))

	for _, name := range []string{"gbt", " GBT ", "GB", "1"} {
		obs, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Same(t, site, obs.(*Site))
	}

	_, err = r.Lookup("ao")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	site, err := NewSite("GBT", gbt)
	require.NoError(t, err)
	require.NoError(t, r.Register(site, "gb"))

	other, err := NewSite("Other", gbt)
	require.NoError(t, err)

	err = r.Register(other, "x", "GB")
	assert.ErrorIs(t, err, ErrDuplicate)
	// Nothing from the rejected registration is visible.
	_, err = r.Lookup("x")
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = r.Lookup("other")
	assert.ErrorIs(t, err, ErrUnknown)

	dup, err := NewSite("gbt", gbt)
	require.NoError(t, err)
	assert.ErrorIs(t, r.Register(dup), ErrDuplicate)

	assert.Error(t, r.Register(other, ""))
}
