package timing

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// constDelay adds a fixed offset scaled by its OFFSET parameter.
type constDelay struct {
	Base
	offset *param.Param[float64]
	calls  int
}

func newConstDelay(name, paramName string, offset float64) *constDelay {
	c := &constDelay{Base: NewBase(name)}
	c.offset = param.NewFloat(paramName, "s", offset, true, "constant offset")
	c.AddParam(c.offset)
	c.AddDelay(c.delay)
	return c
}

func (c *constDelay) delay(b *toa.Batch) ([]float64, error) {
	c.calls++
	out := make([]float64, b.Len())
	for i := range out {
		out[i] = c.offset.Value()
	}
	return out, nil
}

// needsDirection fails setup unless the model has a direction provider.
type needsDirection struct {
	Base
	setups int
}

func (n *needsDirection) Setup(m *Model) error {
	if err := n.Base.Setup(m); err != nil {
		return err
	}
	n.setups++
	_, err := m.DirectionProvider()
	return err
}

type fixedDirection struct {
	Base
}

func (fixedDirection) SSBToPSBXYZ(tdb []float64) ([]transform.Vec3, error) {
	out := make([]transform.Vec3, len(tdb))
	for i := range out {
		out[i] = transform.Vec3{X: 1}
	}
	return out, nil
}

func threeTOAs() *toa.Batch {
	return toa.NewBatch([]toa.TOA{
		{Observatory: "gbt", TDB: 1},
		{Observatory: "gbt", TDB: 2},
		{Observatory: "ao", TDB: 3},
	})
}

func TestModelSumsComponents(t *testing.T) {
	a := newConstDelay("A", "OFFSET_A", 1.5)
	b := newConstDelay("B", "OFFSET_B", -0.25)

	m, err := NewModel(testLogger(), a, b)
	require.NoError(t, err)

	got, err := m.Delay(threeTOAs())
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, 1.25, 1.25}, got)
	assert.Equal(t, 1, a.calls, "each delay function runs exactly once")
	assert.Equal(t, 1, b.calls)
	assert.Len(t, m.DelayFuncs(), 2)
}

func TestModelEmptyBatch(t *testing.T) {
	m, err := NewModel(testLogger(), newConstDelay("A", "OFFSET_A", 1))
	require.NoError(t, err)

	got, err := m.Delay(toa.NewBatch(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestModelRejectsDuplicateParam(t *testing.T) {
	m, err := NewModel(testLogger(), newConstDelay("A", "OFFSET", 1))
	require.NoError(t, err)

	err = m.Add(newConstDelay("B", "OFFSET", 2))
	require.ErrorIs(t, err, ErrDuplicateParam)
	assert.Contains(t, err.Error(), "OFFSET declared by A and B")

	// The rejected component left no trace.
	assert.Len(t, m.Components(), 1)
	assert.Len(t, m.Params(), 1)
	assert.Len(t, m.DelayFuncs(), 1)
}

func TestModelRejectsDuplicateParamWithinComponent(t *testing.T) {
	c := newConstDelay("A", "OFFSET", 1)
	c.AddParam(param.NewBool("OFFSET", true, "again"))

	_, err := NewModel(testLogger(), c)
	assert.ErrorIs(t, err, ErrDuplicateParam)
}

func TestModelRejectsDuplicateComponent(t *testing.T) {
	_, err := NewModel(testLogger(), newConstDelay("A", "X", 1), newConstDelay("A", "Y", 1))
	assert.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestModelParams(t *testing.T) {
	m, err := NewModel(testLogger(), newConstDelay("A", "OFFSET_A", 1), newConstDelay("B", "OFFSET_B", 2))
	require.NoError(t, err)

	names := []string{}
	for _, p := range m.Params() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"OFFSET_A", "OFFSET_B"}, names)

	require.NoError(t, m.SetParam("OFFSET_B", "4.5"))
	p, err := m.Param("OFFSET_B")
	require.NoError(t, err)
	assert.Equal(t, "4.5", p.Text())

	_, err = m.Param("F0")
	assert.ErrorIs(t, err, ErrUnknownParam)
	assert.ErrorIs(t, m.SetParam("F0", "1"), ErrUnknownParam)
	assert.ErrorIs(t, m.SetParam("OFFSET_A", "one"), param.ErrParse)
}

func TestModelSetParams(t *testing.T) {
	a := newConstDelay("A", "OFFSET_A", 1)
	m, err := NewModel(testLogger(), a)
	require.NoError(t, err)

	err = m.SetParams(map[string]string{"OFFSET_A": "3", "NOPE": "1"})
	require.ErrorIs(t, err, ErrUnknownParam)
	assert.Equal(t, 1.0, a.offset.Value(), "unknown names are rejected before any assignment")

	require.NoError(t, m.SetParams(map[string]string{"OFFSET_A": "3"}))
	assert.Equal(t, 3.0, a.offset.Value())
}

func TestModelSetupRequiresDirectionProvider(t *testing.T) {
	n := &needsDirection{Base: NewBase("Needs")}

	_, err := NewModel(testLogger(), n)
	require.ErrorIs(t, err, ErrMissingProvider)

	m, err := NewModel(testLogger(), &fixedDirection{Base: NewBase("Astrometry")}, n)
	require.NoError(t, err)

	// Setup is idempotent.
	require.NoError(t, m.Setup())
	require.NoError(t, m.Setup())
	assert.Equal(t, 4, n.setups) // one failed model + three on this one

	dp, err := m.DirectionProvider()
	require.NoError(t, err)
	dirs, err := dp.SSBToPSBXYZ([]float64{1, 2})
	require.NoError(t, err)
	assert.Len(t, dirs, 2)
}

type failingDelay struct {
	Base
}

func TestModelPropagatesDelayErrors(t *testing.T) {
	f := &failingDelay{Base: NewBase("Failing")}
	f.AddDelay(func(b *toa.Batch) ([]float64, error) {
		return nil, errors.Join(ErrMissingData, errors.New("obs_sun_pos"))
	})

	m, err := NewModel(testLogger(), newConstDelay("A", "OFFSET_A", 1), f)
	require.NoError(t, err)

	got, err := m.Delay(threeTOAs())
	require.ErrorIs(t, err, ErrMissingData)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "Failing delay")
}

func TestModelRejectsMisalignedDelay(t *testing.T) {
	f := &failingDelay{Base: NewBase("Short")}
	f.AddDelay(func(b *toa.Batch) ([]float64, error) { return []float64{0}, nil })

	m, err := NewModel(testLogger(), f)
	require.NoError(t, err)

	_, err = m.Delay(threeTOAs())
	assert.ErrorContains(t, err, "returned 1 values for 3 TOAs")
}

func TestModelComponentLookup(t *testing.T) {
	a := newConstDelay("A", "OFFSET_A", 1)
	m, err := NewModel(testLogger(), a)
	require.NoError(t, err)

	c, ok := m.Component("A")
	require.True(t, ok)
	assert.Same(t, a, c)

	_, ok = m.Component("B")
	assert.False(t, ok)
}
