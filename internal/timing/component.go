// Package timing composes delay components into a timing model. Each
// component owns a set of parameters and contributes delay functions; the
// model merges the parameter namespaces and sums the delays.
package timing

import (
	"errors"

	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/toa"
	"github.com/star/pulsedelay/internal/transform"
)

// Configuration and data errors surfaced to the model's caller.
var (
	// ErrDuplicateParam: two components declare the same parameter name.
	ErrDuplicateParam = errors.New("duplicate parameter")
	// ErrDuplicateComponent: a component name is registered twice.
	ErrDuplicateComponent = errors.New("duplicate component")
	// ErrUnknownParam: no component declares the requested parameter.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrMissingProvider: a component needs a collaborator the model lacks.
	ErrMissingProvider = errors.New("missing model capability")
	// ErrMissingData: the batch lacks data a delay function needs.
	ErrMissingData = toa.ErrMissingData
)

// DelayFunc computes one delay term in seconds for every TOA in a batch.
// The result is index-aligned with the batch.
type DelayFunc func(b *toa.Batch) ([]float64, error)

// Component is a pluggable physical effect.
type Component interface {
	// Name identifies the component, e.g. "SolarSystemShapiro".
	Name() string
	// Params lists the component's parameters in declaration order.
	Params() []param.Parameter
	// DelayFuncs lists the delay terms the component contributes.
	DelayFuncs() []DelayFunc
	// Setup validates the component against the assembled model. It may be
	// called more than once.
	Setup(m *Model) error
}

// DirectionProvider yields the unit vector from the solar-system
// barycentre towards the pulsar at each TDB epoch (MJD).
type DirectionProvider interface {
	SSBToPSBXYZ(tdb []float64) ([]transform.Vec3, error)
}

// Base carries the bookkeeping shared by components. Embed it and register
// parameters and delay functions from the constructor.
type Base struct {
	name   string
	params []param.Parameter
	delays []DelayFunc
}

// NewBase returns a Base for a component called name.
func NewBase(name string) Base {
	return Base{name: name}
}

// AddParam declares a parameter.
func (b *Base) AddParam(p param.Parameter) {
	b.params = append(b.params, p)
}

// AddDelay registers a delay function.
func (b *Base) AddDelay(f DelayFunc) {
	b.delays = append(b.delays, f)
}

func (b *Base) Name() string              { return b.name }
func (b *Base) Params() []param.Parameter { return b.params }
func (b *Base) DelayFuncs() []DelayFunc   { return b.delays }

// Setup has nothing to validate for the base; embedding components call it
// from their own Setup.
func (b *Base) Setup(*Model) error { return nil }
