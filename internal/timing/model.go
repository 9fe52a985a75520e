package timing

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/star/pulsedelay/internal/metrics"
	"github.com/star/pulsedelay/internal/param"
	"github.com/star/pulsedelay/internal/toa"
)

type namedDelay struct {
	component string
	fn        DelayFunc
}

// Model is an ordered collection of components with a flat parameter
// namespace. A Model is not safe for concurrent mutation; callers serialize
// SetParam against Delay.
type Model struct {
	components []Component
	byName     map[string]Component
	params     map[string]param.Parameter
	order      []param.Parameter
	delays     []namedDelay
	logger     *slog.Logger
	ready      bool
}

// NewModel builds a model from comps, in order, and runs Setup.
func NewModel(logger *slog.Logger, comps ...Component) (*Model, error) {
	m := &Model{
		byName: make(map[string]Component),
		params: make(map[string]param.Parameter),
		logger: logger.With("component", "timing"),
	}
	for _, c := range comps {
		if err := m.Add(c); err != nil {
			return nil, err
		}
	}
	if err := m.Setup(); err != nil {
		return nil, err
	}
	return m, nil
}

// Add registers a component. Parameter names must be unique across the
// whole model; a collision is rejected and leaves the model unchanged.
func (m *Model) Add(c Component) error {
	if _, ok := m.byName[c.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name())
	}

	seen := make(map[string]bool)
	for _, p := range c.Params() {
		if owner, ok := m.owner(p.Name()); ok {
			return fmt.Errorf("%w: %s declared by %s and %s", ErrDuplicateParam, p.Name(), owner, c.Name())
		}
		if seen[p.Name()] {
			return fmt.Errorf("%w: %s declared twice by %s", ErrDuplicateParam, p.Name(), c.Name())
		}
		seen[p.Name()] = true
	}

	m.components = append(m.components, c)
	m.byName[c.Name()] = c
	for _, p := range c.Params() {
		m.params[p.Name()] = p
		m.order = append(m.order, p)
	}
	for _, f := range c.DelayFuncs() {
		m.delays = append(m.delays, namedDelay{component: c.Name(), fn: f})
	}
	m.ready = false

	m.logger.Debug("component added", "name", c.Name(), "params", len(c.Params()), "delays", len(c.DelayFuncs()))
	return nil
}

func (m *Model) owner(name string) (string, bool) {
	if _, ok := m.params[name]; !ok {
		return "", false
	}
	for _, c := range m.components {
		for _, p := range c.Params() {
			if p.Name() == name {
				return c.Name(), true
			}
		}
	}
	return "", true
}

// Setup runs every component's Setup in registration order.
func (m *Model) Setup() error {
	for _, c := range m.components {
		if err := c.Setup(m); err != nil {
			return fmt.Errorf("setup %s: %w", c.Name(), err)
		}
	}
	m.ready = true
	return nil
}

// Components returns the registered components in order.
func (m *Model) Components() []Component { return m.components }

// Component returns the component registered under name.
func (m *Model) Component(name string) (Component, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// Params returns every parameter in registration order.
func (m *Model) Params() []param.Parameter { return m.order }

// Param looks up a parameter by name.
func (m *Model) Param(name string) (param.Parameter, error) {
	p, ok := m.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return p, nil
}

// SetParam parses text into the named parameter.
func (m *Model) SetParam(name, text string) error {
	p, err := m.Param(name)
	if err != nil {
		return err
	}
	return p.SetText(text)
}

// SetParams applies name → text assignments in model order. Unknown names
// are rejected before anything is applied; a parse failure stops at that
// parameter and leaves earlier assignments in place.
func (m *Model) SetParams(values map[string]string) error {
	for name := range values {
		if _, ok := m.params[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParam, name)
		}
	}
	for _, p := range m.order {
		text, ok := values[p.Name()]
		if !ok {
			continue
		}
		if err := p.SetText(text); err != nil {
			return err
		}
	}
	return nil
}

// DelayFuncs returns every component's delay functions in registration order.
func (m *Model) DelayFuncs() []DelayFunc {
	out := make([]DelayFunc, len(m.delays))
	for i, d := range m.delays {
		out[i] = d.fn
	}
	return out
}

// DirectionProvider returns the first component that can supply pulsar
// direction vectors.
func (m *Model) DirectionProvider() (DirectionProvider, error) {
	for _, c := range m.components {
		if dp, ok := c.(DirectionProvider); ok {
			return dp, nil
		}
	}
	return nil, fmt.Errorf("%w: no component provides pulsar direction (ssb_to_psb_xyz)", ErrMissingProvider)
}

// Delay evaluates every delay function exactly once and returns the summed
// delay in seconds for each TOA. Any component error aborts the whole
// computation.
func (m *Model) Delay(b *toa.Batch) ([]float64, error) {
	if !m.ready {
		if err := m.Setup(); err != nil {
			return nil, err
		}
	}

	total := make([]float64, b.Len())
	for _, d := range m.delays {
		start := time.Now()
		term, err := d.fn(b)
		metrics.RecordDelay(d.component, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("%s delay: %w", d.component, err)
		}
		if len(term) != len(total) {
			return nil, fmt.Errorf("%s delay: returned %d values for %d TOAs", d.component, len(term), len(total))
		}
		for i, v := range term {
			total[i] += v
		}
	}

	m.logger.Debug("delay computed", "toas", b.Len(), "groups", len(b.Groups()), "terms", len(m.delays))
	return total, nil
}
