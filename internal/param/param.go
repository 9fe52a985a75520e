// Package param defines timing-model parameters: named, typed values with
// units and a text form used by parameter files and the HTTP API.
package param

import (
	"errors"
	"fmt"
)

// ErrParse is returned when parameter text cannot be converted to a value.
var ErrParse = errors.New("malformed parameter value")

// Parameter is the type-erased view of a parameter used for listing,
// serialization and loading by name.
type Parameter interface {
	Name() string
	Units() string
	Description() string
	Fittable() bool
	// Text formats the current value.
	Text() string
	// SetText parses s and replaces the current value. On error the value
	// is left unchanged.
	SetText(s string) error
	// Checkpoint captures the current value; calling the returned function
	// puts that exact value back.
	Checkpoint() (restore func())
}

// Param is a parameter holding a value of type T. Name and units are fixed
// at construction; only the value changes afterwards.
type Param[T any] struct {
	name        string
	units       string
	description string
	fittable    bool
	value       T
	parse       func(string) (T, error)
	format      func(T) string
}

// New creates a parameter. format must be a left inverse of parse:
// parse(format(v)) == v.
func New[T any](name, units string, value T, fittable bool, description string,
	parse func(string) (T, error), format func(T) string) *Param[T] {
	return &Param[T]{
		name:        name,
		units:       units,
		description: description,
		fittable:    fittable,
		value:       value,
		parse:       parse,
		format:      format,
	}
}

func (p *Param[T]) Name() string        { return p.name }
func (p *Param[T]) Units() string       { return p.units }
func (p *Param[T]) Description() string { return p.description }
func (p *Param[T]) Fittable() bool      { return p.fittable }

// Value returns the current value.
func (p *Param[T]) Value() T { return p.value }

// Set replaces the current value.
func (p *Param[T]) Set(v T) { p.value = v }

// Parse converts text to a value without modifying the parameter.
func (p *Param[T]) Parse(s string) (T, error) {
	v, err := p.parse(s)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %q: %w", p.name, s, err)
	}
	return v, nil
}

// Format converts a value to text.
func (p *Param[T]) Format(v T) string { return p.format(v) }

// Text formats the current value.
func (p *Param[T]) Text() string { return p.format(p.value) }

// SetText parses s and stores the result.
func (p *Param[T]) SetText(s string) error {
	v, err := p.Parse(s)
	if err != nil {
		return err
	}
	p.value = v
	return nil
}

// Checkpoint captures the current value without going through its text form.
func (p *Param[T]) Checkpoint() func() {
	v := p.value
	return func() { p.value = v }
}

func (p *Param[T]) String() string {
	if p.units == "" {
		return p.name + " " + p.Text()
	}
	return fmt.Sprintf("%s %s (%s)", p.name, p.Text(), p.units)
}
