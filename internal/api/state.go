package api

import (
	"sync"

	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/observatory"
	"github.com/star/pulsedelay/internal/timing"
)

// State is the live timing model shared by the handlers and the config
// watcher. The model is not safe for concurrent mutation, so parameter
// updates take the write lock and delay evaluations the read lock.
type State struct {
	mu    sync.RWMutex
	model *timing.Model
	reg   *observatory.Registry
	eph   ephem.Ephemeris
}

// NewState returns an empty, not-ready state.
func NewState() *State {
	return &State{}
}

// Set replaces the model, registry and ephemeris together. eph may be nil.
func (s *State) Set(m *timing.Model, reg *observatory.Registry, eph ephem.Ephemeris) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
	s.reg = reg
	s.eph = eph
}

// Ready reports whether a model has been installed.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}
