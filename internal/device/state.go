// Package device holds the in-memory state of the emulated oven controller.
package device

import (
	"net/netip"
	"sync"

	"reflow_emulator/internal/models"
)

// DefaultTemperatureC is the simulated sensor reading reported when none is configured.
const DefaultTemperatureC uint16 = 21

// State is the device state. The transport loop is the only writer; the mutex
// lets monitors read a consistent snapshot concurrently.
type State struct {
	mu sync.RWMutex

	heaterOn    bool
	temperature uint16
	reserved    bool
	owner       netip.AddrPort

	reservePolicy ReservePolicy
	releasePolicy ReleasePolicy
}

// Option customizes a State at construction.
type Option func(*State)

// WithReservePolicy overrides the default ReserveReject policy.
func WithReservePolicy(p ReservePolicy) Option {
	return func(s *State) { s.reservePolicy = p }
}

// WithReleasePolicy overrides the default ReleaseOwner policy.
func WithReleasePolicy(p ReleasePolicy) Option {
	return func(s *State) { s.releasePolicy = p }
}

// New returns an unreserved device with the heater off.
func New(temperature uint16, opts ...Option) *State {
	s := &State{
		temperature:   temperature,
		reservePolicy: ReserveReject,
		releasePolicy: ReleaseOwner,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetHeater switches the heater. It never fails.
func (s *State) SetHeater(on bool) {
	s.mu.Lock()
	s.heaterOn = on
	s.mu.Unlock()
}

// Reserve binds the device to id. Re-reserving by the current owner is a no-op.
func (s *State) Reserve(id netip.AddrPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserved && s.owner != id && s.reservePolicy != ReserveTransfer {
		return ErrAlreadyReserved
	}
	s.reserved = true
	s.owner = id
	return nil
}

// Release clears the reservation if id is allowed to do so by the release policy.
// The owner is left untouched on error.
func (s *State) Release(id netip.AddrPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.releasePolicy != ReleaseAny && (!s.reserved || s.owner != id) {
		return ErrNotOwner
	}
	s.reserved = false
	s.owner = netip.AddrPort{}
	return nil
}

// Owner reports the reservation holder, if any.
func (s *State) Owner() (netip.AddrPort, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, s.reserved
}

// Snapshot returns all fields read under a single lock.
func (s *State) Snapshot() models.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.DeviceState{
		HeaterOn:     s.heaterOn,
		TemperatureC: s.temperature,
		Reserved:     s.reserved,
	}
	if s.reserved {
		st.Owner = s.owner.String()
	}
	return st
}
