package service

import (
	"fmt"
	"sync"

	"github.com/waltti/apcprofiler/errors"
)

// Phase is the transport phase of one invocation
type Phase int

// Phases in invocation order
const (
	PhaseNotConnected Phase = iota
	PhaseConnected
	PhaseDisconnectedForCompute
	PhaseReconnected
	PhaseReleased
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseNotConnected:
		return "not_connected"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnectedForCompute:
		return "disconnected_for_compute"
	case PhaseReconnected:
		return "reconnected"
	case PhaseReleased:
		return "released"
	default:
		return "unknown"
	}
}

// CanPublish reports whether the producer may be used in this phase
func (p Phase) CanPublish() bool {
	return p == PhaseConnected || p == PhaseReconnected
}

var phaseTransitions = map[Phase][]Phase{
	PhaseNotConnected:           {PhaseConnected, PhaseReleased},
	PhaseConnected:              {PhaseDisconnectedForCompute, PhaseReleased},
	PhaseDisconnectedForCompute: {PhaseReconnected, PhaseReleased},
	PhaseReconnected:            {PhaseReleased},
	PhaseReleased:               {},
}

// phaseMachine guards phase transitions
type phaseMachine struct {
	mu      sync.Mutex
	current Phase
}

func (m *phaseMachine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *phaseMachine) Transition(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range phaseTransitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}
	return errors.WrapFatal(fmt.Errorf("illegal phase transition %s -> %s", m.current, to),
		"Runner", "Transition", "change phase")
}
