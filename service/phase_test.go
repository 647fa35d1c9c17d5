package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/errors"
)

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "not_connected", PhaseNotConnected.String())
	assert.Equal(t, "disconnected_for_compute", PhaseDisconnectedForCompute.String())
	assert.Equal(t, "released", PhaseReleased.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestPhase_CanPublish(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected bool
	}{
		{PhaseNotConnected, false},
		{PhaseConnected, true},
		{PhaseDisconnectedForCompute, false},
		{PhaseReconnected, true},
		{PhaseReleased, false},
	}
	for _, test := range tests {
		t.Run(test.phase.String(), func(t *testing.T) {
			assert.Equal(t, test.expected, test.phase.CanPublish())
		})
	}
}

func TestPhaseMachine_ComputeCycle(t *testing.T) {
	var m phaseMachine
	assert.Equal(t, PhaseNotConnected, m.Current())

	for _, next := range []Phase{PhaseConnected, PhaseDisconnectedForCompute, PhaseReconnected, PhaseReleased} {
		require.NoError(t, m.Transition(next))
		assert.Equal(t, next, m.Current())
	}
}

func TestPhaseMachine_ReleaseFromAnyPhase(t *testing.T) {
	for _, start := range []Phase{PhaseNotConnected, PhaseConnected, PhaseDisconnectedForCompute, PhaseReconnected} {
		t.Run(start.String(), func(t *testing.T) {
			m := phaseMachine{current: start}
			require.NoError(t, m.Transition(PhaseReleased))
		})
	}
}

func TestPhaseMachine_IllegalTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
	}{
		{PhaseNotConnected, PhaseReconnected},
		{PhaseConnected, PhaseReconnected},
		{PhaseDisconnectedForCompute, PhaseConnected},
		{PhaseReconnected, PhaseDisconnectedForCompute},
		{PhaseReleased, PhaseConnected},
		{PhaseReleased, PhaseReleased},
	}
	for _, test := range tests {
		t.Run(test.from.String()+"->"+test.to.String(), func(t *testing.T) {
			m := phaseMachine{current: test.from}
			err := m.Transition(test.to)
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.Equal(t, test.from, m.Current())
		})
	}
}
