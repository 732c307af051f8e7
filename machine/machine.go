// Package machine holds the data model for probabilistic padding
// machines: the event set, parametric distributions, state records and
// the assembled machine handed to the wire serializer. Machines are
// constructed once per invocation, validated on assembly, and never
// mutated afterwards.
package machine

import (
	"fmt"
	"math"
)

// Budgets are the machine-level enforcement limits the engine applies
// while running the machine, plus the flag deciding whether small
// control packets count toward accounting.
type Budgets struct {
	AllowedPaddingBytes  uint64
	MaxPaddingFrac       float64
	AllowedBlockedMicros uint64
	MaxBlockingFrac      float64
	IncludeSmallPackets  bool
}

// Machine is an ordered, index-addressed sequence of states wrapped
// with enforcement budgets. Order is load-bearing: indices are
// positional references, with index 0 the START state and the virtual
// End at index Len(). Immutable once built.
type Machine struct {
	budgets Budgets
	states  []State
}

// New assembles and validates a machine. The state slice is copied;
// the caller may not rely on later edits being visible.
func New(budgets Budgets, states []State) (*Machine, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("machine needs at least a START state")
	}
	if budgets.MaxPaddingFrac < 0 || budgets.MaxPaddingFrac > 1 || math.IsNaN(budgets.MaxPaddingFrac) {
		return nil, fmt.Errorf("max padding fraction %v outside [0, 1]", budgets.MaxPaddingFrac)
	}
	if budgets.MaxBlockingFrac < 0 || budgets.MaxBlockingFrac > 1 || math.IsNaN(budgets.MaxBlockingFrac) {
		return nil, fmt.Errorf("max blocking fraction %v outside [0, 1]", budgets.MaxBlockingFrac)
	}
	for i := range states {
		if err := states[i].validate(len(states)); err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
	}
	owned := make([]State, len(states))
	copy(owned, states)
	return &Machine{budgets: budgets, states: owned}, nil
}

// Budgets returns the machine-level enforcement limits.
func (m *Machine) Budgets() Budgets {
	return m.budgets
}

// Len returns the number of concrete states.
func (m *Machine) Len() int {
	return len(m.states)
}

// EndIndex returns the virtual terminal index: the concrete state
// count. It is never materialized as a State.
func (m *Machine) EndIndex() int {
	return len(m.states)
}

// At returns the state at index i. The returned value shares its
// transition maps with the machine; callers must not mutate them.
func (m *Machine) At(i int) State {
	return m.states[i]
}
