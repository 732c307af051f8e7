package machine

import (
	"fmt"
	"math"
)

// probSlack absorbs floating-point error when checking that per-event
// transition probabilities sum to at most 1.
const probSlack = 1e-9

// TransitionTable maps an event to a probability distribution over
// target state indices. An event absent from the table cannot fire
// from the owning state. Only key/value pairs matter; insertion order
// never does.
type TransitionTable map[Event]map[int]float64

// State is one node of a machine. It is addressed purely by its
// position in the owning machine's state list; transition targets are
// positional indices, with the owning machine's length serving as the
// virtual End index.
type State struct {
	Transitions TransitionTable

	// Timeout delays the action after entering the state, Action
	// sizes the padding (or blocks, see ActionIsBlock), and Limit
	// draws the repeat count before LimitReached fires.
	Timeout Dist
	Action  Dist
	Limit   Dist

	// Bypass exempts the action from padding-budget accounting,
	// Replace makes the action supersede rather than queue, and
	// ActionIsBlock turns the action into blocking outgoing traffic
	// instead of emitting padding.
	Bypass        bool
	Replace       bool
	ActionIsBlock bool
}

// NewState returns a State with the given transitions and all-zero
// uniform distributions.
func NewState(transitions TransitionTable) State {
	return State{
		Transitions: transitions,
		Timeout:     Uniform(0, 0),
		Action:      Uniform(0, 0),
		Limit:       Uniform(0, 0),
	}
}

// validate checks the state against the owning machine's concrete
// state count. Target indices may equal numStates: that is the
// virtual End.
func (s *State) validate(numStates int) error {
	for event, targets := range s.Transitions {
		if !event.Valid() {
			return fmt.Errorf("transition keyed by unknown event %d", int(event))
		}
		if len(targets) == 0 {
			return fmt.Errorf("event %s has an empty target table", event)
		}
		total := 0.0
		for idx, prob := range targets {
			if idx < 0 || idx > numStates {
				return fmt.Errorf("event %s targets index %d outside [0, %d]", event, idx, numStates)
			}
			if prob < 0 || prob > 1 || math.IsNaN(prob) {
				return fmt.Errorf("event %s has probability %v for index %d", event, prob, idx)
			}
			total += prob
		}
		if total > 1+probSlack {
			return fmt.Errorf("event %s probabilities sum to %v", event, total)
		}
	}
	if err := s.Timeout.Validate(); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if err := s.Action.Validate(); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	if err := s.Limit.Validate(); err != nil {
		return fmt.Errorf("limit: %w", err)
	}
	return nil
}
