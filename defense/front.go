package defense

import (
	"fmt"
	"math"

	"github.com/defense-gen/defense-gen/fit"
	"github.com/defense-gen/defense-gen/machine"
)

// FRONTConfig parameterizes the FRONT generators. Window is the
// Rayleigh scale W_max in microseconds, Budget the padding budget N in
// cells, NumStates the number of PADDING states approximating the
// curve.
type FRONTConfig struct {
	Window    float64
	Budget    uint32
	NumStates int
	// Pipelines is the parallel-pipeline count of the pipelined
	// variant; GenerateFRONT ignores it.
	Pipelines int
}

func (c FRONTConfig) validate() error {
	if c.Window <= 0 || math.IsNaN(c.Window) || math.IsInf(c.Window, 0) {
		return fmt.Errorf("padding window must be a positive finite value, got %v", c.Window)
	}
	if c.Budget == 0 {
		return fmt.Errorf("padding budget must be positive")
	}
	if c.NumStates < 1 {
		return fmt.Errorf("need at least one padding state, got %d", c.NumStates)
	}
	return nil
}

func (c FRONTConfig) validatePipelined() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Pipelines < 1 {
		return fmt.Errorf("need at least one pipeline, got %d", c.Pipelines)
	}
	return nil
}

// frontBudgets: padding is unlimited (the per-state limits already
// embody the budget) and blocking is never used.
func frontBudgets() machine.Budgets {
	return machine.Budgets{
		AllowedPaddingBytes: math.MaxUint64,
	}
}

// GenerateFRONT builds a FRONT machine: a START state followed by
// NumStates PADDING states, each covering an equal area slice of the
// Rayleigh CDF over [0, maxT].
func GenerateFRONT(cfg FRONTConfig, p Params) (*machine.Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	area := 1.0 / float64(cfg.NumStates) // area under the Rayleigh CDF per state
	maxT := fit.RayleighMaxT(cfg.Window)
	numConcrete := cfg.NumStates + 1 // START plus the padding states; End = numConcrete

	states := make([]machine.State, 0, numConcrete)
	states = append(states, frontStartState())

	t1 := 0.0               // start time of the next padding state
	totalPaddingFrac := 0.0 // area covered so far

	for i := 1; i < cfg.NumStates; i++ {
		width := fit.IntervalWidth(t1, maxT, area, cfg.Window)
		middle := t1 + width/2

		paddingCount := area * float64(cfg.Budget)
		timeout := width / paddingCount
		stdev := frontTimeoutStdev(cfg.Window, paddingCount, middle)

		states = append(states, frontPaddingState(i, i+1, paddingCount, timeout, stdev, p))
		t1 += width
		totalPaddingFrac += area
	}

	// Last state runs to maxT and absorbs the remaining budget share.
	width := maxT - t1
	middle := t1 + width/2

	paddingCount := (1 - totalPaddingFrac) * float64(cfg.Budget)
	timeout := width / paddingCount
	stdev := frontTimeoutStdev(cfg.Window, paddingCount, middle)

	states = append(states, frontPaddingState(cfg.NumStates, numConcrete, paddingCount, timeout, stdev, p))

	return machine.New(frontBudgets(), states)
}

// GeneratePipelinedFRONT builds a FRONT machine whose START state fans
// out uniformly across Pipelines parallel copies of the padding-state
// chain. Pipeline k carries budget share (k+1)·(area·budget/pipelines),
// so the pipelines jointly cover a spread of budgets around FRONT's.
func GeneratePipelinedFRONT(cfg FRONTConfig, p Params) (*machine.Machine, error) {
	if err := cfg.validatePipelined(); err != nil {
		return nil, err
	}

	area := 1.0 / float64(cfg.NumStates)
	maxT := fit.RayleighMaxT(cfg.Window)
	numConcrete := cfg.Pipelines*cfg.NumStates + 1 // End = numConcrete

	states := make([]machine.State, 0, numConcrete)
	states = append(states, pipelinedStartState(cfg.NumStates, cfg.Pipelines, numConcrete))

	step := area * float64(cfg.Budget) / float64(cfg.Pipelines)
	currCount := step // budget share of the current pipeline
	idx := 1

	for pipe := 0; pipe < cfg.Pipelines; pipe++ {
		t1 := 0.0

		for i := 1; i < cfg.NumStates; i++ {
			width := fit.IntervalWidth(t1, maxT, area, cfg.Window)
			middle := t1 + width/2

			timeout := width / currCount
			stdev := frontTimeoutStdev(cfg.Window, currCount, middle)

			states = append(states, frontPaddingState(idx, idx+1, currCount, timeout, stdev, p))
			idx++
			t1 += width
		}

		width := maxT - t1
		middle := t1 + width/2

		timeout := width / currCount
		stdev := frontTimeoutStdev(cfg.Window, currCount, middle)

		states = append(states, frontPaddingState(idx, numConcrete, currCount, timeout, stdev, p))
		idx++
		currCount += step
	}

	return machine.New(frontBudgets(), states)
}

// frontTimeoutStdev is the per-state timeout spread. Empirical
// approximation from the FRONT paper; reproduced verbatim, not a
// derived identity.
func frontTimeoutStdev(window, paddingCount, middle float64) float64 {
	return window * window / (paddingCount * middle * math.Sqrt(math.Pi))
}

// frontPaddingState emits cell-sized padding on a normally-distributed
// timer, self-loops on PaddingSent, and advances once its drawn limit
// is exhausted.
func frontPaddingState(currIndex, nextIndex int, paddingCount, timeout, stdev float64, p Params) machine.State {
	s := machine.NewState(machine.TransitionTable{
		machine.EventPaddingSent:  {currIndex: 1.0},
		machine.EventLimitReached: {nextIndex: 1.0},
	})
	s.Timeout = machine.Normal(timeout, stdev, timeout*2)
	s.Action = machine.Uniform(p.CellSizeBytes, p.CellSizeBytes)
	s.Limit = machine.Uniform(1, paddingCount)
	return s
}

// frontStartState waits for the first non-padding packet in either
// direction, then enters the first padding state.
func frontStartState() machine.State {
	return machine.NewState(machine.TransitionTable{
		machine.EventNonPaddingSent: {1: 1.0},
		machine.EventNonPaddingRecv: {1: 1.0},
	})
}

// pipelinedStartState fans out uniformly across the pipeline heads at
// indices 1, 1+numStates, 1+2·numStates, ...
func pipelinedStartState(numStates, pipelines, numConcrete int) machine.State {
	sent := make(map[int]float64, pipelines)
	recv := make(map[int]float64, pipelines)
	for idx := 1; idx < numConcrete; idx += numStates {
		sent[idx] = 1.0 / float64(pipelines)
		recv[idx] = 1.0 / float64(pipelines)
	}
	return machine.NewState(machine.TransitionTable{
		machine.EventNonPaddingSent: sent,
		machine.EventNonPaddingRecv: recv,
	})
}
