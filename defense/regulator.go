package defense

import (
	"fmt"
	"math"

	"github.com/defense-gen/defense-gen/fit"
	"github.com/defense-gen/defense-gen/machine"
)

// RegulaTorConfig parameterizes the RegulaTor generators: InitialRate
// is the surge rate R in packets per second, Decay the decay rate D,
// Threshold the surge threshold T, UploadRatio the upload ratio U and
// PacketsPerState the approximation granularity of the relay machine.
type RegulaTorConfig struct {
	InitialRate     float64
	Decay           float64
	Threshold       float64
	UploadRatio     float64
	PacketsPerState float64
}

func (c RegulaTorConfig) validate() error {
	if c.InitialRate <= 0 || math.IsNaN(c.InitialRate) || math.IsInf(c.InitialRate, 0) {
		return fmt.Errorf("initial rate must be a positive finite value, got %v", c.InitialRate)
	}
	// Decay at or above 1 never satisfies the rate-below-1 stopping
	// condition: the interval search would walk the curve forever.
	if c.Decay <= 0 || c.Decay >= 1 || math.IsNaN(c.Decay) {
		return fmt.Errorf("decay rate must lie in (0, 1), got %v", c.Decay)
	}
	if c.Threshold <= 0 || math.IsNaN(c.Threshold) {
		return fmt.Errorf("threshold must be positive, got %v", c.Threshold)
	}
	if c.UploadRatio <= 0 || math.IsNaN(c.UploadRatio) || math.IsInf(c.UploadRatio, 0) {
		return fmt.Errorf("upload ratio must be a positive finite value, got %v", c.UploadRatio)
	}
	if c.PacketsPerState <= 0 || math.IsNaN(c.PacketsPerState) || math.IsInf(c.PacketsPerState, 0) {
		return fmt.Errorf("packets per state must be a positive finite value, got %v", c.PacketsPerState)
	}
	return nil
}

// blockingBudgets suit machines that may block indefinitely: padding
// bytes and blocked time are both unlimited.
func blockingBudgets() machine.Budgets {
	return machine.Budgets{
		AllowedPaddingBytes:  math.MaxUint64,
		AllowedBlockedMicros: math.MaxUint64,
	}
}

// GenerateRegulaTorRelay builds the relay-side machine: START, BLOCK,
// a fixed bootstrap chain, then one SEND state per interval of the
// decay curve R·D^t holding PacketsPerState packets.
//
// SEND transition targets reference the final state count, so the
// curve is walked twice: a counting pass discovers how many SEND
// states exist, then the build pass materializes them.
func GenerateRegulaTorRelay(cfg RegulaTorConfig, p Params) (*machine.Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	numSend := countSendStates(cfg)

	sendBase := 2 + p.BootstrapStates // first SEND index, after START, BLOCK and the BOOT chain
	numConcrete := sendBase + numSend // End = numConcrete

	states := make([]machine.State, 0, numConcrete)
	states = append(states, relayStartState())
	states = append(states, blockState(2))

	for i := 0; i < p.BootstrapStates; i++ {
		states = append(states, relayBootState(2+i, 3+i, p))
	}

	t1 := 0.0
	for i := 0; i < numSend; i++ {
		width := fit.PacketIntervalWidth(t1, cfg.PacketsPerState, cfg.InitialRate, cfg.Decay)
		middle := t1 + width/2

		rate := fit.Rate(middle, cfg.InitialRate, cfg.Decay)
		currIdx := sendBase + i
		nextIdx := currIdx + 1

		// Terminal SEND: the curve has decayed below one packet per
		// second (or ran out entirely), so pin the rate and exit.
		if math.IsInf(width, 1) || rate < 1 {
			rate = 1
			nextIdx = numConcrete
		}

		states = append(states, relaySendState(currIdx, nextIdx, sendBase, cfg, rate, p))
		t1 += width
	}

	return machine.New(blockingBudgets(), states)
}

// countSendStates walks the decay curve once, stopping at the first
// interval whose midpoint rate drops below 1 packet/sec or whose
// width is unbounded. That terminal interval still becomes a state.
func countSendStates(cfg RegulaTorConfig) int {
	t1 := 0.0
	numSend := 0

	for keepGoing := true; keepGoing; {
		width := fit.PacketIntervalWidth(t1, cfg.PacketsPerState, cfg.InitialRate, cfg.Decay)
		middle := t1 + width/2

		if math.IsInf(width, 1) || fit.Rate(middle, cfg.InitialRate, cfg.Decay) < 1 {
			keepGoing = false
		}
		t1 += width
		numSend++
	}
	return numSend
}

// GenerateRegulaTorClient builds the client-side machine: a chain of
// COUNTER states tracking received packets, then a SEND state that
// immediately uploads one cell and loops back to the first counter.
//
// A non-integer upload ratio is realized by randomized rounding: every
// counter advances with probability 1 except the last, which advances
// with 1 - frac(ratio) and self-loops otherwise.
func GenerateRegulaTorClient(cfg RegulaTorConfig, p Params) (*machine.Machine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	numCounters := int(math.Floor(cfg.UploadRatio)) + 1
	probLastTrans := 1 - (cfg.UploadRatio - math.Floor(cfg.UploadRatio))

	// The last counter's next index is the SEND state at numCounters;
	// total concrete states = numCounters + 1.
	states := make([]machine.State, 0, numCounters+1)
	for i := 0; i < numCounters; i++ {
		probTrans := 1.0
		if i == numCounters-1 {
			probTrans = probLastTrans
		}
		states = append(states, clientCountState(i, i+1, probTrans))
	}
	states = append(states, clientSendState(p))

	return machine.New(blockingBudgets(), states)
}

// relaySendState emits cell-sized padding at a constant rate. Past the
// bootstrap region a non-padding send resets the machine to SEND_0
// with probability 2/(T·rate): the surge-reset rule.
func relaySendState(currIndex, nextIndex, sendBase int, cfg RegulaTorConfig, rate float64, p Params) machine.State {
	transitions := machine.TransitionTable{
		machine.EventPaddingSent:  {currIndex: 1.0},
		machine.EventLimitReached: {nextIndex: 1.0},
	}
	if currIndex > sendBase {
		// Small thresholds push 2/(T·rate) past certainty; cap at 1.
		transitions[machine.EventNonPaddingSent] = map[int]float64{
			sendBase: math.Min(1, 2/(cfg.Threshold*rate)),
		}
	}

	s := machine.NewState(transitions)
	s.Bypass = true
	s.Replace = true
	s.Timeout = machine.Uniform(1e6/rate, 1e6/rate)
	s.Action = machine.Uniform(p.CellSizeBytes, p.CellSizeBytes)
	s.Limit = machine.Uniform(cfg.PacketsPerState, cfg.PacketsPerState)
	return s
}

// relayBootState models connection bootstrap before steady-state
// shaping: a constant long timeout, advancing one step per real send.
func relayBootState(currIndex, nextIndex int, p Params) machine.State {
	s := machine.NewState(machine.TransitionTable{
		machine.EventPaddingSent:    {currIndex: 1.0},
		machine.EventNonPaddingSent: {nextIndex: 1.0},
	})
	s.Bypass = true
	s.Replace = true
	s.Timeout = machine.Uniform(p.BootstrapTimeoutMicros, p.BootstrapTimeoutMicros)
	s.Action = machine.Uniform(p.CellSizeBytes, p.CellSizeBytes)
	return s
}

// relayStartState hands off to the BLOCK state on the first real send.
func relayStartState() machine.State {
	return machine.NewState(machine.TransitionTable{
		machine.EventNonPaddingSent: {1: 1.0},
	})
}

// blockState blocks outgoing traffic indefinitely, advancing once
// blocking has begun.
func blockState(nextIndex int) machine.State {
	s := machine.NewState(machine.TransitionTable{
		machine.EventBlockingBegin: {nextIndex: 1.0},
	})
	s.ActionIsBlock = true
	s.Bypass = true
	s.Replace = true
	s.Timeout = machine.Uniform(0, 0)
	s.Action = machine.Uniform(math.Inf(1), math.Inf(1))
	return s
}

// clientCountState counts one received packet, advancing to the next
// counter with probability probTrans and self-looping otherwise.
func clientCountState(currIndex, nextIndex int, probTrans float64) machine.State {
	paddingRecv := map[int]float64{nextIndex: probTrans}
	nonPaddingRecv := map[int]float64{nextIndex: probTrans}
	if probTrans < 1 {
		paddingRecv[currIndex] = 1 - probTrans
		nonPaddingRecv[currIndex] = 1 - probTrans
	}

	transitions := machine.TransitionTable{
		machine.EventPaddingRecv:    paddingRecv,
		machine.EventNonPaddingRecv: nonPaddingRecv,
	}
	if probTrans < 1 {
		transitions[machine.EventLimitReached] = map[int]float64{nextIndex: 1.0}
	}

	s := machine.NewState(transitions)
	s.ActionIsBlock = true
	s.Bypass = true
	s.Replace = true
	s.Timeout = machine.Uniform(0, 0)
	s.Action = machine.Uniform(math.Inf(1), math.Inf(1))
	s.Limit = machine.Uniform(2, 2)
	return s
}

// clientSendState uploads one cell immediately (replace action,
// outside padding accounting) and returns to COUNTER_0.
func clientSendState(p Params) machine.State {
	s := machine.NewState(machine.TransitionTable{
		machine.EventPaddingSent: {0: 1.0},
	})
	s.Bypass = true
	s.Replace = true
	s.Timeout = machine.Uniform(0, 0)
	s.Action = machine.Uniform(p.CellSizeBytes, p.CellSizeBytes)
	return s
}
