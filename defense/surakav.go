package defense

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/defense-gen/defense-gen/machine"
)

// ReadBurstTrace reads a line-oriented reference trace of non-negative
// integers: packets per burst, with 0 marking a direction switch.
// Reading stops once cutoff non-zero bursts have been collected.
// Returns the raw values and the non-zero burst count.
func ReadBurstTrace(path string, cutoff int) ([]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	var values []int
	count := 0

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		if count >= cutoff {
			break
		}
		v, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			return nil, 0, fmt.Errorf("trace line %d: %w", line, err)
		}
		if v < 0 {
			return nil, 0, fmt.Errorf("trace line %d: negative burst %d", line, v)
		}
		values = append(values, v)
		if v != 0 {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read trace: %w", err)
	}
	return values, count, nil
}

// GenerateSurakav builds the Surakav client and relay machines from a
// reference trace. Each non-zero burst becomes a transmit state in the
// active sender's machine and a matching blocking receive state in the
// peer's, sharing the burst's cell count as their limit. A 0 value
// flips the active sender role (the client sends first) and is not
// itself materialized as a state.
func GenerateSurakav(tracePath string, p Params) (client, relay *machine.Machine, err error) {
	values, numBursts, err := ReadBurstTrace(tracePath, p.TraceBurstCutoff)
	if err != nil {
		return nil, nil, err
	}
	if numBursts == 0 {
		return nil, nil, fmt.Errorf("trace %s contains no bursts", tracePath)
	}

	numConcrete := numBursts + 2 // START, BLOCK, one state per burst; End = numConcrete

	clientStates := make([]machine.State, 0, numConcrete)
	relayStates := make([]machine.State, 0, numConcrete)

	clientStates = append(clientStates, surakavStartState(), blockState(2))
	relayStates = append(relayStates, surakavStartState(), blockState(2))

	// After START + BLOCK:
	//   client -->  SEND  --> (RECV) --> ... --> End
	//   relay  --> (RECV) -->  SEND  --> ... --> End
	// nextIdx lands on numConcrete (the virtual End) after the last burst.
	currIdx, nextIdx := 2, 3
	clientSending := true

	for _, v := range values {
		if v == 0 {
			clientSending = !clientSending
			continue
		}

		sendState, recvState := burstStatePair(float64(v), currIdx, nextIdx, p)
		if clientSending {
			clientStates = append(clientStates, sendState)
			relayStates = append(relayStates, recvState)
		} else {
			clientStates = append(clientStates, recvState)
			relayStates = append(relayStates, sendState)
		}

		currIdx++
		nextIdx++
	}

	client, err = machine.New(blockingBudgets(), clientStates)
	if err != nil {
		return nil, nil, fmt.Errorf("client machine: %w", err)
	}
	relay, err = machine.New(blockingBudgets(), relayStates)
	if err != nil {
		return nil, nil, fmt.Errorf("relay machine: %w", err)
	}
	return client, relay, nil
}

// burstStatePair builds the transmit and receive states for one burst
// of numCells cells. The sender emits cells on a short fixed timer;
// the receiver blocks until the peer's burst has arrived. Both advance
// on LimitReached with the same cell-count limit.
func burstStatePair(numCells float64, currIndex, nextIndex int, p Params) (sendState, recvState machine.State) {
	sendState = machine.NewState(machine.TransitionTable{
		machine.EventLimitReached: {nextIndex: 1.0},
		machine.EventPaddingSent:  {currIndex: 1.0},
	})
	sendState.Bypass = true
	sendState.Replace = true
	sendState.Timeout = machine.Uniform(5, 5)
	sendState.Action = machine.Uniform(p.CellSizeBytes, p.CellSizeBytes)
	sendState.Limit = machine.Uniform(numCells, numCells)

	recvState = machine.NewState(machine.TransitionTable{
		machine.EventLimitReached:   {nextIndex: 1.0},
		machine.EventNonPaddingRecv: {currIndex: 1.0},
		machine.EventPaddingRecv:    {currIndex: 1.0},
	})
	recvState.ActionIsBlock = true
	recvState.Bypass = true
	recvState.Replace = true
	recvState.Timeout = machine.Uniform(0, 0)
	recvState.Action = machine.Uniform(math.Inf(1), math.Inf(1))
	recvState.Limit = machine.Uniform(numCells, numCells)

	return sendState, recvState
}

// surakavStartState hands off to the BLOCK state on the first real
// packet in either direction.
func surakavStartState() machine.State {
	return machine.NewState(machine.TransitionTable{
		machine.EventNonPaddingSent: {1: 1.0},
		machine.EventNonPaddingRecv: {1: 1.0},
	})
}
