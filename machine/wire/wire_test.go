package wire

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defense-gen/defense-gen/machine"
)

// fanoutMachine exercises multi-event, multi-target transition tables,
// where nondeterministic map iteration would show up first.
func fanoutMachine(t *testing.T) *machine.Machine {
	t.Helper()

	start := machine.NewState(machine.TransitionTable{
		machine.EventNonPaddingSent: {1: 0.25, 2: 0.25, 3: 0.5},
		machine.EventNonPaddingRecv: {1: 0.5, 3: 0.5},
	})
	pad := machine.NewState(machine.TransitionTable{
		machine.EventPaddingSent:  {1: 1.0},
		machine.EventLimitReached: {4: 1.0},
	})
	pad.Timeout = machine.Normal(120, 30, 240)
	pad.Action = machine.Uniform(512, 512)
	pad.Limit = machine.Uniform(1, 64)

	block := machine.NewState(machine.TransitionTable{
		machine.EventBlockingBegin: {3: 1.0},
	})
	block.ActionIsBlock = true
	block.Bypass = true
	block.Replace = true
	block.Action = machine.Uniform(math.Inf(1), math.Inf(1))

	tail := machine.NewState(machine.TransitionTable{
		machine.EventLimitReached: {4: 1.0},
	})

	m, err := machine.New(machine.Budgets{
		AllowedPaddingBytes:  math.MaxUint64,
		AllowedBlockedMicros: math.MaxUint64,
	}, []machine.State{start, pad, block, tail})
	require.NoError(t, err)
	return m
}

func TestV1_Deterministic(t *testing.T) {
	m := fanoutMachine(t)

	first, err := V1{}.Serialize(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := V1{}.Serialize(m)
		require.NoError(t, err)
		assert.Equal(t, first, again, "iteration %d", i)
	}
}

func TestV1_OutputIsBase64(t *testing.T) {
	s, err := V1{}.Serialize(fanoutMachine(t))
	require.NoError(t, err)
	_, err = base64.StdEncoding.DecodeString(s)
	assert.NoError(t, err)
	assert.NotEmpty(t, s)
}

func TestV1_DistinctMachinesDiffer(t *testing.T) {
	a, err := V1{}.Serialize(fanoutMachine(t))
	require.NoError(t, err)

	other, err := machine.New(machine.Budgets{}, []machine.State{
		machine.NewState(machine.TransitionTable{
			machine.EventNonPaddingSent: {1: 1.0},
		}),
	})
	require.NoError(t, err)
	b, err := V1{}.Serialize(other)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestV1_NilMachine(t *testing.T) {
	_, err := V1{}.Serialize(nil)
	assert.Error(t, err)
}
