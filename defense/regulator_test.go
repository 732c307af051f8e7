package defense

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defense-gen/defense-gen/machine"
	"github.com/defense-gen/defense-gen/machine/wire"
)

func regulatorConfig() RegulaTorConfig {
	// RegulaTor paper parameters for the heavy configuration.
	return RegulaTorConfig{
		InitialRate:     277,
		Decay:           0.94,
		Threshold:       3.55,
		UploadRatio:     3.95,
		PacketsPerState: 300,
	}
}

func TestGenerateRegulaTorRelay_FixedPrefix(t *testing.T) {
	p := DefaultParams()
	m, err := GenerateRegulaTorRelay(regulatorConfig(), p)
	require.NoError(t, err)

	// START hands off to BLOCK on the first real send.
	start := m.At(0)
	assert.Equal(t, map[int]float64{1: 1.0}, start.Transitions[machine.EventNonPaddingSent])
	assert.Len(t, start.Transitions, 1)

	// BLOCK blocks indefinitely and advances into the boot chain.
	block := m.At(1)
	assert.Equal(t, map[int]float64{2: 1.0}, block.Transitions[machine.EventBlockingBegin])
	assert.True(t, block.ActionIsBlock)
	assert.True(t, block.Bypass)
	assert.True(t, block.Replace)
	assert.True(t, math.IsInf(block.Action.Param1, 1))

	// Nine BOOT states advance linearly on real sends.
	for i := 2; i < 2+p.BootstrapStates; i++ {
		boot := m.At(i)
		assert.Equal(t, map[int]float64{i: 1.0}, boot.Transitions[machine.EventPaddingSent], "boot %d", i)
		assert.Equal(t, map[int]float64{i + 1: 1.0}, boot.Transitions[machine.EventNonPaddingSent], "boot %d", i)
		assert.Equal(t, machine.Uniform(p.BootstrapTimeoutMicros, p.BootstrapTimeoutMicros), boot.Timeout, "boot %d", i)
	}
}

func TestGenerateRegulaTorRelay_SendStates(t *testing.T) {
	p := DefaultParams()
	cfg := regulatorConfig()
	m, err := GenerateRegulaTorRelay(cfg, p)
	require.NoError(t, err)

	sendBase := 2 + p.BootstrapStates
	require.Greater(t, m.Len(), sendBase, "relay must have SEND states")

	// The first SEND state is still inside the bootstrap handoff: no
	// surge reset yet.
	first := m.At(sendBase)
	_, hasReset := first.Transitions[machine.EventNonPaddingSent]
	assert.False(t, hasReset)

	// Later SEND states reset to SEND_0 with probability 2/(T·rate).
	second := m.At(sendBase + 1)
	reset, hasReset := second.Transitions[machine.EventNonPaddingSent]
	require.True(t, hasReset)
	require.Len(t, reset, 1)
	prob := reset[sendBase]
	assert.Greater(t, prob, 0.0)
	assert.LessOrEqual(t, prob, 1.0)

	for i := sendBase; i < m.Len(); i++ {
		s := m.At(i)
		assert.Equal(t, map[int]float64{i: 1.0}, s.Transitions[machine.EventPaddingSent], "send %d self-loop", i)
		assert.Equal(t, machine.Uniform(cfg.PacketsPerState, cfg.PacketsPerState), s.Limit, "send %d", i)
		assert.True(t, s.Bypass)
		assert.True(t, s.Replace)
	}
}

func TestGenerateRegulaTorRelay_TerminalSendExitsToEnd(t *testing.T) {
	m, err := GenerateRegulaTorRelay(regulatorConfig(), DefaultParams())
	require.NoError(t, err)

	last := m.At(m.Len() - 1)
	assert.Equal(t, map[int]float64{m.EndIndex(): 1.0}, last.Transitions[machine.EventLimitReached])
	// The terminal state pins the rate to 1 packet/sec.
	assert.Equal(t, machine.Uniform(1e6, 1e6), last.Timeout)
}

func TestGenerateRegulaTorRelay_SlowerDecayMeansMoreStates(t *testing.T) {
	p := DefaultParams()

	fast := regulatorConfig()
	fast.Decay = 0.85
	slow := regulatorConfig()
	slow.Decay = 0.97

	fastM, err := GenerateRegulaTorRelay(fast, p)
	require.NoError(t, err)
	slowM, err := GenerateRegulaTorRelay(slow, p)
	require.NoError(t, err)

	assert.Greater(t, slowM.Len(), fastM.Len())
}

func TestGenerateRegulaTorRelay_RejectsDegenerateInput(t *testing.T) {
	p := DefaultParams()
	for _, mutate := range []func(*RegulaTorConfig){
		func(c *RegulaTorConfig) { c.Decay = 1.0 },  // search would never terminate
		func(c *RegulaTorConfig) { c.Decay = 1.5 },
		func(c *RegulaTorConfig) { c.Decay = 0 },
		func(c *RegulaTorConfig) { c.InitialRate = 0 },
		func(c *RegulaTorConfig) { c.InitialRate = -5 },
		func(c *RegulaTorConfig) { c.Threshold = 0 },
		func(c *RegulaTorConfig) { c.PacketsPerState = 0 },
	} {
		cfg := regulatorConfig()
		mutate(&cfg)
		_, err := GenerateRegulaTorRelay(cfg, p)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestGenerateRegulaTorClient_CounterChain(t *testing.T) {
	cfg := regulatorConfig()
	cfg.UploadRatio = 2.5
	m, err := GenerateRegulaTorClient(cfg, DefaultParams())
	require.NoError(t, err)

	// Three COUNTER states plus the SEND state.
	require.Equal(t, 4, m.Len())
	sendIdx := 3

	// Leading counters advance with certainty.
	for i := 0; i < 2; i++ {
		c := m.At(i)
		assert.Equal(t, map[int]float64{i + 1: 1.0}, c.Transitions[machine.EventNonPaddingRecv], "counter %d", i)
		assert.Equal(t, map[int]float64{i + 1: 1.0}, c.Transitions[machine.EventPaddingRecv], "counter %d", i)
		_, hasLimit := c.Transitions[machine.EventLimitReached]
		assert.False(t, hasLimit, "counter %d needs no limit escape", i)
		assert.True(t, c.ActionIsBlock)
	}

	// The last counter realizes the fractional ratio: forward with
	// probability 0.5, self-loop otherwise, limit escape armed.
	last := m.At(2)
	assert.Equal(t, map[int]float64{sendIdx: 0.5, 2: 0.5}, last.Transitions[machine.EventNonPaddingRecv])
	assert.Equal(t, map[int]float64{sendIdx: 0.5, 2: 0.5}, last.Transitions[machine.EventPaddingRecv])
	assert.Equal(t, map[int]float64{sendIdx: 1.0}, last.Transitions[machine.EventLimitReached])
	assert.Equal(t, machine.Uniform(2, 2), last.Limit)
}

func TestGenerateRegulaTorClient_SendState(t *testing.T) {
	p := DefaultParams()
	cfg := regulatorConfig()
	cfg.UploadRatio = 2.5
	m, err := GenerateRegulaTorClient(cfg, p)
	require.NoError(t, err)

	send := m.At(m.Len() - 1)
	assert.Equal(t, map[int]float64{0: 1.0}, send.Transitions[machine.EventPaddingSent])
	assert.True(t, send.Bypass)
	assert.True(t, send.Replace)
	assert.False(t, send.ActionIsBlock)
	assert.Equal(t, machine.Uniform(p.CellSizeBytes, p.CellSizeBytes), send.Action)
	assert.Equal(t, machine.Uniform(0, 0), send.Timeout)
}

func TestGenerateRegulaTorClient_IntegralRatio(t *testing.T) {
	cfg := regulatorConfig()
	cfg.UploadRatio = 2.0
	m, err := GenerateRegulaTorClient(cfg, DefaultParams())
	require.NoError(t, err)

	require.Equal(t, 4, m.Len())
	// No fractional remainder: the last counter advances with
	// certainty and needs no limit escape.
	last := m.At(2)
	assert.Equal(t, map[int]float64{3: 1.0}, last.Transitions[machine.EventNonPaddingRecv])
	_, hasLimit := last.Transitions[machine.EventLimitReached]
	assert.False(t, hasLimit)
}

func TestGenerateRegulaTor_Idempotent(t *testing.T) {
	p := DefaultParams()
	cfg := regulatorConfig()

	relayA, err := GenerateRegulaTorRelay(cfg, p)
	require.NoError(t, err)
	relayB, err := GenerateRegulaTorRelay(cfg, p)
	require.NoError(t, err)

	a, err := wire.V1{}.Serialize(relayA)
	require.NoError(t, err)
	b, err := wire.V1{}.Serialize(relayB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
