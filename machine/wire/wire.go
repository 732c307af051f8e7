// Package wire encodes finished machines into the form the external
// traffic-shaping engine loads. The byte layout is an external
// contract: the core guarantees only that a fully-populated,
// internally-consistent machine value reaches the serializer.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/defense-gen/defense-gen/machine"
)

// Serializer turns an assembled machine into the printable artifact
// consumed by the engine. Implementations must be deterministic:
// identical machines serialize to identical output.
type Serializer interface {
	Serialize(m *machine.Machine) (string, error)
}

// V1 is the default codec: a fixed little-endian binary layout,
// base64-encoded. Transition tables are emitted in sorted event and
// target-index order so that map iteration order never leaks into the
// output.
type V1 struct{}

const v1Version = 1

// Serialize encodes m into the v1 wire string.
func (V1) Serialize(m *machine.Machine) (string, error) {
	if m == nil {
		return "", fmt.Errorf("nil machine")
	}
	if m.Len() > math.MaxUint16 {
		return "", fmt.Errorf("machine has %d states, above the wire limit %d", m.Len(), math.MaxUint16)
	}

	var buf bytes.Buffer
	buf.WriteByte(v1Version)

	budgets := m.Budgets()
	writeUint64(&buf, budgets.AllowedPaddingBytes)
	writeFloat64(&buf, budgets.MaxPaddingFrac)
	writeUint64(&buf, budgets.AllowedBlockedMicros)
	writeFloat64(&buf, budgets.MaxBlockingFrac)
	writeBool(&buf, budgets.IncludeSmallPackets)

	writeUint16(&buf, uint16(m.Len()))
	for i := 0; i < m.Len(); i++ {
		writeState(&buf, m.At(i))
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func writeState(buf *bytes.Buffer, s machine.State) {
	var flags byte
	if s.Bypass {
		flags |= 1 << 0
	}
	if s.Replace {
		flags |= 1 << 1
	}
	if s.ActionIsBlock {
		flags |= 1 << 2
	}
	buf.WriteByte(flags)

	writeDist(buf, s.Timeout)
	writeDist(buf, s.Action)
	writeDist(buf, s.Limit)

	events := make([]machine.Event, 0, len(s.Transitions))
	for event := range s.Transitions {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

	buf.WriteByte(byte(len(events)))
	for _, event := range events {
		buf.WriteByte(byte(event))

		targets := s.Transitions[event]
		indices := make([]int, 0, len(targets))
		for idx := range targets {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		writeUint16(buf, uint16(len(indices)))
		for _, idx := range indices {
			writeUint16(buf, uint16(idx))
			writeFloat64(buf, targets[idx])
		}
	}
}

func writeDist(buf *bytes.Buffer, d machine.Dist) {
	buf.WriteByte(byte(d.Kind))
	writeFloat64(buf, d.Param1)
	writeFloat64(buf, d.Param2)
	writeFloat64(buf, d.Start)
	writeFloat64(buf, d.Max)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	writeUint64(buf, math.Float64bits(v))
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
