// Package defense implements the profile generators: each drives the
// interval searches in fit and assembles the resulting per-state
// parameters into a machine.Machine for the external engine.
package defense

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Params carries the fixed domain constants shared by the generators.
// These are domain parameters, not tunables: the defaults match the
// defenses being approximated.
type Params struct {
	// CellSizeBytes is the fixed padding cell size.
	CellSizeBytes float64 `yaml:"cell_size_bytes"`
	// TraceBurstCutoff caps how many non-zero bursts a reference
	// trace contributes.
	TraceBurstCutoff int `yaml:"trace_burst_cutoff"`
	// BootstrapStates is the fixed BOOT-state count of the RegulaTor
	// relay machine.
	BootstrapStates int `yaml:"bootstrap_states"`
	// BootstrapTimeoutMicros is the constant BOOT-state timeout.
	BootstrapTimeoutMicros float64 `yaml:"bootstrap_timeout_us"`
}

func (p Params) validate() error {
	if p.CellSizeBytes <= 0 {
		return fmt.Errorf("cell size must be positive, got %v", p.CellSizeBytes)
	}
	if p.TraceBurstCutoff <= 0 {
		return fmt.Errorf("trace burst cutoff must be positive, got %d", p.TraceBurstCutoff)
	}
	if p.BootstrapStates <= 0 {
		return fmt.Errorf("bootstrap state count must be positive, got %d", p.BootstrapStates)
	}
	if p.BootstrapTimeoutMicros <= 0 {
		return fmt.Errorf("bootstrap timeout must be positive, got %v", p.BootstrapTimeoutMicros)
	}
	return nil
}

// DefaultParams parses the embedded defaults. Panics on a malformed
// embed, which is a build defect rather than a runtime condition.
func DefaultParams() Params {
	var p Params
	if err := yaml.Unmarshal(defaultsYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml: %v", err))
	}
	if err := p.validate(); err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml: %v", err))
	}
	return p
}
