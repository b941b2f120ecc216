// Package config loads the VM tuning knobs internal/maincmd exposes to the
// CLI: resource limits that bound a single run (max bytecode steps, max
// call-frame depth) and the garbage collector's growth ratio. Values come
// from environment variables via caarlos0/env, optionally overridden by a
// YAML file the CLI's -config flag names.
package config

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// VM holds the tunable limits machine.VM exposes as plain struct fields;
// this package only knows how to produce values for them; the CLI is
// responsible for plugging the result into a *machine.VM.
type VM struct {
	MaxSteps     int     `env:"VELA_MAX_STEPS" yaml:"max_steps"`
	MaxCallDepth int     `env:"VELA_MAX_CALL_DEPTH" yaml:"max_call_depth"`
	GCGrowth     float64 `env:"VELA_GC_GROWTH" yaml:"gc_growth" envDefault:"2.0"`
}

// Load reads environment variables into a VM, then, if path is non-empty,
// overlays values present in the YAML file at path (a field left zero in
// the file keeps its environment-derived value).
func Load(path string) (VM, error) {
	var cfg VM
	if err := env.Parse(&cfg); err != nil {
		return VM{}, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return VM{}, err
	}
	var fileCfg VM
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return VM{}, err
	}
	if fileCfg.MaxSteps != 0 {
		cfg.MaxSteps = fileCfg.MaxSteps
	}
	if fileCfg.MaxCallDepth != 0 {
		cfg.MaxCallDepth = fileCfg.MaxCallDepth
	}
	if fileCfg.GCGrowth != 0 {
		cfg.GCGrowth = fileCfg.GCGrowth
	}
	return cfg, nil
}
