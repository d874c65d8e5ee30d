// Package config loads the host-side knobs a running m8rscript program is
// tuned with from the environment, layered under whatever the CLI's own
// flags override explicitly.
package config

import "github.com/caarlos0/env/v6"

// Runtime holds the values internal/maincmd's Run command uses to build a
// lang/machine.Thread and lang/builtin.Runtime: how much bytecode fuel each
// Continue slice gets, when the heap collects, where the filesystem
// builtin's root directory lives, and how deep recursive script calls may
// nest. MaxTCPConnections is loaded as well but is not passed on by Run.
type Runtime struct {
	// FuelPerSlice bounds how many bytecode instructions one Thread.Continue
	// call executes before yielding back to the host.
	FuelPerSlice int `env:"M8R_FUEL_PER_SLICE" envDefault:"100000"`

	// GCHighWater is the allocation count that triggers a mark-and-sweep
	// pass; passed straight through to object.NewHeap.
	GCHighWater int `env:"M8R_GC_HIGH_WATER" envDefault:"4096"`

	// MaxTCPConnections mirrors the per-listener connection cap. The cap
	// TCP.create enforces is lang/builtin's fixed maxTCPConnections
	// constant (also 4); this field does not change it.
	MaxTCPConnections int `env:"M8R_MAX_TCP_CONNECTIONS" envDefault:"4"`

	// RootDir is the directory lang/host's filesystem seam resolves script
	// paths against.
	RootDir string `env:"M8R_ROOT_DIR" envDefault:"."`

	// MaxCallDepth bounds call-frame nesting before the VM reports
	// machine.KindStackOverflow rather than growing the stack
	// without limit.
	MaxCallDepth int `env:"M8R_MAX_CALL_DEPTH" envDefault:"256"`
}

// Load reads a Runtime from the process environment, applying the defaults
// above for anything unset.
func Load() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}
