package maincmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"

	"github.com/cmarrin/m8rscript/internal/config"
	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/builtin"
	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
)

// Run parses and executes each file in turn against its own fresh
// Thread/Global, driving Thread.Continue in fuel-budgeted slices until the
// program finishes, errors, or is terminated; a StatusDelay result
// is honored with a real sleep for PendingDelayMS before resuming, since
// the CLI is itself the "host" the VM suspends back to.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, err)
	}
	if c.Fuel > 0 {
		cfg.FuelPerSlice = c.Fuel
	}

	for _, path := range args {
		if err := runFile(ctx, stdio, cfg, path); err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", path, err))
		}
	}
	return nil
}

func runFile(ctx context.Context, stdio mainer.Stdio, cfg config.Runtime, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	atoms := atom.NewTable()
	fn, err := parser.Parse(src, atoms)
	if err != nil {
		return err
	}

	heap := object.NewHeap(cfg.GCHighWater)
	rt := &builtin.Runtime{
		Atoms:  atoms,
		Heap:   heap,
		System: host.NewStdSystem(stdio.Stdout),
		FS:     &host.OSFileSystem{Root: cfg.RootDir},
	}
	global := builtin.NewGlobal(rt)

	th := machine.NewThread(heap, atoms, global)
	th.MaxDepth = cfg.MaxCallDepth
	rt.Thread = th

	if err := th.StartExecution(fn); err != nil {
		return err
	}

	for {
		status, err := th.Continue(ctx, cfg.FuelPerSlice)
		if err != nil {
			return err
		}
		switch status {
		case machine.StatusFinished, machine.StatusTerminated:
			return nil
		case machine.StatusError:
			return fmt.Errorf("runtime error")
		case machine.StatusDelay:
			time.Sleep(time.Duration(th.PendingDelayMS()) * time.Millisecond)
		case machine.StatusWaiting, machine.StatusYield:
			// nothing fired the event/exhausted the fuel slice synchronously in
			// this CLI's single-threaded drive loop; simply resume.
		case machine.StatusNotRunning:
			return nil
		}
	}
}
