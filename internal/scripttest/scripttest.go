// Package scripttest is a golden-file / table-driven harness for running
// whole m8rscript programs end to end and asserting on their observable
// behavior: printed output, final machine.Status, and (for a program
// expected to fail) the runtime error's Kind. Fixtures are yaml documents
// rather than bare source+golden file pairs, since a scenario needs more
// structure (expected status, expected error kind) than a plain text diff
// captures.
package scripttest

import (
	"context"
	"os"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"gopkg.in/yaml.v3"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/builtin"
	"github.com/cmarrin/m8rscript/lang/host/memtest"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
)

// Scenario is one fixture entry: a script to run, and what running it
// should observe.
type Scenario struct {
	Name string `yaml:"name"`
	// Script is the m8rscript source to parse and execute.
	Script string `yaml:"script"`
	// Want is the exact stdout a successful run should produce.
	Want string `yaml:"want"`
	// WantStatus is the final machine.Status name ("Finished", "Error",
	// "Terminated", ...); defaults to "Finished" when empty.
	WantStatus string `yaml:"wantStatus,omitempty"`
	// WantErrorKind, set only when WantStatus is "Error", is the expected
	// machine.ExecError.Kind.
	WantErrorKind string `yaml:"wantErrorKind,omitempty"`
	// FuelPerSlice caps a single Continue call; 0 uses a generous default so
	// a runaway program still terminates the test instead of hanging it.
	FuelPerSlice int `yaml:"fuelPerSlice,omitempty"`
}

// LoadScenarios reads a yaml file containing a top-level list of Scenario
// entries, failing the test on any read or decode error.
func LoadScenarios(t *testing.T, path string) []Scenario {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var scenarios []Scenario
	if err := yaml.Unmarshal(raw, &scenarios); err != nil {
		t.Fatalf("decoding %s: %s", path, err)
	}
	return scenarios
}

const defaultFuel = 1_000_000

// Run parses and executes sc.Script against a fresh heap/atom table/Global,
// asserting its printed output and final status/error kind match sc.
func Run(t *testing.T, sc Scenario) {
	t.Helper()

	atoms := atom.NewTable()
	fn, err := parser.Parse([]byte(sc.Script), atoms)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}

	heap := object.NewHeap(0)
	sys := &memtest.System{}
	rt := &builtin.Runtime{Atoms: atoms, Heap: heap, System: sys}
	global := builtin.NewGlobal(rt)

	th := machine.NewThread(heap, atoms, global)
	rt.Thread = th
	if err := th.StartExecution(fn); err != nil {
		t.Fatalf("start execution: %s", err)
	}

	fuel := sc.FuelPerSlice
	if fuel <= 0 {
		fuel = defaultFuel
	}

	var status machine.Status
	var runErr error
	for {
		status, runErr = th.Continue(context.Background(), fuel)
		if runErr != nil || status != machine.StatusDelay {
			break
		}
		// a delay() request in a test fixture never needs a real sleep: the
		// clock only matters to currentTime(), which no e2e fixture asserts on.
	}

	wantStatus := sc.WantStatus
	if wantStatus == "" {
		wantStatus = "Finished"
	}
	if status.String() != wantStatus {
		t.Fatalf("status = %s (err=%v), want %s", status, runErr, wantStatus)
	}
	if wantStatus == "Error" {
		ee, ok := runErr.(*machine.ExecError)
		if !ok {
			t.Fatalf("error = %v, want *machine.ExecError", runErr)
		}
		if sc.WantErrorKind != "" && ee.Kind != sc.WantErrorKind {
			t.Fatalf("error kind = %s, want %s", ee.Kind, sc.WantErrorKind)
		}
	}

	got := sys.Output()
	if patch := diff.Diff(sc.Want, got); patch != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", patch)
	}
}
