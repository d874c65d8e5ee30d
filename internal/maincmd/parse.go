package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/cmarrin/m8rscript/lang/atom"
	"github.com/cmarrin/m8rscript/lang/compiler"
	"github.com/cmarrin/m8rscript/lang/object"
	"github.com/cmarrin/m8rscript/lang/parser"
)

// Parse compiles each file and reports syntax errors; it prints nothing for
// a file that parses cleanly, the way a type-checker reports only problems.
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	_, err := parseFiles(stdio, args)
	return err
}

// Compile parses each file and prints a one-line summary of the compiled
// program's size: instruction count, constant-pool size, and local count.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fns, err := parseFiles(stdio, args)
	for i, path := range args {
		if fns[i] == nil {
			continue
		}
		fn := fns[i]
		fmt.Fprintf(stdio.Stdout, "%s: %d instructions, %d constants, %d locals\n",
			path, len(fn.Code), len(fn.Consts), len(fn.LocalNames))
	}
	return err
}

// Disasm parses each file and prints its full pseudo-assembly
// disassembly (lang/compiler.Dasm), wired here as the disasm CLI command.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fns, err := parseFiles(stdio, args)
	for i, path := range args {
		if fns[i] == nil {
			continue
		}
		fmt.Fprintf(stdio.Stdout, "; %s\n%s\n", path, compiler.Dasm(fns[i]))
	}
	return err
}

// parseFiles reads and parses every file in args against a fresh atom
// table, returning one *object.Function per file (nil at the index of a
// file that failed to parse) and the first encountered error, after
// printing every file's errors to stdio.Stderr.
func parseFiles(stdio mainer.Stdio, args []string) ([]*object.Function, error) {
	atoms := atom.NewTable()
	fns := make([]*object.Function, len(args))
	var firstErr error
	for i, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fn, err := parser.Parse(src, atoms)
		fns[i] = fn
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", path, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return fns, firstErr
}
