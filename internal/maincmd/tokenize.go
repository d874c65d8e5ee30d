package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/cmarrin/m8rscript/lang/scanner"
	"github.com/cmarrin/m8rscript/lang/token"
)

// Tokenize scans every file in args and prints its token stream, one token
// per line, stopping at the first file that fails to read.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			return printError(stdio, err)
		}
		var errs scanner.ErrorList
		sc := scanner.New(src, &errs)
		for sc.GetToken() != token.EOF {
			printToken(stdio, sc)
			sc.RetireToken()
		}
		printToken(stdio, sc)
		if err := errs.Err(); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func printToken(stdio mainer.Stdio, sc *scanner.Scanner) {
	val := sc.GetTokenValue()
	l, col := val.Pos.LineCol()
	fmt.Fprintf(stdio.Stdout, "%d:%d: %#v", l, col, sc.GetToken())
	if val.Raw != "" {
		fmt.Fprintf(stdio.Stdout, " %q", val.Raw)
	}
	fmt.Fprintln(stdio.Stdout)
}
