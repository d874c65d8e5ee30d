package main

import (
	"os"

	"github.com/mna/mainer"

	"github.com/cmarrin/m8rscript/internal/maincmd"
)

// version and buildDate are placeholders the release build stamps via
// -ldflags.
var (
	version   = "{v}"
	buildDate = "{d}"
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
