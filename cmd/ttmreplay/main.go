// Command ttmreplay replays a recorded sequence of per-frame sampler
// feedback grids through a ttm.Manager, following the same operation
// order a real renderer would drive, and optionally records per-frame
// statistics to a SQLite file for later trend analysis.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(&replayCmd{}, "")
	subcommands.Register(&inspectCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
