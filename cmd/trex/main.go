// Command trex is the executive CLI — it runs missions of cooperating
// teleo-reactors over a shared tick clock and inspects the run log they
// leave behind.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("trex", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "run":
		os.Exit(a.cmdRun(os.Args[2:]))
	case "validate":
		os.Exit(a.cmdValidate(os.Args[2:]))
	case "log":
		os.Exit(a.cmdLog(os.Args[2:]))
	case "stats":
		os.Exit(a.cmdStats(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "trex: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'trex --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`trex — a multi-reactor real-time executive

Reactors own timelines, observe each other through a synchronous bus,
and deliberate inside the slack of a shared tick clock. Every dispatch
and timing pair lands in a SQLite run log.

Usage:
  trex <command> [flags]

Commands:
  run <mission.yaml>        Execute a mission until its final tick
  validate <mission.yaml>   Check a mission config, print the sync order
  log [--since N]           Query the dispatch log (observations, goals)
  stats                     Print per-tick timing history from the run log

Environment:
  TREX_DB       Run log database path (default: .trex/run.db)
  TREX_LOG_DIR  Directory for the agent trace log (default: stderr)

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "trex: "+format+"\n", args...)
	os.Exit(1)
}
