package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/automenta/trex-autonomy/pkg/agent"
	"github.com/automenta/trex-autonomy/pkg/config"
)

func (a *app) cmdRun(args []string) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "trex: run needs exactly one mission file")
		return 1
	}

	cfg, err := config.Load(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: run: %v\n", err)
		return 1
	}

	ag, err := agent.New(cfg, agent.Options{Logger: a.logger, Store: a.store})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: run: %v\n", err)
		return 1
	}

	// SIGINT/SIGTERM stop the loop between slices, never inside one.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ag.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trex: run: %v\n", err)
		return 1
	}

	data := ag.Monitor().Data()
	if *jsonOut {
		printJSON(map[string]interface{}{
			"agent":      cfg.Name,
			"finalTick":  cfg.FinalTick,
			"ticks":      len(data),
			"reactors":   ag.ReactorNames(),
			"dispatches": a.store.CountDispatches(),
		})
	} else {
		fmt.Printf("mission %s: %d ticks, %d reactors, %d dispatches logged\n",
			cfg.Name, len(data), len(ag.ReactorNames()), a.store.CountDispatches())
	}
	return 0
}
