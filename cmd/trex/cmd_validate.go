package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/automenta/trex-autonomy/pkg/agent"
	"github.com/automenta/trex-autonomy/pkg/config"
)

func (a *app) cmdValidate(args []string) int {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "trex: validate needs exactly one mission file")
		return 1
	}

	cfg, err := config.Load(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: validate: %v\n", err)
		return 1
	}

	// Wiring the agent exercises every init-time check: unknown kinds,
	// duplicate timeline owners, dependency cycles.
	ag, err := agent.New(cfg, agent.Options{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: validate: %v\n", err)
		return 1
	}

	order := ag.ReactorNames()
	if *jsonOut {
		printJSON(map[string]interface{}{
			"agent":     cfg.Name,
			"finalTick": cfg.FinalTick,
			"syncOrder": order,
		})
	} else {
		fmt.Printf("mission %s ok: %d reactors, final tick %d\n", cfg.Name, len(order), cfg.FinalTick)
		fmt.Println("synchronization order:")
		for i, name := range order {
			fmt.Printf("  %d. %s\n", i+1, name)
		}
	}
	return 0
}
