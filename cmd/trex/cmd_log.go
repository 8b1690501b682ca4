package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/automenta/trex-autonomy/pkg/assembly"
)

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	sinceID := flags.Int64("since", 0, "fetch dispatches with row ID > this")
	limit := flags.Int("limit", 50, "max rows to return")
	kind := flags.String("kind", "", "filter by kind (observation, request, recall)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	rows, err := a.store.ListDispatches(*sinceID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: log: %v\n", err)
		return 1
	}

	if *kind != "" {
		filtered := rows[:0]
		for _, d := range rows {
			if string(d.Kind) == *kind {
				filtered = append(filtered, d)
			}
		}
		rows = filtered
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"dispatches": rows, "count": len(rows)})
		return 0
	}
	if len(rows) == 0 {
		fmt.Println("no dispatches")
		return 0
	}
	for _, d := range rows {
		switch d.Kind {
		case assembly.DispatchObservation:
			fmt.Printf("[%d] %s %s\n", d.Tick, d.Reactor, d.Payload)
		case assembly.DispatchRequest:
			fmt.Printf("[%d] %s request %s on %s (%s)\n", d.Tick, d.Reactor, d.GoalID[:8], d.Timeline, d.Payload)
		case assembly.DispatchRecall:
			fmt.Printf("[%d] %s recall %s on %s\n", d.Tick, d.Reactor, d.GoalID[:8], d.Timeline)
		default:
			fmt.Printf("[%d] %s %s %s %s\n", d.Tick, d.Reactor, d.Kind, d.Timeline, d.Payload)
		}
	}
	return 0
}
