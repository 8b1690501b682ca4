package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdStats(args []string) int {
	flags := flag.NewFlagSet("stats", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	data, err := a.store.ListTickData()
	if err != nil {
		fmt.Fprintf(os.Stderr, "trex: stats: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"ticks": data, "count": len(data)})
		return 0
	}
	if len(data) == 0 {
		fmt.Println("no tick data")
		return 0
	}
	fmt.Printf("%-8s %-28s %s\n", "tick", "sync (cpu/wall)", "deliberation (cpu/wall)")
	for _, d := range data {
		fmt.Printf("%-8d %-28s %s\n",
			d.Tick,
			fmt.Sprintf("%s / %s", d.Sync.CPU(), d.Sync.Wall),
			fmt.Sprintf("%s / %s", d.Deliberation.CPU(), d.Deliberation.Wall),
		)
	}
	return 0
}
