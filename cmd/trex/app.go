package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/automenta/trex-autonomy/pkg/assembly"
)

const (
	defaultDir = ".trex"
	defaultDB  = ".trex/run.db"
)

// app holds shared state for all CLI subcommands.
type app struct {
	store  *assembly.Store
	logger *log.Logger

	logFile *os.File
}

// newApp opens the run log database and resolves the trace destination.
// Creates the .trex/ directory if using the default DB path.
func newApp() (*app, error) {
	dbPath := envOr("TREX_DB", defaultDB)
	if dbPath == defaultDB {
		if err := os.MkdirAll(defaultDir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", defaultDir, err)
		}
	}
	s, err := assembly.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open run log %q: %w", dbPath, err)
	}

	a := &app{store: s}
	if dir := os.Getenv("TREX_LOG_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.Close()
			return nil, fmt.Errorf("cannot create log dir %s: %w", dir, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "agent.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("cannot open agent log: %w", err)
		}
		a.logFile = f
		a.logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	} else {
		a.logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return a, nil
}

// Close releases the database connection and the trace file.
func (a *app) Close() {
	a.store.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
