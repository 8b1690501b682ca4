// Package assembly holds the executive's boundary to the symbolic
// planning machinery, and the SQLite store behind it.
//
// The plan database, constraint engine and solver are external
// collaborators: the executive only ever applies a transaction script,
// asks whether the database is consistent, and requests a snapshot dump.
// Engine fixes that surface. The store records everything the executive
// emits — dispatched observations, goal traffic, per-tick timings and
// snapshots — into a single SQLite file that outlives the run and can be
// queried or replayed by external tools.
package assembly

import (
	"fmt"
	"os"

	"github.com/automenta/trex-autonomy/pkg/model"
)

// Engine is a reactor's private deliberation engine. The executive
// drives it; it never crosses between reactors.
type Engine interface {
	// PlayTransactions evaluates the transaction script at path against
	// the plan database.
	PlayTransactions(path string) error

	// IsConsistent reports whether the plan database is in a consistent
	// state.
	IsConsistent() bool

	// WriteSnapshot dumps the database state for (tick, attempt).
	WriteSnapshot(tick model.Tick, attempt int) error
}

// Interpreter evaluates a transaction script given its source text.
type Interpreter interface {
	Execute(source string) error
}

// RecordingEngine is the executive-side Engine used when no external
// solver is linked in: transactions are interpreted (or merely recorded)
// and snapshots land in the store. A transaction that fails to apply
// leaves the engine inconsistent until the next successful apply.
type RecordingEngine struct {
	reactor      string
	store        *Store
	interp       Interpreter
	inconsistent bool
}

// NewRecordingEngine builds an engine for one reactor. interp may be nil,
// in which case scripts are recorded without evaluation.
func NewRecordingEngine(reactor string, store *Store, interp Interpreter) *RecordingEngine {
	return &RecordingEngine{reactor: reactor, store: store, interp: interp}
}

// PlayTransactions reads, optionally evaluates, and records the script.
func (e *RecordingEngine) PlayTransactions(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		e.inconsistent = true
		return fmt.Errorf("play transactions: %w", err)
	}
	if e.interp != nil {
		if err := e.interp.Execute(string(source)); err != nil {
			e.inconsistent = true
			return fmt.Errorf("play transactions %s: %w", path, err)
		}
	}
	if err := e.store.RecordTransaction(e.reactor, path); err != nil {
		return err
	}
	e.inconsistent = false
	return nil
}

// IsConsistent reports whether the last apply succeeded.
func (e *RecordingEngine) IsConsistent() bool { return !e.inconsistent }

// WriteSnapshot records a snapshot row for (tick, attempt).
func (e *RecordingEngine) WriteSnapshot(tick model.Tick, attempt int) error {
	return e.store.WriteSnapshot(e.reactor, tick, attempt)
}
