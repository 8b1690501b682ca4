// store.go manages the executive's SQLite persistence.
//
// SQLite in WAL mode serves as the run log: every dispatched observation,
// goal request and recall, every tick's timing pair, and every snapshot
// request is appended here. The file is an export artifact — the
// executive never reads its own state back from it — so external tools
// can tail it while the agent runs.
package assembly

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/monitor"
)

// DispatchKind tags a row in the dispatch log.
type DispatchKind string

const (
	DispatchObservation DispatchKind = "observation"
	DispatchRequest     DispatchKind = "request"
	DispatchRecall      DispatchKind = "recall"
)

// Dispatch is one row of the dispatch log.
type Dispatch struct {
	ID        int64
	Tick      model.Tick
	Reactor   string
	Kind      DispatchKind
	Timeline  string
	GoalID    string
	Payload   string
	CreatedAt time.Time
}

// Store manages all SQLite operations with WAL mode for concurrent
// readers while the agent writes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run log database and initializes the
// schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dispatches (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		tick       INTEGER NOT NULL,
		reactor    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		timeline   TEXT NOT NULL,
		goal_id    TEXT,
		payload    TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dispatches_tick ON dispatches(tick);
	CREATE INDEX IF NOT EXISTS idx_dispatches_kind ON dispatches(kind, timeline);

	CREATE TABLE IF NOT EXISTS tick_stats (
		tick          INTEGER PRIMARY KEY,
		sync_user_us  INTEGER NOT NULL,
		sync_sys_us   INTEGER NOT NULL,
		sync_wall_us  INTEGER NOT NULL,
		delib_user_us INTEGER NOT NULL,
		delib_sys_us  INTEGER NOT NULL,
		delib_wall_us INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		reactor    TEXT NOT NULL,
		tick       INTEGER NOT NULL,
		attempt    INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_reactor ON snapshots(reactor, tick);

	CREATE TABLE IF NOT EXISTS transactions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		reactor    TEXT NOT NULL,
		path       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// insertDispatch appends one dispatch row under the contention retry.
func (s *Store) insertDispatch(d *Dispatch) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO dispatches (tick, reactor, kind, timeline, goal_id, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int64(d.Tick), d.Reactor, string(d.Kind), d.Timeline, d.GoalID, d.Payload, nowString(),
		)
		return err
	})
}

// RecordObservation appends a published observation in its wire form.
func (s *Store) RecordObservation(tick model.Tick, owner string, o model.Observation) error {
	return s.insertDispatch(&Dispatch{
		Tick:     tick,
		Reactor:  owner,
		Kind:     DispatchObservation,
		Timeline: o.Timeline(),
		Payload:  model.ObservationXML(o),
	})
}

// RecordRequest appends a goal request.
func (s *Store) RecordRequest(tick model.Tick, client string, g *model.Goal) error {
	return s.insertDispatch(&Dispatch{
		Tick:     tick,
		Reactor:  client,
		Kind:     DispatchRequest,
		Timeline: g.Token.Timeline,
		GoalID:   g.ID.String(),
		Payload:  g.Token.String(),
	})
}

// RecordRecall appends a goal recall.
func (s *Store) RecordRecall(tick model.Tick, client string, g *model.Goal) error {
	return s.insertDispatch(&Dispatch{
		Tick:     tick,
		Reactor:  client,
		Kind:     DispatchRecall,
		Timeline: g.Token.Timeline,
		GoalID:   g.ID.String(),
	})
}

// ListDispatches returns dispatch rows with ID > sinceID, oldest first.
func (s *Store) ListDispatches(sinceID int64, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, tick, reactor, kind, timeline, COALESCE(goal_id,''), COALESCE(payload,''), created_at
		 FROM dispatches WHERE id > ? ORDER BY id ASC LIMIT ?`,
		sinceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		var tick int64
		var createdStr string
		if err := rows.Scan(&d.ID, &tick, &d.Reactor, &d.Kind, &d.Timeline, &d.GoalID, &d.Payload, &createdStr); err != nil {
			return nil, err
		}
		d.Tick = model.Tick(tick)
		d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for dispatch %d: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountDispatches returns the total number of dispatch rows.
func (s *Store) CountDispatches() int64 {
	var n int64
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM dispatches`).Scan(&n)
	return n
}

// RecordTickData persists one tick's timing pair. Satisfies the monitor
// sink contract.
func (s *Store) RecordTickData(d monitor.TickData) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO tick_stats (tick, sync_user_us, sync_sys_us, sync_wall_us,
			                         delib_user_us, delib_sys_us, delib_wall_us)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(tick) DO UPDATE SET
			   sync_user_us = excluded.sync_user_us,
			   sync_sys_us = excluded.sync_sys_us,
			   sync_wall_us = excluded.sync_wall_us,
			   delib_user_us = excluded.delib_user_us,
			   delib_sys_us = excluded.delib_sys_us,
			   delib_wall_us = excluded.delib_wall_us`,
			int64(d.Tick),
			d.Sync.User.Microseconds(), d.Sync.System.Microseconds(), d.Sync.Wall.Microseconds(),
			d.Deliberation.User.Microseconds(), d.Deliberation.System.Microseconds(), d.Deliberation.Wall.Microseconds(),
		)
		return err
	})
}

// ListTickData returns the persisted timing history, oldest first.
func (s *Store) ListTickData() ([]monitor.TickData, error) {
	rows, err := s.db.Query(
		`SELECT tick, sync_user_us, sync_sys_us, sync_wall_us,
		        delib_user_us, delib_sys_us, delib_wall_us
		 FROM tick_stats ORDER BY tick ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []monitor.TickData
	for rows.Next() {
		var tick, su, ss, sw, du, ds, dw int64
		if err := rows.Scan(&tick, &su, &ss, &sw, &du, &ds, &dw); err != nil {
			return nil, err
		}
		d := monitor.TickData{Tick: model.Tick(tick)}
		d.Sync.User = time.Duration(su) * time.Microsecond
		d.Sync.System = time.Duration(ss) * time.Microsecond
		d.Sync.Wall = time.Duration(sw) * time.Microsecond
		d.Deliberation.User = time.Duration(du) * time.Microsecond
		d.Deliberation.System = time.Duration(ds) * time.Microsecond
		d.Deliberation.Wall = time.Duration(dw) * time.Microsecond
		out = append(out, d)
	}
	return out, rows.Err()
}

// WriteSnapshot records that a snapshot of reactor's plan database was
// requested at (tick, attempt).
func (s *Store) WriteSnapshot(reactor string, tick model.Tick, attempt int) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO snapshots (reactor, tick, attempt, created_at) VALUES (?, ?, ?, ?)`,
			reactor, int64(tick), attempt, nowString(),
		)
		return err
	})
}

// CountSnapshots returns the snapshot rows recorded for a reactor.
func (s *Store) CountSnapshots(reactor string) int64 {
	var n int64
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE reactor = ?`, reactor).Scan(&n)
	return n
}

// RecordTransaction records an applied transaction script.
func (s *Store) RecordTransaction(reactor, path string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO transactions (reactor, path, applied_at) VALUES (?, ?, ?)`,
			reactor, path, nowString(),
		)
		return err
	})
}
