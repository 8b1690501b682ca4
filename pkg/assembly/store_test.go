package assembly

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/automenta/trex-autonomy/pkg/domain"
	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/monitor"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "run.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListDispatches(t *testing.T) {
	s := newTestStore(t)

	obs := model.NewObservation("nav", "At").
		Push("x", domain.NewSingleton("int", domain.IntVal(3)))
	if err := s.RecordObservation(4, "navigator", obs); err != nil {
		t.Fatalf("RecordObservation: %v", err)
	}

	g := model.NewGoal(&model.Token{Timeline: "nav", Predicate: "At", Start: 6, End: 9})
	if err := s.RecordRequest(4, "pilot", g); err != nil {
		t.Fatalf("RecordRequest: %v", err)
	}
	if err := s.RecordRecall(7, "pilot", g); err != nil {
		t.Fatalf("RecordRecall: %v", err)
	}

	rows, err := s.ListDispatches(0, 10)
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	if rows[0].Kind != DispatchObservation || rows[0].Tick != 4 || rows[0].Reactor != "navigator" {
		t.Fatalf("row 0: got %+v", rows[0])
	}
	wantPayload := `<Observation on="nav" predicate="At"><Assert name="x"><value type="int" name="3"/></Assert></Observation>`
	if rows[0].Payload != wantPayload {
		t.Fatalf("row 0 payload: got %s", rows[0].Payload)
	}

	if rows[1].Kind != DispatchRequest || rows[1].GoalID != g.ID.String() {
		t.Fatalf("row 1: got %+v", rows[1])
	}
	if rows[2].Kind != DispatchRecall || rows[2].Tick != 7 || rows[2].GoalID != g.ID.String() {
		t.Fatalf("row 2: got %+v", rows[2])
	}
}

func TestListDispatchesCursor(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.RecordObservation(model.Tick(i), "navigator", model.NewObservation("nav", "Tick")); err != nil {
			t.Fatalf("RecordObservation %d: %v", i, err)
		}
	}
	first, err := s.ListDispatches(0, 2)
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("got %d rows, want 2", len(first))
	}
	rest, err := s.ListDispatches(first[1].ID, 10)
	if err != nil {
		t.Fatalf("ListDispatches: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("got %d rows after cursor, want 3", len(rest))
	}
	if n := s.CountDispatches(); n != 5 {
		t.Fatalf("CountDispatches: got %d, want 5", n)
	}
}

func TestTickDataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := monitor.TickData{
		Tick:         9,
		Sync:         stats.Usage{User: 1500 * time.Microsecond, Wall: 2 * time.Millisecond},
		Deliberation: stats.Usage{System: 300 * time.Microsecond, Wall: 5 * time.Millisecond},
	}
	if err := s.RecordTickData(in); err != nil {
		t.Fatalf("RecordTickData: %v", err)
	}

	out, err := s.ListTickData()
	if err != nil {
		t.Fatalf("ListTickData: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d rows, want 1", len(out))
	}
	if out[0] != in {
		t.Fatalf("round trip changed data: got %+v, want %+v", out[0], in)
	}
}

func TestSnapshotCounting(t *testing.T) {
	s := newTestStore(t)
	for attempt := 0; attempt < 3; attempt++ {
		if err := s.WriteSnapshot("navigator", 2, attempt); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	if n := s.CountSnapshots("navigator"); n != 3 {
		t.Fatalf("got %d snapshots, want 3", n)
	}
	if n := s.CountSnapshots("pilot"); n != 0 {
		t.Fatalf("got %d snapshots for pilot, want 0", n)
	}
}

func TestRecordingEngine(t *testing.T) {
	s := newTestStore(t)
	scriptPath := filepath.Join(t.TempDir(), "mission.tx")
	if err := os.WriteFile(scriptPath, []byte("assert nav.At"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	e := NewRecordingEngine("navigator", s, nil)
	if !e.IsConsistent() {
		t.Fatal("fresh engine should be consistent")
	}
	if err := e.PlayTransactions(scriptPath); err != nil {
		t.Fatalf("PlayTransactions: %v", err)
	}
	if !e.IsConsistent() {
		t.Fatal("engine inconsistent after successful apply")
	}

	if err := e.PlayTransactions(filepath.Join(t.TempDir(), "missing.tx")); err == nil {
		t.Fatal("expected error for missing script")
	}
	if e.IsConsistent() {
		t.Fatal("engine should be inconsistent after failed apply")
	}

	if err := e.WriteSnapshot(3, 0); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if n := s.CountSnapshots("navigator"); n != 1 {
		t.Fatalf("got %d snapshots, want 1", n)
	}
}
