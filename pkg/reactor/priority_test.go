package reactor

import (
	"errors"
	"testing"

	"github.com/automenta/trex-autonomy/pkg/bus"
	"github.com/automenta/trex-autonomy/pkg/model"
)

// stub is a minimal reactor for wiring tests.
type stub struct {
	name      string
	externals []string
	internals []string
}

func (s *stub) Name() string { return s.name }
func (s *stub) QueryTimelineModes() ([]string, []string) { return s.externals, s.internals }
func (s *stub) HandleTickStart(model.Tick) {}
func (s *stub) Synchronize() model.Result { return model.OK() }
func (s *stub) HasWork() bool { return false }
func (s *stub) Resume() model.Result { return model.OK() }
func (s *stub) Notify(model.Observation) {}
func (s *stub) Request(*model.Goal) model.Result { return model.OK() }
func (s *stub) Recall(*model.Goal) {}
func (s *stub) Latency() model.Tick { return 0 }
func (s *stub) LookAhead() model.Tick { return 1 }
func (s *stub) ShouldLog() bool { return false }
func (s *stub) HandleInit(model.Tick, map[string]bus.Server, bus.Observer) error {
	return nil
}

func runners(stubs ...*stub) []*Runner {
	out := make([]*Runner, len(stubs))
	for i, s := range stubs {
		out[i] = NewRunner(s)
	}
	return out
}

func sortAll(t *testing.T, rs []*Runner) {
	t.Helper()
	owners, err := BuildOwnerMap(rs)
	if err != nil {
		t.Fatalf("BuildOwnerMap: %v", err)
	}
	if err := AssignPriorities(rs, owners); err != nil {
		t.Fatalf("AssignPriorities: %v", err)
	}
}

func TestPriorityChain(t *testing.T) {
	// sensor -> estimator -> pilot, configured out of order.
	rs := runners(
		&stub{name: "pilot", externals: []string{"state"}, internals: []string{"cmd"}},
		&stub{name: "sensor", internals: []string{"raw"}},
		&stub{name: "estimator", externals: []string{"raw"}, internals: []string{"state"}},
	)
	sortAll(t, rs)

	wantOrder := []string{"sensor", "estimator", "pilot"}
	wantPriority := []int{0, 1, 2}
	for i, r := range rs {
		if r.Name() != wantOrder[i] || r.Priority() != wantPriority[i] {
			t.Fatalf("position %d: got (%s, %d), want (%s, %d)",
				i, r.Name(), r.Priority(), wantOrder[i], wantPriority[i])
		}
	}
}

func TestPriorityIsTopological(t *testing.T) {
	// Diamond: fuser depends on both sensors; sensors on the clock.
	rs := runners(
		&stub{name: "fuser", externals: []string{"gps", "dvl"}, internals: []string{"fix"}},
		&stub{name: "gpsd", externals: []string{"time"}, internals: []string{"gps"}},
		&stub{name: "dvld", externals: []string{"time"}, internals: []string{"dvl"}},
		&stub{name: "clock", internals: []string{"time"}},
	)
	sortAll(t, rs)

	index := make(map[string]int)
	for i, r := range rs {
		index[r.Name()] = i
	}
	for _, dep := range [][2]string{
		{"clock", "gpsd"}, {"clock", "dvld"}, {"gpsd", "fuser"}, {"dvld", "fuser"},
	} {
		if index[dep[0]] >= index[dep[1]] {
			t.Fatalf("%s should sort before %s: order %v", dep[0], dep[1], index)
		}
	}
}

func TestEqualPrioritiesKeepConfigurationOrder(t *testing.T) {
	rs := runners(
		&stub{name: "b", internals: []string{"tb"}},
		&stub{name: "a", internals: []string{"ta"}},
		&stub{name: "c", internals: []string{"tc"}},
	)
	sortAll(t, rs)
	want := []string{"b", "a", "c"}
	for i, r := range rs {
		if r.Name() != want[i] {
			t.Fatalf("position %d: got %s, want %s (stable tie-break)", i, r.Name(), want[i])
		}
	}
}

func TestCycleDetection(t *testing.T) {
	rs := runners(
		&stub{name: "x", externals: []string{"y_tl"}, internals: []string{"x_tl"}},
		&stub{name: "y", externals: []string{"x_tl"}, internals: []string{"y_tl"}},
	)
	owners, err := BuildOwnerMap(rs)
	if err != nil {
		t.Fatalf("BuildOwnerMap: %v", err)
	}
	err = AssignPriorities(rs, owners)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("got %v, want ErrCycle", err)
	}
}

func TestSelfCycleDetection(t *testing.T) {
	rs := runners(
		&stub{name: "x", externals: []string{"x_tl"}, internals: []string{"x_tl"}},
	)
	owners, err := BuildOwnerMap(rs)
	if err != nil {
		t.Fatalf("BuildOwnerMap: %v", err)
	}
	if err := AssignPriorities(rs, owners); !errors.Is(err, ErrCycle) {
		t.Fatalf("got %v, want ErrCycle", err)
	}
}

func TestUnownedExternalTimeline(t *testing.T) {
	rs := runners(
		&stub{name: "x", externals: []string{"ghost"}, internals: []string{"x_tl"}},
	)
	owners, err := BuildOwnerMap(rs)
	if err != nil {
		t.Fatalf("BuildOwnerMap: %v", err)
	}
	if err := AssignPriorities(rs, owners); err == nil {
		t.Fatal("expected error for unowned external timeline")
	}
}

func TestDuplicateTimelineOwnership(t *testing.T) {
	rs := runners(
		&stub{name: "a", internals: []string{"tl"}},
		&stub{name: "b", internals: []string{"tl"}},
	)
	if _, err := BuildOwnerMap(rs); err == nil {
		t.Fatal("expected error for duplicate ownership")
	}
}

func TestDispatchWindow(t *testing.T) {
	lo, hi := DispatchWindow(2, 10, 5)
	if lo != 7 || hi != 15 {
		t.Fatalf("got [%d %d], want [7 15]", lo, hi)
	}
}
