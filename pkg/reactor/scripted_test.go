package reactor

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/automenta/trex-autonomy/pkg/bus"
	"github.com/automenta/trex-autonomy/pkg/config"
	"github.com/automenta/trex-autonomy/pkg/model"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func scriptedConfig(name string) *config.Reactor {
	lat, ahead := model.Tick(1), model.Tick(10)
	return &config.Reactor{
		Name:      name,
		Kind:      "scripted",
		Latency:   &lat,
		LookAhead: &ahead,
		Internals: []string{"nav"},
		Script: []config.ScriptEntry{
			{Tick: 0, Timeline: "nav", Predicate: "Idle"},
			{Tick: 3, Timeline: "nav", Predicate: "Transit", Params: map[string]string{"wp": "alpha"}},
		},
	}
}

// capture records observations published through the reactor's sink.
type capture struct {
	seen []model.Observation
}

func (c *capture) Notify(o model.Observation) { c.seen = append(c.seen, o) }

func newScripted(t *testing.T, cfg *config.Reactor) (*Scripted, *capture) {
	t.Helper()
	r, err := NewScripted(cfg, Deps{Logger: discard()})
	if err != nil {
		t.Fatalf("NewScripted: %v", err)
	}
	s := r.(*Scripted)
	sink := &capture{}
	if err := s.HandleInit(0, nil, sink); err != nil {
		t.Fatalf("HandleInit: %v", err)
	}
	return s, sink
}

func TestScriptedPublishesLatestEntry(t *testing.T) {
	s, sink := newScripted(t, scriptedConfig("navigator"))

	for _, tc := range []struct {
		tick model.Tick
		want string
	}{
		{0, "Idle"}, {1, "Idle"}, {2, "Idle"}, {3, "Transit"}, {4, "Transit"},
	} {
		sink.seen = nil
		s.HandleTickStart(tc.tick)
		if res := s.Synchronize(); res.Failed {
			t.Fatalf("tick %d: Synchronize: %s", tc.tick, res)
		}
		if len(sink.seen) != 1 {
			t.Fatalf("tick %d: published %d observations, want 1", tc.tick, len(sink.seen))
		}
		if got := sink.seen[0].Predicate(); got != tc.want {
			t.Fatalf("tick %d: got %s, want %s", tc.tick, got, tc.want)
		}
	}
}

func TestScriptedUndefinedBeforeFirstEntry(t *testing.T) {
	cfg := scriptedConfig("navigator")
	cfg.Script = cfg.Script[1:] // first entry now at tick 3
	s, sink := newScripted(t, cfg)

	s.HandleTickStart(1)
	s.Synchronize()
	if got := sink.seen[0].Predicate(); got != UndefinedPredicate {
		t.Fatalf("got %s, want %s", got, UndefinedPredicate)
	}
}

func TestScriptedParamsAreStableSymbols(t *testing.T) {
	s, sink := newScripted(t, scriptedConfig("navigator"))
	s.HandleTickStart(3)
	s.Synchronize()

	o := sink.seen[0]
	if o.ParameterCount() != 1 {
		t.Fatalf("got %d params, want 1", o.ParameterCount())
	}
	p := o.Parameter(0)
	v, err := p.Domain.Singleton()
	if err != nil {
		t.Fatalf("Singleton: %v", err)
	}
	if p.Name != "wp" || v.S != "alpha" {
		t.Fatalf("got (%s, %s), want (wp, alpha)", p.Name, v.S)
	}
}

func TestScriptedGoalLifecycle(t *testing.T) {
	s, _ := newScripted(t, scriptedConfig("navigator"))
	s.HandleTickStart(2)

	g := model.NewGoal(&model.Token{Timeline: "nav", Predicate: "At", Start: 5, End: 9})
	if res := s.Request(g); res.Failed {
		t.Fatalf("Request: %s", res)
	}
	if !s.HasWork() {
		t.Fatal("accepted goal should create work")
	}

	if res := s.Resume(); res.Failed {
		t.Fatalf("Resume: %s", res)
	}
	if s.HasWork() {
		t.Fatal("work should be consumed by the slice")
	}
	if len(s.ActiveGoals()) != 1 {
		t.Fatalf("got %d active goals, want 1", len(s.ActiveGoals()))
	}

	s.Recall(g)
	if len(s.ActiveGoals()) != 0 {
		t.Fatal("recalled goal still active")
	}
}

func TestScriptedRejectsForeignTimeline(t *testing.T) {
	s, _ := newScripted(t, scriptedConfig("navigator"))
	g := model.NewGoal(&model.Token{Timeline: "other", Predicate: "At", Start: 5, End: 9})
	res := s.Request(g)
	if !res.Failed || res.Kind != model.FailureRejected {
		t.Fatalf("got %s, want rejection", res)
	}
}

func TestScriptedRejectsGoalBehindDispatchWindow(t *testing.T) {
	s, _ := newScripted(t, scriptedConfig("navigator"))
	s.HandleTickStart(8)
	// Window opens at tick 9 (latency 1); this goal is already over.
	g := model.NewGoal(&model.Token{Timeline: "nav", Predicate: "At", Start: 2, End: 4})
	if res := s.Request(g); !res.Failed {
		t.Fatal("expected rejection for a goal entirely in the past")
	}
}

func TestScriptedRecallBeforeSliceIsNoOp(t *testing.T) {
	s, _ := newScripted(t, scriptedConfig("navigator"))
	s.HandleTickStart(2)
	g := model.NewGoal(&model.Token{Timeline: "nav", Predicate: "At", Start: 5, End: 9})
	if res := s.Request(g); res.Failed {
		t.Fatalf("Request: %s", res)
	}
	s.Recall(g)
	if res := s.Resume(); res.Failed {
		t.Fatalf("Resume: %s", res)
	}
	if len(s.ActiveGoals()) != 0 {
		t.Fatal("recalled goal resurrected by its pending slice")
	}
}

func TestRegistryDuplicateAndNotFound(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	err := reg.Register("scripted", NewScripted)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}

	lat := model.Tick(0)
	ahead := model.Tick(5)
	_, err = reg.Create(&config.Reactor{Name: "x", Kind: "mystery", Latency: &lat, LookAhead: &ahead}, Deps{Logger: discard()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestBaseBuffersNotificationsUntilTaken(t *testing.T) {
	lat, ahead := model.Tick(0), model.Tick(5)
	base, err := NewBase(&config.Reactor{Name: "b", Latency: &lat, LookAhead: &ahead}, discard())
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}
	if err := base.HandleInit(0, map[string]bus.Server{}, &capture{}); err != nil {
		t.Fatalf("HandleInit: %v", err)
	}

	base.Notify(model.NewObservation("tl", "A"))
	base.Notify(model.NewObservation("tl", "B"))

	got := base.TakePending()
	if len(got) != 2 || got[0].Predicate() != "A" || got[1].Predicate() != "B" {
		t.Fatalf("got %d buffered, want [A B]", len(got))
	}
	if len(base.TakePending()) != 0 {
		t.Fatal("buffer should drain on take")
	}
}

func TestBaseRejectsLatencyBeyondLookAhead(t *testing.T) {
	lat, ahead := model.Tick(7), model.Tick(3)
	if _, err := NewBase(&config.Reactor{Name: "b", Latency: &lat, LookAhead: &ahead}, discard()); err == nil {
		t.Fatal("expected error for latency > lookAhead")
	}
}
