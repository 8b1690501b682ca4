// scripted.go implements the scripted reactor kind.
//
// A scripted reactor replays configured observations on its internal
// timelines: at each tick it publishes, per timeline, the most recent
// script entry at or before the tick (or Undefined before the first
// entry). It accepts goals whose [Start, End] range intersects its
// dispatch window and consumes one pending goal per deliberation slice, which
// makes the full synchronize/deliberate/request/recall path observable
// without a symbolic planner.
package reactor

import (
	"sort"

	"github.com/google/uuid"

	"github.com/automenta/trex-autonomy/pkg/assembly"
	"github.com/automenta/trex-autonomy/pkg/bus"
	"github.com/automenta/trex-autonomy/pkg/config"
	"github.com/automenta/trex-autonomy/pkg/domain"
	"github.com/automenta/trex-autonomy/pkg/model"
)

// UndefinedPredicate is published for an internal timeline before its
// first scripted entry holds.
const UndefinedPredicate = "Undefined"

// Scripted replays configured observations and absorbs goals.
type Scripted struct {
	*Base

	externals []string
	internals []string
	script    []config.ScriptEntry
	engine    assembly.Engine
	modelPath string

	// pendingGoals holds accepted goals awaiting a deliberation slice;
	// active holds goals the planner currently considers.
	pendingGoals []*model.Goal
	active       map[uuid.UUID]*model.Goal
	attempts     int

	// received accumulates external observations folded in at
	// synchronize, newest last.
	received []model.Observation
}

// NewScripted builds a scripted reactor from its configuration.
func NewScripted(cfg *config.Reactor, deps Deps) (Reactor, error) {
	base, err := NewBase(cfg, deps.Logger)
	if err != nil {
		return nil, err
	}
	s := &Scripted{
		Base:      base,
		externals: cfg.Externals,
		internals: cfg.Internals,
		script:    cfg.Script,
		modelPath: cfg.Model,
		active:    make(map[uuid.UUID]*model.Goal),
	}
	if cfg.Model != "" && deps.NewEngine != nil {
		s.engine, err = deps.NewEngine(cfg.Name, cfg.Model)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RegisterBuiltins registers the reactor kinds the executive ships with.
func RegisterBuiltins(reg *Registry) error {
	return reg.Register("scripted", NewScripted)
}

// QueryTimelineModes returns the configured timeline sets.
func (s *Scripted) QueryTimelineModes() (externals, internals []string) {
	return s.externals, s.internals
}

// HandleInit records the capability set and plays the transaction model
// into the engine, when one is configured.
func (s *Scripted) HandleInit(initialTick model.Tick, servers map[string]bus.Server, observer bus.Observer) error {
	if err := s.Base.HandleInit(initialTick, servers, observer); err != nil {
		return err
	}
	if s.engine != nil {
		if err := s.engine.PlayTransactions(s.modelPath); err != nil {
			return err
		}
	}
	return nil
}

// Synchronize folds buffered external observations into the model and
// publishes one observation per internal timeline for the current tick.
func (s *Scripted) Synchronize() model.Result {
	tick := s.CurrentTick()
	for _, o := range s.TakePending() {
		s.received = append(s.received, o)
		if s.ShouldLog() {
			s.Logf("observed %s", model.ObservationString(o, tick))
		}
	}
	for _, timeline := range s.internals {
		s.Publish(s.observationAt(timeline, tick))
	}
	return model.OK()
}

// observationAt resolves the scripted value of timeline at tick: the
// entry with the greatest entry.Tick <= tick wins.
func (s *Scripted) observationAt(timeline string, tick model.Tick) model.Observation {
	var best *config.ScriptEntry
	for i := range s.script {
		e := &s.script[i]
		if e.Timeline != timeline || e.Tick > tick {
			continue
		}
		if best == nil || e.Tick > best.Tick {
			best = e
		}
	}
	if best == nil {
		return model.NewObservation(timeline, UndefinedPredicate)
	}
	obs := model.NewObservation(timeline, best.Predicate)
	for _, name := range sortedKeys(best.Params) {
		obs.Push(name, domain.NewSingleton("string", domain.SymbolVal(best.Params[name])))
	}
	return obs
}

// HasWork reports whether a goal still awaits a deliberation slice.
func (s *Scripted) HasWork() bool { return len(s.pendingGoals) > 0 }

// Resume plans one pending goal and, when an engine is attached, dumps a
// snapshot for this (tick, attempt).
func (s *Scripted) Resume() model.Result {
	if len(s.pendingGoals) == 0 {
		return model.OK()
	}
	g := s.pendingGoals[0]
	s.pendingGoals = s.pendingGoals[1:]
	if _, stillWanted := s.active[g.ID]; !stillWanted {
		// Recalled before its slice came up.
		return model.OK()
	}
	if s.ShouldLog() {
		s.Logf("planned goal %s", g)
	}
	attempt := s.attempts
	s.attempts++
	if s.engine != nil {
		if err := s.engine.WriteSnapshot(s.CurrentTick(), attempt); err != nil {
			return model.Fail(model.FailureDeliberation, "snapshot: %v", err)
		}
	}
	return model.OK()
}

// Request accepts a goal on an internal timeline when its [Start, End]
// range intersects the dispatch window.
func (s *Scripted) Request(g *model.Goal) model.Result {
	if !s.ownsTimeline(g.Token.Timeline) {
		return model.Fail(model.FailureRejected, "%s does not own timeline %q", s.Name(), g.Token.Timeline)
	}
	lo, hi := DispatchWindow(s.Latency(), s.LookAhead(), s.CurrentTick())
	if g.Token.End < lo {
		return model.Fail(model.FailureRejected, "goal %s ends before the dispatch window opens at %d", g, lo)
	}
	if g.Token.Start > hi {
		return model.Fail(model.FailureRejected, "goal %s starts after the dispatch window closes at %d", g, hi)
	}
	s.active[g.ID] = g
	s.pendingGoals = append(s.pendingGoals, g)
	if s.ShouldLog() {
		s.Logf("request received: %s", g)
	}
	return model.OK()
}

// Recall drops the goal; a pending slice for it becomes a no-op.
func (s *Scripted) Recall(g *model.Goal) {
	delete(s.active, g.ID)
	if s.ShouldLog() {
		s.Logf("recall received: %s", g)
	}
}

// ActiveGoals returns the goals the planner currently considers.
func (s *Scripted) ActiveGoals() []*model.Goal {
	out := make([]*model.Goal, 0, len(s.active))
	for _, g := range s.active {
		out = append(out, g)
	}
	return out
}

// Received returns the external observations folded in so far.
func (s *Scripted) Received() []model.Observation { return s.received }

func (s *Scripted) ownsTimeline(timeline string) bool {
	for _, tl := range s.internals {
		if tl == timeline {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
