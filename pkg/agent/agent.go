// Package agent implements the tick orchestrator.
//
// The agent owns the clock, the bus and the reactors. Every tick has two
// sub-phases: a mandatory synchronization pass over the reactors in
// dependency order, then a best-effort deliberation phase that hands out
// bounded resume slices until the clock reports the next tick. All of it
// runs on one goroutine; a reactor gives control back by returning, never
// by being preempted.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/automenta/trex-autonomy/pkg/assembly"
	"github.com/automenta/trex-autonomy/pkg/bus"
	"github.com/automenta/trex-autonomy/pkg/clock"
	"github.com/automenta/trex-autonomy/pkg/config"
	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/monitor"
	"github.com/automenta/trex-autonomy/pkg/reactor"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

// Options carries the services an agent is built around. Zero values get
// sensible defaults; tests inject their own.
type Options struct {
	// Logger receives the agent trace. Defaults to stderr.
	Logger *log.Logger

	// Registry supplies reactor factories. Defaults to a registry with
	// the built-in kinds.
	Registry *reactor.Registry

	// Clock overrides the configured clock. Used by tests to drive the
	// loop deterministically.
	Clock clock.Clock

	// Store, when set, records dispatches, tick stats and snapshots.
	Store *assembly.Store

	// Monitor collects per-tick timing history. Defaults to a fresh one.
	Monitor *monitor.Monitor
}

// Agent orchestrates a set of reactors over a shared clock.
type Agent struct {
	name         string
	clk          clock.Clock
	router       *bus.Router
	reactors     []*reactor.Runner
	byName       map[string]*reactor.Runner
	mon          *monitor.Monitor
	store        *assembly.Store
	logger       *log.Logger
	finalTick    model.Tick
	failureLimit int

	tick model.Tick
}

// New builds and fully wires an agent: reactors are constructed from
// configuration, priority-sorted, registered on the bus and initialized.
// Every error here is a configuration error; no tick has run yet.
func New(cfg *config.Agent, opts Options) (*Agent, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, cfg.Name+" ", log.LstdFlags)
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.New()
	}
	if opts.Registry == nil {
		opts.Registry = reactor.NewRegistry()
		if err := reactor.RegisterBuiltins(opts.Registry); err != nil {
			return nil, err
		}
	}

	a := &Agent{
		name:         cfg.Name,
		mon:          opts.Monitor,
		store:        opts.Store,
		logger:       opts.Logger,
		finalTick:    cfg.FinalTick,
		failureLimit: cfg.SyncFailureLimit,
		byName:       make(map[string]*reactor.Runner),
	}

	a.clk = opts.Clock
	if a.clk == nil {
		var err error
		a.clk, err = buildClock(&cfg.Clock)
		if err != nil {
			return nil, err
		}
	}

	deps := reactor.Deps{Logger: opts.Logger}
	if opts.Store != nil {
		deps.NewEngine = func(reactorName, modelPath string) (assembly.Engine, error) {
			return assembly.NewRecordingEngine(reactorName, opts.Store, nil), nil
		}
		a.mon.SetSink(opts.Store)
	}

	for i := range cfg.Reactors {
		r, err := opts.Registry.Create(&cfg.Reactors[i], deps)
		if err != nil {
			return nil, err
		}
		runner := reactor.NewRunner(r)
		a.reactors = append(a.reactors, runner)
		a.byName[r.Name()] = runner
	}

	owners, err := reactor.BuildOwnerMap(a.reactors)
	if err != nil {
		return nil, err
	}
	if err := reactor.AssignPriorities(a.reactors, owners); err != nil {
		return nil, err
	}

	a.router = bus.NewRouter(a.CurrentTick, a.logger)
	if opts.Store != nil {
		a.router.SetRecorder(opts.Store)
	}

	// Owners first so every external can be resolved during init.
	for _, r := range a.reactors {
		_, internals := r.QueryTimelineModes()
		for _, tl := range internals {
			if !a.router.RegisterOwner(tl, r.Name(), r) {
				return nil, fmt.Errorf("timeline %q has two owners", tl)
			}
		}
	}

	for _, r := range a.reactors {
		externals, _ := r.QueryTimelineModes()
		servers := make(map[string]bus.Server, len(externals))
		for _, tl := range externals {
			a.router.Subscribe(tl, r)
			servers[tl] = a.router.Owner(tl)
		}
		if err := r.HandleInit(0, servers, bus.ObserverFunc(a.router.Publish)); err != nil {
			return nil, fmt.Errorf("init reactor %q: %w", r.Name(), err)
		}
	}

	return a, nil
}

func buildClock(cfg *config.Clock) (clock.Clock, error) {
	switch cfg.Kind {
	case "step":
		sleep := time.Duration(cfg.SleepSeconds * float64(time.Second))
		return clock.NewStepClock(sleep, cfg.StepsPerTick), nil
	case "realtime":
		period := time.Duration(cfg.SecondsPerTick * float64(time.Second))
		return clock.NewRealTimeClock(period), nil
	}
	return nil, fmt.Errorf("unknown clock kind %q", cfg.Kind)
}

// CurrentTick returns the tick the agent is executing.
func (a *Agent) CurrentTick() model.Tick { return a.tick }

// Clock returns the agent's tick source.
func (a *Agent) Clock() clock.Clock { return a.clk }

// Monitor returns the agent's performance monitor.
func (a *Agent) Monitor() *monitor.Monitor { return a.mon }

// ReactorNames returns the reactor names in synchronization order.
func (a *Agent) ReactorNames() []string {
	names := make([]string, len(a.reactors))
	for i, r := range a.reactors {
		names[i] = r.Name()
	}
	return names
}

// Reactor returns the named reactor, or nil.
func (a *Agent) Reactor(name string) reactor.Reactor {
	if r, ok := a.byName[name]; ok {
		return r.Reactor
	}
	return nil
}

// PostGoal submits a goal to the owner of its timeline on behalf of
// client. External mission tooling uses this; reactors use their servers.
func (a *Agent) PostGoal(client string, g *model.Goal) model.Result {
	return a.router.Request(client, g)
}

// RecallGoal retracts a previously posted goal.
func (a *Agent) RecallGoal(client string, g *model.Goal) {
	a.router.Recall(client, g)
}

// Run executes the mission until the final tick passes or ctx is
// cancelled. Cancellation is honored between ticks and between
// deliberation slices, never inside one.
func (a *Agent) Run(ctx context.Context) error {
	a.clk.Start()
	started := false

	for {
		if ctx.Err() != nil {
			if started {
				a.closeTick()
			}
			a.logger.Printf("[%s] shutdown requested at tick %d", a.name, a.tick)
			return nil
		}

		tick := a.clk.NextTick()
		if tick > a.finalTick {
			if started {
				a.closeTick()
			}
			a.logger.Printf("[%s] mission complete at tick %d", a.name, a.finalTick)
			return nil
		}

		if !started || tick > a.tick {
			if started {
				a.closeTick()
			}
			started = true
			a.tick = tick
			if err := a.beginTick(tick); err != nil {
				return err
			}
			continue
		}

		// Deliberation: one slice for the most upstream reactor with
		// work, then back to the clock so the tick boundary is never
		// overrun.
		if r := a.nextWorker(); r != nil {
			res := r.DoResume()
			if res.Failed {
				if err := a.noteFailure(r, res); err != nil {
					return err
				}
			}
			continue
		}
		time.Sleep(a.clk.SleepDelay())
	}
}

// beginTick runs the tick-start and synchronization phases in priority
// order.
func (a *Agent) beginTick(tick model.Tick) error {
	for _, r := range a.reactors {
		r.DoHandleTickStart(tick)
	}
	for _, r := range a.reactors {
		res := r.DoSynchronize()
		if res.Failed {
			if err := a.noteFailure(r, res); err != nil {
				return err
			}
			continue
		}
		r.ClearFailures()
	}
	return nil
}

// closeTick aggregates the finished tick's per-reactor usage into the
// monitor.
func (a *Agent) closeTick() {
	var sync, delib stats.Usage
	for _, r := range a.reactors {
		sync.Accrue(r.SyncUsage())
		delib.Accrue(r.SearchUsage())
	}
	a.mon.AddTickData(monitor.TickData{Tick: a.tick, Sync: sync, Deliberation: delib})
}

// nextWorker returns the first reactor in synchronization order that
// wants a deliberation slice.
func (a *Agent) nextWorker() *reactor.Runner {
	for _, r := range a.reactors {
		if r.HasWork() {
			return r
		}
	}
	return nil
}

// noteFailure applies the recovery policy: log, count, and stop the
// mission once a reactor fails too many consecutive times.
func (a *Agent) noteFailure(r *reactor.Runner, res model.Result) error {
	n := r.NoteFailure()
	a.logger.Printf("[%s][%d] %s failure %d/%d: %s", a.name, a.tick, r.Name(), n, a.failureLimit, res)
	if n >= a.failureLimit {
		return fmt.Errorf("reactor %q reached the failure limit (%d consecutive): %s",
			r.Name(), a.failureLimit, res.Message)
	}
	return nil
}
