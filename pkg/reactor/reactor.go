// Package reactor defines the teleo-reactor contract and its
// orchestrator-side plumbing.
//
// A reactor is the unit of deliberation: it owns a set of internal
// timelines, subscribes to external ones, and is driven by the agent
// through a fixed per-tick protocol — tick start, one synchronize, then
// zero or more bounded resume slices. Reactors never call each other;
// everything crosses the bus.
package reactor

import (
	"errors"
	"fmt"
	"log"

	"github.com/automenta/trex-autonomy/pkg/bus"
	"github.com/automenta/trex-autonomy/pkg/config"
	"github.com/automenta/trex-autonomy/pkg/model"
)

var (
	// ErrNotFound is returned by the registry for an unknown reactor kind.
	ErrNotFound = errors.New("reactor kind not registered")
	// ErrDuplicate is returned when a kind is registered twice.
	ErrDuplicate = errors.New("reactor kind already registered")
	// ErrCycle is returned when the reactor dependency graph has a cycle.
	ErrCycle = errors.New("cycle in reactor dependency graph")
)

// Reactor is the contract every deliberative unit implements. All calls
// arrive on the orchestrator goroutine.
type Reactor interface {
	// Name is unique within the agent.
	Name() string

	// QueryTimelineModes returns the (externals, internals) timeline
	// sets. Stable for the reactor's lifetime.
	QueryTimelineModes() (externals, internals []string)

	// HandleInit is called once before the first tick. servers maps each
	// external timeline to its owner's goal channel; observer is the
	// sink the reactor publishes its internal timelines through.
	HandleInit(initialTick model.Tick, servers map[string]bus.Server, observer bus.Observer) error

	// HandleTickStart is called at the start of every tick, before any
	// reactor synchronizes.
	HandleTickStart(tick model.Tick)

	// Synchronize reconciles the reactor's model with the observations
	// received so far for the current tick and publishes one observation
	// per internal timeline.
	Synchronize() model.Result

	// HasWork reports whether the reactor wants another resume slice
	// this tick.
	HasWork() bool

	// Resume performs one bounded deliberation slice.
	Resume() model.Result

	// Notify delivers an observation on a subscribed external timeline.
	Notify(o model.Observation)

	// Request accepts a goal on an internal timeline.
	Request(g *model.Goal) model.Result

	// Recall retracts a previously accepted goal, matched by identity.
	Recall(g *model.Goal)

	// Latency and LookAhead are constant for the reactor's lifetime,
	// with Latency <= LookAhead.
	Latency() model.Tick
	LookAhead() model.Tick

	// ShouldLog reports whether this reactor writes its own trace lines.
	// Dispatch recording is agent-wide and does not consult it.
	ShouldLog() bool
}

// Base carries the plumbing shared by reactor implementations: identity,
// horizon bounds, the init-time capability set, and the notification
// buffer. Embed it and override the protocol methods.
type Base struct {
	name      string
	latency   model.Tick
	lookAhead model.Tick
	shouldLog bool
	logger    *log.Logger

	observer bus.Observer
	servers  map[string]bus.Server
	tick     model.Tick

	// pending buffers notifications until the next synchronize. An
	// observation arriving after this reactor already synchronized the
	// current tick is folded into the next one.
	pending []model.Observation
}

// NewBase builds the shared plumbing from a validated reactor config.
func NewBase(cfg *config.Reactor, logger *log.Logger) (*Base, error) {
	latency, lookAhead := cfg.GetLatency(), cfg.GetLookAhead()
	if latency > lookAhead {
		return nil, fmt.Errorf("reactor %q: latency %d > lookAhead %d", cfg.Name, latency, lookAhead)
	}
	return &Base{
		name:      cfg.Name,
		latency:   latency,
		lookAhead: lookAhead,
		shouldLog: cfg.ShouldLog(),
		logger:    logger,
	}, nil
}

func (b *Base) Name() string { return b.name }
func (b *Base) Latency() model.Tick { return b.latency }
func (b *Base) LookAhead() model.Tick { return b.lookAhead }
func (b *Base) ShouldLog() bool { return b.shouldLog }

// HandleInit records the capability set.
func (b *Base) HandleInit(initialTick model.Tick, servers map[string]bus.Server, observer bus.Observer) error {
	b.tick = initialTick
	b.servers = servers
	b.observer = observer
	return nil
}

// HandleTickStart records the new tick.
func (b *Base) HandleTickStart(tick model.Tick) { b.tick = tick }

// CurrentTick returns the tick most recently announced to this reactor.
func (b *Base) CurrentTick() model.Tick { return b.tick }

// Notify buffers the observation for the next synchronize.
func (b *Base) Notify(o model.Observation) {
	b.pending = append(b.pending, o)
}

// TakePending drains the notification buffer. Called from Synchronize.
func (b *Base) TakePending() []model.Observation {
	p := b.pending
	b.pending = nil
	return p
}

// Publish emits an observation for one of this reactor's internal
// timelines through the init-time sink.
func (b *Base) Publish(o model.Observation) {
	if b.observer == nil {
		b.logger.Printf("%s dropping publish before init: %s", b.prefix(), o.Timeline())
		return
	}
	b.observer.Notify(o)
}

// Server returns the goal channel for an external timeline, or nil.
func (b *Base) Server(timeline string) bus.Server { return b.servers[timeline] }

// Logf writes a line under this reactor's [name][tick] prefix.
func (b *Base) Logf(format string, args ...interface{}) {
	b.logger.Printf(b.prefix()+" "+format, args...)
}

func (b *Base) prefix() string {
	return fmt.Sprintf("[%s][%d]", b.name, b.tick)
}
