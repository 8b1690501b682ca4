// Package bus routes observations and goals between reactors.
//
// There is no broker and no queue: dispatch is direct per-timeline
// fan-out on the caller's goroutine. At init time each reactor receives
// an Observer sink for publishing its internal timelines and a Server
// handle per external timeline for submitting goals to that timeline's
// owner. Both are capability sets over the router's tables; the owner's
// handler runs before the call returns.
//
// Records for unknown timelines are logged and dropped. External tools
// replaying old logs may emit stale names, so this is never fatal.
package bus

import (
	"log"

	"github.com/automenta/trex-autonomy/pkg/model"
)

// Observer accepts observations. A reactor publishes its internal
// timelines through the Observer it was handed at init; subscribers
// implement Observer to receive them.
type Observer interface {
	Notify(o model.Observation)
}

// Server accepts goals for the timelines its reactor owns, and exposes
// the dispatch-window bounds a client needs to decide when to commit.
type Server interface {
	// Request hands a goal to the owner. The owner may reject it.
	Request(g *model.Goal) model.Result
	// Recall retracts a previously requested goal, matched by identity.
	Recall(g *model.Goal)
	// Latency is the minimum delay, in ticks, from request to earliest
	// achievable start.
	Latency() model.Tick
	// LookAhead is how far past the current tick the owner will commit.
	LookAhead() model.Tick
}

// Recorder persists dispatched records. Satisfied by the assembly log
// store; nil disables recording.
type Recorder interface {
	RecordObservation(tick model.Tick, owner string, o model.Observation) error
	RecordRequest(tick model.Tick, client string, g *model.Goal) error
	RecordRecall(tick model.Tick, client string, g *model.Goal) error
}

// Router owns the timeline tables: one owner per timeline, any number of
// subscribers. Populated during agent init, read-mostly afterwards. All
// dispatch happens on the orchestrator goroutine.
type Router struct {
	owners      map[string]Server
	ownerNames  map[string]string
	subscribers map[string][]Observer

	tick     func() model.Tick
	logger   *log.Logger
	recorder Recorder
}

// NewRouter builds an empty router. tick supplies the current tick for
// record stamping; logger receives routing errors and, when a recorder is
// attached, nothing else.
func NewRouter(tick func() model.Tick, logger *log.Logger) *Router {
	return &Router{
		owners:      make(map[string]Server),
		ownerNames:  make(map[string]string),
		subscribers: make(map[string][]Observer),
		tick:        tick,
		logger:      logger,
	}
}

// SetRecorder attaches a dispatch recorder.
func (r *Router) SetRecorder(rec Recorder) { r.recorder = rec }

// RegisterOwner declares srv the owner of timeline. A timeline has
// exactly one owner; re-registration is a configuration error surfaced
// by the agent before any tick runs.
func (r *Router) RegisterOwner(timeline, ownerName string, srv Server) bool {
	if _, taken := r.owners[timeline]; taken {
		return false
	}
	r.owners[timeline] = srv
	r.ownerNames[timeline] = ownerName
	return true
}

// Subscribe adds obs to the fan-out list of timeline.
func (r *Router) Subscribe(timeline string, obs Observer) {
	r.subscribers[timeline] = append(r.subscribers[timeline], obs)
}

// Owner returns the Server owning timeline, or nil.
func (r *Router) Owner(timeline string) Server { return r.owners[timeline] }

// OwnerName returns the owning reactor's name, or "".
func (r *Router) OwnerName(timeline string) string { return r.ownerNames[timeline] }

// HasTimeline reports whether timeline has a registered owner.
func (r *Router) HasTimeline(timeline string) bool {
	_, ok := r.owners[timeline]
	return ok
}

// Publish fans an observation out to every subscriber of its timeline.
// The owner calls this, through its init-time Observer, strictly during
// its synchronize for the current tick, so every subscriber holds the
// record before its own synchronize runs.
func (r *Router) Publish(o model.Observation) {
	timeline := o.Timeline()
	if !r.HasTimeline(timeline) {
		r.logger.Printf("bus: dropping observation for unknown timeline %q", timeline)
		return
	}
	if r.recorder != nil {
		_ = r.recorder.RecordObservation(r.tick(), r.ownerNames[timeline], o)
	}
	for _, sub := range r.subscribers[timeline] {
		sub.Notify(o)
	}
}

// Request routes a goal to the owner of its timeline and runs the
// owner's handler synchronously. An unknown timeline is logged and the
// goal dropped.
func (r *Router) Request(client string, g *model.Goal) model.Result {
	owner, ok := r.owners[g.Token.Timeline]
	if !ok {
		r.logger.Printf("bus: dropping request %s for unknown timeline %q", g, g.Token.Timeline)
		return model.Fail(model.FailureRejected, "no owner for timeline %q", g.Token.Timeline)
	}
	if r.recorder != nil {
		_ = r.recorder.RecordRequest(r.tick(), client, g)
	}
	return owner.Request(g)
}

// Recall routes a goal retraction to the owner of its timeline.
func (r *Router) Recall(client string, g *model.Goal) {
	owner, ok := r.owners[g.Token.Timeline]
	if !ok {
		r.logger.Printf("bus: dropping recall %s for unknown timeline %q", g, g.Token.Timeline)
		return
	}
	if r.recorder != nil {
		_ = r.recorder.RecordRecall(r.tick(), client, g)
	}
	owner.Recall(g)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(o model.Observation)

func (f ObserverFunc) Notify(o model.Observation) { f(o) }
