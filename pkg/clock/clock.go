// Package clock implements the tick sources that pace the executive.
//
// A clock produces a monotonically non-decreasing tick index each time
// the orchestrator polls it. Two implementations share the interface:
//
//   - StepClock advances the visible tick every fixed number of polls,
//     independent of wall time. Used for replay and tests: the same poll
//     sequence always yields the same tick sequence.
//   - RealTimeClock derives the tick from wall time elapsed since Start,
//     at a fixed period per tick.
//
// On every tick advance the clock folds the process rusage delta into its
// per-tick and cumulative counters, so the orchestrator can attribute
// consumption tick by tick.
package clock

import (
	"sync"
	"time"

	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

// Clock is the tick source driven by the orchestrator's main loop.
type Clock interface {
	// Start latches the clock's epoch. Must be called once before the
	// first NextTick.
	Start()

	// NextTick returns the current tick index. Never decreases.
	NextTick() model.Tick

	// SecondsPerTick returns the nominal tick duration in seconds.
	// Constant for the clock's lifetime.
	SecondsPerTick() float64

	// SleepDelay returns how long the main loop should sleep while
	// polling with no work pending.
	SleepDelay() time.Duration

	// TotalStat returns process consumption accumulated since Start.
	TotalStat() stats.Usage

	// LastTickStat returns process consumption during the last completed
	// tick.
	LastTickStat() stats.Usage
}

// procStats tracks the per-tick process consumption deltas shared by both
// clock implementations. Folded on every tick advance.
type procStats struct {
	primed bool
	last   stats.Snapshot
	total  stats.Usage
	diff   stats.Usage
}

func (p *procStats) advance() {
	snap := stats.Take()
	if p.primed {
		p.diff = snap.Sub(p.last)
		p.total.Accrue(p.diff)
	}
	p.primed = true
	p.last = snap
}

// StepClock is the deterministic clock: the visible tick advances every
// stepsPerTick polls, guaranteeing a fixed number of deliberation polls
// per tick regardless of wall time.
type StepClock struct {
	sleep        time.Duration
	stepsPerTick int64

	internal int64
	tick     model.Tick
	ps       procStats
}

// NewStepClock builds a step clock. stepsPerTick values below 1 are
// clamped to 1.
func NewStepClock(sleep time.Duration, stepsPerTick int) *StepClock {
	if stepsPerTick < 1 {
		stepsPerTick = 1
	}
	return &StepClock{sleep: sleep, stepsPerTick: int64(stepsPerTick)}
}

// Start primes the process accounting.
func (c *StepClock) Start() { c.ps.advance() }

// NextTick counts the poll and returns floor(polls/stepsPerTick).
func (c *StepClock) NextTick() model.Tick {
	current := model.Tick(c.internal / c.stepsPerTick)
	if current > c.tick {
		c.tick = current
		c.ps.advance()
	}
	c.internal++
	return c.tick
}

func (c *StepClock) SecondsPerTick() float64 { return 1.0 }
func (c *StepClock) SleepDelay() time.Duration { return c.sleep }
func (c *StepClock) TotalStat() stats.Usage { return c.ps.total }
func (c *StepClock) LastTickStat() stats.Usage { return c.ps.diff }

// RealTimeClock derives the tick from wall time:
// tick = floor((now - epoch) / period). Its state is lock-protected so
// NextTick, SecondsPerTick and SleepDelay stay mutually consistent while
// the orchestrator polls.
type RealTimeClock struct {
	mu     sync.Mutex
	period time.Duration

	started bool
	epoch   time.Time
	tick    model.Tick
	ps      procStats

	// now is the time source; replaced in tests.
	now func() time.Time
}

// NewRealTimeClock builds a wall-clock-driven tick source with the given
// period per tick.
func NewRealTimeClock(period time.Duration) *RealTimeClock {
	return &RealTimeClock{period: period, now: time.Now}
}

// Start latches the epoch. Ticks before Start are reported as 0.
func (c *RealTimeClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.epoch = c.now()
	c.ps.advance()
}

// NextTick computes the tick from elapsed wall time, folding the process
// stats delta whenever the tick has advanced.
func (c *RealTimeClock) NextTick() model.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	current := model.Tick(c.now().Sub(c.epoch) / c.period)
	if current > c.tick {
		c.tick = current
		c.ps.advance()
	}
	return c.tick
}

// SecondsPerTick returns the period in seconds.
func (c *RealTimeClock) SecondsPerTick() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period.Seconds()
}

// SleepDelay returns the time left to the next tick boundary, clamped to
// non-negative.
func (c *RealTimeClock) SleepDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return c.period
	}
	boundary := c.epoch.Add(time.Duration(int64(c.tick)+1) * c.period)
	left := boundary.Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *RealTimeClock) TotalStat() stats.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ps.total
}

func (c *RealTimeClock) LastTickStat() stats.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ps.diff
}
