// runner.go wraps each reactor with the orchestrator-side accounting.
//
// The agent never calls Synchronize or Resume directly: the runner's Do
// variants accrue CPU usage into per-reactor counters and maintain the
// per-tick call counts, which reset when the tick starts.
package reactor

import (
	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

// Runner couples a reactor with its scheduling state.
type Runner struct {
	Reactor

	priority int

	syncUsage   stats.Usage
	searchUsage stats.Usage
	syncCount   int
	searchCount int

	// syncFailures counts consecutive synchronization (or resume)
	// failures; the agent's recovery policy reads and resets it.
	syncFailures int
}

// NewRunner wraps a reactor.
func NewRunner(r Reactor) *Runner { return &Runner{Reactor: r} }

// Priority returns the dependency priority assigned by the sort.
func (r *Runner) Priority() int { return r.priority }

// DoHandleTickStart resets the per-tick counters and forwards.
func (r *Runner) DoHandleTickStart(tick model.Tick) {
	r.syncCount = 0
	r.searchCount = 0
	r.syncUsage.Reset()
	r.searchUsage.Reset()
	r.HandleTickStart(tick)
}

// DoSynchronize runs one synchronize under CPU measurement.
func (r *Runner) DoSynchronize() model.Result {
	r.syncCount++
	lap := stats.StartLap(&r.syncUsage)
	defer lap.Stop()
	return r.Synchronize()
}

// DoResume runs one deliberation slice under CPU measurement.
func (r *Runner) DoResume() model.Result {
	r.searchCount++
	lap := stats.StartLap(&r.searchUsage)
	defer lap.Stop()
	return r.Resume()
}

// SyncUsage returns this tick's synchronization consumption.
func (r *Runner) SyncUsage() stats.Usage { return r.syncUsage }

// SearchUsage returns this tick's deliberation consumption.
func (r *Runner) SearchUsage() stats.Usage { return r.searchUsage }

// SyncCount and SearchCount return this tick's call counts.
func (r *Runner) SyncCount() int { return r.syncCount }
func (r *Runner) SearchCount() int { return r.searchCount }

// NoteFailure bumps the consecutive failure count and returns it.
func (r *Runner) NoteFailure() int {
	r.syncFailures++
	return r.syncFailures
}

// ClearFailures resets the consecutive failure count after a clean
// synchronize.
func (r *Runner) ClearFailures() { r.syncFailures = 0 }
