// priority.go orders reactors by timeline dependency.
//
// The dependency graph has an edge R -> S whenever R subscribes to a
// timeline S owns. Priority is 0 for reactors with no externals and
// 1 + max(priority of each external's owner) otherwise, so the ascending
// order is a topological order: every reactor synchronizes after the
// reactors it depends on. The recursion depth is bounded by the reactor
// count; exceeding it means the graph has a cycle, which is a fatal
// configuration error.
package reactor

import (
	"fmt"
	"sort"

	"github.com/automenta/trex-autonomy/pkg/model"
)

// BuildOwnerMap indexes reactors by internal timeline. Two reactors
// claiming the same timeline is a configuration error.
func BuildOwnerMap(reactors []*Runner) (map[string]*Runner, error) {
	owners := make(map[string]*Runner)
	for _, r := range reactors {
		_, internals := r.QueryTimelineModes()
		for _, tl := range internals {
			if prev, taken := owners[tl]; taken {
				return nil, fmt.Errorf("timeline %q owned by both %q and %q",
					tl, prev.Name(), r.Name())
			}
			owners[tl] = r
		}
	}
	return owners, nil
}

// AssignPriorities computes each runner's priority and sorts the slice
// ascending. The sort is stable, so reactors of equal priority keep
// their configuration order across runs.
func AssignPriorities(reactors []*Runner, owners map[string]*Runner) error {
	for _, r := range reactors {
		p, err := priorityOf(r, owners, 0, len(reactors))
		if err != nil {
			return err
		}
		r.priority = p
	}
	sort.SliceStable(reactors, func(i, j int) bool {
		return reactors[i].priority < reactors[j].priority
	})
	return nil
}

func priorityOf(r *Runner, owners map[string]*Runner, depth, total int) (int, error) {
	if depth >= total {
		return 0, fmt.Errorf("resolving %q: %w", r.Name(), ErrCycle)
	}
	externals, _ := r.QueryTimelineModes()
	if len(externals) == 0 {
		return 0, nil
	}
	max := 0
	for _, tl := range externals {
		owner, ok := owners[tl]
		if !ok {
			return 0, fmt.Errorf("reactor %q subscribes to timeline %q which no reactor owns",
				r.Name(), tl)
		}
		p, err := priorityOf(owner, owners, depth+1, total)
		if err != nil {
			return 0, err
		}
		if p > max {
			max = p
		}
	}
	return 1 + max, nil
}

// DispatchWindow is the tick range within which a client may ask a
// timeline's owner to achieve a goal: no earlier than the owner's latency
// allows, no later than its look-ahead commits.
func DispatchWindow(latency, lookAhead, tick model.Tick) (lo, hi model.Tick) {
	return tick + latency, tick + lookAhead
}
