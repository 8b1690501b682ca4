// Package config loads and validates mission configuration.
//
// A mission file names the agent, its clock, the final tick, and an
// ordered list of reactors. The tree is immutable once loaded; the
// executive walks it, never edits it. Validation happens entirely at
// load time: every error here is fatal before the first tick runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/automenta/trex-autonomy/pkg/model"
)

// DefaultSyncFailureLimit bounds consecutive synchronization failures of
// one reactor before the agent stops. Overridable per mission.
const DefaultSyncFailureLimit = 3

// Clock selects and parameterizes the agent's tick source.
type Clock struct {
	// Kind is "step" or "realtime".
	Kind string `yaml:"kind"`

	// SleepSeconds and StepsPerTick parameterize the step clock.
	SleepSeconds float64 `yaml:"sleepSeconds"`
	StepsPerTick int     `yaml:"stepsPerTick"`

	// SecondsPerTick parameterizes the real-time clock.
	SecondsPerTick float64 `yaml:"secondsPerTick"`
}

// ScriptEntry is one scripted observation for the scripted reactor kind:
// at Tick, assert Predicate on Timeline with symbolic parameter bindings.
type ScriptEntry struct {
	Tick      model.Tick        `yaml:"tick"`
	Timeline  string            `yaml:"timeline"`
	Predicate string            `yaml:"predicate"`
	Params    map[string]string `yaml:"params"`
}

// Reactor configures one reactor instance.
type Reactor struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Latency is required; the zero value cannot stand in for it, so a
	// missing field is detectable.
	Latency *model.Tick `yaml:"latency"`

	// LookAhead defaults to the agent's final tick.
	LookAhead *model.Tick `yaml:"lookAhead"`

	// Log enables this reactor's own trace logging. Defaults true.
	Log *bool `yaml:"log"`

	// Model is the path of the transaction script handed to the
	// reactor's deliberation engine, when the kind uses one.
	Model string `yaml:"model"`

	// Internals, Externals and Script configure the scripted kind.
	Internals []string      `yaml:"internals"`
	Externals []string      `yaml:"externals"`
	Script    []ScriptEntry `yaml:"script"`
}

// GetLatency returns the configured latency. Only valid after Validate.
func (r *Reactor) GetLatency() model.Tick { return *r.Latency }

// GetLookAhead returns the configured look-ahead. Only valid after
// Validate, which fills the default.
func (r *Reactor) GetLookAhead() model.Tick { return *r.LookAhead }

// ShouldLog returns the log flag, defaulting to true.
func (r *Reactor) ShouldLog() bool { return r.Log == nil || *r.Log }

// Agent is the root of a mission configuration.
type Agent struct {
	Name      string     `yaml:"name"`
	FinalTick model.Tick `yaml:"finalTick"`
	Clock     Clock      `yaml:"clock"`
	Reactors  []Reactor  `yaml:"reactors"`

	// SyncFailureLimit is the consecutive-failure threshold per reactor.
	// Zero means DefaultSyncFailureLimit.
	SyncFailureLimit int `yaml:"syncFailureLimit"`
}

// Load reads and validates a mission file.
func Load(path string) (*Agent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission config: %w", err)
	}
	return Parse(raw)
}

// Parse unmarshals and validates mission configuration bytes.
func Parse(raw []byte) (*Agent, error) {
	var a Agent
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse mission config: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the configuration invariants and fills defaults.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("mission config: missing agent name")
	}
	if a.FinalTick < 1 {
		return fmt.Errorf("mission config: finalTick must be at least 1")
	}
	switch a.Clock.Kind {
	case "", "step":
		a.Clock.Kind = "step"
		if a.Clock.StepsPerTick < 1 {
			a.Clock.StepsPerTick = 1
		}
	case "realtime":
		if a.Clock.SecondsPerTick <= 0 {
			return fmt.Errorf("mission config: realtime clock needs secondsPerTick > 0")
		}
	default:
		return fmt.Errorf("mission config: unknown clock kind %q", a.Clock.Kind)
	}
	if a.SyncFailureLimit == 0 {
		a.SyncFailureLimit = DefaultSyncFailureLimit
	}
	if a.SyncFailureLimit < 1 {
		return fmt.Errorf("mission config: syncFailureLimit must be positive")
	}
	if len(a.Reactors) == 0 {
		return fmt.Errorf("mission config: no reactors")
	}

	seen := make(map[string]bool, len(a.Reactors))
	for i := range a.Reactors {
		r := &a.Reactors[i]
		if r.Name == "" {
			return fmt.Errorf("mission config: reactor %d has no name", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("mission config: duplicate reactor name %q", r.Name)
		}
		seen[r.Name] = true
		if r.Kind == "" {
			return fmt.Errorf("mission config: reactor %q has no kind", r.Name)
		}
		if r.Latency == nil {
			return fmt.Errorf("mission config: reactor %q is missing latency", r.Name)
		}
		if *r.Latency < 0 {
			return fmt.Errorf("mission config: reactor %q has negative latency", r.Name)
		}
		if r.LookAhead == nil {
			// Unbounded horizon collapses to the end of the mission.
			final := a.FinalTick
			r.LookAhead = &final
		}
		if *r.Latency > *r.LookAhead {
			return fmt.Errorf("mission config: reactor %q has latency %d > lookAhead %d",
				r.Name, *r.Latency, *r.LookAhead)
		}
	}
	return nil
}
