// registry.go implements name-keyed reactor construction.
//
// Reactor kinds register construction closures under string names; the
// agent creates instances from configuration by kind. The registry is an
// explicit service threaded through the agent rather than process-global
// state, so two agents in one process cannot trample each other's kinds.
package reactor

import (
	"fmt"
	"log"
	"sort"

	"github.com/automenta/trex-autonomy/pkg/assembly"
	"github.com/automenta/trex-autonomy/pkg/config"
)

// Deps carries the services a factory may need.
type Deps struct {
	Logger *log.Logger

	// NewEngine builds the deliberation engine for reactors whose kind
	// delegates planning. May be nil for missions without such kinds.
	NewEngine func(reactorName, modelPath string) (assembly.Engine, error)
}

// Factory builds a reactor from its validated configuration.
type Factory func(cfg *config.Reactor, deps Deps) (Reactor, error)

// Registry maps kind names to factories. Populated during init,
// read-only afterwards.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a kind name to a factory. Registering a name twice is a
// programming error.
func (r *Registry) Register(kind string, f Factory) error {
	if _, dup := r.factories[kind]; dup {
		return fmt.Errorf("register %q: %w", kind, ErrDuplicate)
	}
	r.factories[kind] = f
	return nil
}

// Create instantiates a reactor of the configured kind.
func (r *Registry) Create(cfg *config.Reactor, deps Deps) (Reactor, error) {
	f, ok := r.factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("create %q of kind %q: %w", cfg.Name, cfg.Kind, ErrNotFound)
	}
	return f(cfg, deps)
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
