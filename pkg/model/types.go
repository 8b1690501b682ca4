// Package model defines the core domain types for the executive.
//
// The executive coordinates teleo-reactors: deliberative units that each
// own a set of timelines (named state variables evolving over discrete
// ticks) and observe timelines owned by others. Three kinds of records
// flow between reactors:
//
//   - Observations: facts about a timeline's active predicate at the
//     current tick, published by the owner during synchronization.
//   - Goal requests: desired future tokens handed to a timeline's owner.
//   - Goal recalls: retractions of previously requested goals, matched
//     by identity.
package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/automenta/trex-autonomy/pkg/domain"
)

// Tick is the global logical time: a non-negative counter advanced by the
// agent clock. It only ever increases.
type Tick int64

// Param is a named parameter domain on a token or observation.
type Param struct {
	Name   string
	Domain *domain.Domain
}

// Token is an instance of a predicate on a timeline, holding over the
// inclusive tick range [Start, End] with the given parameter bindings.
// Tokens are produced by a reactor's deliberation engine; the executive
// treats their parameter domains opaquely.
type Token struct {
	Timeline  string
	Predicate string
	Start     Tick
	End       Tick
	Params    []Param
}

// Param returns the named parameter domain, or nil if absent.
func (t *Token) Param(name string) *domain.Domain {
	for _, p := range t.Params {
		if p.Name == name {
			return p.Domain
		}
	}
	return nil
}

// String renders the token for log output.
func (t *Token) String() string {
	return fmt.Sprintf("%s.%s[%d %d]", t.Timeline, t.Predicate, t.Start, t.End)
}

// Goal is a token with an identity. Requests and recalls for the same
// goal carry the same ID; a recall matches its request by ID alone.
type Goal struct {
	ID    uuid.UUID
	Token *Token
}

// NewGoal wraps a token with a fresh identity.
func NewGoal(tok *Token) *Goal {
	return &Goal{ID: uuid.New(), Token: tok}
}

// String renders the goal for log output.
func (g *Goal) String() string {
	return fmt.Sprintf("%s#%s", g.Token, g.ID.String()[:8])
}

// FailureKind classifies a reactor failure surfaced to the orchestrator.
type FailureKind int

const (
	// FailureSynchronization: synchronize could not reconcile the
	// reactor's model with the tick's observations.
	FailureSynchronization FailureKind = iota
	// FailureDeliberation: a resume slice failed unexpectedly.
	FailureDeliberation
	// FailureRejected: a goal request was refused by the owner.
	FailureRejected
)

func (k FailureKind) String() string {
	switch k {
	case FailureSynchronization:
		return "synchronization"
	case FailureDeliberation:
		return "deliberation"
	case FailureRejected:
		return "rejected"
	}
	return "unknown"
}

// Result is the explicit outcome of a synchronize or resume call.
// Failures never escape the slice boundary as panics or errors; the
// orchestrator inspects the result and applies its recovery policy.
type Result struct {
	Failed  bool
	Kind    FailureKind
	Message string
}

// OK is the successful result.
func OK() Result { return Result{} }

// Fail builds a failure result.
func Fail(kind FailureKind, format string, args ...interface{}) Result {
	return Result{Failed: true, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (r Result) String() string {
	if !r.Failed {
		return "ok"
	}
	return fmt.Sprintf("failure(%s: %s)", r.Kind, r.Message)
}
