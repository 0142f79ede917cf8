package workflow

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/latency"
	"github.com/BetoIII/docledger/ledger"
)

// program is a compiled, type-erased run plan: the typed Flow[P] applied
// to one set of invocation parameters. The generic flow is converted to
// a compiler closure at registration time.
type program struct {
	kind       Kind
	documentID id.DocumentID
	events     []ledger.Event
	fields     map[string]any
	milestone  func(evt *ledger.Event) (Notice, bool)
	accumulate func(run *Run, evt *ledger.Event)
	finalize   func(run *Run)
	latency    latency.Profile
	actions    map[string]StepAction
}

// compiler validates raw JSON parameters and produces a program.
type compiler func(raw []byte) (*program, error)

// Registry maps flow kinds to compiler functions.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	flows map[Kind]compiler
}

// NewRegistry creates an empty flow registry.
func NewRegistry() *Registry {
	return &Registry{flows: make(map[Kind]compiler)}
}

// RegisterFlow registers a typed flow configuration. The generic flow is
// wrapped in a closure that JSON-unmarshals parameters into P, runs the
// precondition check, generates facts, and builds the event sequence.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterFlow[P any](r *Registry, f *Flow[P]) {
	c := func(raw []byte) (*program, error) {
		var p P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("unmarshal params for flow %q: %w", f.Kind, err)
			}
		}

		if f.Validate != nil {
			if err := f.Validate(p); err != nil {
				return nil, err
			}
		}

		var facts map[string]any
		if f.Facts != nil {
			facts = f.Facts(p)
		}

		events := f.Sequence(p, facts)
		if len(events) == 0 {
			return nil, fmt.Errorf("flow %q: empty event sequence", f.Kind)
		}

		docID := id.Nil
		if f.DocumentID != nil {
			docID = f.DocumentID(p)
		}
		if docID.IsNil() {
			docID = id.NewDocumentID()
		}

		var fields map[string]any
		if f.Seed != nil {
			fields = f.Seed(p, facts)
		}

		prog := &program{
			kind:       f.Kind,
			documentID: docID,
			events:     events,
			fields:     fields,
			accumulate: f.Accumulate,
			finalize:   f.Finalize,
			latency:    f.Latency,
			actions:    f.Actions,
		}

		if len(f.Milestones) > 0 {
			milestones := f.Milestones
			prog.milestone = func(evt *ledger.Event) (Notice, bool) {
				build, ok := milestones[evt.Name]
				if !ok {
					return Notice{}, false
				}
				return build(p, evt), true
			}
		}

		return prog, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[f.Kind] = c
}

// Get returns the compiler for the given flow kind.
func (r *Registry) Get(kind Kind) (compiler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.flows[kind]
	return c, ok
}

// Kinds returns all registered flow kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.flows))
	for k := range r.flows {
		kinds = append(kinds, k)
	}
	return kinds
}

// compile looks up and runs the compiler for kind.
func (r *Registry) compile(kind Kind, raw []byte) (*program, error) {
	c, ok := r.Get(kind)
	if !ok {
		return nil, docledger.ErrFlowNotRegistered
	}
	return c(raw)
}
