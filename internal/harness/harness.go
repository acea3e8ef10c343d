package harness

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arraypull/internal/config"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/engine"
	"github.com/roach88/arraypull/internal/store"
	"github.com/roach88/arraypull/internal/testutil"
)

// Harness holds the state of one scenario run.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	cfg     config.Config
	docs    map[string]*doc.Document
	initial map[string]doc.Value
}

// Run executes a scenario and returns the result. A failed expectation or
// assertion is reported in the result; an error means the scenario could
// not be run at all.
//
// Each scenario runs in a fresh in-memory database for isolation.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	eng, err := engine.New(cfg, st, engine.WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := &Harness{
		store:   st,
		engine:  eng,
		cfg:     cfg,
		docs:    make(map[string]*doc.Document, len(scenario.Documents)),
		initial: make(map[string]doc.Value, len(scenario.Documents)),
	}
	for _, d := range scenario.Documents {
		v, err := nodeValue(&d.Value)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		h.docs[d.ID] = doc.NewDocumentFrom(v)
		h.initial[d.ID] = v
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}
	for id, d := range h.docs {
		result.Final[id] = d.Value()
	}
	for _, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func scenarioConfig(s *Scenario) (config.Config, error) {
	if s.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to encode config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	cond, err := nodeValue(&step.Cond)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	res, err := h.engine.Pull(ctx, engine.Request{
		DocID:           step.Doc,
		Document:        h.docs[step.Doc],
		Path:            step.Path,
		Condition:       cond,
		Collation:       step.Collation,
		FromReplication: step.Replicated,
	})

	ev := TraceEvent{Step: index, DocID: step.Doc, Path: step.Path, Entries: []TraceEntry{}}
	if err != nil {
		ev.Error = string(engine.CodeOf(err))
		if ev.Error == "" {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	} else {
		ev.Noop = res.Noop
		ev.IndexesAffected = res.IndexesAffected
		ev.Removed = res.Removed
		for _, e := range res.Entries {
			ev.Entries = append(ev.Entries, TraceEntry{Seq: e.Seq, Path: e.Path, Value: e.Value})
		}
	}
	result.Trace = append(result.Trace, ev)

	checkExpect(index, step.Expect, ev, err, result)
	return nil
}

func checkExpect(index int, want *Expect, ev TraceEvent, err error, result *Result) {
	if want == nil {
		if err != nil {
			result.AddError("steps[%d]: unexpected error: %v", index, err)
		}
		return
	}
	if want.Error != "" || ev.Error != "" {
		if want.Error != ev.Error {
			result.AddError("steps[%d]: error = %q, want %q (%v)", index, ev.Error, want.Error, err)
		}
		return
	}
	if want.Noop != nil && *want.Noop != ev.Noop {
		result.AddError("steps[%d]: noop = %t, want %t", index, ev.Noop, *want.Noop)
	}
	if want.IndexesAffected != nil && *want.IndexesAffected != ev.IndexesAffected {
		result.AddError("steps[%d]: indexes_affected = %t, want %t", index, ev.IndexesAffected, *want.IndexesAffected)
	}
	if want.Removed != nil && *want.Removed != ev.Removed {
		result.AddError("steps[%d]: removed = %d, want %d", index, ev.Removed, *want.Removed)
	}
}
