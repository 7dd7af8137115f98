// Package services contains domain logic that spans multiple entities.
package services

import (
	"fmt"
	"strings"
	"time"
)

// StepRecord is the timing of one named pipeline step
type StepRecord struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// StepTracker owns the progress state of one pipeline run. Steps are
// recorded explicitly by the orchestrator; nothing is inferred from
// ambient files or environment.
type StepTracker struct {
	steps   []StepRecord
	current *StepRecord
	clock   func() time.Time
}

// NewStepTracker creates a new step tracker
func NewStepTracker() *StepTracker {
	return &StepTracker{clock: time.Now}
}

// Start begins timing a named step. An unfinished previous step is closed
// first so a forgotten End never corrupts the ledger.
func (t *StepTracker) Start(name string) {
	t.End(nil)
	t.current = &StepRecord{Name: name, Started: t.clock()}
}

// End closes the running step, attributing err to it. Safe to call with
// no step in flight.
func (t *StepTracker) End(err error) {
	if t.current == nil {
		return
	}
	t.current.Duration = t.clock().Sub(t.current.Started)
	t.current.Err = err
	t.steps = append(t.steps, *t.current)
	t.current = nil
}

// Steps returns the completed step records in execution order
func (t *StepTracker) Steps() []StepRecord {
	return t.steps
}

// Total returns the summed duration of all completed steps
func (t *StepTracker) Total() time.Duration {
	var total time.Duration
	for _, s := range t.steps {
		total += s.Duration
	}
	return total
}

// Failed returns the first step that recorded an error, if any
func (t *StepTracker) Failed() (StepRecord, bool) {
	for _, s := range t.steps {
		if s.Err != nil {
			return s, true
		}
	}
	return StepRecord{}, false
}

// Summary renders a human-readable per-step timing table
func (t *StepTracker) Summary() string {
	var b strings.Builder
	for _, s := range t.steps {
		status := "ok"
		if s.Err != nil {
			status = "failed: " + s.Err.Error()
		}
		fmt.Fprintf(&b, "%-12s %10s  %s\n", s.Name, s.Duration.Round(time.Millisecond), status)
	}
	fmt.Fprintf(&b, "%-12s %10s\n", "total", t.Total().Round(time.Millisecond))
	return b.String()
}
