// Package record collects the caller-owned output of one simulation run:
// the integration result, unweighted events and shower histories.
// It stores pure data and never drives a simulation itself.
package record

import (
	"time"

	"github.com/google/uuid"

	"github.com/colsim/colsim/sim"
	"github.com/colsim/colsim/sim/shower"
)

// Kind names the stage a run executed.
type Kind string

const (
	// KindCrossSection is an integration followed by hit-or-miss generation.
	KindCrossSection Kind = "xsec"
	// KindShower is a batch of Sudakov evolutions.
	KindShower Kind = "shower"
)

// validKinds maps accepted run kinds.
var validKinds = map[Kind]bool{
	KindCrossSection: true,
	KindShower:       true,
}

// IsValidKind returns true if kind is a recognized run kind.
func IsValidKind(kind string) bool {
	return validKinds[Kind(kind)]
}

// Run is the record of one simulation run.
type Run struct {
	ID        string
	Kind      Kind
	Process   string // process name, empty for shower runs
	Seed      int64
	CreatedAt time.Time
	Result    *sim.IntegrationResult // nil for shower runs
	Events    []sim.Event
	Histories []*shower.History
}

// NewRun creates an empty run with a fresh ID.
func NewRun(kind Kind, process string, seed int64) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Process:   process,
		Seed:      seed,
		CreatedAt: time.Now().UTC(),
		Events:    make([]sim.Event, 0),
		Histories: make([]*shower.History, 0),
	}
}

// RecordEvent appends an accepted event. It has the signature of an
// EventGenerator sink.
func (r *Run) RecordEvent(ev sim.Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

// RecordHistory appends a finished evolution.
func (r *Run) RecordHistory(h *shower.History) {
	r.Histories = append(r.Histories, h)
}
