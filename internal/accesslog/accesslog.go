// Package accesslog records the outcome of every processed probe.
package accesslog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/spyhole/internal/constants"
	"github.com/kozaktomas/spyhole/internal/facematch"
)

// Event is one access attempt as seen by the endpoint.
type Event struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"` // YYYYmmdd_HHMMSS
	ImageReference string  `json:"filename"`
	Recognized     bool    `json:"recognized"`
	Subject        string  `json:"name"` // label when recognized, otherwise the reason
	Distance       float64 `json:"distance,omitempty"`
}

// NewEvent builds the event for a verdict reached on the probe stored at ref.
func NewEvent(now time.Time, ref string, v facematch.Verdict) Event {
	e := Event{
		ID:             uuid.NewString(),
		Timestamp:      now.Format(constants.ProbeTimestampLayout),
		ImageReference: ref,
		Recognized:     v.Accepted,
		Subject:        v.Subject(),
	}
	if v.Index >= 0 {
		e.Distance = v.Distance
	}
	return e
}

// Recorder is an append-only, in-memory list of events.
// Entries are never removed and do not survive a restart.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0)}
}

// Record appends an event.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// List returns a copy of all events in insertion order.
func (r *Recorder) List() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
