package lifecycletest

import (
	"context"
	"sync"

	"github.com/mike10004/containment-sub001/pkg/lifecycle"
)

// Recorder is a lifecycle.Listener that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

// OnEvent implements lifecycle.Listener.
func (r *Recorder) OnEvent(e lifecycle.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns the recorded events in delivery order.
func (r *Recorder) Events() []lifecycle.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lifecycle.Event(nil), r.events...)
}

// Phases returns the phase of each recorded event.
func (r *Recorder) Phases() []lifecycle.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lifecycle.Phase, len(r.events))
	for i, e := range r.events {
		out[i] = e.Phase
	}
	return out
}

// Count returns how many events had phase p.
func (r *Recorder) Count(p lifecycle.Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Phase == p {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// ActionLog records the order in which pre-start actions run.
type ActionLog struct {
	mu    sync.Mutex
	names []string
}

// Action returns a named pre-start action that records name, marks the
// created resource and returns err.
func (l *ActionLog) Action(name string, err error) lifecycle.PreStartAction[*Handle] {
	return lifecycle.NamedAction[*Handle](name, lifecycle.PreStartFunc[*Handle](func(_ context.Context, s lifecycle.Startable[*Handle]) error {
		l.mu.Lock()
		l.names = append(l.names, name)
		l.mu.Unlock()
		if c, ok := s.(*Created); ok {
			c.Mark(name)
		}
		return err
	}))
}

// Names returns the names of the actions that ran, in order.
func (l *ActionLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}
