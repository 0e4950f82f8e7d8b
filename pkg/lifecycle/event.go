package lifecycle

import (
	"time"

	"github.com/rs/zerolog"
)

// Phase tags a lifecycle transition.
type Phase string

const (
	PhaseInstantiating         Phase = "instantiating"
	PhaseCreating              Phase = "creating"
	PhasePreStart              Phase = "pre-start"
	PhaseStarting              Phase = "starting"
	PhaseStarted               Phase = "started"
	PhaseFailed                Phase = "failed"
	PhaseStopping              Phase = "stopping"
	PhaseStopped               Phase = "stopped"
	PhaseTeardownFailed        Phase = "teardown-failed"
	PhaseReset                 Phase = "reset"
	PhaseWarning               Phase = "warning"
	PhaseReleaseWithoutAcquire Phase = "release-without-acquire"
)

// String returns the phase tag.
func (p Phase) String() string {
	return string(p)
}

// Event is delivered to a Listener at each transition. Events are not retained.
type Event struct {
	Phase    Phase
	Resource string
	Err      error
	Message  string
	Time     time.Time
}

// Listener observes lifecycle events. OnEvent is called synchronously on the
// goroutine performing the transition and should return quickly.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) {
	f(e)
}

type nopListener struct{}

func (nopListener) OnEvent(Event) {}

// NopListener discards events.
var NopListener Listener = nopListener{}

type multiListener []Listener

func (m multiListener) OnEvent(e Event) {
	for _, l := range m {
		l.OnEvent(e)
	}
}

// Listeners fans events out to each non-nil listener in order.
func Listeners(ls ...Listener) Listener {
	out := make(multiListener, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			out = append(out, l)
		}
	}
	switch len(out) {
	case 0:
		return NopListener
	case 1:
		return out[0]
	}
	return out
}

// LogListener writes each event to log. Failures are logged at error level,
// warnings and unmatched releases at warn level, everything else at debug.
func LogListener(log zerolog.Logger) Listener {
	return ListenerFunc(func(e Event) {
		var ev *zerolog.Event
		switch e.Phase {
		case PhaseFailed, PhaseTeardownFailed:
			ev = log.Error()
		case PhaseWarning, PhaseReleaseWithoutAcquire:
			ev = log.Warn()
		case PhaseStarted, PhaseStopped:
			ev = log.Info()
		default:
			ev = log.Debug()
		}
		ev = ev.Str("resource", e.Resource).Str("phase", e.Phase.String())
		if e.Err != nil {
			ev = ev.Err(e.Err)
		}
		if e.Message != "" {
			ev.Msg(e.Message)
			return
		}
		ev.Msg("lifecycle " + e.Phase.String())
	})
}

// notifier delivers events to a listener, recovering listener panics.
type notifier struct {
	listener Listener
	log      zerolog.Logger
	now      func() time.Time
}

func (n notifier) emit(resource string, phase Phase, err error, msg string) {
	e := Event{
		Phase:    phase,
		Resource: resource,
		Err:      err,
		Message:  msg,
		Time:     n.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().
				Str("resource", resource).
				Str("phase", phase.String()).
				Interface("panic", r).
				Msg("lifecycle listener panicked")
		}
	}()
	n.listener.OnEvent(e)
}
