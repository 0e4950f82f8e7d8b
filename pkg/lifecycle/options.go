package lifecycle

import (
	"time"

	"github.com/rs/zerolog"
)

type options struct {
	listener Listener
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a LazyResource, SharedResource or Registry.
type Option func(*options)

// WithListener registers the event listener. Listeners can only be set at
// construction.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listener = l
		}
	}
}

// WithLogger sets the logger used for listener panics and misuse reports.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// withClock overrides the event timestamp source. Used by tests.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{
		listener: NopListener,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) notifier() notifier {
	return notifier{listener: o.listener, log: o.log, now: o.now}
}
