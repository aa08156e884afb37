package lendkit

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long audit entries are kept before the sweep removes them.
const DefaultRetention = 30 * 24 * time.Hour

// Default page sizes of the audit reads.
const (
	DefaultAuditTrailLimit  = 50
	DefaultRecentAuditLimit = 100
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new unique entity id.
type IDGenerator func() string

type options struct {
	clock     Clock
	newID     IDGenerator
	retention time.Duration
	logger    *slog.Logger
	notifier  Notifier
	policy    *Policy
}

func defaultOptions() options {
	return options{
		clock:     time.Now,
		newID:     uuid.NewString,
		retention: DefaultRetention,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy == nil {
		o.policy = DefaultPolicy()
	}
	return o
}

// Option configures the components built by New.
type Option func(*options)

// WithClock sets the time source. Tests use it to pin timestamps.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator sets how entity ids are generated. Defaults to random UUIDs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithRetention sets how long audit entries are kept. Non-positive values are ignored.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier sets where committed role changes are published.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithPolicy replaces the default capability table.
func WithPolicy(p *Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}
