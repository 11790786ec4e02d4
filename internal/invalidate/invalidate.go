// Package invalidate tells the public page renderer which paths went stale.
//
// The service calls a Dispatcher after each committed mutation. Invalidations are
// issued synchronously and in order; failures are logged and counted but never
// returned, since a stale page is degraded but safe.
package invalidate

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Notifier invalidates one public path.
type Notifier interface {
	Invalidate(ctx context.Context, path string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, path string) error

func (f NotifierFunc) Invalidate(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Nop drops every invalidation.
type Nop struct{}

func (Nop) Invalidate(context.Context, string) error { return nil }

// Fanout forwards to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Invalidate(ctx context.Context, path string) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Invalidate(ctx, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher is the sink the mutation service holds.
type Dispatcher struct {
	notifier Notifier
	logger   zerolog.Logger
	timeout  time.Duration
	total    *prometheus.CounterVec
}

// NewDispatcher wraps notifier. reg may be nil to skip metric registration.
func NewDispatcher(notifier Notifier, logger zerolog.Logger, reg prometheus.Registerer) *Dispatcher {
	if notifier == nil {
		notifier = Nop{}
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger.With().Str("component", "invalidate").Logger(),
		timeout:  5 * time.Second,
		total: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "faqpage_invalidations_total",
			Help: "Public page invalidations by result.",
		}, []string{"result"}),
	}
}

// Invalidate issues each non-empty path in order. It is detached from ctx
// cancellation so a client hanging up after commit still refreshes the page.
func (d *Dispatcher) Invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := d.notifier.Invalidate(callCtx, path)
		cancel()
		if err != nil {
			d.total.WithLabelValues("error").Inc()
			d.logger.Warn().Err(err).Str("path", path).Msg("invalidation failed")
			continue
		}
		d.total.WithLabelValues("ok").Inc()
		d.logger.Debug().Str("path", path).Msg("invalidated")
	}
}
