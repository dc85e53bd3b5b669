// Package sink delivers finished snapshots to output backends.
package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// Sink is the output interface. Implementations deliver snapshots to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, snap *snapshot.Snapshot) error
	Close() error
}

// Router fans out snapshots to all configured sinks. One sink error does
// not block the others: errors are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len reports the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, snap *snapshot.Snapshot) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, snap); err != nil {
			r.logger.Warn("sink: send snapshot failed", "id", snap.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Func delivers snapshots as in-process function calls.
type Func func(ctx context.Context, snap *snapshot.Snapshot) error

func (f Func) Send(ctx context.Context, snap *snapshot.Snapshot) error { return f(ctx, snap) }

func (Func) Close() error { return nil }
