package metric

import (
	"context"
	"fmt"
)

// MultiDispatcher fans one sample out to several sinks. The first sink
// error aborts the dispatch and is returned to the caller: a cycle must
// not silently publish to some sinks and not others.
type MultiDispatcher struct {
	sinks []Dispatcher
}

// NewMultiDispatcher composes the given sinks in order.
func NewMultiDispatcher(sinks ...Dispatcher) *MultiDispatcher {
	return &MultiDispatcher{sinks: sinks}
}

// Dispatch delivers the sample to every sink in order.
func (d *MultiDispatcher) Dispatch(ctx context.Context, s *Sample) error {
	for _, sink := range d.sinks {
		if err := sink.Dispatch(ctx, s); err != nil {
			return fmt.Errorf("dispatch failed: %w", err)
		}
	}
	return nil
}
