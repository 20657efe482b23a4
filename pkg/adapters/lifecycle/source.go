// Package lifecycle exposes coordinator events as a lifecycle.Source so
// they can drive a lifecycle control loop.
package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/glance/pkg/core"
)

// EventStream is satisfied by *core.Coordinator.
type EventStream interface {
	Events() <-chan core.Event
}

type eventSource struct {
	stream  EventStream
	accept  map[core.EventType]bool
	out     chan lifecycle.Event
	started atomic.Bool
}

// NewEventSource bridges a coordinator's event channel to lifecycle events.
// When types is non-empty only those event types are forwarded. The output
// channel closes when the coordinator tears down or ctx is done.
func NewEventSource(stream EventStream, types ...core.EventType) lifecycle.Source {
	var accept map[core.EventType]bool
	if len(types) > 0 {
		accept = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			accept[t] = true
		}
	}
	return &eventSource{
		stream: stream,
		accept: accept,
		out:    make(chan lifecycle.Event),
	}
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *eventSource) Start(ctx context.Context) error {
	// The coordinator channel has a single reader.
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	in := s.stream.Events()
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-in:
				if !ok {
					return nil
				}
				if s.accept != nil && !s.accept[e.Type] {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
