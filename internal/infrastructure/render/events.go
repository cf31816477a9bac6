package render

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spritestack/avatar-render/internal/core/ports"
)

// EventSink implements ports.EventSink: every job-added/completed/retried/
// failed event increments a Prometheus counter (the durable telemetry
// surface) and is appended to a small in-memory ring buffer read through
// Recent. GET /queue/stats does not include the ring buffer's contents.
// Grounded on the teacher's metrics package pattern: the counter is
// registered once against the given Registerer at construction, never
// created ad hoc per event.
type EventSink struct {
	counter *prometheus.CounterVec

	mu   sync.Mutex
	ring []ports.RenderEvent
	next int
}

const ringCapacity = 64

// NewEventSink registers its counter against reg (typically
// prometheus.DefaultRegisterer, matching the teacher's metrics wiring).
func NewEventSink(reg prometheus.Registerer) *EventSink {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avatar_render",
		Subsystem: "coordinator",
		Name:      "job_events_total",
		Help:      "Render coordinator job lifecycle events by kind.",
	}, []string{"kind"})
	reg.MustRegister(counter)

	return &EventSink{
		counter: counter,
		ring:    make([]ports.RenderEvent, 0, ringCapacity),
	}
}

func (s *EventSink) Publish(evt ports.RenderEvent) {
	s.counter.WithLabelValues(evt.Kind).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ring) < ringCapacity {
		s.ring = append(s.ring, evt)
	} else {
		s.ring[s.next] = evt
		s.next = (s.next + 1) % ringCapacity
	}
}

// Recent returns the most recently published events, oldest first.
func (s *EventSink) Recent() []ports.RenderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.RenderEvent, 0, len(s.ring))
	out = append(out, s.ring[s.next:]...)
	out = append(out, s.ring[:s.next]...)
	return out
}
