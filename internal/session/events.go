package session

import "time"

// EventType tags entries on a session's event stream.
type EventType string

const (
	EventStarted  EventType = "recording-started"
	EventProgress EventType = "recording-progress"
	EventPaused   EventType = "recording-paused"
	EventResumed  EventType = "recording-resumed"
	EventGap      EventType = "recording-gap"
	EventStopped  EventType = "recording-stopped"
	EventError    EventType = "recording-error"
)

// Event is one entry on the ordered per-session event stream. Only the
// fields relevant to the Type are populated.
type Event struct {
	Type     EventType
	Seconds  float64 // EventProgress: recorded seconds so far
	Gap      *Gap    // EventGap
	Reason   string  // EventError
	Duration time.Duration
	Gaps     []Gap     // EventStopped
	Segments []Segment // EventStopped
}

// emit delivers an event without ever blocking the controller. Progress
// ticks are droppable when the consumer has fallen behind; state-change
// events instead evict the oldest buffered event so they are never lost.
// After closeEvents the stream is closed and emits become no-ops.
func (s *Session) emit(ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.eventsClosed {
		return
	}

	if ev.Type == EventProgress {
		select {
		case s.events <- ev:
		default:
		}
		return
	}

	for {
		select {
		case s.events <- ev:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

// closeEvents ends the stream. Holding emitMu here is what keeps a late
// progress callback from sending on the closed channel.
func (s *Session) closeEvents() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.eventsClosed {
		return
	}
	s.eventsClosed = true
	close(s.events)
}
