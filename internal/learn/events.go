package learn

import "sync"

// EventType identifies session events.
type EventType int

const (
	// EventSampleAdded carries the new total sample count (int).
	EventSampleAdded EventType = iota
	// EventTrainingStarted carries the number of samples being trained on (int).
	EventTrainingStarted
	// EventTrained carries the Prediction for the current features.
	EventTrained
	// EventTrainingFailed carries the error.
	EventTrainingFailed
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type eventBus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.events.mu.Lock()
	defer s.events.mu.Unlock()
	if s.events.listeners == nil {
		s.events.listeners = make(map[EventType][]EventListener)
	}
	s.events.listeners[event] = append(s.events.listeners[event], listener)
}

// emit calls the listeners for event. It must not be called with s.mu held,
// since listeners may query the session.
func (s *Session) emit(event EventType, data interface{}) {
	s.events.mu.RLock()
	listeners := s.events.listeners[event]
	s.events.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
