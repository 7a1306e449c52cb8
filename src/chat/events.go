package chat

import (
	"sync"
	"time"
)

// EventType represents the type of run event delivered to a front end.
type EventType string

const (
	EventModelsLoaded   EventType = "models_loaded"
	EventPullProgress   EventType = "pull_progress"
	EventTurnsRemaining EventType = "turns_remaining"
	EventTurnProduced   EventType = "turn_produced"
	EventRunError       EventType = "run_error"
	EventRunFinished    EventType = "run_finished"
)

// Event is the base interface for all run events.
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetRunID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
}

func (e BaseEvent) GetType() EventType      { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetRunID() string        { return e.RunID }

// ModelsLoadedEvent reports a completed model listing for an endpoint.
type ModelsLoadedEvent struct {
	BaseEvent
	Endpoint string   `json:"endpoint"`
	Models   []string `json:"models"`
}

// PullProgressEvent reports one model download status line.
type PullProgressEvent struct {
	BaseEvent
	Endpoint string `json:"endpoint"`
	Line     string `json:"line"`
}

// TurnsRemainingEvent reports the remaining-turns counter at the start of
// a turn, the about-to-be-produced reply included.
type TurnsRemainingEvent struct {
	BaseEvent
	Remaining int `json:"remaining"`
}

// TurnProducedEvent reports a completed turn.
type TurnProducedEvent struct {
	BaseEvent
	Turn    int    `json:"turn"`
	Speaker string `json:"speaker"`
	Model   string `json:"model"`
	Text    string `json:"text"`
}

// RunErrorEvent reports a fatal run error.
type RunErrorEvent struct {
	BaseEvent
	Err error `json:"-"`
}

// RunFinishedEvent reports a terminal transition.
type RunFinishedEvent struct {
	BaseEvent
	State   State `json:"state"`
	Turns   int   `json:"turns"`
	Stopped bool  `json:"stopped"`
}

// Sink receives run events. Send must never block the run loop.
type Sink interface {
	Send(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Send(Event) {}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(Event)

func (f FuncSink) Send(event Event) { f(event) }

// Queue is an ordered, unbounded event queue. The run loop appends
// without blocking; a front end drains it on its own schedule.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Send appends an event to the queue.
func (q *Queue) Send(event Event) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
}

// Drain returns all queued events in order and clears the queue.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	drained := q.events
	q.events = nil
	return drained
}
