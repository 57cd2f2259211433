// Package publish fans action results out to the configured sinks.
package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Sink receives every published result.
type Sink interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Event is the envelope written by sinks that do not carry a topic of their
// own.
type Event struct {
	Timestamp int64           `json:"ts"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps body. A body that is not JSON is stored as a string.
func NewEvent(topic string, body []byte) Event {
	data := json.RawMessage(body)
	if !json.Valid(body) {
		data, _ = json.Marshal(string(body))
	}
	return Event{Timestamp: time.Now().Unix(), Topic: topic, Data: data}
}

// Subject publishes to every attached sink.
type Subject struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewSubject returns a subject with sinks attached.
func NewSubject(sinks ...Sink) *Subject {
	s := &Subject{}
	for _, sink := range sinks {
		s.Attach(sink)
	}
	return s
}

// Attach adds sink. Nil sinks are ignored.
func (s *Subject) Attach(sink Sink) {
	if sink == nil {
		return
	}
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// Detach removes sink.
func (s *Subject) Detach(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, obs := range s.sinks {
		if obs == sink {
			s.sinks = append(s.sinks[:i], s.sinks[i+1:]...)
			break
		}
	}
}

// Len returns the number of attached sinks.
func (s *Subject) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}

// Publish hands body to every sink. A failing sink does not stop the others;
// their errors are joined.
func (s *Subject) Publish(ctx context.Context, topic string, body []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, topic, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes results to the log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, topic string, body []byte) error {
	log.Info().Str("topic", topic).RawJSON("data", NewEvent(topic, body).Data).Msg("result")
	return nil
}
