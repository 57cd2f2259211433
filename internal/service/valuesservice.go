package service

import (
	"context"
	"errors"
	"strings"

	"github.com/idudko/mendel/internal/ingest"
	"github.com/idudko/mendel/internal/model"
	"github.com/idudko/mendel/internal/values"
)

// Source is the ingest source label of payloads received over HTTP.
const Source = "http"

var (
	ErrNotFound     = errors.New("value not found")
	ErrEmptySubject = errors.New("subject is required")
)

// Dispatcher feeds a payload published on subject into the pipeline.
type Dispatcher interface {
	Dispatch(source, subject string, payload []byte) int
}

// ValuesService exposes the value store and the ingest router to the HTTP
// API.
type ValuesService struct {
	store  *values.Store
	router Dispatcher
}

func NewValuesService(store *values.Store, router Dispatcher) *ValuesService {
	return &ValuesService{store: store, router: router}
}

// Ingest dispatches payload as if it had been published on topic. Topic may
// use '/' or '.' separators.
func (s *ValuesService) Ingest(ctx context.Context, topic string, payload []byte) (model.IngestResponse, error) {
	select {
	case <-ctx.Done():
		return model.IngestResponse{}, ctx.Err()
	default:
	}

	subject := ingest.TopicToSubject(topic)
	if subject == "" {
		return model.IngestResponse{}, ErrEmptySubject
	}
	n := s.router.Dispatch(Source, subject, payload)
	return model.IngestResponse{Subject: subject, Values: n}, nil
}

// List returns every stored value in key label order.
func (s *ValuesService) List(ctx context.Context) ([]model.Value, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]model.Value, 0, s.store.Len())
	s.store.Walk(func(key string, c *values.Cell) {
		out = append(out, model.Value{ID: key, Value: c.Load()})
	})
	return out, nil
}

// Get returns the value stored under id. A location may follow the id after
// '@' or as the last ':' separated part.
func (s *ValuesService) Get(ctx context.Context, id string) (model.Value, error) {
	select {
	case <-ctx.Done():
		return model.Value{}, ctx.Err()
	default:
	}

	key := strings.TrimSpace(id)
	if strings.Contains(key, "@") {
		key = values.ParseMetricID(key).Key()
	}

	v := model.Value{ID: key}
	if !s.store.FindString(func(c *values.Cell) { v.Value = c.Load() }, key) {
		return model.Value{}, ErrNotFound
	}
	return v, nil
}
