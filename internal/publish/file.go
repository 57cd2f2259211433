package publish

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// FileSink appends results to a file, one JSON event per line.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Publish(_ context.Context, topic string, body []byte) error {
	data, err := json.Marshal(NewEvent(topic, body))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
