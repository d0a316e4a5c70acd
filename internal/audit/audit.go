// Package audit records the request/response trail as an injected
// collaborator, so the core stays testable without filesystem side effects.
package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Event is one entry in the audit trail: a state transition or an external
// call boundary, with its timing.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"requestId"`
	Provider  string        `json:"provider,omitempty"`
	Stage     string        `json:"stage"`
	Detail    string        `json:"detail,omitempty"`
	Elapsed   time.Duration `json:"elapsedNs,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Recorder is the audit sink contract. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(e Event)
}

// NopRecorder discards every event; the default for tests.
type NopRecorder struct{}

func (NopRecorder) Record(Event) {}

// FileRecorder appends events as JSON lines to a single file.
type FileRecorder struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &FileRecorder{f: f}, nil
}

func (r *FileRecorder) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		log.Printf("audit: dropping unmarshalable event: %v", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.f.Write(append(line, '\n')); err != nil {
		log.Printf("audit: write failed: %v", err)
	}
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
