package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no probe results exist for a provider.
	ErrNotFound = errors.New("no probe results for provider")
)

// ProbeResult is one health-probe outcome for a provider.
type ProbeResult struct {
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
}

// probeHistory holds a time-ordered list of probe results for one provider.
type probeHistory struct {
	Results []ProbeResult
}

// MemoryStore is a concurrency-safe in-memory history of provider health
// probes. Imagery results are never stored here; only ops state is.
type MemoryStore struct {
	mu sync.RWMutex

	// key: provider name, value: history
	data map[string]*probeHistory

	// retention configuration
	maxHistory int           // max number of results per provider
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*probeHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveProbe appends a new result for a provider and enforces retention.
func (s *MemoryStore) SaveProbe(result ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[result.Provider]
	if !ok {
		history = &probeHistory{}
		s.data[result.Provider] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results); i++ {
			if !history.Results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Results) {
			history.Results = history.Results[i:]
		}
	}
}

// Latest returns the most recent probe result for a provider.
func (s *MemoryStore) Latest(provider string) (ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[provider]
	if !ok || len(history.Results) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// LatestAll returns the most recent result for every probed provider.
func (s *MemoryStore) LatestAll() []ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ProbeResult, 0, len(s.data))
	for _, history := range s.data {
		if len(history.Results) == 0 {
			continue
		}
		out = append(out, history.Results[len(history.Results)-1])
	}
	return out
}

// Range returns all results for a provider between from and to (inclusive).
func (s *MemoryStore) Range(provider string, from, to time.Time) ([]ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[provider]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}

	var result []ProbeResult
	for _, r := range history.Results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
