package dashboard

import (
	"strings"
	"sync"
	"time"
)

// RequestLog represents a single request answered by the echo listener
type RequestLog struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Status    int               `json:"status"`
	Latency   time.Duration     `json:"latency_ns"`
	ClientIP  string            `json:"client_ip"`
	BytesIn   int64             `json:"bytes_in"`
	BytesOut  int64             `json:"bytes_out"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// LogStore is a thread-safe ring buffer for storing recent request logs
type LogStore struct {
	logs  []RequestLog
	mu    sync.RWMutex
	size  int
	index int
	count int

	// OnAdd is an optional hook to fire when a new log is received
	OnAdd func(log RequestLog)
}

// NewLogStore creates a new LogStore with the specified capacity
func NewLogStore(capacity int) *LogStore {
	if capacity <= 0 {
		capacity = 1000 // default capacity
	}
	return &LogStore{
		logs: make([]RequestLog, capacity),
		size: capacity,
	}
}

// Add inserts a new request log into the ring buffer
func (s *LogStore) Add(log RequestLog) {
	s.mu.Lock()
	s.logs[s.index] = log
	s.index = (s.index + 1) % s.size
	if s.count < s.size {
		s.count++
	}
	onAdd := s.OnAdd
	s.mu.Unlock()

	// Fire event hook outside the lock
	if onAdd != nil {
		onAdd(log)
	}
}

// Len returns the number of logs currently held.
func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Reset drops every stored log. Integration tests call it between cases.
func (s *LogStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = make([]RequestLog, s.size)
	s.index = 0
	s.count = 0
}

// Recent returns the n most recent request logs, ordered newest to oldest
func (s *LogStore) Recent(n int) []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return []RequestLog{}
	}

	result := make([]RequestLog, n)
	for i := 0; i < n; i++ {
		result[i] = s.logs[s.slot(i)]
	}

	return result
}

// GetByID retrieves a specific log by its ID
func (s *LogStore) GetByID(id string) (RequestLog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < s.count; i++ {
		if log := s.logs[s.slot(i)]; log.ID == id {
			return log, true
		}
	}

	return RequestLog{}, false
}

// Filter selects logs in Search. Zero values match everything.
type Filter struct {
	Status int
	Path   string // substring match
	Method string // case-insensitive exact match
}

func (f Filter) matches(log RequestLog) bool {
	if f.Status > 0 && log.Status != f.Status {
		return false
	}
	if f.Path != "" && !strings.Contains(log.Path, f.Path) {
		return false
	}
	if f.Method != "" && !strings.EqualFold(log.Method, f.Method) {
		return false
	}
	return true
}

// Search filters logs newest first, returning up to limit results
func (s *LogStore) Search(limit int, f Filter) []RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50 // default limit
	}

	result := make([]RequestLog, 0, limit)
	for i := 0; i < s.count && len(result) < limit; i++ {
		log := s.logs[s.slot(i)]
		if f.matches(log) {
			result = append(result, log)
		}
	}

	return result
}

// slot maps the i-th newest entry to its index in the buffer.
// Callers hold s.mu.
func (s *LogStore) slot(i int) int {
	idx := s.index - 1 - i
	for idx < 0 {
		idx += s.size
	}
	return idx
}
