package api

import (
	"sync"
	"time"
)

const (
	stateIdle      = "idle"
	stateAnalyzing = "analyzing"
	stateCompleted = "completed"
	stateError     = "error"
)

// agentStatus is the payload of GET /v1/status.
type agentStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// statusTracker records the state of the most recent analysis.
type statusTracker struct {
	mu  sync.RWMutex
	cur agentStatus
}

func newStatusTracker() *statusTracker {
	return &statusTracker{cur: agentStatus{Status: stateIdle, Message: "Agent ready", Timestamp: time.Now()}}
}

func (s *statusTracker) set(state, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = agentStatus{Status: state, Message: msg, Timestamp: time.Now()}
}

func (s *statusTracker) get() agentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}
