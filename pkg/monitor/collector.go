package monitor

import (
	"sync"
	"time"
)

// Collector captures runner events and aggregate statistics.
type Collector struct {
	mu       sync.RWMutex
	events   []Event
	handlers []func(Event)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics for a runner process.
type CollectorStats struct {
	Total             int           `json:"total"`
	StepsPassed       int           `json:"steps_passed"`
	StepsMismatched   int           `json:"steps_mismatched"`
	MissionsCompleted int           `json:"missions_completed"`
	MissionsAbandoned int           `json:"missions_abandoned"`
	Retries           int           `json:"retries"`
	CircuitOpens      int           `json:"circuit_opens"`
	StartTime         time.Time     `json:"start_time"`
	Duration          time.Duration `json:"duration"`
}

// NewCollector creates a new event collector.
func NewCollector() *Collector {
	return &Collector{
		events: make([]Event, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *Collector) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Publish records an event and notifies all handlers. It implements
// the Publisher interface.
func (c *Collector) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.stats.Total++
	switch event.Type {
	case EventStepPassed:
		c.stats.StepsPassed++
	case EventStepMismatched:
		c.stats.StepsMismatched++
	case EventMissionCompleted:
		c.stats.MissionsCompleted++
	case EventMissionAbandoned:
		c.stats.MissionsAbandoned++
	case EventRetryScheduled:
		c.stats.Retries++
	case EventCircuitOpened:
		c.stats.CircuitOpens++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Event, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *Collector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
