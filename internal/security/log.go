package security

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// DefaultCapacity bounds the in-memory event window.
const DefaultCapacity = 1000

type Event struct {
	EventType string    `json:"event_type"`
	SourceIP  string    `json:"source_ip"`
	UserID    string    `json:"user_id"`
	Details   string    `json:"details"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is an aggregate view over the retained events.
type Snapshot struct {
	SeverityCounts map[string]int64 `json:"severity_counts"`
	TypeCounts     map[string]int64 `json:"type_counts"`
	RecentEvents   int64            `json:"recent_events"`
}

// Log is a bounded FIFO of security observations. All access is serialized
// by a single mutex; critical sections are a slice append/trim or a linear
// scan and never span I/O.
type Log struct {
	mu       sync.Mutex
	events   []Event
	capacity int

	now      func() time.Time
	observer func(Event)
}

func NewLog() *Log {
	return NewLogWithCapacity(DefaultCapacity)
}

func NewLogWithCapacity(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		now:      time.Now,
	}
}

// SetObserver installs a callback invoked once per appended event, outside
// any behavioral path. Used to feed metrics counters.
func (l *Log) SetObserver(fn func(Event)) { l.observer = fn }

// Record appends an observation, evicting the oldest entries once the
// capacity is exceeded.
func (l *Log) Record(eventType, sourceIP, userID, details, severity string) {
	ev := Event{
		EventType: eventType,
		SourceIP:  sourceIP,
		UserID:    userID,
		Details:   details,
		Severity:  severity,
		Timestamp: l.now(),
	}

	l.mu.Lock()
	l.events = append(l.events, ev)
	if len(l.events) > l.capacity {
		l.events = append([]Event(nil), l.events[len(l.events)-l.capacity:]...)
	}
	l.mu.Unlock()

	if l.observer != nil {
		l.observer(ev)
	}
	slog.Warn("security event",
		"event_type", eventType,
		"severity", severity,
		"source_ip", sourceIP,
		"details", details,
	)
}

// Recent returns up to limit events, newest first.
func (l *Log) Recent(limit int) []Event {
	l.mu.Lock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Len reports how many events are currently retained.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Metrics aggregates the retained events: counts by severity, counts by
// type, and how many arrived within the last hour.
func (l *Log) Metrics() Snapshot {
	cutoff := l.now().Add(-time.Hour)

	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		SeverityCounts: make(map[string]int64),
		TypeCounts:     make(map[string]int64),
	}
	for i := range l.events {
		snap.SeverityCounts[l.events[i].Severity]++
		snap.TypeCounts[l.events[i].EventType]++
		if l.events[i].Timestamp.After(cutoff) {
			snap.RecentEvents++
		}
	}
	return snap
}
