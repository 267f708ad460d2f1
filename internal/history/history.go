// Package history keeps the bounded conversation ledger and the session
// metrics derived from it.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SuccessThreshold is the confidence above which a translation counts
// as successful in the session metrics.
const SuccessThreshold = 0.8

// DefaultLimit is the retention cap used when none is configured.
const DefaultLimit = 10

// Entry is one resolved exchange. Immutable once recorded.
type Entry struct {
	ID               string
	UserInput        string
	AIResponse       string
	Timestamp        time.Time
	Confidence       float64
	Category         string
	ProcessingTimeMs float64
}

// Metrics summarizes the current entry set. It is recomputed on every
// read and never stored independently of the entries.
type Metrics struct {
	TotalTranslations     int
	AverageConfidence     float64
	AverageProcessingTime float64
	SuccessRate           float64
	CategoriesUsed        []string
	FirstActivity         time.Time
	LastActivity          time.Time
}

// Log is the bounded conversation history, most recent entry first.
type Log struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewLog creates a Log retaining at most limit entries.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{limit: limit}
}

// Record prepends an entry, evicting the oldest once over the cap.
// A missing ID or timestamp is filled in.
func (l *Log) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	return e
}

// Entries returns a copy of the ledger, most recent first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Metrics computes the session metrics from the current entry set.
func (l *Log) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := Metrics{TotalTranslations: len(l.entries), CategoriesUsed: []string{}}
	if len(l.entries) == 0 {
		return m
	}

	var confSum, timeSum float64
	successes := 0
	seen := map[string]struct{}{}
	// entries are newest-first; walk backwards for first-seen category order
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		confSum += e.Confidence
		timeSum += e.ProcessingTimeMs
		if e.Confidence > SuccessThreshold {
			successes++
		}
		if _, ok := seen[e.Category]; !ok && e.Category != "" {
			seen[e.Category] = struct{}{}
			m.CategoriesUsed = append(m.CategoriesUsed, e.Category)
		}
	}
	n := float64(len(l.entries))
	m.AverageConfidence = confSum / n
	m.AverageProcessingTime = timeSum / n
	m.SuccessRate = float64(successes) / n
	m.FirstActivity = l.entries[len(l.entries)-1].Timestamp
	m.LastActivity = l.entries[0].Timestamp
	return m
}
