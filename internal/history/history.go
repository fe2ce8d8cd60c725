// Package history keeps the ordered log of diagnoses made by this process.
package history

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/climatewash/internal/types"
)

// ErrNotFound is returned when no entry has the requested id
var ErrNotFound = errors.New("history entry not found")

// Entry is one completed diagnosis
type Entry struct {
	ID        uuid.UUID              `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      types.ContentType      `json:"type"`
	Result    types.EvaluationResult `json:"result"`
}

// Stats summarizes the log
type Stats struct {
	Total          int               `json:"total"`
	AverageScore   float64           `json:"average_score"`
	HighRiskCount  int               `json:"high_risk_count"`
	MostCommonType types.ContentType `json:"most_common_type,omitempty"`
}

// Log is an append-only, in-memory diagnosis history.
// It is owned by the caller and safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append records result and returns the stored entry
func (l *Log) Append(result types.EvaluationResult) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:        uuid.New(),
		Timestamp: l.now(),
		Type:      result.ContentType,
		Result:    result,
	}
	l.entries = append(l.entries, entry)
	return entry
}

// List returns all entries, newest first
func (l *Log) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Get returns the entry with id
func (l *Log) Get(id uuid.UUID) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Len returns the number of entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Stats computes totals over all entries. Failed diagnoses count with score 0.
// highRiskLabel is the overall risk label treated as high risk.
func (l *Log) Stats(highRiskLabel string) Stats {
	entries := l.List()
	stats := Stats{Total: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	sum := 0
	counts := make(map[types.ContentType]int)
	var order []types.ContentType
	for _, e := range entries {
		sum += e.Result.Score
		if e.Result.OverallRisk == highRiskLabel {
			stats.HighRiskCount++
		}
		if counts[e.Type] == 0 {
			order = append(order, e.Type)
		}
		counts[e.Type]++
	}
	stats.AverageScore = float64(sum) / float64(len(entries))

	// ties go to the type seen first, newest first
	for _, t := range order {
		if counts[t] > counts[stats.MostCommonType] {
			stats.MostCommonType = t
		}
	}
	return stats
}
