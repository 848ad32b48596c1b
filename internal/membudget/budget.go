// Package membudget provides advisory byte accounting for section assets
// against a fixed ceiling. The numbers are pre-flight estimates, not a live
// view of device-resident memory; estimators can under- or over-shoot and the
// tracker only enforces the ceiling at allocation time.
package membudget

import (
	"sync"
)

// Tracker accounts bytes per section against a budget. The zero value is not
// usable; construct with New.
type Tracker struct {
	mu     sync.Mutex
	budget int64
	used   int64
	bySect map[string]int64
}

// New creates a tracker with the given budget in bytes.
func New(budgetBytes int64) *Tracker {
	return &Tracker{
		budget: budgetBytes,
		bySect: make(map[string]int64),
	}
}

// Allocate records bytes against a section. It is all-or-nothing: when the
// request would push the running total past the budget it returns false and
// changes nothing. Repeated allocations for the same section accumulate.
func (t *Tracker) Allocate(sectionID string, bytes int64) bool {
	if bytes < 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.used+bytes > t.budget {
		return false
	}
	t.bySect[sectionID] += bytes
	t.used += bytes
	return true
}

// Free releases a section's entire allocation in one step.
func (t *Tracker) Free(sectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.used -= t.bySect[sectionID]
	delete(t.bySect, sectionID)
}

// SectionAllocation returns the bytes currently recorded for a section.
func (t *Tracker) SectionAllocation(sectionID string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bySect[sectionID]
}

// Used returns the running total across all sections.
func (t *Tracker) Used() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

// Budget returns the configured ceiling in bytes.
func (t *Tracker) Budget() int64 {
	return t.budget
}

// UsagePercent returns used/budget as a percentage in [0,100].
func (t *Tracker) UsagePercent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.budget <= 0 {
		return 0
	}
	return float64(t.used) / float64(t.budget) * 100
}
