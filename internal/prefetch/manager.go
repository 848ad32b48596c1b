// Package prefetch schedules asset loads through an external loader. It keeps
// a priority queue of per-section work, bounds concurrent loads with one
// shared semaphore, and deduplicates asset ids across sections so the same
// asset is never dispatched twice. Speculative lookahead and demand loading
// both go through this scheduler, so the concurrency bound is global.
package prefetch

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vk/scrollstory/internal/ctxlog"
)

// Loader is the external collaborator performing the actual asset fetch.
// Timeouts and retries belong to the loader, not to this package.
type Loader interface {
	Load(ctx context.Context, assetID string) (any, error)
}

type assetStatus int

const (
	statusUnknown assetStatus = iota
	statusLoading
	statusResolved
)

// queueItem is the pending work for one section. At most one live item
// exists per section id; re-enqueues merge into it.
type queueItem struct {
	sectionID string
	pending   map[string]struct{}
	priority  int
	seq       int
}

// fetchWaiter blocks one Fetch call until its unresolved ids settle.
type fetchWaiter struct {
	pending map[string]struct{}
	done    chan struct{}
}

// Manager is the load scheduler. Completion callbacks arrive on loader
// goroutines; all internal state is guarded by one mutex, and section-loaded
// callbacks are invoked outside the lock.
type Manager struct {
	mu     sync.Mutex
	ctx    context.Context
	loader Loader

	queue   []*queueItem
	items   map[string]*queueItem
	nextSeq int

	// sem bounds in-flight loads across every dispatch path.
	sem     *semaphore.Weighted
	status  map[string]assetStatus
	handles map[string]any
	// requested tracks every asset id a section has asked for, surviving
	// queue drain, so IsLoaded can answer after the fact.
	requested map[string]map[string]struct{}
	// loadedSet holds sections whose requested ids have all resolved.
	loadedSet map[string]struct{}

	waiters   []*fetchWaiter
	loadedFns []func(sectionID string)
}

// New creates a manager dispatching at most maxConcurrent loads at a time.
// The context is passed to every loader call; cancelling it is the host's
// shutdown path.
func New(ctx context.Context, loader Loader, maxConcurrent int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		ctx:       ctx,
		loader:    loader,
		items:     make(map[string]*queueItem),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		status:    make(map[string]assetStatus),
		handles:   make(map[string]any),
		requested: make(map[string]map[string]struct{}),
		loadedSet: make(map[string]struct{}),
	}
}

// OnSectionLoaded registers a callback fired once a section's every
// requested asset id has resolved. Failures count as resolved, so one bad
// asset never permanently stalls a section.
func (m *Manager) OnSectionLoaded(fn func(sectionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadedFns = append(m.loadedFns, fn)
}

// Enqueue adds asset ids for a section at the given priority. Re-enqueuing
// merges the pending sets and raises priority to the maximum seen.
func (m *Manager) Enqueue(sectionID string, assetIDs []string, priority int) {
	m.mu.Lock()
	m.enqueueLocked(sectionID, assetIDs, priority)
	m.drain()
	done := m.completedSections()
	m.mu.Unlock()

	m.notify(done)
}

// Fetch enqueues the ids at the given priority and blocks until each one has
// resolved or ctx is cancelled. Ids already loading for another section are
// waited on, not re-dispatched. The returned map holds whichever handles
// loaded successfully by the time Fetch returns.
func (m *Manager) Fetch(ctx context.Context, sectionID string, assetIDs []string, priority int) map[string]any {
	m.mu.Lock()
	m.enqueueLocked(sectionID, assetIDs, priority)

	w := &fetchWaiter{pending: make(map[string]struct{}), done: make(chan struct{})}
	for _, id := range assetIDs {
		if m.status[id] != statusResolved {
			w.pending[id] = struct{}{}
		}
	}
	if len(w.pending) == 0 {
		close(w.done)
	} else {
		m.waiters = append(m.waiters, w)
	}

	m.drain()
	done := m.completedSections()
	m.mu.Unlock()
	m.notify(done)

	select {
	case <-w.done:
	case <-ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropWaiterLocked(w)
	out := make(map[string]any, len(assetIDs))
	for _, id := range assetIDs {
		if h, ok := m.handles[id]; ok {
			out[id] = h
		}
	}
	return out
}

// enqueueLocked merges ids into the section's live queue item. Caller must
// hold m.mu.
func (m *Manager) enqueueLocked(sectionID string, assetIDs []string, priority int) {
	req, ok := m.requested[sectionID]
	if !ok {
		req = make(map[string]struct{})
		m.requested[sectionID] = req
	}
	for _, id := range assetIDs {
		req[id] = struct{}{}
	}

	item := m.items[sectionID]
	if item == nil {
		item = &queueItem{
			sectionID: sectionID,
			pending:   make(map[string]struct{}),
			priority:  priority,
			seq:       m.nextSeq,
		}
		m.nextSeq++
		m.items[sectionID] = item
		m.queue = append(m.queue, item)
	} else if priority > item.priority {
		item.priority = priority
	}
	for _, id := range assetIDs {
		if m.status[id] == statusUnknown {
			item.pending[id] = struct{}{}
		}
	}
	m.sortQueue()
}

func (m *Manager) sortQueue() {
	sort.SliceStable(m.queue, func(i, j int) bool {
		if m.queue[i].priority != m.queue[j].priority {
			return m.queue[i].priority > m.queue[j].priority
		}
		return m.queue[i].seq < m.queue[j].seq
	})
}

// drain dispatches work while semaphore capacity remains. Caller must hold m.mu.
func (m *Manager) drain() {
	for m.sem.TryAcquire(1) {
		assetID, ok := m.nextPending()
		if !ok {
			m.sem.Release(1)
			return
		}
		m.status[assetID] = statusLoading
		go m.load(assetID)
	}
}

// nextPending pops the next undispatched asset id from the highest-priority
// item, skipping ids already loading or loaded for any section. Caller must
// hold m.mu.
func (m *Manager) nextPending() (string, bool) {
	for len(m.queue) > 0 {
		item := m.queue[0]
		for id := range item.pending {
			delete(item.pending, id)
			if m.status[id] != statusUnknown {
				continue
			}
			return id, true
		}
		// Item exhausted; drop it from the live queue.
		m.queue = m.queue[1:]
		delete(m.items, item.sectionID)
	}
	return "", false
}

func (m *Manager) load(assetID string) {
	handle, err := m.loader.Load(m.ctx, assetID)

	m.mu.Lock()
	m.status[assetID] = statusResolved
	if err != nil {
		ctxlog.FromContext(m.ctx).Warn("asset load failed", "asset", assetID, "error", err)
	} else {
		m.handles[assetID] = handle
	}
	m.settleWaiters(assetID)
	m.sem.Release(1)
	m.drain()
	done := m.completedSections()
	m.mu.Unlock()

	m.notify(done)
}

// settleWaiters marks the asset resolved for every blocked Fetch and wakes
// those with nothing left pending. Caller must hold m.mu.
func (m *Manager) settleWaiters(assetID string) {
	kept := m.waiters[:0]
	for _, w := range m.waiters {
		delete(w.pending, assetID)
		if len(w.pending) == 0 {
			close(w.done)
			continue
		}
		kept = append(kept, w)
	}
	m.waiters = kept
}

// dropWaiterLocked removes a waiter that returned early on context
// cancellation. Caller must hold m.mu.
func (m *Manager) dropWaiterLocked(w *fetchWaiter) {
	for i, cand := range m.waiters {
		if cand == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// completedSections returns sections whose every requested id has resolved
// and clears their tracking so the callback fires once. Caller must hold m.mu.
func (m *Manager) completedSections() []string {
	var done []string
	for sectionID, req := range m.requested {
		all := true
		for id := range req {
			if m.status[id] != statusResolved {
				all = false
				break
			}
		}
		if all {
			done = append(done, sectionID)
		}
	}
	sort.Strings(done)
	for _, sectionID := range done {
		delete(m.requested, sectionID)
		m.loadedSet[sectionID] = struct{}{}
	}
	return done
}

func (m *Manager) notify(sections []string) {
	if len(sections) == 0 {
		return
	}
	m.mu.Lock()
	fns := make([]func(string), len(m.loadedFns))
	copy(fns, m.loadedFns)
	m.mu.Unlock()
	for _, sectionID := range sections {
		for _, fn := range fns {
			fn(sectionID)
		}
	}
}

// IsLoaded reports whether every asset the section has requested so far has
// resolved (successfully or not).
func (m *Manager) IsLoaded(sectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loadedSet[sectionID]
	return ok
}

// Handle returns the loaded handle for an asset id, if any. Failed loads
// have no handle.
func (m *Manager) Handle(assetID string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[assetID]
	return h, ok
}

// Clear removes a section's not-yet-started work. In-flight loads finish
// uncancelled; their results stay available for other sections.
func (m *Manager) Clear(sectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked(sectionID)
}

// ClearAll removes all queued work.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sectionID := range m.items {
		m.clearLocked(sectionID)
	}
	for sectionID := range m.requested {
		delete(m.requested, sectionID)
	}
}

func (m *Manager) clearLocked(sectionID string) {
	item := m.items[sectionID]
	if item != nil {
		for i, q := range m.queue {
			if q == item {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				break
			}
		}
		delete(m.items, sectionID)
	}
	delete(m.requested, sectionID)
	delete(m.loadedSet, sectionID)
}
