package magnolia

import "sync"

// RenderQueue is the ordered list of geometry drawn every frame.
// Insertion order is draw order; a geometry enqueued twice is drawn twice.
// RenderQueue is safe for concurrent use.
type RenderQueue struct {
	mu    sync.Mutex
	items []*Geometry
}

// Push appends g.
func (q *RenderQueue) Push(g *Geometry) {
	q.mu.Lock()
	q.items = append(q.items, g)
	q.mu.Unlock()
}

// Remove deletes every occurrence of g and reports whether any was found.
func (q *RenderQueue) Remove(g *Geometry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	for _, it := range q.items {
		if it != g {
			kept = append(kept, it)
		}
	}
	clear(q.items[len(kept):])
	found := len(kept) != len(q.items)
	q.items = kept
	return found
}

// Snapshot returns the current contents. Later pushes do not affect it.
func (q *RenderQueue) Snapshot() []*Geometry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Geometry(nil), q.items...)
}

// Len returns the number of queued entries.
func (q *RenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear empties the queue.
func (q *RenderQueue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
