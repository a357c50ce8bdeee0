package sharedmap

import "sync"

// SteerTable maps an RX-queue index to the user-space socket handle that
// receives steered frames for that queue. Control-plane only: the
// classifier only ever reads the queue id out of the active Config and
// hands the frame to the ring registered here; the steer table itself is
// consulted by the drainer/engine wiring, not on the classifier's own
// per-packet path.
type SteerTable struct {
	mu      sync.RWMutex
	handles map[uint32]any
}

// NewSteerTable creates an empty steering table.
func NewSteerTable() *SteerTable {
	return &SteerTable{handles: make(map[uint32]any)}
}

// Set registers a socket/ring handle for a queue id.
func (t *SteerTable) Set(queueID uint32, handle any) {
	t.mu.Lock()
	t.handles[queueID] = handle
	t.mu.Unlock()
}

// Unset removes the registration for a queue id.
func (t *SteerTable) Unset(queueID uint32) {
	t.mu.Lock()
	delete(t.handles, queueID)
	t.mu.Unlock()
}

// Get returns the handle registered for a queue id, if any.
func (t *SteerTable) Get(queueID uint32) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handles[queueID]
	return h, ok
}

// QueueIDs returns every queue id currently registered.
func (t *SteerTable) QueueIDs() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint32, 0, len(t.handles))
	for id := range t.handles {
		ids = append(ids, id)
	}
	return ids
}
