package docstore

import (
	"encoding/json"
	"sync"

	"github.com/pairbook/core/internal/ports"
)

// hub fans document snapshots out to per-key subscribers. Delivery is
// in-process: every store in this package routes its own writes through a
// hub, which is sufficient for the single-server deployment this
// application targets.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[int]ports.SnapshotFunc
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]ports.SnapshotFunc)}
}

func topic(collection, key string) string {
	return collection + "/" + key
}

// subscribe registers fn for a document and returns a cancel function.
// It does not deliver the initial snapshot; the store does that after
// registration so no change is missed in between.
func (h *hub) subscribe(collection, key string, fn ports.SnapshotFunc) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := topic(collection, key)
	if h.subs[t] == nil {
		h.subs[t] = make(map[int]ports.SnapshotFunc)
	}
	id := h.next
	h.next++
	h.subs[t][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[t], id)
		if len(h.subs[t]) == 0 {
			delete(h.subs, t)
		}
	}
}

// publish delivers the current snapshot of a document to its subscribers.
// A nil doc signals deletion.
func (h *hub) publish(collection, key string, doc json.RawMessage) {
	h.mu.Lock()
	fns := make([]ports.SnapshotFunc, 0, len(h.subs[topic(collection, key)]))
	for _, fn := range h.subs[topic(collection, key)] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(doc)
	}
}
