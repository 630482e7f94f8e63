package store

import (
	"context"
	"sync"

	"github.com/careflow/medtrack/internal/store/core"
)

// hub fans a collection's snapshots out to watchers. Delivery never blocks a
// mutation: each watcher channel holds one snapshot and a newer one replaces
// an unconsumed older one. Snapshots are full state, so skipping an
// intermediate delivery loses nothing. When a snapshot cannot be produced the
// failure goes to each watcher's error channel instead; a stale snapshot is
// never passed off as current state.
type hub struct {
	mu   sync.Mutex
	seq  uint64
	next int
	subs map[string]map[int]*hubWatcher
}

type hubWatcher struct {
	updates chan core.Snapshot
	errs    chan error
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]*hubWatcher)}
}

func (h *hub) nextSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return h.seq
}

// subscribe registers a watcher for collection, seeded with initial() as the
// first delivery. If initial fails the error is delivered on the watcher's
// error channel and no snapshot is sent. Both returned channels close when
// ctx is done. All sends and the closes happen under h.mu, so a watcher
// channel is never written after it closes.
func (h *hub) subscribe(ctx context.Context, collection string, initial func() (core.Snapshot, error)) (<-chan core.Snapshot, <-chan error) {
	w := &hubWatcher{
		updates: make(chan core.Snapshot, 1),
		errs:    make(chan error, 1),
	}

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]*hubWatcher)
	}
	id := h.next
	h.next++
	h.subs[collection][id] = w
	snap, err := initial()
	if err != nil {
		w.errs <- err
	} else {
		h.seq++
		snap.Seq = h.seq
		sendLatest(w.updates, snap)
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[collection], id)
		close(w.updates)
		close(w.errs)
		h.mu.Unlock()
	}()

	return w.updates, w.errs
}

// broadcast delivers the collection's current state (via snap()) to every
// watcher, latest-wins. A snap failure is reported on each watcher's error
// channel; an error already pending there is kept and the new one dropped,
// so a subscription failure surfaces exactly once.
func (h *hub) broadcast(collection string, snap func() (core.Snapshot, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs[collection]) == 0 {
		return
	}
	s, err := snap()
	if err != nil {
		for _, w := range h.subs[collection] {
			select {
			case w.errs <- err:
			default:
			}
		}
		return
	}
	h.seq++
	s.Seq = h.seq
	for _, w := range h.subs[collection] {
		sendLatest(w.updates, s)
	}
}

// sendLatest places snap on a one-slot channel, displacing an unread older
// snapshot if necessary.
func sendLatest(ch chan core.Snapshot, snap core.Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
