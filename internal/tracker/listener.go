// Package tracker implements the realtime synchronization layer between the
// medications collection and its consumers: a snapshot subscription with an
// explicit error channel, and an optimistic edit overlay.
package tracker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/store"
)

// Collection is the document collection all medication requests live in.
const Collection = "medications"

// Listener opens snapshot subscriptions against the medications collection.
type Listener struct {
	store  store.Store
	logger *zap.Logger
}

// NewListener creates a listener over st.
func NewListener(st store.Store, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{store: st, logger: logger}
}

// Subscription is a live snapshot feed. Updates carries the complete
// normalized list, newest first, once per change; Errs carries subscription
// and decode failures so a consumer can render a connection-lost state
// instead of freezing silently. Unsubscribe is idempotent and no update is
// delivered after it returns, including deliveries already in flight.
type Subscription struct {
	updates chan []medication.Request
	errs    chan error

	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Updates returns the snapshot channel. Closed after Unsubscribe.
func (s *Subscription) Updates() <-chan []medication.Request { return s.updates }

// Errs returns the error channel. A subscription failure is reported once;
// after that no further snapshots arrive.
func (s *Subscription) Errs() <-chan error { return s.errs }

// Unsubscribe tears the subscription down. Safe to call more than once.
// On return the updates channel holds nothing and will only close: a
// snapshot still in flight at the store layer is discarded, never observed.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		for range s.updates {
			// drain anything buffered before the feed goroutine exits
		}
	})
}

// Subscribe opens exactly one subscription ordered by creation time
// descending. The first delivery is the current state; every subsequent
// store change re-delivers the entire list. The subscription also ends when
// ctx is done.
func (l *Listener) Subscribe(ctx context.Context) (*Subscription, error) {
	wctx, cancel := context.WithCancel(ctx)

	updates, werrs, err := l.store.Watch(wctx, Collection)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		updates: make(chan []medication.Request, 1),
		errs:    make(chan error, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.run(sub, updates, werrs)
	return sub, nil
}

func (l *Listener) run(sub *Subscription, updates <-chan store.Snapshot, werrs <-chan error) {
	defer close(sub.updates)

	for {
		select {
		case <-sub.done:
			return
		case err, ok := <-werrs:
			if !ok {
				werrs = nil
				continue
			}
			l.logger.Error("subscription failed", zap.Error(err))
			sub.reportErr(err)
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			list := l.normalize(sub, snap)
			sub.deliver(list)
		}
	}
}

// normalize decodes the snapshot into canonical requests. A document that
// fails to decode is reported on the error channel and omitted from the
// delivered list; one bad record must not blind the whole view.
func (l *Listener) normalize(sub *Subscription, snap store.Snapshot) []medication.Request {
	list := make([]medication.Request, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		req, err := medication.Decode(doc.ID, doc.Fields, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			l.logger.Warn("dropping undecodable document",
				zap.String("id", doc.ID), zap.Error(err))
			sub.reportErr(err)
			continue
		}
		list = append(list, req)
	}
	return list
}

// deliver hands the list to the consumer unless the subscription is already
// torn down; a late in-flight snapshot is discarded. A slow consumer only
// ever sees the freshest list.
func (s *Subscription) deliver(list []medication.Request) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case <-s.done:
			return
		case s.updates <- list:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Subscription) reportErr(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
