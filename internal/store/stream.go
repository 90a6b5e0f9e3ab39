package store

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// defaultStreamWorkers bounds concurrent snapshot deliveries so one slow
// subscriber never blocks a writer.
const defaultStreamWorkers = 32

func changedTopic(collection string) string {
	return "store.changed." + collection
}

// snapshotLoader reads the full current state of one collection.
type snapshotLoader interface {
	loadSnapshot(collection string) Snapshot
}

// streamHub fans collection change events out to open subscriptions. One
// bus handler is registered per collection with at least one subscriber;
// the snapshot is loaded once per event and delivered through the pool.
type streamHub struct {
	src  snapshotLoader
	bus  EventBus.Bus
	pool *ants.Pool

	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	handlers map[string]func(string)
	closed   bool
}

func newStreamHub(src snapshotLoader, bus EventBus.Bus) (*streamHub, error) {
	pool, err := ants.NewPool(defaultStreamWorkers)
	if err != nil {
		return nil, err
	}
	return &streamHub{
		src:      src,
		bus:      bus,
		pool:     pool,
		subs:     make(map[string]map[*Subscription]struct{}),
		handlers: make(map[string]func(string)),
	}, nil
}

func (h *streamHub) subscribe(collection string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrStoreClosed
	}

	sub := newSubscription(func(s *Subscription) { h.remove(collection, s) })

	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*Subscription]struct{})
		handler := func(c string) { h.broadcast(c) }
		if err := h.bus.Subscribe(changedTopic(collection), handler); err != nil {
			return nil, err
		}
		h.handlers[collection] = handler
	}
	h.subs[collection][sub] = struct{}{}

	// initial snapshot, delivered off the caller's goroutine
	h.submit(func() { sub.deliver(h.src.loadSnapshot(collection)) })
	return sub, nil
}

func (h *streamHub) broadcast(collection string) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[collection]))
	for sub := range h.subs[collection] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	snap := h.src.loadSnapshot(collection)
	for _, sub := range targets {
		s := sub
		h.submit(func() { s.deliver(snap) })
	}
}

func (h *streamHub) remove(collection string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[collection]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, collection)
			if handler, ok := h.handlers[collection]; ok {
				if err := h.bus.Unsubscribe(changedTopic(collection), handler); err != nil {
					zap.L().Warn("failed to unsubscribe change handler",
						zap.String("collection", collection),
						zap.Error(err),
					)
				}
				delete(h.handlers, collection)
			}
		}
	}
}

func (h *streamHub) submit(task func()) {
	if err := h.pool.Submit(task); err != nil {
		zap.L().Warn("stream delivery rejected by pool", zap.Error(err))
	}
}

func (h *streamHub) close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	h.pool.Release()
}
