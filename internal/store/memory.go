package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
)

// MemoryStore is a Store held entirely in process memory. It backs tests
// and local development where no database is available; semantics match
// GormStore, including merge-on-update and snapshot ordering by doc id.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int64
	collections map[string]map[string]Document
	subs        map[string]map[*Subscription]struct{}
	loadErr     error
	closed      bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		subs:        make(map[string]map[*Subscription]struct{}),
	}
}

func (s *MemoryStore) AddDocument(_ context.Context, collection string, fields Document) (string, error) {
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("%020d", s.seq)
	s.put(collection, id, fields)
	s.mu.Unlock()
	s.broadcast(collection)
	return id, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, collection, id string, fields Document) error {
	s.mu.Lock()
	existing, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrNotFound, "document %s/%s", collection, id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	s.mu.Unlock()
	s.broadcast(collection)
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return errors.Wrapf(domain.ErrNotFound, "document %s/%s", collection, id)
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()
	s.broadcast(collection)
	return nil
}

func (s *MemoryStore) Subscribe(collection string) (*Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	sub := newSubscription(func(sub *Subscription) { s.remove(collection, sub) })
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*Subscription]struct{})
	}
	s.subs[collection][sub] = struct{}{}
	snap := s.snapshotLocked(collection)
	s.mu.Unlock()
	sub.deliver(snap)
	return sub, nil
}

// Put writes a document under a caller-chosen id, as an external writer
// would. It upserts, bypassing the must-exist rule of UpdateDocument.
func (s *MemoryStore) Put(collection, id string, fields Document) {
	s.mu.Lock()
	s.put(collection, id, fields)
	s.mu.Unlock()
	s.broadcast(collection)
}

// SetLoadError makes every subsequent snapshot fail with err until cleared
// with nil. Existing data is untouched; this simulates a degraded stream.
func (s *MemoryStore) SetLoadError(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

func (s *MemoryStore) Close() {
	s.mu.Lock()
	s.closed = true
	var all []*Subscription
	for _, set := range s.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	s.subs = make(map[string]map[*Subscription]struct{})
	s.mu.Unlock()
	for _, sub := range all {
		sub.Close()
	}
}

func (s *MemoryStore) put(collection, id string, fields Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	doc := make(Document, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	s.collections[collection][id] = doc
}

func (s *MemoryStore) broadcast(collection string) {
	s.mu.Lock()
	snap := s.snapshotLocked(collection)
	targets := make([]*Subscription, 0, len(s.subs[collection]))
	for sub := range s.subs[collection] {
		targets = append(targets, sub)
	}
	s.mu.Unlock()
	for _, sub := range targets {
		sub.deliver(snap)
	}
}

func (s *MemoryStore) snapshotLocked(collection string) Snapshot {
	if s.loadErr != nil {
		return Snapshot{Err: errors.Wrap(domain.ErrSyncFailure, s.loadErr.Error())}
	}
	docs := make([]RawDocument, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		copied := make(Document, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		docs = append(docs, RawDocument{ID: id, Fields: copied})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return Snapshot{Docs: docs}
}

func (s *MemoryStore) remove(collection string, sub *Subscription) {
	s.mu.Lock()
	if set, ok := s.subs[collection]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(s.subs, collection)
		}
	}
	s.mu.Unlock()
}
