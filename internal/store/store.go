// Package store implements the remote document store contract: schema-less
// collections with point writes, deletes and a subscribe-for-changes
// primitive that re-delivers the full current snapshot on every change.
package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrStoreClosed is returned by Subscribe after the store shut down.
var ErrStoreClosed = errors.New("store closed")

// Document is one set of raw, untyped fields.
type Document map[string]interface{}

// RawDocument pairs a document with its store-assigned id.
type RawDocument struct {
	ID     string
	Fields Document
}

// Snapshot is one delivery from a change-stream: the collection as of now.
// Err is set when the snapshot could not be loaded; Docs then carries
// nothing and the consumer should keep whatever it last had.
type Snapshot struct {
	Docs []RawDocument
	Err  error
}

// Store is the document store collaborator. IDs are assigned by the store
// on add and are never reused. Update and Delete require the target to
// exist; there are no upsert semantics.
type Store interface {
	AddDocument(ctx context.Context, collection string, fields Document) (string, error)
	UpdateDocument(ctx context.Context, collection, id string, fields Document) error
	DeleteDocument(ctx context.Context, collection, id string) error

	// Subscribe opens a change-stream over a collection. The current
	// snapshot is delivered immediately, then again after every mutation.
	// The caller must Close the subscription or the listener leaks.
	Subscribe(collection string) (*Subscription, error)
}

// Subscription is one open change-stream. C carries snapshots until Close.
// Delivery is latest-wins: a consumer that falls behind skips straight to
// the most recent snapshot instead of queueing stale ones.
type Subscription struct {
	C <-chan Snapshot

	ch        chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
	onClose   func(*Subscription)
}

func newSubscription(onClose func(*Subscription)) *Subscription {
	ch := make(chan Snapshot, 1)
	return &Subscription{
		C:       ch,
		ch:      ch,
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// deliver pushes a snapshot with latest-wins semantics.
func (s *Subscription) deliver(snap Snapshot) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.ch <- snap:
			return
		case <-s.done:
			return
		default:
			// buffer holds a stale snapshot; drop it and retry
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
