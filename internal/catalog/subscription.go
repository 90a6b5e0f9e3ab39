// Package catalog holds the catalog synchronization core: the change-stream
// subscription, the pure view projection, and the mutation service. Reads
// flow store -> subscription -> projection; writes flow service -> store and
// become visible only through the next snapshot. Read-your-writes is NOT
// guaranteed: a mutation's success return and the snapshot showing its
// effect are not causally ordered.
package catalog

import (
	"sort"
	"sync"

	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/store"
)

// Collection is the backing collection name.
const Collection = "productos"

// View is one delivery to the presentation layer: the full ordered list,
// plus an ambient error when the stream is degraded. While Err is set the
// Products slice is the frozen last-known list, never an empty one.
type View struct {
	Products []domain.Product `json:"products"`
	Err      error            `json:"-"`
}

// Subscription maps a raw store change-stream into ordered Product views.
// Each mounted catalog consumer opens its own Subscription and must Close
// it on teardown; there is no cross-consumer sharing.
type Subscription struct {
	C <-chan View

	ch   chan View
	src  *store.Subscription
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	last []domain.Product
}

// Open starts a catalog subscription against the store.
func Open(st store.Store) (*Subscription, error) {
	src, err := st.Subscribe(Collection)
	if err != nil {
		return nil, err
	}
	ch := make(chan View, 1)
	s := &Subscription{
		C:    ch,
		ch:   ch,
		src:  src,
		done: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Close tears down the underlying store subscription. Required on every
// teardown path or the change-stream listener leaks.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.src.Close()
		close(s.done)
	})
}

// Current returns the last list this subscription produced.
func (s *Subscription) Current() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.src.C:
			s.emit(s.reduce(snap))
		}
	}
}

// reduce turns one raw snapshot into the next view. On a stream error the
// last-known list is frozen rather than cleared, so a transient outage
// never presents as "no products".
func (s *Subscription) reduce(snap store.Snapshot) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Err != nil {
		return View{Products: s.last, Err: snap.Err}
	}
	s.last = Reduce(snap.Docs)
	return View{Products: s.last}
}

func (s *Subscription) emit(v View) {
	// latest-wins: replace a pending view instead of queueing behind it
	for {
		select {
		case s.ch <- v:
			return
		case <-s.done:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Reduce maps raw documents to Products and establishes the canonical
// ordering: createdAt descending, document id as the tie-break so equal or
// missing timestamps still order deterministically. Documents that fail to
// parse are kept with permissive defaults, never dropped.
func Reduce(docs []store.RawDocument) []domain.Product {
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, domain.ProductFromDocument(doc.ID, doc.Fields))
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
	return products
}
