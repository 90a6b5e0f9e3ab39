package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap := <-sub.C:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestMemoryStoreUpdateMergesFields(t *testing.T) {
	st := NewMemoryStore()
	defer st.Close()
	ctx := context.Background()

	id, err := st.AddDocument(ctx, "c", Document{"name": "Miel", "price": 8200.0, "quantity": "1 u"})
	require.NoError(t, err)

	// fields not present in the update keep their stored value
	require.NoError(t, st.UpdateDocument(ctx, "c", id, Document{"price": 8900.0}))

	sub, err := st.Subscribe("c")
	require.NoError(t, err)
	defer sub.Close()
	snap := nextSnapshot(t, sub)
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, 8900.0, snap.Docs[0].Fields["price"])
	assert.Equal(t, "Miel", snap.Docs[0].Fields["name"])
	assert.Equal(t, "1 u", snap.Docs[0].Fields["quantity"])
}

func TestMemoryStoreMissingTargets(t *testing.T) {
	st := NewMemoryStore()
	defer st.Close()
	ctx := context.Background()

	err := st.UpdateDocument(ctx, "c", "ghost", Document{"name": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, st.DeleteDocument(ctx, "c", "ghost"), domain.ErrNotFound)

	// deleting twice: the second delete's target is gone
	id, err := st.AddDocument(ctx, "c", Document{"name": "x"})
	require.NoError(t, err)
	require.NoError(t, st.DeleteDocument(ctx, "c", id))
	assert.ErrorIs(t, st.DeleteDocument(ctx, "c", id), domain.ErrNotFound)
}

func TestMemoryStoreSubscribeAfterClose(t *testing.T) {
	st := NewMemoryStore()
	st.Close()
	_, err := st.Subscribe("c")
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSubscriptionLatestWins(t *testing.T) {
	sub := newSubscription(nil)

	sub.deliver(Snapshot{Docs: []RawDocument{{ID: "stale"}}})
	sub.deliver(Snapshot{Docs: []RawDocument{{ID: "fresh"}}})

	snap := <-sub.C
	require.Len(t, snap.Docs, 1)
	assert.Equal(t, "fresh", snap.Docs[0].ID)
	select {
	case <-sub.C:
		t.Fatal("stale snapshot should have been dropped")
	default:
	}
}

func TestSubscriptionDeliverAfterClose(t *testing.T) {
	var removed bool
	sub := newSubscription(func(*Subscription) { removed = true })
	sub.Close()
	assert.True(t, removed)
	sub.deliver(Snapshot{Docs: []RawDocument{{ID: "late"}}})
	select {
	case <-sub.C:
		t.Fatal("closed subscription received a snapshot")
	default:
	}
}

// scriptedLoader serves hand-built snapshots and counts loads.
type scriptedLoader struct {
	mu    sync.Mutex
	snap  Snapshot
	loads int
}

func (l *scriptedLoader) loadSnapshot(string) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	return l.snap
}

func (l *scriptedLoader) set(snap Snapshot) {
	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()
}

func TestStreamHubDelivery(t *testing.T) {
	loader := &scriptedLoader{snap: Snapshot{Docs: []RawDocument{{ID: "p1"}}}}
	bus := EventBus.New()
	hub, err := newStreamHub(loader, bus)
	require.NoError(t, err)
	defer hub.close()

	subA, err := hub.subscribe("c")
	require.NoError(t, err)
	defer subA.Close()
	subB, err := hub.subscribe("c")
	require.NoError(t, err)

	require.Len(t, nextSnapshot(t, subA).Docs, 1)
	require.Len(t, nextSnapshot(t, subB).Docs, 1)

	// one change event reaches every open subscription
	loader.set(Snapshot{Docs: []RawDocument{{ID: "p1"}, {ID: "p2"}}})
	bus.Publish(changedTopic("c"), "c")
	assert.Len(t, nextSnapshot(t, subA).Docs, 2)
	assert.Len(t, nextSnapshot(t, subB).Docs, 2)

	// closing one subscription leaves the other attached
	subB.Close()
	loader.set(Snapshot{Docs: []RawDocument{{ID: "p1"}}})
	bus.Publish(changedTopic("c"), "c")
	assert.Len(t, nextSnapshot(t, subA).Docs, 1)
}

func TestStreamHubUnsubscribesLastHandler(t *testing.T) {
	loader := &scriptedLoader{}
	bus := EventBus.New()
	hub, err := newStreamHub(loader, bus)
	require.NoError(t, err)
	defer hub.close()

	sub, err := hub.subscribe("c")
	require.NoError(t, err)
	nextSnapshot(t, sub)

	hub.mu.Lock()
	registered := len(hub.handlers)
	hub.mu.Unlock()
	assert.Equal(t, 1, registered)

	sub.Close()
	hub.mu.Lock()
	remaining := len(hub.handlers)
	subscribers := len(hub.subs)
	hub.mu.Unlock()
	assert.Zero(t, remaining)
	assert.Zero(t, subscribers)

	// events after the last close load nothing
	loader.mu.Lock()
	loads := loader.loads
	loader.mu.Unlock()
	bus.Publish(changedTopic("c"), "c")
	time.Sleep(50 * time.Millisecond)
	loader.mu.Lock()
	defer loader.mu.Unlock()
	assert.Equal(t, loads, loader.loads)
}

func TestStreamHubErrorSnapshots(t *testing.T) {
	loader := &scriptedLoader{snap: Snapshot{Err: errors.Wrap(domain.ErrSyncFailure, "backend unavailable")}}
	bus := EventBus.New()
	hub, err := newStreamHub(loader, bus)
	require.NoError(t, err)
	defer hub.close()

	sub, err := hub.subscribe("c")
	require.NoError(t, err)
	defer sub.Close()

	snap := nextSnapshot(t, sub)
	require.Error(t, snap.Err)
	assert.ErrorIs(t, snap.Err, domain.ErrSyncFailure)
	assert.Empty(t, snap.Docs)
}
