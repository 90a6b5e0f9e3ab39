package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sanamente/catalogd/internal/domain"
	"github.com/sanamente/catalogd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextView(t *testing.T, sub *Subscription) View {
	t.Helper()
	select {
	case v := <-sub.C:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view")
		return View{}
	}
}

func TestSubscriptionInitialSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	st.Put(Collection, "p1", store.Document{"name": "Miel Pura", "price": 8200.0})

	sub, err := Open(st)
	require.NoError(t, err)
	defer sub.Close()

	v := nextView(t, sub)
	require.NoError(t, v.Err)
	require.Len(t, v.Products, 1)
	assert.Equal(t, "p1", v.Products[0].ID)
	assert.Equal(t, "Miel Pura", v.Products[0].Name)
}

func TestSubscriptionPermissiveMapping(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	st.Put(Collection, "odd", store.Document{
		"name":      12345,
		"price":     "12.50",
		"quantity":  2,
		"createdAt": int64(1700000000000), // millisecond epoch
	})
	st.Put(Collection, "bare", store.Document{})

	sub, err := Open(st)
	require.NoError(t, err)
	defer sub.Close()

	v := nextView(t, sub)
	require.NoError(t, v.Err)
	require.Len(t, v.Products, 2)

	odd := v.Products[0] // has a timestamp, sorts newest
	assert.Equal(t, "odd", odd.ID)
	assert.Equal(t, "12345", odd.Name)
	assert.Equal(t, 12.5, odd.Price)
	assert.Equal(t, "2", odd.Quantity)
	assert.Equal(t, time.UnixMilli(1700000000000).Unix(), odd.CreatedAt.Unix())

	bare := v.Products[1]
	assert.Equal(t, "bare", bare.ID)
	assert.True(t, bare.CreatedAt.IsZero())
}

func TestSubscriptionOrdering(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()
	defer st.Close()
	st.Put(Collection, "old", store.Document{"name": "a", "createdAt": base.Add(-time.Hour)})
	st.Put(Collection, "new", store.Document{"name": "b", "createdAt": base})
	// equal timestamps break the tie on id, descending
	st.Put(Collection, "tie1", store.Document{"name": "c", "createdAt": base.Add(time.Hour)})
	st.Put(Collection, "tie2", store.Document{"name": "d", "createdAt": base.Add(time.Hour)})
	st.Put(Collection, "untimed", store.Document{"name": "e"})

	sub, err := Open(st)
	require.NoError(t, err)
	defer sub.Close()

	v := nextView(t, sub)
	require.NoError(t, v.Err)
	ids := make([]string, 0, len(v.Products))
	for _, p := range v.Products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"tie2", "tie1", "new", "old", "untimed"}, ids)
}

func TestSubscriptionDeliversMutations(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	sub, err := Open(st)
	require.NoError(t, err)
	defer sub.Close()

	v := nextView(t, sub)
	assert.Empty(t, v.Products)

	id, err := st.AddDocument(context.Background(), Collection, store.Document{"name": "Granola"})
	require.NoError(t, err)
	v = nextView(t, sub)
	require.Len(t, v.Products, 1)
	assert.Equal(t, id, v.Products[0].ID)

	require.NoError(t, st.DeleteDocument(context.Background(), Collection, id))
	v = nextView(t, sub)
	assert.Empty(t, v.Products)
}

func TestSubscriptionFreezesOnError(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	st.Put(Collection, "p1", store.Document{"name": "Miel Pura"})

	sub, err := Open(st)
	require.NoError(t, err)
	defer sub.Close()

	v := nextView(t, sub)
	require.Len(t, v.Products, 1)

	st.SetLoadError(errors.New("backend unavailable"))
	st.Put(Collection, "p2", store.Document{"name": "Granola"})

	v = nextView(t, sub)
	require.Error(t, v.Err)
	assert.Equal(t, "SYNC_FAILURE", domain.ErrorCode(v.Err))
	// last-known list stays frozen, never cleared
	require.Len(t, v.Products, 1)
	assert.Equal(t, "p1", v.Products[0].ID)
	assert.Equal(t, v.Products, sub.Current())

	// stream recovers on the next successful snapshot
	st.SetLoadError(nil)
	st.Put(Collection, "p3", store.Document{"name": "Kombucha"})
	v = nextView(t, sub)
	require.NoError(t, v.Err)
	assert.Len(t, v.Products, 3)
}
