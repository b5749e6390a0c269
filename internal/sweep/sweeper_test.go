package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/store"
)

func TestSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	put := func(t *testing.T, st store.Store, id string, ttl, createdAt int64) {
		t.Helper()
		require.NoError(t, st.Put(ctx, domain.Secret{
			ID:         id,
			Ciphertext: "cGF5bG9hZA==",
			IV:         "aXY=",
			Salt:       "c2FsdA==",
			TTL:        ttl,
			CreatorID:  "creator-1",
			CreatedAt:  createdAt,
		}))
	}

	t.Run("removes expired and over-horizon records only", func(t *testing.T) {
		st := store.NewMemoryStore()
		sw := New(st, zap.NewNop().Sugar(), 50*24*time.Hour)
		sw.now = func() time.Time { return now }

		// TTL lapsed yesterday
		put(t, st, "expired", now.Unix()-86400, now.Unix()-2*86400)
		// permanent but created 51 days ago, past the retention cap
		put(t, st, "abandoned", domain.PermanentTTL, now.Unix()-51*86400)
		// alive: expires in a week, created recently
		put(t, st, "live", now.Unix()+7*86400, now.Unix()-86400)
		// permanent and within the horizon
		put(t, st, "permanent", domain.PermanentTTL, now.Unix()-10*86400)

		deleted, err := sw.Sweep(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, deleted)

		_, err = st.Get(ctx, "expired")
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = st.Get(ctx, "abandoned")
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = st.Get(ctx, "live")
		require.NoError(t, err)
		_, err = st.Get(ctx, "permanent")
		require.NoError(t, err)
	})

	t.Run("empty store sweeps nothing", func(t *testing.T) {
		st := store.NewMemoryStore()
		sw := New(st, zap.NewNop().Sugar(), 50*24*time.Hour)

		deleted, err := sw.Sweep(ctx)
		require.NoError(t, err)
		require.Zero(t, deleted)
	})

	t.Run("record vanishing mid-sweep is not an error", func(t *testing.T) {
		st := store.NewMemoryStore()
		sw := New(st, zap.NewNop().Sugar(), 50*24*time.Hour)
		sw.now = func() time.Time { return now }

		put(t, st, "expired", now.Unix()-86400, now.Unix()-2*86400)

		// simulate a concurrent lazy delete between scan and delete
		raced := &deleteRacingStore{Store: st, victim: "expired"}
		sw.store = raced

		deleted, err := sw.Sweep(ctx)
		require.NoError(t, err)
		require.Zero(t, deleted, "already-gone records are not counted")
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		st := store.NewMemoryStore()
		sw := New(st, zap.NewNop().Sugar(), 50*24*time.Hour)
		sw.now = func() time.Time { return now }

		put(t, st, "expired", now.Unix()-86400, now.Unix()-2*86400)

		deleted, err := sw.Sweep(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, deleted)

		deleted, err = sw.Sweep(ctx)
		require.NoError(t, err)
		require.Zero(t, deleted)
	})
}

// deleteRacingStore deletes the victim record out from under the sweeper
// just before the sweeper's own delete call.
type deleteRacingStore struct {
	store.Store
	victim string
}

func (d *deleteRacingStore) Delete(ctx context.Context, id string) (bool, error) {
	if id == d.victim {
		_, _ = d.Store.Delete(ctx, id)
	}
	return d.Store.Delete(ctx, id)
}
