package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbay/internal/app"
	"rentbay/internal/domain"
)

type fakeSource struct {
	mu   sync.Mutex
	refs []domain.ChangedRef
	rows map[string]map[string]any
	errs map[string]error
	seen []time.Time
}

func (s *fakeSource) ChangedListingIDs(ctx context.Context, since time.Time, limit int) ([]domain.ChangedRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, since)
	var out []domain.ChangedRef
	for _, r := range s.refs {
		if r.UpdatedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeSource) GetListingRow(ctx context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return row, nil
}

func ts(h int) time.Time { return time.Date(2026, 3, 1, h, 0, 0, 0, time.UTC) }

func TestSyncListing_MapsLooseRow(t *testing.T) {
	store := newStore()
	src := &fakeSource{rows: map[string]map[string]any{
		"L1": {
			"id":           "L1",
			"user_id":      "owner-9",
			"name":         "Terrace Duplex, Lekki",
			"listing_type": "Short-Let",
			"state":        "published",
			"price":        "45000,50",
			"currency":     "ngn",
			"location":     map[string]any{"lat": 6.44, "lng": 3.47, "city": "Lagos"},
			"images":       []any{map[string]any{"url": "a.jpg"}, "b.jpg"},
			"beds":         "3",
			"updated_at":   "2026-03-01T10:00:00.123456+00:00",
		},
	}}
	svc := app.NewSyncService(src, store, nil, 2, 10)

	ok, err := svc.SyncListing(context.Background(), "L1")
	require.NoError(t, err)
	require.True(t, ok)

	l := store.listings["L1"]
	assert.Equal(t, "owner-9", l.OwnerID)
	assert.Equal(t, domain.KindShortlet, l.Kind)
	assert.Equal(t, domain.StatusLive, l.Status)
	assert.Equal(t, int64(4_500_050), l.PriceMinor)
	assert.Equal(t, "NGN", l.Currency)
	assert.Equal(t, "Lagos", l.City)
	assert.Equal(t, domain.LocationApproximate, l.LocationPrecision)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Photos)
	require.NotNil(t, l.CoverImage)
	assert.Equal(t, "a.jpg", *l.CoverImage)
	assert.Equal(t, 3, l.Bedrooms)
	assert.Equal(t, "terrace-duplex-lekki-l1", l.Slug)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC), l.UpdatedAt)
}

func TestSyncListing_MissesAreRecorded(t *testing.T) {
	store := newStore()
	src := &fakeSource{
		rows: map[string]map[string]any{"bad": {"id": "bad", "owner_id": "o", "title": "No kind"}},
		errs: map[string]error{"hidden": domain.ErrForbidden},
	}
	svc := app.NewSyncService(src, store, nil, 2, 10)
	ctx := context.Background()

	for _, id := range []string{"gone", "hidden", "bad"} {
		ok, err := svc.SyncListing(ctx, id)
		require.NoError(t, err, id)
		assert.False(t, ok, id)
	}
	assert.Equal(t, "not found", store.misses["gone"])
	assert.Equal(t, "forbidden", store.misses["hidden"])
	assert.Contains(t, store.misses["bad"], "unmappable")
	assert.Zero(t, store.upserts)
}

func TestSyncListing_SlugClashGetsSuffix(t *testing.T) {
	store := newStore()
	store.put(liveListing(idA, "local-owner", "garden-flat"))
	src := &fakeSource{rows: map[string]map[string]any{
		"abcdef123456": {"id": "abcdef123456", "owner_id": "o", "title": "Garden flat", "slug": "garden-flat", "kind": "rent"},
	}}
	svc := app.NewSyncService(src, store, nil, 1, 10)

	_, err := svc.SyncListing(context.Background(), "abcdef123456")
	require.NoError(t, err)
	assert.Equal(t, "garden-flat-abcdef12", store.listings["abcdef123456"].Slug)
	assert.Equal(t, "garden-flat", store.listings[idA].Slug)
}

func TestRun_WatermarkStopsAtFirstFailure(t *testing.T) {
	store := newStore()
	store.failUpsert["L3"] = true
	row := func(id string) map[string]any {
		return map[string]any{"id": id, "owner_id": "o", "title": "Listing " + id, "kind": "sale"}
	}
	src := &fakeSource{
		refs: []domain.ChangedRef{{ID: "L1", UpdatedAt: ts(1)}, {ID: "L2", UpdatedAt: ts(2)}, {ID: "L3", UpdatedAt: ts(3)}, {ID: "L4", UpdatedAt: ts(4)}},
		rows: map[string]map[string]any{"L1": row("L1"), "L3": row("L3"), "L4": row("L4")},
	}
	cache := &fakeCache{}
	svc := app.NewSyncService(src, store, cache, 3, 10)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Changed)
	assert.Equal(t, 2, rep.Upserted)
	assert.Equal(t, 1, rep.Missed)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, ts(2), rep.Watermark)
	assert.Equal(t, ts(2), store.watermark)
	assert.Contains(t, cache.dels, "listing:id:L1")

	// next run resumes after L2
	delete(store.failUpsert, "L3")
	rep, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Changed)
	assert.Equal(t, ts(4), store.watermark)
	assert.Equal(t, ts(2), src.seen[1])
}

func TestRun_SourceErrorBubbles(t *testing.T) {
	svc := app.NewSyncService(errSource{}, newStore(), nil, 1, 1)
	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}

type errSource struct{}

func (errSource) ChangedListingIDs(ctx context.Context, since time.Time, limit int) ([]domain.ChangedRef, error) {
	return nil, errors.New("gateway down")
}
func (errSource) GetListingRow(ctx context.Context, id string) (map[string]any, error) {
	return nil, errors.New("unreachable")
}
