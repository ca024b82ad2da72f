package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"rentbay/internal/adapters/observability"
	"rentbay/internal/domain"
)

const listingsWatermark = "listings"

// SyncService mirrors listings edited on the hosted platform into the local store.
type SyncService struct {
	src     domain.ListingSource
	repo    domain.ListingRepository
	cache   cacheLayer
	workers int
	batch   int
}

func NewSyncService(src domain.ListingSource, r domain.ListingRepository, c domain.Cache, workers, batch int) *SyncService {
	if workers <= 0 {
		workers = 4
	}
	if batch <= 0 {
		batch = 500
	}
	return &SyncService{src: src, repo: r, cache: cacheLayer{c: c}, workers: workers, batch: batch}
}

type SyncReport struct {
	Changed   int
	Upserted  int
	Missed    int
	Failed    int
	Watermark time.Time
}

// SyncListing pulls one row and upserts it. Rows that are gone, hidden from the service key
// or unmappable are recorded as misses and evicted from cache instead of failing the run.
func (s *SyncService) SyncListing(ctx context.Context, id string) (bool, error) {
	row, err := s.src.GetListingRow(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.miss(ctx, id, "not found")
			return false, nil
		case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
			s.miss(ctx, id, "forbidden")
			return false, nil
		}
		return false, err
	}

	l, err := mapSyncedListing(row)
	if err != nil {
		s.miss(ctx, id, "unmappable: "+err.Error())
		return false, nil
	}
	// a locally created listing may already own the slug
	if other, err := s.repo.GetListingBySlug(ctx, l.Slug); err == nil && other.ID != l.ID {
		l.Slug = suffixedSlug(l)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if err := s.repo.UpsertSyncedListing(ctx, l); err != nil {
		return false, fmt.Errorf("upsert listing %s: %w", id, err)
	}
	s.cache.evictListing(ctx, l)
	observability.ObserveSync("upserted")
	return true, nil
}

func (s *SyncService) miss(ctx context.Context, id, reason string) {
	if err := s.repo.LogSyncMiss(ctx, id, reason); err != nil {
		log.Warn().Err(err).Str("listing", id).Msg("log sync miss failed")
	}
	s.cache.del(ctx, listingIDKey(id))
	observability.ObserveSync("missed")
	log.Info().Str("listing", id).Str("reason", reason).Msg("sync miss")
}

// Run syncs one batch of listings changed since the stored watermark. The watermark only
// advances past refs that were handled, so a failed row is retried on the next run.
func (s *SyncService) Run(ctx context.Context) (SyncReport, error) {
	since, err := s.repo.GetSyncWatermark(ctx, listingsWatermark)
	if err != nil {
		return SyncReport{}, fmt.Errorf("read watermark: %w", err)
	}
	refs, err := s.src.ChangedListingIDs(ctx, since, s.batch)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list changed listings: %w", err)
	}
	rep := SyncReport{Changed: len(refs), Watermark: since}
	if len(refs) == 0 {
		return rep, nil
	}

	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := make([]bool, len(refs))

	for i, ref := range refs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(refs); j++ {
				failed[j] = true
			}
			break
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)

			ok, err := s.SyncListing(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed[i] = true
				rep.Failed++
				observability.ObserveSync("failed")
				log.Warn().Str("listing", id).Err(err).Msg("sync failed")
			case ok:
				rep.Upserted++
			default:
				rep.Missed++
			}
		}(i, ref.ID)
	}
	wg.Wait()

	// refs are oldest first; stop at the first failure
	for i, ref := range refs {
		if failed[i] {
			break
		}
		if ref.UpdatedAt.After(rep.Watermark) {
			rep.Watermark = ref.UpdatedAt
		}
	}
	if rep.Watermark.After(since) {
		if err := s.repo.SetSyncWatermark(ctx, listingsWatermark, rep.Watermark); err != nil {
			return rep, fmt.Errorf("store watermark: %w", err)
		}
	}
	if ctx.Err() != nil {
		return rep, ctx.Err()
	}
	return rep, nil
}
