package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rentbay/internal/domain"
)

func (r *Repo) UpsertSyncedListing(ctx context.Context, l domain.Listing) error {
	photos, err := valJSON(nonNilPhotos(l.Photos))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertSyncedListingSQL,
		l.ID, l.OwnerID, l.Slug, l.Title, l.Description, l.Kind, l.Status,
		l.PriceMinor, l.Currency, l.City, l.Country,
		valF64(l.Lat), valF64(l.Lon), l.LocationPrecision,
		l.Bedrooms, l.Bathrooms, photos, valStr(l.CoverImage), valTime(l.FeaturedUntil),
		l.CreatedAt.UTC(), l.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repo) LogSyncMiss(ctx context.Context, id string, reason string) error {
	_, err := r.db.ExecContext(ctx, insertSyncMissSQL, id, reason)
	return err
}

// GetSyncWatermark returns the zero time when the named sync never ran.
func (r *Repo) GetSyncWatermark(ctx context.Context, name string) (time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx, getWatermarkSQL, name).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return t.UTC(), err
}

func (r *Repo) SetSyncWatermark(ctx context.Context, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, setWatermarkSQL, name, at.UTC())
	return err
}
