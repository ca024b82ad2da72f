package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"rentbay/internal/domain"
)

func (r *Repo) CreateListing(ctx context.Context, l domain.Listing) error {
	photos, err := valJSON(nonNilPhotos(l.Photos))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertListingSQL,
		l.ID, l.OwnerID, l.Slug, l.Title, l.Description, l.Kind, l.Status,
		l.PriceMinor, l.Currency, l.City, l.Country,
		valF64(l.Lat), valF64(l.Lon), l.LocationPrecision,
		l.Bedrooms, l.Bathrooms, photos, valStr(l.CoverImage),
		l.CreatedAt.UTC(), l.UpdatedAt.UTC(),
	)
	if isDuplicate(err) {
		return fmt.Errorf("%w: slug %q already used", domain.ErrConflict, l.Slug)
	}
	return err
}

func (r *Repo) UpdateListing(ctx context.Context, l domain.Listing) error {
	photos, err := valJSON(nonNilPhotos(l.Photos))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateListingSQL,
		l.Title, l.Description, l.Kind, l.PriceMinor, l.Currency, l.City, l.Country,
		valF64(l.Lat), valF64(l.Lon), l.LocationPrecision, l.Bedrooms, l.Bathrooms,
		photos, valStr(l.CoverImage),
		l.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for no-op updates too; only missing rows are errors.
		if err := r.missingOrConflict(ctx, listingExistsSQL, l.ID); errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (r *Repo) TransitionStatus(ctx context.Context, id string, from []string, to string, note *string) error {
	if len(from) == 0 {
		return fmt.Errorf("transition needs at least one source status")
	}
	q := `UPDATE listings SET status = ?, review_note = COALESCE(?, review_note), updated_at = CURRENT_TIMESTAMP(6)
WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := []any{to, valStr(note), id}
	for _, f := range from {
		args = append(args, f)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missingOrConflict(ctx, listingExistsSQL, id)
	}
	return nil
}

func (r *Repo) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	return scanListing(r.db.QueryRowContext(ctx, getListingSQL, id))
}

func (r *Repo) GetListingBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	return scanListing(r.db.QueryRowContext(ctx, getListingBySlugSQL, slug))
}

func (r *Repo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, slugExistsSQL, slug).Scan(&ok)
	return ok, err
}

// SearchListings returns live listings matching q, newest first.
func (r *Repo) SearchListings(ctx context.Context, q domain.ListingQuery) (domain.ListingsPage, error) {
	where := []string{"l.status = ?"}
	args := []any{domain.StatusLive}
	if q.City != "" {
		where = append(where, "l.city = ?")
		args = append(args, q.City)
	}
	if q.Kind != "" {
		where = append(where, "l.kind = ?")
		args = append(args, q.Kind)
	}
	if q.Q != "" {
		where = append(where, "l.title LIKE ?")
		args = append(args, "%"+escapeLike(q.Q)+"%")
	}
	if q.MinPrice != nil {
		where = append(where, "l.price_minor >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "l.price_minor <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.Bedrooms != nil {
		where = append(where, "l.bedrooms >= ?")
		args = append(args, *q.Bedrooms)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings l WHERE "+cond, args...).Scan(&total); err != nil {
		return domain.ListingsPage{}, err
	}

	// featured listings float to the top while their window is open
	query := "SELECT" + listingColumns + "\nFROM listings l\nWHERE " + cond +
		"\nORDER BY (l.featured_until IS NOT NULL AND l.featured_until > ?) DESC, l.created_at DESC, l.id\nLIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, time.Now().UTC(), q.Limit, q.Offset)...)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	items, err := scanListings(rows)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	return domain.ListingsPage{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (r *Repo) CountByStatus(ctx context.Context, ownerID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, countByStatusSQL, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// ListFeatured returns every listing with a featured window; ownerID "" means platform-wide.
func (r *Repo) ListFeatured(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	q, args := listFeaturedSQL, []any{}
	if ownerID != "" {
		q += "  AND l.owner_id = ?\n"
		args = append(args, ownerID)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func (r *Repo) ListByStatus(ctx context.Context, status string, limit int) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, listByStatusSQL, status, limit)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func nonNilPhotos(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ER_DUP_ENTRY
func isDuplicate(err error) bool {
	var me *drv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
