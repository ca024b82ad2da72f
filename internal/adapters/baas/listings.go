package baas

import (
	"context"
	"net/url"
	"time"

	"rentbay/internal/domain"
)

// ListingSource reads the listings table of the hosted platform.
type ListingSource struct{ c *Client }

func NewListingSource(c *Client) *ListingSource { return &ListingSource{c: c} }

// ChangedListingIDs calls the listings_changed_since database function, oldest first.
func (s *ListingSource) ChangedListingIDs(ctx context.Context, since time.Time, limit int) ([]domain.ChangedRef, error) {
	var out []domain.ChangedRef
	err := s.c.RPC(ctx, "listings_changed_since", map[string]any{
		"since":     since.UTC().Format(time.RFC3339Nano),
		"max_count": limit,
	}, &out)
	return out, err
}

func (s *ListingSource) GetListingRow(ctx context.Context, id string) (map[string]any, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")
	q.Set("limit", "1")
	var rows []map[string]any
	if err := s.c.Select(ctx, "listings", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// PushStatus mirrors a moderation outcome back to the hosted listings table.
func (s *ListingSource) PushStatus(ctx context.Context, id, status string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return s.c.Update(ctx, "listings", q, map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
