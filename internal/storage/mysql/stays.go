package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentbay/internal/domain"
)

func (r *Repo) GetShortletSettings(ctx context.Context, listingID string) (domain.ShortletSettings, error) {
	var s domain.ShortletSettings
	var rules, exceptions []byte
	err := r.db.QueryRowContext(ctx, getShortletSQL, listingID).Scan(
		&s.ListingID, &s.Timezone, &s.NightlyMinor, &s.CleaningFeeMinor,
		&s.MinNights, &s.MaxNights, &s.SlotMinutes, &rules, &exceptions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ShortletSettings{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ShortletSettings{}, err
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &s.Rules); err != nil {
			return domain.ShortletSettings{}, fmt.Errorf("shortlet %s rules: %w", listingID, err)
		}
	}
	if len(exceptions) > 0 {
		if err := json.Unmarshal(exceptions, &s.Exceptions); err != nil {
			return domain.ShortletSettings{}, fmt.Errorf("shortlet %s exceptions: %w", listingID, err)
		}
	}
	return s, nil
}

// CreateBooking locks the listing row, rejects overlapping stays and inserts, all in one
// transaction, so two guests cannot both hold the same night.
func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		if err := tx.QueryRowContext(ctx, lockListingSQL, b.ListingID).Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if status != domain.StatusLive {
			return fmt.Errorf("%w: listing is not bookable", domain.ErrConflict)
		}

		var overlaps int
		if err := tx.QueryRowContext(ctx, overlapCountSQL, b.ListingID, dateOnly(b.CheckOut), dateOnly(b.CheckIn)).Scan(&overlaps); err != nil {
			return err
		}
		if overlaps > 0 {
			return domain.ErrUnavailable
		}

		_, err := tx.ExecContext(ctx, insertBookingSQL,
			b.ID, b.ListingID, b.GuestID, dateOnly(b.CheckIn), dateOnly(b.CheckOut),
			b.Nights, b.TotalMinor, b.Currency, b.Status, b.CreatedAt.UTC(),
		)
		return err
	})
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.QueryRowContext(ctx, getBookingSQL, id).Scan(
		&b.ID, &b.ListingID, &b.GuestID, &b.CheckIn, &b.CheckOut,
		&b.Nights, &b.TotalMinor, &b.Currency, &b.Status, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) TransitionBooking(ctx context.Context, id string, from []string, to string) error {
	if len(from) == 0 {
		return fmt.Errorf("transition needs at least one source status")
	}
	q := `UPDATE bookings SET status = ? WHERE id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := []any{to, id}
	for _, f := range from {
		args = append(args, f)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missingOrConflict(ctx, bookingExistsSQL, id)
	}
	return nil
}

func (r *Repo) ListBookedRanges(ctx context.Context, listingID string, from, to time.Time) ([]domain.DateRange, error) {
	rows, err := r.db.QueryContext(ctx, bookedRangesSQL, listingID, dateOnly(to), dateOnly(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.DateRange
	for rows.Next() {
		var dr domain.DateRange
		if err := rows.Scan(&dr.From, &dr.To); err != nil {
			return nil, err
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}

func dateOnly(t time.Time) string { return t.Format("2006-01-02") }
