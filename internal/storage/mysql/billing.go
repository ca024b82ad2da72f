package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rentbay/internal/domain"
)

func (r *Repo) GetBillingAccount(ctx context.Context, ownerID string) (domain.BillingAccount, error) {
	var a domain.BillingAccount
	var renews sql.NullTime
	err := r.db.QueryRowContext(ctx, getBillingAccountSQL, ownerID).Scan(&a.OwnerID, &a.Plan, &a.Credits, &renews, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BillingAccount{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BillingAccount{}, err
	}
	if renews.Valid {
		t := renews.Time
		a.RenewsAt = &t
	}
	return a, nil
}

// FeatureListing debits one credit and extends the listing's featured window atomically.
// The balance row lock serializes requests per owner, so a repeated idempotency key
// always finds the ledger entry written by the first request.
func (r *Repo) FeatureListing(ctx context.Context, req domain.FeatureRequest) (domain.FeatureResult, error) {
	var out domain.FeatureResult
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var credits int
		if err := tx.QueryRowContext(ctx, lockBillingAccountSQL, req.OwnerID).Scan(&credits); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrInsufficientCredits
			}
			return err
		}

		var e domain.LedgerEntry
		err := tx.QueryRowContext(ctx, findLedgerByKeySQL, req.OwnerID, req.IdempotencyKey).Scan(
			&e.ID, &e.OwnerID, &e.Delta, &e.Reason, &e.IdempotencyKey, &e.BalanceAfter, &e.CreatedAt,
		)
		switch {
		case err == nil:
			if e.Reason != featureReason(req.ListingID) {
				return fmt.Errorf("%w: idempotency key already used for another listing", domain.ErrConflict)
			}
			var until sql.NullTime
			if err := tx.QueryRowContext(ctx, featuredUntilSQL, req.ListingID).Scan(&until); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.ErrNotFound
				}
				return err
			}
			out = domain.FeatureResult{Entry: e, Replayed: true}
			if until.Valid {
				out.FeaturedUntil = until.Time.UTC()
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		if credits < 1 {
			return domain.ErrInsufficientCredits
		}

		var owner, status string
		var current sql.NullTime
		if err := tx.QueryRowContext(ctx, lockListingForFeatureSQL, req.ListingID).Scan(&owner, &status, &current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if owner != req.OwnerID {
			return domain.ErrForbidden
		}
		if status != domain.StatusLive {
			return fmt.Errorf("%w: only live listings can be featured", domain.ErrConflict)
		}

		start := req.Now.UTC()
		if current.Valid && current.Time.After(start) {
			start = current.Time.UTC()
		}
		until := start.Add(req.Duration)

		if _, err := tx.ExecContext(ctx, debitCreditSQL, req.OwnerID); err != nil {
			return err
		}
		e = domain.LedgerEntry{
			ID:             uuid.NewString(),
			OwnerID:        req.OwnerID,
			Delta:          -1,
			Reason:         featureReason(req.ListingID),
			IdempotencyKey: req.IdempotencyKey,
			BalanceAfter:   credits - 1,
			CreatedAt:      req.Now.UTC(),
		}
		if _, err := tx.ExecContext(ctx, insertLedgerSQL,
			e.ID, e.OwnerID, e.Delta, e.Reason, e.IdempotencyKey, e.BalanceAfter, e.CreatedAt,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, setFeaturedUntilSQL, until, req.ListingID); err != nil {
			return err
		}
		out = domain.FeatureResult{FeaturedUntil: until, Entry: e}
		return nil
	})
	return out, err
}

func featureReason(listingID string) string { return "feature:" + listingID }
