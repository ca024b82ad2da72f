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

func (r *Repo) GetReferralAccount(ctx context.Context, userID string, now time.Time) (domain.ReferralAccount, error) {
	var a domain.ReferralAccount
	err := r.db.QueryRowContext(ctx, getReferralAccountSQL, now.Add(-24*time.Hour).UTC(), userID).Scan(
		&a.UserID, &a.CreatedAt, &a.PayoutVerified,
		&a.EarnedMinor, &a.PaidMinor, &a.PendingMinor,
		&a.CashoutsLast24h, &a.SharedDeviceHits,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReferralAccount{}, domain.ErrNotFound
	}
	return a, err
}

// CreateCashout stores the request if the balance still covers it. The account row lock
// serializes cashouts per user so two requests cannot spend the same balance.
func (r *Repo) CreateCashout(ctx context.Context, c domain.Cashout) error {
	signals, err := valJSON(c.Signals)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var uid string
		if err := tx.QueryRowContext(ctx, lockReferralAccountSQL, c.UserID).Scan(&uid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		var available int64
		if err := tx.QueryRowContext(ctx, availableBalanceSQL, c.UserID, c.UserID).Scan(&available); err != nil {
			return err
		}
		if c.AmountMinor > available {
			return fmt.Errorf("%w: amount exceeds available balance", domain.ErrConflict)
		}
		_, err := tx.ExecContext(ctx, insertCashoutSQL,
			c.ID, c.UserID, c.AmountMinor, c.Currency, c.Status, c.Severity, signals, c.CreatedAt.UTC(),
		)
		return err
	})
}

func (r *Repo) ListCashouts(ctx context.Context, status string, limit int) ([]domain.Cashout, error) {
	rows, err := r.db.QueryContext(ctx, listCashoutsSQL, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Cashout
	for rows.Next() {
		var c domain.Cashout
		var signals []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.AmountMinor, &c.Currency, &c.Status, &c.Severity, &signals, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(signals) > 0 {
			_ = json.Unmarshal(signals, &c.Signals)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
