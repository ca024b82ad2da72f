package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentbay/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// placeholders returns "?, ?, ?" for n args.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Repo implements every repository port on one MySQL handle.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (domain.Listing, error) {
	var l domain.Listing
	var (
		lat, lon      sql.NullFloat64
		photos        []byte
		cover, note   sql.NullString
		featuredUntil sql.NullTime
	)
	if err := s.Scan(
		&l.ID, &l.OwnerID, &l.Slug, &l.Title, &l.Description, &l.Kind, &l.Status,
		&l.PriceMinor, &l.Currency, &l.City, &l.Country, &lat, &lon, &l.LocationPrecision,
		&l.Bedrooms, &l.Bathrooms, &photos, &cover, &featuredUntil, &note,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, err
	}
	if lat.Valid && lon.Valid {
		la, lo := lat.Float64, lon.Float64
		l.Lat, l.Lon = &la, &lo
	}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &l.Photos); err != nil {
			return domain.Listing{}, fmt.Errorf("listing %s photos: %w", l.ID, err)
		}
	}
	if cover.Valid {
		c := cover.String
		l.CoverImage = &c
	}
	if featuredUntil.Valid {
		f := featuredUntil.Time.UTC()
		l.FeaturedUntil = &f
	}
	if note.Valid {
		n := note.String
		l.ReviewNote = &n
	}
	return l, nil
}

func scanListings(rows *sql.Rows) ([]domain.Listing, error) {
	defer rows.Close()
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// inTx runs fn in a transaction, rolling back on error.
func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// missingOrConflict resolves a zero-row conditional update into NotFound or Conflict.
func (r *Repo) missingOrConflict(ctx context.Context, existsSQL, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, existsSQL, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}
