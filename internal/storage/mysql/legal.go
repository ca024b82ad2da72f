package mysql

import (
	"context"
	"time"

	"rentbay/internal/domain"
)

func (r *Repo) CurrentDocuments(ctx context.Context) ([]domain.LegalDocument, error) {
	rows, err := r.db.QueryContext(ctx, currentDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LegalDocument
	for rows.Next() {
		var d domain.LegalDocument
		if err := rows.Scan(&d.Slug, &d.Version, &d.Title, &d.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) AcceptedVersions(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, acceptedVersionsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var doc string
		var v int
		if err := rows.Scan(&doc, &v); err != nil {
			return nil, err
		}
		out[doc] = v
	}
	return out, rows.Err()
}

func (r *Repo) AcceptDocument(ctx context.Context, userID, doc string, version int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, acceptDocumentSQL, userID, doc, version, at.UTC())
	return err
}
