package app

import (
	"context"
	"fmt"
	"time"

	"rentbay/internal/domain"
)

type LegalService struct {
	repo domain.LegalRepository
	now  func() time.Time
}

func NewLegalService(r domain.LegalRepository) *LegalService {
	return &LegalService{repo: r, now: time.Now}
}

// Status reports, per current document, whether the user still has to accept it.
func (s *LegalService) Status(ctx context.Context, actor Actor) ([]domain.LegalStatus, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	docs, err := s.repo.CurrentDocuments(ctx)
	if err != nil {
		return nil, err
	}
	accepted, err := s.repo.AcceptedVersions(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LegalStatus, 0, len(docs))
	for _, d := range docs {
		v := accepted[d.Slug]
		out = append(out, domain.LegalStatus{
			Document:        d.Slug,
			CurrentVersion:  d.Version,
			AcceptedVersion: v,
			MustAccept:      v < d.Version,
		})
	}
	return out, nil
}

// Accept records acceptance of document at version. Only the current version can be
// accepted; repeating an acceptance is a no-op.
func (s *LegalService) Accept(ctx context.Context, actor Actor, document string, version int) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	docs, err := s.repo.CurrentDocuments(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.Slug != document {
			continue
		}
		if d.Version != version {
			return fmt.Errorf("%w: current %s version is %d", domain.ErrConflict, document, d.Version)
		}
		return s.repo.AcceptDocument(ctx, actor.UserID, document, version, s.now().UTC())
	}
	return fmt.Errorf("%w: unknown document %q", domain.ErrNotFound, document)
}
