package sync

import (
	"context"

	uuid "github.com/satori/go.uuid"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/models"
)

type subjectStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Subject, error)
	Create(ctx context.Context, s *models.Subject) error
	Update(ctx context.Context, s *models.Subject) error
}

type pgSubjectStore struct {
	pg *cs.PG
}

func (s *pgSubjectStore) Get(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	db := s.pg.Get()
	sub, err := models.GetSubjectByID(ctx, db, id)
	if err != nil || sub == nil {
		return nil, err
	}
	sub.Tags, err = models.GetTagNamesBySubjectID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *pgSubjectStore) Create(ctx context.Context, sub *models.Subject) error {
	return models.CreateSubject(ctx, s.pg.Get(), sub)
}

func (s *pgSubjectStore) Update(ctx context.Context, sub *models.Subject) error {
	return models.UpdateSubject(ctx, s.pg.Get(), sub)
}
