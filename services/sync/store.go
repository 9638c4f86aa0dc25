package sync

import (
	"context"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/models"
)

type tagStore interface {
	CreateTags(ctx context.Context, names []string) error
	GetSubjectTagNames(ctx context.Context, subjectID uuid.UUID) ([]string, error)
	AttachTags(ctx context.Context, subjectID uuid.UUID, names []string) error
}

type pgTagStore struct {
	pg *cs.PG
}

func (s *pgTagStore) CreateTags(ctx context.Context, names []string) error {
	return models.CreateTags(ctx, s.pg.Get(), names)
}

func (s *pgTagStore) GetSubjectTagNames(ctx context.Context, subjectID uuid.UUID) ([]string, error) {
	return models.GetTagNamesBySubjectID(ctx, s.pg.Get(), subjectID)
}

func (s *pgTagStore) AttachTags(ctx context.Context, subjectID uuid.UUID, names []string) error {
	return models.AttachTagsToSubject(ctx, s.pg.Get(), subjectID, names)
}

// readOnlyTagStore reads attached tags but drops every write.
type readOnlyTagStore struct {
	tagStore
}

func (s *readOnlyTagStore) CreateTags(_ context.Context, names []string) error {
	log.WithField("tags", names).Debug("read only, tags not created")
	return nil
}

func (s *readOnlyTagStore) AttachTags(_ context.Context, subjectID uuid.UUID, names []string) error {
	log.WithFields(log.Fields{
		"subject_id": subjectID,
		"tags":       names,
	}).Debug("read only, tags not attached")
	return nil
}
