package listener

import (
	"context"

	uuid "github.com/satori/go.uuid"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"github.com/webtor-io/bangumi-sync/services/config"
)

type remote interface {
	SetEpisodeCollectionStatus(ctx context.Context, subjectID int64, sequence float64, finished bool, private bool)
	SetUserCollectionStatus(ctx context.Context, subjectID int64, t bangumi.SubjectCollectionType, private bool)
	Refresh(token string, proxyURL string)
	AssertDomainReachable(ctx context.Context) bool
}

type settings interface {
	Get(ctx context.Context) (*config.Settings, error)
	Load(ctx context.Context) (*config.Settings, error)
}

type store interface {
	GetSubject(ctx context.Context, id uuid.UUID) (*models.Subject, error)
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	GetSync(ctx context.Context, subjectID uuid.UUID, platform models.SyncPlatform) (*models.SubjectSync, error)
	GetCollection(ctx context.Context, userID uuid.UUID, subjectID uuid.UUID) (*models.SubjectCollection, error)
	SaveCollection(ctx context.Context, sc *models.SubjectCollection) error
	DeleteCollection(ctx context.Context, userID uuid.UUID, subjectID uuid.UUID) error
}

type pgStore struct {
	pg *cs.PG
}

func (s *pgStore) GetSubject(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	return models.GetSubjectByIDShallow(ctx, s.pg.Get(), id)
}

func (s *pgStore) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	return models.GetEpisodeByID(ctx, s.pg.Get(), id)
}

func (s *pgStore) GetSync(ctx context.Context, subjectID uuid.UUID, platform models.SyncPlatform) (*models.SubjectSync, error) {
	return models.GetSubjectSync(ctx, s.pg.Get(), subjectID, platform)
}

func (s *pgStore) GetCollection(ctx context.Context, userID uuid.UUID, subjectID uuid.UUID) (*models.SubjectCollection, error) {
	return models.GetSubjectCollection(ctx, s.pg.Get(), userID, subjectID)
}

func (s *pgStore) SaveCollection(ctx context.Context, sc *models.SubjectCollection) error {
	return models.SaveSubjectCollection(ctx, s.pg.Get(), sc)
}

func (s *pgStore) DeleteCollection(ctx context.Context, userID uuid.UUID, subjectID uuid.UUID) error {
	return models.DeleteSubjectCollection(ctx, s.pg.Get(), userID, subjectID)
}
