package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

type Subject struct {
	tableName struct{} `pg:"subject"`

	SubjectID     uuid.UUID   `pg:"subject_id,pk,type:uuid,default:uuid_generate_v4()" json:"subject_id"`
	Type          SubjectType `pg:"type,notnull" json:"type"`
	Name          string      `pg:"name,notnull" json:"name"`
	NameCn        string      `pg:"name_cn" json:"name_cn"`
	Infobox       string      `pg:"infobox" json:"infobox"`
	Summary       string      `pg:"summary" json:"summary"`
	Nsfw          bool        `pg:"nsfw,use_zero" json:"nsfw"`
	AirTime       *time.Time  `pg:"air_time" json:"air_time"`
	Cover         string      `pg:"cover" json:"cover"`
	TotalEpisodes int         `pg:"total_episodes,use_zero" json:"total_episodes"`
	CreatedAt     time.Time   `pg:"created_at,default:now()" json:"created_at"`
	UpdatedAt     time.Time   `pg:"updated_at,default:now()" json:"updated_at"`

	Episodes []*Episode     `pg:"rel:has-many,fk:subject_id" json:"episodes"`
	Syncs    []*SubjectSync `pg:"rel:has-many,fk:subject_id" json:"syncs"`
	Tags     []string       `pg:"-" json:"tags"`
}

// DisplayName prefers the localized name.
func (s *Subject) DisplayName() string {
	if s.NameCn != "" {
		return s.NameCn
	}
	return s.Name
}

func (s *Subject) FindSync(platform SyncPlatform) *SubjectSync {
	for _, ss := range s.Syncs {
		if ss.Platform == platform {
			return ss
		}
	}
	return nil
}

func GetSubjectByID(ctx context.Context, db pg.DBI, id uuid.UUID) (*Subject, error) {
	s := &Subject{}
	err := db.Model(s).
		Context(ctx).
		Where("subject.subject_id = ?", id).
		Relation("Episodes", func(q *orm.Query) (*orm.Query, error) {
			return q.Order("episode.created_at ASC", "episode.sequence ASC"), nil
		}).
		Relation("Syncs", func(q *orm.Query) (*orm.Query, error) {
			return q.Order("subject_sync.sync_time ASC"), nil
		}).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subject")
	}
	return s, nil
}

// GetSubjectByIDShallow skips episodes and sync records.
func GetSubjectByIDShallow(ctx context.Context, db pg.DBI, id uuid.UUID) (*Subject, error) {
	s := &Subject{}
	err := db.Model(s).
		Context(ctx).
		Where("subject_id = ?", id).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subject")
	}
	return s, nil
}

func CreateSubject(ctx context.Context, db *pg.DB, s *Subject) error {
	tx, err := db.BeginContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Close()
	}()

	_, err = tx.Model(s).
		Context(ctx).
		Returning("subject_id, created_at, updated_at").
		Insert()
	if err != nil {
		return errors.Wrap(err, "failed to insert subject")
	}

	err = saveSubjectChildren(ctx, tx, s)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func UpdateSubject(ctx context.Context, db *pg.DB, s *Subject) error {
	tx, err := db.BeginContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Close()
	}()

	s.UpdatedAt = time.Now()
	_, err = tx.Model(s).
		Context(ctx).
		Column("type", "name", "name_cn", "infobox", "summary", "nsfw", "air_time", "cover", "total_episodes", "updated_at").
		WherePK().
		Update()
	if err != nil {
		return errors.Wrap(err, "failed to update subject")
	}

	err = saveSubjectChildren(ctx, tx, s)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func saveSubjectChildren(ctx context.Context, tx *pg.Tx, s *Subject) error {
	for _, e := range s.Episodes {
		e.SubjectID = s.SubjectID
		if err := saveEpisode(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, ss := range s.Syncs {
		ss.SubjectID = s.SubjectID
		if err := saveSubjectSync(ctx, tx, ss); err != nil {
			return err
		}
	}
	if len(s.Tags) > 0 {
		if err := AttachTagsToSubject(ctx, tx, s.SubjectID, s.Tags); err != nil {
			return err
		}
	}
	return nil
}
