package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

type Episode struct {
	tableName struct{} `pg:"episode"`

	EpisodeID   uuid.UUID    `pg:"episode_id,pk,type:uuid,default:uuid_generate_v4()" json:"episode_id"`
	SubjectID   uuid.UUID    `pg:"subject_id,type:uuid" json:"subject_id"`
	Name        string       `pg:"name" json:"name"`
	NameCn      string       `pg:"name_cn" json:"name_cn"`
	Description string       `pg:"description" json:"description"`
	AirTime     *time.Time   `pg:"air_time" json:"air_time"`
	Group       EpisodeGroup `pg:"episode_group,notnull" json:"group"`
	Sequence    float64      `pg:"sequence,use_zero" json:"sequence"`
	CreatedAt   time.Time    `pg:"created_at,default:now()" json:"created_at"`
	UpdatedAt   time.Time    `pg:"updated_at,default:now()" json:"updated_at"`
}

func GetEpisodeByID(ctx context.Context, db pg.DBI, id uuid.UUID) (*Episode, error) {
	e := &Episode{}
	err := db.Model(e).
		Context(ctx).
		Where("episode_id = ?", id).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get episode")
	}
	return e, nil
}

func saveEpisode(ctx context.Context, tx *pg.Tx, e *Episode) error {
	if uuid.Equal(e.EpisodeID, uuid.Nil) {
		_, err := tx.Model(e).
			Context(ctx).
			Returning("episode_id, created_at, updated_at").
			Insert()
		if err != nil {
			return errors.Wrap(err, "failed to insert episode")
		}
		return nil
	}
	e.UpdatedAt = time.Now()
	_, err := tx.Model(e).
		Context(ctx).
		Column("name", "name_cn", "description", "air_time", "episode_group", "sequence", "updated_at").
		WherePK().
		Update()
	if err != nil {
		return errors.Wrapf(err, "failed to update episode %v", e.EpisodeID)
	}
	return nil
}
