package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

type SubjectCollection struct {
	tableName struct{} `pg:"subject_collection"`

	UserID    uuid.UUID      `pg:"user_id,pk,type:uuid"`
	SubjectID uuid.UUID      `pg:"subject_id,pk,type:uuid"`
	Type      CollectionType `pg:"type,notnull"`
	Private   bool           `pg:"private,use_zero"`
	CreatedAt time.Time      `pg:"created_at,default:now()"`
	UpdatedAt time.Time      `pg:"updated_at,default:now()"`
}

func GetSubjectCollection(ctx context.Context, db pg.DBI, userID uuid.UUID, subjectID uuid.UUID) (*SubjectCollection, error) {
	sc := &SubjectCollection{}
	err := db.Model(sc).
		Context(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subject collection")
	}
	return sc, nil
}

// SaveSubjectCollection creates or updates the collection record of a user.
func SaveSubjectCollection(ctx context.Context, db pg.DBI, sc *SubjectCollection) error {
	sc.UpdatedAt = time.Now()
	_, err := db.Model(sc).
		Context(ctx).
		OnConflict("(user_id, subject_id) DO UPDATE").
		Set("type = EXCLUDED.type").
		Set("private = EXCLUDED.private").
		Set("updated_at = EXCLUDED.updated_at").
		Insert()
	if err != nil {
		return errors.Wrap(err, "failed to save subject collection")
	}
	return nil
}

func DeleteSubjectCollection(ctx context.Context, db pg.DBI, userID uuid.UUID, subjectID uuid.UUID) error {
	_, err := db.Model((*SubjectCollection)(nil)).
		Context(ctx).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Delete()
	if err != nil {
		return errors.Wrap(err, "failed to delete subject collection")
	}
	return nil
}
