package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// SubjectSync links a subject to its id on a remote platform.
type SubjectSync struct {
	tableName struct{} `pg:"subject_sync"`

	SubjectSyncID uuid.UUID    `pg:"subject_sync_id,pk,type:uuid,default:uuid_generate_v4()" json:"subject_sync_id"`
	SubjectID     uuid.UUID    `pg:"subject_id,type:uuid" json:"subject_id"`
	Platform      SyncPlatform `pg:"platform,notnull" json:"platform"`
	PlatformID    string       `pg:"platform_id,notnull" json:"platform_id"`
	SyncTime      time.Time    `pg:"sync_time,notnull" json:"sync_time"`
}

func GetSubjectSync(ctx context.Context, db pg.DBI, subjectID uuid.UUID, platform SyncPlatform) (*SubjectSync, error) {
	ss := &SubjectSync{}
	err := db.Model(ss).
		Context(ctx).
		Where("subject_id = ?", subjectID).
		Where("platform = ?", platform).
		Order("sync_time DESC").
		Limit(1).
		Select()
	if errors.Is(err, pg.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subject sync")
	}
	return ss, nil
}

func saveSubjectSync(ctx context.Context, tx *pg.Tx, ss *SubjectSync) error {
	_, err := tx.Model(ss).
		Context(ctx).
		OnConflict("(subject_id, platform, platform_id) DO UPDATE").
		Set("sync_time = EXCLUDED.sync_time").
		Returning("subject_sync_id").
		Insert()
	if err != nil {
		return errors.Wrap(err, "failed to save subject sync")
	}
	return nil
}
