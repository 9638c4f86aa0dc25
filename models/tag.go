package models

import (
	"context"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

type Tag struct {
	tableName struct{} `pg:"tag"`

	TagID     uuid.UUID `pg:"tag_id,pk,type:uuid,default:uuid_generate_v4()"`
	Name      string    `pg:"name,notnull"`
	CreatedAt time.Time `pg:"created_at,default:now()"`
}

type SubjectTag struct {
	tableName struct{} `pg:"subject_tag"`

	SubjectID uuid.UUID `pg:"subject_id,pk,type:uuid"`
	TagID     uuid.UUID `pg:"tag_id,pk,type:uuid"`
}

// CreateTags inserts tags that do not exist yet.
func CreateTags(ctx context.Context, db pg.DBI, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tags := make([]*Tag, 0, len(names))
	for _, n := range names {
		tags = append(tags, &Tag{Name: n})
	}
	_, err := db.Model(&tags).
		Context(ctx).
		OnConflict("(name) DO NOTHING").
		Insert()
	if err != nil {
		return errors.Wrap(err, "failed to create tags")
	}
	return nil
}

func GetTagNamesBySubjectID(ctx context.Context, db pg.DBI, subjectID uuid.UUID) ([]string, error) {
	var names []string
	err := db.Model((*Tag)(nil)).
		Context(ctx).
		Column("tag.name").
		Join("JOIN subject_tag AS st ON st.tag_id = tag.tag_id").
		Where("st.subject_id = ?", subjectID).
		Order("tag.name ASC").
		Select(&names)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subject tags")
	}
	return names, nil
}

func AttachTagsToSubject(ctx context.Context, db pg.DBI, subjectID uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO subject_tag (subject_id, tag_id)
		SELECT ?, tag_id FROM tag WHERE name IN (?)
		ON CONFLICT DO NOTHING
	`, subjectID, pg.In(names))
	if err != nil {
		return errors.Wrap(err, "failed to attach tags")
	}
	return nil
}
