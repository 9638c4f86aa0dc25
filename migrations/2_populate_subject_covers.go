package migrations

import (
	"context"
	"strconv"

	"github.com/go-pg/migrations/v8"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
)

type subjectGetter interface {
	GetSubject(ctx context.Context, id int64) (*bangumi.Subject, error)
}

// PopulateSubjectCovers fills empty covers of bangumi subjects with their remote image url.
// Subjects bgm.tv fails to serve are skipped, they can be merged later.
func PopulateSubjectCovers(col *migrations.Collection, a *bangumi.Api) {
	col.MustRegisterTx(func(db migrations.DB) error {
		if a == nil {
			return nil
		}
		var syncs []*models.SubjectSync

		err := db.Model(&syncs).
			Join("JOIN subject AS s ON s.subject_id = subject_sync.subject_id").
			Where("subject_sync.platform = ?", models.SyncPlatformBgmTv).
			Where("coalesce(s.cover, '') = ''").
			Select()
		if err != nil {
			return err
		}
		return populateCovers(db.Context(), a, syncs, func(subjectID uuid.UUID, cover string) error {
			_, err := db.Model((*models.Subject)(nil)).
				Set("cover = ?", cover).
				Where("subject_id = ?", subjectID).
				Update()
			return err
		})
	}, func(db migrations.DB) error {
		return nil
	})
}

func populateCovers(ctx context.Context, a subjectGetter, syncs []*models.SubjectSync, setCover func(subjectID uuid.UUID, cover string) error) error {
	for _, ss := range syncs {
		l := log.WithFields(log.Fields{
			"subject_id":  ss.SubjectID,
			"platform_id": ss.PlatformID,
		})
		id, err := strconv.ParseInt(ss.PlatformID, 10, 64)
		if err != nil {
			l.Warn("skipping invalid bangumi id")
			continue
		}
		s, err := a.GetSubject(ctx, id)
		if err != nil {
			l.WithError(err).Warn("failed to get bangumi subject, cover left empty")
			continue
		}
		if s == nil || s.Images == nil || s.Images.Large == "" {
			continue
		}
		if err := setCover(ss.SubjectID, s.Images.Large); err != nil {
			return err
		}
	}
	return nil
}
