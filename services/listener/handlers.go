package listener

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
)

// platformID returns the bgm.tv id bound to a subject or zero when there is none.
func platformID(ctx context.Context, st store, subjectID uuid.UUID) (int64, error) {
	ss, err := st.GetSync(ctx, subjectID, models.SyncPlatformBgmTv)
	if err != nil {
		return 0, err
	}
	if ss == nil {
		return 0, nil
	}
	id, err := strconv.ParseInt(ss.PlatformID, 10, 64)
	if err != nil || id <= 0 {
		log.WithField("platform_id", ss.PlatformID).Warn("invalid bangumi subject id in sync record")
		return 0, nil
	}
	return id, nil
}

// nsfwPrivate reports whether the subject must be hidden on bangumi.
func nsfwPrivate(ctx context.Context, st store, subjectID uuid.UUID, enabled bool) (bool, error) {
	if !enabled {
		return false, nil
	}
	s, err := st.GetSubject(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return s != nil && s.Nsfw, nil
}

// EpisodeFinish pushes episode progress of subjects being watched.
type EpisodeFinish struct {
	remote   remote
	settings settings
	store    store
}

func (h *EpisodeFinish) Handle(ctx context.Context, e *EpisodeFinishChanged) error {
	l := log.WithFields(log.Fields{
		"episode_id": e.EpisodeID,
		"subject_id": e.SubjectID,
		"user_id":    e.UserID,
		"finished":   e.Finished,
	})
	st, err := h.settings.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get settings")
	}
	if !st.SyncEnabled {
		l.Debug("sync disabled, skipping")
		return nil
	}
	sc, err := h.store.GetCollection(ctx, e.UserID, e.SubjectID)
	if err != nil {
		return err
	}
	if sc == nil || sc.Type != models.CollectionTypeDoing {
		l.Debug("subject is not being watched, skipping")
		return nil
	}
	id, err := platformID(ctx, h.store, e.SubjectID)
	if err != nil {
		return err
	}
	if id == 0 {
		l.Debug("subject is not bound to bangumi, skipping")
		return nil
	}
	ep, err := h.store.GetEpisode(ctx, e.EpisodeID)
	if err != nil {
		return err
	}
	if ep == nil || ep.Group != models.EpisodeGroupMain {
		l.Debug("not a main episode, skipping")
		return nil
	}
	if !uuid.Equal(ep.SubjectID, e.SubjectID) {
		l.WithField("episode_subject_id", ep.SubjectID).Warn("episode belongs to another subject, skipping")
		return nil
	}
	private, err := nsfwPrivate(ctx, h.store, e.SubjectID, st.NsfwPrivate)
	if err != nil {
		return err
	}
	h.remote.SetEpisodeCollectionStatus(ctx, id, ep.Sequence, e.Finished, private)
	return nil
}

// ParseCollectionType matches a collection type name case-insensitively. Unknown names give WISH.
func ParseCollectionType(s string) bangumi.SubjectCollectionType {
	c := cases.Fold()
	folded := c.String(s)
	for _, t := range bangumi.SubjectCollectionTypes() {
		if c.String(t.String()) == folded {
			return t
		}
	}
	return bangumi.SubjectCollectionTypeWish
}

// SubjectCollect mirrors collection changes locally and on bangumi.
type SubjectCollect struct {
	remote   remote
	settings settings
	store    store
}

func (h *SubjectCollect) Handle(ctx context.Context, e *SubjectCollected) error {
	l := log.WithFields(log.Fields{
		"subject_id": e.SubjectID,
		"user_id":    e.UserID,
		"type":       e.Type,
	})
	t := ParseCollectionType(e.Type)
	err := h.store.SaveCollection(ctx, &models.SubjectCollection{
		UserID:    e.UserID,
		SubjectID: e.SubjectID,
		Type:      models.CollectionType(t.String()),
		Private:   e.Private,
	})
	if err != nil {
		l.WithError(err).Warn("failed to mirror subject collection")
	}
	st, err := h.settings.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get settings")
	}
	if !st.SyncEnabled {
		l.Debug("sync disabled, skipping")
		return nil
	}
	id, err := platformID(ctx, h.store, e.SubjectID)
	if err != nil {
		return err
	}
	if id == 0 {
		l.Debug("subject is not bound to bangumi, skipping")
		return nil
	}
	private, err := nsfwPrivate(ctx, h.store, e.SubjectID, st.NsfwPrivate)
	if err != nil {
		return err
	}
	h.remote.SetUserCollectionStatus(ctx, id, t, e.Private || private)
	return nil
}

// SubjectUncollect drops the local mirror. Bangumi has no way to remove a collection.
type SubjectUncollect struct {
	store store
}

func (h *SubjectUncollect) Handle(ctx context.Context, e *SubjectUncollected) error {
	if err := h.store.DeleteCollection(ctx, e.UserID, e.SubjectID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"subject_id": e.SubjectID,
		"user_id":    e.UserID,
	}).Debug("subject uncollected, nothing to push to bangumi")
	return nil
}

// ConfigChange applies fresh settings to the bangumi client.
type ConfigChange struct {
	remote   remote
	settings settings
}

func (h *ConfigChange) Handle(ctx context.Context, _ *ConfigChanged) error {
	st, err := h.settings.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load settings")
	}
	h.remote.Refresh(st.Token, st.ProxyURL)
	if st.CheckReachability && !h.remote.AssertDomainReachable(ctx) {
		log.Warn("bangumi is not reachable with new settings")
	}
	return nil
}
