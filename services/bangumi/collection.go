package bangumi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// SetUserCollectionStatus upserts the collection state of a subject. Failures are only logged.
func (api *Api) SetUserCollectionStatus(ctx context.Context, subjectID int64, t SubjectCollectionType, private bool) {
	l := log.WithFields(log.Fields{
		"subject_id": subjectID,
		"type":       t.String(),
		"private":    private,
	})
	if err := api.postUserCollection(ctx, subjectID, t, private); err != nil {
		l.WithError(err).Warn("failed to set subject collection status")
		return
	}
	l.Info("subject collection status updated")
}

func (api *Api) postUserCollection(ctx context.Context, subjectID int64, t SubjectCollectionType, private bool) error {
	return api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v0/users/-/collections/%d", subjectID), nil, &userCollectionRequest{
		Type:    t,
		Private: private,
	}, nil)
}

// SetEpisodeCollectionStatus marks the main episode matching sequence as finished or not.
// If the subject is not collected yet it gets collected as DOING and the update is retried once.
// Failures are only logged.
func (api *Api) SetEpisodeCollectionStatus(ctx context.Context, subjectID int64, sequence float64, finished bool, private bool) {
	l := log.WithFields(log.Fields{
		"subject_id": subjectID,
		"sequence":   sequence,
		"finished":   finished,
	})
	episodeID, err := api.resolveEpisodeID(ctx, subjectID, sequence)
	if err != nil {
		l.WithError(err).Warn("failed to resolve remote episode")
		return
	}
	if episodeID == 0 {
		l.Debug("no remote episode matches sequence")
		return
	}
	l = l.WithField("episode_id", episodeID)
	t := EpisodeCollectionTypeNot
	if finished {
		t = EpisodeCollectionTypeDone
	}
	err = api.putEpisodeCollection(ctx, episodeID, t)
	if err == nil {
		l.Info("episode collection status updated")
		return
	}
	if !isMustCollectFirst(err) {
		l.WithError(err).Warn("failed to set episode collection status")
		return
	}
	l.Info("subject is not collected, collecting it as doing")
	api.SetUserCollectionStatus(ctx, subjectID, SubjectCollectionTypeDoing, private)
	if err = api.putEpisodeCollection(ctx, episodeID, t); err != nil {
		l.WithError(err).Warn("failed to set episode collection status after collecting subject")
		return
	}
	l.Info("episode collection status updated")
}

func (api *Api) putEpisodeCollection(ctx context.Context, episodeID int64, t EpisodeCollectionType) error {
	return api.doJSON(ctx, http.MethodPut, fmt.Sprintf("/v0/users/-/collections/-/episodes/%d", episodeID), nil, &episodeCollectionRequest{
		Type: t,
	}, nil)
}

func (api *Api) resolveEpisodeID(ctx context.Context, subjectID int64, sequence float64) (int64, error) {
	episodes, err := api.episodes.Get(strconv.FormatInt(subjectID, 10), func() ([]Episode, error) {
		t := EpisodeTypePositive
		return api.FindAllEpisodes(ctx, subjectID, &t)
	})
	if err != nil {
		return 0, err
	}
	for _, e := range episodes {
		if int64(e.Number()) == int64(sequence) {
			return e.ID, nil
		}
	}
	return 0, nil
}
