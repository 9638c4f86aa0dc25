package bangumi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// FindEpisodes returns one page of episodes. A nil episodeType means all types.
func (api *Api) FindEpisodes(ctx context.Context, subjectID int64, episodeType *EpisodeType, offset *int, limit *int) ([]Episode, error) {
	p, err := api.findEpisodes(ctx, subjectID, episodeType, offset, limit)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

func (api *Api) findEpisodes(ctx context.Context, subjectID int64, episodeType *EpisodeType, offset *int, limit *int) (*PagingData[Episode], error) {
	if subjectID <= 0 {
		return nil, errors.Wrapf(ErrInvalidID, "subject id %d", subjectID)
	}
	o := defaultOffset
	if offset != nil && *offset >= 0 {
		o = *offset
	}
	l := defaultLimit
	if limit != nil && *limit > 0 {
		l = *limit
	}
	q := url.Values{}
	q.Set("subject_id", strconv.FormatInt(subjectID, 10))
	if episodeType != nil {
		q.Set("type", strconv.Itoa(int(*episodeType)))
	}
	q.Set("limit", strconv.Itoa(l))
	q.Set("offset", strconv.Itoa(o))
	var res PagingData[Episode]
	if err := api.doJSON(ctx, http.MethodGet, "/v0/episodes", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FindAllEpisodes walks every page of the subject's episodes.
func (api *Api) FindAllEpisodes(ctx context.Context, subjectID int64, episodeType *EpisodeType) ([]Episode, error) {
	var episodes []Episode
	offset := 0
	limit := defaultLimit
	for {
		p, err := api.findEpisodes(ctx, subjectID, episodeType, &offset, &limit)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, p.Data...)
		offset += len(p.Data)
		if len(p.Data) == 0 || offset >= p.Total {
			break
		}
	}
	return episodes, nil
}
