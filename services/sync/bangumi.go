package sync

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	cs "github.com/webtor-io/common-services"
	"golang.org/x/sync/errgroup"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/attachment"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"github.com/webtor-io/bangumi-sync/services/mapper"
	"github.com/webtor-io/bangumi-sync/services/merge"
)

const defaultCoverExt = "jpg"

type remoteClient interface {
	GetSubject(ctx context.Context, id int64) (*bangumi.Subject, error)
	FindAllEpisodes(ctx context.Context, subjectID int64, episodeType *bangumi.EpisodeType) ([]bangumi.Episode, error)
	DownloadCover(ctx context.Context, u string) ([]byte, error)
}

type coverSink interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Bangumi synchronizes subjects with bgm.tv.
type Bangumi struct {
	api  remoteClient
	tags tagStore
	sink coverSink
	now  func() time.Time
}

// NewBangumi returns a synchronizer. A nil sink keeps covers on their remote urls.
func NewBangumi(api *bangumi.Api, pg *cs.PG, sink *attachment.Sink) *Bangumi {
	b := &Bangumi{
		api:  api,
		tags: &pgTagStore{pg: pg},
		now:  time.Now,
	}
	if sink != nil {
		b.sink = sink
	}
	return b
}

// NewReadOnlyBangumi returns a synchronizer that never writes: tags are not stored and
// covers stay on their remote urls.
func NewReadOnlyBangumi(api *bangumi.Api, pg *cs.PG) *Bangumi {
	return newReadOnlyBangumi(api, &pgTagStore{pg: pg})
}

func newReadOnlyBangumi(api remoteClient, tags tagStore) *Bangumi {
	return &Bangumi{
		api:  api,
		tags: &readOnlyTagStore{tagStore: tags},
		now:  time.Now,
	}
}

func (b *Bangumi) Platform() models.SyncPlatform {
	return models.SyncPlatformBgmTv
}

func parsePlatformID(platformID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(platformID), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(ErrInvalidPlatformID, "got %q", platformID)
	}
	return id, nil
}

func (b *Bangumi) fetch(ctx context.Context, platformID string) (*bangumi.Subject, int64, error) {
	id, err := parsePlatformID(platformID)
	if err != nil {
		return nil, 0, err
	}
	remote, err := b.api.GetSubject(ctx, id)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to get bangumi subject %d", id)
	}
	if remote == nil {
		log.WithField("platform_id", id).Info("bangumi subject not found, nothing to sync")
	}
	return remote, id, nil
}

func (b *Bangumi) fetchEpisodes(ctx context.Context, id int64, t models.SubjectType) ([]*models.Episode, error) {
	es, err := b.api.FindAllEpisodes(ctx, id, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get bangumi episodes of subject %d", id)
	}
	return mapper.MapEpisodes(es, t), nil
}

func (b *Bangumi) Pull(ctx context.Context, platformID string) (*models.Subject, error) {
	remote, id, err := b.fetch(ctx, platformID)
	if err != nil || remote == nil {
		return nil, err
	}
	s := mapper.MapSubject(remote)
	s.Episodes, err = b.fetchEpisodes(ctx, id, s.Type)
	if err != nil {
		return nil, err
	}
	s.TotalEpisodes = len(s.Episodes)
	s.Syncs = []*models.SubjectSync{b.makeSync(id)}

	tags := mapper.MapTags(remote)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.tags.CreateTags(gctx, tags); err != nil {
			return errors.Wrap(err, "failed to create tags")
		}
		s.Tags = tags
		return nil
	})
	g.Go(func() error {
		b.storeCover(gctx, s)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"platform_id": id,
		"name":        s.DisplayName(),
		"episodes":    s.TotalEpisodes,
		"tags":        len(s.Tags),
	}).Info("bangumi subject pulled")
	return s, nil
}

// Merge applies remote data to s. On error s is left untouched.
func (b *Bangumi) Merge(ctx context.Context, s *models.Subject, platformID string) (*models.Subject, error) {
	if s == nil {
		return nil, errors.New("subject is nil")
	}
	remote, id, err := b.fetch(ctx, platformID)
	if err != nil || remote == nil {
		return nil, err
	}
	m := cloneSubject(s)
	mapped := mapper.MapSubject(remote)
	merge.SubjectFields(m, mapped)
	incoming, err := b.fetchEpisodes(ctx, id, m.Type)
	if err != nil {
		return nil, err
	}
	m.Episodes = merge.Episodes(m.Episodes, incoming)
	m.TotalEpisodes = len(m.Episodes)
	b.upsertSync(m, id)

	tags := mapper.MapTags(remote)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attached, err := b.reconcileTags(gctx, m, tags)
		if err != nil {
			return err
		}
		m.Tags = attached
		return nil
	})
	if m.Cover == "" && mapped.Cover != "" {
		m.Cover = mapped.Cover
		g.Go(func() error {
			b.storeCover(gctx, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	*s = *m
	log.WithFields(log.Fields{
		"platform_id": id,
		"subject_id":  s.SubjectID,
		"episodes":    s.TotalEpisodes,
	}).Info("bangumi subject merged")
	return s, nil
}

func cloneSubject(s *models.Subject) *models.Subject {
	c := *s
	c.Episodes = make([]*models.Episode, 0, len(s.Episodes))
	for _, e := range s.Episodes {
		if e == nil {
			continue
		}
		ec := *e
		c.Episodes = append(c.Episodes, &ec)
	}
	c.Syncs = make([]*models.SubjectSync, 0, len(s.Syncs))
	for _, ss := range s.Syncs {
		if ss == nil {
			continue
		}
		sc := *ss
		c.Syncs = append(c.Syncs, &sc)
	}
	c.Tags = append([]string(nil), s.Tags...)
	return &c
}

func (b *Bangumi) makeSync(id int64) *models.SubjectSync {
	return &models.SubjectSync{
		Platform:   models.SyncPlatformBgmTv,
		PlatformID: strconv.FormatInt(id, 10),
		SyncTime:   b.now(),
	}
}

// upsertSync refreshes the sync record of the same platform id or appends a new one.
func (b *Bangumi) upsertSync(s *models.Subject, id int64) {
	pid := strconv.FormatInt(id, 10)
	for _, ss := range s.Syncs {
		if ss.Platform == models.SyncPlatformBgmTv && ss.PlatformID == pid {
			ss.SyncTime = b.now()
			return
		}
	}
	s.Syncs = append(s.Syncs, b.makeSync(id))
}

// reconcileTags creates and attaches remote tags the subject does not carry yet.
// It returns the union of attached and remote tag names.
func (b *Bangumi) reconcileTags(ctx context.Context, s *models.Subject, tags []string) ([]string, error) {
	var existing []string
	if !uuid.Equal(s.SubjectID, uuid.Nil) {
		var err error
		existing, err = b.tags.GetSubjectTagNames(ctx, s.SubjectID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get attached tags")
		}
	}
	unseen := lo.Without(tags, existing...)
	if len(unseen) == 0 {
		return existing, nil
	}
	if err := b.tags.CreateTags(ctx, unseen); err != nil {
		return nil, errors.Wrap(err, "failed to create tags")
	}
	if !uuid.Equal(s.SubjectID, uuid.Nil) {
		if err := b.tags.AttachTags(ctx, s.SubjectID, unseen); err != nil {
			return nil, errors.Wrap(err, "failed to attach tags")
		}
	}
	log.WithFields(log.Fields{
		"subject_id": s.SubjectID,
		"tags":       unseen,
	}).Info("new tags attached")
	return append(existing, unseen...), nil
}

func isRemoteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func coverExt(u string) string {
	pu, err := url.Parse(u)
	if err != nil {
		return defaultCoverExt
	}
	ext := strings.TrimPrefix(path.Ext(pu.Path), ".")
	if ext == "" {
		return defaultCoverExt
	}
	return strings.ToLower(ext)
}

func (b *Bangumi) coverName(s *models.Subject, u string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(s.DisplayName())
	return fmt.Sprintf("%d-%s.%s", b.now().UnixMilli(), name, coverExt(u))
}

// storeCover moves a remote cover into the sink. Failures keep the remote url.
func (b *Bangumi) storeCover(ctx context.Context, s *models.Subject) {
	if b.sink == nil || !isRemoteURL(s.Cover) {
		return
	}
	l := log.WithField("cover", s.Cover)
	data, err := b.api.DownloadCover(ctx, s.Cover)
	if err != nil {
		l.WithError(err).Warn("failed to download cover")
		return
	}
	name := b.coverName(s, s.Cover)
	u, err := b.sink.Upload(ctx, name, data)
	if err != nil {
		l.WithError(err).Warn("failed to upload cover")
		return
	}
	l.WithFields(log.Fields{
		"url":  u,
		"size": humanize.Bytes(uint64(len(data))),
	}).Info("cover stored")
	s.Cover = u
}
