package sync

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	ssync "github.com/webtor-io/bangumi-sync/services/sync"
)

var errNotFound = errors.New("nothing to sync")

type registry interface {
	Platforms() []models.SyncPlatform
	Pull(ctx context.Context, p models.SyncPlatform, platformID string) (*models.Subject, error)
	Merge(ctx context.Context, p models.SyncPlatform, s *models.Subject, platformID string) (*models.Subject, error)
}

type remote interface {
	SearchSubjects(ctx context.Context, keyword string, kind *bangumi.SubjectKind) ([]bangumi.Subject, error)
	GetMe(ctx context.Context) (*bangumi.UserInfo, error)
}

type Handler struct {
	reg    registry
	remote remote
	store  subjectStore
}

func RegisterHandler(r *gin.Engine, reg *ssync.Registry, api *bangumi.Api, pg *cs.PG) {
	h := &Handler{
		reg:    reg,
		remote: api,
		store:  &pgSubjectStore{pg: pg},
	}
	h.register(r)
}

func (s *Handler) register(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST"},
	}))
	r.GET("/sync/platforms", s.platforms)
	r.POST("/sync/:platform/:platform_id/pull", s.pull)
	r.POST("/sync/:platform/:platform_id/merge", s.merge)
	r.GET("/subjects/:subject_id", s.subject)
	r.GET("/bangumi/search", s.search)
	r.GET("/bangumi/me", s.me)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, ssync.ErrInvalidPlatformID),
		errors.Is(err, ssync.ErrUnknownPlatform),
		errors.Is(err, bangumi.ErrInvalidID),
		errors.Is(err, bangumi.ErrEmptyKeyword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Handler) fail(c *gin.Context, err error, msg string) {
	code := statusOf(err)
	l := log.WithError(err).WithField("path", c.FullPath())
	if code == http.StatusInternalServerError {
		l.Error(msg)
	} else {
		l.Debug(msg)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func (s *Handler) platforms(c *gin.Context) {
	c.JSON(http.StatusOK, s.reg.Platforms())
}

func (s *Handler) pull(c *gin.Context) {
	ctx := c.Request.Context()
	p := models.ParseSyncPlatform(c.Param("platform"))
	sub, err := s.reg.Pull(ctx, p, c.Param("platform_id"))
	if err == nil && sub == nil {
		err = errNotFound
	}
	if err != nil {
		s.fail(c, err, "failed to pull subject")
		return
	}
	if err := s.store.Create(ctx, sub); err != nil {
		s.fail(c, err, "failed to store pulled subject")
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Handler) merge(c *gin.Context) {
	ctx := c.Request.Context()
	p := models.ParseSyncPlatform(c.Param("platform"))
	id, err := uuid.FromString(c.Query("subject_id"))
	if err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, errors.Wrap(err, "wrong subject_id"))
		return
	}
	existing, err := s.store.Get(ctx, id)
	if err == nil && existing == nil {
		err = errors.Wrapf(errNotFound, "subject %v", id)
	}
	if err != nil {
		s.fail(c, err, "failed to get subject")
		return
	}
	sub, err := s.reg.Merge(ctx, p, existing, c.Param("platform_id"))
	if err == nil && sub == nil {
		err = errNotFound
	}
	if err != nil {
		s.fail(c, err, "failed to merge subject")
		return
	}
	if err := s.store.Update(ctx, sub); err != nil {
		s.fail(c, err, "failed to store merged subject")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Handler) subject(c *gin.Context) {
	id, err := uuid.FromString(c.Param("subject_id"))
	if err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, errors.Wrap(err, "wrong subject_id"))
		return
	}
	sub, err := s.store.Get(c.Request.Context(), id)
	if err == nil && sub == nil {
		err = errors.Wrapf(errNotFound, "subject %v", id)
	}
	if err != nil {
		s.fail(c, err, "failed to get subject")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Handler) search(c *gin.Context) {
	var kind *bangumi.SubjectKind
	if t := c.Query("type"); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil {
			_ = c.AbortWithError(http.StatusBadRequest, errors.Wrap(err, "wrong type"))
			return
		}
		k := bangumi.SubjectKind(n)
		kind = &k
	}
	res, err := s.remote.SearchSubjects(c.Request.Context(), c.Query("keyword"), kind)
	if err != nil {
		s.fail(c, err, "failed to search subjects")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Handler) me(c *gin.Context) {
	u, err := s.remote.GetMe(c.Request.Context())
	if err == nil && u == nil {
		err = errors.Wrap(errNotFound, "not authorized on bangumi")
	}
	if err != nil {
		s.fail(c, err, "failed to get bangumi user")
		return
	}
	c.JSON(http.StatusOK, u)
}
