package sync

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/webtor-io/bangumi-sync/models"
)

var (
	ErrUnknownPlatform   = errors.New("unknown sync platform")
	ErrInvalidPlatformID = errors.New("invalid platform id")
)

// Synchronizer pulls subjects from one remote platform.
type Synchronizer interface {
	Platform() models.SyncPlatform
	// Pull builds a new subject from the remote one. Nil means nothing to sync.
	Pull(ctx context.Context, platformID string) (*models.Subject, error)
	// Merge folds the remote state into an existing subject. Nil means nothing to sync.
	Merge(ctx context.Context, s *models.Subject, platformID string) (*models.Subject, error)
}

type Registry struct {
	ss map[models.SyncPlatform]Synchronizer
}

func NewRegistry(ss ...Synchronizer) *Registry {
	r := &Registry{
		ss: make(map[models.SyncPlatform]Synchronizer, len(ss)),
	}
	for _, s := range ss {
		if s == nil {
			continue
		}
		r.ss[s.Platform()] = s
	}
	return r
}

func (r *Registry) Get(p models.SyncPlatform) (Synchronizer, error) {
	s, ok := r.ss[p]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlatform, "platform %q", p)
	}
	return s, nil
}

func (r *Registry) Platforms() []models.SyncPlatform {
	res := make([]models.SyncPlatform, 0, len(r.ss))
	for p := range r.ss {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res
}

func (r *Registry) Pull(ctx context.Context, p models.SyncPlatform, platformID string) (*models.Subject, error) {
	s, err := r.Get(p)
	if err != nil {
		return nil, err
	}
	return s.Pull(ctx, platformID)
}

func (r *Registry) Merge(ctx context.Context, p models.SyncPlatform, subject *models.Subject, platformID string) (*models.Subject, error) {
	s, err := r.Get(p)
	if err != nil {
		return nil, err
	}
	return s.Merge(ctx, subject, platformID)
}
