package listener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"github.com/webtor-io/bangumi-sync/services/config"
)

const (
	listenerTimeoutFlag = "listener-timeout"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.DurationFlag{
			Name:   listenerTimeoutFlag,
			Usage:  "timeout of a single listener invocation",
			Value:  time.Minute,
			EnvVar: "LISTENER_TIMEOUT",
		},
	)
}

// Listeners runs reflection handlers in the background. Failures never reach the caller.
type Listeners struct {
	episodeFinish    *EpisodeFinish
	subjectCollect   *SubjectCollect
	subjectUncollect *SubjectUncollect
	configChange     *ConfigChange
	timeout          time.Duration
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New(c *cli.Context, api *bangumi.Api, st *config.Store, pg *cs.PG) *Listeners {
	return newListeners(api, st, &pgStore{pg: pg}, c.Duration(listenerTimeoutFlag))
}

func newListeners(r remote, s settings, st store, timeout time.Duration) *Listeners {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listeners{
		episodeFinish:    &EpisodeFinish{remote: r, settings: s, store: st},
		subjectCollect:   &SubjectCollect{remote: r, settings: s, store: st},
		subjectUncollect: &SubjectUncollect{store: st},
		configChange:     &ConfigChange{remote: r, settings: s},
		timeout:          timeout,
		ctx:              ctx,
		cancel:           cancel,
	}
}

func (l *Listeners) dispatch(name string, fn func(ctx context.Context) error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		lg := log.WithField("listener", name)
		defer func() {
			if r := recover(); r != nil {
				lg.WithError(fmt.Errorf("%v", r)).Error("listener panicked")
			}
		}()
		ctx := l.ctx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			lg.WithError(err).Error("listener failed")
		}
	}()
}

func (l *Listeners) OnEpisodeFinishChanged(e *EpisodeFinishChanged) {
	l.dispatch("episode-finish", func(ctx context.Context) error {
		return l.episodeFinish.Handle(ctx, e)
	})
}

func (l *Listeners) OnSubjectCollected(e *SubjectCollected) {
	l.dispatch("subject-collect", func(ctx context.Context) error {
		return l.subjectCollect.Handle(ctx, e)
	})
}

func (l *Listeners) OnSubjectUncollected(e *SubjectUncollected) {
	l.dispatch("subject-uncollect", func(ctx context.Context) error {
		return l.subjectUncollect.Handle(ctx, e)
	})
}

func (l *Listeners) OnConfigChanged(e *ConfigChanged) {
	l.dispatch("config-change", func(ctx context.Context) error {
		return l.configChange.Handle(ctx, e)
	})
}

// Wait blocks until in-flight handlers are done or ctx expires.
func (l *Listeners) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "listeners still running")
	}
}

// Close cancels in-flight handlers and waits for them to return.
func (l *Listeners) Close() {
	l.cancel()
	l.wg.Wait()
}
