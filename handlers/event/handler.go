package event

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"

	"github.com/webtor-io/bangumi-sync/services/listener"
)

const (
	subjectEpisodeFinishChanged = "subject.episode.finish.changed"
	subjectCollected            = "subject.collected"
	subjectUncollected          = "subject.uncollected"
	pluginConfigChanged         = "plugin.config.changed"
)

type Handler struct {
	nats      *cs.NATS
	listeners listeners
	stream    string
	prefix    string
	subs      []*nats.Subscription
	done      chan struct{}
}

func New(c *cli.Context, nats *cs.NATS, l *listener.Listeners) *Handler {
	if !c.Bool(useEventHandlerFlag) || nats == nil {
		return nil
	}
	return &Handler{
		nats:      nats,
		listeners: l,
		stream:    c.String(eventStreamFlag),
		prefix:    c.String(eventConsumerFlag),
		done:      make(chan struct{}),
	}
}

func (h *Handler) Serve() error {
	nc := h.nats.Get()
	if nc == nil {
		log.Warn("nats connection is nil, skipping subscriptions")
		return nil
	}
	js, err := nc.JetStream()
	if err != nil {
		return err
	}
	for subject, handler := range h.routes() {
		err = h.subscribe(js, h.stream, subject, h.consumer(subject), handler)
		if err != nil {
			return err
		}
	}

	<-h.done

	return nil
}

func (h *Handler) routes() map[string]func([]byte) error {
	return map[string]func([]byte) error{
		subjectEpisodeFinishChanged: h.episodeFinishChanged,
		subjectCollected:            h.subjectCollected,
		subjectUncollected:          h.subjectUncollected,
		pluginConfigChanged:         h.configChanged,
	}
}

func (h *Handler) consumer(subject string) string {
	return h.prefix + "-" + subjectToConsumer(subject)
}

func (h *Handler) subscribe(js nats.JetStreamContext, stream string, subject string, consumer string, handler func([]byte) error) error {
	sub, err := js.PullSubscribe(subject, consumer, nats.Bind(stream, consumer))
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)
	log.WithFields(log.Fields{
		"subject":  subject,
		"consumer": consumer,
	}).Info("subscribed to host events")
	go func() {
		for {
			select {
			case <-h.done:
				return
			default:
				msgs, err := sub.Fetch(1, nats.MaxWait(5*time.Second))
				if err != nil {
					if err == context.DeadlineExceeded || err == nats.ErrTimeout {
						continue
					}
					log.WithError(err).WithField("consumer", consumer).Error("failed to fetch message")
					continue
				}
				msg := msgs[0]
				err = handler(msg.Data)
				if err != nil {
					log.WithError(err).WithField("consumer", consumer).Error("failed to handle message")
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}
	}()
	return nil
}

func (h *Handler) Close() {
	for _, sub := range h.subs {
		_ = sub.Unsubscribe()
	}
	close(h.done)
}
