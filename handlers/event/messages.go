package event

import (
	"encoding/json"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/webtor-io/bangumi-sync/services/listener"
)

type listeners interface {
	OnEpisodeFinishChanged(e *listener.EpisodeFinishChanged)
	OnSubjectCollected(e *listener.SubjectCollected)
	OnSubjectUncollected(e *listener.SubjectUncollected)
	OnConfigChanged(e *listener.ConfigChanged)
}

func subjectToConsumer(subject string) string {
	return strings.ReplaceAll(subject, ".", "-")
}

// Malformed messages are dropped by returning nil, redelivery would not fix them.
func decode(msg []byte, v any) bool {
	if len(msg) == 0 {
		return true
	}
	if err := json.Unmarshal(msg, v); err != nil {
		log.WithError(err).WithField("message", string(msg)).Warn("failed to decode event, dropping")
		return false
	}
	return true
}

func (h *Handler) episodeFinishChanged(msg []byte) error {
	var m listener.EpisodeFinishChanged
	if !decode(msg, &m) {
		return nil
	}
	h.listeners.OnEpisodeFinishChanged(&m)
	return nil
}

func (h *Handler) subjectCollected(msg []byte) error {
	var m listener.SubjectCollected
	if !decode(msg, &m) {
		return nil
	}
	h.listeners.OnSubjectCollected(&m)
	return nil
}

func (h *Handler) subjectUncollected(msg []byte) error {
	var m listener.SubjectUncollected
	if !decode(msg, &m) {
		return nil
	}
	h.listeners.OnSubjectUncollected(&m)
	return nil
}

func (h *Handler) configChanged(msg []byte) error {
	var m listener.ConfigChanged
	if !decode(msg, &m) {
		return nil
	}
	h.listeners.OnConfigChanged(&m)
	return nil
}
