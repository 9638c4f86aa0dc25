package merge

import (
	log "github.com/sirupsen/logrus"
	"github.com/webtor-io/bangumi-sync/models"
)

// EpisodeGroupSequence identifies an episode within a subject.
type EpisodeGroupSequence struct {
	Group    models.EpisodeGroup
	Sequence float64
}

func keyOf(e *models.Episode) EpisodeGroupSequence {
	return EpisodeGroupSequence{
		Group:    e.Group,
		Sequence: e.Sequence,
	}
}

// Episodes merges incoming episodes into existing ones and returns the merged list in
// incoming order. Matched episodes are updated in place and keep their ids. Existing
// episodes no incoming one matched follow at the end in their original order.
func Episodes(existing []*models.Episode, incoming []*models.Episode) []*models.Episode {
	index := make(map[EpisodeGroupSequence][]*models.Episode, len(existing))
	for _, e := range existing {
		k := keyOf(e)
		if len(index[k]) > 0 {
			log.WithFields(log.Fields{
				"group":    k.Group,
				"sequence": k.Sequence,
			}).Warn("duplicate episode key in existing episodes")
		}
		index[k] = append(index[k], e)
	}
	res := make([]*models.Episode, 0, len(existing)+len(incoming))
	claimed := make(map[*models.Episode]bool, len(existing))
	seen := make(map[EpisodeGroupSequence]bool, len(incoming))
	for _, in := range incoming {
		if in == nil {
			continue
		}
		k := keyOf(in)
		if seen[k] {
			log.WithFields(log.Fields{
				"group":    k.Group,
				"sequence": k.Sequence,
			}).Warn("duplicate episode key in incoming episodes")
		}
		seen[k] = true
		queue := index[k]
		if len(queue) == 0 {
			res = append(res, in)
			continue
		}
		target := queue[0]
		index[k] = queue[1:]
		updateEpisode(target, in)
		claimed[target] = true
		res = append(res, target)
	}
	for _, e := range existing {
		if !claimed[e] {
			res = append(res, e)
		}
	}
	return res
}

func updateEpisode(dst *models.Episode, src *models.Episode) {
	dst.Name = src.Name
	dst.NameCn = src.NameCn
	dst.Description = src.Description
	dst.AirTime = src.AirTime
	dst.Group = src.Group
	dst.Sequence = src.Sequence
}

// SubjectFields overwrites descriptive fields of existing with the remote ones.
// Episodes, cover, tags and syncs are left untouched.
func SubjectFields(existing *models.Subject, remote *models.Subject) {
	existing.Type = remote.Type
	existing.Name = remote.Name
	existing.NameCn = remote.NameCn
	existing.Infobox = remote.Infobox
	existing.Summary = remote.Summary
	existing.Nsfw = remote.Nsfw
	existing.AirTime = remote.AirTime
}
