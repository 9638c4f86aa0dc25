package mapper

import (
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	"golang.org/x/text/cases"
)

const (
	airTimeLayout = "2006-01-02"
	novelPlatform = "小说"
)

var defaultAirTime = time.Date(1999, time.September, 9, 0, 0, 0, 0, time.UTC)

func equalFold(a, b string) bool {
	c := cases.Fold()
	return c.String(a) == c.String(b)
}

func MapSubjectType(code *int, platform string) models.SubjectType {
	if code == nil {
		return models.SubjectTypeOther
	}
	switch bangumi.SubjectKind(*code) {
	case bangumi.SubjectKindBook:
		if equalFold(strings.TrimSpace(platform), novelPlatform) {
			return models.SubjectTypeNovel
		}
		return models.SubjectTypeComic
	case bangumi.SubjectKindAnime:
		return models.SubjectTypeAnime
	case bangumi.SubjectKindMusic:
		return models.SubjectTypeMusic
	case bangumi.SubjectKindGame:
		return models.SubjectTypeGame
	case bangumi.SubjectKindReal:
		return models.SubjectTypeReal
	default:
		return models.SubjectTypeOther
	}
}

func MapEpisodeGroup(t *bangumi.EpisodeType) models.EpisodeGroup {
	if t == nil {
		return models.EpisodeGroupOther
	}
	switch *t {
	case bangumi.EpisodeTypePositive:
		return models.EpisodeGroupMain
	case bangumi.EpisodeTypeSpecial, bangumi.EpisodeTypeMAD:
		return models.EpisodeGroupSpecialPromotion
	case bangumi.EpisodeTypeOP:
		return models.EpisodeGroupOpeningSong
	case bangumi.EpisodeTypeED:
		return models.EpisodeGroupEndingSong
	case bangumi.EpisodeTypePV:
		return models.EpisodeGroupPromotionVideo
	default:
		return models.EpisodeGroupOther
	}
}

// ParseAirTime parses YYYY-MM-DD into UTC midnight. It never fails: bad input gives nil.
func ParseAirTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(airTimeLayout, s, time.UTC)
	if err != nil {
		log.WithError(err).WithField("date", s).Warn("failed to parse air time")
		return nil
	}
	return &t
}

func MapSubject(s *bangumi.Subject) *models.Subject {
	nameCn := s.NameCn
	if strings.TrimSpace(nameCn) == "" {
		nameCn = s.Name
	}
	airTime := &defaultAirTime
	if s.Date != nil {
		if t := ParseAirTime(*s.Date); t != nil {
			airTime = t
		}
	}
	at := *airTime
	return &models.Subject{
		Type:    MapSubjectType(s.Type, s.Platform),
		Name:    s.Name,
		NameCn:  nameCn,
		Infobox: s.Infobox,
		Summary: s.Summary,
		Nsfw:    s.Nsfw,
		AirTime: &at,
		Cover:   coverOf(s),
	}
}

func coverOf(s *bangumi.Subject) string {
	if s.Images != nil && s.Images.Large != "" {
		return s.Images.Large
	}
	return s.Image
}

// MapTags returns trimmed tag names without duplicates, in remote order.
func MapTags(s *bangumi.Subject) []string {
	seen := make(map[string]struct{}, len(s.Tags))
	var names []string
	for _, t := range s.Tags {
		n := strings.TrimSpace(t.Name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// SequenceRule computes an episode's position within its subject.
type SequenceRule func(e *bangumi.Episode) float64

var sequenceRules = map[models.SubjectType]SequenceRule{
	models.SubjectTypeMusic: discSequence,
}

func SequenceRuleFor(t models.SubjectType) SequenceRule {
	if r, ok := sequenceRules[t]; ok {
		return r
	}
	return plainSequence
}

func plainSequence(e *bangumi.Episode) float64 {
	return e.Number()
}

// discSequence composes disc and track into one number: disc 1, track 2 gives 1.2.
// Tracks 1 and 10 of a disc collide (1.1), and track 11 sorts before track 2.
func discSequence(e *bangumi.Episode) float64 {
	seq := plainSequence(e)
	disc, ok := e.Disc.Int()
	if !ok || disc <= 0 {
		return seq
	}
	digits := strings.Replace(strconv.FormatFloat(seq, 'f', -1, 64), ".", "", 1)
	v, err := strconv.ParseFloat(strconv.Itoa(disc)+"."+digits, 64)
	if err != nil {
		return seq
	}
	return v
}

func MapEpisode(e *bangumi.Episode, subjectType models.SubjectType) *models.Episode {
	return &models.Episode{
		Name:        e.Name,
		NameCn:      e.NameCn,
		Description: e.Desc,
		AirTime:     ParseAirTime(e.AirDate),
		Group:       MapEpisodeGroup(e.Type),
		Sequence:    SequenceRuleFor(subjectType)(e),
	}
}

type episodeKey struct {
	group    models.EpisodeGroup
	sequence float64
}

// MapEpisodes maps remote episodes in order. Episodes sharing group and sequence are kept
// and reported, merging pairs them up in order.
func MapEpisodes(es []bangumi.Episode, subjectType models.SubjectType) []*models.Episode {
	res := make([]*models.Episode, 0, len(es))
	seen := make(map[episodeKey]int64, len(es))
	for i := range es {
		e := MapEpisode(&es[i], subjectType)
		k := episodeKey{group: e.Group, sequence: e.Sequence}
		if prev, ok := seen[k]; ok {
			log.WithFields(log.Fields{
				"group":       e.Group,
				"sequence":    e.Sequence,
				"episode_id":  es[i].ID,
				"conflict_id": prev,
			}).Warn("duplicate episode key in remote episodes")
		} else {
			seen[k] = es[i].ID
		}
		res = append(res, e)
	}
	return res
}
