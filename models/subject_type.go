package models

import "strings"

type SubjectType string

const (
	SubjectTypeAnime SubjectType = "ANIME"
	SubjectTypeComic SubjectType = "COMIC"
	SubjectTypeGame  SubjectType = "GAME"
	SubjectTypeMusic SubjectType = "MUSIC"
	SubjectTypeNovel SubjectType = "NOVEL"
	SubjectTypeReal  SubjectType = "REAL"
	SubjectTypeOther SubjectType = "OTHER"
)

func (s SubjectType) String() string {
	return string(s)
}

type EpisodeGroup string

const (
	EpisodeGroupMain             EpisodeGroup = "MAIN"
	EpisodeGroupSpecialPromotion EpisodeGroup = "SPECIAL_PROMOTION"
	EpisodeGroupOpeningSong      EpisodeGroup = "OPENING_SONG"
	EpisodeGroupEndingSong       EpisodeGroup = "ENDING_SONG"
	EpisodeGroupPromotionVideo   EpisodeGroup = "PROMOTION_VIDEO"
	EpisodeGroupOther            EpisodeGroup = "OTHER"
)

func (s EpisodeGroup) String() string {
	return string(s)
}

// CollectionType is the local user's relationship to a subject.
type CollectionType string

const (
	CollectionTypeWish    CollectionType = "WISH"
	CollectionTypeDoing   CollectionType = "DOING"
	CollectionTypeDone    CollectionType = "DONE"
	CollectionTypeShelve  CollectionType = "SHELVE"
	CollectionTypeDiscard CollectionType = "DISCARD"
)

func (s CollectionType) String() string {
	return string(s)
}

type SyncPlatform string

const (
	SyncPlatformBgmTv SyncPlatform = "BGM_TV"
)

func (s SyncPlatform) String() string {
	return string(s)
}

func ParseSyncPlatform(s string) SyncPlatform {
	return SyncPlatform(strings.ToUpper(strings.TrimSpace(s)))
}
