package bangumi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SubjectKind is the remote subject type code.
type SubjectKind int

const (
	SubjectKindBook  SubjectKind = 1
	SubjectKindAnime SubjectKind = 2
	SubjectKindMusic SubjectKind = 3
	SubjectKindGame  SubjectKind = 4
	SubjectKindReal  SubjectKind = 6
)

type EpisodeType int

const (
	EpisodeTypePositive EpisodeType = 0
	EpisodeTypeSpecial  EpisodeType = 1
	EpisodeTypeOP       EpisodeType = 2
	EpisodeTypeED       EpisodeType = 3
	EpisodeTypePV       EpisodeType = 4
	EpisodeTypeMAD      EpisodeType = 5
	EpisodeTypeOther    EpisodeType = 6
)

type SubjectCollectionType int

const (
	SubjectCollectionTypeWish    SubjectCollectionType = 1
	SubjectCollectionTypeDone    SubjectCollectionType = 2
	SubjectCollectionTypeDoing   SubjectCollectionType = 3
	SubjectCollectionTypeShelve  SubjectCollectionType = 4
	SubjectCollectionTypeDiscard SubjectCollectionType = 5
)

var subjectCollectionTypeNames = map[SubjectCollectionType]string{
	SubjectCollectionTypeWish:    "WISH",
	SubjectCollectionTypeDone:    "DONE",
	SubjectCollectionTypeDoing:   "DOING",
	SubjectCollectionTypeShelve:  "SHELVE",
	SubjectCollectionTypeDiscard: "DISCARD",
}

func (s SubjectCollectionType) String() string {
	if n, ok := subjectCollectionTypeNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// SubjectCollectionTypes lists collection types in remote code order.
func SubjectCollectionTypes() []SubjectCollectionType {
	return []SubjectCollectionType{
		SubjectCollectionTypeWish,
		SubjectCollectionTypeDone,
		SubjectCollectionTypeDoing,
		SubjectCollectionTypeShelve,
		SubjectCollectionTypeDiscard,
	}
}

type EpisodeCollectionType int

const (
	EpisodeCollectionTypeNot     EpisodeCollectionType = 0
	EpisodeCollectionTypeWish    EpisodeCollectionType = 1
	EpisodeCollectionTypeDone    EpisodeCollectionType = 2
	EpisodeCollectionTypeDiscard EpisodeCollectionType = 3
)

type Images struct {
	Small  string `json:"small"`
	Grid   string `json:"grid"`
	Large  string `json:"large"`
	Medium string `json:"medium"`
	Common string `json:"common"`
}

type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Subject struct {
	ID       int64   `json:"id"`
	Type     *int    `json:"type"`
	Name     string  `json:"name"`
	NameCn   string  `json:"name_cn"`
	Summary  string  `json:"summary"`
	Date     *string `json:"date"`
	Platform string  `json:"platform"`
	Infobox  string  `json:"-"`
	Nsfw     bool    `json:"nsfw"`
	Images   *Images `json:"images"`
	Image    string  `json:"image"`
	Tags     []Tag   `json:"tags"`
}

// Disc accepts both numeric and string disc values.
type Disc string

func (d *Disc) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = Disc(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil && i == 0 {
		*d = ""
		return nil
	}
	*d = Disc(n.String())
	return nil
}

func (d Disc) Int() (int, bool) {
	i, err := strconv.Atoi(string(d))
	if err != nil {
		return 0, false
	}
	return i, true
}

type Episode struct {
	ID              int64        `json:"id"`
	Type            *EpisodeType `json:"type"`
	Name            string       `json:"name"`
	NameCn          string       `json:"name_cn"`
	Sort            *float64     `json:"sort"`
	Ep              *float64     `json:"ep"`
	AirDate         string       `json:"airdate"`
	Comment         int          `json:"comment"`
	Duration        string       `json:"duration"`
	Desc            string       `json:"desc"`
	Disc            Disc         `json:"disc"`
	DurationSeconds int          `json:"duration_seconds"`
}

// Number returns sort, falling back to ep.
func (e *Episode) Number() float64 {
	if e.Sort != nil {
		return *e.Sort
	}
	if e.Ep != nil {
		return *e.Ep
	}
	return 0
}

type Avatar struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
	Small  string `json:"small"`
}

type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	UserGroup int    `json:"user_group"`
	Avatar    Avatar `json:"avatar"`
	Sign      string `json:"sign"`
}

type PagingData[T any] struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Data   []T `json:"data"`
}

type legacySubject struct {
	ID      int64   `json:"id"`
	Type    *int    `json:"type"`
	Name    string  `json:"name"`
	NameCn  string  `json:"name_cn"`
	Summary string  `json:"summary"`
	AirDate string  `json:"air_date"`
	Images  *Images `json:"images"`
}

func (s *legacySubject) toSubject() Subject {
	var date *string
	if s.AirDate != "" && s.AirDate != "0000-00-00" {
		d := s.AirDate
		date = &d
	}
	return Subject{
		ID:      s.ID,
		Type:    s.Type,
		Name:    s.Name,
		NameCn:  s.NameCn,
		Summary: s.Summary,
		Date:    date,
		Images:  s.Images,
	}
}

type legacySearchResponse struct {
	Code    *int            `json:"code"`
	Results int             `json:"results"`
	List    []legacySubject `json:"list"`
}

type userCollectionRequest struct {
	Type    SubjectCollectionType `json:"type"`
	Private bool                  `json:"private"`
}

type episodeCollectionRequest struct {
	Type EpisodeCollectionType `json:"type"`
}

type searchRequest struct {
	Keyword string `json:"keyword"`
}
