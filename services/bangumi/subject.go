package bangumi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type subjectResponse struct {
	Subject
	Infobox json.RawMessage `json:"infobox"`
}

// GetSubject returns nil, nil when the subject does not exist.
func (api *Api) GetSubject(ctx context.Context, id int64) (*Subject, error) {
	if id <= 0 {
		return nil, errors.Wrapf(ErrInvalidID, "subject id %d", id)
	}
	resp, err := api.do(ctx, http.MethodGet, fmt.Sprintf("/v0/subjects/%d", id), nil, nil)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		log.WithField("subject_id", id).Warn("subject not found")
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readStatusError(resp)
	}
	var sr subjectResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	s := sr.Subject
	s.Infobox = flattenInfobox(id, sr.Infobox)
	return &s, nil
}

type infoboxItem struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type infoboxValue struct {
	V json.RawMessage `json:"v"`
}

// flattenInfobox renders the infobox as "key: value" lines.
// Malformed input yields an empty string.
func flattenInfobox(id int64, raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var items []infoboxItem
	if err := json.Unmarshal(raw, &items); err != nil {
		log.WithError(err).WithField("subject_id", id).Warn("failed to parse infobox")
		return ""
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Key+": "+infoboxText(it.Value))
	}
	return strings.Join(lines, "\n")
}

func infoboxText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '[' {
		var vs []infoboxValue
		if err := json.Unmarshal(raw, &vs); err != nil {
			return ""
		}
		parts := make([]string, 0, len(vs))
		for _, v := range vs {
			if len(v.V) == 0 {
				continue
			}
			parts = append(parts, scalarText(v.V))
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return scalarText(raw)
}

func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// SearchSubjects uses the legacy search endpoint.
func (api *Api) SearchSubjects(ctx context.Context, keyword string, kind *SubjectKind) ([]Subject, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	q := url.Values{}
	q.Set("responseGroup", "large")
	if kind != nil {
		q.Set("type", strconv.Itoa(int(*kind)))
	}
	var res legacySearchResponse
	err := api.doJSON(ctx, http.MethodGet, "/search/subject/"+url.PathEscape(keyword), q, nil, &res)
	if err != nil {
		return nil, err
	}
	if res.Code != nil || res.Results <= 0 {
		return []Subject{}, nil
	}
	subjects := make([]Subject, 0, len(res.List))
	for _, ls := range res.List {
		subjects = append(subjects, ls.toSubject())
	}
	return subjects, nil
}

// SearchSubjectsNext uses the v0 search endpoint.
func (api *Api) SearchSubjectsNext(ctx context.Context, keyword string, offset int, limit int) (*PagingData[Subject], error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if offset < 0 {
		offset = defaultOffset
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var res PagingData[Subject]
	err := api.doJSON(ctx, http.MethodPost, "/v0/search/subjects", q, &searchRequest{Keyword: keyword}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
