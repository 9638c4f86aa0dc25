package bangumi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, h http.Handler) *Api {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newApi(srv.URL, "test-agent", 5*time.Second, time.Minute)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetSubject(t *testing.T) {
	var got http.Header
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/subjects/373267", r.URL.Path)
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{
			"id": 373267,
			"type": 2,
			"name": "Bocchi the Rock!",
			"name_cn": "孤独摇滚！",
			"date": "2022-10-09",
			"platform": "TV",
			"nsfw": false,
			"images": {"large": "https://lain.bgm.tv/pic/cover/l/a.jpg"},
			"tags": [{"name": "音乐", "count": 10}],
			"infobox": [
				{"key": "中文名", "value": "孤独摇滚！"},
				{"key": "别名", "value": [{"v": "Bocchi"}, {"v": "BTR"}, {"k": "x"}]}
			]
		}`))
	}))
	api.RefreshHeaders("secret")

	s, err := api.GetSubject(context.Background(), 373267)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(373267), s.ID)
	assert.Equal(t, "孤独摇滚！", s.NameCn)
	require.NotNil(t, s.Date)
	assert.Equal(t, "2022-10-09", *s.Date)
	assert.Equal(t, "中文名: 孤独摇滚！\n别名: Bocchi BTR", s.Infobox)
	assert.Equal(t, "https://lain.bgm.tv/pic/cover/l/a.jpg", s.Images.Large)

	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.Equal(t, "chii_searchDateLine=0", got.Get("Cookie"))
	assert.Equal(t, "*", got.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
}

func TestGetSubject_NotFound(t *testing.T) {
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"title": "Not Found"})
	}))

	s, err := api.GetSubject(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestGetSubject_MalformedInfobox(t *testing.T) {
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 2, "name": "x", "infobox": "not an array"}`))
	}))

	s, err := api.GetSubject(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "", s.Infobox)
}

func TestGetSubject_ServerError(t *testing.T) {
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"description": "boom"})
	}))

	_, err := api.GetSubject(context.Background(), 3)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestGetSubject_InvalidID(t *testing.T) {
	var calls atomic.Int32
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := api.GetSubject(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrInvalidID))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRefreshHeaders_ReplacesAllHeaders(t *testing.T) {
	var got http.Header
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "name": "x"})
	}))

	api.RefreshHeaders("first")
	api.RefreshHeaders("")
	_, err := api.GetSubject(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.Equal(t, "chii_searchDateLine=0", got.Get("Cookie"))
	assert.Equal(t, "test-agent", got.Get("User-Agent"))
}

func TestFindEpisodes_Defaults(t *testing.T) {
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v0/episodes", r.URL.Path)
		assert.Equal(t, "42", q.Get("subject_id"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.False(t, q.Has("type"))
		_, _ = w.Write([]byte(`{"total": 1, "limit": 100, "offset": 0, "data": [{"id": 7, "type": 0, "sort": 1, "disc": 0}]}`))
	}))

	eps, err := api.FindEpisodes(context.Background(), 42, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, int64(7), eps[0].ID)
	assert.Equal(t, Disc(""), eps[0].Disc)
}

func TestFindAllEpisodes_Pages(t *testing.T) {
	var calls atomic.Int32
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		data := []map[string]any{}
		if r.URL.Query().Get("offset") == "0" {
			for i := 0; i < 100; i++ {
				data = append(data, map[string]any{"id": i + 1, "sort": i + 1})
			}
		} else {
			data = append(data, map[string]any{"id": 101, "sort": 101})
		}
		writeJSON(w, http.StatusOK, map[string]any{"total": 101, "data": data})
	}))

	eps, err := api.FindAllEpisodes(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Len(t, eps, 101)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchSubjects(t *testing.T) {
	t.Run("blank keyword", func(t *testing.T) {
		api := newApi("http://127.0.0.1:1", "", time.Second, time.Minute)
		_, err := api.SearchSubjects(context.Background(), "  ", nil)
		assert.True(t, errors.Is(err, ErrEmptyKeyword))
	})

	t.Run("error code present", func(t *testing.T) {
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"code": 404, "error": "Not Found"})
		}))
		res, err := api.SearchSubjects(context.Background(), "nothing", nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("zero results", func(t *testing.T) {
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"results": 0, "list": []any{}})
		}))
		res, err := api.SearchSubjects(context.Background(), "nothing", nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("results with type", func(t *testing.T) {
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/subject/air", r.URL.Path)
			assert.Equal(t, "large", r.URL.Query().Get("responseGroup"))
			assert.Equal(t, "2", r.URL.Query().Get("type"))
			writeJSON(w, http.StatusOK, map[string]any{
				"results": 1,
				"list": []map[string]any{
					{"id": 1, "type": 2, "name": "AIR", "air_date": "2005-01-06"},
				},
			})
		}))
		kind := SubjectKindAnime
		res, err := api.SearchSubjects(context.Background(), "air", &kind)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "AIR", res[0].Name)
		require.NotNil(t, res[0].Date)
		assert.Equal(t, "2005-01-06", *res[0].Date)
	})
}

func TestGetMe(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		var calls atomic.Int32
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		u, err := api.GetMe(context.Background())
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("unauthorized", func(t *testing.T) {
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		api.RefreshHeaders("expired")
		u, err := api.GetMe(context.Background())
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("ok", func(t *testing.T) {
		api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": 9, "username": "sai"})
		}))
		api.RefreshHeaders("token")
		u, err := api.GetMe(context.Background())
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "sai", u.Username)
	})
}

type collectionRecorder struct {
	mu          sync.Mutex
	collections []userCollectionRequest
	puts        []int64
	putStatus   []int
	putBody     map[string]string
}

func (c *collectionRecorder) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/episodes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("type"))
		writeJSON(w, http.StatusOK, map[string]any{
			"total": 2,
			"data": []map[string]any{
				{"id": 1001, "type": 0, "sort": 1},
				{"id": 1002, "type": 0, "sort": 2},
			},
		})
	})
	mux.HandleFunc("/v0/users/-/collections/10", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body userCollectionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		c.collections = append(c.collections, body)
		c.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/v0/users/-/collections/-/episodes/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body episodeCollectionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		n := len(c.puts)
		c.puts = append(c.puts, int64(body.Type))
		status := http.StatusNoContent
		if n < len(c.putStatus) {
			status = c.putStatus[n]
		}
		c.mu.Unlock()
		if status >= 400 {
			writeJSON(w, status, c.putBody)
			return
		}
		w.WriteHeader(status)
	})
	return mux
}

func TestSetEpisodeCollectionStatus_Unmatched(t *testing.T) {
	rec := &collectionRecorder{}
	api := newTestApi(t, rec.handler(t))

	api.SetEpisodeCollectionStatus(context.Background(), 10, 5, true, false)

	assert.Empty(t, rec.puts)
	assert.Empty(t, rec.collections)
}

func TestSetEpisodeCollectionStatus_Finished(t *testing.T) {
	rec := &collectionRecorder{}
	api := newTestApi(t, rec.handler(t))

	api.SetEpisodeCollectionStatus(context.Background(), 10, 2.0, true, false)

	assert.Equal(t, []int64{int64(EpisodeCollectionTypeDone)}, rec.puts)
	assert.Empty(t, rec.collections)
}

func TestSetEpisodeCollectionStatus_CollectsFirstAndRetriesOnce(t *testing.T) {
	rec := &collectionRecorder{
		putStatus: []int{http.StatusBadRequest, http.StatusBadRequest},
		putBody: map[string]string{
			"title":       "Bad Request",
			"description": "you need to add subject to your collection first",
		},
	}
	api := newTestApi(t, rec.handler(t))

	api.SetEpisodeCollectionStatus(context.Background(), 10, 1, false, true)

	require.Len(t, rec.collections, 1)
	assert.Equal(t, SubjectCollectionTypeDoing, rec.collections[0].Type)
	assert.True(t, rec.collections[0].Private)
	assert.Len(t, rec.puts, 2)
	assert.Equal(t, int64(EpisodeCollectionTypeNot), rec.puts[1])
}

func TestSetEpisodeCollectionStatus_OtherErrorIsNotRetried(t *testing.T) {
	rec := &collectionRecorder{
		putStatus: []int{http.StatusForbidden},
		putBody:   map[string]string{"description": "forbidden"},
	}
	api := newTestApi(t, rec.handler(t))

	api.SetEpisodeCollectionStatus(context.Background(), 10, 1, true, false)

	assert.Len(t, rec.puts, 1)
	assert.Empty(t, rec.collections)
}

func TestAssertDomainReachable(t *testing.T) {
	api := newTestApi(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	assert.True(t, api.AssertDomainReachable(context.Background()))

	down := newApi("http://127.0.0.1:1", "", time.Second, time.Minute)
	assert.False(t, down.AssertDomainReachable(context.Background()))
}

func TestDisc_UnmarshalJSON(t *testing.T) {
	var e struct {
		A Disc `json:"a"`
		B Disc `json:"b"`
		C Disc `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2, "b": "1", "c": 0}`), &e))
	assert.Equal(t, Disc("2"), e.A)
	assert.Equal(t, Disc("1"), e.B)
	assert.Equal(t, Disc(""), e.C)
}
