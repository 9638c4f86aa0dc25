package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtor-io/bangumi-sync/models"
	"github.com/webtor-io/bangumi-sync/services/bangumi"
	ssync "github.com/webtor-io/bangumi-sync/services/sync"
)

type mockRegistry struct {
	subject  *models.Subject
	err      error
	merged   *models.Subject
	platform models.SyncPlatform
}

func (m *mockRegistry) Platforms() []models.SyncPlatform {
	return []models.SyncPlatform{models.SyncPlatformBgmTv}
}

func (m *mockRegistry) Pull(_ context.Context, p models.SyncPlatform, _ string) (*models.Subject, error) {
	m.platform = p
	return m.subject, m.err
}

func (m *mockRegistry) Merge(_ context.Context, p models.SyncPlatform, s *models.Subject, _ string) (*models.Subject, error) {
	m.platform = p
	m.merged = s
	if m.err != nil || m.subject == nil {
		return nil, m.err
	}
	s.Name = m.subject.Name
	return s, nil
}

type mockRemote struct {
	subjects []bangumi.Subject
	me       *bangumi.UserInfo
	kind     *bangumi.SubjectKind
}

func (m *mockRemote) SearchSubjects(_ context.Context, keyword string, kind *bangumi.SubjectKind) ([]bangumi.Subject, error) {
	if keyword == "" {
		return nil, bangumi.ErrEmptyKeyword
	}
	m.kind = kind
	return m.subjects, nil
}

func (m *mockRemote) GetMe(_ context.Context) (*bangumi.UserInfo, error) {
	return m.me, nil
}

type mockStore struct {
	subjects map[uuid.UUID]*models.Subject
	created  []*models.Subject
	updated  []*models.Subject
}

func (m *mockStore) Get(_ context.Context, id uuid.UUID) (*models.Subject, error) {
	return m.subjects[id], nil
}

func (m *mockStore) Create(_ context.Context, s *models.Subject) error {
	s.SubjectID = uuid.NewV4()
	m.created = append(m.created, s)
	return nil
}

func (m *mockStore) Update(_ context.Context, s *models.Subject) error {
	m.updated = append(m.updated, s)
	return nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.register(r)
	return r
}

func do(r http.Handler, method string, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Pull(t *testing.T) {
	reg := &mockRegistry{subject: &models.Subject{Name: "Bocchi"}}
	st := &mockStore{}
	r := newTestRouter(&Handler{reg: reg, remote: &mockRemote{}, store: st})

	w := do(r, http.MethodPost, "/sync/bgm_tv/328609/pull")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SyncPlatformBgmTv, reg.platform)
	require.Len(t, st.created, 1)
	var got models.Subject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Bocchi", got.Name)
	assert.Equal(t, st.created[0].SubjectID, got.SubjectID)
}

func TestHandler_PullErrors(t *testing.T) {
	cases := []struct {
		name string
		reg  *mockRegistry
		code int
	}{
		{"not found", &mockRegistry{}, http.StatusNotFound},
		{"invalid id", &mockRegistry{err: errors.Wrap(ssync.ErrInvalidPlatformID, "x")}, http.StatusBadRequest},
		{"unknown platform", &mockRegistry{err: ssync.ErrUnknownPlatform}, http.StatusBadRequest},
		{"remote failure", &mockRegistry{err: errors.New("timeout")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &mockStore{}
			r := newTestRouter(&Handler{reg: tc.reg, remote: &mockRemote{}, store: st})
			w := do(r, http.MethodPost, "/sync/bgm_tv/1/pull")
			assert.Equal(t, tc.code, w.Code)
			assert.Empty(t, st.created)
		})
	}
}

func TestHandler_Merge(t *testing.T) {
	id := uuid.NewV4()
	existing := &models.Subject{SubjectID: id, Name: "old"}
	reg := &mockRegistry{subject: &models.Subject{Name: "new"}}
	st := &mockStore{subjects: map[uuid.UUID]*models.Subject{id: existing}}
	r := newTestRouter(&Handler{reg: reg, remote: &mockRemote{}, store: st})

	w := do(r, http.MethodPost, "/sync/BGM_TV/328609/merge?subject_id="+id.String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, existing, reg.merged)
	require.Len(t, st.updated, 1)
	assert.Equal(t, "new", st.updated[0].Name)
}

func TestHandler_MergeErrors(t *testing.T) {
	id := uuid.NewV4()
	st := &mockStore{subjects: map[uuid.UUID]*models.Subject{id: {SubjectID: id}}}
	r := newTestRouter(&Handler{reg: &mockRegistry{}, remote: &mockRemote{}, store: st})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/sync/bgm_tv/1/merge?subject_id=nope").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sync/bgm_tv/1/merge?subject_id="+uuid.NewV4().String()).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/sync/bgm_tv/1/merge?subject_id="+id.String()).Code)
	assert.Empty(t, st.updated)
}

func TestHandler_Subject(t *testing.T) {
	id := uuid.NewV4()
	st := &mockStore{subjects: map[uuid.UUID]*models.Subject{id: {SubjectID: id, Tags: []string{"音乐"}}}}
	r := newTestRouter(&Handler{reg: &mockRegistry{}, remote: &mockRemote{}, store: st})

	w := do(r, http.MethodGet, "/subjects/"+id.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "音乐")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/subjects/"+uuid.NewV4().String()).Code)
}

func TestHandler_Search(t *testing.T) {
	rm := &mockRemote{subjects: []bangumi.Subject{{ID: 1, Name: "Bocchi"}}}
	r := newTestRouter(&Handler{reg: &mockRegistry{}, remote: rm, store: &mockStore{}})

	w := do(r, http.MethodGet, "/bangumi/search?keyword=bocchi&type=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, rm.kind)
	assert.Equal(t, bangumi.SubjectKindAnime, *rm.kind)
	assert.Contains(t, w.Body.String(), "Bocchi")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/bangumi/search?keyword=").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/bangumi/search?keyword=x&type=anime").Code)
}

func TestHandler_Me(t *testing.T) {
	rm := &mockRemote{}
	r := newTestRouter(&Handler{reg: &mockRegistry{}, remote: rm, store: &mockStore{}})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/bangumi/me").Code)

	rm.me = &bangumi.UserInfo{Username: "sai"}
	w := do(r, http.MethodGet, "/bangumi/me")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sai")
}

func TestHandler_Platforms(t *testing.T) {
	r := newTestRouter(&Handler{reg: &mockRegistry{}, remote: &mockRemote{}, store: &mockStore{}})
	w := do(r, http.MethodGet, "/sync/platforms")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["BGM_TV"]`, w.Body.String())
}
