package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newIndexRouter(h *IndexHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/index/status", h.Status)
	r.Post("/index/rebuild", h.Rebuild)
	return r
}

func TestIndexHandler_Status(t *testing.T) {
	builtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockSvc := new(MockIndexService)
	mockSvc.On("Status", mock.Anything).Return(&service.IndexStatus{
		CorpusRoot: "/srv/skills",
		Signature:  "3:1700000000:none",
		State:      &domain.IndexState{Signature: "2:1600000000:none", BuiltAt: builtAt},
		Generation: &domain.Generation{ID: "g1", Table: "skill_gen_abc", RecordCount: 2, HasText: true, BuiltAt: builtAt},
		Decision:   domain.ReindexDecision{Need: true, Reason: domain.ReasonChanged},
	}, nil)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp IndexStatusResponse
	decodeData(t, w.Body.Bytes(), &resp)
	assert.True(t, resp.NeedsReindex)
	assert.Equal(t, domain.ReasonChanged, resp.Reason)
	assert.Equal(t, "2:1600000000:none", resp.StoredSig)
	assert.Equal(t, "2026-03-01T12:00:00Z", resp.LastBuiltAt)
	require.NotNil(t, resp.Generation)
	assert.Equal(t, 2, resp.Generation.RecordCount)
}

func TestIndexHandler_Status_NeverBuilt(t *testing.T) {
	mockSvc := new(MockIndexService)
	mockSvc.On("Status", mock.Anything).Return(&service.IndexStatus{
		CorpusRoot: "/srv/skills",
		Decision:   domain.ReindexDecision{Need: true, Reason: domain.ReasonNoPriorState},
	}, nil)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"generation"`)
	assert.NotContains(t, w.Body.String(), `"last_built_at"`)
}

func TestIndexHandler_Rebuild(t *testing.T) {
	mockSvc := new(MockIndexService)
	mockSvc.On("Ensure", mock.Anything, service.ReindexOptions{Force: true}).Return(&service.EnsureResult{
		Signature: "3:1700000000:none",
		Decision:  domain.ReindexDecision{Need: true, Reason: domain.ReasonForced},
		Report: &domain.BuildReport{
			Generation: &domain.Generation{ID: "g2", RecordCount: 3},
			Skipped:    []string{"broken/SKILL.md"},
			Duration:   1500 * time.Millisecond,
		},
	}, nil)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", bytes.NewReader([]byte(`{"force":true}`))))

	require.Equal(t, http.StatusOK, w.Code)
	var resp RebuildResponse
	decodeData(t, w.Body.Bytes(), &resp)
	assert.True(t, resp.Rebuilt)
	assert.Equal(t, domain.ReasonForced, resp.Reason)
	assert.Equal(t, []string{"broken/SKILL.md"}, resp.Skipped)
	assert.Equal(t, []string{}, resp.Warnings)
	assert.Equal(t, int64(1500), resp.DurationMS)
}

func TestIndexHandler_Rebuild_EmptyBodyIsNotForced(t *testing.T) {
	mockSvc := new(MockIndexService)
	mockSvc.On("Ensure", mock.Anything, service.ReindexOptions{}).Return(&service.EnsureResult{
		Decision: domain.ReindexDecision{Reason: domain.ReasonUpToDate},
	}, nil)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp RebuildResponse
	decodeData(t, w.Body.Bytes(), &resp)
	assert.False(t, resp.Rebuilt)
	assert.Equal(t, domain.ReasonUpToDate, resp.Reason)
}

func TestIndexHandler_Rebuild_EmptyCorpus(t *testing.T) {
	mockSvc := new(MockIndexService)
	mockSvc.On("Ensure", mock.Anything, service.ReindexOptions{}).Return(nil, domain.ErrEmptyCorpus)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no skills found")
}

func TestIndexHandler_Rebuild_InvalidBody(t *testing.T) {
	mockSvc := new(MockIndexService)

	w := httptest.NewRecorder()
	newIndexRouter(NewIndexHandler(mockSvc)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/index/rebuild", bytes.NewReader([]byte(`{"force":`))))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}
