package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]string{"id": "pdf"})

	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pdf", data["id"])
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrUnsupportedField, http.StatusBadRequest},
		{"not found error", domain.ErrSkillNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.ErrFileNotFound), http.StatusNotFound},
		{"unauthorized error", domain.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"path traversal", domain.ErrPathTraversal, http.StatusBadRequest},
		{"file too large", domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"ambiguous", &domain.AmbiguousSkillError{ID: "xlsx", Candidates: []string{"a/xlsx", "b/xlsx"}}, http.StatusConflict},
		{"empty corpus", domain.ErrEmptyCorpus, http.StatusUnprocessableEntity},
		{"index not built", domain.ErrIndexNotBuilt, http.StatusServiceUnavailable},
		{"index build", domain.ErrBaseStoreFail, http.StatusInternalServerError},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleError(w, httptest.NewRequest(http.MethodGet, "/skills/x", nil), domain.ErrSkillNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var result ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Contains(t, result.Error, "skill not found")
	})

	t.Run("ambiguous lists candidates", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleError(w, httptest.NewRequest(http.MethodGet, "/skills/xlsx", nil), &domain.AmbiguousSkillError{ID: "xlsx", Candidates: []string{"a/xlsx", "b/xlsx"}})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "a/xlsx, b/xlsx")
	})

	t.Run("internal error is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleError(w, httptest.NewRequest(http.MethodGet, "/skills", nil), errors.New("dial tcp 10.0.0.3:5432: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func capturingRequest(t *testing.T) (*http.Request, *[]*sentry.Event) {
	t.Helper()
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	r := httptest.NewRequest(http.MethodGet, "/skills", nil)
	return r.WithContext(sentry.SetHubOnContext(r.Context(), hub)), &events
}

func TestHandleError_CapturesServerErrors(t *testing.T) {
	t.Run("internal error is reported", func(t *testing.T) {
		r, events := capturingRequest(t)
		HandleError(httptest.NewRecorder(), r, errors.New("connection refused"))
		assert.Len(t, *events, 1)
	})

	t.Run("unavailable is reported", func(t *testing.T) {
		r, events := capturingRequest(t)
		HandleError(httptest.NewRecorder(), r, domain.ErrIndexNotBuilt)
		assert.Len(t, *events, 1)
	})

	t.Run("client errors are not reported", func(t *testing.T) {
		r, events := capturingRequest(t)
		HandleError(httptest.NewRecorder(), r, domain.ErrSkillNotFound)
		assert.Empty(t, *events)
	})
}
