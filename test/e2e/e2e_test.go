//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchResult struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Tier    string         `json:"tier"`
}

func TestE2E_HealthAndAuth(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health is public", func(t *testing.T) {
		resp, err := env.doRequest(http.MethodGet, "/health", nil, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := env.doRequest(http.MethodGet, "/skills", nil, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "missing authorization header", resp.Error)
	})

	t.Run("wrong token", func(t *testing.T) {
		resp, err := env.doRequest(http.MethodGet, "/skills", nil, "nope")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestE2E_SearchAndLoad(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("full-text search without embeddings", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]any{"query": "spreadsheets formulas"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out searchResponse
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, "text", out.Tier)
		require.NotEmpty(t, out.Results)
		assert.Equal(t, "office/xlsx", out.Results[0].ID)
	})

	t.Run("empty query lists skills", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]any{})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out searchResponse
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, "listing", out.Tier)
		assert.Len(t, out.Results, 3)
	})

	t.Run("get skill by nested id", func(t *testing.T) {
		resp, err := env.Get("/skills/office/xlsx")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var skill struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Instructions string `json:"instructions"`
		}
		require.NoError(t, resp.Decode(&skill))
		assert.Equal(t, "xlsx", skill.Name)
		assert.Contains(t, skill.Instructions, "openpyxl")
	})

	t.Run("unknown skill", func(t *testing.T) {
		resp, err := env.Get("/skills/nope")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("core skills", func(t *testing.T) {
		resp, err := env.Get("/skills/core")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var out struct {
			Skills []struct {
				ID string `json:"id"`
			} `json:"skills"`
		}
		require.NoError(t, resp.Decode(&out))
		require.Len(t, out.Skills, 1)
		assert.Equal(t, "style", out.Skills[0].ID)
	})

	t.Run("read supporting file", func(t *testing.T) {
		resp, err := env.Post("/skills/read-file", map[string]string{"id": "pdf", "path": "reference.md"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var file struct {
			Content string `json:"content"`
		}
		require.NoError(t, resp.Decode(&file))
		assert.Contains(t, file.Content, "pdftk")
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		resp, err := env.Post("/skills/read-file", map[string]string{"id": "pdf", "path": "../style/SKILL.md"})
		require.NoError(t, err)
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})
}

func TestE2E_IndexLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var status struct {
		NeedsReindex bool   `json:"needs_reindex"`
		Reason       string `json:"reason"`
		Generation   *struct {
			RecordCount int `json:"record_count"`
		} `json:"generation"`
	}

	resp, err := env.Get("/index/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)
	require.NoError(t, resp.Decode(&status))
	assert.False(t, status.NeedsReindex)
	require.NotNil(t, status.Generation)
	assert.Equal(t, 3, status.Generation.RecordCount)

	env.WriteSkill("git", `---
name: git
description: Rebase branches and resolve merge conflicts
---
Use git rebase --onto.
`)

	resp, err = env.Get("/index/status")
	require.NoError(t, err)
	require.NoError(t, resp.Decode(&status))
	assert.True(t, status.NeedsReindex)
	assert.Equal(t, "corpus changed", status.Reason)

	resp, err = env.Post("/index/rebuild", map[string]bool{"force": false})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

	var rebuild struct {
		Rebuilt    bool `json:"rebuilt"`
		Generation *struct {
			RecordCount int `json:"record_count"`
		} `json:"generation"`
	}
	require.NoError(t, resp.Decode(&rebuild))
	assert.True(t, rebuild.Rebuilt)
	require.NotNil(t, rebuild.Generation)
	assert.Equal(t, 4, rebuild.Generation.RecordCount)

	resp, err = env.Post("/search", map[string]any{"query": "merge conflicts"})
	require.NoError(t, err)
	var out searchResponse
	require.NoError(t, resp.Decode(&out))
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "git", out.Results[0].ID)

	t.Run("second rebuild is a no-op", func(t *testing.T) {
		resp, err := env.Post("/index/rebuild", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, resp.Error)

		var again struct {
			Rebuilt bool   `json:"rebuilt"`
			Reason  string `json:"reason"`
		}
		require.NoError(t, resp.Decode(&again))
		assert.False(t, again.Rebuilt)
		assert.Equal(t, "up to date", again.Reason)
	})
}

func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	t.Run("search", func(t *testing.T) {
		out, err := env.RunSkilldex("search", "pdf", "tables")
		require.NoError(t, err, out)
		assert.Contains(t, out, "pdf")
	})

	t.Run("search json", func(t *testing.T) {
		out, err := env.RunSkilldex("search", "spreadsheets", "--output")
		require.NoError(t, err, out)

		var resp searchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "office/xlsx", resp.Results[0].ID)
	})

	t.Run("show", func(t *testing.T) {
		out, err := env.RunSkilldex("show", "pdf")
		require.NoError(t, err, out)
		assert.Contains(t, out, "pdftotext")
	})

	t.Run("show file", func(t *testing.T) {
		out, err := env.RunSkilldex("show", "pdf", "--file", "reference.md")
		require.NoError(t, err, out)
		assert.Contains(t, out, "pdftk")
	})

	t.Run("list", func(t *testing.T) {
		out, err := env.RunSkilldex("list")
		require.NoError(t, err, out)
		for _, id := range []string{"pdf", "office/xlsx", "style"} {
			assert.True(t, strings.Contains(out, id), "missing %s in %s", id, out)
		}
	})

	t.Run("unknown skill exits non-zero", func(t *testing.T) {
		out, err := env.RunSkilldex("show", "missing")
		require.Error(t, err)
		assert.Contains(t, strings.ToLower(out), "not found")
	})
}
