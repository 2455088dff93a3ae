package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/skilldex/internal/api"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
)

type IndexService interface {
	Ensure(ctx context.Context, opts service.ReindexOptions) (*service.EnsureResult, error)
	Status(ctx context.Context) (*service.IndexStatus, error)
}

type IndexHandler struct {
	svc IndexService
}

func NewIndexHandler(svc IndexService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

type RebuildRequest struct {
	Force bool `json:"force"`
}

type GenerationResponse struct {
	ID          string `json:"id"`
	Table       string `json:"table"`
	RecordCount int    `json:"record_count"`
	Dimensions  int    `json:"dimensions"`
	HasVector   bool   `json:"has_vector"`
	HasText     bool   `json:"has_text"`
	HasScalar   bool   `json:"has_scalar"`
	BuiltAt     string `json:"built_at"`
}

type IndexStatusResponse struct {
	CorpusRoot   string              `json:"corpus_root"`
	Signature    string              `json:"signature"`
	StoredSig    string              `json:"stored_signature,omitempty"`
	LastBuiltAt  string              `json:"last_built_at,omitempty"`
	NeedsReindex bool                `json:"needs_reindex"`
	Reason       string              `json:"reason"`
	Generation   *GenerationResponse `json:"generation,omitempty"`
}

type RebuildResponse struct {
	Rebuilt    bool                `json:"rebuilt"`
	Reason     string              `json:"reason"`
	Signature  string              `json:"signature"`
	Generation *GenerationResponse `json:"generation,omitempty"`
	Skipped    []string            `json:"skipped"`
	Warnings   []string            `json:"warnings"`
	DurationMS int64               `json:"duration_ms"`
}

func generationToResponse(g *domain.Generation) *GenerationResponse {
	if g == nil {
		return nil
	}
	return &GenerationResponse{
		ID:          g.ID,
		Table:       g.Table,
		RecordCount: g.RecordCount,
		Dimensions:  g.Dimensions,
		HasVector:   g.HasVector,
		HasText:     g.HasText,
		HasScalar:   g.HasScalar,
		BuiltAt:     g.BuiltAt.UTC().Format(time.RFC3339),
	}
}

func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := &IndexStatusResponse{
		CorpusRoot:   status.CorpusRoot,
		Signature:    string(status.Signature),
		NeedsReindex: status.Decision.Need,
		Reason:       status.Decision.Reason,
		Generation:   generationToResponse(status.Generation),
	}
	if status.State != nil {
		resp.StoredSig = string(status.State.Signature)
		resp.LastBuiltAt = status.State.BuiltAt.UTC().Format(time.RFC3339)
	}

	api.Success(w, http.StatusOK, resp)
}

// Rebuild runs synchronously; an empty body means a non-forced ensure.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Ensure(r.Context(), service.ReindexOptions{Force: req.Force})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := &RebuildResponse{
		Rebuilt:   result.Report != nil,
		Reason:    result.Decision.Reason,
		Signature: string(result.Signature),
		Skipped:   []string{},
		Warnings:  []string{},
	}
	if report := result.Report; report != nil {
		resp.Generation = generationToResponse(report.Generation)
		resp.DurationMS = report.Duration.Milliseconds()
		if report.Skipped != nil {
			resp.Skipped = report.Skipped
		}
		if report.Warnings != nil {
			resp.Warnings = report.Warnings
		}
	}

	api.Success(w, http.StatusOK, resp)
}
