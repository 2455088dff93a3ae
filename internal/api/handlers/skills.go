package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/api"
	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxListLimit = 1000

type SkillService interface {
	Search(ctx context.Context, query string, limit int) *service.SearchOutput
	GetByID(ctx context.Context, id string) (*domain.SkillRecord, error)
	ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error)
	GetAlwaysApply(ctx context.Context, limit int) ([]*domain.SkillRecord, error)
	ReadFile(ctx context.Context, id, relPath string) (*domain.SkillFile, error)
	Location(record *domain.SkillRecord) string
	Lint(ctx context.Context) (*service.LintReport, error)
}

type SkillHandler struct {
	svc SkillService
}

func NewSkillHandler(svc SkillService) *SkillHandler {
	return &SkillHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchResultResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
}

type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
	Tier    string                 `json:"tier"`
}

type SkillSummaryResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags"`
	AlwaysApply bool     `json:"always_apply"`
}

type SkillListResponse struct {
	Skills []SkillSummaryResponse `json:"skills"`
}

type SkillResponse struct {
	SkillSummaryResponse
	Instructions string          `json:"instructions"`
	Path         string          `json:"path"`
	Location     string          `json:"location"`
	Lines        int             `json:"lines"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

type ReadFileRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type FileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

type LintIssueResponse struct {
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

type LintResultResponse struct {
	SkillID string              `json:"skill_id"`
	Valid   bool                `json:"valid"`
	Issues  []LintIssueResponse `json:"issues"`
}

type LintResponse struct {
	Checked  int                  `json:"checked"`
	Fatal    int                  `json:"fatal"`
	Warnings int                  `json:"warnings"`
	Results  []LintResultResponse `json:"results"`
}

func summaryToResponse(r *domain.SkillRecord) SkillSummaryResponse {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return SkillSummaryResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Tags:        tags,
		AlwaysApply: r.AlwaysApply,
	}
}

func listToResponse(records []*domain.SkillRecord) *SkillListResponse {
	out := &SkillListResponse{Skills: make([]SkillSummaryResponse, 0, len(records))}
	for _, r := range records {
		out.Skills = append(out.Skills, summaryToResponse(r))
	}
	return out
}

func (h *SkillHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit < 0 {
		api.Error(w, http.StatusBadRequest, "limit must be positive")
		return
	}

	output := h.svc.Search(r.Context(), strings.TrimSpace(req.Query), req.Limit)

	resp := &SearchResponse{
		Results: make([]SearchResultResponse, 0, len(output.Hits)),
		Tier:    string(output.Tier),
	}
	for _, hit := range output.Hits {
		resp.Results = append(resp.Results, SearchResultResponse{
			ID:          hit.Record.ID,
			Name:        hit.Record.Name,
			Description: hit.Record.Description,
			Category:    hit.Record.Category,
			Score:       hit.Score,
		})
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := h.svc.ListAll(r.Context(), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, listToResponse(records))
}

func (h *SkillHandler) Core(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := h.svc.GetAlwaysApply(r.Context(), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, listToResponse(records))
}

// Get resolves the wildcard so namespaced ids like "docs/xlsx" work unescaped.
func (h *SkillHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(chi.URLParam(r, "*"), "/")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	record, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, &SkillResponse{
		SkillSummaryResponse: summaryToResponse(record),
		Instructions:         record.Instructions,
		Path:                 record.Path,
		Location:             h.svc.Location(record),
		Lines:                record.Lines,
		Metadata:             record.Metadata,
	})
}

func (h *SkillHandler) ReadFile(w http.ResponseWriter, r *http.Request) {
	var req ReadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		api.Error(w, http.StatusBadRequest, "path is required")
		return
	}

	file, err := h.svc.ReadFile(r.Context(), req.ID, req.Path)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, &FileResponse{
		Path:    file.Path,
		Content: file.Content,
		Size:    file.Size,
	})
}

func (h *SkillHandler) Lint(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Lint(r.Context())
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	resp := &LintResponse{
		Checked:  report.Checked,
		Fatal:    report.Fatal,
		Warnings: report.Warnings,
		Results:  make([]LintResultResponse, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		item := LintResultResponse{
			SkillID: result.SkillID,
			Valid:   result.Valid,
			Issues:  make([]LintIssueResponse, 0, len(result.Issues)),
		}
		for _, issue := range result.Issues {
			item.Issues = append(item.Issues, LintIssueResponse{
				Severity: string(issue.Severity),
				Field:    issue.Field,
				Message:  issue.Message,
			})
		}
		resp.Results = append(resp.Results, item)
	}

	api.Success(w, http.StatusOK, resp)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}
