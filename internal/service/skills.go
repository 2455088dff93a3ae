package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
)

const (
	defaultListLimit    = 100
	defaultMaxFileBytes = 1 << 20
	nameLookupLimit     = 16
)

// SkillService is the read surface shared by the HTTP API, MCP tools and CLI.
type SkillService struct {
	index        SkillIndexInterface
	source       SkillSourceInterface
	search       *SearchEngine
	policy       EnablementPolicy
	maxFileBytes int64
}

// NewSkillService creates a skill service.
func NewSkillService(index SkillIndexInterface, source SkillSourceInterface, search *SearchEngine, policy EnablementPolicy, maxFileBytes int64) *SkillService {
	if maxFileBytes <= 0 {
		maxFileBytes = defaultMaxFileBytes
	}
	return &SkillService{
		index:        index,
		source:       source,
		search:       search,
		policy:       policy,
		maxFileBytes: maxFileBytes,
	}
}

// Search runs a hybrid search over enabled skills.
func (s *SkillService) Search(ctx context.Context, query string, limit int) *SearchOutput {
	return s.search.Search(ctx, query, limit)
}

// GetByID resolves an exact id, falling back to a unique name match for bare identifiers.
// Skills outside the enablement policy are reported as not found.
func (s *SkillService) GetByID(ctx context.Context, id string) (*domain.SkillRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.GetByID", telemetry.SpanAttributes{
		SkillID:   id,
		Operation: "get_skill",
	})
	defer span.End()

	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" {
		return nil, domain.ErrSkillNotFound
	}

	record, err := s.index.LookupByID(ctx, id)
	if err == nil {
		if !s.policy.Allows(record) {
			return nil, domain.ErrSkillNotFound
		}
		return record, nil
	}
	if !errors.Is(err, domain.ErrSkillNotFound) {
		return nil, err
	}
	if strings.Contains(id, "/") {
		return nil, domain.ErrSkillNotFound
	}

	matches, err := s.index.LookupByName(ctx, id, nameLookupLimit)
	if err != nil {
		return nil, err
	}

	enabled := make([]*domain.SkillRecord, 0, len(matches))
	for _, m := range matches {
		if s.policy.Allows(m) {
			enabled = append(enabled, m)
		}
	}

	switch len(enabled) {
	case 0:
		return nil, domain.ErrSkillNotFound
	case 1:
		return enabled[0], nil
	default:
		candidates := make([]string, 0, len(enabled))
		for _, m := range enabled {
			candidates = append(candidates, m.ID)
		}
		sort.Strings(candidates)
		return nil, &domain.AmbiguousSkillError{ID: id, Candidates: candidates}
	}
}

// ListAll returns every indexed skill regardless of enablement.
func (s *SkillService) ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.index.ListAll(ctx, limit)
}

// GetAlwaysApply returns enabled skills flagged always_apply.
func (s *SkillService) GetAlwaysApply(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.index.ListAlwaysApply(ctx, BuildPredicate(s.policy), limit)
}

// ReadFile returns a supporting file from inside the skill's directory.
func (s *SkillService) ReadFile(ctx context.Context, id, relPath string) (*domain.SkillFile, error) {
	ctx, span := telemetry.StartSpan(ctx, "SkillService.ReadFile", telemetry.SpanAttributes{
		SkillID:   id,
		Operation: "read_skill_file",
	})
	defer span.End()

	if strings.TrimSpace(relPath) == "" {
		return nil, domain.ErrFileNotFound
	}

	record, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.source.ReadFile(ctx, record.Path, relPath, s.maxFileBytes)
}

// Location returns where the skill directory lives in the source, e.g. an
// absolute filesystem path or an s3:// URL.
func (s *SkillService) Location(record *domain.SkillRecord) string {
	root := strings.TrimRight(s.source.Root(), "/")
	if record.Path == "" {
		return root
	}
	return root + "/" + record.Path
}

// LintReport aggregates validation results over the indexed corpus.
type LintReport struct {
	Checked  int
	Fatal    int
	Warnings int
	Results  []*domain.ValidationResult
}

// HasFatal reports whether any skill failed a fatal check.
func (r *LintReport) HasFatal() bool {
	return r.Fatal > 0
}

// Lint validates every indexed skill.
func (s *SkillService) Lint(ctx context.Context) (*LintReport, error) {
	records, err := s.index.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	return LintRecords(records), nil
}

// LintRecords validates records. Only skills with issues are kept in Results.
func LintRecords(records []*domain.SkillRecord) *LintReport {
	report := &LintReport{Checked: len(records)}
	for _, r := range records {
		result := domain.ValidateSkill(r)
		if len(result.Issues) == 0 {
			continue
		}
		for _, issue := range result.Issues {
			if issue.Severity == domain.SeverityFatal {
				report.Fatal++
			} else {
				report.Warnings++
			}
		}
		report.Results = append(report.Results, result)
	}
	return report
}
