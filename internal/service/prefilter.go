package service

import (
	"strings"

	"github.com/cloo-solutions/skilldex/internal/domain"
)

// EnablementPolicy restricts which skills are visible to queries.
// A non-empty SkillIDs list wins over Categories.
type EnablementPolicy struct {
	SkillIDs   []string
	Categories []string
}

// BuildPredicate translates a policy into a prefilter predicate.
// Members are normalized the same way records are, so matches do not silently fail.
func BuildPredicate(policy EnablementPolicy) domain.Predicate {
	if ids := normalizeMembers(policy.SkillIDs, strings.TrimSpace); len(ids) > 0 {
		return domain.AnyOf(domain.FieldID, ids...)
	}
	if categories := normalizeMembers(policy.Categories, NormalizeToken); len(categories) > 0 {
		return domain.AnyOf(domain.FieldCategory, categories...)
	}
	return domain.All()
}

// Allows reports whether a record passes the policy.
func (p EnablementPolicy) Allows(r *domain.SkillRecord) bool {
	return BuildPredicate(p).Matches(r)
}

func normalizeMembers(values []string, norm func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
