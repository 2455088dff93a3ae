package domain

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	SkillLineThreshold   = 200
	NameMaxLength        = 64
	DescriptionMaxLength = 1024
)

var (
	namePattern   = regexp.MustCompile(`^[a-z0-9-]+$`)
	xmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	reservedWords = []string{"anthropic", "claude"}
)

// Severity grades a lint issue.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is a single lint finding.
type ValidationIssue struct {
	Severity Severity
	Field    string
	Message  string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationResult groups the issues found for one skill.
type ValidationResult struct {
	SkillID string
	Valid   bool
	Issues  []ValidationIssue
}

// ValidateSkill checks a record against the skill authoring rules.
func ValidateSkill(r *SkillRecord) *ValidationResult {
	result := &ValidationResult{SkillID: r.ID}
	fatal := func(field, format string, args ...any) {
		result.Issues = append(result.Issues, ValidationIssue{Severity: SeverityFatal, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if r.Name == "" {
		fatal("frontmatter.name", "missing (required)")
	}
	if r.Description == "" {
		fatal("frontmatter.description", "missing (required)")
	}

	if dir := skillDirName(r); r.Name != "" && dir != "" && r.Name != dir {
		fatal("frontmatter.name", "'%s' doesn't match directory '%s'", r.Name, dir)
	}

	if r.Lines > SkillLineThreshold {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    "SKILL.md",
			Message:  fmt.Sprintf("%d lines (recommended: <=%d)", r.Lines, SkillLineThreshold),
		})
	}

	if r.Name != "" {
		if n := utf8.RuneCountInString(r.Name); n > NameMaxLength {
			fatal("frontmatter.name", "%d chars (max: %d)", n, NameMaxLength)
		}
		if !namePattern.MatchString(r.Name) {
			fatal("frontmatter.name", "invalid chars (use a-z, 0-9, -)")
		}
		lower := strings.ToLower(r.Name)
		for _, word := range reservedWords {
			if strings.Contains(lower, word) {
				fatal("frontmatter.name", "contains reserved word '%s'", word)
				break
			}
		}
	}

	if r.Description != "" {
		if n := utf8.RuneCountInString(r.Description); n > DescriptionMaxLength {
			fatal("frontmatter.description", "%d chars (max: %d)", n, DescriptionMaxLength)
		}
		if xmlTagPattern.MatchString(r.Description) {
			fatal("frontmatter.description", "contains <xml> tags")
		}
	}

	result.Valid = true
	for _, issue := range result.Issues {
		if issue.Severity == SeverityFatal {
			result.Valid = false
			break
		}
	}
	return result
}

func skillDirName(r *SkillRecord) string {
	if r.Path != "" {
		p := strings.TrimRight(strings.ReplaceAll(r.Path, "\\", "/"), "/")
		return path.Base(p)
	}
	if r.ID != "" {
		return path.Base(r.ID)
	}
	return ""
}
