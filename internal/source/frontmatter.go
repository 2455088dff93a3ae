// Package source reads skill documents from a local directory tree or an S3 bucket.
package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"gopkg.in/yaml.v3"
)

// SkillFileName is the document that marks a directory as a skill.
const SkillFileName = "SKILL.md"

const frontmatterDelimiter = "---"

// ParseSkillMarkdown splits a SKILL.md into its YAML frontmatter and markdown body.
// A document without frontmatter yields an empty map and the whole content as body.
func ParseSkillMarkdown(content []byte) (map[string]any, string, error) {
	s := strings.TrimPrefix(string(content), "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	if !strings.HasPrefix(s, frontmatterDelimiter+"\n") {
		return map[string]any{}, s, nil
	}
	rest := s[len(frontmatterDelimiter)+1:]

	var fmText, body string
	if strings.HasPrefix(rest, frontmatterDelimiter) {
		body = rest[len(frontmatterDelimiter):]
	} else {
		end := strings.Index(rest, "\n"+frontmatterDelimiter)
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated frontmatter")
		}
		fmText = rest[:end]
		body = rest[end+1+len(frontmatterDelimiter):]
	}
	body = strings.TrimPrefix(body, "\n")

	fm := map[string]any{}
	if strings.TrimSpace(fmText) != "" {
		if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
			return nil, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
		if fm == nil {
			fm = map[string]any{}
		}
	}
	return fm, body, nil
}

// NewRawSkill builds a raw skill from a SKILL.md found in skillDir (slash separated,
// relative to the source root). The id is the directory path; fallback names the
// skill when the document sits at the root.
func NewRawSkill(skillDir, fallback string, content []byte) (*domain.RawSkill, error) {
	fm, body, err := ParseSkillMarkdown(content)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed "+path.Join(skillDir, SkillFileName), err)
	}

	id := skillDir
	if id == "" {
		id = fallback
	}

	name, _ := fm["name"].(string)
	description, _ := fm["description"].(string)

	return &domain.RawSkill{
		ID:           id,
		Name:         name,
		Description:  description,
		Category:     field(fm, "category"),
		Tags:         field(fm, "tags"),
		AlwaysApply:  alwaysApply(fm),
		Instructions: body,
		SourcePath:   skillDir,
		Metadata:     fm,
	}, nil
}

// field reads key from the top level, falling back to the nested metadata map.
func field(fm map[string]any, key string) any {
	if v, ok := fm[key]; ok {
		return v
	}
	if meta, ok := fm["metadata"].(map[string]any); ok {
		return meta[key]
	}
	return nil
}

func alwaysApply(fm map[string]any) any {
	if v := field(fm, "always_apply"); v != nil {
		return v
	}
	return field(fm, "alwaysApply")
}

// cleanRelPath validates a file path relative to a skill directory.
func cleanRelPath(relPath string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	if p == "" {
		return "", domain.ErrFileNotFound
	}
	if strings.HasPrefix(p, "/") || (len(p) > 1 && p[1] == ':') {
		return "", domain.ErrPathTraversal
	}

	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", domain.ErrPathTraversal
	}
	if clean == "." {
		return "", domain.ErrFileNotFound
	}
	return clean, nil
}
