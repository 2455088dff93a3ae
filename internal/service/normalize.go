package service

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/domain"
)

// NormalizeToken trims, collapses internal whitespace and lower-cases a category or tag.
func NormalizeToken(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// NormalizeSkill turns a raw skill document into a canonical record.
// Missing optional fields default to empty; malformed category or tags yield ErrMalformedSkill.
func NormalizeSkill(raw *domain.RawSkill) (*domain.SkillRecord, error) {
	if raw == nil {
		return nil, domain.ErrMalformedSkill
	}

	id := strings.TrimSpace(raw.ID)
	name := strings.TrimSpace(raw.Name)
	if name == "" && id != "" {
		name = path.Base(id)
	}
	if id == "" {
		id = name
	}
	if id == "" {
		return nil, domain.ErrMissingSkillName
	}

	category, err := scalarString(raw.Category)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed category for "+id, err)
	}

	tags, err := normalizeTags(raw.Tags)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed tags for "+id, err)
	}

	alwaysApply, _ := raw.AlwaysApply.(bool)

	metadata, err := json.Marshal(raw.Metadata)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "unserializable metadata for "+id, err)
	}

	return &domain.SkillRecord{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(raw.Description),
		Category:     NormalizeToken(category),
		Tags:         tags,
		TagsText:     strings.Join(tags, " "),
		AlwaysApply:  alwaysApply,
		Instructions: raw.Instructions,
		Path:         raw.SourcePath,
		Metadata:     metadata,
		Lines:        countLines(raw.Instructions),
	}, nil
}

// EmbeddingText is the text embedded for a record: name, description, category and tags in that order.
func EmbeddingText(r *domain.SkillRecord) string {
	return strings.Join([]string{r.Name, r.Description, r.Category, strings.Join(r.Tags, " ")}, " ")
}

func normalizeTags(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		if tag := NormalizeToken(v); tag != "" {
			return []string{tag}, nil
		}
		return []string{}, nil
	case []string:
		out := make([]string, 0, len(v))
		for _, t := range v {
			if tag := NormalizeToken(t); tag != "" {
				out = append(out, tag)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			if tag := NormalizeToken(s); tag != "" {
				out = append(out, tag)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tags value of type %T", value)
	}
}

func scalarString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", value)
	}
}

func countLines(body string) int {
	if body == "" {
		return 0
	}
	n := strings.Count(body, "\n")
	if !strings.HasSuffix(body, "\n") {
		n++
	}
	return n
}
