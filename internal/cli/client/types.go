package client

import "encoding/json"

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type SearchResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Tier    string         `json:"tier"`
}

type SkillSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags"`
	AlwaysApply bool     `json:"always_apply"`
}

type SkillList struct {
	Skills []SkillSummary `json:"skills"`
}

type Skill struct {
	SkillSummary
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

type SkillFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

type Generation struct {
	ID          string `json:"id"`
	Table       string `json:"table"`
	RecordCount int    `json:"record_count"`
	Dimensions  int    `json:"dimensions"`
	HasVector   bool   `json:"has_vector"`
	HasText     bool   `json:"has_text"`
	HasScalar   bool   `json:"has_scalar"`
	BuiltAt     string `json:"built_at"`
}

type IndexStatus struct {
	CorpusRoot   string      `json:"corpus_root"`
	Signature    string      `json:"signature"`
	StoredSig    string      `json:"stored_signature,omitempty"`
	LastBuiltAt  string      `json:"last_built_at,omitempty"`
	NeedsReindex bool        `json:"needs_reindex"`
	Reason       string      `json:"reason"`
	Generation   *Generation `json:"generation,omitempty"`
}

type RebuildResult struct {
	Rebuilt    bool        `json:"rebuilt"`
	Reason     string      `json:"reason"`
	Signature  string      `json:"signature"`
	Generation *Generation `json:"generation,omitempty"`
	Skipped    []string    `json:"skipped"`
	Warnings   []string    `json:"warnings"`
	DurationMS int64       `json:"duration_ms"`
}
