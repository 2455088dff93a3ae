package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawSkill is a parsed skill document as yielded by a skill source.
// Category, Tags and AlwaysApply keep the loosely typed frontmatter values.
type RawSkill struct {
	ID           string
	Name         string
	Description  string
	Category     any
	Tags         any
	AlwaysApply  any
	Instructions string
	SourcePath   string
	Metadata     map[string]any
}

// SkillRecord is the indexed unit.
type SkillRecord struct {
	ID           string
	Name         string
	Description  string
	Category     string
	Tags         []string
	TagsText     string
	AlwaysApply  bool
	Instructions string
	Path         string
	Metadata     json.RawMessage
	Lines        int
	Vector       []float32
}

// SearchHit is a ranked search result.
type SearchHit struct {
	Record *SkillRecord
	Score  float64
}

// SearchTier identifies which retrieval strategy produced a result set.
type SearchTier string

const (
	SearchTierVector    SearchTier = "vector"
	SearchTierText      SearchTier = "text"
	SearchTierSubstring SearchTier = "substring"
	SearchTierListing   SearchTier = "listing"
)

// Signature is a cheap fingerprint of a corpus.
type Signature string

// CorpusStat is the raw material for a Signature.
type CorpusStat struct {
	Count          int
	LatestModified time.Time
}

// NewSignature builds a signature from a corpus stat and the embedding provider id.
// Folding the provider in makes a provider switch look like a corpus change.
func NewSignature(stat CorpusStat, embedder string) Signature {
	if embedder == "" {
		embedder = "none"
	}
	return Signature(fmt.Sprintf("v1:%d:%d:%s", stat.Count, stat.LatestModified.UTC().UnixNano(), embedder))
}

// IndexState is the persisted staleness marker for one corpus root.
type IndexState struct {
	CorpusRoot string
	Signature  Signature
	BuiltAt    time.Time
	Reason     string
}

// ReindexDecision is the outcome of comparing a fresh signature against persisted state.
type ReindexDecision struct {
	Need   bool
	Reason string
}

// Reindex decision reasons.
const (
	ReasonForced       = "forced"
	ReasonSkipped      = "skipped"
	ReasonNoPriorState = "no prior state"
	ReasonChanged      = "corpus changed"
	ReasonUpToDate     = "up to date"
	ReasonIndexMissing = "index missing"
)

// Generation describes one built, atomically swapped index.
type Generation struct {
	ID          string
	CorpusRoot  string
	Table       string
	RecordCount int
	Dimensions  int
	HasVector   bool
	HasText     bool
	HasScalar   bool
	BuiltAt     time.Time
}

// BuildReport summarizes a successful rebuild.
type BuildReport struct {
	Generation *Generation
	Skipped    []string
	Warnings   []string
	Duration   time.Duration
}

// SkillFile is the content of a supporting file inside a skill directory.
type SkillFile struct {
	Path    string
	Content string
	Size    int64
}
