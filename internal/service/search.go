package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	defaultSearchLimit        = 10
	maxSearchLimit            = 100
	defaultSearchThreshold    = 0.35
	defaultEmbedTimeout       = 5 * time.Second
	fetchMultiplier           = 4
	substringScanMultiplier   = 3
	substringScore            = 0.1
	minCandidatesForThreshold = 6
)

// SearchConfig controls ranking behavior.
type SearchConfig struct {
	DefaultLimit int
	Threshold    float64 // minimum score ratio to the top hit
	EmbedTimeout time.Duration
}

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit: defaultSearchLimit,
		Threshold:    defaultSearchThreshold,
		EmbedTimeout: defaultEmbedTimeout,
	}
}

// SearchOutput is a ranked result list plus the tier that produced it.
type SearchOutput struct {
	Hits []*domain.SearchHit
	Tier domain.SearchTier
}

// SearchEngine runs hybrid retrieval: vector, then full-text, then substring.
type SearchEngine struct {
	index    SkillIndexInterface
	embedder EmbeddingClient
	policy   EnablementPolicy
	cfg      SearchConfig
	metrics  *telemetry.Metrics
}

// NewSearchEngine creates a search engine. embedder may be nil when embeddings are disabled.
func NewSearchEngine(index SkillIndexInterface, embedder EmbeddingClient, policy EnablementPolicy, cfg SearchConfig, metrics *telemetry.Metrics) *SearchEngine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultSearchLimit
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = defaultEmbedTimeout
	}
	return &SearchEngine{
		index:    index,
		embedder: embedder,
		policy:   policy,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// Search returns ranked hits for query. It never fails: unavailable tiers degrade
// to the next one and total failure yields an empty list.
func (e *SearchEngine) Search(ctx context.Context, query string, limit int) *SearchOutput {
	ctx, span := telemetry.StartSpan(ctx, "SearchEngine.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	limit = min(limit, maxSearchLimit)
	q := strings.Join(strings.Fields(query), " ")
	fetchLimit := limit * fetchMultiplier
	predicate := BuildPredicate(e.policy)

	if q == "" || q == "*" {
		span.SetAttributes(telemetry.SpanAttributes{Tier: string(domain.SearchTierListing)})
		return e.listEnabled(ctx, predicate, limit)
	}

	hits, tier := e.retrieve(ctx, q, predicate, fetchLimit)
	span.SetAttributes(telemetry.SpanAttributes{Tier: string(tier)})
	e.metrics.ObserveSearch(string(tier), len(hits))

	return &SearchOutput{
		Hits: rankAndCut(hits, limit, e.cfg.Threshold),
		Tier: tier,
	}
}

func (e *SearchEngine) retrieve(ctx context.Context, q string, predicate domain.Predicate, fetchLimit int) ([]*domain.SearchHit, domain.SearchTier) {
	if e.embedder != nil {
		hits, err := e.searchVector(ctx, q, predicate, fetchLimit)
		if err == nil {
			return hits, domain.SearchTierVector
		}
		e.degrade(ctx, domain.SearchTierVector, domain.SearchTierText, err)
	}

	hits, err := e.index.SearchText(ctx, q, predicate, fetchLimit)
	if err == nil {
		return hits, domain.SearchTierText
	}
	e.degrade(ctx, domain.SearchTierText, domain.SearchTierSubstring, err)

	hits, err = e.searchSubstring(ctx, q, predicate, fetchLimit)
	if err != nil {
		logrus.WithError(err).WithField("query", q).Warn("substring fallback failed, returning no results")
		return []*domain.SearchHit{}, domain.SearchTierSubstring
	}
	return hits, domain.SearchTierSubstring
}

func (e *SearchEngine) searchVector(ctx context.Context, q string, predicate domain.Predicate, fetchLimit int) ([]*domain.SearchHit, error) {
	embedCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	vector, err := e.embedder.GenerateEmbedding(embedCtx, q)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, domain.ErrVectorSearchUnavailable
	}
	return e.index.SearchVector(ctx, vector, predicate, fetchLimit)
}

func (e *SearchEngine) searchSubstring(ctx context.Context, q string, predicate domain.Predicate, fetchLimit int) ([]*domain.SearchHit, error) {
	rows, err := e.index.Scan(ctx, predicate, fetchLimit*substringScanMultiplier)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q)
	hits := make([]*domain.SearchHit, 0, min(len(rows), fetchLimit))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), needle) || strings.Contains(strings.ToLower(r.Description), needle) {
			hits = append(hits, &domain.SearchHit{Record: r, Score: substringScore})
			if len(hits) >= fetchLimit {
				break
			}
		}
	}
	return hits, nil
}

func (e *SearchEngine) listEnabled(ctx context.Context, predicate domain.Predicate, limit int) *SearchOutput {
	records, err := e.index.ListWhere(ctx, predicate, limit)
	if err != nil {
		logrus.WithError(err).Warn("listing enabled skills failed, returning no results")
		records = nil
	}
	hits := make([]*domain.SearchHit, 0, len(records))
	for _, r := range records {
		hits = append(hits, &domain.SearchHit{Record: r, Score: 0})
	}
	e.metrics.ObserveSearch(string(domain.SearchTierListing), len(hits))
	return &SearchOutput{Hits: hits, Tier: domain.SearchTierListing}
}

func (e *SearchEngine) degrade(ctx context.Context, from, to domain.SearchTier, err error) {
	e.metrics.ObserveDegradation(string(from), string(to))

	entry := logrus.WithFields(logrus.Fields{"from": from, "to": to}).WithError(err)
	if errors.Is(err, domain.ErrIndexNotBuilt) || errors.Is(err, domain.ErrVectorSearchUnavailable) || errors.Is(err, domain.ErrTextSearchUnavailable) {
		entry.Debug("search tier unavailable")
		return
	}
	entry.Warn("search tier failed")
	telemetry.AddBreadcrumb(ctx, "search", "degraded from "+string(from)+" to "+string(to))
}

// rankAndCut sorts hits by score (stable) and applies the relative-score cutoff.
func rankAndCut(hits []*domain.SearchHit, limit int, threshold float64) []*domain.SearchHit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) < minCandidatesForThreshold {
		return truncate(hits, limit)
	}

	top := hits[0].Score
	if top <= 0 {
		return truncate(hits, limit)
	}

	cut := len(hits)
	for i, h := range hits {
		if h.Score/top < threshold {
			cut = i
			break
		}
	}
	return truncate(hits[:cut], limit)
}

func truncate(hits []*domain.SearchHit, limit int) []*domain.SearchHit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
