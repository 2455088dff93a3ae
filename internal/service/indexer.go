package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultEmbedConcurrency = 4

// SkillIndexInterface is the index store: one active generation of skill records
// with full-text, vector and scalar indexes.
type SkillIndexInterface interface {
	Rebuild(ctx context.Context, records []*domain.SkillRecord) (*domain.BuildReport, error)
	Active(ctx context.Context) (*domain.Generation, error)
	LookupByID(ctx context.Context, id string) (*domain.SkillRecord, error)
	LookupByName(ctx context.Context, name string, limit int) ([]*domain.SkillRecord, error)
	ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error)
	ListWhere(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error)
	ListAlwaysApply(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error)
	SearchVector(ctx context.Context, vector []float32, predicate domain.Predicate, limit int) ([]*domain.SearchHit, error)
	SearchText(ctx context.Context, query string, predicate domain.Predicate, limit int) ([]*domain.SearchHit, error)
	Scan(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error)
}

// SkillSourceInterface yields raw skill documents and serves their supporting files.
type SkillSourceInterface interface {
	CorpusStatter
	Load(ctx context.Context) ([]*domain.RawSkill, error)
	ReadFile(ctx context.Context, skillPath, relPath string, maxBytes int64) (*domain.SkillFile, error)
}

// Indexer builds a new index generation from the skill source.
type Indexer struct {
	source      SkillSourceInterface
	index       SkillIndexInterface
	embedder    EmbeddingClient
	concurrency int
	metrics     *telemetry.Metrics
}

// NewIndexer creates an indexer. embedder may be nil, in which case no vectors are stored.
func NewIndexer(source SkillSourceInterface, index SkillIndexInterface, embedder EmbeddingClient, concurrency int, metrics *telemetry.Metrics) *Indexer {
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}
	return &Indexer{
		source:      source,
		index:       index,
		embedder:    embedder,
		concurrency: concurrency,
		metrics:     metrics,
	}
}

// Rebuild loads, normalizes and embeds every skill, then swaps in a fresh generation.
// Embedding failures abort before the index store is touched.
func (ix *Indexer) Rebuild(ctx context.Context) (*domain.BuildReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "Indexer.Rebuild", telemetry.SpanAttributes{
		CorpusRoot: ix.source.Root(),
		Operation:  "rebuild",
	})
	defer span.End()

	start := time.Now()
	report, err := ix.rebuild(ctx)
	ix.metrics.ObserveRebuild(rebuildResult(err), time.Since(start))
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyCorpus) {
			span.SetError(err)
		}
		return nil, err
	}

	report.Duration = time.Since(start)
	ix.metrics.SetIndexedSkills(report.Generation.RecordCount)
	return report, nil
}

func (ix *Indexer) rebuild(ctx context.Context) (*domain.BuildReport, error) {
	raws, err := ix.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills from %s: %w", ix.source.Root(), err)
	}

	records, skipped := normalizeAll(raws)
	if len(records) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	if ix.embedder != nil {
		if err := ix.embedAll(ctx, records); err != nil {
			return nil, err
		}
	}

	report, err := ix.index.Rebuild(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Skipped = append(report.Skipped, skipped...)
	return report, nil
}

// normalizeAll skips malformed documents and duplicate ids with a warning.
func normalizeAll(raws []*domain.RawSkill) ([]*domain.SkillRecord, []string) {
	records := make([]*domain.SkillRecord, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	var skipped []string

	for _, raw := range raws {
		record, err := NormalizeSkill(raw)
		if err != nil {
			source := ""
			if raw != nil {
				source = raw.SourcePath
			}
			logrus.WithError(err).WithField("path", source).Warn("skipping malformed skill")
			skipped = append(skipped, source)
			continue
		}
		if _, dup := seen[record.ID]; dup {
			logrus.WithFields(logrus.Fields{"id": record.ID, "path": record.Path}).Warn("skipping duplicate skill id")
			skipped = append(skipped, record.Path)
			continue
		}
		seen[record.ID] = struct{}{}
		records = append(records, record)
	}
	return records, skipped
}

func (ix *Indexer) embedAll(ctx context.Context, records []*domain.SkillRecord) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(ix.concurrency)

	var done atomic.Int64
	total := len(records)
	for _, record := range records {
		eg.Go(func() error {
			vector, err := ix.embedder.GenerateEmbedding(ctx, EmbeddingText(record))
			if err != nil {
				return domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild, "failed to embed skill "+record.ID, err)
			}
			record.Vector = vector

			if n := int(done.Add(1)); n == total || n%50 == 0 {
				logrus.WithFields(logrus.Fields{"done": n, "total": total}).Info("embedded skills")
			}
			return nil
		})
	}
	return eg.Wait()
}

func rebuildResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEmptyCorpus):
		return "empty"
	default:
		return "error"
	}
}
