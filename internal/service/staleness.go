package service

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
)

// IndexStateRepositoryInterface persists staleness state keyed by corpus root.
type IndexStateRepositoryInterface interface {
	Get(ctx context.Context, corpusRoot string) (*domain.IndexState, error)
	Save(ctx context.Context, state *domain.IndexState) error
}

// CorpusStatter computes the cheap corpus fingerprint input without reading document bodies.
type CorpusStatter interface {
	Root() string
	Stat(ctx context.Context) (*domain.CorpusStat, error)
}

// StalenessDetector decides whether the index must be rebuilt before serving.
// It is the only writer of IndexState.
type StalenessDetector struct {
	repo     IndexStateRepositoryInterface
	source   CorpusStatter
	embedder string
	now      func() time.Time
}

// NewStalenessDetector creates a detector. embedder is the embedding provider id folded into signatures.
func NewStalenessDetector(repo IndexStateRepositoryInterface, source CorpusStatter, embedder string) *StalenessDetector {
	return &StalenessDetector{
		repo:     repo,
		source:   source,
		embedder: embedder,
		now:      time.Now,
	}
}

// CorpusRoot returns the key under which state is persisted.
func (d *StalenessDetector) CorpusRoot() string {
	return d.source.Root()
}

// ComputeSignature fingerprints the current corpus.
func (d *StalenessDetector) ComputeSignature(ctx context.Context) (domain.Signature, error) {
	stat, err := d.source.Stat(ctx)
	if err != nil {
		return "", err
	}
	return domain.NewSignature(*stat, d.embedder), nil
}

// Load returns the persisted state, or nil when none exists.
func (d *StalenessDetector) Load(ctx context.Context) (*domain.IndexState, error) {
	state, err := d.repo.Get(ctx, d.source.Root())
	if err != nil {
		if errors.Is(err, domain.ErrIndexStateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

// Decide applies the reindex rules in precedence order.
func Decide(current domain.Signature, persisted *domain.IndexState, force, skipAuto bool) domain.ReindexDecision {
	switch {
	case force:
		return domain.ReindexDecision{Need: true, Reason: domain.ReasonForced}
	case skipAuto:
		return domain.ReindexDecision{Need: false, Reason: domain.ReasonSkipped}
	case persisted == nil:
		return domain.ReindexDecision{Need: true, Reason: domain.ReasonNoPriorState}
	case current != persisted.Signature:
		return domain.ReindexDecision{Need: true, Reason: domain.ReasonChanged}
	default:
		return domain.ReindexDecision{Need: false, Reason: domain.ReasonUpToDate}
	}
}

// Persist records a successful rebuild. Callers must not invoke it after a failed rebuild.
func (d *StalenessDetector) Persist(ctx context.Context, signature domain.Signature, reason string) (*domain.IndexState, error) {
	state := &domain.IndexState{
		CorpusRoot: d.source.Root(),
		Signature:  signature,
		BuiltAt:    d.now().UTC(),
		Reason:     reason,
	}
	if err := d.repo.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}
