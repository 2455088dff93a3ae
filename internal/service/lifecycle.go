package service

import (
	"context"
	"errors"
	"sync"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// IndexBuilder produces a new index generation.
type IndexBuilder interface {
	Rebuild(ctx context.Context) (*domain.BuildReport, error)
}

// ReindexOptions carries the --reindex and --skip-auto-reindex flags.
type ReindexOptions struct {
	Force    bool
	SkipAuto bool
}

// EnsureResult describes what Ensure decided and did.
type EnsureResult struct {
	Signature domain.Signature
	Decision  domain.ReindexDecision
	Report    *domain.BuildReport
	State     *domain.IndexState
}

// IndexStatus is a snapshot of the persisted state, the active generation and the pending decision.
type IndexStatus struct {
	CorpusRoot string
	Signature  domain.Signature
	State      *domain.IndexState
	Generation *domain.Generation
	Decision   domain.ReindexDecision
}

// IndexLifecycle ties staleness detection to rebuilds. A successful rebuild is
// the only path that persists new state.
type IndexLifecycle struct {
	detector *StalenessDetector
	builder  IndexBuilder
	index    SkillIndexInterface

	mu sync.Mutex
}

// NewIndexLifecycle creates a lifecycle.
func NewIndexLifecycle(detector *StalenessDetector, builder IndexBuilder, index SkillIndexInterface) *IndexLifecycle {
	return &IndexLifecycle{
		detector: detector,
		builder:  builder,
		index:    index,
	}
}

// Ensure rebuilds the index when the reindex rules say so.
// On ErrEmptyCorpus the previous generation keeps serving and state is left untouched.
func (l *IndexLifecycle) Ensure(ctx context.Context, opts ReindexOptions) (*EnsureResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	signature, persisted, decision, err := l.evaluate(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &EnsureResult{
		Signature: signature,
		Decision:  decision,
		State:     persisted,
	}

	log := logrus.WithFields(logrus.Fields{
		"corpus_root": l.detector.CorpusRoot(),
		"reason":      decision.Reason,
	})
	if !decision.Need {
		log.Debug("index rebuild not needed")
		return result, nil
	}

	log.Info("rebuilding skill index")
	report, err := l.builder.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCorpus) {
			log.Warn("no skills found, keeping previous index")
		} else {
			log.WithError(err).Error("skill index rebuild failed")
		}
		return result, err
	}
	result.Report = report

	state, err := l.detector.Persist(ctx, signature, decision.Reason)
	if err != nil {
		log.WithError(err).Error("failed to persist index state")
		telemetry.CaptureError(ctx, err)
		return result, err
	}
	result.State = state

	log.WithFields(logrus.Fields{
		"records":  report.Generation.RecordCount,
		"skipped":  len(report.Skipped),
		"warnings": len(report.Warnings),
		"duration": report.Duration.String(),
	}).Info("skill index rebuilt")

	l.logLint(ctx)
	return result, nil
}

// Status reports the current index state without rebuilding.
func (l *IndexLifecycle) Status(ctx context.Context) (*IndexStatus, error) {
	signature, persisted, decision, err := l.evaluate(ctx, ReindexOptions{})
	if err != nil {
		return nil, err
	}

	status := &IndexStatus{
		CorpusRoot: l.detector.CorpusRoot(),
		Signature:  signature,
		State:      persisted,
		Decision:   decision,
	}

	generation, err := l.index.Active(ctx)
	switch {
	case err == nil:
		status.Generation = generation
	case !errors.Is(err, domain.ErrIndexNotBuilt):
		return nil, err
	}
	return status, nil
}

func (l *IndexLifecycle) evaluate(ctx context.Context, opts ReindexOptions) (domain.Signature, *domain.IndexState, domain.ReindexDecision, error) {
	signature, err := l.detector.ComputeSignature(ctx)
	if err != nil {
		return "", nil, domain.ReindexDecision{}, err
	}

	persisted, err := l.detector.Load(ctx)
	if err != nil {
		return "", nil, domain.ReindexDecision{}, err
	}

	decision := Decide(signature, persisted, opts.Force, opts.SkipAuto)
	if !decision.Need && !opts.SkipAuto {
		if _, err := l.index.Active(ctx); err != nil {
			if !errors.Is(err, domain.ErrIndexNotBuilt) {
				return "", nil, domain.ReindexDecision{}, err
			}
			decision = domain.ReindexDecision{Need: true, Reason: domain.ReasonIndexMissing}
		}
	}
	return signature, persisted, decision, nil
}

func (l *IndexLifecycle) logLint(ctx context.Context) {
	records, err := l.index.ListAll(ctx, 0)
	if err != nil {
		logrus.WithError(err).Warn("failed to list skills for lint")
		return
	}

	report := LintRecords(records)
	entry := logrus.WithFields(logrus.Fields{
		"skills":   report.Checked,
		"fatal":    report.Fatal,
		"warnings": report.Warnings,
	})
	if report.Fatal > 0 {
		for _, result := range report.Results {
			for _, issue := range result.Issues {
				if issue.Severity == domain.SeverityFatal {
					logrus.WithFields(logrus.Fields{"skill": result.SkillID, "field": issue.Field}).Warn(issue.Message)
				}
			}
		}
		entry.Warn("skill lint found problems")
		return
	}
	entry.Info("skill lint passed")
}
