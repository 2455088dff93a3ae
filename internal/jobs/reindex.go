package jobs

import (
	"context"
	"errors"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
)

// Ensurer is satisfied by service.IndexLifecycle.
type Ensurer interface {
	Ensure(ctx context.Context, opts service.ReindexOptions) (*service.EnsureResult, error)
}

// ReindexJob rebuilds the index when the corpus signature changed.
type ReindexJob struct {
	lifecycle Ensurer
	opts      service.ReindexOptions
	name      string
}

// NewReindexJob creates a staleness-driven reindex job.
func NewReindexJob(lifecycle Ensurer) *ReindexJob {
	return &ReindexJob{lifecycle: lifecycle, name: "reindex"}
}

// NewForcedReindexJob creates a job that rebuilds unconditionally.
func NewForcedReindexJob(lifecycle Ensurer) *ReindexJob {
	return &ReindexJob{lifecycle: lifecycle, opts: service.ReindexOptions{Force: true}, name: "forced-reindex"}
}

func (j *ReindexJob) Name() string {
	return j.name
}

// Run ensures the index is current. An empty corpus keeps the previous
// generation and is not a job failure.
func (j *ReindexJob) Run(ctx context.Context) error {
	_, err := j.lifecycle.Ensure(ctx, j.opts)
	if errors.Is(err, domain.ErrEmptyCorpus) {
		return nil
	}
	return err
}
