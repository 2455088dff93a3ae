package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of background work run on every tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker runs a Job on a fixed interval until stopped
type Worker struct {
	job          Job
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(job Job, pollInterval time.Duration) *Worker {
	return &Worker{
		job:          job,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log := logrus.WithField("job", w.job.Name())
	log.WithField("interval", w.pollInterval.String()).Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.job.Run(ctx); err != nil {
				log.WithError(err).Error("job failed")
			}
		}
	}
}

// Stop gracefully stops the worker. It must only be called after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	logrus.WithField("job", w.job.Name()).Info("worker shutdown complete")
}
