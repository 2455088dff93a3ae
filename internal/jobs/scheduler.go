package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers job under spec, a standard five-field cron expression
// or a descriptor such as "@hourly".
func NewScheduler(ctx context.Context, spec string, job Job) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		log := logrus.WithField("job", job.Name())
		log.Info("scheduled job starting")
		if err := job.Run(ctx); err != nil {
			log.WithError(err).Error("scheduled job failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
