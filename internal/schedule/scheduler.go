package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler invokes Job on a cron spec. A tick that arrives while the previous
// job is still running is skipped, so jobs never overlap.
type Scheduler struct {
	Spec       string
	RunAtStart bool
	Job        func(ctx context.Context)
	Logger     *zap.Logger
}

// Run blocks until ctx is cancelled, then waits for an in-flight job to finish,
// including the one started by RunAtStart.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}

	sched, err := cron.ParseStandard(s.Spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.Spec, err)
	}

	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	job := c.Schedule(sched, cron.FuncJob(func() { s.Job(ctx) }))

	// cron's Stop only waits for jobs it launched itself
	var startup sync.WaitGroup
	if s.RunAtStart {
		// Through the entry's wrapped job so the skip-if-running guard applies
		startup.Add(1)
		go func() {
			defer startup.Done()
			c.Entry(job).WrappedJob.Run()
		}()
	}

	c.Start()
	logger.Info("scheduler started", zap.String("spec", s.Spec), zap.Time("next", sched.Next(time.Now())))

	<-ctx.Done()
	<-c.Stop().Done()
	startup.Wait()
	logger.Info("scheduler stopped")
	return nil
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
