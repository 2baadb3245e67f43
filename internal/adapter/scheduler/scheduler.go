// Package scheduler runs the periodic maintenance sweeps on cron schedules.
// It wraps robfig/cron with slog integration, per-job timeouts and overlap
// control, so a slow sweep never stacks up behind itself.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// JobID identifies a registered job.
type JobID = cron.EntryID

// OverlapPolicy decides what happens when a job fires while its previous run
// is still going.
type OverlapPolicy int

const (
	// AllowOverlap runs invocations concurrently.
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops the new invocation.
	SkipIfRunning
	// DelayIfRunning queues the new invocation behind the running one.
	DelayIfRunning
)

// JobOptions configures a single job.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
}

type jobWrapper struct {
	job     JobFunc
	options JobOptions
}

// cronLogger bridges the cron library's logger onto slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, pairsToAttrs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	attrs := append([]slog.Attr{slog.Any("error", err)}, pairsToAttrs(keysAndValues)...)
	l.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func pairsToAttrs(keysAndValues []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		attrs = append(attrs, slog.Any(key, keysAndValues[i+1]))
	}
	return attrs
}

// Scheduler owns the cron runner and the lifecycle of all registered jobs.
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	startOnce sync.Once
}

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger
}

// New creates a scheduler bound to the parent context; cancelling the parent
// stops every job.
func New(parentCtx context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: logger.With("component", "cron")}),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job on a cron schedule.
//
// Schedule examples: "0 0 * * *" (daily at midnight), "@hourly", "@every 5m".
func (s *Scheduler) AddJob(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	wrapper := &jobWrapper{job: job, options: opts}

	var chain cron.Chain
	switch opts.OverlapPolicy {
	case SkipIfRunning:
		chain = cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger}))
	case DelayIfRunning:
		chain = cron.NewChain(cron.DelayIfStillRunning(cronLogger{logger: s.logger}))
	default:
		chain = cron.NewChain()
	}

	id, err := s.cron.AddJob(schedule, chain.Then(cron.FuncJob(func() {
		s.run(wrapper)
	})))
	if err != nil {
		s.logger.Error("failed to add job", "schedule", schedule, "name", opts.Name, "error", err)
		return 0, err
	}

	s.logger.Info("job added", "schedule", schedule, "name", opts.Name, "id", id)
	return id, nil
}

// Start begins executing registered jobs. Idempotent.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.cron.Start()

		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext is Stop bounded by a deadline; the shutdown still completes in
// the background when the deadline passes first.
func (s *Scheduler) StopContext(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded")
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(wrapper *jobWrapper) {
	name := wrapper.options.Name
	if name == "" {
		name = "unnamed"
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "name", name, "panic", r)
		}
	}()

	ctx := s.ctx
	if wrapper.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wrapper.options.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := wrapper.job(ctx)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("job failed", "name", name, "error", err, "duration", duration)
		return
	}
	s.logger.Debug("job completed", "name", name, "duration", duration)
}
