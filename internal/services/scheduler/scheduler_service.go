// Package scheduler triggers the daily pipeline run from a cron expression in serve mode.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Job is the scheduled work; fired is the trigger time in the scheduler's location
type Job func(ctx context.Context, fired time.Time) error

// Status describes the scheduled job
type Status struct {
	Schedule  string
	Running   bool
	LastRun   *time.Time
	LastError string
	NextRun   time.Time
}

// Service runs one job on a cron schedule and never overlaps two executions
type Service struct {
	cron     *cron.Cron
	location *time.Location
	logger   arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	schedule  string
	entryID   cron.EntryID
	started   bool
	running   bool
	lastRun   *time.Time
	lastError string
}

// NewService creates a scheduler evaluating expressions in location
func NewService(location *time.Location, logger arbor.ILogger) *Service {
	if location == nil {
		location = time.Local
	}
	adapter := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		location: location,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Schedule registers job on a standard 5-field expression. Only one job can be registered.
func (s *Service) Schedule(expr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule != "" {
		return fmt.Errorf("a job is already scheduled on %q", s.schedule)
	}

	id, err := s.cron.AddFunc(expr, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	s.schedule = expr
	s.entryID = id
	s.logger.Info().Str("schedule", expr).Str("timezone", s.location.String()).Msg("Pipeline scheduled")
	return nil
}

// Start begins firing the schedule
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		return errors.New("no job scheduled")
	}
	if s.started {
		return errors.New("scheduler already started")
	}

	s.cron.Start()
	s.started = true
	s.logger.Info().Str("next_run", s.cron.Entry(s.entryID).Next.Format(time.RFC3339)).Msg("Scheduler started")
	return nil
}

// Stop cancels a running job and waits for it to return, or for ctx to expire
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}

// Status returns a snapshot of the scheduled job
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Schedule:  s.schedule,
		Running:   s.running,
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}
	if s.started {
		status.NextRun = s.cron.Entry(s.entryID).Next
	}
	return status
}

func (s *Service) execute(job Job) {
	fired := time.Now().In(s.location)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Str("fired", fired.Format(time.RFC3339)).Msg("Scheduled run starting")
	err := job(s.ctx, fired)

	s.mu.Lock()
	s.running = false
	s.lastRun = &fired
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run failed")
		return
	}
	s.logger.Info().Dur("elapsed", time.Since(fired)).Msg("Scheduled run finished")
}

// cronLogger adapts arbor to cron.Logger
type cronLogger struct {
	logger arbor.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Debug(), keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	withFields(l.logger.Error().Err(err), keysAndValues).Msg("cron: " + msg)
}

func withFields(event arbor.ILogEvent, keysAndValues []interface{}) arbor.ILogEvent {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Str(fmt.Sprint(keysAndValues[i]), fmt.Sprint(keysAndValues[i+1]))
	}
	return event
}
