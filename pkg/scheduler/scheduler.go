// Package scheduler runs named periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskFunc receives a context bounded by the scheduler's task timeout.
type TaskFunc func(ctx context.Context) error

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Scheduler struct {
	cron        *cron.Cron
	logger      Logger
	taskTimeout time.Duration

	mu      sync.Mutex
	tasks   map[string]cron.EntryID
	running bool
}

// New accepts five-field, six-field (leading seconds) and descriptor
// ("@hourly", "@every 15m") schedules.
func New(logger Logger, taskTimeout time.Duration) *Scheduler {
	if taskTimeout <= 0 {
		taskTimeout = 10 * time.Minute
	}

	cronLogger := cronLogAdapter{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:      logger,
		taskTimeout: taskTimeout,
		tasks:       make(map[string]cron.EntryID),
	}
}

// ValidateSchedule reports whether spec parses.
func ValidateSchedule(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Add registers task under name, replacing any task with the same name.
func (s *Scheduler) Add(name, spec string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("scheduler: add %q: %w", name, err)
	}

	s.tasks[name] = id
	s.logger.Info("Scheduled task registered", "task", name, "schedule", spec)
	return nil
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.tasks[name]; ok {
		s.cron.Remove(id)
		delete(s.tasks, name)
	}
}

// Next returns the next activation of the named task.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks", len(s.tasks))
}

// Stop waits for running tasks until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

func (s *Scheduler) run(name string, task TaskFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	started := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("Scheduled task failed", "task", name, "error", err, "duration_ms", time.Since(started).Milliseconds())
		return
	}
	s.logger.Info("Scheduled task completed", "task", name, "duration_ms", time.Since(started).Milliseconds())
}

// cronLogAdapter satisfies cron.Logger.
type cronLogAdapter struct {
	logger Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("Scheduler: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
