package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deal-feed-service/internal/util"

	"go.uber.org/zap"
)

// Runner executes one feed run
type Runner interface {
	Run(ctx context.Context) (*RunReport, error)
}

// RunLock is a lock shared between service replicas
type RunLock interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ExtendLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// TriggerOutcome tells whether a trigger started a run
type TriggerOutcome string

const (
	OutcomeStarted           TriggerOutcome = "started"
	OutcomeSkippedInProgress TriggerOutcome = "skipped_in_progress"
	OutcomeSkippedTooSoon    TriggerOutcome = "skipped_too_soon"
	OutcomeSkippedLocked     TriggerOutcome = "skipped_locked"
)

// RunLockKey is the distributed lock guarding feed runs
const RunLockKey = "feed-update"

// SchedulerConfig controls run cadence
type SchedulerConfig struct {
	// MinInterval is the minimum time between the end of a successful run and the next start
	MinInterval time.Duration
	// Period is the cadence of periodic triggers
	Period time.Duration
	// LockTTL bounds how long a crashed replica can hold the distributed lock.
	// A live run extends it every LockTTL/3.
	LockTTL time.Duration
}

// SchedulerStatus is a snapshot of the scheduler state
type SchedulerStatus struct {
	Running  bool       `json:"running"`
	Periodic bool       `json:"periodic"`
	LastRun  *time.Time `json:"last_run,omitempty"`
}

// Scheduler gates feed runs: at most one in flight, and none within
// MinInterval of the last successful run, whatever triggered them.
type Scheduler struct {
	runner Runner
	lock   RunLock
	cfg    SchedulerConfig
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	lastRun time.Time
	stopCh  chan struct{}

	loops sync.WaitGroup
	runs  sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(runner Runner, cfg SchedulerConfig) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// WithLock makes the scheduler also take a distributed lock before each run
func (s *Scheduler) WithLock(lock RunLock) *Scheduler {
	s.lock = lock
	return s
}

// TriggerUpdate runs the pipeline once if no run is in progress and the
// minimum interval has elapsed. Skips return a nil error.
func (s *Scheduler) TriggerUpdate(ctx context.Context) (TriggerOutcome, *RunReport, error) {
	outcome, token := s.begin(ctx)
	if outcome != OutcomeStarted {
		return outcome, nil, nil
	}

	report, err := s.execute(ctx, token)
	return outcome, report, err
}

// TriggerAsync applies the same guards as TriggerUpdate but runs the
// pipeline in the background, detached from any caller context
func (s *Scheduler) TriggerAsync() TriggerOutcome {
	outcome, token := s.begin(context.Background())
	if outcome != OutcomeStarted {
		return outcome
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_, _ = s.execute(context.Background(), token)
	}()
	return outcome
}

// StartPeriodicUpdates triggers a run now and then every Period.
// Calling it while already started has no effect.
func (s *Scheduler) StartPeriodicUpdates() {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop
	s.mu.Unlock()

	s.logger.Info("Starting periodic feed updates", zap.Duration("period", s.cfg.Period))

	s.loops.Add(1)
	go s.loop(stop)
}

// StopPeriodicUpdates stops future periodic triggers. An in-flight run keeps going.
func (s *Scheduler) StopPeriodicUpdates() {
	s.mu.Lock()
	stop := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	s.logger.Info("Stopping periodic feed updates")
	close(stop)
	s.loops.Wait()
}

// Wait blocks until background runs have finished
func (s *Scheduler) Wait() {
	s.runs.Wait()
}

// Status returns the current scheduler state
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{Running: s.running, Periodic: s.stopCh != nil}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	return status
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.loops.Done()

	s.TriggerAsync()

	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.TriggerAsync()
		}
	}
}

// begin checks the guards and marks a run in progress
func (s *Scheduler) begin(ctx context.Context) (TriggerOutcome, string) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.skipped(OutcomeSkippedInProgress)
		return OutcomeSkippedInProgress, ""
	}
	if !s.lastRun.IsZero() && s.now().Sub(s.lastRun) < s.cfg.MinInterval {
		s.mu.Unlock()
		s.skipped(OutcomeSkippedTooSoon)
		return OutcomeSkippedTooSoon, ""
	}
	s.running = true
	s.mu.Unlock()

	if s.lock == nil {
		return OutcomeStarted, ""
	}

	token, ok, err := s.lock.AcquireLock(ctx, RunLockKey, s.cfg.LockTTL)
	if err != nil {
		// local guards still hold, so run without the shared lock
		s.logger.Warn("Failed to acquire feed run lock, continuing without it", zap.Error(err))
		return OutcomeStarted, ""
	}
	if !ok {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.skipped(OutcomeSkippedLocked)
		return OutcomeSkippedLocked, ""
	}
	return OutcomeStarted, token
}

// execute runs the pipeline and always clears the in-progress flag
func (s *Scheduler) execute(ctx context.Context, token string) (report *RunReport, err error) {
	start := time.Now()
	stopRefresh := s.refreshLock(token)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feed run panicked: %v", r)
		}

		stopRefresh()
		s.releaseLock(token)
		s.finish(err == nil)

		util.FeedRunDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			util.FeedRunsTotal.WithLabelValues("failed").Inc()
			s.logger.Error("Feed run failed", zap.Error(err))
			return
		}

		util.FeedRunsTotal.WithLabelValues("succeeded").Inc()
		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if report != nil {
			fields = append(fields,
				zap.Int("brands", report.Brands),
				zap.Int("parsed", report.Parsed),
				zap.Int("malformed", report.Malformed),
				zap.Int("accepted", report.Accepted),
				zap.Int("persisted", report.Persisted),
				zap.String("fetch_error", report.FetchError))
		}
		s.logger.Info("Feed run completed", fields...)
	}()

	return s.runner.Run(ctx)
}

func (s *Scheduler) finish(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if success {
		s.lastRun = s.now()
		util.LastSuccessfulRun.Set(float64(s.lastRun.Unix()))
	}
}

// refreshLock keeps the distributed lock alive while a run lasts longer than LockTTL.
// The returned func stops refreshing and waits for the refresher to exit.
func (s *Scheduler) refreshLock(token string) func() {
	if s.lock == nil || token == "" {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)

		interval := s.cfg.LockTTL / 3
		if interval <= 0 {
			interval = s.cfg.LockTTL
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				ok, err := s.lock.ExtendLock(ctx, RunLockKey, token, s.cfg.LockTTL)
				cancel()
				if err != nil {
					s.logger.Warn("Failed to extend feed run lock", zap.Error(err))
					continue
				}
				if !ok {
					s.logger.Warn("Feed run lock lost before the run finished")
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func (s *Scheduler) releaseLock(token string) {
	if s.lock == nil || token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lock.ReleaseLock(ctx, RunLockKey, token); err != nil {
		s.logger.Warn("Failed to release feed run lock", zap.Error(err))
	}
}

func (s *Scheduler) skipped(outcome TriggerOutcome) {
	util.FeedRunsSkippedTotal.WithLabelValues(string(outcome)).Inc()
	s.logger.Debug("Feed update skipped", zap.String("reason", string(outcome)))
}
