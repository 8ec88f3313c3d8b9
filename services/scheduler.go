package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// rentGenerator is the part of BillingService the scheduler drives.
type rentGenerator interface {
	GenerateMonthlyRent(ctx context.Context, asOf time.Time) (*GenerationResult, error)
}

// BillScheduler runs monthly rent generation. It checks the clock on every tick
// and generates bills on the first tick of each new calendar month, and once
// on startup.
type BillScheduler struct {
	mu        sync.RWMutex
	billing   rentGenerator
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}

	tickCount  int
	lastPeriod string
	lastRun    time.Time
	lastResult *GenerationResult
	lastError  string
}

// NewBillScheduler creates a scheduler that wakes every interval.
func NewBillScheduler(billing rentGenerator, interval time.Duration, logger *zap.Logger) *BillScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BillScheduler{
		billing:  billing,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Must be called before Start.
func (s *BillScheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Start runs the scheduler loop in the background until Stop or ctx is done.
func (s *BillScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	s.logger.Info("bill scheduler started", zap.Duration("interval", s.interval))

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-stop:
				s.logger.Info("bill scheduler stopped")
				return
			case <-ctx.Done():
				s.mu.Lock()
				s.isRunning = false
				s.mu.Unlock()
				s.logger.Info("bill scheduler stopped", zap.Error(ctx.Err()))
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *BillScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		done := s.done
		s.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

// tick generates bills when the calendar month differs from the last run.
func (s *BillScheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.tickCount++
	now := s.now()
	month, year := PeriodOf(now)
	period := month + " " + strconv.Itoa(year)
	if period == s.lastPeriod {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.RunNow(ctx, now)
}

// RunNow generates rent for the month containing asOf and records the outcome.
func (s *BillScheduler) RunNow(ctx context.Context, asOf time.Time) (*GenerationResult, error) {
	result, err := s.billing.GenerateMonthlyRent(ctx, asOf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = asOf
	if err != nil {
		s.lastError = err.Error()
		s.logger.Error("monthly rent generation failed", zap.Error(err))
		return result, err
	}
	month, year := PeriodOf(asOf)
	s.lastPeriod = month + " " + strconv.Itoa(year)
	s.lastResult = result
	s.lastError = ""
	return result, nil
}

// SchedulerStatus snapshot for the admin endpoint.
type SchedulerStatus struct {
	IsRunning  bool      `json:"is_running"`
	Interval   string    `json:"interval"`
	TickCount  int       `json:"tick_count"`
	LastPeriod string    `json:"last_period,omitempty"`
	LastRun    time.Time `json:"last_run,omitempty"`
	Created    int       `json:"last_created"`
	Skipped    int       `json:"last_skipped"`
	LastError  string    `json:"last_error,omitempty"`
}

// Status reports the scheduler state.
func (s *BillScheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := SchedulerStatus{
		IsRunning:  s.isRunning,
		Interval:   s.interval.String(),
		TickCount:  s.tickCount,
		LastPeriod: s.lastPeriod,
		LastRun:    s.lastRun,
		LastError:  s.lastError,
	}
	if s.lastResult != nil {
		st.Created = len(s.lastResult.Created)
		st.Skipped = s.lastResult.Skipped
	}
	return st
}
