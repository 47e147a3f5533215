package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MonkyMars/gecho"
)

// Scheduler coalesces bursts of work per key into a single delayed run.
type Scheduler struct {
	logger  *gecho.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingRecompute
	closed  bool
	running sync.WaitGroup
}

type pendingRecompute struct {
	timer *time.Timer
}

func NewScheduler(logger *gecho.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		logger:  logger,
		timeout: timeout,
		pending: make(map[string]*pendingRecompute),
	}
}

// Schedule runs fn once, delay after the last call for key. A pending run for
// key is dropped and replaced, so only the most recent fn executes.
func (s *Scheduler) Schedule(key string, fn func(context.Context) error, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("Scheduler is shut down, dropping recompute", gecho.Field("key", key))
		return
	}

	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}

	p := &pendingRecompute{}
	p.timer = time.AfterFunc(delay, func() { s.fire(key, p, fn) })
	s.pending[key] = p
}

func (s *Scheduler) fire(key string, p *pendingRecompute, fn func(context.Context) error) {
	s.mu.Lock()
	if s.pending[key] != p {
		// replaced or cancelled after the timer had already fired
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	s.run(key, fn)
}

func (s *Scheduler) run(key string, fn func(context.Context) error) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			StockRecomputes.WithLabelValues("panicked").Inc()
			s.logger.Error("Recompute panicked", gecho.Field("key", key), gecho.Field("panic", fmt.Sprint(r)))
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		StockRecomputes.WithLabelValues("failed").Inc()
		s.logger.Error("Recompute failed", gecho.Field("key", key), gecho.Field("error", err))
		return
	}

	StockRecomputes.WithLabelValues("succeeded").Inc()
	s.logger.Debug("Recompute finished", gecho.Field("key", key), gecho.Field("took", time.Since(start).String()))
}

// Cancel drops the pending run for key and reports whether there was one.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, key)
	return true
}

// CancelAll drops every pending run and returns how many were dropped.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.pending)
	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
	return n
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown cancels pending runs, refuses new ones and waits for running ones
// until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if n := s.CancelAll(); n > 0 {
		s.logger.Info("Dropped pending recomputes on shutdown", gecho.Field("count", n))
	}

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
