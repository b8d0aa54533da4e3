/*
scheduler.go - Periodic re-evaluation of saved verifications

PURPOSE:
  Saved verifications carry the summary of their last evaluation. The policy
  is fixed for the life of a process, so summaries only go stale across a
  restart with a different policy. The scheduler runs Service.Refresh once
  on start; a positive interval adds periodic passes for stores shared with
  other processes.

DESIGN:
  - Runs a background goroutine
  - Always runs one pass on start; ticks only when the interval is positive
  - Stop waits for an in-flight pass to finish

USAGE:
  scheduler := NewRefreshScheduler(svc, 0)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - service.go: Refresh
*/
package verification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RefreshScheduler refreshes saved verification summaries on start and,
// when Periodic, on every tick.
type RefreshScheduler struct {
	Service       *Service
	CheckInterval time.Duration
	Periodic      bool

	running bool
	stop    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewRefreshScheduler creates a scheduler. An interval <= 0 means a single
// pass on start.
func NewRefreshScheduler(svc *Service, interval time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		Service:       svc,
		CheckInterval: interval,
		Periodic:      interval > 0,
	}
}

// Start runs the startup pass in the background and, when periodic, keeps
// ticking until Stop.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel
	rs.stop = make(chan struct{})
	rs.running = true
	rs.wg.Add(1)

	go rs.run(ctx)

	if rs.Periodic {
		rs.Service.Logger.Info("refresh scheduler started", zap.Duration("interval", rs.CheckInterval))
	}
}

// Stop cancels an in-flight pass and waits for it.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.running {
		return
	}
	rs.cancel()
	close(rs.stop)
	rs.wg.Wait()
	rs.running = false
	if rs.Periodic {
		rs.Service.Logger.Info("refresh scheduler stopped")
	}
}

func (rs *RefreshScheduler) run(ctx context.Context) {
	defer rs.wg.Done()

	rs.refresh(ctx)
	if !rs.Periodic {
		return
	}

	ticker := time.NewTicker(rs.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rs.refresh(ctx)
		case <-rs.stop:
			return
		}
	}
}

func (rs *RefreshScheduler) refresh(ctx context.Context) {
	logger := rs.Service.Logger
	stats, err := rs.Service.Refresh(ctx)
	if err != nil {
		logger.Warn("refresh pass aborted", zap.Error(err))
		return
	}
	if stats.Updated > 0 || stats.Failed > 0 {
		logger.Info("refresh pass completed",
			zap.Int("checked", stats.Checked),
			zap.Int("updated", stats.Updated),
			zap.Int("failed", stats.Failed))
	}
}
