package engine

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/metrics"
)

// DefaultSweepInterval is how often idle rate-limit keys are purged.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper runs RateLimiter.Sweep on a fixed schedule until stopped.
type Sweeper struct {
	Limiter  *RateLimiter
	Interval time.Duration
	Logger   *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Start launches the background sweep loop. Calling Start on a running
// sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil || s.Limiter == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx, s.done)
}

// Stop cancels the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Limiter.Sweep()
			tracked := s.Limiter.Tracked()
			metrics.SetTrackedKeys(tracked)
			if s.Logger != nil && removed > 0 {
				s.Logger.Debug("Swept idle rate limit keys",
					zap.Int("removed", removed),
					zap.Int("tracked", tracked))
			}
		}
	}
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return DefaultSweepInterval
	}
	return s.Interval
}
