package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clinicore/consultd/internal/store"
)

// Sweeper reclassifies transcription attempts that have sat pending past
// the staleness bound as failed. A pending row with no live workflow is
// an orphan left by a crashed worker; the sweep keeps the attempt log
// honest so dashboards and report generation never wait on it.
//
// Thread Safety: All public methods are thread-safe.
type Sweeper struct {
	store      store.Store
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithStaleAfter sets how long an attempt may stay pending before the
// sweep fails it. Defaults to 10 minutes.
func WithStaleAfter(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.staleAfter = d
	}
}

// WithInterval sets the time between sweep runs. Defaults to 1 minute.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = d
	}
}

// NewSweeper creates a sweeper. It does not start automatically; call
// Start to begin scheduled runs.
func NewSweeper(st store.Store, logger *zap.Logger, opts ...SweeperOption) (*Sweeper, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		store:      st,
		staleAfter: 10 * time.Minute,
		interval:   time.Minute,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.staleAfter <= 0 {
		return nil, fmt.Errorf("stale bound must be positive, got %s", s.staleAfter)
	}
	if s.interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", s.interval)
	}
	return s, nil
}

// Start begins the background sweep loop. Calling Start on a running
// sweeper returns an error without starting a second goroutine.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper is already running")
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	s.logger.Info("stale transcription sweeper started",
		zap.Duration("stale_after", s.staleAfter),
		zap.Duration("interval", s.interval))

	go s.run(s.stopCh, s.doneCh)
	return nil
}

// Stop signals the loop to exit and waits for the in-progress sweep, if
// any, to finish. Stopping a stopped sweeper is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info("stale transcription sweeper stopped")
}

func (s *Sweeper) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.SweepOnce(context.Background())
		}
	}
}

// SweepOnce runs a single sweep pass. Errors are logged, not returned
// through the loop; each pass is independent.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	swept, err := s.store.SweepStaleTranscriptions(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale transcription sweep failed", zap.Error(err))
		return 0
	}
	if swept > 0 {
		s.logger.Warn("reclassified stale transcription attempts",
			zap.Int64("count", swept),
			zap.Time("cutoff", cutoff))
	}
	return swept
}
