package cluster

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lifterrors "github.com/nabeel-codes/indexlift/internal/errors"
)

// Session lazily opens a shared cluster client on first use. Repeated
// open failures trip a circuit breaker so commands fail fast instead of
// hammering a broken data directory.
type Session struct {
	mu       sync.Mutex
	dataDir  string
	inMemory bool
	logger   *slog.Logger
	client   Client
	breaker  *lifterrors.CircuitBreaker
}

// NewSession creates a session for the given data directory. When
// inMemory is set the data directory is ignored.
func NewSession(dataDir string, inMemory bool, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if inMemory {
		dataDir = ""
	}
	return &Session{
		dataDir:  dataDir,
		inMemory: inMemory,
		logger:   logger,
		breaker:  lifterrors.NewCircuitBreaker("cluster-open"),
	}
}

// Client returns the shared client, opening it on first call.
func (s *Session) Client(ctx context.Context) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, lifterrors.Wrap(lifterrors.ErrCodeClusterTimeout, err)
	}

	// Transient open failures (a lagging mount, a mid-rotation state
	// file) get a short retry; a tripped breaker fails fast instead.
	retryCfg := lifterrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
	err := lifterrors.Retry(ctx, retryCfg, func() error {
		return s.breaker.Execute(func() error {
			c, err := NewEmbedded(s.dataDir, s.logger)
			if err != nil {
				return err
			}
			s.client = c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cluster session opened",
		slog.String("data_dir", s.dataDir),
		slog.Bool("in_memory", s.inMemory))
	return s.client, nil
}

// Close releases the underlying client if it was opened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
