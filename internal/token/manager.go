package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"partscout/pkg/logging"
	"partscout/pkg/models"
)

var ErrLiveUnavailable = errors.New("live source unavailable")

type State string

const (
	StateAbsent     State = "absent"
	StateValid      State = "valid"
	StateExpiring   State = "expiring"
	StateRefreshing State = "refreshing"
)

const (
	DefaultSafetyMargin   = 2 * time.Minute
	DefaultAcquireTimeout = 15 * time.Second
)

// Acquirer obtains a fresh access token from the live source.
type Acquirer interface {
	Acquire(ctx context.Context) (models.AccessToken, error)
}

type Config struct {
	SafetyMargin   time.Duration
	AcquireTimeout time.Duration
}

// Manager owns the single access token for the live source. Callers that
// find the token missing or inside the safety margin share one in-flight
// acquisition and all receive its token or its error.
type Manager struct {
	src     Acquirer
	margin  time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	group   singleflight.Group
	waiting atomic.Int64

	mu         sync.Mutex
	current    models.AccessToken
	refreshing bool
	renewals   int64
	failures   int64
	lastErr    string
}

func NewManager(src Acquirer, cfg Config, logger *zap.Logger) *Manager {
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = DefaultSafetyMargin
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}
	return &Manager{
		src:     src,
		margin:  cfg.SafetyMargin,
		timeout: cfg.AcquireTimeout,
		now:     time.Now,
		logger:  logging.OrNop(logger).Named("token"),
	}
}

// Token returns a token that is usable for at least the safety margin,
// acquiring one if needed. ctx bounds only this caller's wait.
func (m *Manager) Token(ctx context.Context) (models.AccessToken, error) {
	m.mu.Lock()
	if m.current.UsableAt(m.now(), m.margin) {
		tok := m.current
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	m.waiting.Add(1)
	defer m.waiting.Add(-1)

	ch := m.group.DoChan("token", m.refresh)
	select {
	case <-ctx.Done():
		return models.AccessToken{}, fmt.Errorf("%w: waiting for token: %w", ErrLiveUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.AccessToken{}, res.Err
		}
		return res.Val.(models.AccessToken), nil
	}
}

// refresh runs inside the single flight. The state is re-checked first: a
// caller that saw a stale token may arrive after another flight replaced it.
func (m *Manager) refresh() (any, error) {
	m.mu.Lock()
	if m.current.UsableAt(m.now(), m.margin) {
		tok := m.current
		m.mu.Unlock()
		return tok, nil
	}
	m.refreshing = true
	m.mu.Unlock()

	// detached from any caller so one cancellation cannot fail the rest
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := m.now()
	tok, err := m.src.Acquire(ctx)
	if err == nil && !m.now().Before(tok.ExpiresAt) {
		err = fmt.Errorf("token expired at %s", tok.ExpiresAt.Format(time.RFC3339))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false

	if err != nil {
		m.current = models.AccessToken{}
		m.failures++
		m.lastErr = err.Error()
		m.logger.Warn("token acquisition failed", zap.Error(err), zap.Int64("failures", m.failures))
		return nil, fmt.Errorf("%w: acquire token: %w", ErrLiveUnavailable, err)
	}

	m.current = tok
	m.renewals++
	m.lastErr = ""
	m.logger.Info("token renewed",
		zap.Int64("renewals", m.renewals),
		zap.Time("expires_at", tok.ExpiresAt),
		zap.Duration("took", m.now().Sub(start)),
	)
	return tok, nil
}

// Invalidate drops tok after the provider rejected it. A token that has
// already been replaced is left alone.
func (m *Manager) Invalidate(tok models.AccessToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok.IsZero() || m.current.Value != tok.Value {
		return
	}
	m.current = models.AccessToken{}
	m.logger.Info("token invalidated")
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	now := m.now()
	switch {
	case m.refreshing:
		return StateRefreshing
	case m.current.IsZero() || !now.Before(m.current.ExpiresAt):
		return StateAbsent
	case m.current.UsableAt(now, m.margin):
		return StateValid
	default:
		return StateExpiring
	}
}

// Renewals counts successful acquisitions.
func (m *Manager) Renewals() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renewals
}

// Status is a point-in-time view for diagnostics. It never carries the
// token value.
type Status struct {
	State     State      `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Renewals  int64      `json:"renewals"`
	Failures  int64      `json:"failures"`
	Waiting   int64      `json:"waiting"`
	LastError string     `json:"last_error,omitempty"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		State:     m.stateLocked(),
		Renewals:  m.renewals,
		Failures:  m.failures,
		Waiting:   m.waiting.Load(),
		LastError: m.lastErr,
	}
	if !m.current.IsZero() {
		exp := m.current.ExpiresAt
		s.ExpiresAt = &exp
	}
	return s
}
