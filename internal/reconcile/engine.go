package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"partscout/internal/catalog"
	"partscout/internal/events"
	"partscout/internal/partsprovider"
	"partscout/internal/token"
	"partscout/pkg/logging"
	"partscout/pkg/models"
)

const DefaultLiveTimeout = 8 * time.Second

const (
	ReasonIdentityUnresolved = "identity unresolved"
	ReasonLiveDisabled       = "live source not configured"
	ReasonNoUsableRecords    = "live source returned no usable records"
)

// CatalogSource is the fallback side of a reconciliation.
type CatalogSource interface {
	Lookup(ctx context.Context, v models.VehicleIdentity) (catalog.Match, error)
}

// TokenSource hands out and revokes live-source tokens. *token.Manager
// implements it.
type TokenSource interface {
	Token(ctx context.Context) (models.AccessToken, error)
	Invalidate(tok models.AccessToken)
}

type Options struct {
	LiveTimeout time.Duration
	Logger      *zap.Logger
	Events      events.Publisher
}

// Engine runs the catalog lookup and the live fetch side by side and merges
// what comes back. A live failure never fails a reconciliation.
type Engine struct {
	catalog CatalogSource
	live    partsprovider.Provider
	tokens  TokenSource
	timeout time.Duration
	logger  *zap.Logger
	events  events.Publisher
}

// NewEngine wires the engine. live and tokens may both be nil, in which
// case every result is catalog-only.
func NewEngine(cat CatalogSource, live partsprovider.Provider, tokens TokenSource, opts Options) *Engine {
	if opts.LiveTimeout <= 0 {
		opts.LiveTimeout = DefaultLiveTimeout
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if live == nil || tokens == nil {
		live, tokens = nil, nil
	}
	return &Engine{
		catalog: cat,
		live:    live,
		tokens:  tokens,
		timeout: opts.LiveTimeout,
		logger:  logging.OrNop(opts.Logger).Named("reconcile"),
		events:  opts.Events,
	}
}

// LiveEnabled reports whether a live source is wired.
func (e *Engine) LiveEnabled() bool { return e.live != nil }

type Request struct {
	RequestID string
	Identity  models.VehicleIdentity
	VIN       string
}

type Outcome struct {
	Result       models.ReconciliationResult
	CatalogLayer catalog.Layer
}

// Reconcile returns the merged part list for req.Identity. The only error
// it returns is a catalog failure.
func (e *Engine) Reconcile(ctx context.Context, req Request) (Outcome, error) {
	var (
		match   catalog.Match
		live    []models.PartRecord
		liveErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := e.catalog.Lookup(gctx, req.Identity)
		if err != nil {
			return fmt.Errorf("catalog lookup: %w", err)
		}
		match = m
		return nil
	})
	g.Go(func() error {
		live, liveErr = e.fetchLive(gctx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{CatalogLayer: match.Layer}
	if liveErr != nil {
		out.Result = models.ReconciliationResult{
			Groups:       MergeSets(nil, match.Records),
			SourceStatus: models.LiveUnavailable,
			LiveError:    liveErr.Error(),
		}
		e.logger.Warn("live source unavailable",
			zap.String("request_id", req.RequestID),
			zap.Error(liveErr),
		)
		e.events.Publish(events.Event{
			Type:      events.TypeLiveFailure,
			RequestID: req.RequestID,
			Status:    string(models.LiveUnavailable),
			Reason:    liveErr.Error(),
		})
		return out, nil
	}

	usable := make([]models.PartRecord, 0, len(live))
	for _, r := range live {
		if Usable(r) {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		out.Result = models.ReconciliationResult{
			Groups:       MergeSets(nil, match.Records),
			SourceStatus: models.LiveDegraded,
			LiveError:    ReasonNoUsableRecords,
		}
		e.logger.Info("live source degraded",
			zap.String("request_id", req.RequestID),
			zap.Int("live_records", len(live)),
		)
		e.events.Publish(events.Event{
			Type:      events.TypeLiveDegrade,
			RequestID: req.RequestID,
			Status:    string(models.LiveDegraded),
			Reason:    ReasonNoUsableRecords,
		})
		return out, nil
	}

	out.Result = models.ReconciliationResult{
		Groups:       MergeSets(usable, match.Records),
		SourceStatus: models.LiveAvailable,
	}
	e.logger.Debug("reconciled",
		zap.String("request_id", req.RequestID),
		zap.Int("live", len(usable)),
		zap.Int("fallback", len(match.Records)),
		zap.Int("parts", out.Result.TotalParts()),
	)
	return out, nil
}

var (
	errIdentityUnresolved = errors.New(ReasonIdentityUnresolved)
	errLiveDisabled       = errors.New(ReasonLiveDisabled)
)

// fetchLive gets a token and the live records within the live timeout. A
// rejected token is invalidated so the next lookup acquires a new one.
func (e *Engine) fetchLive(ctx context.Context, req Request) ([]models.PartRecord, error) {
	if !req.Identity.Resolved() {
		return nil, errIdentityUnresolved
	}
	if e.live == nil {
		return nil, errLiveDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tok, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	recs, err := e.live.FetchParts(ctx, partsprovider.QueryFor(req.Identity, req.VIN), tok)
	if err != nil {
		if errors.Is(err, partsprovider.ErrAuthInvalid) {
			e.tokens.Invalidate(tok)
		}
		return nil, timeoutOr(ctx, err)
	}
	return recs, nil
}

// timeoutOr reports err as a provider timeout when the live deadline is
// what ended the call.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, partsprovider.ErrTimeout) {
		return fmt.Errorf("%w: %w", partsprovider.ErrTimeout, err)
	}
	return err
}

var _ TokenSource = (*token.Manager)(nil)
