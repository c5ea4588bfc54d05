package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"partscout/internal/catalog"
	"partscout/internal/events"
	"partscout/internal/partsprovider"
	"partscout/internal/token"
	"partscout/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubCatalog struct {
	match catalog.Match
	err   error
}

func (s stubCatalog) Lookup(context.Context, models.VehicleIdentity) (catalog.Match, error) {
	return s.match, s.err
}

type stubProvider struct {
	records  []models.PartRecord
	fetchErr error
	block    bool

	acquired atomic.Int64
	fetched  atomic.Int64
}

func (p *stubProvider) Acquire(context.Context) (models.AccessToken, error) {
	n := p.acquired.Add(1)
	return models.AccessToken{Value: string(rune('a' + n)), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *stubProvider) FetchParts(ctx context.Context, _ partsprovider.Query, _ models.AccessToken) ([]models.PartRecord, error) {
	p.fetched.Add(1)
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.records, p.fetchErr
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var camry = models.NewVehicleIdentity(models.Toyota, "CAMRY", 2005, "")

func camryCatalog() stubCatalog {
	air := fallbackRec(models.CategoryEngine, "air_filter", "Air Filter", 15)
	air.Alternatives = []string{"Fram CA10123"}
	return stubCatalog{match: catalog.Match{
		Layer: catalog.LayerVehicle,
		Records: []models.PartRecord{
			air,
			fallbackRec(models.CategoryBrakes, "brake_pads_front", "Front Brake Pads", 45),
		},
	}}
}

func newEngine(cat CatalogSource, p *stubProvider, pub events.Publisher, timeout time.Duration) (*Engine, *token.Manager) {
	if p == nil {
		return NewEngine(cat, nil, nil, Options{Events: pub, LiveTimeout: timeout}), nil
	}
	tm := token.NewManager(p, token.Config{}, nil)
	return NewEngine(cat, p, tm, Options{Events: pub, LiveTimeout: timeout}), tm
}

func TestReconcile_LiveAvailable(t *testing.T) {
	p := &stubProvider{records: []models.PartRecord{
		liveRec(models.CategoryEngine, "air_filter", "Toyota OEM Air Filter", 22.5),
		liveRec(models.CategoryEngine, "oil_filter", "Oil Filter", 14.25),
	}}
	e, _ := newEngine(camryCatalog(), p, nil, time.Second)

	out, err := e.Reconcile(context.Background(), Request{RequestID: "r1", Identity: camry})
	require.NoError(t, err)

	res := out.Result
	assert.Equal(t, models.LiveAvailable, res.SourceStatus)
	assert.Empty(t, res.LiveError)
	assert.Equal(t, catalog.LayerVehicle, out.CatalogLayer)
	assert.Equal(t, 3, res.TotalParts())

	air := res.Groups[0].Parts[0]
	assert.Equal(t, "Toyota OEM Air Filter", air.Name)
	assert.Equal(t, models.ProvenanceMerged, air.Provenance)
	assert.Equal(t, []string{"Fram CA10123"}, air.Alternatives)
	assert.Equal(t, models.ProvenanceLive, res.Groups[0].Parts[1].Provenance)
	assert.Equal(t, models.ProvenanceFallback, res.Groups[1].Parts[0].Provenance)
}

func TestReconcile_TimeoutFallsBackToCatalog(t *testing.T) {
	pub := &recorder{}
	p := &stubProvider{block: true}
	e, _ := newEngine(camryCatalog(), p, pub, 30*time.Millisecond)

	start := time.Now()
	out, err := e.Reconcile(context.Background(), Request{RequestID: "r2", Identity: camry})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	res := out.Result
	assert.Equal(t, models.LiveUnavailable, res.SourceStatus)
	assert.Contains(t, res.LiveError, "timed out")
	assert.Equal(t, 2, res.TotalParts())
	for _, r := range res.Records() {
		assert.Equal(t, models.ProvenanceFallback, r.Provenance)
	}
	assert.Equal(t, []string{events.TypeLiveFailure}, pub.types())
}

func TestReconcile_AuthInvalidDropsToken(t *testing.T) {
	p := &stubProvider{fetchErr: partsprovider.ErrAuthInvalid}
	e, tm := newEngine(camryCatalog(), p, nil, time.Second)
	ctx := context.Background()

	out, err := e.Reconcile(ctx, Request{Identity: camry})
	require.NoError(t, err)
	assert.Equal(t, models.LiveUnavailable, out.Result.SourceStatus)
	assert.Equal(t, token.StateAbsent, tm.State())

	_, err = e.Reconcile(ctx, Request{Identity: camry})
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.acquired.Load())
}

func TestReconcile_Degraded(t *testing.T) {
	pub := &recorder{}
	p := &stubProvider{records: []models.PartRecord{
		{Category: "interior", Name: "Floor Mats"},
		{Category: models.CategoryEngine},
	}}
	e, _ := newEngine(camryCatalog(), p, pub, time.Second)

	out, err := e.Reconcile(context.Background(), Request{Identity: camry})
	require.NoError(t, err)
	assert.Equal(t, models.LiveDegraded, out.Result.SourceStatus)
	assert.Equal(t, ReasonNoUsableRecords, out.Result.LiveError)
	assert.Equal(t, 2, out.Result.TotalParts())
	assert.Equal(t, []string{events.TypeLiveDegrade}, pub.types())
}

func TestReconcile_EmptyLiveIsDegraded(t *testing.T) {
	e, _ := newEngine(camryCatalog(), &stubProvider{}, nil, time.Second)
	out, err := e.Reconcile(context.Background(), Request{Identity: camry})
	require.NoError(t, err)
	assert.Equal(t, models.LiveDegraded, out.Result.SourceStatus)
}

func TestReconcile_UnresolvedSkipsLive(t *testing.T) {
	p := &stubProvider{}
	e, _ := newEngine(stubCatalog{match: catalog.Match{Layer: catalog.LayerManufacturer, Records: []models.PartRecord{
		fallbackRec(models.CategoryEngine, "oil_filter", "Oil Filter", 5),
	}}}, p, nil, time.Second)

	out, err := e.Reconcile(context.Background(), Request{Identity: models.NewVehicleIdentity(models.Honda, "", 0, "")})
	require.NoError(t, err)
	assert.Equal(t, models.LiveUnavailable, out.Result.SourceStatus)
	assert.Equal(t, ReasonIdentityUnresolved, out.Result.LiveError)
	assert.Equal(t, 1, out.Result.TotalParts())
	assert.Zero(t, p.fetched.Load())
	assert.Zero(t, p.acquired.Load())
}

func TestReconcile_LiveDisabled(t *testing.T) {
	e, _ := newEngine(camryCatalog(), nil, nil, time.Second)
	assert.False(t, e.LiveEnabled())

	out, err := e.Reconcile(context.Background(), Request{Identity: camry})
	require.NoError(t, err)
	assert.Equal(t, models.LiveUnavailable, out.Result.SourceStatus)
	assert.Equal(t, ReasonLiveDisabled, out.Result.LiveError)
}

func TestReconcile_CatalogFailure(t *testing.T) {
	e, _ := newEngine(stubCatalog{err: errors.New("disk gone")}, &stubProvider{}, nil, time.Second)
	_, err := e.Reconcile(context.Background(), Request{Identity: camry})
	assert.ErrorContains(t, err, "disk gone")
}

func TestReconcile_ConcurrentLookupsShareOneToken(t *testing.T) {
	p := &stubProvider{records: []models.PartRecord{
		liveRec(models.CategoryEngine, "air_filter", "Air Filter", 20),
	}}
	e, tm := newEngine(camryCatalog(), p, nil, time.Second)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Reconcile(context.Background(), Request{Identity: camry})
			assert.NoError(t, err)
			assert.Equal(t, models.LiveAvailable, out.Result.SourceStatus)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, p.acquired.Load())
	assert.EqualValues(t, 1, tm.Renewals())
	assert.EqualValues(t, 20, p.fetched.Load())
}
