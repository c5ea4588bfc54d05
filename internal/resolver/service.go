package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partscout/internal/enginecode"
	"partscout/internal/events"
	"partscout/internal/identifier"
	"partscout/internal/reconcile"
	"partscout/internal/vin"
	"partscout/pkg/logging"
	"partscout/pkg/models"
)

// Reconciler produces the merged part list for an identity.
// *reconcile.Engine implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Outcome, error)
}

// Profiles looks up engine family details. *catalog.Store implements it.
type Profiles interface {
	EngineProfile(ctx context.Context, code string) (*models.EngineProfile, error)
}

// Flags are non-fatal conditions met while resolving.
type Flags struct {
	OutOfScopeManufacturer bool `json:"out_of_scope_manufacturer,omitempty"`
	DecodeUnavailable      bool `json:"decode_unavailable,omitempty"`
	NotFound               bool `json:"not_found,omitempty"`
	CheckDigitInvalid      bool `json:"check_digit_invalid,omitempty"`
}

// Resolution is everything learned about one identifier.
type Resolution struct {
	RequestID      string                      `json:"request_id"`
	Classification identifier.Classification   `json:"classification"`
	Identity       models.VehicleIdentityView  `json:"identity"`
	EngineCode     *models.EngineCode          `json:"engine_code,omitempty"`
	VIN            *vin.Structure              `json:"vin,omitempty"`
	Decoded        *vin.Decoded                `json:"decoded,omitempty"`
	Flags          Flags                       `json:"flags"`
	EngineProfile  *models.EngineProfile       `json:"engine_profile,omitempty"`
	CatalogLayer   string                      `json:"catalog_layer"`
	Result         models.ReconciliationResult `json:"result"`

	vehicle models.VehicleIdentity
}

// Vehicle returns the identity the parts were resolved for.
func (r Resolution) Vehicle() models.VehicleIdentity { return r.vehicle }

type Options struct {
	// Decoder performs full VIN decodes. Nil leaves VIN lookups on
	// structural hints and flags them DecodeUnavailable.
	Decoder  vin.Provider
	Profiles Profiles
	Logger   *zap.Logger
	Events   events.Publisher
}

// Service turns raw identifiers into resolutions. It is safe for
// concurrent use.
type Service struct {
	extractor  *enginecode.Extractor
	decoder    vin.Provider
	profiles   Profiles
	reconciler Reconciler
	logger     *zap.Logger
	events     events.Publisher
	newID      func() string
}

func NewService(extractor *enginecode.Extractor, reconciler Reconciler, opts Options) *Service {
	if extractor == nil {
		extractor = enginecode.NewExtractor(nil)
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Service{
		extractor:  extractor,
		decoder:    opts.Decoder,
		profiles:   opts.Profiles,
		reconciler: reconciler,
		logger:     logging.OrNop(opts.Logger).Named("resolver"),
		events:     opts.Events,
		newID:      uuid.NewString,
	}
}

// Resolve classifies raw, builds a vehicle identity and reconciles parts
// for it. Terminal input problems return a *ResolutionError; any other
// error comes from the catalog.
func (s *Service) Resolve(ctx context.Context, raw string) (Resolution, error) {
	res := Resolution{RequestID: s.newID()}

	c, err := identifier.Classify(raw, s.extractor.Registry())
	if err != nil {
		return Resolution{}, s.reject(res.RequestID, raw, err)
	}
	res.Classification = c

	switch c.Kind {
	case identifier.KindVIN:
		err = s.resolveVIN(ctx, &res)
	default:
		err = s.resolveEngine(&res)
	}
	if err != nil {
		return Resolution{}, s.reject(res.RequestID, raw, err)
	}
	res.Identity = res.vehicle.View()

	if code := res.vehicle.EngineCode(); code != "" && s.profiles != nil {
		p, err := s.profiles.EngineProfile(ctx, code)
		if err != nil {
			s.logger.Warn("engine profile lookup failed", zap.String("code", code), zap.Error(err))
		}
		res.EngineProfile = p
	}

	out, err := s.reconciler.Reconcile(ctx, reconcile.Request{
		RequestID: res.RequestID,
		Identity:  res.vehicle,
		VIN:       vinOf(res),
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %q: %w", c.Normalized, err)
	}
	res.Result = out.Result
	res.CatalogLayer = out.CatalogLayer.String()

	s.logger.Info("resolved",
		zap.String("request_id", res.RequestID),
		zap.String("kind", string(c.Kind)),
		zap.String("identifier", c.Normalized),
		zap.String("manufacturer", string(res.vehicle.Manufacturer())),
		zap.String("engine", res.vehicle.EngineCode()),
		zap.String("catalog_layer", res.CatalogLayer),
		zap.String("source_status", string(res.Result.SourceStatus)),
		zap.Int("parts", res.Result.TotalParts()),
	)
	s.events.Publish(events.Event{
		Type:       events.TypeResolved,
		RequestID:  res.RequestID,
		Identifier: c.Normalized,
		Status:     string(res.Result.SourceStatus),
		Parts:      res.Result.TotalParts(),
	})
	return res, nil
}

func (s *Service) resolveEngine(res *Resolution) error {
	ec, err := s.extractor.Extract(res.Classification.Normalized)
	if err != nil {
		return err
	}
	res.EngineCode = &ec
	res.vehicle = models.NewVehicleIdentity(ec.Manufacturer, "", 0, ec.Canonical)
	return nil
}

// resolveVIN reads the local structure, then asks the decoder for the rest.
// Decoder failures only set flags; the identity falls back to the
// structural hints.
func (s *Service) resolveVIN(ctx context.Context, res *Resolution) error {
	st, err := vin.ParseStructure(res.Classification.Normalized)
	if err != nil {
		return err
	}
	res.VIN = &st
	res.Flags.CheckDigitInvalid = !st.CheckDigitValid

	mfr, year := st.ManufacturerHint, st.YearHint
	var model, engine string

	d, err := s.decode(ctx, st.VIN)
	switch {
	case errors.Is(err, vin.ErrNotFound):
		res.Flags.NotFound = true
	case err != nil:
		res.Flags.DecodeUnavailable = true
		s.logger.Warn("vin decode unavailable", zap.String("vin", st.VIN), zap.Error(err))
	default:
		res.Decoded = &d
		if m := models.ParseManufacturer(d.Make); m != "" {
			mfr = m
		}
		if d.ModelYear > 0 {
			year = d.ModelYear
		}
		model = d.Model
		if ec, ok := s.decodedEngine(d.EngineModel); ok {
			res.EngineCode = &ec
			engine = ec.Canonical
		}
	}

	res.Flags.OutOfScopeManufacturer = mfr != "" && !mfr.Supported()
	res.vehicle = models.NewVehicleIdentity(mfr, model, year, engine)
	return nil
}

func (s *Service) decode(ctx context.Context, v string) (vin.Decoded, error) {
	if s.decoder == nil {
		return vin.Decoded{}, fmt.Errorf("%w: no decoder configured", vin.ErrDecodeUnavailable)
	}
	return s.decoder.Decode(ctx, v)
}

// decodedEngine keeps a decoder-reported engine model only when it starts
// with a known engine code.
func (s *Service) decodedEngine(raw string) (models.EngineCode, bool) {
	if raw == "" {
		return models.EngineCode{}, false
	}
	ec, err := s.extractor.Extract(raw)
	if err != nil || ec.Confidence < 1 {
		return models.EngineCode{}, false
	}
	return ec, true
}

func (s *Service) reject(requestID, raw string, err error) error {
	re := newResolutionError(raw, err)
	s.logger.Info("identifier rejected",
		zap.String("request_id", requestID),
		zap.String("code", string(re.Code)),
		zap.Error(err),
	)
	s.events.Publish(events.Event{
		Type:       events.TypeRejected,
		RequestID:  requestID,
		Identifier: raw,
		Reason:     string(re.Code),
	})
	return re
}

func vinOf(r Resolution) string {
	if r.VIN == nil {
		return ""
	}
	return r.VIN.VIN
}
