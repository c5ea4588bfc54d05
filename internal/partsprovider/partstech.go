package partsprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"partscout/pkg/logging"
	"partscout/pkg/models"
)

type PartsTechConfig struct {
	BaseURL   string
	Username  string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int
	// Lifetime applies to tokens whose expiry cannot be read.
	Lifetime time.Duration
}

// PartsTech talks to a PartsTech-style JSON API.
type PartsTech struct {
	cfg     PartsTechConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

func NewPartsTech(cfg PartsTechConfig, logger *zap.Logger) *PartsTech {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 60 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &PartsTech{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logging.OrNop(logger).Named("partstech"),
		now:     time.Now,
	}
}

type accessRequest struct {
	AccessType  string `json:"accessType"`
	Credentials struct {
		Username string `json:"username"`
		APIKey   string `json:"apiKey"`
	} `json:"credentials"`
}

// Acquire exchanges the configured credentials for an access token:
//
//	POST {BaseURL}/oauth/access
//	{"accessType": "user", "credentials": {"username": "...", "apiKey": "..."}}
//	-> {"accessToken": "<jwt>"}
//
// Every failure wraps ErrAuthFailed.
func (p *PartsTech) Acquire(ctx context.Context) (models.AccessToken, error) {
	var body accessRequest
	body.AccessType = "user"
	body.Credentials.Username = p.cfg.Username
	body.Credentials.APIKey = p.cfg.APIKey

	resp, err := p.post(ctx, "/oauth/access", body, "")
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.AccessToken{}, fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.AccessToken{}, fmt.Errorf("%w: decode json: %v", ErrAuthFailed, err)
	}
	if out.AccessToken == "" {
		return models.AccessToken{}, fmt.Errorf("%w: no access token in response", ErrAuthFailed)
	}

	tok := parseAccessToken(out.AccessToken, p.now(), p.cfg.Lifetime)
	p.logger.Info("access token acquired", zap.Time("expires_at", tok.ExpiresAt))
	return tok, nil
}

type searchRequest struct {
	SearchParams struct {
		VIN           string         `json:"vin,omitempty"`
		VehicleParams *vehicleParams `json:"vehicleParams,omitempty"`
		EngineCode    string         `json:"engineCode,omitempty"`
	} `json:"searchParams"`
}

type vehicleParams struct {
	Year  int    `json:"year,omitempty"`
	Make  string `json:"make"`
	Model string `json:"model,omitempty"`
}

type searchPart struct {
	PartName         string   `json:"partName"`
	PartNumber       string   `json:"partNumber"`
	PartType         string   `json:"partType"`
	Brand            string   `json:"brand"`
	Price            float64  `json:"price"`
	ListPrice        float64  `json:"listPrice"`
	Category         string   `json:"category"`
	FitmentNotes     string   `json:"fitmentNotes"`
	Alternatives     []string `json:"alternatives"`
	MaintenanceMiles int      `json:"maintenanceIntervalMiles"`
}

// FetchParts runs a catalog search for q:
//
//	POST {BaseURL}/catalog/search   Authorization: Bearer <token>
//	{"searchParams": {"vin": "...", "vehicleParams": {...}, "engineCode": "..."}}
//	-> {"parts": [{"partName": "...", "category": "Engine/Air Intake", ...}]}
//
// A 401 wraps ErrAuthInvalid, deadlines wrap ErrTimeout and everything
// else wraps ErrProviderError. Records come back tagged Live.
func (p *PartsTech) FetchParts(ctx context.Context, q Query, tok models.AccessToken) ([]models.PartRecord, error) {
	var body searchRequest
	body.SearchParams.VIN = q.VIN
	body.SearchParams.EngineCode = q.EngineCode
	if q.Manufacturer != "" {
		body.SearchParams.VehicleParams = &vehicleParams{
			Year:  q.ModelYear,
			Make:  string(q.Manufacturer),
			Model: q.Model,
		}
	}

	resp, err := p.post(ctx, "/catalog/search", body, tok.Value)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrAuthInvalid
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, fmt.Errorf("%w: status %d", ErrTimeout, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderError, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Parts []searchPart `json:"parts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: decode json: %v", ErrProviderError, err)
	}

	records := make([]models.PartRecord, 0, len(out.Parts))
	for _, sp := range out.Parts {
		records = append(records, sp.record())
	}
	p.logger.Debug("catalog search",
		zap.String("manufacturer", string(q.Manufacturer)),
		zap.String("engine", q.EngineCode),
		zap.Int("parts", len(records)),
	)
	return records, nil
}

func (sp searchPart) record() models.PartRecord {
	r := models.PartRecord{
		Category:       mapCategory(sp.Category),
		PartType:       sp.PartType,
		Name:           strings.TrimSpace(sp.PartName),
		OEMNumber:      sp.PartNumber,
		Brand:          sp.Brand,
		PriceRangeLow:  sp.Price,
		PriceRangeHigh: max(sp.Price, sp.ListPrice),
		Alternatives:   sp.Alternatives,
		Notes:          sp.FitmentNotes,
		Provenance:     models.ProvenanceLive,
		Confidence:     models.ConfidenceLive,
	}
	if r.PartType == "" {
		r.PartType = inferPartType(sp.PartName, sp.FitmentNotes)
	}
	if sp.MaintenanceMiles > 0 {
		r.MaintenanceIntervalMiles = models.Miles(sp.MaintenanceMiles)
	}
	return r
}

func (p *PartsTech) post(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot be met
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return nil, fmt.Errorf("rate limiter: %v: %w", err, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "partscout/1.0")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
