package vin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"partscout/pkg/logging"
)

// NHTSA decodes VINs through the public vPIC API.
type NHTSA struct {
	BaseURL string
	Client  *http.Client

	logger *zap.Logger
}

func NewNHTSA(baseURL string, timeout time.Duration, logger *zap.Logger) *NHTSA {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NHTSA{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
		logger:  logging.OrNop(logger).Named("nhtsa"),
	}
}

// safetyFeatures maps vPIC variable names to display names, in report order.
var safetyFeatures = []struct{ variable, name string }{
	{"Anti-lock Braking System (ABS)", "ABS"},
	{"Electronic Stability Control (ESC)", "ESC"},
	{"Traction Control", "Traction Control"},
	{"Tire Pressure Monitoring System (TPMS) Type", "TPMS"},
	{"Backup Camera", "Backup Camera"},
	{"Lane Departure Warning (LDW)", "Lane Departure Warning"},
	{"Forward Collision Warning (FCW)", "Forward Collision Warning"},
	{"Blind Spot Warning (BSW)", "Blind Spot Warning"},
	{"Adaptive Cruise Control (ACC)", "Adaptive Cruise Control"},
}

// Decode calls
//
//	GET {BaseURL}/vehicles/DecodeVin/{vin}?format=json
//	{"Count": 136, "Results": [{"Variable": "Make", "Value": "HONDA"}, ...]}
//
// Transport failures and non-200 responses wrap ErrDecodeUnavailable; an
// empty result set or a decode without a make wraps ErrNotFound.
func (n *NHTSA) Decode(ctx context.Context, vin string) (Decoded, error) {
	endpoint := n.BaseURL + "/vehicles/DecodeVin/" + url.PathEscape(vin) + "?format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Decoded{}, fmt.Errorf("nhtsa: build request: %w", err)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: nhtsa: do request: %v", ErrDecodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Decoded{}, fmt.Errorf("%w: nhtsa: status %d: %s", ErrDecodeUnavailable, resp.StatusCode, string(body))
	}

	var raw struct {
		Count   int `json:"Count"`
		Results []struct {
			Variable string  `json:"Variable"`
			Value    *string `json:"Value"`
		} `json:"Results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Decoded{}, fmt.Errorf("%w: nhtsa: decode json: %v", ErrDecodeUnavailable, err)
	}
	if raw.Count == 0 || len(raw.Results) == 0 {
		return Decoded{}, fmt.Errorf("%w: %s", ErrNotFound, vin)
	}

	values := make(map[string]string, len(raw.Results))
	for _, r := range raw.Results {
		if r.Value == nil {
			continue
		}
		v := strings.TrimSpace(*r.Value)
		if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "Not Applicable") {
			continue
		}
		values[r.Variable] = v
	}

	d := Decoded{
		Make:         values["Make"],
		Model:        values["Model"],
		ModelYear:    parseIntOrZero(values["Model Year"]),
		EngineModel:  values["Engine Model"],
		Transmission: values["Transmission Style"],
		BodyStyle:    values["Body Class"],
		Trim:         values["Trim"],
		DriveType:    values["Drive Type"],
		FuelType:     values["Fuel Type - Primary"],
	}
	for _, f := range safetyFeatures {
		if values[f.variable] != "" {
			d.SafetyFeatures = append(d.SafetyFeatures, f.name)
		}
	}
	if d.Make == "" {
		return Decoded{}, fmt.Errorf("%w: %s has no make", ErrNotFound, vin)
	}

	n.logger.Debug("decoded vin",
		zap.String("vin", vin),
		zap.String("make", d.Make),
		zap.String("model", d.Model),
		zap.Int("year", d.ModelYear),
		zap.String("engine", d.EngineModel),
	)
	return d, nil
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
