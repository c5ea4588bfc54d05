package vin

import (
	"context"
	"errors"
)

var (
	ErrDecodeUnavailable = errors.New("vin decode unavailable")
	ErrNotFound          = errors.New("vin not found")
)

// Decoded is the full decode returned by an external VIN service.
// Empty strings mean the service did not report the field.
type Decoded struct {
	Make           string   `json:"make,omitempty"`
	Model          string   `json:"model,omitempty"`
	ModelYear      int      `json:"model_year,omitempty"`
	EngineModel    string   `json:"engine_model,omitempty"`
	Transmission   string   `json:"transmission,omitempty"`
	BodyStyle      string   `json:"body_style,omitempty"`
	Trim           string   `json:"trim,omitempty"`
	DriveType      string   `json:"drive_type,omitempty"`
	FuelType       string   `json:"fuel_type,omitempty"`
	SafetyFeatures []string `json:"safety_features,omitempty"`
}

// Provider decodes a VIN into vehicle details.
type Provider interface {
	Decode(ctx context.Context, vin string) (Decoded, error)
}
