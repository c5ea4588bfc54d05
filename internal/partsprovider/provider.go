package partsprovider

import (
	"context"
	"errors"

	"partscout/pkg/models"
)

var (
	// ErrAuthInvalid means the provider rejected a token it should accept;
	// the caller should drop the token.
	ErrAuthInvalid   = errors.New("provider rejected access token")
	ErrAuthFailed    = errors.New("provider authentication failed")
	ErrTimeout       = errors.New("provider timed out")
	ErrProviderError = errors.New("provider error")
)

// Query selects the vehicle to fetch parts for. VIN is optional and only
// narrows the provider's own fitment lookup.
type Query struct {
	VIN          string              `json:"vin,omitempty"`
	Manufacturer models.Manufacturer `json:"manufacturer"`
	Model        string              `json:"model,omitempty"`
	ModelYear    int                 `json:"model_year,omitempty"`
	EngineCode   string              `json:"engine_code,omitempty"`
}

func QueryFor(v models.VehicleIdentity, vin string) Query {
	return Query{
		VIN:          vin,
		Manufacturer: v.Manufacturer(),
		Model:        v.Model(),
		ModelYear:    v.ModelYear(),
		EngineCode:   v.EngineCode(),
	}
}

// Provider is a live parts source guarded by an access token.
type Provider interface {
	Acquire(ctx context.Context) (models.AccessToken, error)
	FetchParts(ctx context.Context, q Query, tok models.AccessToken) ([]models.PartRecord, error)
}
