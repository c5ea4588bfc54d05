package partsprovider

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"partscout/pkg/models"
)

// Demo is an offline stand-in for the live provider. It issues short-lived
// signed tokens and answers searches from a small fixed stock list, so the
// full live path can be exercised without credentials.
type Demo struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time

	acquisitions atomic.Int64
}

func NewDemo(lifetime time.Duration) *Demo {
	if lifetime <= 0 {
		lifetime = 60 * time.Minute
	}
	return &Demo{
		secret:   []byte(uuid.NewString()),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Acquisitions counts issued tokens.
func (d *Demo) Acquisitions() int64 { return d.acquisitions.Load() }

func (d *Demo) Acquire(ctx context.Context) (models.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return models.AccessToken{}, err
	}
	now := d.now()
	raw, err := signToken(d.secret, now, now.Add(d.lifetime))
	if err != nil {
		return models.AccessToken{}, err
	}
	d.acquisitions.Add(1)
	return parseAccessToken(raw, now, d.lifetime), nil
}

func (d *Demo) FetchParts(ctx context.Context, q Query, tok models.AccessToken) ([]models.PartRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrTimeout
	}
	if err := verifyToken(d.secret, tok.Value, d.now()); err != nil {
		return nil, ErrAuthInvalid
	}

	var out []models.PartRecord
	for _, s := range demoStock {
		if s.fits(q) {
			out = append(out, s.part.record())
		}
	}
	return out, nil
}

type demoItem struct {
	manufacturer models.Manufacturer
	vehicles     []string
	engines      []string
	part         searchPart
}

func (s demoItem) fits(q Query) bool {
	if q.Manufacturer != s.manufacturer {
		return false
	}
	if q.EngineCode != "" && slices.Contains(s.engines, q.EngineCode) {
		return true
	}
	return q.Model != "" && slices.Contains(s.vehicles, strings.ToUpper(q.Model))
}

var demoStock = []demoItem{
	{models.Honda, []string{"CIVIC"}, []string{"D16W7"}, searchPart{
		PartName: "Honda OEM Air Filter", PartNumber: "17220-P2A-000", Brand: "Honda",
		Price: 19.95, ListPrice: 26.99, Category: "Engine/Air Intake",
		FitmentNotes: "2001-2005 Honda Civic, D16W7 1.6L SOHC VTEC",
	}},
	{models.Honda, []string{"CIVIC"}, []string{"D16W7"}, searchPart{
		PartName: "Premium Oil Filter Cartridge", PartNumber: "15400-PLM-A02", Brand: "Honda OEM",
		Price: 13.50, ListPrice: 18.99, Category: "Engine/Oil System",
		FitmentNotes: "D16W7 SOHC VTEC Engine, Cartridge Type",
	}},
	{models.Honda, []string{"CIVIC"}, []string{"D16W7"}, searchPart{
		PartName: "NGK Iridium IX Spark Plugs", PartNumber: "ZFR6F-11", Brand: "NGK",
		Price: 8.95, ListPrice: 12.99, Category: "Engine/Ignition",
		FitmentNotes: "D16W7 VTEC, gap 0.043 in, set of 4 required",
	}},
	{models.Honda, nil, []string{"D16W7"}, searchPart{
		PartName: "VTEC Solenoid Valve Assembly", PartNumber: "15810-P2A-A01", Brand: "Honda OEM",
		Price: 129.95, ListPrice: 169.99, Category: "Engine/VTEC System",
		FitmentNotes: "D16W7 SOHC VTEC Engine Control System",
	}},
	{models.Honda, []string{"CIVIC"}, []string{"D16W7", "D17A1", "D17A2"}, searchPart{
		PartName: "OEM Front Brake Pad Set", PartNumber: "45022-S5A-E50", Brand: "Akebono",
		Price: 49.95, ListPrice: 69.99, Category: "Brake/Pads & Shoes",
		FitmentNotes: "2001-2005 Honda Civic Front Axle",
	}},
	{models.Toyota, []string{"CAMRY", "COROLLA"}, []string{"1ZZ-FE"}, searchPart{
		PartName: "Air Filter", PartNumber: "17801-0P010", Brand: "Toyota OEM",
		Price: 22.50, ListPrice: 29.99, Category: "Engine",
		FitmentNotes: "2005 Toyota Camry 1ZZ-FE Engine",
	}},
	{models.Toyota, []string{"CAMRY", "COROLLA"}, []string{"1ZZ-FE", "2AZ-FE"}, searchPart{
		PartName: "Oil Filter", PartNumber: "90915-YZZJ1", Brand: "Toyota OEM",
		Price: 14.25, ListPrice: 18.99, Category: "Engine",
		FitmentNotes: "Camry 1ZZ-FE Engine",
	}},
}
