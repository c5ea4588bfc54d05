package catalog

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"partscout/pkg/models"
)

//go:embed seed/catalog.yaml
var defaultSeed []byte

// SeedPart is a catalog part as written in the seed document.
type SeedPart struct {
	Category         string   `yaml:"category"`
	PartType         string   `yaml:"part_type"`
	Name             string   `yaml:"name"`
	OEMNumber        string   `yaml:"oem_number"`
	Brand            string   `yaml:"brand"`
	PriceLow         float64  `yaml:"price_low"`
	PriceHigh        float64  `yaml:"price_high"`
	Alternatives     []string `yaml:"alternatives"`
	MaintenanceMiles *int     `yaml:"maintenance_miles"`
	Notes            string   `yaml:"notes"`
}

type SeedEntry struct {
	Manufacturer string     `yaml:"manufacturer"`
	Model        string     `yaml:"model"`
	ModelYear    int        `yaml:"model_year"`
	EngineCode   string     `yaml:"engine_code"`
	Parts        []SeedPart `yaml:"parts"`
}

type SeedEngine struct {
	Code           string                 `yaml:"code"`
	Manufacturer   string                 `yaml:"manufacturer"`
	Displacement   string                 `yaml:"displacement"`
	Valvetrain     string                 `yaml:"valvetrain"`
	FuelSystem     string                 `yaml:"fuel_system"`
	MaxPower       string                 `yaml:"max_power"`
	MaxTorque      string                 `yaml:"max_torque"`
	CommonVehicles []models.CommonVehicle `yaml:"common_vehicles"`
}

type Seed struct {
	Engines []SeedEngine `yaml:"engines"`
	Entries []SeedEntry  `yaml:"entries"`
	Generic struct {
		Manufacturers []string   `yaml:"manufacturers"`
		Parts         []SeedPart `yaml:"parts"`
	} `yaml:"generic"`
}

// ParseSeed decodes and validates a seed document. Generic parts are
// expanded into one manufacturer-only entry per listed make.
func ParseSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for _, m := range s.Generic.Manufacturers {
		s.Entries = append(s.Entries, SeedEntry{Manufacturer: m, Parts: slices.Clone(s.Generic.Parts)})
	}
	for i := range s.Entries {
		if err := s.Entries[i].normalize(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	for i, e := range s.Engines {
		if strings.TrimSpace(e.Code) == "" || strings.TrimSpace(e.Manufacturer) == "" {
			return nil, fmt.Errorf("seed engine %d: code and manufacturer required", i)
		}
	}
	return &s, nil
}

// DefaultSeed returns the embedded catalog.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(bytes.NewReader(defaultSeed))
}

func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

func (e *SeedEntry) normalize() error {
	e.Manufacturer = string(models.ParseManufacturer(e.Manufacturer))
	e.Model = strings.ToUpper(strings.TrimSpace(e.Model))
	e.EngineCode = strings.ToUpper(strings.TrimSpace(e.EngineCode))
	if e.Manufacturer == "" {
		return fmt.Errorf("manufacturer required")
	}
	if e.ModelYear != 0 && e.Model == "" {
		return fmt.Errorf("%s: model_year without model", e.Manufacturer)
	}
	for j := range e.Parts {
		p := &e.Parts[j]
		cat, ok := models.ParseCategory(p.Category)
		if !ok {
			return fmt.Errorf("%s: unknown category %q", e.Manufacturer, p.Category)
		}
		p.Category = string(cat)
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%s: part name required", e.Manufacturer)
		}
		if p.PartType == "" {
			p.PartType = models.PartTypeSlug(p.Name)
		}
	}
	return nil
}

// Apply upserts the seed into the catalog tables in one transaction.
func Apply(ctx context.Context, db *sql.DB, s *Seed) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	partStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_parts (
		  manufacturer, model, model_year, engine_code, category, part_type, name,
		  oem_number, brand, price_low, price_high, alternatives, maintenance_miles, notes
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(manufacturer, model, model_year, engine_code, category, part_type) DO UPDATE SET
		  name = excluded.name,
		  oem_number = excluded.oem_number,
		  brand = excluded.brand,
		  price_low = excluded.price_low,
		  price_high = excluded.price_high,
		  alternatives = excluded.alternatives,
		  maintenance_miles = excluded.maintenance_miles,
		  notes = excluded.notes
	`)
	if err != nil {
		return fmt.Errorf("prepare part stmt: %w", err)
	}
	defer partStmt.Close()

	for _, e := range s.Entries {
		for _, p := range e.Parts {
			altJSON, err := json.Marshal(nonNil(p.Alternatives))
			if err != nil {
				return fmt.Errorf("marshal alternatives for %s: %w", p.Name, err)
			}
			var miles sql.NullInt64
			if p.MaintenanceMiles != nil {
				miles = sql.NullInt64{Int64: int64(*p.MaintenanceMiles), Valid: true}
			}
			if _, err := partStmt.ExecContext(ctx,
				e.Manufacturer, e.Model, e.ModelYear, e.EngineCode,
				p.Category, p.PartType, p.Name,
				p.OEMNumber, p.Brand, p.PriceLow, p.PriceHigh,
				string(altJSON), miles, p.Notes,
			); err != nil {
				return fmt.Errorf("exec upsert for %s %s: %w", e.Manufacturer, p.PartType, err)
			}
		}
	}

	engineStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO engine_profiles (code, manufacturer, displacement, valvetrain, fuel_system, max_power, max_torque, common_vehicles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
		  manufacturer = excluded.manufacturer,
		  displacement = excluded.displacement,
		  valvetrain = excluded.valvetrain,
		  fuel_system = excluded.fuel_system,
		  max_power = excluded.max_power,
		  max_torque = excluded.max_torque,
		  common_vehicles = excluded.common_vehicles
	`)
	if err != nil {
		return fmt.Errorf("prepare engine stmt: %w", err)
	}
	defer engineStmt.Close()

	for _, e := range s.Engines {
		vehiclesJSON, err := json.Marshal(nonNil(e.CommonVehicles))
		if err != nil {
			return fmt.Errorf("marshal vehicles for %s: %w", e.Code, err)
		}
		if _, err := engineStmt.ExecContext(ctx,
			strings.ToUpper(e.Code), string(models.ParseManufacturer(e.Manufacturer)),
			e.Displacement, e.Valvetrain, e.FuelSystem, e.MaxPower, e.MaxTorque,
			string(vehiclesJSON),
		); err != nil {
			return fmt.Errorf("exec upsert for engine %s: %w", e.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
