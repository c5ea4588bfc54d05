package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"partscout/pkg/database"
	"partscout/pkg/logging"
	"partscout/pkg/models"
)

type Store struct {
	DB *sql.DB

	logger *zap.Logger
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, logger: logging.OrNop(logger).Named("catalog")}
}

// Open builds a ready catalog: it opens the database, applies the schema
// and loads the seed (the embedded one when seedFile is empty).
func Open(ctx context.Context, cfg database.Config, seedFile string, logger *zap.Logger) (*Store, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	var seed *Seed
	if seedFile != "" {
		seed, err = LoadSeedFile(seedFile)
	} else {
		seed, err = DefaultSeed()
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Apply(ctx, db, seed); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	s := NewStore(db, logger)
	n, err := s.Count(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("catalog ready",
		zap.String("path", cfg.Path),
		zap.Int("parts", n),
		zap.Int("engines", len(seed.Engines)),
	)
	return s, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_parts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return n, nil
}

const partColumns = `category, part_type, name, oem_number, brand, price_low, price_high, alternatives, maintenance_miles, notes`

func (s *Store) queryParts(ctx context.Context, where string, args ...any) ([]models.PartRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+partColumns+` FROM catalog_parts WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("parts query: %w", err)
	}
	defer rows.Close()

	var out []models.PartRecord
	for rows.Next() {
		var (
			p        models.PartRecord
			category string
			altJSON  string
			miles    sql.NullInt64
		)
		if err := rows.Scan(
			&category, &p.PartType, &p.Name, &p.OEMNumber, &p.Brand,
			&p.PriceRangeLow, &p.PriceRangeHigh, &altJSON, &miles, &p.Notes,
		); err != nil {
			return nil, fmt.Errorf("parts scan: %w", err)
		}
		p.Category = models.PartCategory(category)
		if miles.Valid {
			p.MaintenanceIntervalMiles = models.Miles(int(miles.Int64))
		}
		_ = json.Unmarshal([]byte(altJSON), &p.Alternatives)
		if len(p.Alternatives) == 0 {
			p.Alternatives = nil
		}
		p.Provenance = models.ProvenanceFallback
		p.Confidence = models.ConfidenceFallback
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// EngineProfile returns nil, nil when the code is not in the catalog.
func (s *Store) EngineProfile(ctx context.Context, code string) (*models.EngineProfile, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT code, manufacturer, displacement, valvetrain, fuel_system, max_power, max_torque, common_vehicles
		FROM engine_profiles
		WHERE code = ?
	`, code)

	var (
		p            models.EngineProfile
		mfr          string
		vehiclesJSON string
	)
	if err := row.Scan(
		&p.Code, &mfr, &p.Displacement, &p.Valvetrain, &p.FuelSystem, &p.MaxPower, &p.MaxTorque, &vehiclesJSON,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan engine profile: %w", err)
	}
	p.Manufacturer = models.Manufacturer(mfr)
	_ = json.Unmarshal([]byte(vehiclesJSON), &p.CommonVehicles)
	return &p, nil
}
