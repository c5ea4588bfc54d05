package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"partscout/pkg/models"
)

// Layer names which key shape produced a catalog hit.
type Layer int

const (
	LayerNone Layer = iota
	LayerVehicleEngine
	LayerVehicle
	LayerEngine
	LayerManufacturer
)

func (l Layer) String() string {
	switch l {
	case LayerVehicleEngine:
		return "vehicle+engine"
	case LayerVehicle:
		return "vehicle"
	case LayerEngine:
		return "engine"
	case LayerManufacturer:
		return "manufacturer"
	}
	return "none"
}

type Match struct {
	Layer   Layer
	Records []models.PartRecord
}

type layer struct {
	id    Layer
	where string
	args  func(v models.VehicleIdentity) []any
	ready func(v models.VehicleIdentity) bool
}

// layers run most specific first. Each one matches on exact key columns so
// a row never leaks into a layer whose shape it does not have.
var layers = []layer{
	{
		id:    LayerVehicleEngine,
		where: `manufacturer = ? AND model = ? AND model_year = ? AND engine_code = ?`,
		args: func(v models.VehicleIdentity) []any {
			return []any{string(v.Manufacturer()), v.Model(), v.ModelYear(), v.EngineCode()}
		},
		ready: func(v models.VehicleIdentity) bool {
			return v.Manufacturer() != "" && v.Model() != "" && v.ModelYear() > 0 && v.EngineCode() != ""
		},
	},
	{
		id:    LayerVehicle,
		where: `manufacturer = ? AND model = ? AND model_year = ? AND engine_code = ''`,
		args: func(v models.VehicleIdentity) []any {
			return []any{string(v.Manufacturer()), v.Model(), v.ModelYear()}
		},
		ready: func(v models.VehicleIdentity) bool {
			return v.Manufacturer() != "" && v.Model() != "" && v.ModelYear() > 0
		},
	},
	// an identity without a model accepts any model-specific engine entry
	{
		id:    LayerEngine,
		where: `manufacturer = ? AND engine_code = ? AND model_year = 0 AND (model = '' OR model = ? OR ? = '')`,
		args: func(v models.VehicleIdentity) []any {
			return []any{string(v.Manufacturer()), v.EngineCode(), v.Model(), v.Model()}
		},
		ready: func(v models.VehicleIdentity) bool {
			return v.Manufacturer() != "" && v.EngineCode() != ""
		},
	},
	{
		id:    LayerManufacturer,
		where: `manufacturer = ? AND model = '' AND model_year = 0 AND engine_code = ''`,
		args: func(v models.VehicleIdentity) []any {
			return []any{string(v.Manufacturer())}
		},
		ready: func(v models.VehicleIdentity) bool {
			return v.Manufacturer() != ""
		},
	},
}

// Lookup returns the records of the first non-empty layer the identity can
// address. A miss is an empty Match, not an error.
func (s *Store) Lookup(ctx context.Context, v models.VehicleIdentity) (Match, error) {
	for _, l := range layers {
		if !l.ready(v) {
			continue
		}
		recs, err := s.queryParts(ctx, l.where, l.args(v)...)
		if err != nil {
			return Match{}, fmt.Errorf("catalog layer %s: %w", l.id, err)
		}
		if len(recs) > 0 {
			s.logger.Debug("catalog hit",
				zap.String("layer", l.id.String()),
				zap.String("manufacturer", string(v.Manufacturer())),
				zap.String("model", v.Model()),
				zap.Int("year", v.ModelYear()),
				zap.String("engine", v.EngineCode()),
				zap.Int("records", len(recs)),
			)
			return Match{Layer: l.id, Records: recs}, nil
		}
	}
	return Match{Layer: LayerNone}, nil
}
