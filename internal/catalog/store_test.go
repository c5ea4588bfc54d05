package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscout/pkg/database"
	"partscout/pkg/models"
)

func openSeeded(t *testing.T, doc string) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(database.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	seed, err := ParseSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, db, seed))
	return NewStore(db, nil)
}

func openDefault(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), database.DefaultConfig(), "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const civicLayers = `
entries:
  - manufacturer: honda
    model: civic
    engine_code: d16w7
    parts:
      - {category: engine, part_type: timing_belt, name: Timing Belt, price_low: 45, price_high: 85}
  - manufacturer: HONDA
    model: CIVIC
    model_year: 2003
    engine_code: D17A2
    parts:
      - {category: engine, part_type: air_filter, name: GX Air Filter, price_low: 12, price_high: 20}
`

func TestLookup_YearlessEngineBeatsOtherEngine(t *testing.T) {
	s := openSeeded(t, civicLayers)

	m, err := s.Lookup(context.Background(), models.NewVehicleIdentity(models.Honda, "Civic", 2003, "D16W7"))
	require.NoError(t, err)

	assert.Equal(t, LayerEngine, m.Layer)
	require.Len(t, m.Records, 1)
	assert.Equal(t, "Timing Belt", m.Records[0].Name)
	assert.Equal(t, models.ProvenanceFallback, m.Records[0].Provenance)
	assert.Equal(t, models.ConfidenceFallback, m.Records[0].Confidence)
}

func TestLookup_ExactLayer(t *testing.T) {
	s := openSeeded(t, civicLayers)

	m, err := s.Lookup(context.Background(), models.NewVehicleIdentity(models.Honda, "CIVIC", 2003, "D17A2"))
	require.NoError(t, err)
	assert.Equal(t, LayerVehicleEngine, m.Layer)
	require.Len(t, m.Records, 1)
	assert.Equal(t, "GX Air Filter", m.Records[0].Name)
}

func TestLookup_EngineLayerRespectsModel(t *testing.T) {
	s := openSeeded(t, civicLayers)

	m, err := s.Lookup(context.Background(), models.NewVehicleIdentity(models.Honda, "ACCORD", 0, "D16W7"))
	require.NoError(t, err)
	assert.Equal(t, LayerNone, m.Layer)
	assert.Empty(t, m.Records)

	m, err = s.Lookup(context.Background(), models.NewVehicleIdentity(models.Honda, "", 0, "D16W7"))
	require.NoError(t, err)
	assert.Equal(t, LayerEngine, m.Layer)
}

func TestLookup_DefaultSeed(t *testing.T) {
	s := openDefault(t)
	ctx := context.Background()

	t.Run("vehicle", func(t *testing.T) {
		m, err := s.Lookup(ctx, models.NewVehicleIdentity(models.Toyota, "Camry", 2005, ""))
		require.NoError(t, err)
		assert.Equal(t, LayerVehicle, m.Layer)
		assert.Len(t, m.Records, 7)

		air := m.Records[0]
		assert.Equal(t, "air_filter", air.PartType)
		assert.Equal(t, []string{"Fram CA10123", "K&N 33-2304", "Mann C 25 111"}, air.Alternatives)
		require.NotNil(t, air.MaintenanceIntervalMiles)
		assert.Equal(t, 15000, *air.MaintenanceIntervalMiles)
	})

	t.Run("engine only", func(t *testing.T) {
		m, err := s.Lookup(ctx, models.NewVehicleIdentity(models.Honda, "", 0, "D16W7"))
		require.NoError(t, err)
		assert.Equal(t, LayerEngine, m.Layer)
		assert.Len(t, m.Records, 9)
	})

	t.Run("generic", func(t *testing.T) {
		m, err := s.Lookup(ctx, models.NewVehicleIdentity(models.Nissan, "Sentra", 2004, ""))
		require.NoError(t, err)
		assert.Equal(t, LayerManufacturer, m.Layer)
		assert.Len(t, m.Records, 5)
		assert.Nil(t, m.Records[0].Alternatives)
	})

	t.Run("miss", func(t *testing.T) {
		m, err := s.Lookup(ctx, models.NewVehicleIdentity("FORD", "FOCUS", 2005, ""))
		require.NoError(t, err)
		assert.Equal(t, LayerNone, m.Layer)
		assert.Empty(t, m.Records)
	})

	t.Run("no manufacturer", func(t *testing.T) {
		m, err := s.Lookup(ctx, models.NewVehicleIdentity("", "", 0, "D16W7"))
		require.NoError(t, err)
		assert.Equal(t, LayerNone, m.Layer)
	})
}

func TestEngineProfile(t *testing.T) {
	s := openDefault(t)
	ctx := context.Background()

	p, err := s.EngineProfile(ctx, "1ZZ-FE")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.Toyota, p.Manufacturer)
	assert.Equal(t, "DOHC VVT-i", p.Valvetrain)
	assert.Contains(t, p.CommonVehicles, models.CommonVehicle{Make: "Toyota", Model: "Camry", Years: "2000-2008"})

	p, err = s.EngineProfile(ctx, "K20A")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestApply_Idempotent(t *testing.T) {
	s := openDefault(t)
	ctx := context.Background()

	before, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 90, before)

	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, s.DB, seed))

	after, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoError(t, s.Ping(ctx))
}

func TestParseSeed_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown category": `
entries:
  - manufacturer: HONDA
    parts: [{category: wheels, name: Rim}]`,
		"year without model": `
entries:
  - manufacturer: HONDA
    model_year: 2003
    parts: [{category: engine, name: Belt}]`,
		"missing name": `
entries:
  - manufacturer: HONDA
    parts: [{category: engine}]`,
		"unknown field": `
entries:
  - manufacturer: HONDA
    colour: red`,
		"engine without code": `
engines:
  - manufacturer: HONDA`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSeed_SlugsMissingPartType(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(`
entries:
  - manufacturer: mazda
    parts: [{category: Cooling, name: Upper Radiator Hose}]`))
	require.NoError(t, err)
	require.Len(t, seed.Entries, 1)
	assert.Equal(t, "MAZDA", seed.Entries[0].Manufacturer)
	assert.Equal(t, "cooling", seed.Entries[0].Parts[0].Category)
	assert.Equal(t, "upper_radiator_hose", seed.Entries[0].Parts[0].PartType)
}
