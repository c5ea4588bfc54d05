package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "1ZZFE", NormalizeIdentifier(" 1zz-fe "))
	assert.Equal(t, "D16W7300", NormalizeIdentifier("d16w7 / 300"))
	assert.Equal(t, "", NormalizeIdentifier("--  ✓"))
}

func TestManufacturer(t *testing.T) {
	assert.Equal(t, Honda, ParseManufacturer(" honda "))
	assert.True(t, ParseManufacturer("Lexus").Supported())
	assert.False(t, ParseManufacturer("Ford").Supported())
	assert.False(t, Manufacturer("").Supported())
}

func TestVehicleIdentity_Resolved(t *testing.T) {
	assert.True(t, NewVehicleIdentity(Honda, "", 0, "d16w7").Resolved())
	assert.True(t, NewVehicleIdentity(Honda, "civic", 2003, "").Resolved())
	assert.False(t, NewVehicleIdentity(Honda, "civic", 0, "").Resolved())
	assert.False(t, NewVehicleIdentity(Honda, "", 2003, "").Resolved())
	assert.False(t, NewVehicleIdentity("", "", 0, "").Resolved())

	v := NewVehicleIdentity("toyota", " camry ", -1, "1zz-fe")
	assert.Equal(t, VehicleIdentityView{
		Manufacturer: Toyota, Model: "CAMRY", EngineCode: "1ZZ-FE", Resolved: true,
	}, v.View())
}

func TestCategories(t *testing.T) {
	c, ok := ParseCategory(" Brakes ")
	assert.True(t, ok)
	assert.Equal(t, CategoryBrakes, c)
	_, ok = ParseCategory("interior")
	assert.False(t, ok)

	assert.Equal(t, 0, CategoryEngine.Order())
	assert.Equal(t, 7, CategoryExhaust.Order())
	assert.Equal(t, len(Categories), PartCategory("interior").Order())
}

func TestPartRecord_KeyAndSlug(t *testing.T) {
	assert.Equal(t, "front_brake_pads", PartTypeSlug("Front Brake Pads"))
	assert.Equal(t, "k_n_33_2304", PartTypeSlug("  K&N 33-2304 "))

	r := PartRecord{Category: CategoryEngine, Name: "Air Filter"}
	assert.Equal(t, "engine/air_filter", r.Key())
	r.PartType = "intake_filter"
	assert.Equal(t, "engine/intake_filter", r.Key())
}

func TestPartRecord_CloneIsDeep(t *testing.T) {
	r := PartRecord{Alternatives: []string{"Fram CA10123"}, MaintenanceIntervalMiles: Miles(15000)}
	c := r.WithProvenance(ProvenanceMerged, ConfidenceMerged)

	c.Alternatives[0] = "changed"
	*c.MaintenanceIntervalMiles = 1
	assert.Equal(t, "Fram CA10123", r.Alternatives[0])
	assert.Equal(t, 15000, *r.MaintenanceIntervalMiles)
	assert.Equal(t, ProvenanceMerged, c.Provenance)
	assert.Equal(t, ConfidenceMerged, c.Confidence)
}

func TestReconciliationResult(t *testing.T) {
	res := ReconciliationResult{Groups: []CategoryParts{
		{Category: CategoryEngine, Parts: []PartRecord{{Name: "a"}, {Name: "b"}}},
		{Category: CategoryBrakes, Parts: []PartRecord{{Name: "c"}}},
	}}
	assert.Equal(t, 3, res.TotalParts())
	names := []string{}
	for _, r := range res.Records() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestAccessToken_UsableAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := AccessToken{Value: "t", ExpiresAt: now.Add(10 * time.Minute)}

	assert.True(t, tok.UsableAt(now, 2*time.Minute))
	assert.False(t, tok.UsableAt(now.Add(8*time.Minute), 2*time.Minute))
	assert.False(t, tok.UsableAt(now.Add(11*time.Minute), 0))
	assert.False(t, AccessToken{}.UsableAt(now, 0))
}
