package partsprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"partscout/pkg/models"
)

func TestMapCategory(t *testing.T) {
	tests := map[string]models.PartCategory{
		"Engine/Air Intake":  models.CategoryEngine,
		"Brake/Pads & Shoes": models.CategoryBrakes,
		"steering":           models.CategorySuspension,
		"Fuel System/Pumps":  models.CategoryFuel,
		" EXHAUST ":          models.CategoryExhaust,
		"Cooling":            models.CategoryCooling,
		"Body/Mirrors":       "body",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, mapCategory(in), in)
	}
}

func TestInferPartType(t *testing.T) {
	tests := []struct {
		name, fitment, want string
	}{
		{"Honda OEM Air Filter", "", "air_filter"},
		{"NGK Iridium IX Spark Plugs", "", "spark_plugs"},
		{"OEM Front Brake Pad Set", "", "brake_pads_front"},
		{"Brake Pad Set", "Rear axle", "brake_pads_rear"},
		{"Brake Pad Set", "", "brake_pads"},
		{"Vented Rotor", "Front", "brake_rotors_front"},
		{"VTEC Solenoid Valve Assembly", "", "vtec_solenoid"},
		{"Serpentine Belt", "", "serpentine_belt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferPartType(tt.name, tt.fitment), tt.name)
	}
}
