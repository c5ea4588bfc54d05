package vin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscout/internal/identifier"
	"partscout/pkg/models"
)

func TestParseStructure(t *testing.T) {
	tests := []struct {
		name       string
		vin        string
		wmi        string
		region     string
		mfr        models.Manufacturer
		year       int
		checkValid bool
		inScope    bool
	}{
		{"honda us plant", "1HGEM21533L123456", "1HG", "North America", models.Honda, 2003, true, true},
		{"honda bad check digit", "1HGEM21503L123456", "1HG", "North America", models.Honda, 2003, false, true},
		{"toyota kentucky", "4T1BE32K15U123456", "4T1", "North America", models.Toyota, 2005, true, true},
		{"toyota japan second cycle", "JTDKN3DU6A0123456", "JTD", "Asia", models.Toyota, 2010, true, true},
		{"ford out of scope", "1FAFP34NX5W123456", "1FA", "North America", "FORD", 2005, true, false},
		{"x check digit", "1M8GDM9AXKP042788", "1M8", "North America", "", 1989, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseStructure(tt.vin)
			require.NoError(t, err)
			assert.Equal(t, tt.vin, s.VIN)
			assert.Equal(t, tt.wmi, s.WMI)
			assert.Equal(t, tt.region, s.Region)
			assert.Equal(t, tt.mfr, s.ManufacturerHint)
			assert.Equal(t, tt.year, s.YearHint)
			assert.Equal(t, tt.checkValid, s.CheckDigitValid)
			assert.Equal(t, tt.inScope, s.InScope())
		})
	}
}

func TestParseStructure_TwoCharFallback(t *testing.T) {
	// JHZ is not in the three-character table
	s, err := ParseStructure("JHZEM21533L123456")
	require.NoError(t, err)
	assert.Equal(t, models.Honda, s.ManufacturerHint)
	assert.Equal(t, "Asia", s.Region)
}

func TestParseStructure_Invalid(t *testing.T) {
	for _, v := range []string{"", "1HGEM2153", "1HGEM21533L12345I", "1HGEM21533L1234567"} {
		_, err := ParseStructure(v)
		assert.ErrorIs(t, err, identifier.ErrUnrecognizedInput, v)
	}
}

func TestCheckDigit(t *testing.T) {
	assert.Equal(t, byte('1'), checkDigit("11111111111111111"))
	assert.Equal(t, byte('X'), checkDigit("1M8GDM9AXKP042788"))
	assert.Equal(t, byte('3'), checkDigit("1HGEM21503L123456"))
}

func TestModelYear(t *testing.T) {
	assert.Equal(t, 1980, modelYear('A', '1'))
	assert.Equal(t, 2000, modelYear('Y', '1'))
	assert.Equal(t, 2009, modelYear('9', '1'))
	assert.Equal(t, 2010, modelYear('A', 'D'))
	assert.Equal(t, 2024, modelYear('R', 'D'))
	assert.Equal(t, 0, modelYear('U', '1'))
}
