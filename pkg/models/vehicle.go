package models

import (
	"strings"
	"unicode"
)

// Manufacturer is an upper-case make tag. The supported set covers the
// Japanese makes the catalog and pattern registry know about; decoded VINs
// from other makes still carry their tag but report Supported() == false.
type Manufacturer string

const (
	Toyota     Manufacturer = "TOYOTA"
	Honda      Manufacturer = "HONDA"
	Nissan     Manufacturer = "NISSAN"
	Mazda      Manufacturer = "MAZDA"
	Mitsubishi Manufacturer = "MITSUBISHI"
	Subaru     Manufacturer = "SUBARU"
	Suzuki     Manufacturer = "SUZUKI"
	Isuzu      Manufacturer = "ISUZU"
	Daihatsu   Manufacturer = "DAIHATSU"
	Lexus      Manufacturer = "LEXUS"
	Acura      Manufacturer = "ACURA"
	Infiniti   Manufacturer = "INFINITI"
	Scion      Manufacturer = "SCION"
	Datsun     Manufacturer = "DATSUN"
)

var supportedManufacturers = map[Manufacturer]bool{
	Toyota: true, Honda: true, Nissan: true, Mazda: true, Mitsubishi: true,
	Subaru: true, Suzuki: true, Isuzu: true, Daihatsu: true, Lexus: true,
	Acura: true, Infiniti: true, Scion: true, Datsun: true,
}

// ParseManufacturer normalizes a free-form make ("Honda", " toyota ").
func ParseManufacturer(s string) Manufacturer {
	return Manufacturer(strings.ToUpper(strings.TrimSpace(s)))
}

func (m Manufacturer) Supported() bool {
	return supportedManufacturers[m]
}

func (m Manufacturer) String() string { return string(m) }

// NormalizeIdentifier upper-cases s and drops everything that is not an
// ASCII letter or digit.
func NormalizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// VehicleIdentity is the normalized result of identifier resolution.
// Fields are unexported so an identity cannot change after NewVehicleIdentity.
type VehicleIdentity struct {
	manufacturer Manufacturer
	model        string
	modelYear    int
	engineCode   string
}

// NewVehicleIdentity normalizes model and engine code to upper case.
// A zero modelYear means unknown.
func NewVehicleIdentity(m Manufacturer, model string, modelYear int, engineCode string) VehicleIdentity {
	if modelYear < 0 {
		modelYear = 0
	}
	return VehicleIdentity{
		manufacturer: ParseManufacturer(string(m)),
		model:        strings.ToUpper(strings.TrimSpace(model)),
		modelYear:    modelYear,
		engineCode:   strings.ToUpper(strings.TrimSpace(engineCode)),
	}
}

func (v VehicleIdentity) Manufacturer() Manufacturer { return v.manufacturer }
func (v VehicleIdentity) Model() string              { return v.model }
func (v VehicleIdentity) ModelYear() int             { return v.modelYear }
func (v VehicleIdentity) EngineCode() string         { return v.engineCode }

// Resolved reports whether the identity carries either an engine code or
// the full manufacturer+model+year triple.
func (v VehicleIdentity) Resolved() bool {
	if v.engineCode != "" {
		return true
	}
	return v.manufacturer != "" && v.model != "" && v.modelYear > 0
}

// VehicleIdentityView is the wire form of a VehicleIdentity.
type VehicleIdentityView struct {
	Manufacturer Manufacturer `json:"manufacturer,omitempty"`
	Model        string       `json:"model,omitempty"`
	ModelYear    int          `json:"model_year,omitempty"`
	EngineCode   string       `json:"engine_code,omitempty"`
	Resolved     bool         `json:"resolved"`
}

func (v VehicleIdentity) View() VehicleIdentityView {
	return VehicleIdentityView{
		Manufacturer: v.manufacturer,
		Model:        v.model,
		ModelYear:    v.modelYear,
		EngineCode:   v.engineCode,
		Resolved:     v.Resolved(),
	}
}

// EngineCode is the outcome of extracting an engine designator from raw input.
type EngineCode struct {
	RawInput     string       `json:"raw_input"`
	Canonical    string       `json:"canonical"`
	Manufacturer Manufacturer `json:"manufacturer"`
	Family       string       `json:"family,omitempty"`
	Serial       string       `json:"serial,omitempty"` // trailing characters discarded from identity
	Confidence   float64      `json:"confidence"`
}

// CommonVehicle is one application of an engine family.
type CommonVehicle struct {
	Make  string `json:"make" yaml:"make"`
	Model string `json:"model" yaml:"model"`
	Years string `json:"years" yaml:"years"`
}

// EngineProfile describes an engine family as stored in the catalog.
type EngineProfile struct {
	Code           string          `json:"code"`
	Manufacturer   Manufacturer    `json:"manufacturer"`
	Displacement   string          `json:"displacement,omitempty"`
	Valvetrain     string          `json:"valvetrain,omitempty"`
	FuelSystem     string          `json:"fuel_system,omitempty"`
	MaxPower       string          `json:"max_power,omitempty"`
	MaxTorque      string          `json:"max_torque,omitempty"`
	CommonVehicles []CommonVehicle `json:"common_vehicles,omitempty"`
}
