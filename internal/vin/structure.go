package vin

import (
	"fmt"
	"strings"

	"partscout/internal/identifier"
	"partscout/pkg/models"
)

// Structure holds what can be read from a VIN without any network call.
type Structure struct {
	VIN              string              `json:"vin"`
	WMI              string              `json:"wmi"`
	Region           string              `json:"region"`
	ManufacturerHint models.Manufacturer `json:"manufacturer_hint,omitempty"`
	YearHint         int                 `json:"year_hint,omitempty"`
	CheckDigit       byte                `json:"-"`
	CheckDigitValid  bool                `json:"check_digit_valid"`
}

// InScope reports whether the manufacturer hint is in the supported set.
func (s Structure) InScope() bool {
	return s.ManufacturerHint.Supported()
}

// ParseStructure decodes the position-fixed fields of a normalized VIN.
func ParseStructure(v string) (Structure, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	if !identifier.IsVIN(v) {
		return Structure{}, fmt.Errorf("%w: %q is not a 17 character VIN", identifier.ErrUnrecognizedInput, v)
	}

	s := Structure{
		VIN:        v,
		WMI:        v[:3],
		Region:     regionOf(v[0]),
		CheckDigit: v[8],
	}
	s.ManufacturerHint = manufacturerForWMI(s.WMI)
	s.YearHint = modelYear(v[9], v[6])
	s.CheckDigitValid = checkDigit(v) == v[8]
	return s, nil
}

// wmiTable maps full three-character WMIs first; twoCharWMI catches the
// remaining plants of each maker.
var wmiTable = map[string]models.Manufacturer{
	"JHM": models.Honda, "JHL": models.Honda, "JHG": models.Honda,
	"1HG": models.Honda, "2HG": models.Honda, "5FN": models.Honda, "5J6": models.Honda, "SHH": models.Honda,
	"JH4": models.Acura, "19U": models.Acura, "19X": models.Honda, "5J8": models.Acura,
	"JTH": models.Lexus, "JTJ": models.Lexus, "2T2": models.Lexus, "58A": models.Lexus,
	"JTD": models.Toyota, "JTE": models.Toyota, "JTK": models.Scion, "JTL": models.Scion, "JTN": models.Toyota,
	"1NX": models.Toyota, "2T1": models.Toyota, "4T1": models.Toyota, "4T3": models.Toyota, "5TD": models.Toyota, "5TF": models.Toyota,
	"JNK": models.Infiniti, "JNR": models.Infiniti, "5N1": models.Nissan, "1N4": models.Nissan, "1N6": models.Nissan, "3N1": models.Nissan,
	"JM1": models.Mazda, "JM3": models.Mazda, "1YV": models.Mazda, "3MZ": models.Mazda,
	"JA3": models.Mitsubishi, "JA4": models.Mitsubishi, "4A3": models.Mitsubishi, "4A4": models.Mitsubishi,
	"JF1": models.Subaru, "JF2": models.Subaru, "4S3": models.Subaru, "4S4": models.Subaru,
	"JS1": models.Suzuki, "JS2": models.Suzuki, "JS3": models.Suzuki, "2S3": models.Suzuki,
	"JAA": models.Isuzu, "JAB": models.Isuzu, "JAC": models.Isuzu, "4S1": models.Isuzu, "4S2": models.Isuzu,
	"JDA": models.Daihatsu,
	"1FA": "FORD", "1FT": "FORD", "1G1": "CHEVROLET", "1GC": "CHEVROLET", "WVW": "VOLKSWAGEN",
	"WBA": "BMW", "WDD": "MERCEDES-BENZ", "KMH": "HYUNDAI", "KNA": "KIA", "5YJ": "TESLA",
}

var twoCharWMI = map[string]models.Manufacturer{
	"JH": models.Honda, "JT": models.Toyota, "JN": models.Nissan, "JM": models.Mazda,
	"JA": models.Mitsubishi, "JF": models.Subaru, "JS": models.Suzuki,
	"1H": models.Honda, "2H": models.Honda, "5H": models.Honda,
	"2T": models.Toyota, "4T": models.Toyota, "5T": models.Toyota,
	"1N": models.Nissan, "3N": models.Nissan, "5N": models.Nissan,
}

func manufacturerForWMI(wmi string) models.Manufacturer {
	if m, ok := wmiTable[wmi]; ok {
		return m
	}
	if m, ok := twoCharWMI[wmi[:2]]; ok {
		return m
	}
	return ""
}

func regionOf(c byte) string {
	switch {
	case c >= '1' && c <= '5':
		return "North America"
	case c >= '6' && c <= '7':
		return "Oceania"
	case c >= '8' && c <= '9':
		return "South America"
	case c >= 'A' && c <= 'H':
		return "Africa"
	case c >= 'J' && c <= 'R':
		return "Asia"
	case c >= 'S' && c <= 'Z':
		return "Europe"
	}
	return "Unknown"
}

// yearCodes is the 30-position model-year cycle starting at 1980 ("A").
const yearCodes = "ABCDEFGHJKLMNPRSTVWXY123456789"

// modelYear reads position 10, using position 7 to pick the cycle: a digit
// there means 1980-2009, a letter means 2010-2039.
func modelYear(code, pos7 byte) int {
	i := strings.IndexByte(yearCodes, code)
	if i < 0 {
		return 0
	}
	year := 1980 + i
	if pos7 < '0' || pos7 > '9' {
		year += 30
	}
	return year
}

var checkWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

func transliterate(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	// A-H 1-8, J-N 1-5, P 7, R 9, S-Z 2-9
	const values = "12345678-12345-7-923456789"
	if c < 'A' || c > 'Z' {
		return 0
	}
	v := values[c-'A']
	if v == '-' {
		return 0
	}
	return int(v - '0')
}

// checkDigit computes the expected position-9 character.
func checkDigit(v string) byte {
	sum := 0
	for i := 0; i < len(v); i++ {
		sum += transliterate(v[i]) * checkWeights[i]
	}
	r := sum % 11
	if r == 10 {
		return 'X'
	}
	return byte('0' + r)
}
