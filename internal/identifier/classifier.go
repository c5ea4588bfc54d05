package identifier

import (
	"errors"
	"fmt"
	"strings"

	"partscout/pkg/models"
)

var ErrUnrecognizedInput = errors.New("unrecognized input")

// VINLength is the fixed length of a modern VIN.
const VINLength = 17

type Kind string

const (
	KindVIN        Kind = "vin"
	KindEngineCode Kind = "engine_code"
)

// Matcher reports whether a normalized string contains a known engine-code
// shape. *enginecode.Registry satisfies it.
type Matcher interface {
	Contains(normalized string) bool
}

type Classification struct {
	Kind       Kind   `json:"kind"`
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// Classify normalizes raw and decides how it should be resolved. It has no
// side effects; the same input always yields the same answer.
func Classify(raw string, engines Matcher) (Classification, error) {
	s := models.NormalizeIdentifier(raw)
	if s == "" {
		return Classification{}, fmt.Errorf("%w: empty identifier", ErrUnrecognizedInput)
	}

	c := Classification{Raw: raw, Normalized: s}
	if IsVIN(s) {
		c.Kind = KindVIN
		return c, nil
	}
	if engines != nil && engines.Contains(s) {
		c.Kind = KindEngineCode
		return c, nil
	}
	return Classification{}, fmt.Errorf("%w: %q is neither a VIN nor a known engine code", ErrUnrecognizedInput, raw)
}

// vinAlphabet is A-Z and 0-9 without I, O and Q.
const vinAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

// IsVIN reports whether s is exactly 17 characters from the VIN alphabet.
// s must already be normalized.
func IsVIN(s string) bool {
	if len(s) != VINLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(vinAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
