package partsprovider

import (
	"strings"

	"partscout/pkg/models"
)

// categoryAliases maps the first segment of a provider category path
// ("Brake/Pads & Shoes") onto the fixed category set.
var categoryAliases = map[string]models.PartCategory{
	"engine":       models.CategoryEngine,
	"air intake":   models.CategoryEngine,
	"ignition":     models.CategoryEngine,
	"brake":        models.CategoryBrakes,
	"brakes":       models.CategoryBrakes,
	"suspension":   models.CategorySuspension,
	"steering":     models.CategorySuspension,
	"transmission": models.CategoryTransmission,
	"drivetrain":   models.CategoryTransmission,
	"clutch":       models.CategoryTransmission,
	"electrical":   models.CategoryElectrical,
	"charging":     models.CategoryElectrical,
	"starting":     models.CategoryElectrical,
	"cooling":      models.CategoryCooling,
	"fuel":         models.CategoryFuel,
	"fuel system":  models.CategoryFuel,
	"exhaust":      models.CategoryExhaust,
}

// mapCategory returns the category for a provider path. Unknown paths are
// returned lower-cased so the caller can tell they are outside the set.
func mapCategory(path string) models.PartCategory {
	head, _, _ := strings.Cut(path, "/")
	head = strings.ToLower(strings.TrimSpace(head))
	if c, ok := categoryAliases[head]; ok {
		return c
	}
	if c, ok := models.ParseCategory(head); ok {
		return c
	}
	return models.PartCategory(head)
}

type partTypeRule struct {
	keyword  string
	partType string
	sided    bool // append _front / _rear when the text says so
}

// partTypeRules are checked in order against the lower-cased name and
// fitment text; the first keyword found wins.
var partTypeRules = []partTypeRule{
	{"air filter", "air_filter", false},
	{"oil filter", "oil_filter", false},
	{"spark plug", "spark_plugs", false},
	{"timing belt", "timing_belt", false},
	{"water pump", "water_pump", false},
	{"vtec", "vtec_solenoid", false},
	{"coolant", "coolant", false},
	{"brake pad", "brake_pads", true},
	{"rotor", "brake_rotors", true},
	{"shock", "shock_absorbers", true},
	{"strut", "struts", true},
}

// inferPartType derives the merge slot for a provider part that did not
// say which slot it fills.
func inferPartType(name, fitment string) string {
	lname := strings.ToLower(name)
	text := lname + " " + strings.ToLower(fitment)
	for _, r := range partTypeRules {
		if !strings.Contains(lname, r.keyword) {
			continue
		}
		if r.sided {
			switch {
			case strings.Contains(text, "front"):
				return r.partType + "_front"
			case strings.Contains(text, "rear"):
				return r.partType + "_rear"
			}
		}
		return r.partType
	}
	return models.PartTypeSlug(name)
}
