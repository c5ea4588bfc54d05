package models

import (
	"slices"
	"strings"
	"unicode"
)

type PartCategory string

const (
	CategoryEngine       PartCategory = "engine"
	CategoryBrakes       PartCategory = "brakes"
	CategorySuspension   PartCategory = "suspension"
	CategoryTransmission PartCategory = "transmission"
	CategoryElectrical   PartCategory = "electrical"
	CategoryCooling      PartCategory = "cooling"
	CategoryFuel         PartCategory = "fuel"
	CategoryExhaust      PartCategory = "exhaust"
)

// Categories lists every category in display order.
var Categories = []PartCategory{
	CategoryEngine,
	CategoryBrakes,
	CategorySuspension,
	CategoryTransmission,
	CategoryElectrical,
	CategoryCooling,
	CategoryFuel,
	CategoryExhaust,
}

// ParseCategory accepts the enum value in any case. ok is false for
// anything outside the fixed enumeration.
func ParseCategory(s string) (PartCategory, bool) {
	c := PartCategory(strings.ToLower(strings.TrimSpace(s)))
	return c, slices.Contains(Categories, c)
}

// Order returns the display position of c, or len(Categories) if unknown.
func (c PartCategory) Order() int {
	if i := slices.Index(Categories, c); i >= 0 {
		return i
	}
	return len(Categories)
}

type Provenance string

const (
	ProvenanceLive     Provenance = "live"
	ProvenanceFallback Provenance = "fallback"
	ProvenanceMerged   Provenance = "merged"
)

// Confidence values assigned by provenance.
const (
	ConfidenceFallback = 0.7
	ConfidenceLive     = 0.9
	ConfidenceMerged   = 0.95
)

type SourceStatus string

const (
	LiveAvailable   SourceStatus = "live_available"
	LiveDegraded    SourceStatus = "live_degraded"
	LiveUnavailable SourceStatus = "live_unavailable"
)

// PartRecord is a single candidate part. Records are values: anything that
// changes a record builds a new one (see WithProvenance).
type PartRecord struct {
	Category                 PartCategory `json:"category"`
	PartType                 string       `json:"part_type"`
	Name                     string       `json:"name"`
	OEMNumber                string       `json:"oem_number,omitempty"`
	Brand                    string       `json:"brand,omitempty"`
	PriceRangeLow            float64      `json:"price_range_low"`
	PriceRangeHigh           float64      `json:"price_range_high"`
	Alternatives             []string     `json:"alternatives,omitempty"`
	MaintenanceIntervalMiles *int         `json:"maintenance_interval_miles,omitempty"`
	Notes                    string       `json:"notes,omitempty"`
	Provenance               Provenance   `json:"provenance"`
	Confidence               float64      `json:"confidence"`
}

// Clone returns a deep copy so callers never share slices or pointers.
func (p PartRecord) Clone() PartRecord {
	out := p
	out.Alternatives = slices.Clone(p.Alternatives)
	if p.MaintenanceIntervalMiles != nil {
		v := *p.MaintenanceIntervalMiles
		out.MaintenanceIntervalMiles = &v
	}
	return out
}

func (p PartRecord) WithProvenance(prov Provenance, confidence float64) PartRecord {
	out := p.Clone()
	out.Provenance = prov
	out.Confidence = confidence
	return out
}

// Key identifies the slot a record fills within a result: two records with
// the same key describe the same part.
func (p PartRecord) Key() string {
	pt := p.PartType
	if pt == "" {
		pt = PartTypeSlug(p.Name)
	}
	return string(p.Category) + "/" + pt
}

// PartTypeSlug turns "Front Brake Pads" into "front_brake_pads".
func PartTypeSlug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

// Miles is a convenience for building optional maintenance intervals.
func Miles(n int) *int { return &n }

type CategoryParts struct {
	Category PartCategory `json:"category"`
	Parts    []PartRecord `json:"parts"`
}

type ReconciliationResult struct {
	Groups       []CategoryParts `json:"groups"`
	SourceStatus SourceStatus    `json:"source_status"`
	LiveError    string          `json:"live_error,omitempty"`
}

func (r ReconciliationResult) TotalParts() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Parts)
	}
	return n
}

// Records flattens the groups in display order.
func (r ReconciliationResult) Records() []PartRecord {
	out := make([]PartRecord, 0, r.TotalParts())
	for _, g := range r.Groups {
		out = append(out, g.Parts...)
	}
	return out
}
