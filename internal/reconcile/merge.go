package reconcile

import (
	"cmp"
	"slices"

	"partscout/pkg/models"
)

// Usable reports whether a live record can take part in a merge: it must
// name a part in one of the known categories.
func Usable(r models.PartRecord) bool {
	_, ok := models.ParseCategory(string(r.Category))
	return ok && r.Name != ""
}

// MergeRecord combines the live and fallback candidates for one slot. The
// live record wins every field it sets; the fallback fills the gaps. ok is
// false only when both are nil. Neither input is modified.
func MergeRecord(live, fallback *models.PartRecord) (models.PartRecord, bool) {
	switch {
	case live == nil && fallback == nil:
		return models.PartRecord{}, false
	case live == nil:
		return fallback.Clone(), true
	case fallback == nil:
		return live.WithProvenance(models.ProvenanceLive, models.ConfidenceLive), true
	}

	out := live.WithProvenance(models.ProvenanceMerged, models.ConfidenceMerged)
	if len(out.Alternatives) == 0 {
		out.Alternatives = slices.Clone(fallback.Alternatives)
	}
	if out.MaintenanceIntervalMiles == nil && fallback.MaintenanceIntervalMiles != nil {
		out.MaintenanceIntervalMiles = models.Miles(*fallback.MaintenanceIntervalMiles)
	}
	if out.OEMNumber == "" {
		out.OEMNumber = fallback.OEMNumber
	}
	if out.Brand == "" {
		out.Brand = fallback.Brand
	}
	if out.PriceRangeLow == 0 && out.PriceRangeHigh == 0 {
		out.PriceRangeLow = fallback.PriceRangeLow
		out.PriceRangeHigh = fallback.PriceRangeHigh
	}
	if out.Notes == "" {
		out.Notes = fallback.Notes
	}
	if out.PartType == "" {
		out.PartType = fallback.PartType
	}
	return out, true
}

// MergeSets pairs live and fallback records by slot and returns the
// non-empty categories in display order. When the live side has several
// records for one slot only the first is paired; the rest stay Live.
func MergeSets(live, fallback []models.PartRecord) []models.CategoryParts {
	fbByKey := make(map[string]int, len(fallback))
	for i := range fallback {
		if _, dup := fbByKey[fallback[i].Key()]; !dup {
			fbByKey[fallback[i].Key()] = i
		}
	}

	paired := make(map[int]bool, len(fallback))
	merged := make([]models.PartRecord, 0, len(live)+len(fallback))
	for i := range live {
		var fb *models.PartRecord
		if j, ok := fbByKey[live[i].Key()]; ok && !paired[j] {
			fb = &fallback[j]
			paired[j] = true
		}
		if r, ok := MergeRecord(&live[i], fb); ok {
			merged = append(merged, r)
		}
	}
	for j := range fallback {
		if paired[j] {
			continue
		}
		if r, ok := MergeRecord(nil, &fallback[j]); ok {
			merged = append(merged, r)
		}
	}
	return group(merged)
}

func group(records []models.PartRecord) []models.CategoryParts {
	byCat := make(map[models.PartCategory][]models.PartRecord)
	for _, r := range records {
		byCat[r.Category] = append(byCat[r.Category], r)
	}

	out := make([]models.CategoryParts, 0, len(byCat))
	for _, c := range models.Categories {
		parts := byCat[c]
		if len(parts) == 0 {
			continue
		}
		slices.SortStableFunc(parts, compareRecords)
		out = append(out, models.CategoryParts{Category: c, Parts: parts})
	}
	return out
}

// compareRecords orders by confidence (high first), then low price, then name.
func compareRecords(a, b models.PartRecord) int {
	return cmp.Or(
		cmp.Compare(b.Confidence, a.Confidence),
		cmp.Compare(a.PriceRangeLow, b.PriceRangeLow),
		cmp.Compare(a.Name, b.Name),
	)
}
