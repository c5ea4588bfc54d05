package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"partscout/internal/resolver"
	"partscout/pkg/models"
)

// RenderJSON writes res as indented JSON.
func RenderJSON(w io.Writer, res resolver.Resolution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// RenderText writes the human-readable report printed by `partscout resolve`.
func RenderText(w io.Writer, res resolver.Resolution) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) { fmt.Fprintf(tw, "%s\t%s\n", k, v) }

	row("Identifier", fmt.Sprintf("%s (%s)", res.Classification.Normalized, res.Classification.Kind))
	row("Request", res.RequestID)
	row("Vehicle", describeIdentity(res.Identity))
	if ec := res.EngineCode; ec != nil {
		s := fmt.Sprintf("%s %s, %s, confidence %.2f", ec.Manufacturer, ec.Canonical, ec.Family, ec.Confidence)
		if ec.Serial != "" {
			s += ", serial " + ec.Serial
		}
		row("Engine code", s)
	}
	if p := res.EngineProfile; p != nil {
		row("Engine", joinNonEmpty(", ", p.Displacement, p.Valvetrain, p.FuelSystem, p.MaxPower, p.MaxTorque))
	}
	if v := res.VIN; v != nil {
		check := "ok"
		if !v.CheckDigitValid {
			check = "invalid"
		}
		row("VIN", fmt.Sprintf("WMI %s, %s, check digit %s", v.WMI, v.Region, check))
	}
	if d := res.Decoded; d != nil {
		row("Decoded", joinNonEmpty(", ", d.BodyStyle, d.Trim, d.DriveType, d.Transmission, d.FuelType))
		if len(d.SafetyFeatures) > 0 {
			row("Safety", strings.Join(d.SafetyFeatures, ", "))
		}
	}
	if f := flagNames(res.Flags); f != "" {
		row("Flags", f)
	}
	row("Catalog", res.CatalogLayer)
	status := string(res.Result.SourceStatus)
	if res.Result.LiveError != "" {
		status += " (" + res.Result.LiveError + ")"
	}
	row("Live source", status)
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Result.TotalParts() == 0 {
		_, err := fmt.Fprintln(w, "\nNo parts found.")
		return err
	}

	for _, g := range res.Result.Groups {
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", strings.ToUpper(string(g.Category)), len(g.Parts)); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range g.Parts {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%.2f\t%s\n",
				p.Name, orDash(p.Brand), priceRange(p), p.Provenance, p.Confidence, orDash(strings.Join(p.Alternatives, ", ")))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func describeIdentity(v models.VehicleIdentityView) string {
	var year, engine string
	if v.ModelYear > 0 {
		year = strconv.Itoa(v.ModelYear)
	}
	if v.EngineCode != "" {
		engine = "engine " + v.EngineCode
	}
	s := joinNonEmpty(" ", string(v.Manufacturer), v.Model, year)
	s = joinNonEmpty(", ", s, engine)
	if !v.Resolved {
		s = joinNonEmpty(" ", s, "(unresolved)")
	}
	return s
}

func flagNames(f resolver.Flags) string {
	var out []string
	if f.OutOfScopeManufacturer {
		out = append(out, "out of scope manufacturer")
	}
	if f.DecodeUnavailable {
		out = append(out, "decode unavailable")
	}
	if f.NotFound {
		out = append(out, "vin not found")
	}
	if f.CheckDigitInvalid {
		out = append(out, "check digit invalid")
	}
	return strings.Join(out, ", ")
}

func priceRange(p models.PartRecord) string {
	switch {
	case p.PriceRangeLow == 0 && p.PriceRangeHigh == 0:
		return "-"
	case p.PriceRangeLow == p.PriceRangeHigh:
		return fmt.Sprintf("$%.2f", p.PriceRangeLow)
	}
	return fmt.Sprintf("$%.2f-%.2f", p.PriceRangeLow, p.PriceRangeHigh)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
