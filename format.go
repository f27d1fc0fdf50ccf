package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

func pct(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

func sourceLabel(i int, s PowerSource) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("source %d", i+1)
}

// FormatAllocation renders an allocation and the engaged sources.
func FormatAllocation(a Allocation, sources []PowerSource) string {
	var sb strings.Builder
	noun := "sources"
	if a.Available == 1 {
		noun = "source"
	}
	fmt.Fprintf(&sb, "Requires %d of %d %s at %s power", a.Engaged, a.Available, noun, pct(a.Fraction))
	if !a.Feasible {
		sb.WriteString(" (INFEASIBLE: all sources engaged)")
	}
	sb.WriteByte('\n')

	fmt.Fprintf(&sb, "  %-3s %-24s %10s %10s %8s\n", "#", "Source", "Max MW", "Min MW", "ResMod")
	for i := 0; i < a.Engaged && i < len(sources); i++ {
		s := sources[i]
		fmt.Fprintf(&sb, "  %-3d %-24s %10.2f %10.2f %8.3f\n", i+1, sourceLabel(i, s), s.MaxPower, s.MinPower, s.ResistanceModifier)
	}
	fmt.Fprintf(&sb, "  required %.2f of %.2f (resistance modifier %.4f)\n",
		a.RequiredPower, a.CumulativeMaxPower, a.CumulativeResistance)
	return sb.String()
}

// FormatCurve renders every nth curve point as a table. The last point is
// always included.
func FormatCurve(points []CurvePoint, every int) string {
	if every < 1 {
		every = 1
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%10s %14s %14s\n", "Resist %", "Max mass", "Min mass")
	fmt.Fprintf(&sb, "%10s %14s %14s\n", "----------", "--------------", "--------------")
	for i, p := range points {
		if i%every != 0 && i != len(points)-1 {
			continue
		}
		fmt.Fprintf(&sb, "%10.1f %14.0f %14.0f\n", p.Resistance, p.MaxMass, p.MinMass)
	}
	return sb.String()
}

// FormatTierList renders the passive module listing.
func FormatTierList(entries []TierEntry) string {
	var sb strings.Builder
	sb.WriteString("Passive Modules:\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "  %-50s Tier: %s\n", e.Name, e.Tier)
	}
	fmt.Fprintf(&sb, "\nTotal: %d passive modules\n", len(entries))
	return sb.String()
}

// FormatTierChanges renders the result of a tier edit.
func FormatTierChanges(changes []TierChange, missing []string) string {
	var sb strings.Builder
	for _, c := range changes {
		if c.Added {
			fmt.Fprintf(&sb, "Added Tier %d to %q\n", c.New, c.Name)
		} else {
			fmt.Fprintf(&sb, "Updated %q: Tier %s -> %d\n", c.Name, c.Old, c.New)
		}
	}
	for _, name := range missing {
		fmt.Fprintf(&sb, "Module %q not found\n", name)
	}
	if len(changes) == 0 {
		sb.WriteString("No changes were made\n")
	}
	return sb.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
