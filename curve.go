package main

import "math"

// CurvePoint is the breakable mass of the combined sources at one resistance.
type CurvePoint struct {
	Resistance float64 `json:"resistance"`
	MaxMass    float64 `json:"maxMass"`
	MinMass    float64 `json:"minMass"`
}

// MaxBreakableMass sums each source's power / ((1 + R/100 * mod) * factor)
// at resistance R, for max and min power.
func MaxBreakableMass(sources []PowerSource, resistance, factor float64) CurvePoint {
	p := CurvePoint{Resistance: resistance}
	for i := range sources {
		s := &sources[i]
		denom := (1 + resistance/100*s.ResistanceModifier) * factor
		p.MaxMass += s.MaxPower / denom
		p.MinMass += s.MinPower / denom
	}
	return p
}

// BreakabilityCurve samples MaxBreakableMass from 0 to 100% resistance.
// Points sit at i*step so the last one lands on 100 when step divides it.
func BreakabilityCurve(sources []PowerSource, factor, step float64) []CurvePoint {
	if step <= 0 || len(sources) == 0 {
		return nil
	}
	n := int(math.Floor(100/step + 1e-9))
	points := make([]CurvePoint, 0, n+1)
	for i := 0; i <= n; i++ {
		points = append(points, MaxBreakableMass(sources, float64(i)*step, factor))
	}
	return points
}
