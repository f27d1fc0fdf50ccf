package main

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientSources is returned when there is no source to engage.
var ErrInsufficientSources = errors.New("no power sources to allocate")

// InvalidProfileError reports a physically meaningless rock or rate.
type InvalidProfileError struct {
	Field string
	Value float64
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid rock profile: %s = %v", e.Field, e.Value)
}

// InvalidSourceError reports an engaged source with unusable values.
type InvalidSourceError struct {
	Index int
	Field string
	Value float64
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid power source %d: %s = %v", e.Index, e.Field, e.Value)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Allocator computes power fractions at a fixed base consumption rate
// (energy per unit mass per unit resistance factor).
type Allocator struct {
	BaseConsumptionRate float64
}

func NewAllocator(rate float64) Allocator {
	return Allocator{BaseConsumptionRate: rate}
}

func (a Allocator) validate(rock RockProfile) error {
	if !finite(a.BaseConsumptionRate) || a.BaseConsumptionRate <= 0 {
		return &InvalidProfileError{Field: "baseConsumptionRate", Value: a.BaseConsumptionRate}
	}
	if !finite(rock.Mass) || rock.Mass <= 0 {
		return &InvalidProfileError{Field: "mass", Value: rock.Mass}
	}
	if !finite(rock.ResistancePercentage) || rock.ResistancePercentage < 0 {
		return &InvalidProfileError{Field: "resistancePercentage", Value: rock.ResistancePercentage}
	}
	return nil
}

func checkSource(i int, s *PowerSource) error {
	switch {
	case !finite(s.MaxPower) || s.MaxPower <= 0:
		return &InvalidSourceError{Index: i, Field: "maxPower", Value: s.MaxPower}
	case !finite(s.MinPower) || s.MinPower < 0:
		return &InvalidSourceError{Index: i, Field: "minPower", Value: s.MinPower}
	case !finite(s.ResistanceModifier) || s.ResistanceModifier <= 0:
		return &InvalidSourceError{Index: i, Field: "resistanceModifier", Value: s.ResistanceModifier}
	}
	return nil
}

// requiredPower is mass * rate * (1 + resistance/100) * modifier.
func (a Allocator) requiredPower(rock RockProfile, modifier float64) float64 {
	return rock.Mass * a.BaseConsumptionRate * (1 + rock.ResistancePercentage/100) * modifier
}

// Allocate engages sources in order until the required power fits within the
// cumulative max power of the engaged prefix, or the list runs out. Resistance
// modifiers compound multiplicatively over the engaged sources. Sources past
// the returned prefix are never read.
func (a Allocator) Allocate(rock RockProfile, sources []PowerSource) (Allocation, error) {
	if err := a.validate(rock); err != nil {
		return Allocation{}, err
	}
	if len(sources) == 0 {
		return Allocation{}, ErrInsufficientSources
	}
	if err := checkSource(0, &sources[0]); err != nil {
		return Allocation{}, err
	}

	engaged := 1
	modifier := sources[0].ResistanceModifier
	capacity := sources[0].MaxPower
	required := a.requiredPower(rock, modifier)
	fraction := required / capacity

	for fraction > 1.0 && engaged < len(sources) {
		next := &sources[engaged]
		if err := checkSource(engaged, next); err != nil {
			return Allocation{}, err
		}
		engaged++
		modifier *= next.ResistanceModifier
		capacity += next.MaxPower
		required = a.requiredPower(rock, modifier)
		fraction = required / capacity
	}

	return Allocation{
		Fraction:             fraction,
		Engaged:              engaged,
		Available:            len(sources),
		RequiredPower:        required,
		CumulativeMaxPower:   capacity,
		CumulativeResistance: modifier,
		Feasible:             fraction <= 1.0,
	}, nil
}

// RequiredPowerFraction returns only the fraction from Allocate. A value above
// 1.0 means every source was engaged and the rock is still out of reach.
func (a Allocator) RequiredPowerFraction(rock RockProfile, sources []PowerSource) (float64, error) {
	alloc, err := a.Allocate(rock, sources)
	if err != nil {
		return 0, err
	}
	return alloc.Fraction, nil
}
