package main

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingAttribute is returned when a laserhead has no usable power value.
var ErrMissingAttribute = errors.New("missing attribute")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CombinedValue applies one module modifier to a base attribute value.
//
//	%      factors multiply: (1+b/100)(1+m/100) - 1
//	MW     m is a percentage of base: b * m/100
//	other  small m is a percent change, large m is additive
//
// A zero base counts as 1 for the multiplicative cases.
func CombinedValue(base, mod float64, unit string) float64 {
	effective := base
	if effective == 0 {
		effective = 1
	}
	switch unit {
	case "%":
		return ((1+base/100)*(1+mod/100) - 1) * 100
	case "MW":
		return effective * (1 + (mod-100)/100)
	default:
		if math.Abs(mod) <= 100 {
			return effective * (1 + mod/100)
		}
		return base + mod
	}
}

// FittedModule is a module slotted into a laserhead. For laser power a
// passive module applies even when Disabled; resistance only counts modules
// that are not Disabled.
type FittedModule struct {
	Item     Item
	Disabled bool
}

func (m *FittedModule) appliesToPower() bool {
	return m.Item.IsPassive() || !m.Disabled
}

// Fitting is a laserhead with its modules and the gadget placed on the rock.
type Fitting struct {
	Laserhead Item
	Modules   []FittedModule
	Gadget    *Item
}

func (f *Fitting) basePower(useMax bool) (float64, bool) {
	name := AttrMinLaserPower
	if useMax {
		name = AttrMaxLaserPower
	}
	if a, ok := f.Laserhead.Attribute(name); ok {
		if v, ok := a.Float(); ok {
			return v, true
		}
	}
	if a, ok := f.Laserhead.Attribute(AttrMiningLaserPower); ok {
		if lo, hi, ok := a.Range(); ok {
			if useMax {
				return hi, true
			}
			return lo, true
		}
		if v, ok := a.Float(); ok {
			return v, true
		}
	}
	return 0, false
}

// LaserPower returns the laserhead's max (or min) power with every applying
// module's "Mining Laser Power" multiplied in as value/100.
func (f *Fitting) LaserPower(useMax bool) (float64, bool) {
	power, ok := f.basePower(useMax)
	if !ok {
		return 0, false
	}
	for i := range f.Modules {
		m := &f.Modules[i]
		if !m.appliesToPower() {
			continue
		}
		if a, ok := m.Item.Attribute(AttrMiningLaserPower); ok {
			if v, ok := a.Float(); ok {
				power *= v / 100
			}
		}
	}
	return round2(power), true
}

// ResistanceModifier combines the laserhead, module and gadget resistance
// percentages and returns the multiplier, e.g. 1.25 for +25%.
func (f *Fitting) ResistanceModifier() float64 {
	res := 0.0
	if a, ok := f.Laserhead.Attribute(AttrResistance); ok {
		if v, ok := a.Float(); ok {
			res = v
		}
	}
	for i := range f.Modules {
		m := &f.Modules[i]
		if m.Disabled {
			continue
		}
		if a, ok := m.Item.Attribute(AttrResistance); ok {
			if v, ok := a.Float(); ok {
				res = CombinedValue(res, v, "%")
			}
		}
	}
	if f.Gadget != nil {
		if a, ok := f.Gadget.Attribute(AttrResistance); ok {
			if v, ok := a.Float(); ok {
				res = CombinedValue(res, v, "%")
			}
		}
	}
	return 1 + res/100
}

// PowerSource converts the fitting into an allocator input.
func (f *Fitting) PowerSource() (PowerSource, error) {
	maxP, ok := f.LaserPower(true)
	if !ok {
		return PowerSource{}, fmt.Errorf("%w: %s has no %q", ErrMissingAttribute, f.Laserhead.Name, AttrMaxLaserPower)
	}
	minP, _ := f.LaserPower(false)
	return PowerSource{
		Name:               CleanLaserName(f.Laserhead.Name),
		MaxPower:           maxP,
		MinPower:           minP,
		ResistanceModifier: f.ResistanceModifier(),
	}, nil
}

// LaserSelection names a laserhead and its modules in a catalog.
type LaserSelection struct {
	Laserhead string
	Modules   []string
	// Disabled lists modules that are slotted but switched off.
	Disabled []string
}

// BuildFitting resolves a selection against the catalog. gadget may be empty.
func BuildFitting(cat *Catalog, sel LaserSelection, gadget string) (*Fitting, error) {
	lh, err := cat.Find(CategoryLaserheads, sel.Laserhead)
	if err != nil {
		return nil, err
	}
	off := make(map[string]bool, len(sel.Disabled))
	for _, name := range sel.Disabled {
		off[name] = true
	}
	f := &Fitting{Laserhead: *lh}
	for _, name := range sel.Modules {
		m, err := cat.Find(CategoryModules, name)
		if err != nil {
			return nil, err
		}
		f.Modules = append(f.Modules, FittedModule{Item: *m, Disabled: off[name]})
	}
	if gadget != "" {
		g, err := cat.Find(CategoryGadgets, gadget)
		if err != nil {
			return nil, err
		}
		f.Gadget = g
	}
	return f, nil
}

// SourcesFromCatalog builds one PowerSource per selection, in order.
func SourcesFromCatalog(cat *Catalog, sels []LaserSelection, gadget string) ([]PowerSource, error) {
	sources := make([]PowerSource, 0, len(sels))
	for _, sel := range sels {
		f, err := BuildFitting(cat, sel, gadget)
		if err != nil {
			return nil, err
		}
		src, err := f.PowerSource()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
