package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Attribute names used by the UEX item-attribute records.
const (
	AttrMaxLaserPower    = "Maximum Laser Power"
	AttrMinLaserPower    = "Minimum Laser Power"
	AttrMiningLaserPower = "Mining Laser Power"
	AttrResistance       = "Resistance"
	AttrItemType         = "Item Type"
	AttrTier             = "Tier"
)

const (
	ItemTypePassive = "Passive"
	ItemTypeActive  = "Active"
)

// hardcodedUnits fills in units the API leaves blank.
var hardcodedUnits = map[string]string{
	"Minimum Laser Power":        "MW",
	"Maximum Laser Power":        "MW",
	"Mining Laser Power":         "MW",
	"Extraction Laser Power":     "MW",
	"Resistance":                 "%",
	"Laser Instability":          "%",
	"Optimal Charge Window Size": "%",
	"Optimal Charge Window Rate": "%",
	"Optimal Charge Rate":        "%",
	"Catastrophic Charge Rate":   "%",
	"Maximum Range":              "m",
	"Optimal Range":              "m",
	"Shatter Damage":             "%",
	"Maximum Damage":             "%",
	"Inert Material Level":       "%",
	"Duration":                   "s",
	"Uses":                       "",
}

// RockProfile is the mining target.
type RockProfile struct {
	Mass                 float64 `json:"mass"`
	ResistancePercentage float64 `json:"resistancePercentage"`
}

// PowerSource is one laser tier. Sources are engaged in slice order.
type PowerSource struct {
	Name               string  `json:"name,omitempty"`
	MaxPower           float64 `json:"maxPower"`
	MinPower           float64 `json:"minPower"`
	ResistanceModifier float64 `json:"resistanceModifier"`
}

// Allocation is the outcome of engaging the minimal prefix of sources.
type Allocation struct {
	Fraction             float64 `json:"fraction"`
	Engaged              int     `json:"engaged"`
	Available            int     `json:"available"`
	RequiredPower        float64 `json:"requiredPower"`
	CumulativeMaxPower   float64 `json:"cumulativeMaxPower"`
	CumulativeResistance float64 `json:"cumulativeResistanceModifier"`
	Feasible             bool    `json:"feasible"`
}

// Category maps a UEX category id to the file prefix used in the data dir.
type Category struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

const (
	CategoryGadgets    = "gadgets"
	CategoryLaserheads = "laserheads"
	CategoryModules    = "modules"
)

// marshalRaw is json.Marshal without HTML escaping.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// fieldPatch is one key to write into a raw record.
type fieldPatch struct {
	key     string
	changed bool
	value   any
}

// patchObject writes the changed keys into raw, leaving every other byte of
// the record alone. A nil raw starts from an empty object, so keys land in
// patch order.
func patchObject(raw json.RawMessage, patches ...fieldPatch) ([]byte, error) {
	out := []byte(raw)
	if out == nil {
		out = []byte("{}")
	}
	for _, p := range patches {
		if !p.changed {
			continue
		}
		enc, err := marshalRaw(p.value)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, p.key, enc); err != nil {
			return nil, fmt.Errorf("set %s: %w", p.key, err)
		}
	}
	return out, nil
}

// Attribute is a single item-attribute record. Raw is the record as read;
// rewrites only touch the keys whose decoded value changed.
type Attribute struct {
	ItemID int
	Name   string
	Value  string
	Unit   string
	Raw    json.RawMessage
}

// MarshalJSON writes Raw with the changed known keys patched in.
func (a Attribute) MarshalJSON() ([]byte, error) {
	fresh := a.Raw == nil
	orig := gjson.ParseBytes(a.Raw)
	return patchObject(a.Raw,
		fieldPatch{"id_item", a.ItemID != 0 && int(orig.Get("id_item").Int()) != a.ItemID, a.ItemID},
		fieldPatch{"attribute_name", fresh || orig.Get("attribute_name").String() != a.Name, a.Name},
		fieldPatch{"value", fresh || orig.Get("value").String() != a.Value, a.Value},
		fieldPatch{"unit", fresh || orig.Get("unit").String() != a.Unit, a.Unit},
	)
}

// UnitOrDefault returns the record's unit, or the known unit for its name.
func (a Attribute) UnitOrDefault() string {
	if a.Unit != "" {
		return a.Unit
	}
	return hardcodedUnits[a.Name]
}

// Float parses Value as a number.
func (a Attribute) Float() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var rangeValue = regexp.MustCompile(`^(\d+(?:\.\d+)?)-(\d+(?:\.\d+)?)$`)

// Range parses "min-max" values such as "1890-3600".
func (a Attribute) Range() (lo, hi float64, ok bool) {
	m := rangeValue.FindStringSubmatch(strings.TrimSpace(a.Value))
	if m == nil {
		return 0, 0, false
	}
	lo, _ = strconv.ParseFloat(m[1], 64)
	hi, _ = strconv.ParseFloat(m[2], 64)
	return lo, hi, true
}

// Item is a laserhead, module or gadget record.
type Item struct {
	ID         int
	Name       string
	Attributes []Attribute
	Raw        json.RawMessage
}

// MarshalJSON writes Raw with id and name patched in when changed and the
// attributes list set from Attributes.
func (it Item) MarshalJSON() ([]byte, error) {
	fresh := it.Raw == nil
	orig := gjson.ParseBytes(it.Raw)
	attrs := it.Attributes
	if attrs == nil {
		attrs = []Attribute{}
	}
	return patchObject(it.Raw,
		fieldPatch{"id", fresh || int(orig.Get("id").Int()) != it.ID, it.ID},
		fieldPatch{"name", fresh || orig.Get("name").String() != it.Name, it.Name},
		fieldPatch{"attributes", true, attrs},
	)
}

// Attribute returns the first attribute with the given name that has a value.
func (it *Item) Attribute(name string) (*Attribute, bool) {
	for i := range it.Attributes {
		if it.Attributes[i].Name == name && it.Attributes[i].Value != "" {
			return &it.Attributes[i], true
		}
	}
	return nil, false
}

func (it *Item) itemType() string {
	if a, ok := it.Attribute(AttrItemType); ok {
		return a.Value
	}
	return ""
}

func (it *Item) IsPassive() bool      { return it.itemType() == ItemTypePassive }
func (it *Item) IsActiveModule() bool { return it.itemType() == ItemTypeActive }

// Tier returns the item's Tier attribute value, if any.
func (it *Item) Tier() (string, bool) {
	for i := range it.Attributes {
		if it.Attributes[i].Name == AttrTier {
			return it.Attributes[i].Value, true
		}
	}
	return "", false
}
