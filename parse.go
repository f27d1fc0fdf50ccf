package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrItemNotFound is returned when a named item is not in the data set.
var ErrItemNotFound = errors.New("item not found")

// Catalog holds the merged records of every category, keyed by category name.
type Catalog struct {
	byCategory map[string][]Item
}

func NewCatalog() *Catalog {
	return &Catalog{byCategory: make(map[string][]Item)}
}

// Add registers items under a category, replacing what was there.
func (c *Catalog) Add(category string, items []Item) {
	c.byCategory[category] = items
}

// Items returns the items of a category.
func (c *Catalog) Items(category string) []Item {
	return c.byCategory[category]
}

var (
	sizeSuffix  = regexp.MustCompile(`\s*\(S\d\)`)
	laserSuffix = regexp.MustCompile(`(?i)Mining Laser ?`)
)

// CleanLaserName strips the size tag and "Mining Laser" from a laserhead
// name, e.g. "Helix II Mining Laser (S2)" becomes "Helix II".
func CleanLaserName(name string) string {
	name = sizeSuffix.ReplaceAllString(name, "")
	name = laserSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// Find returns the item of a category with the given name. A cleaned
// laserhead name also matches.
func (c *Catalog) Find(category, name string) (*Item, error) {
	items := c.byCategory[category]
	for i := range items {
		if items[i].Name == name {
			return &items[i], nil
		}
	}
	for i := range items {
		if strings.EqualFold(CleanLaserName(items[i].Name), strings.TrimSpace(name)) {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrItemNotFound, category, name)
}

func mergedPath(dataDir, category string) string {
	return filepath.Join(dataDir, category+"_merged.json")
}

// LoadCatalog reads <category>_merged.json for every category in dataDir.
func LoadCatalog(dataDir string, categories []Category) (*Catalog, error) {
	cat := NewCatalog()
	for _, c := range categories {
		path := mergedPath(dataDir, c.Name)
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items, err := ParseMergedItems(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cat.Add(c.Name, items)
	}
	return cat, nil
}
