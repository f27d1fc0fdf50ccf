package main

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// NoTier is shown for passive modules without a Tier attribute.
const NoTier = "No tier"

// TierChange records one tier write.
type TierChange struct {
	Name  string `json:"name"`
	Old   string `json:"old,omitempty"`
	New   int    `json:"new"`
	Added bool   `json:"added"`
}

// TierEntry is a passive module and its tier for listings.
type TierEntry struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
}

// TierStore edits the Tier attribute of modules in a merged modules file.
type TierStore struct {
	Path   string
	Logger *zap.Logger
}

func NewTierStore(dataDir string, logger *zap.Logger) *TierStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TierStore{Path: mergedPath(dataDir, CategoryModules), Logger: logger}
}

func (s *TierStore) load() ([]Item, error) {
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	items, err := ParseMergedItems(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return items, nil
}

func (s *TierStore) save(items []Item) error {
	if err := writeItems(s.Path, items); err != nil {
		return err
	}
	s.Logger.Debug("saved modules", zap.String("file", s.Path), zap.Int("items", len(items)))
	return nil
}

// applyTier updates the first module with the given name. It reports false
// when no module has that name.
func applyTier(items []Item, name string, tier int) (TierChange, bool) {
	idx := slices.IndexFunc(items, func(it Item) bool { return it.Name == name })
	if idx < 0 {
		return TierChange{}, false
	}
	it := &items[idx]
	value := strconv.Itoa(tier)
	for i := range it.Attributes {
		if it.Attributes[i].Name == AttrTier {
			old := it.Attributes[i].Value
			it.Attributes[i].Value = value
			return TierChange{Name: name, Old: old, New: tier}, true
		}
	}
	it.Attributes = append(it.Attributes, Attribute{Name: AttrTier, Value: value, Unit: ""})
	return TierChange{Name: name, New: tier, Added: true}, true
}

// SetTier inserts or updates one module's tier. The file is left untouched
// when the module does not exist.
func (s *TierStore) SetTier(name string, tier int) (TierChange, error) {
	items, err := s.load()
	if err != nil {
		return TierChange{}, err
	}
	change, ok := applyTier(items, name, tier)
	if !ok {
		return TierChange{}, fmt.Errorf("%w: module %q", ErrItemNotFound, name)
	}
	if err := s.save(items); err != nil {
		return TierChange{}, err
	}
	s.Logger.Info("tier set", zap.String("module", name), zap.Int("tier", tier), zap.Bool("added", change.Added))
	return change, nil
}

// BulkSetTiers applies a name to tier mapping in name order and saves once.
// Names not in the file are returned as missing.
func (s *TierStore) BulkSetTiers(mapping map[string]int) ([]TierChange, []string, error) {
	items, err := s.load()
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	slices.Sort(names)

	var (
		changes []TierChange
		missing []string
	)
	for _, name := range names {
		change, ok := applyTier(items, name, mapping[name])
		if !ok {
			missing = append(missing, name)
			continue
		}
		changes = append(changes, change)
	}

	if len(changes) > 0 {
		if err := s.save(items); err != nil {
			return nil, nil, err
		}
	}
	s.Logger.Info("bulk tiers applied", zap.Int("changed", len(changes)), zap.Int("missing", len(missing)))
	return changes, missing, nil
}

// ListPassive returns the passive modules sorted by name.
func (s *TierStore) ListPassive() ([]TierEntry, error) {
	items, err := s.load()
	if err != nil {
		return nil, err
	}
	entries := []TierEntry{}
	for i := range items {
		if !items[i].IsPassive() {
			continue
		}
		tier, ok := items[i].Tier()
		if !ok {
			tier = NoTier
		}
		entries = append(entries, TierEntry{Name: items[i].Name, Tier: tier})
	}
	slices.SortFunc(entries, func(a, b TierEntry) int { return cmp.Compare(a.Name, b.Name) })
	return entries, nil
}
