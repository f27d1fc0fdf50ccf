package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// MergeAttributes attaches to each item the attribute records whose item id
// matches, in input order. The input items are left untouched.
func MergeAttributes(items []Item, attrs []Attribute) []Item {
	byItem := make(map[int][]Attribute)
	for _, a := range attrs {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}

	merged := make([]Item, 0, len(items))
	for _, it := range items {
		out := it
		out.Attributes = append([]Attribute{}, byItem[it.ID]...)
		merged = append(merged, out)
	}
	return merged
}

// encodeItems renders items as an indented JSON array. Characters such as
// '&' and non-ASCII text are written as is.
func encodeItems(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if items == nil {
		items = []Item{}
	}
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeItems(path string, items []Item) error {
	data, err := encodeItems(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Merger joins the fetched files of each category into <name>_merged.json.
type Merger struct {
	DataDir string
	Logger  *zap.Logger
}

func NewMerger(dataDir string, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{DataDir: dataDir, Logger: logger}
}

// MergeCategory merges one category and returns the merged records.
func (m *Merger) MergeCategory(name string) ([]Item, error) {
	itemsPath := rawItemsPath(m.DataDir, name)
	body, err := os.ReadFile(itemsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", itemsPath, err)
	}
	items, err := ParseAPIItems(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", itemsPath, err)
	}

	attrsPath := rawAttributesPath(m.DataDir, name)
	body, err = os.ReadFile(attrsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", attrsPath, err)
	}
	attrs, err := ParseAPIAttributes(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", attrsPath, err)
	}

	merged := MergeAttributes(items, attrs)
	out := mergedPath(m.DataDir, name)
	if err := writeItems(out, merged); err != nil {
		return nil, err
	}
	m.Logger.Info("merged category",
		zap.String("category", name),
		zap.Int("items", len(merged)),
		zap.Int("attributes", len(attrs)),
		zap.String("file", out))
	return merged, nil
}

// MergeSummary reports one merged category.
type MergeSummary struct {
	Category string
	Items    int
	Path     string
}

// MergeAll merges every category in order, stopping at the first failure.
func (m *Merger) MergeAll(categories []Category) ([]MergeSummary, error) {
	summaries := make([]MergeSummary, 0, len(categories))
	for _, c := range categories {
		merged, err := m.MergeCategory(c.Name)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, MergeSummary{
			Category: c.Name,
			Items:    len(merged),
			Path:     mergedPath(m.DataDir, c.Name),
		})
	}
	return summaries, nil
}
