package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedPayload is returned for JSON the pipeline cannot read records from.
var ErrMalformedPayload = errors.New("malformed payload")

func parseAttribute(v gjson.Result) (Attribute, error) {
	if !v.IsObject() {
		return Attribute{}, fmt.Errorf("%w: attribute record is not an object", ErrMalformedPayload)
	}
	return Attribute{
		ItemID: int(v.Get("id_item").Int()),
		Name:   v.Get("attribute_name").String(),
		Value:  v.Get("value").String(),
		Unit:   v.Get("unit").String(),
		Raw:    json.RawMessage(v.Raw),
	}, nil
}

func parseItem(v gjson.Result) (Item, error) {
	it := Item{
		ID:         int(v.Get("id").Int()),
		Name:       v.Get("name").String(),
		Attributes: []Attribute{},
		Raw:        json.RawMessage(v.Raw),
	}
	var attrErr error
	v.Get("attributes").ForEach(func(_, a gjson.Result) bool {
		attr, err := parseAttribute(a)
		if err != nil {
			attrErr = err
			return false
		}
		it.Attributes = append(it.Attributes, attr)
		return true
	})
	if attrErr != nil {
		return Item{}, fmt.Errorf("item %d: %w", it.ID, attrErr)
	}
	return it, nil
}

// envelopeData returns the "data" array of a UEX response.
func envelopeData(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: no data array", ErrMalformedPayload)
	}
	return data, nil
}

// ParseAPIItems reads item records from a UEX {"data": [...]} envelope.
func ParseAPIItems(body []byte) ([]Item, error) {
	data, err := envelopeData(body)
	if err != nil {
		return nil, err
	}
	return parseItemArray(data)
}

// ParseAPIAttributes reads item-attribute records from a UEX envelope.
func ParseAPIAttributes(body []byte) ([]Attribute, error) {
	data, err := envelopeData(body)
	if err != nil {
		return nil, err
	}
	attrs := []Attribute{}
	var parseErr error
	data.ForEach(func(_, v gjson.Result) bool {
		a, err := parseAttribute(v)
		if err != nil {
			parseErr = err
			return false
		}
		attrs = append(attrs, a)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return attrs, nil
}

// ParseMergedItems reads a merged file: a top-level array of items with
// their attributes nested.
func ParseMergedItems(body []byte) ([]Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPayload)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: merged file is not an array", ErrMalformedPayload)
	}
	return parseItemArray(root)
}

func parseItemArray(arr gjson.Result) ([]Item, error) {
	items := []Item{}
	var parseErr error
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			parseErr = fmt.Errorf("%w: record is not an object", ErrMalformedPayload)
			return false
		}
		it, err := parseItem(v)
		if err != nil {
			parseErr = err
			return false
		}
		items = append(items, it)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return items, nil
}
