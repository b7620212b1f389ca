// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package mongoexec

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// decode converts a JSON-decoded parameter into BSON, honoring extended JSON
// markers such as {"$oid": ...} and {"$date": ...}.
func decode(v any) (any, error) {
	data, err := json.Marshal(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("invalid extended JSON: %w", err)
	}
	if len(d) == 0 {
		return nil, nil
	}
	return d[0].Value, nil
}

// document decodes an object parameter; nil yields an empty document.
func document(v any) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	out, err := decode(v)
	if err != nil {
		return nil, err
	}
	d, ok := out.(bson.D)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return d, nil
}

// array decodes an array parameter; nil yields an empty array.
func array(v any) (bson.A, error) {
	if v == nil {
		return bson.A{}, nil
	}
	out, err := decode(v)
	if err != nil {
		return nil, err
	}
	a, ok := out.(bson.A)
	if !ok {
		return nil, fmt.Errorf("expected an array, got %T", v)
	}
	return a, nil
}

// normalize renders any BSON value as plain JSON values using extended JSON,
// relaxed unless canonical is set.
func normalize(v any, canonical bool) (any, error) {
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, canonical, false)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out["v"], nil
}

// records normalizes a batch of documents into JSON objects.
func records(docs []bson.M, canonical bool) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		v, err := normalize(doc, canonical)
		if err != nil {
			return nil, err
		}
		m, _ := v.(map[string]any)
		out = append(out, m)
	}
	return out, nil
}
