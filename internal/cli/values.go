/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/suparena/storeflow/storagemodels"
)

// decodeObjects parses a JSON array of objects. Numbers become int64 when
// they are integral and float64 otherwise.
func decodeObjects(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode JSON array of objects: %w", err)
	}
	for _, o := range objects {
		for k, v := range o {
			o[k] = normalize(v)
		}
	}
	return objects, nil
}

// parseScalar reads a command-line value as JSON, falling back to the bare
// string: 42 is a number, "42" and abc are strings.
func parseScalar(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	switch v.(type) {
	case map[string]any, []any, nil:
		return s
	}
	return normalize(v)
}

func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	default:
		return v
	}
}

// recordView is the JSON shape of a fetched record.
type recordView struct {
	ObjectID   string         `json:"objectId"`
	Entity     string         `json:"entity"`
	PrimaryKey string         `json:"primaryKey"`
	Fields     map[string]any `json:"fields"`
}

func viewOf(r *storagemodels.Record) recordView {
	return recordView{
		ObjectID:   r.ObjectID(),
		Entity:     r.EntityName(),
		PrimaryKey: r.PrimaryKey(),
		Fields:     r.RecordFields(),
	}
}

// formatRecord renders r on one line with its fields in name order.
func formatRecord(r *storagemodels.Record) string {
	fields := r.RecordFields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(r.String())
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%v", name, fields[name])
	}
	return sb.String()
}
