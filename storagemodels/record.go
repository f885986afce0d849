/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Identifiable is anything that exposes a stable identity: the name of its
// primary-key field and that field's value.
type Identifiable interface {
	PrimaryKey() string
	PrimaryValue() any
}

// PureValue is a domain value that can be inserted into the store.
type PureValue interface {
	Identifiable
	EntityName() string
	RecordFields() map[string]any
}

// Record is a store-managed entity instance. Records are never mutated
// after construction; an update is a delete followed by an insert.
type Record struct {
	objectID   string
	entity     string
	primaryKey string
	fields     map[string]any
}

// NewRecord creates a record with a fresh object id.
func NewRecord(entity, primaryKey string, fields map[string]any) *Record {
	return RestoreRecord(uuid.NewString(), entity, primaryKey, fields)
}

// RestoreRecord rebuilds a record that was previously persisted under objectID.
func RestoreRecord(objectID, entity, primaryKey string, fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{
		objectID:   objectID,
		entity:     entity,
		primaryKey: primaryKey,
		fields:     maps.Clone(fields),
	}
}

// FromPureValue materializes v as a new record.
func FromPureValue(v PureValue) *Record {
	fields := v.RecordFields()
	if fields == nil {
		fields = map[string]any{}
	}
	if _, ok := fields[v.PrimaryKey()]; !ok && v.PrimaryValue() != nil {
		fields = maps.Clone(fields)
		fields[v.PrimaryKey()] = v.PrimaryValue()
	}
	return NewRecord(v.EntityName(), v.PrimaryKey(), fields)
}

func (r *Record) ObjectID() string   { return r.objectID }
func (r *Record) EntityName() string { return r.entity }
func (r *Record) PrimaryKey() string { return r.primaryKey }

func (r *Record) PrimaryValue() any {
	return r.fields[r.primaryKey]
}

// RecordFields returns a copy of the field map.
func (r *Record) RecordFields() map[string]any {
	return maps.Clone(r.fields)
}

// Field returns the raw value stored under name.
func (r *Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%s=%v)", r.entity, r.primaryKey, r.PrimaryValue())
}

// Text returns the named field as a string. Non-string values are formatted.
func (r *Record) Text(name string) string {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int64 returns the named field as an int64. Values that went through a JSON
// or DynamoDB round trip come back as float64, json.Number or string; all of
// those are accepted.
func (r *Record) Int64(name string) (int64, error) {
	v, ok := r.fields[name]
	if !ok {
		return 0, fmt.Errorf("field %q not set", name)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case interface{ Int64() (int64, error) }:
		return n.Int64()
	}
	return 0, fmt.Errorf("field %q is %T, not an integer", name, v)
}

// Float64 returns the named field as a float64.
func (r *Record) Float64(name string) (float64, error) {
	v, ok := r.fields[name]
	if !ok {
		return 0, fmt.Errorf("field %q not set", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	case interface{ Float64() (float64, error) }:
		return n.Float64()
	}
	return 0, fmt.Errorf("field %q is %T, not a number", name, v)
}

// Bool returns the named field as a bool.
func (r *Record) Bool(name string) (bool, error) {
	v, ok := r.fields[name]
	if !ok {
		return false, fmt.Errorf("field %q not set", name)
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("field %q is %T, not a bool", name, v)
}

// Time returns the named field as a time. Strings are parsed as RFC 3339.
func (r *Record) Time(name string) (time.Time, error) {
	v, ok := r.fields[name]
	if !ok {
		return time.Time{}, fmt.Errorf("field %q not set", name)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case fmt.Stringer:
		return time.Parse(time.RFC3339Nano, t.String())
	}
	return time.Time{}, fmt.Errorf("field %q is %T, not a time", name, v)
}

// Value is a map-backed PureValue for callers that have no domain struct.
type Value struct {
	Entity string
	Key    string
	Fields map[string]any
}

// NewValue builds a Value whose primary key is key.
func NewValue(entity, key string, fields map[string]any) Value {
	return Value{Entity: entity, Key: key, Fields: fields}
}

func (v Value) EntityName() string           { return v.Entity }
func (v Value) PrimaryKey() string           { return v.Key }
func (v Value) PrimaryValue() any            { return v.Fields[v.Key] }
func (v Value) RecordFields() map[string]any { return maps.Clone(v.Fields) }

// Key is a bare identity, used to address records without loading them.
type Key struct {
	Field string
	Value any
}

func (k Key) PrimaryKey() string { return k.Field }
func (k Key) PrimaryValue() any  { return k.Value }

// Decoder is implemented by *T for every domain type T that can be built
// from a record.
type Decoder[T any] interface {
	*T
	FromRecord(*Record) error
}

// Decode converts a record into T.
func Decode[T any, PT Decoder[T]](r *Record) (T, error) {
	var v T
	if r == nil {
		return v, fmt.Errorf("decode %T: nil record", v)
	}
	if err := PT(&v).FromRecord(r); err != nil {
		return v, fmt.Errorf("decode %s into %T: %w", r.EntityName(), v, err)
	}
	return v, nil
}

// DecodeAll converts every record, failing on the first error.
func DecodeAll[T any, PT Decoder[T]](records []*Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := Decode[T, PT](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
