/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type widget struct {
	ID    string
	Count int64
}

func (w *widget) FromRecord(r *Record) error {
	if r.EntityName() != "Widget" {
		return errors.New("not a widget")
	}
	w.ID = r.Text("id")
	n, err := r.Int64("count")
	if err != nil {
		return err
	}
	w.Count = n
	return nil
}

func TestRecordFromPureValue(t *testing.T) {
	v := NewValue("Widget", "id", map[string]any{"id": "w-1", "count": 3})
	r := FromPureValue(v)

	if r.ObjectID() == "" {
		t.Fatal("expected an object id")
	}
	if r.EntityName() != "Widget" || r.PrimaryKey() != "id" || r.PrimaryValue() != "w-1" {
		t.Fatalf("unexpected identity %v", r)
	}

	// the record owns its fields
	v.Fields["count"] = 99
	if n, _ := r.Int64("count"); n != 3 {
		t.Fatalf("record was mutated through the source map: %d", n)
	}
	if other := FromPureValue(v); other.ObjectID() == r.ObjectID() {
		t.Fatal("object ids must be unique")
	}
}

func TestRecordAccessorsTolerateRoundTrips(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecord("Widget", "id", map[string]any{
		"id":      "w-1",
		"float":   float64(7),
		"number":  json.Number("12"),
		"text":    "19",
		"flag":    "true",
		"created": now.Format(time.RFC3339Nano),
	})

	tests := []struct {
		name  string
		field string
		want  int64
	}{
		{"float64", "float", 7},
		{"json number", "number", 12},
		{"string", "text", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Int64(tt.field)
			if err != nil {
				t.Fatalf("Int64(%q): %v", tt.field, err)
			}
			if got != tt.want {
				t.Errorf("Int64(%q) = %d, want %d", tt.field, got, tt.want)
			}
		})
	}

	if b, err := r.Bool("flag"); err != nil || !b {
		t.Errorf("Bool(flag) = %v, %v", b, err)
	}
	if ts, err := r.Time("created"); err != nil || !ts.Equal(now) {
		t.Errorf("Time(created) = %v, %v", ts, err)
	}
	if _, err := r.Int64("missing"); err == nil {
		t.Error("expected error for missing field")
	}
}

func TestDecodeAll(t *testing.T) {
	records := []*Record{
		NewRecord("Widget", "id", map[string]any{"id": "a", "count": int64(1)}),
		NewRecord("Widget", "id", map[string]any{"id": "b", "count": int64(2)}),
	}
	widgets, err := DecodeAll[widget](records)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(widgets) != 2 || widgets[1].ID != "b" || widgets[1].Count != 2 {
		t.Fatalf("unexpected widgets %+v", widgets)
	}

	records = append(records, NewRecord("Gadget", "id", map[string]any{"id": "c"}))
	if _, err := DecodeAll[widget](records); err == nil {
		t.Fatal("expected decode error for a foreign entity")
	}
}

func TestMapEvent(t *testing.T) {
	toLen := func(s string) (int, error) {
		if s == "" {
			return 0, errors.New("empty")
		}
		return len(s), nil
	}

	snapshot := ChangeEvent[string]{
		Kind:     EventDidChange,
		Objects:  []string{"a", "", "abc"},
		Sections: []Section[string]{{Name: "s", NumberOfObjects: 3, Objects: []string{"a", "", "abc"}}},
	}
	mapped, err := MapEvent(snapshot, toLen)
	if err != nil {
		t.Fatalf("MapEvent: %v", err)
	}
	if len(mapped.Objects) != 2 || mapped.Sections[0].NumberOfObjects != 2 {
		t.Fatalf("failed conversions should be dropped from snapshots: %+v", mapped)
	}

	obj := ChangeEvent[string]{Kind: EventObjectInserted, Object: "", To: &IndexPath{Item: 1}}
	if _, err := MapEvent(obj, toLen); err == nil {
		t.Fatal("expected error when the affected object cannot be converted")
	}
}

func TestEventKinds(t *testing.T) {
	if ObjectEventKind(ChangeMove) != EventObjectMoved {
		t.Error("move should map to object-moved")
	}
	if SectionEventKind(ChangeDelete) != EventSectionDeleted {
		t.Error("delete should map to section-deleted")
	}
	if !EventObjectUpdated.IsObjectChange() || EventDidChange.IsObjectChange() {
		t.Error("IsObjectChange misclassifies kinds")
	}
	if InitialEvent[int]().Kind.String() != "initial" {
		t.Error("initial event should report its kind")
	}
}
