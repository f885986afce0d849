/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import "fmt"

// SortDescriptor orders fetch results by one field.
type SortDescriptor struct {
	Field     string
	Ascending bool
}

// Asc sorts field in ascending order.
func Asc(field string) SortDescriptor { return SortDescriptor{Field: field, Ascending: true} }

// Desc sorts field in descending order.
func Desc(field string) SortDescriptor { return SortDescriptor{Field: field} }

// IndexPath locates an object inside a sectioned result.
type IndexPath struct {
	Section int
	Item    int
}

func (p IndexPath) String() string {
	return fmt.Sprintf("[%d,%d]", p.Section, p.Item)
}

// ChangeType is the kind of change a query controller reports for one
// object or section.
type ChangeType int

const (
	ChangeInsert ChangeType = iota + 1
	ChangeDelete
	ChangeMove
	ChangeUpdate
)

func (c ChangeType) String() string {
	switch c {
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeMove:
		return "move"
	case ChangeUpdate:
		return "update"
	}
	return "unknown"
}

// Section is one group of a sectioned fetch result.
type Section[V any] struct {
	Name            string
	IndexTitle      string
	NumberOfObjects int
	Objects         []V
}

// MapSection converts the objects of s. Objects that fail to convert are
// dropped, and NumberOfObjects follows the converted slice.
func MapSection[V, R any](s Section[V], fn func(V) (R, error)) Section[R] {
	out := Section[R]{Name: s.Name, IndexTitle: s.IndexTitle}
	for _, o := range s.Objects {
		if r, err := fn(o); err == nil {
			out.Objects = append(out.Objects, r)
		}
	}
	out.NumberOfObjects = len(out.Objects)
	return out
}

// EventKind tags a ChangeEvent.
type EventKind int

const (
	EventInitial EventKind = iota
	EventWillChange
	EventDidChange
	EventObjectInserted
	EventObjectDeleted
	EventObjectMoved
	EventObjectUpdated
	EventSectionInserted
	EventSectionDeleted
)

var eventKindNames = map[EventKind]string{
	EventInitial:         "initial",
	EventWillChange:      "will-change",
	EventDidChange:       "did-change",
	EventObjectInserted:  "object-inserted",
	EventObjectDeleted:   "object-deleted",
	EventObjectMoved:     "object-moved",
	EventObjectUpdated:   "object-updated",
	EventSectionInserted: "section-inserted",
	EventSectionDeleted:  "section-deleted",
}

func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// IsObjectChange reports whether k describes a single object.
func (k EventKind) IsObjectChange() bool {
	return k >= EventObjectInserted && k <= EventObjectUpdated
}

// IsSectionChange reports whether k describes a section.
func (k EventKind) IsSectionChange() bool {
	return k == EventSectionInserted || k == EventSectionDeleted
}

// ObjectEventKind maps a controller change type to its object event kind.
func ObjectEventKind(c ChangeType) EventKind {
	switch c {
	case ChangeInsert:
		return EventObjectInserted
	case ChangeDelete:
		return EventObjectDeleted
	case ChangeMove:
		return EventObjectMoved
	default:
		return EventObjectUpdated
	}
}

// SectionEventKind maps a controller change type to its section event kind.
// Sections are only ever inserted or deleted.
func SectionEventKind(c ChangeType) EventKind {
	if c == ChangeDelete {
		return EventSectionDeleted
	}
	return EventSectionInserted
}

// ChangeEvent is one notification from a live query.
//
// Will/did-change events carry Sections and Objects snapshots. Object events
// carry Object with From (old position, nil on insert) and To (new position,
// nil on delete). Section events carry Section and SectionIndex.
type ChangeEvent[V any] struct {
	Kind         EventKind
	Sections     []Section[V]
	Objects      []V
	Object       V
	From         *IndexPath
	To           *IndexPath
	Section      *Section[V]
	SectionIndex int
}

// InitialEvent is the placeholder value a broadcaster holds before the
// first real notification.
func InitialEvent[V any]() ChangeEvent[V] {
	return ChangeEvent[V]{Kind: EventInitial}
}

// MapEvent converts the objects carried by e. A failed conversion of the
// affected object of an object event is an error; snapshot objects that
// fail to convert are dropped.
func MapEvent[V, R any](e ChangeEvent[V], fn func(V) (R, error)) (ChangeEvent[R], error) {
	out := ChangeEvent[R]{
		Kind:         e.Kind,
		From:         e.From,
		To:           e.To,
		SectionIndex: e.SectionIndex,
	}
	if e.Kind.IsObjectChange() {
		obj, err := fn(e.Object)
		if err != nil {
			return ChangeEvent[R]{}, fmt.Errorf("%s event: %w", e.Kind, err)
		}
		out.Object = obj
	}
	if e.Section != nil {
		s := MapSection(*e.Section, fn)
		out.Section = &s
	}
	if e.Sections != nil {
		out.Sections = make([]Section[R], 0, len(e.Sections))
		for _, s := range e.Sections {
			out.Sections = append(out.Sections, MapSection(s, fn))
		}
	}
	if e.Objects != nil {
		out.Objects = make([]R, 0, len(e.Objects))
		for _, o := range e.Objects {
			if r, err := fn(o); err == nil {
				out.Objects = append(out.Objects, r)
			}
		}
	}
	return out, nil
}
