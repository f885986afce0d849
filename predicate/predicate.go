/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package predicate

import (
	"fmt"
	"strings"
)

// Predicate is a boolean expression over record fields. The set of
// implementations is closed; callers build predicates with the
// constructors in this package.
type Predicate interface {
	isPredicate()
	String() string
}

// True matches every record.
type True struct{}

// False matches no record.
type False struct{}

// Equals matches records whose Field equals Value.
type Equals struct {
	Field string
	Value any
}

// In matches records whose Field equals any of Values.
type In struct {
	Field  string
	Values []any
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Compare matches records whose Field compares to Value with Op.
type Compare struct {
	Field string
	Op    Op
	Value any
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when any child matches. An empty Or matches nothing.
type Or []Predicate

// Not inverts its child.
type Not struct {
	P Predicate
}

func (True) isPredicate()    {}
func (False) isPredicate()   {}
func (Equals) isPredicate()  {}
func (In) isPredicate()      {}
func (Compare) isPredicate() {}
func (And) isPredicate()     {}
func (Or) isPredicate()      {}
func (Not) isPredicate()     {}

func (True) String() string  { return "TRUEPREDICATE" }
func (False) String() string { return "FALSEPREDICATE" }

func (p Equals) String() string { return fmt.Sprintf("%s == %#v", p.Field, p.Value) }

func (p In) String() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = fmt.Sprintf("%#v", v)
	}
	return fmt.Sprintf("%s IN {%s}", p.Field, strings.Join(parts, ", "))
}

func (p Compare) String() string { return fmt.Sprintf("%s %s %#v", p.Field, p.Op, p.Value) }

func (p And) String() string { return join(p, " AND ") }
func (p Or) String() string  { return join(p, " OR ") }
func (p Not) String() string { return "NOT (" + p.P.String() + ")" }

func join(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, c := range ps {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

// MatchAll returns the explicit match-everything predicate. It is a valid
// value distinct from an absent (nil) predicate.
func MatchAll() Predicate { return True{} }

// MatchNone returns a predicate that matches nothing.
func MatchNone() Predicate { return False{} }

// Eq builds an Equals predicate.
func Eq(field string, value any) Predicate { return Equals{Field: field, Value: value} }

// FieldIn builds an In predicate over values.
func FieldIn(field string, values ...any) Predicate {
	return In{Field: field, Values: values}
}

// Cmp builds a Compare predicate.
func Cmp(field string, op Op, value any) Predicate {
	return Compare{Field: field, Op: op, Value: value}
}

// AllOf joins ps with AND, flattening trivial cases.
func AllOf(ps ...Predicate) Predicate {
	switch len(ps) {
	case 0:
		return True{}
	case 1:
		return ps[0]
	}
	return And(ps)
}

// AnyOf joins ps with OR, flattening trivial cases.
func AnyOf(ps ...Predicate) Predicate {
	switch len(ps) {
	case 0:
		return False{}
	case 1:
		return ps[0]
	}
	return Or(ps)
}

// Negate wraps p in Not.
func Negate(p Predicate) Predicate { return Not{P: p} }

// Width returns the widest In clause in p, which is what stores with an
// expression-size limit care about.
func Width(p Predicate) int {
	switch t := p.(type) {
	case In:
		return len(t.Values)
	case And:
		return maxWidth(t)
	case Or:
		return maxWidth(t)
	case Not:
		return Width(t.P)
	}
	return 0
}

func maxWidth(ps []Predicate) int {
	w := 0
	for _, c := range ps {
		w = max(w, Width(c))
	}
	return w
}
