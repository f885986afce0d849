/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package predicate

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/suparena/storeflow/storagemodels"
)

// Match evaluates p against r. A nil predicate is an error; use MatchAll
// to select everything.
func Match(p Predicate, r *storagemodels.Record) (bool, error) {
	switch t := p.(type) {
	case nil:
		return false, fmt.Errorf("nil predicate")
	case True:
		return true, nil
	case False:
		return false, nil
	case Equals:
		v, ok := r.Field(t.Field)
		return ok && Equal(v, t.Value), nil
	case In:
		v, ok := r.Field(t.Field)
		if !ok {
			return false, nil
		}
		for _, candidate := range t.Values {
			if Equal(v, candidate) {
				return true, nil
			}
		}
		return false, nil
	case Compare:
		return matchCompare(t, r)
	case And:
		for _, c := range t {
			ok, err := Match(c, r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, c := range t {
			ok, err := Match(c, r)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Match(t.P, r)
		return !ok, err
	case *Expr:
		return t.Eval(r)
	}
	return false, fmt.Errorf("unsupported predicate %T", p)
}

func matchCompare(c Compare, r *storagemodels.Record) (bool, error) {
	v, ok := r.Field(c.Field)
	if !ok {
		return c.Op == OpNe, nil
	}
	switch c.Op {
	case OpEq:
		return Equal(v, c.Value), nil
	case OpNe:
		return !Equal(v, c.Value), nil
	}
	n, ok := Order(v, c.Value)
	if !ok {
		return false, fmt.Errorf("cannot order %s (%T) against %T", c.Field, v, c.Value)
	}
	switch c.Op {
	case OpLt:
		return n < 0, nil
	case OpLe:
		return n <= 0, nil
	case OpGt:
		return n > 0, nil
	case OpGe:
		return n >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %q", c.Op)
}

// Equal compares two field values, treating every integer and float kind as
// a number so that values survive JSON round trips.
func Equal(a, b any) bool {
	if n, ok := Order(a, b); ok {
		return n == 0
	}
	return reflect.DeepEqual(a, b)
}

// Order compares a and b. The boolean is false when the two values have no
// common ordering.
func Order(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return cmp3(ai, bi), true
		}
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return cmp3(af, bf), true
		}
	}
	switch at := a.(type) {
	case string:
		if bt, ok := b.(string); ok {
			return strings.Compare(at, bt), true
		}
	case time.Time:
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), true
		}
	case bool:
		if bt, ok := b.(bool); ok {
			switch {
			case at == bt:
				return 0, true
			case !at:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

func cmp3[N int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
