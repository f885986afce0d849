/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package predicate

import (
	"fmt"
	"strings"
)

// ColumnFunc maps a record field to a SQL column expression.
type ColumnFunc func(field string) (string, error)

// ToSQL compiles p into a parameterized WHERE fragment. Values are never
// interpolated; every literal becomes a ? placeholder.
func ToSQL(p Predicate, column ColumnFunc) (string, []any, error) {
	switch t := p.(type) {
	case nil, True:
		return "1 = 1", nil, nil
	case False:
		return "1 = 0", nil, nil
	case Equals:
		col, err := column(t.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []any{t.Value}, nil
	case In:
		if len(t.Values) == 0 {
			return "1 = 0", nil, nil
		}
		col, err := column(t.Field)
		if err != nil {
			return "", nil, err
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", col, marks), append([]any(nil), t.Values...), nil
	case Compare:
		col, err := column(t.Field)
		if err != nil {
			return "", nil, err
		}
		switch t.Op {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		default:
			return "", nil, fmt.Errorf("unknown operator %q", t.Op)
		}
		return fmt.Sprintf("%s %s ?", col, t.Op), []any{t.Value}, nil
	case And:
		if len(t) == 0 {
			return "1 = 1", nil, nil
		}
		return joinSQL(t, " AND ", column)
	case Or:
		if len(t) == 0 {
			return "1 = 0", nil, nil
		}
		return joinSQL(t, " OR ", column)
	case Not:
		inner, params, err := ToSQL(t.P, column)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", params, nil
	}
	return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
}

func joinSQL(ps []Predicate, sep string, column ColumnFunc) (string, []any, error) {
	parts := make([]string, 0, len(ps))
	var params []any
	for _, c := range ps {
		sql, args, err := ToSQL(c, column)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, args...)
	}
	return strings.Join(parts, sep), params, nil
}
