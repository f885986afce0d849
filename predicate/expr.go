/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package predicate

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/suparena/storeflow/storagemodels"
)

// Expr is a predicate written in the expr language, evaluated with the
// record's fields as variables. Undefined fields evaluate to nil.
//
//	p, _ := predicate.CompileExpr(`score > 10 && id startsWith "d-"`)
type Expr struct {
	source  string
	program *exprvm.Program
}

func (*Expr) isPredicate() {}

func (e *Expr) String() string { return e.source }

// Source returns the expression text.
func (e *Expr) Source() string { return e.source }

// CompileExpr compiles source into a predicate.
func CompileExpr(source string) (*Expr, error) {
	if source == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := exprlang.Compile(source,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", source, err)
	}
	return &Expr{source: source, program: program}, nil
}

// Eval runs the expression against r.
func (e *Expr) Eval(r *storagemodels.Record) (bool, error) {
	env := r.RecordFields()
	env["_entity"] = r.EntityName()
	env["_objectId"] = r.ObjectID()
	out, err := exprlang.Run(e.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", e.source, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("evaluate %q: got %T, want bool", e.source, out)
	}
	return b, nil
}
