/*
Package predicate provides the boolean query expressions used by fetch,
delete and upsert requests.

Predicates are a closed set of value types (True, False, Equals, In,
Compare, And, Or, Not) plus Expr, which compiles a string expression with
github.com/expr-lang/expr. Match evaluates a predicate against a record,
and ToSQL compiles one into a parameterized WHERE fragment.

Identity predicates:

Stores limit how wide a single expression may be. ForIdentifiables is the
single place that limit is honored: it groups identities by primary-key
field, segments each group with Segment and joins the chunks with OR.

	p := predicate.ForIdentifiables(records, 500)
*/
package predicate
