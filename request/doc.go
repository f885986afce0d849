/*
Package request describes store operations as immutable values.

A Request is produced by a Builder and never changes afterwards. Required
fields are checked when they are read, so a request missing its entity
name or predicate fails at dispatch time with a configuration error:

	req := request.NewBuilder().
	    WithOperation(request.OpFetch).
	    WithEntityName("Dummy").
	    WithPredicate(predicate.MatchAll()).
	    WithSortDescriptors(storagemodels.Asc("id")).
	    WithRetries(3).
	    Build()

	// derive a variant without touching req
	limited := req.ToBuilder().WithFetchLimit(10).Build()

Middlewares registered with a MiddlewareManager rewrite requests that opt
in with WithApplyMiddlewares; the request's MiddlewareFilters choose which
ones may act.
*/
package request
