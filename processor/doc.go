/*
Package processor executes persistence requests against a facade.

Execute and ExecuteRecords run a request.Request through the installed
middlewares, retry it as many times as it asks (or the processor default
when it asks for none) and deliver the outcome as a one-value result
stream. Usage errors such as a missing save context are never retried.

	req := request.NewBuilder().
		WithOperation(request.OpFetch).
		WithEntityName("Note").
		WithPredicate(predicate.Cmp("score", predicate.OpGt, 10)).
		Build()
	records, err := result.Await(ctx, p.ExecuteRecords(ctx, req)).Get()

Upserts replace saved records by primary key, last duplicate wins.
Deletes and identity lookups are split into chunks so that no In clause
outgrows the store's expression limit.

The helpers in general.go chain steps on streams:

	saved := processor.UpsertInMemory(ctx, p, result.Success(values))
	done := result.Then(ctx, saved, func(ctx context.Context, _ struct{}) (<-chan result.Result[struct{}], error) {
		return processor.PersistToDB(ctx, p, result.Success(struct{}{})), nil
	})

Each execution is counted in Prometheus metrics when WithMetrics is set.
*/
package processor
