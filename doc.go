/*
Package storeflow orchestrates persistence requests against an embedded
object-graph store.

A request names an operation (fetch, save-context, delete, persist,
upsert, reset) and the fields that operation needs. The processor runs it
off the caller's goroutine through a facade that bounds concurrent store
calls, retries store failures as often as the request allows, and
delivers exactly one result on a channel. Bridges turn live query
controllers into replay-latest event streams.

Open wires everything from a config.Config:

	cfg, err := config.Load("storeflow.yaml")
	if err != nil {
	    return err
	}
	stack, err := storeflow.Open(ctx, cfg, storeflow.WithLogger(logger.New("info", "console")))
	if err != nil {
	    return err
	}
	defer stack.Close()

	// Bind a domain type to its entity once
	storeflow.RegisterType[RatingSystem](stack, map[string]string{"PK": "RATINGSYSTEM#{Id}", "SK": "{objectId}"})

	// Replace by identity, then read back
	err = result.Await(ctx, storeflow.Upsert(ctx, stack, systems)).Err()
	top, err := result.Await(ctx, storeflow.Fetch[RatingSystem](ctx, stack,
	    predicate.Cmp("Score", predicate.OpGt, 1500),
	    storagemodels.Desc("Score"),
	)).Get()

	// Watch changes
	events, err := storeflow.Watch[RatingSystem](ctx, stack, "systems")

Lower-level access goes through Stack.Processor with hand-built requests;
see the request and processor packages.
*/
package storeflow
