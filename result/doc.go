/*
Package result provides the success-or-failure wrapper used across every
asynchronous boundary in storeflow, and the processor pipeline built on it.

A stream is a receive-only channel that delivers exactly one Result and is
then closed. Failures travel as values; nothing in the pipeline panics or
closes a stream with an error:

	r := result.Await(ctx, proc.Execute(ctx, req))
	if _, err := r.Get(); err != nil {
	    log.Printf("save failed: %s", r.Cause())
	}

Processors chain one step into the next:

	out := result.ProcessResult(ctx, prev, result.Lift(func(ctx context.Context, rs []*storagemodels.Record) (int, error) {
	    return len(rs), nil
	}))
*/
package result
