/*
Package facade wraps the blocking primitives of a datastore.Store so they
run on a bounded pool of worker goroutines and report their outcome as a
one-value result stream.

	f, _ := facade.New(store, facade.WithWorkers(4))
	records, err := result.Await(ctx, f.Fetch(ctx, store.MainContext(), q)).Get()

Failures are wrapped as errors.StoreError. The worker budget comes from
golang.org/x/sync/semaphore.
*/
package facade
