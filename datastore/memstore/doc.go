/*
Package memstore is an in-memory implementation of datastore.Store.

Records live in a chain of contexts. Every store has a writer context that
holds what has been persisted, a main context above it, and any number of
disposable contexts created on demand:

	disposable -> main -> writer -> Persister

Inserts and deletes are pending in the context they were made in until it
is saved, which merges them into the parent. PersistToDisk saves main into
the writer and flushes the writer's change set through the configured
Persister before committing it.

Live queries attached with AttachQueryController track the main context and
report each mutation cycle to their delegate as will-change, section
changes, object changes and did-change. Delegates must not mutate the store
from inside a callback.
*/
package memstore
