/*
Package storagemodels defines the data structures shared by every storeflow
package.

Records:

A Record is a store-managed entity instance: an object id assigned by the
store, an entity name, the name of its primary-key field and a field map.
Anything that exposes a primary key is Identifiable; anything that can be
inserted is a PureValue.

	v := storagemodels.NewValue("Dummy", "id", map[string]any{
	    "id":    "d-1",
	    "int64": int64(42),
	})

Typed conversion:

Domain types implement FromRecord on their pointer type and are converted
with the generic Decode helpers, so a mismatch is a compile error rather
than a failed cast:

	func (d *Dummy) FromRecord(r *storagemodels.Record) error { ... }

	dummies, err := storagemodels.DecodeAll[Dummy](records)

Change events:

ChangeEvent[V] is the tagged union emitted by live queries: will-change,
did-change, object and section deltas, plus the initial placeholder.
*/
package storagemodels
