/*
Package datastore defines the contract between storeflow and the embedded
store it orchestrates.

The Store interface exposes the store's blocking primitives: fetch, insert,
delete, save and persist, plus live query controllers that report changes
through a ControllerDelegate. Contexts scope pending mutations and form a
chain (disposable, main, writer), each save pushing changes one level up.

Implementations:
  - memstore: in-memory object graph with context chains and live queries
  - mock: wraps any Store and injects failures for testing

Persisters write a store's committed changes to disk:
  - sqlite: a single SQLite table keyed by object id
  - ddb: a single DynamoDB table with macro-expanded keys
*/
package datastore
