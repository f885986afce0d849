/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package predicate

import (
	"fmt"
	"math"

	"github.com/suparena/storeflow/storagemodels"
)

// DefaultChunkSize is the widest In clause built when no size is configured.
const DefaultChunkSize = 500

// Segment splits values into consecutive chunks of at most size elements.
// A size below 1 yields a single chunk. Empty input yields no chunks.
func Segment[V any](values []V, size int) [][]V {
	if len(values) == 0 {
		return nil
	}
	if size < 1 || size >= len(values) {
		return [][]V{values}
	}
	chunks := make([][]V, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		chunks = append(chunks, values[start:end:end])
	}
	return chunks
}

// ForIdentifiables builds the predicate matching every record whose identity
// appears in ids. Values are grouped by primary-key field in first-seen
// order, each group is segmented into chunks of chunkSize, and the chunked
// In clauses are joined with OR. Duplicate values are collapsed. An empty
// ids slice yields MatchNone.
//
// Every caller that needs to select records by identity goes through here,
// so chunkSize is the only place the store's expression-size limit applies.
func ForIdentifiables[I storagemodels.Identifiable](ids []I, chunkSize int) Predicate {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	var fields []string
	groups := make(map[string][]any)
	seen := make(map[string]struct{})
	for _, id := range ids {
		field := id.PrimaryKey()
		value := id.PrimaryValue()
		key := IdentityKey(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := groups[field]; !ok {
			fields = append(fields, field)
		}
		groups[field] = append(groups[field], value)
	}

	var clauses []Predicate
	for _, field := range fields {
		for _, chunk := range Segment(groups[field], chunkSize) {
			clauses = append(clauses, In{Field: field, Values: chunk})
		}
	}
	return AnyOf(clauses...)
}

// IdentityKey renders id's field and value as a comparable string. Two
// identities with the same key select the same records; numbers of any kind
// that Equal treats as equal share a key.
func IdentityKey(id storagemodels.Identifiable) string {
	value := id.PrimaryValue()
	if i, ok := asInt(value); ok {
		return fmt.Sprintf("%s\x00number\x00%d", id.PrimaryKey(), i)
	}
	if f, ok := asFloat(value); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return fmt.Sprintf("%s\x00number\x00%d", id.PrimaryKey(), int64(f))
		}
		return fmt.Sprintf("%s\x00number\x00%g", id.PrimaryKey(), f)
	}
	return fmt.Sprintf("%s\x00%T\x00%v", id.PrimaryKey(), value, value)
}

// ForProperties builds the AND of one In clause per property. Each property's
// values are segmented and OR-ed so no clause is wider than chunkSize.
// Properties are visited in the order of names.
func ForProperties(names []string, values map[string][]any, chunkSize int) Predicate {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	var clauses []Predicate
	for _, name := range names {
		var ors []Predicate
		for _, chunk := range Segment(values[name], chunkSize) {
			ors = append(ors, In{Field: name, Values: chunk})
		}
		clauses = append(clauses, AnyOf(ors...))
	}
	return AllOf(clauses...)
}
