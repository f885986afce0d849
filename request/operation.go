/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package request

import "fmt"

// Operation is the store action a request asks for. The zero value means
// the operation was never set.
type Operation int

const (
	OpUnset Operation = iota
	OpFetch
	OpSaveContext
	OpDelete
	OpPersistToDisk
	OpUpsert
	OpResetStack
)

var operationNames = map[Operation]string{
	OpUnset:         "unset",
	OpFetch:         "fetch",
	OpSaveContext:   "save-context",
	OpDelete:        "delete",
	OpPersistToDisk: "persist-to-disk",
	OpUpsert:        "upsert",
	OpResetStack:    "reset-stack",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation maps a name produced by String back to its Operation.
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if n == name && op != OpUnset {
			return op, nil
		}
	}
	return OpUnset, fmt.Errorf("unknown operation %q", name)
}
