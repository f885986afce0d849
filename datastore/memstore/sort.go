/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"fmt"
	"slices"
	"strings"

	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/storagemodels"
)

// sortRecords orders records by sorts. Missing values sort first; ties keep
// their current order.
func sortRecords(records []*storagemodels.Record, sorts []storagemodels.SortDescriptor) {
	if len(sorts) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b *storagemodels.Record) int {
		for _, sd := range sorts {
			n := compareField(a, b, sd.Field)
			if !sd.Ascending {
				n = -n
			}
			if n != 0 {
				return n
			}
		}
		return 0
	})
}

func compareField(a, b *storagemodels.Record, field string) int {
	av, aok := a.Field(field)
	bv, bok := b.Field(field)
	switch {
	case (!aok || av == nil) && (!bok || bv == nil):
		return 0
	case !aok || av == nil:
		return -1
	case !bok || bv == nil:
		return 1
	}
	if n, ok := predicate.Order(av, bv); ok {
		return n
	}
	return strings.Compare(fmt.Sprint(av), fmt.Sprint(bv))
}
