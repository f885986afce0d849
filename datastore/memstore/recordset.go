/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import "github.com/suparena/storeflow/storagemodels"

// recordSet is an insertion-ordered set of records keyed by object id.
type recordSet struct {
	order []*storagemodels.Record
	index map[string]int
	live  int
}

func newRecordSet() *recordSet {
	return &recordSet{index: make(map[string]int)}
}

func (s *recordSet) add(r *storagemodels.Record) {
	if i, ok := s.index[r.ObjectID()]; ok {
		s.order[i] = r
		return
	}
	s.index[r.ObjectID()] = len(s.order)
	s.order = append(s.order, r)
	s.live++
}

func (s *recordSet) remove(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.order[i] = nil
	delete(s.index, id)
	s.live--
	if s.live < len(s.order)/2 {
		s.compact()
	}
	return true
}

func (s *recordSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *recordSet) len() int { return s.live }

func (s *recordSet) list() []*storagemodels.Record {
	out := make([]*storagemodels.Record, 0, s.live)
	for _, r := range s.order {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (s *recordSet) clear() {
	s.order = nil
	s.index = make(map[string]int)
	s.live = 0
}

func (s *recordSet) compact() {
	live := s.list()
	s.clear()
	for _, r := range live {
		s.add(r)
	}
}
