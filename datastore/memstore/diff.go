/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"github.com/suparena/storeflow/storagemodels"
)

type objectChange struct {
	record *storagemodels.Record
	change storagemodels.ChangeType
	from   *storagemodels.IndexPath
	to     *storagemodels.IndexPath
}

type sectionChange struct {
	section storagemodels.Section[*storagemodels.Record]
	index   int
	change  storagemodels.ChangeType
}

type changes struct {
	sections []sectionChange
	objects  []objectChange
}

func (c changes) empty() bool { return len(c.sections) == 0 && len(c.objects) == 0 }

// groupSections splits sorted objects into sections by the text value of
// field, in order of first appearance. Without a field there is exactly one
// unnamed section.
func groupSections(objects []*storagemodels.Record, field string) sectionList {
	if field == "" {
		return sectionList{{NumberOfObjects: len(objects), Objects: objects}}
	}
	var out sectionList
	index := make(map[string]int)
	for _, r := range objects {
		name := r.Text(field)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, storagemodels.Section[*storagemodels.Record]{Name: name, IndexTitle: indexTitle(name)})
		}
		out[i].Objects = append(out[i].Objects, r)
		out[i].NumberOfObjects++
	}
	return out
}

func indexTitle(name string) string {
	for _, r := range name {
		return string(r)
	}
	return ""
}

type position struct {
	path    storagemodels.IndexPath
	section string
	rank    int // order among records present in both snapshots
}

func positions(sections sectionList) map[string]*position {
	out := make(map[string]*position)
	for si, s := range sections {
		for i, r := range s.Objects {
			out[r.ObjectID()] = &position{
				path:    storagemodels.IndexPath{Section: si, Item: i},
				section: s.Name,
				rank:    -1,
			}
		}
	}
	return out
}

// diff computes the section and object changes turning the old snapshot into
// the new one. Records are immutable, so a changed object always has a new
// object id and shows up as a delete plus an insert; survivors that change
// relative order or section are reported as moves.
func diff(oldObjects []*storagemodels.Record, oldSections sectionList, newObjects []*storagemodels.Record, newSections sectionList) changes {
	var out changes

	oldNames := make(map[string]bool, len(oldSections))
	for _, s := range oldSections {
		oldNames[s.Name] = true
	}
	newNames := make(map[string]bool, len(newSections))
	for _, s := range newSections {
		newNames[s.Name] = true
	}
	for i, s := range oldSections {
		if !newNames[s.Name] {
			out.sections = append(out.sections, sectionChange{section: s, index: i, change: storagemodels.ChangeDelete})
		}
	}
	for i, s := range newSections {
		if !oldNames[s.Name] {
			out.sections = append(out.sections, sectionChange{section: s, index: i, change: storagemodels.ChangeInsert})
		}
	}

	before := positions(oldSections)
	after := positions(newSections)

	rank := 0
	for _, r := range oldObjects {
		if _, ok := after[r.ObjectID()]; ok {
			before[r.ObjectID()].rank = rank
			rank++
		}
	}
	rank = 0
	for _, r := range newObjects {
		if _, ok := before[r.ObjectID()]; ok {
			after[r.ObjectID()].rank = rank
			rank++
		}
	}

	for _, r := range oldObjects {
		if _, ok := after[r.ObjectID()]; !ok {
			from := before[r.ObjectID()].path
			out.objects = append(out.objects, objectChange{record: r, change: storagemodels.ChangeDelete, from: &from})
		}
	}
	for _, r := range newObjects {
		if _, ok := before[r.ObjectID()]; !ok {
			to := after[r.ObjectID()].path
			out.objects = append(out.objects, objectChange{record: r, change: storagemodels.ChangeInsert, to: &to})
		}
	}
	for _, r := range newObjects {
		was, ok := before[r.ObjectID()]
		if !ok {
			continue
		}
		now := after[r.ObjectID()]
		if was.rank != now.rank || was.section != now.section {
			from, to := was.path, now.path
			out.objects = append(out.objects, objectChange{record: r, change: storagemodels.ChangeMove, from: &from, to: &to})
		}
	}
	return out
}
