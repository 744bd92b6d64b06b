// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memory provides an in-memory store of sequence regions and
// assembly alignments.  It serves as both the RegionLoader and the
// SeqRegionResolver of the assembly mappers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/biogo/store/interval"
	"github.com/googlegenomics/asmmap/assembly"
	"github.com/googlegenomics/asmmap/genomics"
	"github.com/googlegenomics/asmmap/internal/agp"
)

var (
	// ErrUnknownSeqRegion is returned when a name or id does not refer to a
	// stored sequence region.
	ErrUnknownSeqRegion = assembly.ErrUnknownSeqRegion

	errNoTable = errors.New("no alignments between coordinate systems")
)

// SeqRegion is a named sequence of a coordinate system.
type SeqRegion struct {
	ID          int64
	Name        string
	CoordSystem *genomics.CoordSystem
	Length      int64
}

// Store holds sequence regions and the alignments between them.  It is safe
// for concurrent use.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byName  map[string]*SeqRegion
	byID    map[int64]*SeqRegion
	tables  map[tableKey]*table
	nextUID uintptr
}

type tableKey struct {
	assembled, component string
}

// table holds the alignments from one assembled coordinate system onto one
// component coordinate system, indexed on both sides.
type table struct {
	rows        []assembly.Alignment
	byAssembled map[int64]*interval.IntTree
	byComponent map[int64]*interval.IntTree
}

// rowInterval indexes rows[row] by one of its regions.  The tree works on
// half-open ranges; closed [start, end] is stored as [start, end+1).
type rowInterval struct {
	start, end int
	uid        uintptr
	row        int
}

func (i rowInterval) Overlap(b interval.IntRange) bool { return i.end > b.Start && i.start < b.End }
func (i rowInterval) ID() uintptr                      { return i.uid }
func (i rowInterval) Range() interval.IntRange         { return interval.IntRange{Start: i.start, End: i.end} }

type query interval.IntRange

func (q query) Overlap(b interval.IntRange) bool { return b.End > q.Start && b.Start < q.End }

func newQuery(r genomics.Region) query {
	return query{Start: int(r.Start), End: int(r.End) + 1}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byName: make(map[string]*SeqRegion),
		byID:   make(map[int64]*SeqRegion),
		tables: make(map[tableKey]*table),
	}
}

func nameKey(cs *genomics.CoordSystem, name string) string {
	return cs.Key() + "\x00" + name
}

// AddSeqRegion returns the id of the named sequence region of cs, adding it
// if needed.  The stored length grows to at least length.
func (s *Store) AddSeqRegion(cs *genomics.CoordSystem, name string, length int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSeqRegion(cs, name, length).ID
}

func (s *Store) addSeqRegion(cs *genomics.CoordSystem, name string, length int64) *SeqRegion {
	key := nameKey(cs, name)
	sr, ok := s.byName[key]
	if !ok {
		s.nextID++
		sr = &SeqRegion{ID: s.nextID, Name: name, CoordSystem: cs}
		s.byName[key] = sr
		s.byID[sr.ID] = sr
	}
	if length > sr.Length {
		sr.Length = length
	}
	return sr
}

// SeqRegion returns the sequence region with the provided id.
func (s *Store) SeqRegion(id int64) (SeqRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.byID[id]
	if !ok {
		return SeqRegion{}, fmt.Errorf("%w: id %d", ErrUnknownSeqRegion, id)
	}
	return *sr, nil
}

// AddAlignment records that a.Source on assembled aligns to a.Target on
// component.  Both sequence regions must have been added.
func (s *Store) AddAlignment(assembled, component *genomics.CoordSystem, a assembly.Alignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []int64{a.Source.SeqRegionID, a.Target.SeqRegionID} {
		if _, ok := s.byID[id]; !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownSeqRegion, id)
		}
	}
	return s.addAlignment(assembled, component, a)
}

func (s *Store) addAlignment(assembled, component *genomics.CoordSystem, a assembly.Alignment) error {
	if a.Source.Start > a.Source.End || a.Target.Start > a.Target.End {
		return fmt.Errorf("inverted alignment %v -> %v", a.Source, a.Target)
	}
	key := tableKey{assembled.Key(), component.Key()}
	t, ok := s.tables[key]
	if !ok {
		t = &table{
			byAssembled: make(map[int64]*interval.IntTree),
			byComponent: make(map[int64]*interval.IntTree),
		}
		s.tables[key] = t
	}

	row := len(t.rows)
	t.rows = append(t.rows, a)
	if err := s.index(t.byAssembled, a.Source, row); err != nil {
		return err
	}
	return s.index(t.byComponent, a.Target, row)
}

func (s *Store) index(trees map[int64]*interval.IntTree, r genomics.Region, row int) error {
	tree, ok := trees[r.SeqRegionID]
	if !ok {
		tree = &interval.IntTree{}
		trees[r.SeqRegionID] = tree
	}
	s.nextUID++
	return tree.Insert(rowInterval{start: int(r.Start), end: int(r.End) + 1, uid: s.nextUID, row: row}, false)
}

// AddRows adds parsed AGP rows, creating the object sequence regions on
// assembled and the component sequence regions on component.
func (s *Store) AddRows(assembled, component *genomics.CoordSystem, rows []agp.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		object := s.addSeqRegion(assembled, row.Object, row.ObjectEnd)
		part := s.addSeqRegion(component, row.Component, row.ComponentEnd)
		a := assembly.Alignment{
			Source: genomics.Region{SeqRegionID: object.ID, Start: row.ObjectStart, End: row.ObjectEnd},
			Target: genomics.Region{SeqRegionID: part.ID, Start: row.ComponentStart, End: row.ComponentEnd},
			Ori:    row.Orientation,
		}
		if err := s.addAlignment(assembled, component, a); err != nil {
			return fmt.Errorf("adding %s:%d-%d: %w", row.Object, row.ObjectStart, row.ObjectEnd, err)
		}
	}
	return nil
}

// lookup returns the table between src and dst and whether src is its
// component side.
func (s *Store) lookup(src, dst *genomics.CoordSystem) (*table, bool, error) {
	if t, ok := s.tables[tableKey{src.Key(), dst.Key()}]; ok {
		return t, false, nil
	}
	if t, ok := s.tables[tableKey{dst.Key(), src.Key()}]; ok {
		return t, true, nil
	}
	return nil, false, fmt.Errorf("%w %v and %v", errNoTable, src, dst)
}

func oriented(a assembly.Alignment, swap bool) assembly.Alignment {
	if swap {
		return assembly.Alignment{Source: a.Target, Target: a.Source, Ori: a.Ori}
	}
	return a
}

func sortBySource(rows []assembly.Alignment) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Source.SeqRegionID != rows[j].Source.SeqRegionID {
			return rows[i].Source.SeqRegionID < rows[j].Source.SeqRegionID
		}
		return rows[i].Source.Start < rows[j].Source.Start
	})
}

// LoadAlignments returns the alignments from src onto dst whose source
// overlaps region, in either storage direction.
func (s *Store) LoadAlignments(ctx context.Context, src, dst *genomics.CoordSystem, region genomics.Region) ([]assembly.Alignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, swap, err := s.lookup(src, dst)
	if err != nil {
		return nil, err
	}
	trees := t.byAssembled
	if swap {
		trees = t.byComponent
	}
	tree, ok := trees[region.SeqRegionID]
	if !ok {
		return nil, nil
	}

	var rows []assembly.Alignment
	for _, hit := range tree.Get(newQuery(region)) {
		rows = append(rows, oriented(t.rows[hit.(rowInterval).row], swap))
	}
	sortBySource(rows)
	return rows, nil
}

// LoadAllAlignments returns every alignment from src onto dst.
func (s *Store) LoadAllAlignments(ctx context.Context, src, dst *genomics.CoordSystem) ([]assembly.Alignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, swap, err := s.lookup(src, dst)
	if err != nil {
		return nil, err
	}
	rows := make([]assembly.Alignment, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, oriented(row, swap))
	}
	sortBySource(rows)
	return rows, nil
}

// SeqRegionIDs returns the ids of the named sequence regions of cs.
func (s *Store) SeqRegionIDs(ctx context.Context, cs *genomics.CoordSystem, names []string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		sr, ok := s.byName[nameKey(cs, name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %v", ErrUnknownSeqRegion, name, cs)
		}
		ids = append(ids, sr.ID)
	}
	return ids, nil
}

// SeqRegionNames returns the names of the sequence regions with the provided
// ids.
func (s *Store) SeqRegionNames(ctx context.Context, ids []int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		sr, ok := s.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownSeqRegion, id)
		}
		names = append(names, sr.Name)
	}
	return names, nil
}
