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

// Package mapper implements a bidirectional table of aligned interval pairs
// between two coordinate spaces and the range types mapping results are
// expressed in.
//
// All coordinates are 1-based and inclusive at both ends.  An interval whose
// start is exactly one greater than its end denotes an insertion point
// between end and start.
package mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/googlegenomics/asmmap/genomics"
)

// ChunkFactor is the base two logarithm of the bucket width pairs are indexed
// by (2^20, about one megabase).
const ChunkFactor = 20

var (
	ErrInvalidRange    = errors.New("invalid range")
	ErrInvalidStrand   = errors.New("strand must be +1 or -1")
	ErrLengthMismatch  = errors.New("mis-lengthed mappings are not supported")
	ErrUnknownTag      = errors.New("unknown coordinate tag")
	ErrOverlappingPair = errors.New("overlapping pair")
)

// Pair is one aligned interval correspondence.  From is on the queried side,
// To on the other, and Ori is the relative orientation of the two.
type Pair struct {
	From, To genomics.Region
	Ori      genomics.Strand
}

type pair struct {
	from, to genomics.Region
	ori      genomics.Strand
}

// sides returns the pair's interval on the requested side followed by the
// counterpart interval.
func (p *pair) sides(side int) (self, target genomics.Region) {
	if side == 0 {
		return p.from, p.to
	}
	return p.to, p.from
}

// index buckets the pairs of one sequence region by the chunks their interval
// touches.  A pair spanning several chunks is present in each of them.
type index struct {
	side   int
	chunks map[int64][]*pair
}

func (idx *index) insert(p *pair, shift uint) {
	self, _ := p.sides(idx.side)
	for c := self.Start >> shift; c <= self.End>>shift; c++ {
		list := idx.chunks[c]
		i := sort.Search(len(list), func(i int) bool {
			return !less(list[i], p, idx.side)
		})
		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = p
		idx.chunks[c] = list
	}
}

func less(a, b *pair, side int) bool {
	aSelf, aTarget := a.sides(side)
	bSelf, bTarget := b.sides(side)
	if aSelf.Start != bSelf.Start {
		return aSelf.Start < bSelf.Start
	}
	if aTarget.SeqRegionID != bTarget.SeqRegionID {
		return aTarget.SeqRegionID < bTarget.SeqRegionID
	}
	return aTarget.Start < bTarget.Start
}

// Mapper stores aligned interval pairs between the coordinate spaces tagged
// from and to and maps intervals across them in either direction.  It must be
// created with New and is not safe for concurrent use.
type Mapper struct {
	from, to     string
	fromCS, toCS *genomics.CoordSystem
	shift        uint

	pairs [2]map[int64]*index
	count int
}

// New returns an empty Mapper between the spaces tagged from and to, whose
// mapped coordinates refer to fromCS and toCS respectively.
func New(from, to string, fromCS, toCS *genomics.CoordSystem) *Mapper {
	m := &Mapper{
		from:   from,
		to:     to,
		fromCS: fromCS,
		toCS:   toCS,
		shift:  ChunkFactor,
	}
	m.Flush()
	return m
}

// From returns the tag of the from space.
func (m *Mapper) From() string { return m.from }

// To returns the tag of the to space.
func (m *Mapper) To() string { return m.to }

// PairCount returns the number of pairs stored.
func (m *Mapper) PairCount() int { return m.count }

// Flush drops all pairs.
func (m *Mapper) Flush() {
	m.pairs = [2]map[int64]*index{make(map[int64]*index), make(map[int64]*index)}
	m.count = 0
}

// Add inserts the pair mapping from (on fromStrand) onto to (on toStrand).
// Adding a pair identical to a stored one is a no-op.  A pair whose from
// interval overlaps a stored pair between the same two sequence regions is
// rejected with ErrOverlappingPair.
func (m *Mapper) Add(from genomics.Region, fromStrand genomics.Strand, to genomics.Region, toStrand genomics.Strand) error {
	if from.Start > from.End || to.Start > to.End {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidRange, from, to)
	}
	if !fromStrand.Valid() || !toStrand.Valid() {
		return fmt.Errorf("%w: got %d and %d", ErrInvalidStrand, fromStrand, toStrand)
	}
	if from.Length() != to.Length() {
		return fmt.Errorf("%w: %v -> %v", ErrLengthMismatch, from, to)
	}

	p := &pair{from: from, to: to, ori: fromStrand * toStrand}
	for _, q := range m.overlapping(0, from.SeqRegionID, from.Start, from.End) {
		if *q == *p {
			return nil
		}
		if q.to.SeqRegionID == to.SeqRegionID {
			return fmt.Errorf("%w: %v -> %v overlaps %v -> %v", ErrOverlappingPair, from, to, q.from, q.to)
		}
	}

	m.indexFor(0, from.SeqRegionID).insert(p, m.shift)
	m.indexFor(1, to.SeqRegionID).insert(p, m.shift)
	m.count++
	return nil
}

func (m *Mapper) indexFor(side int, id int64) *index {
	idx, ok := m.pairs[side][id]
	if !ok {
		idx = &index{side: side, chunks: make(map[int64][]*pair)}
		m.pairs[side][id] = idx
	}
	return idx
}

// overlapping returns the pairs whose interval on side overlaps [start, end]
// of sequence region id, ordered by start.
func (m *Mapper) overlapping(side int, id, start, end int64) []*pair {
	idx, ok := m.pairs[side][id]
	if !ok {
		return nil
	}

	first, last := start>>m.shift, end>>m.shift
	var chunks []int64
	if last-first >= int64(len(idx.chunks)) {
		for c := range idx.chunks {
			if c >= first && c <= last {
				chunks = append(chunks, c)
			}
		}
		sort.Slice(chunks, func(i, j int) bool { return chunks[i] < chunks[j] })
	} else {
		for c := first; c <= last; c++ {
			chunks = append(chunks, c)
		}
	}

	var found []*pair
	for _, c := range chunks {
		for _, p := range idx.chunks[c] {
			self, _ := p.sides(side)
			if self.Start > end {
				break
			}
			if self.End < start {
				continue
			}
			// Report each pair from the first chunk of the query it touches.
			if max(self.Start>>m.shift, first) != c {
				continue
			}
			found = append(found, p)
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return less(found[i], found[j], side) })
	return found
}

func (m *Mapper) side(tag string) (int, *genomics.CoordSystem, error) {
	switch tag {
	case m.to:
		return 1, m.fromCS, nil
	case m.from:
		return 0, m.toCS, nil
	}
	return 0, nil, fmt.Errorf("%w %q (mapper is %s <-> %s)", ErrUnknownTag, tag, m.from, m.to)
}

// Map maps [start, end] on sequence region id in the space tagged tag onto
// the other space.  The result covers the query in order, with a Gap for
// every part no pair covers; it is reversed when strand is Reverse.  Pairs
// overlapping each other on the queried side all produce coordinates, ranked
// from zero upwards.
func (m *Mapper) Map(id, start, end int64, strand genomics.Strand, tag string) (*RangeSet, error) {
	side, cs, err := m.side(tag)
	if err != nil {
		return nil, err
	}
	if !strand.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStrand, strand)
	}
	if start == end+1 {
		return m.mapInsert(id, start, end, strand, tag, false)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, start, end)
	}

	result := &RangeSet{}
	pairs := m.overlapping(side, id, start, end)
	if len(pairs) == 0 {
		result.Append(Gap{Start: start, End: end})
		return result, nil
	}

	var layers []int64
	cursor := start
	for _, p := range pairs {
		self, _ := p.sides(side)
		rank := assignRank(&layers, self)

		from, to := max(start, self.Start), min(end, self.End)
		if from > cursor {
			result.Append(Gap{Start: cursor, End: from - 1})
		}
		if to+1 > cursor {
			cursor = to + 1
		}
		result.Append(project(p, side, from, to, strand, rank, cs))
	}
	if cursor <= end {
		result.Append(Gap{Start: cursor, End: end})
	}

	if strand == genomics.Reverse {
		result.Reverse()
	}
	return result, nil
}

// assignRank places self in the lowest layer whose last interval ends before
// it starts, opening a new layer if there is none.
func assignRank(layers *[]int64, self genomics.Region) int {
	for i, end := range *layers {
		if end < self.Start {
			(*layers)[i] = self.End
			return i
		}
	}
	*layers = append(*layers, self.End)
	return len(*layers) - 1
}

// project converts [from, to], which must lie within the pair's interval on
// side, into the corresponding coordinate on the other side.
func project(p *pair, side int, from, to int64, strand genomics.Strand, rank int, cs *genomics.CoordSystem) Coordinate {
	self, target := p.sides(side)
	c := Coordinate{
		ID:          target.SeqRegionID,
		Strand:      p.ori * strand,
		Rank:        rank,
		CoordSystem: cs,
	}
	if p.ori == genomics.Forward {
		c.Start = target.Start + (from - self.Start)
		c.End = target.Start + (to - self.Start)
	} else {
		c.Start = target.End - (to - self.Start)
		c.End = target.End - (from - self.Start)
	}
	return c
}

// FastMap is Map restricted to the common case where the whole query lies in
// a single pair.  It returns an empty set whenever Map would return anything
// other than a single Coordinate.
func (m *Mapper) FastMap(id, start, end int64, strand genomics.Strand, tag string) (*RangeSet, error) {
	side, cs, err := m.side(tag)
	if err != nil {
		return nil, err
	}
	if !strand.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStrand, strand)
	}
	if start == end+1 {
		return m.mapInsert(id, start, end, strand, tag, true)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, start, end)
	}

	result := &RangeSet{}
	pairs := m.overlapping(side, id, start, end)
	if len(pairs) != 1 {
		return result, nil
	}
	if self, _ := pairs[0].sides(side); start < self.Start || end > self.End {
		return result, nil
	}
	result.Append(project(pairs[0], side, start, end, strand, 0, cs))
	return result, nil
}

// mapInsert maps the insertion point between end and start (start == end+1)
// by mapping the two flanking bases and trimming the result back to an
// insertion point on the other side.
func (m *Mapper) mapInsert(id, start, end int64, strand genomics.Strand, tag string, fast bool) (*RangeSet, error) {
	window, err := m.Map(id, end, start, strand, tag)
	if err != nil {
		return nil, err
	}

	result := &RangeSet{}
	ranges := window.Ranges()
	switch len(ranges) {
	case 1:
		switch r := ranges[0].(type) {
		case Coordinate:
			r.Start, r.End = r.End, r.Start
			result.Append(r)
		case Gap:
			r.Start, r.End = r.End, r.Start
			result.Append(r)
		}
	case 2:
		first, second := ranges[0], ranges[1]
		if strand == genomics.Reverse {
			first, second = second, first
		}
		// The insert lies after the first coordinate and before the second.
		if c, ok := first.(Coordinate); ok {
			if c.Strand*strand == genomics.Reverse {
				c.End--
			} else {
				c.Start++
			}
			result.Append(c)
		}
		if c, ok := second.(Coordinate); ok {
			if c.Strand*strand == genomics.Reverse {
				c.Start++
			} else {
				c.End--
			}
			if strand == genomics.Reverse {
				result.ranges = append([]Range{c}, result.ranges...)
			} else {
				result.Append(c)
			}
		}
	default:
		// Several ranked pairs cover the flanks; the caller gets them as is.
		result = window
	}

	if fast {
		if len(result.Coordinates()) != 1 || result.Len() != 1 {
			return &RangeSet{}, nil
		}
	}
	return result, nil
}

// ListPairs returns the pairs overlapping [start, end] on sequence region id
// in the space tagged tag, oriented so that From is on that space.
func (m *Mapper) ListPairs(id, start, end int64, tag string) ([]Pair, error) {
	side, _, err := m.side(tag)
	if err != nil {
		return nil, err
	}
	if start == end+1 {
		start, end = end, start
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, start, end)
	}

	var pairs []Pair
	for _, p := range m.overlapping(side, id, start, end) {
		self, target := p.sides(side)
		pairs = append(pairs, Pair{From: self, To: target, Ori: p.ori})
	}
	return pairs, nil
}

// ListIDs returns the distinct sequence region ids on the other space that
// overlap [start, end], in the order they are first encountered.
func (m *Mapper) ListIDs(id, start, end int64, tag string) ([]int64, error) {
	pairs, err := m.ListPairs(id, start, end, tag)
	if err != nil {
		return nil, err
	}
	var ids []int64
	seen := make(map[int64]bool)
	for _, p := range pairs {
		if !seen[p.To.SeqRegionID] {
			seen[p.To.SeqRegionID] = true
			ids = append(ids, p.To.SeqRegionID)
		}
	}
	return ids, nil
}
