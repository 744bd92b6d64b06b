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

package mapper

import (
	"fmt"

	"github.com/googlegenomics/asmmap/genomics"
)

// Range is one element of a mapping result: either a Coordinate or a Gap.
type Range interface {
	// Bounds returns the closed interval covered by the range.  For a
	// Coordinate this is on the target sequence region, for a Gap it is on the
	// source.
	Bounds() (start, end int64)
	// Length returns the number of bases covered by the range.
	Length() int64

	isRange()
}

// Coordinate is a successfully mapped contiguous segment.
type Coordinate struct {
	ID          int64
	Start, End  int64
	Strand      genomics.Strand
	Rank        int
	CoordSystem *genomics.CoordSystem
}

func (c Coordinate) Bounds() (int64, int64) { return c.Start, c.End }
func (c Coordinate) Length() int64          { return c.End - c.Start + 1 }
func (Coordinate) isRange()                 {}

func (c Coordinate) String() string {
	return fmt.Sprintf("coordinate(%d:%d-%d:%v rank %d)", c.ID, c.Start, c.End, c.Strand, c.Rank)
}

// Gap is a segment of the source interval without a mapping target.
type Gap struct {
	Start, End int64
	Rank       int
}

func (g Gap) Bounds() (int64, int64) { return g.Start, g.End }
func (g Gap) Length() int64          { return g.End - g.Start + 1 }
func (Gap) isRange()                 {}

func (g Gap) String() string {
	return fmt.Sprintf("gap(%d-%d)", g.Start, g.End)
}

// RangeSet is an ordered sequence of ranges.  The zero value is an empty set
// ready to use.
type RangeSet struct {
	ranges []Range
}

// NewRangeSet returns a set holding ranges in order.
func NewRangeSet(ranges ...Range) *RangeSet {
	return &RangeSet{ranges: append([]Range(nil), ranges...)}
}

// Append adds r at the end of the set.
func (s *RangeSet) Append(r Range) {
	s.ranges = append(s.ranges, r)
}

// Reverse reverses the order of the set in place.
func (s *RangeSet) Reverse() {
	for i, j := 0, len(s.ranges)-1; i < j; i, j = i+1, j-1 {
		s.ranges[i], s.ranges[j] = s.ranges[j], s.ranges[i]
	}
}

// RemoveGaps drops every Gap from the set, keeping the order of the rest.
func (s *RangeSet) RemoveGaps() {
	kept := s.ranges[:0]
	for _, r := range s.ranges {
		if _, ok := r.(Gap); !ok {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.ranges); i++ {
		s.ranges[i] = nil
	}
	s.ranges = kept
}

// Len returns the number of ranges in the set.
func (s *RangeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// At returns the i'th range.
func (s *RangeSet) At(i int) Range {
	return s.ranges[i]
}

// Ranges returns the ranges of the set.  The slice is shared with the set.
func (s *RangeSet) Ranges() []Range {
	if s == nil {
		return nil
	}
	return s.ranges
}

// Coordinates returns the Coordinate elements of the set in order.
func (s *RangeSet) Coordinates() []Coordinate {
	var coords []Coordinate
	for _, r := range s.Ranges() {
		if c, ok := r.(Coordinate); ok {
			coords = append(coords, c)
		}
	}
	return coords
}
